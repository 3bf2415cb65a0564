package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"papertrade/types"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, kind string, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:   kind,
		Message: message,
	})
}

// respondFailure maps a ledger failure to its status code.
func (s *Server) respondFailure(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	respondError(w, status, types.KindOf(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrQuoteUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, types.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, types.ErrInvalidInput), errors.Is(err, types.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrUnknownSymbol), errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrNoPosition),
		errors.Is(err, types.ErrInsufficientFunds),
		errors.Is(err, types.ErrInsufficientShares):
		return http.StatusUnprocessableEntity
	case errors.Is(err, types.ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, types.ErrInvalidCredentials), errors.Is(err, types.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, types.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
