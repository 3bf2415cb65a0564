package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"papertrade/internal/account"
	"papertrade/types"
)

type UserResponse struct {
	User types.User `json:"user"`
}

type LoginResponse struct {
	User types.User `json:"user"`
	account.Token
}

type CashResponse struct {
	Cash decimal.Decimal `json:"cash"`
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %v: %w", err, types.ErrInvalidInput)
	}
	return nil
}

func userID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("user id %q: %w", raw, types.ErrInvalidInput)
	}
	return id, nil
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req types.RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondFailure(w, err)
		return
	}
	user, err := s.accounts.Register(r.Context(), req)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, UserResponse{User: user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondFailure(w, err)
		return
	}
	user, tok, err := s.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, LoginResponse{User: user, Token: tok})
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	q, err := s.engine.Quote(r.Context(), mux.Vars(r)["symbol"])
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, q)
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	view, err := s.engine.GetPortfolio(r.Context(), id)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	history, err := s.engine.GetHistory(r.Context(), id)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	if history == nil {
		history = []types.HistoryEntry{}
	}
	respondJSON(w, http.StatusOK, history)
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	s.handleTrade(w, r, types.SideTypeBuy)
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	s.handleTrade(w, r, types.SideTypeSell)
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request, side types.Side) {
	id, err := userID(r)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	var req types.TradeRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondFailure(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.respondFailure(w, err)
		return
	}

	var res types.TradeResult
	switch side {
	case types.SideTypeBuy:
		res, err = s.engine.Buy(r.Context(), id, req.Symbol, req.Shares)
	case types.SideTypeSell:
		res, err = s.engine.Sell(r.Context(), id, req.Symbol, req.Shares)
	}
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	var req types.DepositRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondFailure(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.respondFailure(w, err)
		return
	}
	cash, err := s.engine.Deposit(r.Context(), id, req.Amount)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, CashResponse{Cash: cash})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
