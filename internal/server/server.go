// Package server exposes the ledger as a JSON API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"papertrade/internal/account"
	"papertrade/internal/config"
	"papertrade/types"
)

type tradingEngine interface {
	Quote(ctx context.Context, symbol string) (types.Quote, error)
	Buy(ctx context.Context, userID int64, symbol string, shares int64) (types.TradeResult, error)
	Sell(ctx context.Context, userID int64, symbol string, shares int64) (types.TradeResult, error)
	Deposit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error)
	GetPortfolio(ctx context.Context, userID int64) (types.PortfolioView, error)
	GetHistory(ctx context.Context, userID int64) ([]types.HistoryEntry, error)
}

type accountService interface {
	Register(ctx context.Context, req types.RegisterRequest) (types.User, error)
	Login(ctx context.Context, username, password string) (types.User, account.Token, error)
	VerifyToken(token string) (int64, error)
}

// Server handles the REST API.
type Server struct {
	engine   tradingEngine
	accounts accountService
	logger   *zap.Logger
	cfg      config.ServerConfig
	router   *mux.Router
}

func New(engine tradingEngine, accounts accountService, logger *zap.Logger, cfg config.ServerConfig) *Server {
	s := &Server{
		engine:   engine,
		accounts: accounts,
		logger:   logger,
		cfg:      cfg,
		router:   mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(noCache, s.logRequests)

	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Account endpoints
	api.HandleFunc("/register", s.handleRegister).Methods("POST")
	api.HandleFunc("/login", s.handleLogin).Methods("POST")

	// Market data
	api.HandleFunc("/quotes/{symbol}", s.handleQuote).Methods("GET")

	// Ledger endpoints, only for the user the bearer token was issued to
	users := api.PathPrefix("/users/{id:[0-9]+}").Subrouter()
	users.Use(s.requireUser)
	users.HandleFunc("/portfolio", s.handlePortfolio).Methods("GET")
	users.HandleFunc("/history", s.handleHistory).Methods("GET")
	users.HandleFunc("/buy", s.handleBuy).Methods("POST")
	users.HandleFunc("/sell", s.handleSell).Methods("POST")
	users.HandleFunc("/deposit", s.handleDeposit).Methods("POST")

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the router wrapped with CORS handling.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(s.router)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
