package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"papertrade/internal/account"
	"papertrade/internal/config"
	"papertrade/internal/engine"
	"papertrade/internal/logging"
	"papertrade/internal/oracle"
	"papertrade/internal/repository"
	"papertrade/types"
)

// app holds the wired components shared by every command.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	closeLog func() error
	store    repository.Store
	engine   *engine.Engine
	accounts *account.Service
}

func newApp(ctx context.Context) (*app, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		return nil, err
	}
	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	store, err := repository.Open(ctx, cfg.Storage, logger)
	if err != nil {
		closeLog()
		return nil, err
	}
	quotes, err := oracle.New(cfg.Oracle, logger)
	if err != nil {
		store.Close()
		closeLog()
		return nil, err
	}
	initialCash, err := cfg.Accounts.InitialCashAmount()
	if err != nil {
		store.Close()
		closeLog()
		return nil, err
	}
	tokens, err := newTokens(cfg.Accounts, logger)
	if err != nil {
		store.Close()
		closeLog()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		closeLog: closeLog,
		store:    store,
		engine: engine.New(store, quotes,
			engine.WithLogger(logger.Named("engine")),
			engine.WithConcurrency(cfg.Valuation.Concurrency),
		),
		accounts: account.NewService(store, initialCash,
			account.WithTokens(tokens),
			account.WithLogger(logger.Named("account")),
		),
	}, nil
}

func newTokens(cfg config.AccountsConfig, logger *zap.Logger) (*account.Tokens, error) {
	if cfg.TokenSecret == "" {
		logger.Warn("accounts.token_secret not set, login tokens will not survive a restart")
		return account.RandomTokens(cfg.TokenTTL)
	}
	return account.NewTokens([]byte(cfg.TokenSecret), cfg.TokenTTL)
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close store", zap.Error(err))
	}
	if err := a.closeLog(); err != nil {
		fmt.Fprintf(os.Stderr, "close log: %v\n", err)
	}
}

// lookupUser resolves a username to its id.
func (a *app) lookupUser(ctx context.Context, username string) (int64, error) {
	if username == "" {
		return 0, fmt.Errorf("--user is required: %w", types.ErrInvalidInput)
	}
	rec, err := a.store.GetUserByName(ctx, username)
	if errors.Is(err, types.ErrNotFound) {
		return 0, fmt.Errorf("no user named %q: %w", username, err)
	}
	if err != nil {
		return 0, err
	}
	return rec.ID, nil
}
