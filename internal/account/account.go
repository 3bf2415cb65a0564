// Package account registers users and checks their credentials.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"papertrade/internal/repository"
	"papertrade/types"
)

type userStore interface {
	CreateUser(ctx context.Context, username, passwordHash string, cash decimal.Decimal) (types.User, error)
	GetUserByName(ctx context.Context, username string) (repository.UserRecord, error)
}

type Service struct {
	store       userStore
	initialCash decimal.Decimal
	cost        int
	tokens      *Tokens
	logger      *zap.Logger
}

const defaultTokenTTL = 24 * time.Hour

type Option func(*Service)

// WithCost sets the bcrypt cost. Tests use bcrypt.MinCost.
func WithCost(cost int) Option {
	return func(s *Service) {
		s.cost = cost
	}
}

// WithTokens sets the issuer used by Login. Without it the service signs
// with a random per-process key.
func WithTokens(tokens *Tokens) Option {
	return func(s *Service) {
		s.tokens = tokens
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService returns a Service that opens every account with initialCash.
func NewService(store userStore, initialCash decimal.Decimal, opts ...Option) *Service {
	s := &Service{
		store:       store,
		initialCash: initialCash,
		cost:        bcrypt.DefaultCost,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tokens == nil {
		// RandomTokens only fails if the system random source does.
		s.tokens, _ = RandomTokens(defaultTokenTTL)
	}
	return s
}

// Register creates a user after checking the request and hashing the
// password. Usernames are trimmed and must be unique.
func (s *Service) Register(ctx context.Context, req types.RegisterRequest) (types.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	if err := req.Validate(); err != nil {
		return types.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		// bcrypt rejects passwords longer than 72 bytes.
		return types.User{}, fmt.Errorf("hash password: %v: %w", err, types.ErrInvalidInput)
	}

	user, err := s.store.CreateUser(ctx, req.Username, string(hash), s.initialCash)
	if err != nil {
		return types.User{}, err
	}
	s.logger.Info("user registered", zap.Int64("user", user.ID), zap.String("username", user.Username))
	return user, nil
}

// Authenticate returns the user whose name and password match. Unknown users
// and wrong passwords are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, username, password string) (types.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return types.User{}, fmt.Errorf("username and password are required: %w", types.ErrInvalidInput)
	}

	rec, err := s.store.GetUserByName(ctx, username)
	if errors.Is(err, types.ErrNotFound) {
		return types.User{}, types.ErrInvalidCredentials
	}
	if err != nil {
		return types.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)); err != nil {
		s.logger.Debug("password mismatch", zap.String("username", username))
		return types.User{}, types.ErrInvalidCredentials
	}
	return rec.User, nil
}

// Login authenticates the user and issues a bearer token for them.
func (s *Service) Login(ctx context.Context, username, password string) (types.User, Token, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return types.User{}, Token{}, err
	}
	tok := s.tokens.Issue(user.ID)
	s.logger.Debug("token issued", zap.Int64("user", user.ID), zap.Time("expires", tok.ExpiresAt))
	return user, tok, nil
}

// VerifyToken returns the user id the token was issued to.
func (s *Service) VerifyToken(token string) (int64, error) {
	return s.tokens.Verify(token)
}
