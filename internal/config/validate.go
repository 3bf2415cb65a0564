package config

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}

	if err := c.Oracle.validate(); err != nil {
		return err
	}

	switch c.Storage.Driver {
	case "memory":
	case "pebble":
		if c.Storage.Pebble.Path == "" {
			return errors.New("storage.pebble.path is required")
		}
	case "postgres":
		if err := c.Storage.Postgres.validate("storage.postgres"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("storage.driver must be memory, pebble or postgres, got %q", c.Storage.Driver)
	}

	if c.Valuation.Concurrency < 1 {
		return errors.New("valuation.concurrency must be >= 1")
	}

	cash, err := c.Accounts.InitialCashAmount()
	if err != nil {
		return err
	}
	if cash.IsNegative() {
		return fmt.Errorf("accounts.initial_cash must be >= 0, got %s", cash)
	}
	if n := len(c.Accounts.TokenSecret); n > 0 && (n < 16 || n > 64) {
		return fmt.Errorf("accounts.token_secret must be 16 to 64 bytes, got %d", n)
	}
	if c.Accounts.TokenTTL <= 0 {
		return errors.New("accounts.token_ttl must be > 0")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	return nil
}

func (o *OracleConfig) validate() error {
	switch o.Driver {
	case "http":
		if o.BaseURL == "" {
			return errors.New("oracle.base_url is required")
		}
		if o.APIKey == "" {
			return errors.New("oracle.api_key is required")
		}
		if o.MaxRetries < 0 {
			return errors.New("oracle.max_retries must be >= 0")
		}
	case "static":
		if len(o.Symbols) == 0 {
			return errors.New("oracle.symbols is required for the static driver")
		}
		for sym, q := range o.Symbols {
			price, err := decimal.NewFromString(q.Price)
			if err != nil {
				return fmt.Errorf("oracle.symbols.%s.price: %w", sym, err)
			}
			if !price.IsPositive() {
				return fmt.Errorf("oracle.symbols.%s.price must be > 0", sym)
			}
		}
	default:
		return fmt.Errorf("oracle.driver must be http or static, got %q", o.Driver)
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

// InitialCashAmount parses accounts.initial_cash.
func (a AccountsConfig) InitialCashAmount() (decimal.Decimal, error) {
	cash, err := decimal.NewFromString(a.InitialCash)
	if err != nil {
		return decimal.Zero, fmt.Errorf("accounts.initial_cash: %w", err)
	}
	return cash, nil
}
