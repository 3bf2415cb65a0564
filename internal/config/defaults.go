package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultServerAddr        = ":8080"
	DefaultReadTimeout       = 15 * time.Second
	DefaultWriteTimeout      = 30 * time.Second
	DefaultOracleDriver      = "http"
	DefaultOracleBaseURL     = "https://cloud.iexapis.com/stable"
	DefaultOracleTimeout     = 10 * time.Second
	DefaultOracleBackoff     = 500 * time.Millisecond
	DefaultStorageDriver     = "pebble"
	DefaultPebblePath        = "data/ledger"
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 10
	DefaultMinConns          = 2
	DefaultValuationParallel = 8
	DefaultInitialCash       = "10000.00"
	DefaultTokenTTL          = 24 * time.Hour
	DefaultLogLevel          = "info"
)

func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = DefaultReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}

	// Oracle defaults
	if c.Oracle.Driver == "" {
		c.Oracle.Driver = DefaultOracleDriver
	}
	if c.Oracle.BaseURL == "" {
		c.Oracle.BaseURL = DefaultOracleBaseURL
	}
	if c.Oracle.Timeout == 0 {
		c.Oracle.Timeout = DefaultOracleTimeout
	}
	if c.Oracle.RetryBackoff == 0 {
		c.Oracle.RetryBackoff = DefaultOracleBackoff
	}

	// Storage defaults
	if c.Storage.Driver == "" {
		c.Storage.Driver = DefaultStorageDriver
	}
	if c.Storage.Pebble.Path == "" {
		c.Storage.Pebble.Path = DefaultPebblePath
	}
	applyDBDefaults(&c.Storage.Postgres)

	if c.Valuation.Concurrency == 0 {
		c.Valuation.Concurrency = DefaultValuationParallel
	}
	if c.Accounts.InitialCash == "" {
		c.Accounts.InitialCash = DefaultInitialCash
	}
	if c.Accounts.TokenTTL == 0 {
		c.Accounts.TokenTTL = DefaultTokenTTL
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
