package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config is the root configuration of a papertrade process.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Oracle    OracleConfig    `yaml:"oracle"`
	Storage   StorageConfig   `yaml:"storage"`
	Valuation ValuationConfig `yaml:"valuation"`
	Accounts  AccountsConfig  `yaml:"accounts"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds the HTTP front end settings.
type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
}

// OracleConfig selects and configures the price source.
type OracleConfig struct {
	Driver       string                 `yaml:"driver"` // "http" or "static"
	BaseURL      string                 `yaml:"base_url"`
	APIKey       string                 `yaml:"api_key"`
	Timeout      time.Duration          `yaml:"timeout"`
	MaxRetries   int                    `yaml:"max_retries"`
	RetryBackoff time.Duration          `yaml:"retry_backoff"`
	Symbols      map[string]StaticQuote `yaml:"symbols"` // static driver only
}

// StaticQuote is one entry of the static oracle's symbol table.
type StaticQuote struct {
	Name  string `yaml:"name"`
	Price string `yaml:"price"`
}

// StorageConfig selects the ledger store driver.
type StorageConfig struct {
	Driver   string       `yaml:"driver"` // "memory", "pebble" or "postgres"
	Pebble   PebbleConfig `yaml:"pebble"`
	Postgres DBConfig     `yaml:"postgres"`
}

type PebbleConfig struct {
	Path string `yaml:"path"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// ValuationConfig bounds the portfolio quote fan-out.
type ValuationConfig struct {
	Concurrency int `yaml:"concurrency"`
}

type AccountsConfig struct {
	InitialCash string `yaml:"initial_cash"`
	// TokenSecret keys the bearer tokens issued at login. When empty a
	// random key is used and tokens do not survive a restart.
	TokenSecret string        `yaml:"token_secret"`
	TokenTTL    time.Duration `yaml:"token_ttl"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ConnString builds a PostgreSQL connection string, including pgxpool sizing.
func (db DBConfig) ConnString() string {
	// URL-encode password to handle special characters
	escapedPassword := url.QueryEscape(db.Password)

	sslMode := db.SSLMode
	if sslMode == "" {
		sslMode = DefaultDBSSLMode
	}

	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		db.User,
		escapedPassword,
		db.Host,
		db.Port,
		db.Name,
		sslMode,
	)
	if db.MaxConns > 0 {
		connStr += fmt.Sprintf("&pool_max_conns=%d", db.MaxConns)
	}
	if db.MinConns > 0 {
		connStr += fmt.Sprintf("&pool_min_conns=%d", db.MinConns)
	}
	return connStr
}
