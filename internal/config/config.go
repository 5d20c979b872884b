package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

var ErrMissingSecret = errors.New("JWT_SECRET is required in production unless AUTH_TRUST_CLIENT is set")

type Config struct {
	Port               string `env:"PORT,default=8080"`
	Env                string `env:"ENV,default=development"`
	LogLevel           string `env:"LOG_LEVEL,default=info"`
	RedisURL           string `env:"REDIS_URL"`
	RedisChannelPrefix string `env:"REDIS_CHANNEL_PREFIX,default=spark:"`
	FrontendURL        string `env:"FRONTEND_URL,default=http://localhost:3001"`
	JWTSecret          string `env:"JWT_SECRET"`
	JWTIssuer          string `env:"JWT_ISSUER,default=spark"`
	// Trusts the userId sent in "authenticate" frames. Local development only.
	AuthTrustClient bool   `env:"AUTH_TRUST_CLIENT,default=false"`
	IngestToken     string `env:"INGEST_TOKEN"`
	SendBuffer      int    `env:"SEND_BUFFER,default=256"`
}

// Load reads a .env file when present and decodes the environment into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.SendBuffer <= 0 {
		return fmt.Errorf("SEND_BUFFER must be positive, got %d", c.SendBuffer)
	}
	if c.IsProduction() && c.JWTSecret == "" && !c.AuthTrustClient {
		return ErrMissingSecret
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// TrustsClient reports whether sockets bind to client-asserted user ids. That
// is the case when AUTH_TRUST_CLIENT is set, and outside production when no
// JWT_SECRET is configured.
func (c *Config) TrustsClient() bool {
	return c.AuthTrustClient || (!c.IsProduction() && c.JWTSecret == "")
}

// Logger builds the process logger: JSON in production, text otherwise.
func (c *Config) Logger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(c.LogLevel)}
	if c.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
