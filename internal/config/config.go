package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/smarta/server/internal/auth"
)

// Data backends
const (
	BackendREST     = "rest"
	BackendPostgres = "postgres"
)

// Config holds the application configuration
type Config struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	AppMode         string        `env:"APP_MODE" envDefault:"production"`
	SupabaseURL     string        `env:"SUPABASE_URL"`
	SupabaseAnonKey string        `env:"SUPABASE_ANON_KEY"`
	DataBackend     string        `env:"DATA_BACKEND"` // rest, postgres; inferred when empty
	DatabaseURL     string        `env:"DATABASE_URL"`
	RedisAddr       string        `env:"REDIS_ADDR"`
	ClientSecret    string        `env:"CLIENT_SECRET,required,notEmpty"`
	DevTenantUserID string        `env:"DEV_TENANT_USER_ID"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
	ClientIdleTTL   time.Duration `env:"CLIENT_IDLE_TTL" envDefault:"30m"`
	ClientCookieTTL time.Duration `env:"CLIENT_COOKIE_TTL" envDefault:"720h"`
	PendingTTL      time.Duration `env:"PENDING_TTL" envDefault:"15m"`
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"10s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"text"` // text (tint), json

	// New client instances allowed per IP per ClientMintWindow; 0 disables the cap
	ClientMintLimit  int           `env:"CLIENT_MINT_LIMIT" envDefault:"30"`
	ClientMintWindow time.Duration `env:"CLIENT_MINT_WINDOW" envDefault:"10m"`

	// Mode is AppMode parsed; set by Load
	Mode auth.Mode
}

// Load reads configuration from the environment, after a best-effort .env
func Load() (*Config, error) {
	// Load .env from CWD for local development (env vars override)
	_ = godotenv.Load(".env")

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	mode, err := auth.ParseMode(c.AppMode)
	if err != nil {
		return fmt.Errorf("APP_MODE: %w", err)
	}
	if mode == auth.ModeDevelopment && !auth.DevStubAvailable {
		return fmt.Errorf("APP_MODE=development: %w", auth.ErrDevModeUnavailable)
	}
	c.Mode = mode

	hasSupabase := c.SupabaseURL != "" && c.SupabaseAnonKey != ""
	if (c.SupabaseURL == "") != (c.SupabaseAnonKey == "") {
		return fmt.Errorf("SUPABASE_URL and SUPABASE_ANON_KEY must be set together")
	}
	if mode == auth.ModeProduction && !hasSupabase {
		return fmt.Errorf("SUPABASE_URL and SUPABASE_ANON_KEY are required in production mode")
	}

	switch c.DataBackend {
	case "":
		if hasSupabase {
			c.DataBackend = BackendREST
		} else {
			c.DataBackend = BackendPostgres
		}
	case BackendREST, BackendPostgres:
	default:
		return fmt.Errorf("DATA_BACKEND: unknown backend %q", c.DataBackend)
	}
	if c.DataBackend == BackendREST && !hasSupabase {
		return fmt.Errorf("DATA_BACKEND=rest requires SUPABASE_URL and SUPABASE_ANON_KEY")
	}
	if c.DataBackend == BackendPostgres && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for the postgres backend")
	}

	if c.ClientMintLimit < 0 {
		return fmt.Errorf("CLIENT_MINT_LIMIT must not be negative")
	}
	if c.ClientMintLimit > 0 && c.ClientMintWindow <= 0 {
		return fmt.Errorf("CLIENT_MINT_WINDOW must be positive")
	}

	if len(c.ClientSecret) < 32 {
		return fmt.Errorf("CLIENT_SECRET must be at least 32 characters")
	}
	return nil
}

// DevMode reports whether the development OTP stub is active
func (c *Config) DevMode() bool {
	return c.Mode == auth.ModeDevelopment
}
