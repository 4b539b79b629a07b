package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/gokatarajesh/permit-prep/internal/jurisdiction"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"permit-prep"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	LogLevel                string        `env:"LOG_LEVEL" envDefault:"info"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres Postgres
	Redis    Redis
	Security Security
	Practice Practice
	Explain  Explain
}

// Postgres captures connection info for the attempt history database.
type Postgres struct {
	Host     string `env:"PG_HOST,notEmpty"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER,notEmpty"`
	Password string `env:"PG_PASSWORD,notEmpty"`
	Database string `env:"PG_DATABASE,notEmpty"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
	MaxConns int    `env:"PG_MAX_CONNS" envDefault:"10"`
}

// DSN renders a pgx keyword/value connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode, p.MaxConns)
}

// Redis holds session, bank and explanation cache storage.
type Redis struct {
	Addr     string `env:"REDIS_ADDR,notEmpty"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Security stores secrets for admin auth.
type Security struct {
	JWTSecret         string        `env:"JWT_SECRET,notEmpty"`
	TokenTTL          time.Duration `env:"ADMIN_TOKEN_TTL" envDefault:"8h"`
	AdminUsername     string        `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPasswordHash string        `env:"ADMIN_PASSWORD_HASH" envDefault:""`
}

// Practice groups session defaults.
type Practice struct {
	PassPercent         int           `env:"PRACTICE_PASS_PERCENT" envDefault:"80"`
	ProgressTTL         time.Duration `env:"PRACTICE_PROGRESS_TTL" envDefault:"720h"`
	DefaultJurisdiction string        `env:"PRACTICE_DEFAULT_JURISDICTION" envDefault:"GA"`
	IdleTimeout         time.Duration `env:"PRACTICE_IDLE_TIMEOUT" envDefault:"30m"`
	EvictInterval       time.Duration `env:"PRACTICE_EVICT_INTERVAL" envDefault:"1m"`
}

// Explain configures the explanation provider.
type Explain struct {
	APIKey   string        `env:"GEMINI_API_KEY" envDefault:""`
	Model    string        `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	BaseURL  string        `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	Timeout  time.Duration `env:"EXPLAIN_TIMEOUT" envDefault:"8s"`
	CacheTTL time.Duration `env:"EXPLAIN_CACHE_TTL" envDefault:"168h"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Practice.PassPercent <= 0 || cfg.Practice.PassPercent > 100 {
		return nil, fmt.Errorf("PRACTICE_PASS_PERCENT must be within 1..100, got %d", cfg.Practice.PassPercent)
	}
	if _, err := jurisdiction.Lookup(cfg.Practice.DefaultJurisdiction); err != nil {
		return nil, fmt.Errorf("PRACTICE_DEFAULT_JURISDICTION %q: %w", cfg.Practice.DefaultJurisdiction, err)
	}
	return cfg, nil
}

// LoadExplain parses only the explanation provider settings, for tools that
// run without Postgres or Redis.
func LoadExplain() (Explain, error) {
	var cfg Explain
	if err := env.ParseWithOptions(&cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return Explain{}, fmt.Errorf("parse explain config: %w", err)
	}
	return cfg, nil
}
