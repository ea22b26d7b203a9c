package bootstrap

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"securequiz/internal/logging"
	"securequiz/internal/observability"
	"securequiz/internal/quiz/app"
	serverHTTP "securequiz/internal/server/http"
	"securequiz/internal/utils/id"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

const developmentJWTSecret = "development-only-insecure-secret"

// Config holds server configuration.
type Config struct {
	Port                    string
	Environment             string
	AllowedOrigins          []string
	TrustedProxies          []string
	Store                   StoreConfig
	Auth                    AuthConfig
	RateLimit               app.RateLimitConfig
	LoginThrottle           serverHTTP.LoginThrottleConfig
	SessionMaxAge           time.Duration
	SessionSweepSchedule    string
	MaxBodyBytes            int64
	IDStrategy              id.Strategy
	Observability           observability.Config
	ObservabilityConfigPath string
	UsingDevelopmentSecret  bool
}

// StoreConfig selects and addresses the persistence backend.
type StoreConfig struct {
	Backend     string
	DatabaseURL string
	SQLitePath  string
}

// AuthConfig captures admin authentication settings.
type AuthConfig struct {
	JWTSecret         string
	TokenTTL          time.Duration
	Issuer            string
	BootstrapUsername string
	BootstrapEmail    string
	BootstrapPassword string
}

// IsDevelopment reports whether the server runs in development mode.
func (c Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

// IsProduction reports whether the server runs in production mode.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("port", "8080")
	v.SetDefault("environment", "production")
	v.SetDefault("cors_allowed_origins", "")
	v.SetDefault("trusted_proxies", "")
	v.SetDefault("store_backend", StoreMemory)
	v.SetDefault("database_url", "")
	v.SetDefault("sqlite_path", "data/quiz.db")
	v.SetDefault("auth_jwt_secret", "")
	v.SetDefault("auth_token_ttl_hours", 24)
	v.SetDefault("auth_issuer", "quiz-server")
	v.SetDefault("admin_username", "")
	v.SetDefault("admin_email", "")
	v.SetDefault("admin_password", "")
	v.SetDefault("rate_limit_max_attempts", 3)
	v.SetDefault("rate_limit_window", "1h")
	v.SetDefault("rate_limit_max_identities", 10000)
	v.SetDefault("login_rate_per_minute", 5)
	v.SetDefault("login_burst", 5)
	v.SetDefault("session_max_age", "72h")
	v.SetDefault("session_sweep_schedule", "@every 1h")
	v.SetDefault("max_body_bytes", 1<<20)
	v.SetDefault("id_strategy", "ksuid")
	v.SetDefault("observability_config", "")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig resolves defaults, then the optional YAML file at path, then
// environment variables.
func LoadConfig(path string) (Config, error) {
	v := newViper()
	if path = strings.TrimSpace(path); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := Config{
		Port:           strings.TrimPrefix(strings.TrimSpace(v.GetString("port")), ":"),
		Environment:    strings.ToLower(strings.TrimSpace(v.GetString("environment"))),
		AllowedOrigins: parseList(v.GetString("cors_allowed_origins")),
		TrustedProxies: parseList(v.GetString("trusted_proxies")),
		Store: StoreConfig{
			Backend:     strings.ToLower(strings.TrimSpace(v.GetString("store_backend"))),
			DatabaseURL: strings.TrimSpace(v.GetString("database_url")),
			SQLitePath:  strings.TrimSpace(v.GetString("sqlite_path")),
		},
		Auth: AuthConfig{
			JWTSecret:         strings.TrimSpace(v.GetString("auth_jwt_secret")),
			TokenTTL:          time.Duration(v.GetInt("auth_token_ttl_hours")) * time.Hour,
			Issuer:            strings.TrimSpace(v.GetString("auth_issuer")),
			BootstrapUsername: strings.TrimSpace(v.GetString("admin_username")),
			BootstrapEmail:    strings.TrimSpace(v.GetString("admin_email")),
			BootstrapPassword: v.GetString("admin_password"),
		},
		RateLimit: app.RateLimitConfig{
			MaxAttempts:   v.GetInt("rate_limit_max_attempts"),
			Window:        v.GetDuration("rate_limit_window"),
			MaxIdentities: v.GetInt("rate_limit_max_identities"),
		},
		LoginThrottle: serverHTTP.LoginThrottleConfig{
			RequestsPerMinute: v.GetInt("login_rate_per_minute"),
			Burst:             v.GetInt("login_burst"),
		},
		SessionMaxAge:           v.GetDuration("session_max_age"),
		SessionSweepSchedule:    strings.TrimSpace(v.GetString("session_sweep_schedule")),
		MaxBodyBytes:            v.GetInt64("max_body_bytes"),
		ObservabilityConfigPath: strings.TrimSpace(v.GetString("observability_config")),
	}

	strategy, err := id.ParseStrategy(v.GetString("id_strategy"))
	if err != nil {
		return Config{}, fmt.Errorf("ID_STRATEGY: %w", err)
	}
	cfg.IDStrategy = strategy

	obsCfg, err := observability.LoadConfig(cfg.ObservabilityConfigPath)
	if err != nil {
		return Config{}, err
	}
	applyObservabilityOverrides(v, &obsCfg)
	cfg.Observability = obsCfg

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyObservabilityOverrides(v *viper.Viper, cfg *observability.Config) {
	if v.IsSet("log_level") {
		cfg.Logging.Level = v.GetString("log_level")
	}
	if v.IsSet("log_format") {
		cfg.Logging.Format = v.GetString("log_format")
	}
	if v.IsSet("metrics_enabled") {
		cfg.Metrics.Enabled = v.GetBool("metrics_enabled")
	}
	if v.IsSet("tracing_enabled") {
		cfg.Tracing.Enabled = v.GetBool("tracing_enabled")
	}
	if v.IsSet("tracing_exporter") {
		cfg.Tracing.Exporter = strings.ToLower(strings.TrimSpace(v.GetString("tracing_exporter")))
	}
	if v.IsSet("tracing_endpoint") {
		endpoint := strings.TrimSpace(v.GetString("tracing_endpoint"))
		if cfg.Tracing.Exporter == "zipkin" {
			cfg.Tracing.ZipkinEndpoint = endpoint
		} else {
			cfg.Tracing.OTLPEndpoint = endpoint
		}
	}
}

func (c *Config) validate() error {
	if c.Port == "" {
		return errors.New("PORT must not be empty")
	}
	switch c.Store.Backend {
	case StoreMemory:
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			return errors.New("DATABASE_URL required for postgres store")
		}
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			return errors.New("SQLITE_PATH required for sqlite store")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q (want memory, postgres or sqlite)", c.Store.Backend)
	}
	if c.Auth.JWTSecret == "" {
		if !c.IsDevelopment() {
			return errors.New("AUTH_JWT_SECRET not configured")
		}
		c.Auth.JWTSecret = developmentJWTSecret
		c.UsingDevelopmentSecret = true
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}
	if c.SessionSweepSchedule == "" {
		c.SessionSweepSchedule = "@every 1h"
	}
	return nil
}

// parseList splits a comma, semicolon or whitespace separated value and drops
// duplicates.
func parseList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		switch r {
		case ',', ';', '\n', '\r', '\t', ' ':
			return true
		default:
			return false
		}
	})
	values := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		value := strings.TrimSpace(field)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		values = append(values, value)
	}
	return values
}

// LogServerConfiguration writes a redacted configuration summary.
func LogServerConfiguration(logger logging.Logger, cfg Config) {
	logger = logging.OrNop(logger)
	logger.Info("=== Server Configuration ===")
	logger.Info("Environment: %s", cfg.Environment)
	logger.Info("Port: %s", cfg.Port)
	logger.Info("Store: %s", cfg.Store.Backend)
	switch cfg.Store.Backend {
	case StorePostgres:
		logger.Info("Database URL: %s", redactURL(cfg.Store.DatabaseURL))
	case StoreSQLite:
		logger.Info("SQLite path: %s", cfg.Store.SQLitePath)
	}
	logger.Info("Rate limit: %d per %s", cfg.RateLimit.MaxAttempts, cfg.RateLimit.Window)
	logger.Info("Session max age: %s (sweep %s)", cfg.SessionMaxAge, cfg.SessionSweepSchedule)
	logger.Info("Allowed origins: %v", cfg.AllowedOrigins)
	logger.Info("Trusted proxies: %v", cfg.TrustedProxies)
	logger.Info("ID strategy: %s", cfg.IDStrategy)
	logger.Info("Metrics: %t, tracing: %t", cfg.Observability.Metrics.Enabled, cfg.Observability.Tracing.Enabled)
	logger.Info("===========================")
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable>"
	}
	return u.Redacted()
}
