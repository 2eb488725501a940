// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, database paths, rate limiting, observability, and the idea
// generation, quota and batch settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tbourn/go-ideas-backend/internal/sysutil"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-ideas-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// GenerationConfig controls calls to the generative text provider.
type GenerationConfig struct {
	Provider        string        // GEN_PROVIDER: openai|mock (default: openai when a key is set)
	APIKey          string        // OPENAI_API_KEY
	BaseURL         string        // OPENAI_BASE_URL (optional)
	PrimaryModel    string        // PRIMARY_MODEL
	SecondaryModel  string        // SECONDARY_MODEL, used from the second attempt on
	MaxRetries      int           // GEN_MAX_RETRIES (retries after the first attempt)
	BackoffBase     time.Duration // GEN_BACKOFF_BASE, multiplied by 2^attempt
	CallTimeout     time.Duration // GEN_CALL_TIMEOUT, per provider call
	Temperature     float64       // GEN_TEMPERATURE in [0,2]
	MaxOutputTokens int           // GEN_MAX_OUTPUT_TOKENS
	RPS             float64       // GEN_RPS, provider calls per second (0 = unlimited)
	Burst           int           // GEN_BURST
}

// QuotaConfig controls the tiered quota policy.
type QuotaConfig struct {
	DailyLimitEnabled bool           // DAILY_LIMIT_ENABLED
	FreeDailyLimit    int            // FREE_DAILY_LIMIT
	PaidHardCap       int            // PAID_HARD_CAP
	TimeZone          string         // QUOTA_TIMEZONE (IANA name)
	Location          *time.Location // resolved from TimeZone
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // batches are slow; e.g. 10m
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	LogRedact      bool   // scrub PII from access logs
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// App
	DBDriver     string        // sqlite|postgres
	DBPath       string        // SQLite path
	DatabaseURL  string        // Postgres DSN, required when DBDriver is postgres
	BatchTimeout time.Duration // whole-batch deadline; defaults to WriteTimeout minus one worst-case slot

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	Generation GenerationConfig
	Quota      QuotaConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 10*time.Minute),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		LogRedact:      getbool("LOG_REDACT", true),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		DBDriver:     strings.ToLower(getenv("DB_DRIVER", "sqlite")),
		DBPath:       getenv("DB_PATH", "ideas.db"),
		DatabaseURL:  getenv("DATABASE_URL", ""),
		BatchTimeout: getdur("BATCH_TIMEOUT", 0),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		Generation: GenerationConfig{
			Provider:        strings.ToLower(getenv("GEN_PROVIDER", "")),
			APIKey:          getenv("OPENAI_API_KEY", ""),
			BaseURL:         getenv("OPENAI_BASE_URL", ""),
			PrimaryModel:    getenv("PRIMARY_MODEL", "gpt-4o"),
			SecondaryModel:  getenv("SECONDARY_MODEL", "gpt-4o-mini"),
			MaxRetries:      getint("GEN_MAX_RETRIES", 2),
			BackoffBase:     getdur("GEN_BACKOFF_BASE", time.Second),
			CallTimeout:     getdur("GEN_CALL_TIMEOUT", 60*time.Second),
			Temperature:     getfloat("GEN_TEMPERATURE", 0.8),
			MaxOutputTokens: getint("GEN_MAX_OUTPUT_TOKENS", 1200),
			RPS:             getfloat("GEN_RPS", 0),
			Burst:           getint("GEN_BURST", 1),
		},

		Quota: QuotaConfig{
			DailyLimitEnabled: getbool("DAILY_LIMIT_ENABLED", true),
			FreeDailyLimit:    getint("FREE_DAILY_LIMIT", 1),
			PaidHardCap:       getint("PAID_HARD_CAP", 100),
			TimeZone:          getenv("QUOTA_TIMEZONE", "UTC"),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-ideas-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.Generation.Provider == "" {
		// Without credentials the service still runs on the deterministic fallback.
		cfg.Generation.Provider = "mock"
		if cfg.Generation.APIKey != "" {
			cfg.Generation.Provider = "openai"
		}
	}
	if cfg.Generation.SecondaryModel == "" {
		cfg.Generation.SecondaryModel = cfg.Generation.PrimaryModel
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DBDriver {
	case "sqlite":
		if strings.TrimSpace(cfg.DBPath) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return cfg, errors.New("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	if cfg.BatchTimeout < 0 {
		return cfg, errors.New("BATCH_TIMEOUT must be >= 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if err := validateGeneration(cfg.Generation); err != nil {
		return cfg, err
	}
	// A slot may start just before the batch deadline and then run its full
	// retry schedule, so the response must still fit in WriteTimeout.
	slot := cfg.Generation.WorstCaseSlot()
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = cfg.WriteTimeout - slot
	}
	if cfg.BatchTimeout <= 0 || cfg.BatchTimeout+slot > cfg.WriteTimeout {
		return cfg, fmt.Errorf("BATCH_TIMEOUT plus one worst-case generation slot (%s) must fit in WRITE_TIMEOUT (%s)", slot, cfg.WriteTimeout)
	}
	loc, err := validateQuota(cfg.Quota)
	if err != nil {
		return cfg, err
	}
	cfg.Quota.Location = loc
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// WorstCaseSlot is the longest one slot can spend in the generation client:
// every attempt hitting CallTimeout plus the backoff sleeps between them.
func (g GenerationConfig) WorstCaseSlot() time.Duration {
	d := g.CallTimeout * time.Duration(g.MaxRetries+1)
	for n := 0; n < g.MaxRetries; n++ {
		d += g.BackoffBase << uint(n)
	}
	return d
}

func validateGeneration(g GenerationConfig) error {
	switch g.Provider {
	case "openai":
		if strings.TrimSpace(g.APIKey) == "" {
			return errors.New("OPENAI_API_KEY is required when GEN_PROVIDER=openai")
		}
	case "mock":
	default:
		return errors.New("GEN_PROVIDER must be one of: openai, mock")
	}
	if strings.TrimSpace(g.PrimaryModel) == "" {
		return errors.New("PRIMARY_MODEL must not be empty")
	}
	if g.MaxRetries < 0 || g.MaxRetries > 10 {
		return errors.New("GEN_MAX_RETRIES must be in [0,10]")
	}
	if g.BackoffBase < 0 {
		return errors.New("GEN_BACKOFF_BASE must be >= 0")
	}
	if g.CallTimeout <= 0 {
		return errors.New("GEN_CALL_TIMEOUT must be > 0")
	}
	if g.Temperature < 0 || g.Temperature > 2 {
		return errors.New("GEN_TEMPERATURE must be in [0,2]")
	}
	if g.MaxOutputTokens <= 0 {
		return errors.New("GEN_MAX_OUTPUT_TOKENS must be > 0")
	}
	if g.RPS < 0 {
		return errors.New("GEN_RPS must be >= 0")
	}
	if g.Burst < 1 {
		return errors.New("GEN_BURST must be >= 1")
	}
	return nil
}

func validateQuota(q QuotaConfig) (*time.Location, error) {
	if q.FreeDailyLimit < 1 {
		return nil, errors.New("FREE_DAILY_LIMIT must be >= 1")
	}
	if q.PaidHardCap < 1 {
		return nil, errors.New("PAID_HARD_CAP must be >= 1")
	}
	loc, err := time.LoadLocation(strings.TrimSpace(q.TimeZone))
	if err != nil {
		return nil, errors.New("QUOTA_TIMEZONE must be a valid IANA time zone")
	}
	return loc, nil
}

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch {
		case sysutil.IsTruthy(v):
			return true
		case sysutil.IsFalsy(v):
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
