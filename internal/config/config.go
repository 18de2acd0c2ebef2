// Package config provides application configuration resolved from a
// prioritized list of sources with defaults and validation. It centralizes
// settings such as server timeouts, logging, the prediction service, the
// history store, authentication, rate limiting and observability.
//
// The Config value is built once at startup and passed explicitly to the
// components that need it; nothing in this package is process-global.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tbourn/go-premium-backend/internal/sysutil"
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
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "premium-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// PredictorConfig points the gateway at the external ML service.
type PredictorConfig struct {
	URL     string        // PREDICTOR_URL (alias ML_SERVICE_URL)
	Timeout time.Duration // PREDICTOR_TIMEOUT, the HTTP client's default timeout
}

// StoreConfig selects the history store backend.
type StoreConfig struct {
	Driver string // sqlite|postgres
	Path   string // SQLite path
	DSN    string // Postgres DSN
	Tenant string // APP_ID (alias FIRESTORE_APP_ID)
}

// AuthConfig configures bearer-token verification.
type AuthConfig struct {
	Issuer         string // AUTH_ISSUER, e.g. https://securetoken.google.com/<project>
	Audience       string // AUTH_AUDIENCE, e.g. <project>
	HMACSecret     string // AUTH_HMAC_SECRET (HS256)
	PublicKeyFile  string // AUTH_PUBLIC_KEY_FILE (RS256: PEM bundle or kid→certificate JSON)
	AllowAnonymous bool   // AUTH_ALLOW_ANONYMOUS
}

// KafkaConfig configures the estimate event publisher. Empty Brokers
// disables publishing.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// App
	Predictor PredictorConfig
	Store     StoreConfig
	Auth      AuthConfig
	Kafka     KafkaConfig

	// Rate limiting
	RateRPS      float64 // tokens per second (>= 0)
	RateBurst    int     // bucket size (>= 1)
	RateRedisURL string  // when set, limits are shared through Redis

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// Source resolves a configuration key to a raw value. An empty result means
// the source has no opinion and the next source is consulted.
type Source func(key string) string

// EnvSource reads keys from the process environment.
func EnvSource() Source { return os.Getenv }

// MapSource serves keys from an in-memory map (injected configuration).
func MapSource(m map[string]string) Source {
	return func(k string) string { return m[k] }
}

// FileSource loads a flat YAML document of KEY: value pairs. Keys match the
// environment variable names.
func FileSource(path string) (Source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	m := make(map[string]string, len(doc))
	for k, v := range doc {
		switch t := v.(type) {
		case nil:
		case []any:
			parts := make([]string, 0, len(t))
			for _, p := range t {
				parts = append(parts, strings.TrimSpace(toString(p)))
			}
			m[k] = strings.Join(parts, ",")
		default:
			m[k] = toString(t)
		}
	}
	return MapSource(m), nil
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load resolves configuration from CONFIG_FILE (when set) followed by the
// process environment. The first non-empty source wins for every key.
func Load() (Config, error) {
	sources := []Source{}
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		fs, err := FileSource(path)
		if err != nil {
			return Config{}, errors.New("CONFIG_FILE: " + err.Error())
		}
		sources = append(sources, fs)
	}
	sources = append(sources, EnvSource())
	return LoadFrom(sources...)
}

// LoadFrom reads configuration from the given sources in priority order,
// applies defaults, normalizes values, and validates the result.
func LoadFrom(sources ...Source) (Config, error) {
	r := resolver(sources)

	cfg := Config{
		// Server
		Port:              r.str("PORT", "8000"),
		ReadTimeout:       r.dur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: r.dur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      r.dur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       r.dur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    r.int("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(r.str("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(r.str("LOG_LEVEL", "info")),
		LogPretty:      r.bool("LOG_PRETTY", false),
		SwaggerEnabled: r.bool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(r.str("API_BASE_PATH", "/api")),

		// App
		Predictor: PredictorConfig{
			URL:     r.str("PREDICTOR_URL", "", "ML_SERVICE_URL"),
			Timeout: r.dur("PREDICTOR_TIMEOUT", 10*time.Second),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(r.str("DB_DRIVER", "sqlite")),
			Path:   r.str("DB_PATH", "app.db"),
			DSN:    r.str("DB_DSN", "", "DATABASE_URL"),
			Tenant: r.str("APP_ID", "insuransure-fallback", "FIRESTORE_APP_ID"),
		},
		Auth: AuthConfig{
			Issuer:         r.str("AUTH_ISSUER", ""),
			Audience:       r.str("AUTH_AUDIENCE", ""),
			HMACSecret:     r.str("AUTH_HMAC_SECRET", ""),
			PublicKeyFile:  r.str("AUTH_PUBLIC_KEY_FILE", ""),
			AllowAnonymous: r.bool("AUTH_ALLOW_ANONYMOUS", false),
		},
		Kafka: KafkaConfig{
			Brokers: splitCSV(r.str("KAFKA_BROKERS", "")),
			Topic:   r.str("KAFKA_TOPIC", "premium.estimates"),
		},

		// Rate limiting
		RateRPS:      r.float("RATE_RPS", 5.0),
		RateBurst:    r.int("RATE_BURST", 10),
		RateRedisURL: r.str("RATE_REDIS_URL", ""),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(r.str("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: r.bool("ENABLE_HSTS", false),
			HSTSMaxAge: r.dur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: r.dur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     r.bool("OTEL_ENABLED", false),
			Endpoint:    r.str("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    r.bool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: r.str("OTEL_SERVICE_NAME", "premium-backend"),
			SampleRatio: r.float("OTEL_TRACES_SAMPLER_ARG", 1.0),
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
	if cfg.Store.Driver == "postgresql" {
		cfg.Store.Driver = "postgres"
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
	if strings.TrimSpace(cfg.Predictor.URL) == "" {
		return cfg, errors.New("PREDICTOR_URL must not be empty")
	}
	if !strings.HasPrefix(cfg.Predictor.URL, "http://") && !strings.HasPrefix(cfg.Predictor.URL, "https://") {
		return cfg, errors.New("PREDICTOR_URL must be an http(s) URL")
	}
	if cfg.Predictor.Timeout <= 0 {
		return cfg, errors.New("PREDICTOR_TIMEOUT must be > 0")
	}
	switch cfg.Store.Driver {
	case "sqlite":
		if strings.TrimSpace(cfg.Store.Path) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.Store.DSN) == "" {
			return cfg, errors.New("DB_DSN must be set when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	if strings.TrimSpace(cfg.Store.Tenant) == "" {
		return cfg, errors.New("APP_ID must not be empty")
	}
	if cfg.Auth.HMACSecret == "" && cfg.Auth.PublicKeyFile == "" {
		return cfg, errors.New("one of AUTH_HMAC_SECRET or AUTH_PUBLIC_KEY_FILE must be set")
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
	if len(cfg.Kafka.Brokers) > 0 && strings.TrimSpace(cfg.Kafka.Topic) == "" {
		return cfg, errors.New("KAFKA_TOPIC must not be empty when KAFKA_BROKERS is set")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- resolution helpers ----

// resolver walks sources in priority order. Aliases are consulted after the
// primary key has been tried against every source.
type resolver []Source

func (r resolver) lookup(k string, aliases ...string) string {
	vals := make([]string, 0, len(r)*(1+len(aliases)))
	for _, key := range append([]string{k}, aliases...) {
		for _, src := range r {
			vals = append(vals, strings.TrimSpace(src(key)))
		}
	}
	return sysutil.FirstNonEmpty(vals...)
}

func (r resolver) str(k, def string, aliases ...string) string {
	if v := r.lookup(k, aliases...); v != "" {
		return v
	}
	return def
}

func (r resolver) float(k string, def float64) float64 {
	if v := r.lookup(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func (r resolver) int(k string, def int) int {
	if v := r.lookup(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func (r resolver) bool(k string, def bool) bool {
	if v := r.lookup(k); v != "" {
		if sysutil.IsTruthy(v) {
			return true
		}
		if sysutil.IsFalsy(v) {
			return false
		}
	}
	return def
}

func (r resolver) dur(k string, def time.Duration) time.Duration {
	if v := r.lookup(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, _ := yaml.Marshal(t)
		return strings.TrimSpace(string(b))
	}
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
