// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, the SQLite path, booking rules, email
// delivery, rate limiting, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/liftpisa/go-booking-backend/internal/sysutil"
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
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-booking-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// SMTPConfig defines the email relay used for temporary-code delivery.
// An empty Host switches the service to the log-only mailer.
type SMTPConfig struct {
	Host     string        // SMTP_HOST
	Port     int           // SMTP_PORT
	Username string        // SMTP_USERNAME
	Password string        // SMTP_PASSWORD
	From     string        // SMTP_FROM
	FromName string        // SMTP_FROM_NAME
	Timeout  time.Duration // SMTP_TIMEOUT
	Attempts int           // SMTP_ATTEMPTS
}

// UpdateConfig carries the app-update banner the mobile client polls for.
// The predecessor kept these in a hand-edited sheet; env vars are the
// equivalent operator knob here.
type UpdateConfig struct {
	LatestVersion string // LATEST_VERSION, e.g. "1.0.3"
	ExpoLink      string // EXPO_LINK
	Mandatory     bool   // UPDATE_MANDATORY
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

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// App
	DBPath     string // SQLite path
	Timezone   string // IANA name the gym's calendar lives in
	AdminEmail string // surfaced in operator-facing error messages

	// Booking rules
	SlotCapacity   int           // max bookings per slot occurrence
	CancelCutoff   time.Duration // minimum lead time to cancel
	PurgeKeepWeeks int           // trailing weeks of past bookings to retain

	// Temporary codes
	TempCodeTTL       time.Duration // validity of an emailed code
	CodeRequestLimit  int           // max code requests per window per email
	CodeRequestWindow time.Duration // sliding window for the limit above

	// Caching
	SlotCacheTTL time.Duration // slot-table read cache; <=0 disables

	// Rate limiting (HTTP edge)
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Email
	SMTP SMTPConfig

	// App update banner
	Update UpdateConfig

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
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		// App
		DBPath:     getenv("DB_PATH", "bookings.db"),
		Timezone:   sysutil.FirstNonEmpty(os.Getenv("TIMEZONE"), os.Getenv("TZ"), "Europe/Rome"),
		AdminEmail: getenv("ADMIN_EMAIL", "pisalift@gmail.com"),

		// Booking rules
		SlotCapacity:   getint("SLOT_CAPACITY", 8),
		CancelCutoff:   getdur("CANCEL_CUTOFF", 5*time.Hour),
		PurgeKeepWeeks: getint("PURGE_KEEP_WEEKS", 2),

		// Temporary codes
		TempCodeTTL:       getdur("TEMP_CODE_TTL", 24*time.Hour),
		CodeRequestLimit:  getint("CODE_REQUEST_LIMIT", 30),
		CodeRequestWindow: getdur("CODE_REQUEST_WINDOW", time.Hour),

		// Caching
		SlotCacheTTL: getdur("SLOT_CACHE_TTL", 5*time.Second),

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

		// Email
		SMTP: SMTPConfig{
			Host:     getenv("SMTP_HOST", ""),
			Port:     getint("SMTP_PORT", 587),
			Username: getenv("SMTP_USERNAME", ""),
			Password: getenv("SMTP_PASSWORD", ""),
			From:     getenv("SMTP_FROM", "noreply@liftpisa.it"),
			FromName: getenv("SMTP_FROM_NAME", "LIFT Pisa"),
			Timeout:  getdur("SMTP_TIMEOUT", 10*time.Second),
			Attempts: getint("SMTP_ATTEMPTS", 3),
		},

		// App update banner
		Update: UpdateConfig{
			LatestVersion: getenv("LATEST_VERSION", ""),
			ExpoLink:      getenv("EXPO_LINK", ""),
			Mandatory:     getbool("UPDATE_MANDATORY", false),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-booking-backend"),
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
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if strings.TrimSpace(cfg.Timezone) == "" {
		return cfg, errors.New("TIMEZONE must not be empty")
	}
	if cfg.SlotCapacity < 1 {
		return cfg, errors.New("SLOT_CAPACITY must be >= 1")
	}
	if cfg.CancelCutoff < 0 {
		return cfg, errors.New("CANCEL_CUTOFF must be >= 0")
	}
	if cfg.PurgeKeepWeeks < 0 {
		return cfg, errors.New("PURGE_KEEP_WEEKS must be >= 0")
	}
	if cfg.TempCodeTTL <= 0 {
		return cfg, errors.New("TEMP_CODE_TTL must be > 0")
	}
	if cfg.CodeRequestLimit < 1 {
		return cfg, errors.New("CODE_REQUEST_LIMIT must be >= 1")
	}
	if cfg.CodeRequestWindow <= 0 {
		return cfg, errors.New("CODE_REQUEST_WINDOW must be > 0")
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
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

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
		if sysutil.IsTruthy(v) {
			return true
		}
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "0", "false", "no", "n", "off":
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
