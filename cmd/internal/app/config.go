package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBSchema    string
	DBMaxConns  int32
	DBMinConns  int32

	// If true:
	// - /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	// Security policy:
	// If true, ROSTER_TOKEN_HMAC_KEY MUST be set (>= 32 bytes) and
	// refresh-token hashing must be HMAC-based.
	RequireTokenHMAC bool
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("ROSTER_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("ROSTER_LOG_LEVEL", "info"),
		LogFormat: EnvString("ROSTER_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("ROSTER_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("ROSTER_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("ROSTER_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("ROSTER_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("ROSTER_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("ROSTER_DATABASE_URL", ""),
		DBSchema:    EnvString("ROSTER_DB_SCHEMA", "roster"),
		DBMaxConns:  EnvInt32("ROSTER_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("ROSTER_DB_MIN_CONNS", 0),

		ReadinessRequireDB: EnvBool("ROSTER_READINESS_REQUIRE_DB", false),

		RequireTokenHMAC: EnvBool("ROSTER_REQUIRE_TOKEN_HMAC", false),
	}
}
