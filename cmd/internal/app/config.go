package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string
	LogColor  bool

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// If true:
	// - /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	// Security policy:
	// If true, session cookies MUST carry the Secure flag. Startup fails otherwise.
	RequireSecureCookies bool

	// Demo account created at startup so the login page works out of the box.
	SeedUsername    string
	SeedPassword    string
	SeedDisplayName string
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("GATEHOUSE_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("GATEHOUSE_LOG_LEVEL", "info"),
		LogFormat: EnvString("GATEHOUSE_LOG_FORMAT", "json"),
		LogColor:  EnvBool("GATEHOUSE_LOG_COLOR", false),

		ReadHeaderTimeout: EnvDuration("GATEHOUSE_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("GATEHOUSE_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("GATEHOUSE_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("GATEHOUSE_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("GATEHOUSE_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("GATEHOUSE_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("GATEHOUSE_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("GATEHOUSE_DB_MIN_CONNS", 0),

		ReadinessRequireDB: EnvBool("GATEHOUSE_READINESS_REQUIRE_DB", false),

		RequireSecureCookies: EnvBool("GATEHOUSE_REQUIRE_SECURE_COOKIES", false),

		SeedUsername:    EnvString("GATEHOUSE_SEED_USERNAME", "admin"),
		SeedPassword:    EnvString("GATEHOUSE_SEED_PASSWORD", "safe_pass"),
		SeedDisplayName: EnvString("GATEHOUSE_SEED_DISPLAY_NAME", "System Administrator"),
	}
}
