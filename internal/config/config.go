package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"docarchive/internal/archive"
	"docarchive/internal/store"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

type Config struct {
	ServerPort              string
	ServerReadHeaderTimeout time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	RequestTimeout          time.Duration
	LogLevel                string

	StoreBackend string
	DatabaseURL  string
	DBMaxConns   int32
	DBMinConns   int32
	SQLitePath   string

	JWTSecret         string
	JWTAccessTTL      time.Duration
	CORSOrigins       []string
	RateLimitRPM      int
	WriteRateLimitRPM int
	EventsMaxDuration time.Duration

	ArchiveName              string
	ArchiveInterceptDelete   bool
	ArchiveExclude           []string
	ArchiveRestoreOriginalID bool
	ArchiveConfigFile        string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:              getEnv("SERVER_PORT", "8080"),
		ServerReadHeaderTimeout: getDuration("SERVER_READ_HEADER_TIMEOUT", 10*time.Second),
		ServerWriteTimeout:      getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		ServerIdleTimeout:       getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:          getDuration("REQUEST_TIMEOUT", 30*time.Second),
		LogLevel:                getEnv("LOG_LEVEL", "info"),

		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", BackendMemory)),
		DatabaseURL:  strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:   int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:   int32(getInt("DB_MIN_CONNS", 2)),
		SQLitePath:   getEnv("SQLITE_PATH", "./data/documents.db"),

		JWTSecret:    strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTAccessTTL: getDuration("JWT_ACCESS_TTL", 15*time.Minute),
		CORSOrigins:  splitCSV(getEnv("CORS_ORIGINS", "*")),
		RateLimitRPM: getInt("RATE_LIMIT_RPM", 100),

		WriteRateLimitRPM: getInt("WRITE_RATE_LIMIT_RPM", 60),
		EventsMaxDuration: getDuration("EVENTS_MAX_DURATION", time.Hour),

		ArchiveName:              getEnv("ARCHIVE_COLLECTION", archive.DefaultName),
		ArchiveInterceptDelete:   getBool("ARCHIVE_INTERCEPT_DELETE", true),
		ArchiveExclude:           getList("ARCHIVE_EXCLUDE", archive.DefaultExclude),
		ArchiveRestoreOriginalID: getBool("ARCHIVE_RESTORE_ORIGINAL_ID", true),
		ArchiveConfigFile:        strings.TrimSpace(os.Getenv("ARCHIVE_CONFIG_FILE")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	switch c.StoreBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres")
		}
		if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("DB_MIN_CONNS and DB_MAX_CONNS must satisfy 0 <= min <= max, max > 0")
		}
	case BackendSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("SQLITE_PATH cannot be empty")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be one of memory, postgres, sqlite; got %q", c.StoreBackend)
	}

	if err := store.ValidateCollectionName(c.ArchiveName); err != nil {
		return fmt.Errorf("ARCHIVE_COLLECTION: %w", err)
	}

	if c.JWTSecret != "" && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}

	return nil
}

// AuthEnabled reports whether write endpoints require a bearer token.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

// Archive returns the archive settings described by the environment.
func (c *Config) Archive() archive.Config {
	return archive.Config{
		Name:              c.ArchiveName,
		InterceptDelete:   c.ArchiveInterceptDelete,
		Exclude:           append([]string{}, c.ArchiveExclude...),
		RestoreOriginalID: c.ArchiveRestoreOriginalID,
	}
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

// getList reads a comma-separated list. Unlike getEnv, a variable that is set
// but empty yields an empty list rather than the fallback.
func getList(key string, fallback []string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return append([]string{}, fallback...)
	}

	list := splitCSV(raw)
	if list == nil {
		return []string{}
	}
	return list
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
