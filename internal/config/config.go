// Package config loads application configuration from environment
// variables.  A .env file, when present, is applied first by LoadEnvFile.
package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env      string         // APP_ENV: dev, test, prod
	Port     string         // APP_PORT: HTTP port to listen on
	Timezone string         // APP_TIMEZONE: IANA zone reservations are evaluated in
	Location *time.Location // parsed Timezone

	DBDriver   string // DB_DRIVER: mysql or sqlite
	DBUser     string // DB_USER
	DBPass     string // DB_PASS (empty allowed)
	DBHost     string // DB_HOST
	DBPort     string // DB_PORT
	DBName     string // DB_NAME
	SQLitePath string // SQLITE_PATH: database file when DB_DRIVER=sqlite

	JWTSecret      string // JWT_SECRET
	AccessTTLMin   int    // ACCESS_TOKEN_TTL_MIN
	RefreshTTLDays int    // REFRESH_TOKEN_TTL_DAYS
	BcryptCost     int    // BCRYPT_COST

	QuotaCountCancelled bool // QUOTA_COUNT_CANCELLED: cancelled reservations consume quota
	CancelRequireActive bool // CANCEL_REQUIRE_ACTIVE: only pending/confirmed may be cancelled

	LogLevel  string // LOG_LEVEL
	LogFormat string // LOG_FORMAT: json or text
}

// LoadEnvFile applies the variables of a .env file to the process
// environment without overriding variables that are already set.  A
// missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  MySQL connection
// settings are only required when DB_DRIVER is mysql.
func Load() Config {
	cfg := Config{
		Env:                 envStr("APP_ENV", "dev"),
		Port:                must("APP_PORT"),
		Timezone:            envStr("APP_TIMEZONE", "UTC"),
		DBDriver:            strings.ToLower(envStr("DB_DRIVER", "mysql")),
		DBPass:              os.Getenv("DB_PASS"),
		SQLitePath:          envStr("SQLITE_PATH", "data/reservations.db"),
		JWTSecret:           must("JWT_SECRET"),
		AccessTTLMin:        mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays:      mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:          envInt("BCRYPT_COST", 10),
		QuotaCountCancelled: envBool("QUOTA_COUNT_CANCELLED", true),
		CancelRequireActive: envBool("CANCEL_REQUIRE_ACTIVE", false),
		LogLevel:            envStr("LOG_LEVEL", "info"),
		LogFormat:           envStr("LOG_FORMAT", "json"),
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("invalid APP_TIMEZONE %q: %v", cfg.Timezone, err)
	}
	cfg.Location = loc

	switch cfg.DBDriver {
	case "mysql":
		cfg.DBUser = must("DB_USER")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	case "sqlite":
	default:
		log.Fatalf("unsupported DB_DRIVER %q (want mysql or sqlite)", cfg.DBDriver)
	}
	return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch strings.ToLower(os.Getenv(k)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
