// Package config loads runtime configuration from the environment. A .env
// file, when present, is read first; real environment variables win.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the process-wide settings of the identity service.
type Config struct {
	Env          string // APP_ENV (dev, test, prod)
	Port         string // APP_PORT
	LogLevel     string // LOG_LEVEL, "debug" or anything else for info
	DBUser       string
	DBPass       string // may be empty
	DBHost       string
	DBPort       string
	DBName       string
	DBMigrate    bool   // apply schema.sql on boot
	JWTSecret    string // HS256 signing key for access tokens
	AccessTTLMin int    // access token lifetime in minutes
	BcryptCost   int

	SessionPollInterval time.Duration // how often driver clients revalidate
	OTPTTL              time.Duration // one-time code lifetime
	AuditListMax        int           // page cap for the audit log listing
	SMSConsumerEnabled  bool          // run the in-process SMS worker
}

// Load reads the configuration. Required variables are enforced by must()
// and a missing one stops the process.
func Load() Config {
	_ = godotenv.Load()
	return Config{
		Env:          must("APP_ENV"),
		Port:         must("APP_PORT"),
		LogLevel:     envStr("LOG_LEVEL", "info"),
		DBUser:       must("DB_USER"),
		DBPass:       os.Getenv("DB_PASS"),
		DBHost:       must("DB_HOST"),
		DBPort:       must("DB_PORT"),
		DBName:       must("DB_NAME"),
		DBMigrate:    envBool("DB_MIGRATE", true),
		JWTSecret:    must("JWT_SECRET"),
		AccessTTLMin: mustInt("ACCESS_TOKEN_TTL_MIN"),
		BcryptCost:   envInt("BCRYPT_COST", 12),

		SessionPollInterval: envDur("SESSION_POLL_INTERVAL", 30*time.Second),
		OTPTTL:              envDur("OTP_TTL", 5*time.Minute),
		AuditListMax:        envInt("AUDIT_LIST_MAX", 200),
		SMSConsumerEnabled:  envBool("SMS_CONSUMER_ENABLED", true),
	}
}

// must retrieves a required variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is must() followed by an integer conversion.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
