package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
)

// Config holds all runtime configuration values. Each field
// corresponds to an environment variable. Strings for identifiers,
// secrets and URLs; ints for limits and durations in their natural
// unit.
type Config struct {
	Env                 string // application environment (e.g. "dev", "prod")
	Port                string // HTTP port to listen on
	DBUser              string // database username
	DBPass              string // database password (optional)
	DBHost              string // database host address
	DBPort              string // database port number
	DBName              string // database name
	DBMaxConns          int    // connection pool size
	JWTSecret           string // secret used to verify admin JWTs
	BaseURL             string // public base URL, used to build the payment return URL
	GatewayBaseURL      string // payment provider API base URL
	GatewayCommerceCode string // commerce code header for the provider
	GatewayAPIKey       string // API key header for the provider
	DailyLimit          int    // max active reservations per user per date
	PendingTTLMin       int    // minutes before an unpaid reservation may be expired
}

// Load reads configuration values from environment variables and
// returns a Config. Required variables are enforced by must();
// missing values cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:                 must("APP_ENV"),
		Port:                must("APP_PORT"),
		DBUser:              must("DB_USER"),
		DBPass:              os.Getenv("DB_PASS"), // empty allowed
		DBHost:              must("DB_HOST"),
		DBPort:              must("DB_PORT"),
		DBName:              must("DB_NAME"),
		DBMaxConns:          intOr("DB_MAX_CONNS", 25),
		JWTSecret:           must("JWT_SECRET"),
		BaseURL:             must("BASE_URL"),
		GatewayBaseURL:      must("WEBPAY_BASE_URL"),
		GatewayCommerceCode: must("WEBPAY_COMMERCE_CODE"),
		GatewayAPIKey:       must("WEBPAY_API_KEY"),
		DailyLimit:          intOr("RESERVATION_DAILY_LIMIT", 5),
		PendingTTLMin:       intOr("PENDING_PAYMENT_TTL_MIN", 30),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// intOr converts an optional environment variable to an integer,
// falling back to the default when unset. An unparsable value is a
// fatal configuration error.
func intOr(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
