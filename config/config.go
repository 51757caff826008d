package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string

	DBDriver          string
	DBDSN             string
	DBConnectAttempts int
	DBConnectDelay    time.Duration

	JWTSecret string
	JWTTTL    time.Duration

	LocationTimeout   time.Duration
	LocationMaxAge    time.Duration
	ZoneLookupTimeout time.Duration
	RecordTimeout     time.Duration

	LogLevel string
	LogJSON  bool

	SMTPHost        string
	SMTPPort        int
	SMTPUser        string
	SMTPPassword    string
	MailFrom        string
	ComplianceEmail string
}

// Load reads .env when present and builds the config from the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppPort: GetEnv("APP_PORT", "3000"),

		DBDriver:          GetEnv("DB_DRIVER", "mysql"),
		DBDSN:             GetEnv("DB_DSN", "root:@tcp(127.0.0.1:3306)/geo_attendance?charset=utf8mb4&parseTime=True&loc=Local"),
		DBConnectAttempts: GetEnvAsInt("DB_CONNECT_ATTEMPTS", 5),
		DBConnectDelay:    GetEnvAsDuration("DB_CONNECT_DELAY", 2*time.Second),

		JWTSecret: GetEnv("JWT_SECRET", ""),
		JWTTTL:    GetEnvAsDuration("JWT_TTL", 24*time.Hour),

		LocationTimeout:   GetEnvAsDuration("LOCATION_TIMEOUT", 10*time.Second),
		LocationMaxAge:    GetEnvAsDuration("LOCATION_MAX_AGE", 30*time.Second),
		ZoneLookupTimeout: GetEnvAsDuration("ZONE_LOOKUP_TIMEOUT", 5*time.Second),
		RecordTimeout:     GetEnvAsDuration("RECORD_TIMEOUT", 5*time.Second),

		LogLevel: GetEnv("LOG_LEVEL", "info"),
		LogJSON:  GetEnvAsBool("LOG_JSON", false),

		SMTPHost:        GetEnv("SMTP_HOST", ""),
		SMTPPort:        GetEnvAsInt("SMTP_PORT", 587),
		SMTPUser:        GetEnv("SMTP_USER", ""),
		SMTPPassword:    GetEnv("SMTP_PASSWORD", ""),
		MailFrom:        GetEnv("MAIL_FROM", "noreply@localhost"),
		ComplianceEmail: GetEnv("COMPLIANCE_EMAIL", ""),
	}

	if cfg.JWTSecret == "" {
		return cfg, fmt.Errorf("JWT_SECRET is required")
	}
	switch cfg.DBDriver {
	case "mysql", "postgres", "sqlite":
	default:
		return cfg, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	return cfg, nil
}

// MailEnabled reports whether violation notices can be sent.
func (c Config) MailEnabled() bool {
	return c.SMTPHost != "" && c.ComplianceEmail != ""
}

// Helper function to get environment variable with fallback default value
func GetEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// Helper function to get environment variable as integer with fallback
func GetEnvAsInt(key string, fallback int) int {
	valueStr := GetEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func GetEnvAsBool(key string, fallback bool) bool {
	valueStr := GetEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}

// GetEnvAsDuration accepts Go durations ("1500ms", "10s").
func GetEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := GetEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return fallback
}
