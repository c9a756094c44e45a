package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	EventStore   EventStoreConfig
	Scoring      ScoringConfig
	Auth         AuthConfig
	Triage       TriageConfig
	Notification NotificationConfig
	EHR          EHRConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// RedisConfig holds configuration for the roster snapshot cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// EventStoreConfig holds configuration for KurrentDB (EventStoreDB).
type EventStoreConfig struct {
	// Host is the KurrentDB server hostname
	Host string
	// Port is the gRPC port (default 2113)
	Port int
	// Insecure disables TLS (for development)
	Insecure bool
	// Username for authentication (optional)
	Username string
	// Password for authentication (optional)
	Password string
}

// ScoringConfig holds configuration for the external ML scoring service
// that supplies stability index, NEWS2 score, and trend per patient.
type ScoringConfig struct {
	URL     string
	Timeout time.Duration
	Enabled bool
}

type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// TriageConfig holds the triage engine thresholds and cadences.
//
// StabilityThreshold is shared between the severity classifier (major
// boundary) and the sync policy (emergency boundary); the two must never
// diverge, so both read this single value.
type TriageConfig struct {
	// StabilityThreshold separates major-or-worse from minor/stable
	StabilityThreshold int
	// EmergencyInterval is the sync cadence for at-risk patients
	EmergencyInterval time.Duration
	// PowerSaveInterval is the sync cadence for stable patients
	PowerSaveInterval time.Duration
	// RosterPollInterval is the roster monitor refresh cadence
	RosterPollInterval time.Duration
	// ShortageHighCount marks a sector high-severity at this many at-risk patients
	ShortageHighCount int
	// ShortageHighRatio marks a sector high-severity at this at-risk proportion
	ShortageHighRatio float64
	// SnapshotTTL is how long a cached roster snapshot stays valid
	SnapshotTTL time.Duration
}

type NotificationConfig struct {
	Workers       int
	BufferSize    int
	RetryAttempts int
	RetryDelay    time.Duration
}

// EHRConfig holds configuration for the hospital information system adapter.
type EHRConfig struct {
	Enabled      bool
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	SSLMode      string
	Facility     string
	PollInterval time.Duration
}

func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port: getEnvInt("SERVER_PORT", 8080),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "vitalwatch"),
			Password: getEnv("DB_PASSWORD", "vitalwatch"),
			Database: getEnv("DB_NAME", "vitalwatch"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		EventStore: EventStoreConfig{
			Host:     getEnv("EVENTSTORE_HOST", "localhost"),
			Port:     getEnvInt("EVENTSTORE_PORT", 2113),
			Insecure: getEnvBool("EVENTSTORE_INSECURE", true),
			Username: getEnv("EVENTSTORE_USERNAME", ""),
			Password: getEnv("EVENTSTORE_PASSWORD", ""),
		},
		Scoring: ScoringConfig{
			URL:     getEnv("SCORING_SERVICE_URL", "http://localhost:5000"),
			Timeout: getEnvDuration("SCORING_TIMEOUT", 10*time.Second),
			Enabled: getEnvBool("SCORING_ENABLED", true),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-in-prod"),
			Issuer:    getEnv("JWT_ISSUER", "vitalwatch"),
		},
		Triage: TriageConfig{
			StabilityThreshold: getEnvInt("TRIAGE_STABILITY_THRESHOLD", 70),
			EmergencyInterval:  getEnvDuration("TRIAGE_EMERGENCY_INTERVAL", 15*time.Second),
			PowerSaveInterval:  getEnvDuration("TRIAGE_POWER_SAVE_INTERVAL", 5*time.Minute),
			RosterPollInterval: getEnvDuration("TRIAGE_ROSTER_POLL_INTERVAL", 30*time.Second),
			ShortageHighCount:  getEnvInt("TRIAGE_SHORTAGE_HIGH_COUNT", 3),
			ShortageHighRatio:  getEnvFloat("TRIAGE_SHORTAGE_HIGH_RATIO", 0.5),
			SnapshotTTL:        getEnvDuration("TRIAGE_SNAPSHOT_TTL", 30*time.Second),
		},
		Notification: NotificationConfig{
			Workers:       getEnvInt("NOTIFY_WORKERS", 4),
			BufferSize:    getEnvInt("NOTIFY_BUFFER_SIZE", 1000),
			RetryAttempts: getEnvInt("NOTIFY_RETRY_ATTEMPTS", 3),
			RetryDelay:    getEnvDuration("NOTIFY_RETRY_DELAY", 5*time.Second),
		},
		EHR: EHRConfig{
			Enabled:      getEnvBool("EHR_ENABLED", false),
			Host:         getEnv("EHR_DB_HOST", "localhost"),
			Port:         getEnvInt("EHR_DB_PORT", 1433),
			User:         getEnv("EHR_DB_USER", "vitalwatch"),
			Password:     getEnv("EHR_DB_PASSWORD", ""),
			Database:     getEnv("EHR_DB_NAME", "his"),
			SSLMode:      getEnv("EHR_DB_SSLMODE", "disable"),
			Facility:     getEnv("EHR_FACILITY", "General Hospital"),
			PollInterval: getEnvDuration("EHR_POLL_INTERVAL", time.Minute),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
