package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64
	RateLimitRPS   int
	RateLimitBurst int

	// Database
	DatabaseURL      string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost       string
	RedisPort       string
	RedisPassword   string
	RedisDB         int
	LatestVitalsTTL time.Duration

	// Kafka
	KafkaBrokers          []string
	KafkaObservationTopic string
	KafkaDeviceTopic      string

	// Session tokens
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	// Ingestion pipeline policy
	AtomicBulkInsert     bool
	BulkInsertBatchSize  int
	RejectEmptyVitalSync bool
	MetricsListLimit     int
	FieldAliasesPath     string
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 4*1024*1024)),
		RateLimitRPS:   getIntEnv("RATE_LIMIT_RPS", 0),
		RateLimitBurst: getIntEnv("RATE_LIMIT_BURST", 0),

		DatabaseURL:      getEnv("DATABASE_URL", ""),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", ""),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresDB:       getEnv("POSTGRES_DB", "caresync"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:       getEnv("REDIS_HOST", "localhost"),
		RedisPort:       getEnv("REDIS_PORT", "6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getIntEnv("REDIS_DB", 0),
		LatestVitalsTTL: getDuration("LATEST_VITALS_TTL", 0),

		KafkaBrokers:          getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaObservationTopic: getEnv("KAFKA_OBSERVATION_TOPIC", ""),
		KafkaDeviceTopic:      getEnv("KAFKA_DEVICE_TOPIC", ""),

		JWTSecret:   getEnv("JWT_SECRET", ""),
		JWTIssuer:   getEnv("JWT_ISSUER", "caresync"),
		JWTAudience: getEnv("JWT_AUDIENCE", "caresync-api"),

		AtomicBulkInsert:     getBoolEnv("ATOMIC_BULK_INSERT", false),
		BulkInsertBatchSize:  getIntEnv("BULK_INSERT_BATCH_SIZE", 100),
		RejectEmptyVitalSync: getBoolEnv("REJECT_EMPTY_VITAL_SYNC", false),
		MetricsListLimit:     getIntEnv("METRICS_LIST_LIMIT", 200),
		FieldAliasesPath:     getEnv("FIELD_ALIASES_PATH", ""),
	}
}

// Validate rejects configurations that would fall back to built-in secrets.
func (c *Config) Validate() error {
	var problems []error
	if c.JWTSecret == "" {
		problems = append(problems, errors.New("JWT_SECRET is required"))
	} else if len(c.JWTSecret) < 16 {
		problems = append(problems, errors.New("JWT_SECRET must be at least 16 characters"))
	}
	if c.DatabaseURL == "" && (c.PostgresUser == "" || c.PostgresPassword == "") {
		problems = append(problems, errors.New("DATABASE_URL or POSTGRES_USER/POSTGRES_PASSWORD is required"))
	}
	if c.MetricsListLimit <= 0 {
		problems = append(problems, fmt.Errorf("METRICS_LIST_LIMIT must be positive, got %d", c.MetricsListLimit))
	}
	if c.BulkInsertBatchSize <= 0 {
		problems = append(problems, fmt.Errorf("BULK_INSERT_BATCH_SIZE must be positive, got %d", c.BulkInsertBatchSize))
	}
	return errors.Join(problems...)
}

// PostgresDSN prefers DATABASE_URL over the discrete settings.
func (c *Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.PostgresHost,
		c.PostgresUser,
		c.PostgresPassword,
		c.PostgresDB,
		c.PostgresPort,
		c.PostgresSSLMode,
	)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
