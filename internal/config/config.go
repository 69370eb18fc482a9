package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Quotes    QuotesConfig
	Scheduler SchedulerConfig
	LogLevel  string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string
}

// RedisConfig holds Redis configuration for the quote cache
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Brokers     []string
	TicksTopic  string
	OrdersTopic string
	GroupID     string
}

// QuotesConfig holds market data provider configuration
type QuotesConfig struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	MaxAttempts int
	CacheTTL    time.Duration
}

// SchedulerConfig holds auto-close sweep configuration
type SchedulerConfig struct {
	Interval time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			DBName:         getEnv("DB_NAME", "papertrade"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MigrationsPath: getEnv("DB_MIGRATIONS_PATH", "db/migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:     []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			TicksTopic:  getEnv("KAFKA_TICKS_TOPIC", "price-ticks"),
			OrdersTopic: getEnv("KAFKA_ORDERS_TOPIC", "order-events"),
			GroupID:     getEnv("KAFKA_GROUP_ID", "papertrade"),
		},
		Quotes: QuotesConfig{
			BaseURL:     getEnv("QUOTES_BASE_URL", "https://financialmodelingprep.com/api/v3"),
			APIKey:      getEnv("QUOTES_API_KEY", ""),
			Timeout:     getEnvDuration("QUOTES_TIMEOUT", 5*time.Second),
			MaxAttempts: getEnvInt("QUOTES_MAX_ATTEMPTS", 3),
			CacheTTL:    getEnvDuration("QUOTES_CACHE_TTL", 10*time.Minute),
		},
		Scheduler: SchedulerConfig{
			Interval: getEnvDuration("SCHEDULER_INTERVAL", time.Minute),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
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
