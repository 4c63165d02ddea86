package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Snapshot persistence: none, file, redis, postgres, sqlite, mongo
	SnapshotBackend string
	SnapshotKey     string
	SnapshotFile    string

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	SQLitePath       string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Mongo
	MongoURI string
	MongoDB  string

	// Kafka
	KafkaBrokers       []string
	KafkaGroupID       string
	DockEventsTopic    string
	DockDocumentsTopic string
	DockDLQTopic       string

	// Import
	HeaderCatalogPath string
	DefaultVariant    string

	// Remote document loading
	RemoteTimeout           time.Duration
	RemoteRetries           int
	RemoteMaxBytes          int64
	RemoteOAuthTokenURL     string
	RemoteOAuthClientID     string
	RemoteOAuthClientSecret string
	RemoteOAuthScopes       []string

	// Export archive
	ArchiveS3Bucket          string
	ArchiveS3Region          string
	ArchiveS3Prefix          string
	ArchiveS3AccessKeyID     string
	ArchiveS3SecretAccessKey string

	// API
	APIJWTSecret   string
	APIJWTIssuer   string
	RateLimitRPS   int
	RateLimitBurst int
}

// Load reads the process environment, overlaid on an optional .env file.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 8*1024*1024)),

		SnapshotBackend: strings.ToLower(getEnv("SNAPSHOT_BACKEND", "file")),
		SnapshotKey:     getEnv("SNAPSHOT_KEY", "dock-planner:snapshot"),
		SnapshotFile:    getEnv("SNAPSHOT_FILE", "dock-planner.json"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "muelles"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "muelles"),
		PostgresDB:       getEnv("POSTGRES_DB", "muelles"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		SQLitePath:       getEnv("SQLITE_PATH", "dock-planner.db"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DB", "muelles"),

		KafkaBrokers:       getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:       getEnv("KAFKA_GROUP_ID", "dock-planner"),
		DockEventsTopic:    getEnv("DOCK_EVENTS_TOPIC", ""),
		DockDocumentsTopic: getEnv("DOCK_DOCUMENTS_TOPIC", ""),
		DockDLQTopic:       getEnv("DOCK_DLQ_TOPIC", ""),

		HeaderCatalogPath: getEnv("HEADER_CATALOG_PATH", ""),
		DefaultVariant:    getEnv("DEFAULT_VARIANT", "3"),

		RemoteTimeout:           getDuration("REMOTE_TIMEOUT", 15*time.Second),
		RemoteRetries:           getIntEnv("REMOTE_RETRIES", 3),
		RemoteMaxBytes:          int64(getIntEnv("REMOTE_MAX_BYTES", 4*1024*1024)),
		RemoteOAuthTokenURL:     getEnv("REMOTE_OAUTH_TOKEN_URL", ""),
		RemoteOAuthClientID:     getEnv("REMOTE_OAUTH_CLIENT_ID", ""),
		RemoteOAuthClientSecret: getEnv("REMOTE_OAUTH_CLIENT_SECRET", ""),
		RemoteOAuthScopes:       getStringSliceEnv("REMOTE_OAUTH_SCOPES", nil),

		ArchiveS3Bucket:          getEnv("ARCHIVE_S3_BUCKET", ""),
		ArchiveS3Region:          getEnv("ARCHIVE_S3_REGION", "eu-west-1"),
		ArchiveS3Prefix:          getEnv("ARCHIVE_S3_PREFIX", "reuniones"),
		ArchiveS3AccessKeyID:     getEnv("ARCHIVE_S3_ACCESS_KEY_ID", ""),
		ArchiveS3SecretAccessKey: getEnv("ARCHIVE_S3_SECRET_ACCESS_KEY", ""),

		APIJWTSecret:   getEnv("API_JWT_SECRET", ""),
		APIJWTIssuer:   getEnv("API_JWT_ISSUER", ""),
		RateLimitRPS:   getIntEnv("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getIntEnv("RATE_LIMIT_BURST", 40),
	}
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

// getStringSliceEnv splits comma separated values, dropping blanks.
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
