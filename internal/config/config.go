package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Valkey      ValkeyConfig
	S3          S3Config
	Bedrock     BedrockConfig
	Broadcast   BroadcastConfig
	Regulations RegulationsConfig
	Retention   RetentionConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type ValkeyConfig struct {
	Addr     string
	Password string
	DB       int
}

type S3Config struct {
	Region   string // S3_REGION
	Bucket   string // S3_BUCKET
	Endpoint string // S3_ENDPOINT (for MinIO/LocalStack compatibility)
}

type BedrockConfig struct {
	Region  string
	ModelID string
}

// BroadcastConfig points at the connection-management endpoint that live
// subscribers are reachable through. The push transport behind it is an
// external collaborator.
type BroadcastConfig struct {
	Endpoint    string
	PushTimeout time.Duration
}

type RegulationsConfig struct {
	BaseURL  string
	APIKey   string
	PageSize int
	MaxPages int
}

// RetentionConfig carries the durable-state expiry windows.
type RetentionConfig struct {
	StateTTL      time.Duration
	SubscriberTTL time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:  time.Duration(getEnvInt("SERVER_READ_TIMEOUT_SECS", 30)) * time.Second,
			WriteTimeout: time.Duration(getEnvInt("SERVER_WRITE_TIMEOUT_SECS", 60)) * time.Second,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "docketpulse"),
			Password: getEnv("DB_PASSWORD", "docketpulse"),
			Name:     getEnv("DB_NAME", "docketpulse"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 25)),
			MinConns: int32(getEnvInt("DB_MIN_CONNS", 5)),
		},
		Valkey: ValkeyConfig{
			Addr:     getEnv("VALKEY_ADDR", "localhost:6379"),
			Password: getEnv("VALKEY_PASSWORD", ""),
			DB:       getEnvInt("VALKEY_DB", 0),
		},
		S3: S3Config{
			Region:   getEnv("S3_REGION", "us-east-1"),
			Bucket:   getEnv("S3_BUCKET", ""),
			Endpoint: getEnv("S3_ENDPOINT", ""),
		},
		Bedrock: BedrockConfig{
			Region:  getEnv("BEDROCK_REGION", "us-west-2"),
			ModelID: getEnv("BEDROCK_MODEL_ID", "anthropic.claude-3-5-sonnet-20241022-v2:0"),
		},
		Broadcast: BroadcastConfig{
			Endpoint:    getEnv("BROADCAST_ENDPOINT", ""),
			PushTimeout: time.Duration(getEnvInt("BROADCAST_PUSH_TIMEOUT_SECS", 5)) * time.Second,
		},
		Regulations: RegulationsConfig{
			BaseURL:  getEnv("REGULATIONS_BASE_URL", "https://api.regulations.gov/v4"),
			APIKey:   getEnv("REGULATIONS_API_KEY", ""),
			PageSize: getEnvInt("REGULATIONS_PAGE_SIZE", 250),
			MaxPages: getEnvInt("REGULATIONS_MAX_PAGES", 20),
		},
		Retention: RetentionConfig{
			StateTTL:      time.Duration(getEnvInt("STATE_TTL_HOURS", 7*24)) * time.Hour,
			SubscriberTTL: time.Duration(getEnvInt("SUBSCRIBER_TTL_HOURS", 2)) * time.Hour,
		},
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
