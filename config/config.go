package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort       string
	AppMode       string
	DBHost        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBPort        string
	JWTSecret     string
	RedisHost     string
	RedisPort     string
	RedisPassword string

	// CollaboratorBaseURL points at the marketplace backend that owns
	// profiles and negotiation links.
	CollaboratorBaseURL string
	CollaboratorToken   string

	// PresenceTTL is how long a typing entry survives without a heartbeat.
	PresenceTTL time.Duration
	// MaxMessageLength bounds message content after trimming.
	MaxMessageLength int
	// MaxRoomNameLength bounds group room display names.
	MaxRoomNameLength int
	// MessageRateLimit is the per-user sends allowed per minute.
	MessageRateLimit int
	// AtomicRoomCreation selects the transactional get-or-create path.
	// When false the provisioning service falls back to optimistic inserts.
	AtomicRoomCreation bool
}

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		AppPort:             getEnv("APP_PORT", "8080"),
		AppMode:             getEnv("APP_MODE", "debug"),
		DBHost:              getEnv("DB_HOST", "localhost"),
		DBUser:              getEnv("DB_USER", "postgres"),
		DBPassword:          getEnv("DB_PASSWORD", "postgres"),
		DBName:              getEnv("DB_NAME", "ambassador_chat"),
		DBPort:              getEnv("DB_PORT", "5432"),
		JWTSecret:           getEnv("JWT_SECRET", "change-me"),
		RedisHost:           getEnv("REDIS_HOST", "localhost"),
		RedisPort:           getEnv("REDIS_PORT", "6379"),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		CollaboratorBaseURL: getEnv("COLLABORATOR_BASE_URL", "http://localhost:9090"),
		CollaboratorToken:   getEnv("COLLABORATOR_TOKEN", ""),
		PresenceTTL:         time.Duration(getEnvAsInt("PRESENCE_TTL_MS", 3000)) * time.Millisecond,
		MaxMessageLength:    getEnvAsInt("MAX_MESSAGE_LENGTH", 4000),
		MaxRoomNameLength:   getEnvAsInt("MAX_ROOM_NAME_LENGTH", 120),
		MessageRateLimit:    getEnvAsInt("MESSAGE_RATE_LIMIT", 60),
		AtomicRoomCreation:  getEnvAsBool("ATOMIC_ROOM_CREATION", true),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}
