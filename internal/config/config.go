package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL        string
	BaseURL            string // Public base URL used to build short links and QR payloads
	RedisURL           string
	JWTSecret          string        // Secret key for JWT token signing
	JWTTTL             int           // JWT token expiration time in hours
	LookupTimeout      time.Duration // Upper bound on a registry lookup during resolution
	VerifyTimeout      time.Duration // Upper bound on a password verification
	ClickBufferSize    int           // Capacity of the click recorder queue
	RateLimitRPS       float64       // Rate limit for general API endpoints (requests per second)
	RateLimitBurst     int           // Burst size for rate limiting
	RateLimitAuthRPS   float64       // Rate limit for auth endpoints (stricter)
	RateLimitAuthBurst int           // Burst size for auth endpoints
	LogFile            string        // Rotating log file path; empty means stdout only
}

func Load() *Config {
	// Try to load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or defaults")
	}

	return &Config{
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		BaseURL:            getEnv("BASE_URL", "http://localhost:8080"),
		RedisURL:           getEnv("REDIS_URL", ""),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		JWTTTL:             getEnvInt("JWT_TTL_HOURS", 24),
		LookupTimeout:      getEnvDuration("LOOKUP_TIMEOUT", 3*time.Second),
		VerifyTimeout:      getEnvDuration("VERIFY_TIMEOUT", 5*time.Second),
		ClickBufferSize:    getEnvInt("CLICK_BUFFER_SIZE", 1024),
		RateLimitRPS:       getEnvFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 20),
		RateLimitAuthRPS:   getEnvFloat("RATE_LIMIT_AUTH_RPS", 5),
		RateLimitAuthBurst: getEnvInt("RATE_LIMIT_AUTH_BURST", 10),
		LogFile:            getEnv("LOG_FILE", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
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
