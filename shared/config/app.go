package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// AppConfig holds the settings shared by every service
type AppConfig struct {
	JWTSecret       string
	TokenTTL        time.Duration
	ConfirmationTTL time.Duration
	SignInURL       string
	LandingURL      string

	ArtifactBackend string
	ArtifactBucket  string
	AWSRegion       string

	KafkaBroker string
	KafkaTopic  string
}

// GetAppConfig returns application configuration from environment variables
func GetAppConfig() *AppConfig {
	return &AppConfig{
		JWTSecret:       getEnv("JWT_SECRET", ""),
		TokenTTL:        getEnvDuration("TOKEN_TTL", 12*time.Hour),
		ConfirmationTTL: getEnvDuration("CONFIRMATION_TTL", 72*time.Hour),
		SignInURL:       getEnv("SIGN_IN_URL", "/users/sign_in"),
		LandingURL:      getEnv("LANDING_URL", "/vendors"),
		ArtifactBackend: getEnv("ARTIFACT_BACKEND", "redis"),
		ArtifactBucket:  getEnv("ARTIFACT_BUCKET", ""),
		AWSRegion:       getEnv("AWS_REGION", "ap-south-1"),
		KafkaBroker:     getEnv("KAFKA_BROKER", "localhost:9092"),
		KafkaTopic:      getEnv("KAFKA_TOPIC", "vendor-events"),
	}
}

// ErrMissingJWTSecret is returned by Validate when JWT_SECRET is unset
var ErrMissingJWTSecret = errors.New("JWT_SECRET must be set")

// Validate reports settings a service cannot start without
func (c *AppConfig) Validate() error {
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	return nil
}

// ServicePort returns the port for a service, reading key from the environment
func ServicePort(key, defaultPort string) string {
	return getEnv(key, defaultPort)
}

// ServiceURL returns the base URL of a backend service, reading key from the environment
func ServiceURL(key, defaultURL string) string {
	return getEnv(key, defaultURL)
}

// getEnv gets an environment variable with a default value
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
