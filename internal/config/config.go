package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string

	// Conversational voice-AI provider
	ConvAIBaseURL string
	ConvAIAPIKey  string
	ConvAIAgentID string

	// Speech synthesis provider
	TTSBaseURL string
	TTSAPIKey  string
	TTSVoiceID string
	TTSModelID string

	// Signed telephony relay provider
	RelayBaseURL      string
	RelayAPIKey       string
	RelaySecretKey    string
	RelaySIPExtension string

	// Outbound dialing behavior
	DefaultCountryCode string
	ProviderTimeout    time.Duration

	// Reminder batch job
	ReminderPause     time.Duration
	ReminderCampaign  string
	ReminderDedupeTTL time.Duration

	// Trigger surface hardening
	AdminJWTSecret     string
	RateLimitPerSecond float64
	RateLimitBurst     int
	CORSAllowedOrigins string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		ConvAIBaseURL: getEnv("CONVAI_BASE_URL", ""),
		ConvAIAPIKey:  getEnv("CONVAI_API_KEY", ""),
		ConvAIAgentID: getEnv("CONVAI_AGENT_ID", ""),

		TTSBaseURL: getEnv("TTS_BASE_URL", ""),
		TTSAPIKey:  getEnv("TTS_API_KEY", ""),
		TTSVoiceID: getEnv("TTS_VOICE_ID", ""),
		TTSModelID: getEnv("TTS_MODEL_ID", "eleven_multilingual_v2"),

		RelayBaseURL:      getEnv("RELAY_BASE_URL", ""),
		RelayAPIKey:       getEnv("RELAY_API_KEY", ""),
		RelaySecretKey:    getEnv("RELAY_SECRET_KEY", ""),
		RelaySIPExtension: getEnv("RELAY_SIP_EXTENSION", ""),

		DefaultCountryCode: getEnv("DEFAULT_COUNTRY_CODE", "57"),
		ProviderTimeout:    getEnvAsDuration("PROVIDER_TIMEOUT", 30*time.Second),

		ReminderPause:     getEnvAsDuration("REMINDER_PAUSE", 2*time.Second),
		ReminderCampaign:  getEnv("REMINDER_CAMPAIGN", "appointment-reminder"),
		ReminderDedupeTTL: getEnvAsDuration("REMINDER_DEDUPE_TTL", 24*time.Hour),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		RateLimitPerSecond: getEnvAsFloat("RATE_LIMIT_PER_SECOND", 2),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 5),
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
