package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// parseEnv overlays Config with environment variables. Unset or empty
// variables leave the current value alone; malformed numbers and durations
// are ignored the same way.
//
// PORT is honoured for platforms that only hand out a port number;
// LISTEN_ADDR wins when both are set.
func parseEnv(c *Config) {
	if port := getEnv("PORT", ""); port != "" {
		c.ListenAddr = ":" + port
	}
	c.ListenAddr = getEnv("LISTEN_ADDR", c.ListenAddr)
	c.DatabaseDSN = getEnv("DATABASE_URL", c.DatabaseDSN)
	c.SecretKey = getEnv("JWT_SECRET", c.SecretKey)
	c.AccessTokenValidityDuration = getEnvDuration("ACCESS_TOKEN_TTL", c.AccessTokenValidityDuration)
	c.RefreshTokenValidityDuration = getEnvDuration("REFRESH_TOKEN_TTL", c.RefreshTokenValidityDuration)
	c.AllowedOrigins = getEnvList("CORS_ORIGIN", c.AllowedOrigins)

	c.GeminiAPIKey = getEnv("GEMINI_API_KEY", c.GeminiAPIKey)
	c.GeminiModel = getEnv("GEMINI_MODEL", c.GeminiModel)
	c.GeminiBaseURL = getEnv("GEMINI_BASE_URL", c.GeminiBaseURL)
	c.AIMaxOutputTokens = getEnvInt("AI_MAX_OUTPUT_TOKENS", c.AIMaxOutputTokens)
	c.ContextWindowSize = getEnvInt("CONTEXT_WINDOW_SIZE", c.ContextWindowSize)
	c.AIRequestTimeout = getEnvDuration("AI_REQUEST_TIMEOUT", c.AIRequestTimeout)

	c.S3AccessKey = getEnv("S3_ACCESS_KEY", c.S3AccessKey)
	c.S3SecretKey = getEnv("S3_SECRET_KEY", c.S3SecretKey)
	c.S3Bucket = getEnv("S3_BUCKET", c.S3Bucket)
	c.S3Region = getEnv("S3_REGION", c.S3Region)
	c.S3BaseEndpoint = getEnv("S3_ENDPOINT", c.S3BaseEndpoint)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

// getEnvList splits a comma-separated value, dropping blanks and trailing slashes.
func getEnvList(key string, fallback []string) []string {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	return splitList(v)
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if o := strings.TrimRight(strings.TrimSpace(p), "/"); o != "" {
			out = append(out, o)
		}
	}
	return out
}
