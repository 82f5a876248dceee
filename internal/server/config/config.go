// Package config handles configuration for the server component:
// defaults, a JSON overlay, environment variables and command-line flags.
package config

import (
	"errors"
	"time"
)

// Config holds runtime settings for the GophChat server.
//
// Fields:
//   - ListenAddr: bind address of the REST API.
//   - DatabaseDSN: PostgreSQL DSN (pgx).
//   - SecretKey: HMAC secret for signing JWTs (HS256).
//   - AccessTokenValidityDuration / RefreshTokenValidityDuration: token lifetimes.
//   - AllowedOrigins: CORS origins, "*" allows any.
//   - GeminiAPIKey / GeminiModel / GeminiBaseURL: AI provider settings. An empty
//     key leaves the provider unconfigured and turns get a fixed fallback reply.
//   - AIMaxOutputTokens: output cap sent with every generation request.
//   - ContextWindowSize: how many prior messages are sent as history.
//   - AIRequestTimeout: deadline for a single provider call.
//   - S3*: object storage for transcript exports; empty bucket disables export.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	ListenAddr                   string
	DatabaseDSN                  string
	SecretKey                    string
	AccessTokenValidityDuration  time.Duration
	RefreshTokenValidityDuration time.Duration
	AllowedOrigins               []string
	GeminiAPIKey                 string
	GeminiModel                  string
	GeminiBaseURL                string
	AIMaxOutputTokens            int
	ContextWindowSize            int
	AIRequestTimeout             time.Duration
	S3AccessKey                  string
	S3SecretKey                  string
	S3Bucket                     string
	S3Region                     string
	S3BaseEndpoint               string
	LogLevel                     string
}

// LoadDefaults populates Config with development defaults. DatabaseDSN and
// SecretKey have no default and must be provided.
func (c *Config) LoadDefaults() {
	c.ListenAddr = ":5000"
	c.AccessTokenValidityDuration = 1 * time.Hour
	c.RefreshTokenValidityDuration = 7 * 24 * time.Hour
	c.AllowedOrigins = []string{"*"}
	c.GeminiModel = "gemini-1.5-flash"
	c.AIMaxOutputTokens = 800
	c.ContextWindowSize = 20
	c.AIRequestTimeout = 60 * time.Second
	c.S3Region = "us-east-1"
	c.LogLevel = "info"
}

// AIConfigured reports whether an AI provider credential is present.
func (c *Config) AIConfigured() bool {
	return c.GeminiAPIKey != ""
}

// ExportEnabled reports whether transcript export has somewhere to write.
func (c *Config) ExportEnabled() bool {
	return c.S3Bucket != ""
}

// Validate reports the first setting that prevents the server from starting.
func (c *Config) Validate() error {
	switch {
	case c.DatabaseDSN == "":
		return errors.New("database DSN is required (DATABASE_URL or -d)")
	case c.SecretKey == "":
		return errors.New("JWT secret is required (JWT_SECRET or -k)")
	case c.ContextWindowSize <= 0:
		return errors.New("context window size must be positive")
	case c.AIMaxOutputTokens <= 0:
		return errors.New("AI max output tokens must be positive")
	case c.AccessTokenValidityDuration <= 0:
		return errors.New("access token validity must be positive")
	}
	return nil
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment and finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
