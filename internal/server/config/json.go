package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/flagx"
	"github.com/dmitrijs2005/gophchat/internal/timex"
)

// JsonConfig is the on-disk shape of the server configuration. Durations use
// timex.Duration so they can be written as "15m" or as nanoseconds. Zero
// values mean "not set" and keep whatever the defaults provided.
type JsonConfig struct {
	ListenAddr                   string         `json:"listen_addr"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	AllowedOrigins               []string       `json:"allowed_origins"`
	GeminiAPIKey                 string         `json:"gemini_api_key"`
	GeminiModel                  string         `json:"gemini_model"`
	GeminiBaseURL                string         `json:"gemini_base_url"`
	AIMaxOutputTokens            int            `json:"ai_max_output_tokens"`
	ContextWindowSize            int            `json:"context_window_size"`
	AIRequestTimeout             timex.Duration `json:"ai_request_timeout"`
	S3AccessKey                  string         `json:"s3_access_key"`
	S3SecretKey                  string         `json:"s3_secret_key"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	LogLevel                     string         `json:"log_level"`
}

// parseJson loads the file named by -c/-config into config. Without the
// flag nothing happens. Unreadable or malformed files panic, as the server
// cannot start with a half-applied configuration.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(data, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.ListenAddr, c.ListenAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	if len(c.AllowedOrigins) > 0 {
		config.AllowedOrigins = c.AllowedOrigins
	}
	setString(&config.GeminiAPIKey, c.GeminiAPIKey)
	setString(&config.GeminiModel, c.GeminiModel)
	setString(&config.GeminiBaseURL, c.GeminiBaseURL)
	setInt(&config.AIMaxOutputTokens, c.AIMaxOutputTokens)
	setInt(&config.ContextWindowSize, c.ContextWindowSize)
	setDuration(&config.AIRequestTimeout, c.AIRequestTimeout)
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
