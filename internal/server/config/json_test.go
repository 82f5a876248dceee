package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	full := writeTempJSON(t, dir, "server.json", map[string]any{
		"listen_addr":                     ":9000",
		"database_dsn":                    "postgres://chat",
		"secret_key":                      "my_secret_key",
		"access_token_validity_duration":  "5m",
		"refresh_token_validity_duration": "24h",
		"allowed_origins":                 []string{"http://localhost:3000"},
		"gemini_api_key":                  "AIza",
		"gemini_model":                    "gemini-2.0-flash",
		"gemini_base_url":                 "http://127.0.0.1:8089",
		"ai_max_output_tokens":            256,
		"context_window_size":             10,
		"ai_request_timeout":              "20s",
		"s3_access_key":                   "minio",
		"s3_secret_key":                   "minio123",
		"s3_bucket":                       "exports",
		"s3_region":                       "eu-west-1",
		"s3_base_endpoint":                "http://127.0.0.1:9000",
		"log_level":                       "warn",
	})

	t.Run("loads every field from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", full}

		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, ":9000", cfg.ListenAddr)
		assert.Equal(t, "postgres://chat", cfg.DatabaseDSN)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
		assert.Equal(t, 5*time.Minute, cfg.AccessTokenValidityDuration)
		assert.Equal(t, 24*time.Hour, cfg.RefreshTokenValidityDuration)
		assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
		assert.Equal(t, "AIza", cfg.GeminiAPIKey)
		assert.Equal(t, "gemini-2.0-flash", cfg.GeminiModel)
		assert.Equal(t, "http://127.0.0.1:8089", cfg.GeminiBaseURL)
		assert.Equal(t, 256, cfg.AIMaxOutputTokens)
		assert.Equal(t, 10, cfg.ContextWindowSize)
		assert.Equal(t, 20*time.Second, cfg.AIRequestTimeout)
		assert.Equal(t, "minio", cfg.S3AccessKey)
		assert.Equal(t, "minio123", cfg.S3SecretKey)
		assert.Equal(t, "exports", cfg.S3Bucket)
		assert.Equal(t, "eu-west-1", cfg.S3Region)
		assert.Equal(t, "http://127.0.0.1:9000", cfg.S3BaseEndpoint)
		assert.Equal(t, "warn", cfg.LogLevel)
	})

	t.Run("partial json keeps defaults", func(t *testing.T) {
		partial := writeTempJSON(t, dir, "partial.json", map[string]any{"secret_key": "only-this"})
		os.Args = []string{"testbin", "-c", partial}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "only-this", cfg.SecretKey)
		assert.Equal(t, ":5000", cfg.ListenAddr)
		assert.Equal(t, 20, cfg.ContextWindowSize)
		assert.Equal(t, time.Hour, cfg.AccessTokenValidityDuration)
	})

	t.Run("no config flag → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{ListenAddr: "defaults:1234", SecretKey: "key"}
		parseJson(cfg)

		assert.Equal(t, "defaults:1234", cfg.ListenAddr)
		assert.Equal(t, "key", cfg.SecretKey)
	})

	t.Run("missing file → panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(dir, "nope.json")}
		require.Panics(t, func() { parseJson(&Config{}) })
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}
		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
