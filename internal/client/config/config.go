package config

import "time"

// Config holds runtime settings for the GophChat terminal client.
//
// Fields:
//   - ServerURL: base URL of the REST API, e.g. http://127.0.0.1:5000.
//   - RequestTimeout: per-request deadline. Sending a message waits for the
//     model, so this should exceed the server's AI timeout.
type Config struct {
	ServerURL      string
	RequestTimeout time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:5000"
	c.RequestTimeout = 90 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
