package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/flagx"
	"github.com/dmitrijs2005/gophchat/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
type JsonConfig struct {
	ServerURL      string         `json:"server_url"`
	RequestTimeout timex.Duration `json:"request_timeout"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c/-config. Missing keys keep their current values. Read or unmarshal
// errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	}
}
