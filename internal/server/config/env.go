package config

import (
	"github.com/caarlos0/env/v11"
)

// parseEnv overlays SENTINEL_* environment variables onto config. Variables
// that are not set leave the current value untouched. Malformed values panic,
// matching the JSON and flag layers.
func parseEnv(config *Config) {
	if err := env.Parse(config); err != nil {
		panic(err)
	}
}
