// Package compositor wires every other package into one running
// instance: configuration, logging, the async engine, the scene tree,
// one seat and output set per running instance, and the client registry
// (§9 "Global mutable state is a single explicit context struct threaded
// through every task"). The matcher engine is not held on State.
package compositor

import (
	"github.com/kelseyhightower/envconfig"
)

// Config holds the environment-derived settings a running instance
// needs at startup, following the same envconfig.Process("", &cfg)
// idiom the pack's config loaders use (helixml-helix's
// api/pkg/config/*.go).
type Config struct {
	SocketPath string `envconfig:"TESSERA_SOCKET" default:"/run/user/1000/tessera-0"`
	RenderNode string `envconfig:"TESSERA_RENDER_NODE" default:"/dev/dri/renderD128"`
	DRMDevice  string `envconfig:"TESSERA_DRM_DEVICE" default:"/dev/dri/card0"`

	LogLevel string `envconfig:"TESSERA_LOG_LEVEL" default:"info"`

	CursorRefreshHz float64 `envconfig:"TESSERA_CURSOR_REFRESH_HZ" default:"60"`
	KeyRepeatRate   int     `envconfig:"TESSERA_KEY_REPEAT_RATE" default:"25"`
	KeyRepeatDelayMS int    `envconfig:"TESSERA_KEY_REPEAT_DELAY_MS" default:"600"`
}

// LoadConfig reads Config from the process environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
