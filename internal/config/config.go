// Package config loads ATLAS client credentials and settings from the
// user's config file and environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	defaultAPIURL = "https://api.atlas.energy"
	envPrefix     = "ATLAS"
)

// Config holds everything needed to construct a transport client.
type Config struct {
	APIURL       string  `mapstructure:"api_url"`
	RefreshToken string  `mapstructure:"refresh_token"`
	Debug        bool    `mapstructure:"debug"`
	RateLimit    float64 `mapstructure:"rate_limit"`
	RateBurst    int     `mapstructure:"rate_burst"`
}

// DefaultPath returns the conventional config file location,
// ~/.config/atlas/config.toml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "atlas", "config.toml")
}

// Load reads configuration from the TOML file at path, with environment
// variables (ATLAS_REFRESH_TOKEN, ATLAS_API_URL, ATLAS_DEBUG) taking
// precedence. A missing file is fine as long as the refresh token comes
// from the environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	// AutomaticEnv alone does not surface env-only keys through Unmarshal.
	for _, key := range []string{"api_url", "refresh_token", "debug", "rate_limit", "rate_burst"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
			var missing viper.ConfigFileNotFoundError
			if !errors.As(err, &missing) {
				return nil, fmt.Errorf("reading config file %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if cfg.RefreshToken == "" {
		return nil, fmt.Errorf("no refresh token: set %s_REFRESH_TOKEN or refresh_token in %s",
			envPrefix, path)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_url", defaultAPIURL)
	v.SetDefault("debug", false)
	v.SetDefault("rate_limit", 5.0)
	v.SetDefault("rate_burst", 10)
}
