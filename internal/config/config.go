// Package config wraps viper behind the plugin.Config interface so modules
// never touch viper directly. A nil viper yields a zero-value config rather
// than panics.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/netseek/netseek/pkg/plugin"
)

// Compile-time interface guard.
var _ plugin.Config = (*Config)(nil)

// Config is a read-only view over a viper instance.
type Config struct {
	v *viper.Viper
}

// New wraps a viper instance. v may be nil; all getters then return zero
// values and Sub returns another empty Config.
func New(v *viper.Viper) *Config {
	return &Config{v: v}
}

// Load reads configuration from the given YAML file. An empty path falls
// back to netseek.yaml in the working directory or /etc/netseek, and a
// missing file is not an error; defaults and environment apply.
// Environment variables use the NETSEEK_ prefix with underscores for dots.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8734)
	v.SetDefault("store.path", "netseek.db")
	v.SetDefault("modules.sweep.probe_port", 80)
	v.SetDefault("modules.sweep.probe_timeout", "2s")
	v.SetDefault("modules.sweep.batch_size", 20)
	v.SetDefault("modules.watch.interval", "30s")
	v.SetDefault("modules.watch.ping_timeout", "2s")
	v.SetDefault("modules.watch.ping_count", 3)
	v.SetDefault("modules.watch.probe_port", 80)
	v.SetDefault("modules.watch.probe_timeout", "2s")

	v.SetEnvPrefix("NETSEEK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("netseek")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/netseek")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return New(v), nil
}

// GetString returns the string value for key.
func (c *Config) GetString(key string) string {
	if c.v == nil {
		return ""
	}
	return c.v.GetString(key)
}

// GetInt returns the int value for key.
func (c *Config) GetInt(key string) int {
	if c.v == nil {
		return 0
	}
	return c.v.GetInt(key)
}

// GetBool returns the bool value for key.
func (c *Config) GetBool(key string) bool {
	if c.v == nil {
		return false
	}
	return c.v.GetBool(key)
}

// GetDuration returns the duration value for key.
func (c *Config) GetDuration(key string) time.Duration {
	if c.v == nil {
		return 0
	}
	return c.v.GetDuration(key)
}

// IsSet reports whether key has a value.
func (c *Config) IsSet(key string) bool {
	if c.v == nil {
		return false
	}
	return c.v.IsSet(key)
}

// Sub returns the configuration subsection under key. Missing sections
// yield an empty Config, never nil.
func (c *Config) Sub(key string) plugin.Config {
	if c.v == nil {
		return New(nil)
	}
	return New(c.v.Sub(key))
}

// Unmarshal decodes the configuration into target via mapstructure tags.
func (c *Config) Unmarshal(target any) error {
	if c.v == nil {
		return nil
	}
	return c.v.Unmarshal(target)
}
