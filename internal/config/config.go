// Package config handles Claw configuration using Viper.
//
// Configuration sources (in priority order):
//  1. Environment variables (CLAW_*)
//  2. Config file (~/.config/claw/config.yaml)
//  3. Built-in defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/simplestclaw/claw/internal/paths"
)

const (
	// DefaultGatewayPort is the local port the gateway binds to.
	DefaultGatewayPort = 18789
	// DefaultSidecarListen is the default sidecar listen address.
	DefaultSidecarListen = "127.0.0.1:18790"
	// DefaultDashboardListen is the default dashboard listen address.
	DefaultDashboardListen = "127.0.0.1:18791"
	// DefaultRestartDelaySeconds is the delay before respawning a dead gateway.
	DefaultRestartDelaySeconds = 5
)

// Config holds the Claw configuration.
type Config struct {
	v *viper.Viper
}

// Load reads configuration from all sources.
func Load() *Config {
	v := viper.New()

	// Set defaults
	v.SetDefault("gateway.port", DefaultGatewayPort)
	v.SetDefault("gateway.restart_delay", DefaultRestartDelaySeconds)
	v.SetDefault("sidecar.listen", DefaultSidecarListen)
	v.SetDefault("dashboard.listen", DefaultDashboardListen)

	// Config file location
	if configDir, err := paths.ConfigRoot(); err == nil {
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Environment variables
	v.SetEnvPrefix("CLAW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found, but warn on other errors)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Warning: error reading config file: %v\n", err)
		}
	}

	return &Config{v: v}
}

// Get returns a configuration value.
func (c *Config) Get(key string) interface{} {
	return c.v.Get(key)
}

// GetString returns a configuration value as string.
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt returns a configuration value as int.
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// Set sets a configuration value and persists it.
func (c *Config) Set(key string, value interface{}) error {
	c.v.Set(key, value)

	configDir, err := paths.ConfigRoot()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return err
	}

	configFile := filepath.Join(configDir, "config.yaml")
	return c.v.WriteConfigAs(configFile)
}

// All returns all configuration as a map.
func (c *Config) All() map[string]interface{} {
	return c.v.AllSettings()
}

// GatewayPort returns the configured gateway port.
func (c *Config) GatewayPort() int {
	return c.GetInt("gateway.port")
}

// RestartDelaySeconds returns the gateway respawn delay in seconds.
func (c *Config) RestartDelaySeconds() int {
	return c.GetInt("gateway.restart_delay")
}

// SidecarListen returns the sidecar listen address.
func (c *Config) SidecarListen() string {
	return c.GetString("sidecar.listen")
}

// DashboardListen returns the dashboard listen address.
func (c *Config) DashboardListen() string {
	return c.GetString("dashboard.listen")
}
