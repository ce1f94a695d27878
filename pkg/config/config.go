// Package config loads and validates the sshfsd configuration.
//
// Configuration sources, in order of precedence:
//  1. Environment variables (SSHFSD_*)
//  2. Configuration file (YAML)
//  3. Default values
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete daemon configuration.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// SSH describes how to reach the instance
	SSH SSHConfig `mapstructure:"ssh"`

	// SFTP contains protocol-level toggles
	SFTP SFTPConfig `mapstructure:"sftp"`

	// Metrics controls the optional Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Mounts defines the exported directories. Decoded separately so that
	// uid/gid map entries may be written either as "host:instance" strings
	// or as {host, instance} maps.
	Mounts []MountConfig `mapstructure:"-" validate:"required,min=1,dive"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: TRACE, DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=TRACE DEBUG INFO WARN ERROR trace debug info warn error"`
}

// SSHConfig describes the secure channel to the instance.
type SSHConfig struct {
	Host         string        `mapstructure:"host" validate:"required"`
	Port         int           `mapstructure:"port" validate:"required,gt=0,lte=65535"`
	User         string        `mapstructure:"user" validate:"required"`
	IdentityFile string        `mapstructure:"identity_file" validate:"required"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"required,gt=0"`
}

// SFTPConfig contains protocol-level toggles.
type SFTPConfig struct {
	// WriteAppendWorkaround forces O_APPEND on opens whose flag mask is
	// exactly WRITE, working around sshfs versions before 3.2 dropping the
	// append flag.
	WriteAppendWorkaround bool `mapstructure:"write_append_workaround"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen" validate:"required_if=Enabled true"`
}

// MountConfig defines one exported directory.
type MountConfig struct {
	// Source is the host directory to export
	Source string `mapstructure:"source" validate:"required"`

	// Target is the mount point inside the instance
	Target string `mapstructure:"target" validate:"required"`

	// SSHFSExecLine is the sshfs invocation, without sudo or the path
	// arguments
	SSHFSExecLine string `mapstructure:"sshfs_exec_line"`

	// UIDMap and GIDMap translate ownership between host and instance
	UIDMap []IDMapEntry `mapstructure:"uid_map" validate:"dive"`
	GIDMap []IDMapEntry `mapstructure:"gid_map" validate:"dive"`

	// DefaultUID and DefaultGID are reported for ids the maps resolve to the
	// server default; ids with no map entry pass through unchanged
	DefaultUID int `mapstructure:"default_uid"`
	DefaultGID int `mapstructure:"default_gid"`
}

// IDMapEntry is one (host, instance) id pair.
type IDMapEntry struct {
	Host     int `mapstructure:"host"`
	Instance int `mapstructure:"instance"`
}

// Load reads, defaults, and validates the configuration.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	mounts, err := DecodeMounts(v.Get("mounts"))
	if err != nil {
		return nil, fmt.Errorf("failed to decode mounts: %w", err)
	}
	cfg.Mounts = mounts

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the SSHFSD_ prefix and underscores.
	// Example: SSHFSD_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("SSHFSD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The append workaround is on unless the config turns it off.
	v.SetDefault("sftp.write_append_workaround", true)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Missing config file is acceptable; defaults apply.
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or the current directory
// if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "sshfsd")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "sshfsd")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
