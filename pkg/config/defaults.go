package config

import (
	"strings"
	"time"
)

// DefaultSSHFSExecLine is the sshfs invocation used when a mount does not
// configure its own.
const DefaultSSHFSExecLine = "sshfs -o slave -o transform_symlinks -o allow_other"

// ApplyDefaults fills in defaults for any missing values and normalizes the
// log level to uppercase.
func ApplyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	cfg.Logging.Level = strings.ToUpper(cfg.Logging.Level)

	if cfg.SSH.Port == 0 {
		cfg.SSH.Port = 22
	}
	if cfg.SSH.Timeout == 0 {
		cfg.SSH.Timeout = 30 * time.Second
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = ":9090"
	}

	for i := range cfg.Mounts {
		if cfg.Mounts[i].SSHFSExecLine == "" {
			cfg.Mounts[i].SSHFSExecLine = DefaultSSHFSExecLine
		}
	}
}

// Default returns a fully defaulted configuration with a single placeholder
// mount, used by --write-default-config.
func Default() *Config {
	cfg := &Config{
		SSH: SSHConfig{
			Host:         "instance.local",
			User:         "ubuntu",
			IdentityFile: "~/.ssh/id_ed25519",
		},
		SFTP: SFTPConfig{
			WriteAppendWorkaround: true,
		},
		Mounts: []MountConfig{
			{
				Source: "/srv/share",
				Target: "/home/ubuntu/share",
				UIDMap: []IDMapEntry{{Host: 1000, Instance: 1000}},
				GIDMap: []IDMapEntry{{Host: 1000, Instance: 1000}},
			},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
