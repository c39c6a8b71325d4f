// Package deploy drives the remote provisioning protocol: it pushes the
// runtime binary, the resolved block libraries and the manifest to a
// target device over SSH/SFTP and launches the runtime there.
package deploy

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultRemoteRoot is the deployment layout root on the target.
const DefaultRemoteRoot = "~/cira-runtime"

// Config describes one deployment target plus the local artifacts to
// ship. It is typically loaded from a TOML file written by the authoring
// tool, with individual fields overridable from flags.
type Config struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	KeyPath         string `toml:"key_path"`
	KnownHostsPath  string `toml:"known_hosts_path"`
	InsecureHostKey bool   `toml:"insecure_host_key"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`

	RemoteRoot string `toml:"remote_root"`
	TargetOS   string `toml:"target_os"`

	Binary    string   `toml:"binary"`
	Manifest  string   `toml:"manifest"`
	Libraries []string `toml:"libraries"`
}

// LoadConfig reads a target description from a TOML file.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("reading deploy config %s: %w", path, err)
	}
	return &cfg, nil
}

// Timeout returns the SSH dial timeout.
func (c *Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 22
	}
	if c.RemoteRoot == "" {
		c.RemoteRoot = DefaultRemoteRoot
	}
	if c.TargetOS == "" {
		c.TargetOS = "linux"
	}
}

// Validate checks the target description and the local artifact set
// before any connection is attempted: required connection fields, every
// local file present, and every library named for the target platform.
func (c *Config) Validate() error {
	c.applyDefaults()

	if c.Host == "" {
		return errors.New("deploy: host is required")
	}
	if c.User == "" {
		return errors.New("deploy: user is required")
	}
	if c.Password == "" && c.KeyPath == "" {
		return errors.New("deploy: either password or key_path is required")
	}
	if c.Binary == "" || c.Manifest == "" {
		return errors.New("deploy: binary and manifest paths are required")
	}

	for _, p := range append([]string{c.Binary, c.Manifest}, c.Libraries...) {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("deploy: local artifact missing: %w", err)
		}
	}

	ext := libraryExtension(c.TargetOS)
	for _, lib := range c.Libraries {
		if filepath.Ext(lib) != ext {
			return fmt.Errorf("deploy: library %s does not match target platform %s (want %s)",
				filepath.Base(lib), c.TargetOS, ext)
		}
	}
	return nil
}

func libraryExtension(goos string) string {
	switch goos {
	case "windows":
		return ".dll"
	case "darwin":
		return ".dylib"
	default:
		return ".so"
	}
}
