// Package state owns the on-disk configuration under ~/.config/lpshipit.
package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	ConfigDirName       = ".config/lpshipit"
	ConfigFileName      = "config.yaml"
	CredentialsFileName = "credentials.yaml"
)

type Paths struct {
	Home string
}

func NewPaths(home string) Paths {
	return Paths{Home: home}
}

func (p Paths) ConfigRoot() string {
	return filepath.Join(p.Home, ConfigDirName)
}

func (p Paths) ConfigPath() string {
	return filepath.Join(p.ConfigRoot(), ConfigFileName)
}

func (p Paths) CredentialsPath() string {
	return filepath.Join(p.ConfigRoot(), CredentialsFileName)
}

func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

// Config is the persisted tool configuration. Missing fields fall back to the
// defaults on load, so a hand-edited partial file stays valid.
type Config struct {
	Version int `yaml:"version"`
	// APIRoot is the Launchpad web service root.
	APIRoot string `yaml:"api_root"`
	// Statuses is the set of merge proposal states fetched for selection.
	Statuses []string `yaml:"statuses"`
	// TestCommand runs inside the cloned workspace during a test run.
	TestCommand string `yaml:"test_command"`
	// ContainerImage is the LXD image used for isolated test runs.
	ContainerImage string `yaml:"container_image"`
}

func DefaultConfig() Config {
	return Config{
		Version:        1,
		APIRoot:        "https://api.launchpad.net/devel",
		Statuses:       []string{"Needs review", "Approved"},
		TestCommand:    "tox --recreate --parallel auto",
		ContainerImage: "ubuntu:jammy",
	}
}

// LoadConfig reads the config file, writing the defaults on first run.
func LoadConfig(paths Paths) (Config, error) {
	cfgPath := paths.ConfigPath()
	if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
		cfg := DefaultConfig()
		if err := SaveYAML(cfgPath, cfg); err != nil {
			return Config{}, err
		}
		return cfg, nil
	}

	cfg := DefaultConfig()
	cfg.Statuses = nil
	if err := LoadYAML(cfgPath, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", cfgPath, err)
	}
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	defaults := DefaultConfig()
	if strings.TrimSpace(cfg.APIRoot) == "" {
		cfg.APIRoot = defaults.APIRoot
	}
	if len(cfg.Statuses) == 0 {
		cfg.Statuses = defaults.Statuses
	}
	if strings.TrimSpace(cfg.TestCommand) == "" {
		cfg.TestCommand = defaults.TestCommand
	}
	if strings.TrimSpace(cfg.ContainerImage) == "" {
		cfg.ContainerImage = defaults.ContainerImage
	}
	return cfg, nil
}

func SaveConfig(paths Paths, cfg Config) error {
	cfg.Version = 1
	return SaveYAML(paths.ConfigPath(), cfg)
}

func LoadYAML(path string, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(b, out); err != nil {
		return err
	}
	return nil
}

func SaveYAML(path string, in any) error {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	b, err := yaml.Marshal(in)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
