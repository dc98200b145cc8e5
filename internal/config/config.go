// Package config holds the dfx tool configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for dfx
type Config struct {
	Log    LogConfig    `yaml:"log"`
	Load   LoadConfig   `yaml:"load"`
	Lint   LintConfig   `yaml:"lint"`
	Output OutputConfig `yaml:"output"`
}

// LogConfig controls diagnostic output on stderr
type LogConfig struct {
	// Level is a logrus level name: "panic" through "trace"
	Level string `yaml:"level"`

	// Format is "text" or "json"
	Format string `yaml:"format"`
}

// LoadConfig controls how blobs are read
type LoadConfig struct {
	// ValidateSchema checks raw blobs against the CUE schema before reload
	ValidateSchema bool `yaml:"validate_schema"`

	// Workers bounds parallel database loading during splice
	Workers int `yaml:"workers"`
}

// LintConfig selects design rules and the failure threshold
type LintConfig struct {
	// Rules names the enabled rules; empty enables all of them
	Rules []string `yaml:"rules"`

	// FailOn is "error", "warning" or "never"
	FailOn string `yaml:"fail_on"`
}

// OutputConfig controls listing output
type OutputConfig struct {
	// Spaced separates listed items with spaces instead of newlines
	Spaced bool `yaml:"spaced"`
}

// DefaultConfig returns the configuration used when no file is found
func DefaultConfig() *Config {
	return &Config{
		Log:  LogConfig{Level: "warning", Format: "text"},
		Load: LoadConfig{ValidateSchema: true, Workers: 4},
		Lint: LintConfig{FailOn: "error"},
	}
}

// Load reads the configuration at path. With an empty path the first file
// found of:
//  1. ./dfx.yaml
//  2. ./.dfx.yaml
//  3. ~/.config/dfx/config.yaml
//
// is used, and DefaultConfig when none exists.
func Load(path string) (*Config, error) {
	if path != "" {
		return LoadFile(path)
	}
	cwd, _ := os.Getwd()
	searchPaths := []string{
		filepath.Join(cwd, "dfx.yaml"),
		filepath.Join(cwd, ".dfx.yaml"),
	}
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".config", "dfx", "config.yaml"))
	}
	for _, p := range searchPaths {
		if _, err := os.Stat(p); err == nil {
			return LoadFile(p)
		}
	}
	return DefaultConfig(), nil
}

// LoadFile reads configuration from a specific file. Keys missing from the
// file keep their default values.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every enumerated value.
func (c *Config) Validate() error {
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q is not text or json", c.Log.Format)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Load.Workers < 1 {
		return fmt.Errorf("load.workers must be at least 1, got %d", c.Load.Workers)
	}
	switch c.Lint.FailOn {
	case "error", "warning", "never":
	default:
		return fmt.Errorf("lint.fail_on %q is not error, warning or never", c.Lint.FailOn)
	}
	return nil
}
