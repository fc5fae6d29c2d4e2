package config

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"gopkg.in/yaml.v3"
)

// Run are the runner settings loadable from a YAML file. Zero values mean
// "not set", the caller applies its defaults.
type Run struct {
	// WaitTime is the sleep between empty polls.
	WaitTime time.Duration
	// CleanupThreshold is the number of idle polls before a quarantine
	// cleanup pass.
	CleanupThreshold int
	// NDExServer is the NDEx server host.
	NDExServer string
	// BigGIMBaseURL is the BigGIM API base URL.
	BigGIMBaseURL string
	// BigGIMThreshold is the edge restriction threshold for BigGIM queries.
	BigGIMThreshold float64
}

// YAMLLoader loads runner settings from YAML files.
type YAMLLoader struct {
	fs fs.FS
}

// NewYAMLLoader creates a new YAML run settings loader.
func NewYAMLLoader(filesystem fs.FS) *YAMLLoader {
	return &YAMLLoader{fs: filesystem}
}

// GetRun loads runner settings from a YAML file and returns a validated
// domain model.
func (l *YAMLLoader) GetRun(ctx context.Context, path string) (Run, error) {
	data, err := fs.ReadFile(l.fs, path)
	if err != nil {
		return Run{}, fmt.Errorf("reading config file: %w", err)
	}

	if ctx.Err() != nil {
		return Run{}, ctx.Err()
	}

	var cfg runConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Run{}, fmt.Errorf("parsing YAML: %w", err)
	}

	run, err := cfg.toModel()
	if err != nil {
		return Run{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return run, nil
}

// runConfig represents the YAML structure of the run settings file.
type runConfig struct {
	WaitTime         string  `yaml:"wait_time"`
	CleanupThreshold int     `yaml:"cleanup_threshold"`
	NDExServer       string  `yaml:"ndex_server"`
	BigGIMBaseURL    string  `yaml:"biggim_base_url"`
	BigGIMThreshold  float64 `yaml:"biggim_threshold"`
}

func (c runConfig) toModel() (Run, error) {
	run := Run{
		CleanupThreshold: c.CleanupThreshold,
		NDExServer:       c.NDExServer,
		BigGIMBaseURL:    c.BigGIMBaseURL,
		BigGIMThreshold:  c.BigGIMThreshold,
	}

	if c.WaitTime != "" {
		d, err := time.ParseDuration(c.WaitTime)
		if err != nil {
			return Run{}, fmt.Errorf("wait_time: %w", err)
		}
		if d <= 0 {
			return Run{}, fmt.Errorf("wait_time must be positive")
		}
		run.WaitTime = d
	}
	if c.CleanupThreshold < 0 {
		return Run{}, fmt.Errorf("cleanup_threshold must not be negative")
	}
	if c.BigGIMThreshold < 0 {
		return Run{}, fmt.Errorf("biggim_threshold must not be negative")
	}

	return run, nil
}
