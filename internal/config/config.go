// Package config loads the agent's local operator-tunable settings file.
//
// This is distinct from model.NodeSettings: NodeSettings is cluster
// identity fetched/persisted through the store, agent.yaml is purely local
// operational tuning and is optional — its absence means "use defaults".
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const fileName = "agent.yaml"

// Agent holds local operator-tunable knobs.
type Agent struct {
	LogLevel       string        `yaml:"logLevel"`
	TickInterval   time.Duration `yaml:"tickInterval"`
	PingWindow     time.Duration `yaml:"pingWindow"`
	HTTPTimeout    time.Duration `yaml:"httpTimeout"`
	InstallDir     string        `yaml:"installDir"`
	KeyPoolSize    int           `yaml:"keyPoolSize"`
}

// Defaults returns the built-in configuration used when agent.yaml is absent
// or a field is left unset.
func Defaults() Agent {
	return Agent{
		LogLevel:     "info",
		TickInterval: 60 * time.Second,
		PingWindow:   10 * time.Second,
		HTTPTimeout:  15 * time.Second,
		InstallDir:   os.Getenv("INSTALL_DIR"),
		KeyPoolSize:  20,
	}
}

// Load reads <dataDir>/agent.yaml, overlaying it onto Defaults(). A missing
// file is not an error.
func Load(dataDir string) (Agent, error) {
	cfg := Defaults()

	path := filepath.Join(dataDir, fileName)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}

	var override Agent
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	if override.LogLevel != "" {
		cfg.LogLevel = override.LogLevel
	}
	if override.TickInterval > 0 {
		cfg.TickInterval = override.TickInterval
	}
	if override.PingWindow > 0 {
		cfg.PingWindow = override.PingWindow
	}
	if override.HTTPTimeout > 0 {
		cfg.HTTPTimeout = override.HTTPTimeout
	}
	if override.InstallDir != "" {
		cfg.InstallDir = override.InstallDir
	}
	if override.KeyPoolSize > 0 {
		cfg.KeyPoolSize = override.KeyPoolSize
	}
	return cfg, nil
}
