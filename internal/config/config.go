// Package config loads the optional YAML configuration file.
package config

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/winstack/startupmgr/internal/domain"
)

// SourceToggles turns individual source readers on or off.
type SourceToggles struct {
	RegistryRun     bool `yaml:"registry_run"`
	RegistryRunOnce bool `yaml:"registry_runonce"`
	StartupFolder   bool `yaml:"startup_folder"`
	TaskScheduler   bool `yaml:"task_scheduler"`
	Services        bool `yaml:"services"`
}

// Config is the tool configuration. All fields have working defaults;
// the config file is optional.
type Config struct {
	LogLevel    string            `yaml:"log_level"`
	PrefetchDir string            `yaml:"prefetch_dir"`
	Sources     SourceToggles     `yaml:"sources"`
	// FriendlyNames maps an entry's discovered name to a display name.
	FriendlyNames map[string]string `yaml:"friendly_names"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		LogLevel: "info",
		Sources: SourceToggles{
			RegistryRun:     true,
			RegistryRunOnce: true,
			StartupFolder:   true,
			TaskScheduler:   true,
			Services:        true,
		},
	}
}

// Load reads a config file. A missing file yields the defaults; a
// malformed one is an error the user needs to see.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	// The path was given explicitly, so a missing file is a mistake the
	// user needs to hear about, not a silent fall-through to defaults.
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// ZapLevel translates the configured log level, defaulting to info.
func (c Config) ZapLevel() zapcore.Level {
	var level zapcore.Level
	if err := level.Set(strings.ToLower(c.LogLevel)); err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// ApplyFriendlyNames sets display overrides in place. Matching is by
// the discovered name, case-insensitive. Name itself is never touched:
// it is the identity actions and side-table lookups key on, and a
// rename there would redirect them at a nonexistent registry value.
func (c Config) ApplyFriendlyNames(entries []domain.StartupEntry) {
	if len(c.FriendlyNames) == 0 {
		return
	}
	lookup := make(map[string]string, len(c.FriendlyNames))
	for from, to := range c.FriendlyNames {
		lookup[strings.ToLower(from)] = to
	}
	for i := range entries {
		if to, ok := lookup[strings.ToLower(entries[i].Name)]; ok && to != "" {
			entries[i].DisplayName = to
		}
	}
}
