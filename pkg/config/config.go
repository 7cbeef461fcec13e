// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

// Package config loads the declarative task description and validates it
// into the typed run plan. The execution engine never re-inspects raw
// configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/viper"

	"github.com/upkeep-sh/upkeep/pkg/plan"
	"github.com/upkeep-sh/upkeep/pkg/task"
)

const (
	// DefaultKeychainLabel names the secret-store entry for the sudo
	// credential.
	DefaultKeychainLabel = "upkeep-sudo"

	configName = "config"
	configType = "toml"
)

// Settings are the run-level knobs consumed by the CLI and the executor.
type Settings struct {
	ParallelExecution    bool   `mapstructure:"parallel_execution"`
	ParallelLimit        int    `mapstructure:"parallel_limit"`
	SkipOptionalOnError  bool   `mapstructure:"skip_optional_on_error"`
	KeychainLabel        string `mapstructure:"keychain_label"`
	LogFile              string `mapstructure:"log_file"`
	DesktopNotifications bool   `mapstructure:"desktop_notifications"`
	Verbose              bool   `mapstructure:"verbose"`
	ShowSummary          bool   `mapstructure:"show_summary"`
}

// GroupConfig mirrors one [[groups]] table. Enabled defaults to true when
// omitted, hence the pointer.
type GroupConfig struct {
	Name        string       `mapstructure:"name"`
	Description string       `mapstructure:"description"`
	Enabled     *bool        `mapstructure:"enabled"`
	Parallel    bool         `mapstructure:"parallel"`
	Tasks       []TaskConfig `mapstructure:"tasks"`
}

// TaskConfig mirrors one [[groups.tasks]] table. Required and Enabled
// default to true when omitted.
type TaskConfig struct {
	Name         string            `mapstructure:"name"`
	Command      []string          `mapstructure:"command"`
	Required     *bool             `mapstructure:"required"`
	Sudo         bool              `mapstructure:"sudo"`
	Enabled      *bool             `mapstructure:"enabled"`
	CheckCommand string            `mapstructure:"check_command"`
	CheckPath    string            `mapstructure:"check_path"`
	Timeout      int               `mapstructure:"timeout"`
	Env          map[string]string `mapstructure:"env"`
	WorkingDir   string            `mapstructure:"working_dir"`
	Description  string            `mapstructure:"description"`
}

type Config struct {
	Settings Settings      `mapstructure:"settings"`
	Groups   []GroupConfig `mapstructure:"groups"`

	// Path is the config file the values were loaded from.
	Path string `mapstructure:"-"`
}

// DefaultDir returns the default configuration directory.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config directory: %w", err)
	}
	return filepath.Join(base, "upkeep"), nil
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configName+"."+configType), nil
}

// Load reads the config file at path, or the default location when path
// is empty. TOML is the primary format; viper also accepts YAML/JSON by
// file extension.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName(configName)
		v.SetConfigType(configType)
	}

	v.SetDefault("settings.parallel_limit", plan.DefaultParallelLimit)
	v.SetDefault("settings.keychain_label", DefaultKeychainLabel)
	v.SetDefault("settings.desktop_notifications", true)
	v.SetDefault("settings.show_summary", true)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file not found, run 'upkeep init' to create one: %w", err)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Path = v.ConfigFileUsed()
	return &cfg, nil
}

// BuildPlan validates the configuration and produces the immutable run
// plan, applying the group include/exclude filters. Disabled groups and
// disabled tasks are dropped entirely: they contribute no results, not
// even skips.
func (c *Config) BuildPlan(include, exclude []string) (*plan.Plan, error) {
	full := &plan.Plan{}
	for _, gc := range c.Groups {
		g := plan.Group{
			Name:        gc.Name,
			Description: gc.Description,
			Enabled:     boolOr(gc.Enabled, true),
			Parallel:    gc.Parallel,
		}
		for _, tc := range gc.Tasks {
			g.Tasks = append(g.Tasks, task.Task{
				Name:         tc.Name,
				Command:      tc.Command,
				Required:     boolOr(tc.Required, true),
				Sudo:         tc.Sudo,
				Enabled:      boolOr(tc.Enabled, true),
				CheckCommand: tc.CheckCommand,
				CheckPath:    tc.CheckPath,
				TimeoutSec:   tc.Timeout,
				Env:          tc.Env,
				WorkingDir:   tc.WorkingDir,
				Description:  tc.Description,
			})
		}
		full.Groups = append(full.Groups, g)
	}

	if err := full.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	filtered := &plan.Plan{}
	for _, g := range full.Groups {
		if !g.Enabled {
			continue
		}
		if len(include) > 0 && !slices.Contains(include, g.Name) {
			continue
		}
		if slices.Contains(exclude, g.Name) {
			continue
		}

		var tasks []task.Task
		for _, t := range g.Tasks {
			if t.Enabled {
				tasks = append(tasks, t)
			}
		}
		g.Tasks = tasks
		filtered.Groups = append(filtered.Groups, g)
	}
	return filtered, nil
}

// LogFilePath resolves the configured log file: empty means disabled,
// a leading tilde expands to the home directory, and relative paths are
// anchored at the config file's directory.
func (c *Config) LogFilePath() string {
	raw := c.Settings.LogFile
	if raw == "" {
		return ""
	}
	expanded := task.ExpandHome(raw)
	if filepath.IsAbs(expanded) || c.Path == "" {
		return expanded
	}
	return filepath.Join(filepath.Dir(c.Path), expanded)
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
