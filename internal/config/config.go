// Package config loads analyzer configuration from TOML, starting from an
// embedded default and optionally overridden by a local file.
package config

import (
	_ "embed"
	"fmt"

	"github.com/BurntSushi/toml"
)

//go:embed default_config.toml
var embeddedConfig []byte

// Config holds all tunable conventions for one analysis run.
type Config struct {
	Walker      WalkerConfig      `toml:"walker"`
	Entrypoints EntrypointsConfig `toml:"entrypoints"`
	Dynamic     DynamicConfig     `toml:"dynamic"`
}

// WalkerConfig tunes source-file discovery.
type WalkerConfig struct {
	// SkipDirs are directory base names never descended into.
	SkipDirs []string `toml:"skip_dirs"`

	// RespectGitignore skips paths matched by the project's .gitignore.
	RespectGitignore bool `toml:"respect_gitignore"`
}

// EntrypointsConfig tunes entrypoint detection.
type EntrypointsConfig struct {
	// RouteDirs are directory names treated as service boundaries.
	RouteDirs []string `toml:"route_dirs"`

	// ExtraFunctions are function names always treated as entrypoints.
	ExtraFunctions []string `toml:"extra_functions"`
}

// DynamicConfig extends the per-language dynamic-primitive sets.
type DynamicConfig struct {
	// Extra maps a language name to additional callee names that trigger
	// the conservative fallback.
	Extra map[string][]string `toml:"extra"`
}

// Default returns the embedded default configuration.
func Default() (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(embeddedConfig, &cfg); err != nil {
		return nil, fmt.Errorf("parse embedded config: %w", err)
	}
	return &cfg, nil
}

// Load reads configuration from path, layered over the embedded defaults:
// fields absent from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// ExtraDynamic returns the configured extra dynamic primitives for language
// name l.
func (c *Config) ExtraDynamic(l string) []string {
	if c == nil || c.Dynamic.Extra == nil {
		return nil
	}
	return c.Dynamic.Extra[l]
}
