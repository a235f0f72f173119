// Package config loads optional project settings for the understory CLI.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// DefaultFileName is looked up in the project root when no explicit
// config path is given.
const DefaultFileName = ".understory.toml"

// Config mirrors the TOML file. Zero values mean "use the engine
// default"; the CLI only forwards fields the user actually set.
type Config struct {
	Scan     Scan     `toml:"scan"`
	Cache    Cache    `toml:"cache"`
	Provider Provider `toml:"provider"`
}

// Scan bounds project enumeration.
type Scan struct {
	MaxDepth        int      `toml:"max_depth"`
	MaxFiles        int      `toml:"max_files"`
	IncomingFileCap int      `toml:"incoming_file_cap"`
	Include         []string `toml:"include"`
	Exclude         []string `toml:"exclude"`
	IgnoreGitignore bool     `toml:"ignore_gitignore"`
}

// Cache controls the symbol-index cache.
type Cache struct {
	TTLSeconds int `toml:"ttl_seconds"`
}

// Provider describes an optional language server to prefer over the
// heuristics.
type Provider struct {
	Command        string   `toml:"command"`
	Args           []string `toml:"args"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// TTL returns the configured cache TTL, or 0 when unset.
func (c Cache) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// Timeout returns the configured provider timeout, or 0 when unset.
func (p Provider) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// Load reads a config file. A missing file is not an error: it yields
// the zero Config; a present but malformed file is.
func Load(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadProject loads the default config file from a project root.
func LoadProject(root string) (Config, error) {
	return Load(filepath.Join(root, DefaultFileName))
}
