// Package config loads and validates javamap settings from .javamap.yaml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/phobologic/javamap/internal/corpus"
	"github.com/phobologic/javamap/internal/discover"
	"github.com/phobologic/javamap/internal/parse"
)

// FileName is the config file looked up in the corpus root.
const FileName = ".javamap.yaml"

var validate = validator.New()

// Config holds every tunable. Zero windows take the matcher defaults.
type Config struct {
	// Depth is the reverse-dependency recursion depth.
	Depth int `yaml:"depth" validate:"gte=0"`
	// PerLevelLimit caps references per level; 0 means no cap.
	PerLevelLimit int  `yaml:"per_level_limit" validate:"gte=0"`
	IncludeTests  bool `yaml:"include_tests"`
	// Workers bounds the worker pools; 0 means GOMAXPROCS.
	Workers      int           `yaml:"workers" validate:"gte=0"`
	Windows      parse.Windows `yaml:"windows"`
	TestSuffixes []string      `yaml:"test_suffixes" validate:"dive,required"`
	SourceRoots  []string      `yaml:"source_roots" validate:"min=1,dive,required"`
	// MaxFileSize skips larger files; negative disables the check.
	MaxFileSize int64 `yaml:"max_file_size"`
	Cache       Cache `yaml:"cache"`
}

// Cache configures the per-file result cache.
type Cache struct {
	Enabled bool `yaml:"enabled"`
	// Path is relative to the corpus root unless absolute.
	Path string `yaml:"path" validate:"required_if=Enabled true"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Depth:        1,
		Windows:      parse.DefaultWindows(),
		TestSuffixes: append([]string(nil), discover.DefaultTestSuffixes...),
		SourceRoots:  []string{"src/main/java"},
		MaxFileSize:  corpus.DefaultMaxFileSize,
		Cache:        Cache{Path: filepath.Join(".javamap", "cache")},
	}
}

// Load reads the config at path. An empty path looks for FileName in root
// and falls back to Default when it is absent; an explicit path must exist.
// Values missing from the file keep their defaults.
func Load(path, root string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = filepath.Join(root, FileName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// CachePath resolves the cache directory against root.
func (c Config) CachePath(root string) string {
	if filepath.IsAbs(c.Cache.Path) {
		return c.Cache.Path
	}
	return filepath.Join(root, c.Cache.Path)
}

// Write saves c as YAML.
func (c Config) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
