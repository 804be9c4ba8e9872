package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"gopkg.in/yaml.v3"

	"pyarena/internal/limits"
)

const (
	DefaultMaxFrames = 1024
	DefaultVerbosity = 0
)

type Config struct {
	Limits  Limits  `toml:"limits" yaml:"limits"`
	Logging Logging `toml:"logging" yaml:"logging"`
}

// Limits bounds one interpreter instance. Zero means unlimited, except for
// MaxFrames which falls back to DefaultMaxFrames.
type Limits struct {
	MaxMemory      int64 `toml:"max-memory" yaml:"max-memory"`
	MaxAllocations int64 `toml:"max-allocations" yaml:"max-allocations"`
	MaxFrames      int   `toml:"max-frames" yaml:"max-frames"`
}

type Logging struct {
	Verbosity int    `toml:"verbosity" yaml:"verbosity"`
	File      string `toml:"file" yaml:"file"`
}

func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads a TOML or YAML configuration file, chosen by extension.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := &Config{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parse error in %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parse error in %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%s: unsupported config format %q", path, ext)
	}

	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.applyDefaults()
	return c, nil
}

func (c *Config) validate() error {
	switch {
	case c.Limits.MaxMemory < 0:
		return fmt.Errorf("limits.max-memory must not be negative")
	case c.Limits.MaxAllocations < 0:
		return fmt.Errorf("limits.max-allocations must not be negative")
	case c.Limits.MaxFrames < 0:
		return fmt.Errorf("limits.max-frames must not be negative")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Limits.MaxFrames == 0 {
		c.Limits.MaxFrames = DefaultMaxFrames
	}
}

// Policy builds the resource policy charged on every allocation.
func (c *Config) Policy() limits.Policy {
	var chain limits.Chain
	if c.Limits.MaxMemory > 0 {
		chain = append(chain, limits.NewBudget(c.Limits.MaxMemory))
	}
	if c.Limits.MaxAllocations > 0 {
		chain = append(chain, limits.NewAllocBudget(c.Limits.MaxAllocations))
	}
	switch len(chain) {
	case 0:
		return limits.Unlimited
	case 1:
		return chain[0]
	}
	return chain
}

// ConfigureLogging sends log output to the configured file, or stderr when
// none is set.
func (c *Config) ConfigureLogging() {
	var path *string
	if c.Logging.File != "" {
		path = &c.Logging.File
	}
	commonlog.Configure(c.Logging.Verbosity, path)
}
