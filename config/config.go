// Package config handles scrap.toml tool configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"

	"github.com/chazu/scrap/pkg/ir"

	_ "github.com/tliron/commonlog/simple"
)

// FileName is the name of the configuration file.
const FileName = "scrap.toml"

// Config represents a scrap.toml configuration.
type Config struct {
	Validate ValidateConfig `toml:"validate"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Log      LogConfig      `toml:"log"`

	// Dir is the directory containing the scrap.toml file (set at load time).
	Dir string `toml:"-"`
}

// ValidateConfig selects which IR checks run.
type ValidateConfig struct {
	SkipDataflow     bool `toml:"skip-dataflow"`
	AllowFallthrough bool `toml:"allow-fallthrough"`
}

// PipelineConfig configures batch validation.
type PipelineConfig struct {
	Workers int `toml:"workers"`
}

// LogConfig configures commonlog output.
type LogConfig struct {
	// Verbosity follows commonlog: 0 logs info and above, 1 adds debug,
	// negative values are quieter.
	Verbosity int    `toml:"verbosity"`
	Path      string `toml:"path"`
}

// Default returns the configuration used when no scrap.toml exists.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Pipeline.Workers <= 0 {
		c.Pipeline.Workers = runtime.GOMAXPROCS(0)
	}
}

// Load parses a scrap.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	if c.Log.Path != "" && !filepath.IsAbs(c.Log.Path) {
		c.Log.Path = filepath.Join(c.Dir, c.Log.Path)
	}
	return c, nil
}

// Parse decodes scrap.toml content. Unknown keys are rejected so typos
// do not silently fall back to defaults.
func Parse(data []byte) (*Config, error) {
	var c Config
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q", undecoded[0].String())
	}
	c.applyDefaults()
	return &c, nil
}

// FindAndLoad walks up from startDir to find a scrap.toml file,
// then loads and returns the config. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// ValidateOptions translates the [validate] table into ir.Validate options.
func (c *Config) ValidateOptions() []ir.Option {
	var opts []ir.Option
	if c.Validate.SkipDataflow {
		opts = append(opts, ir.WithoutDataflow())
	}
	if c.Validate.AllowFallthrough {
		opts = append(opts, ir.AllowFallthrough())
	}
	return opts
}

// ConfigureLogging applies the [log] table to commonlog.
func (c *Config) ConfigureLogging() {
	var path *string
	if c.Log.Path != "" {
		path = &c.Log.Path
	}
	commonlog.Configure(c.Log.Verbosity, path)
}
