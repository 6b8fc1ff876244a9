// Package config handles tbc.toml runtime configuration.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/KamikazeJones/tiny-bytecode/vm"
)

const (
	FileName = "tbc.toml"

	defaultListen  = ":8080"
	defaultMaxBody = "64K"
)

type Config struct {
	// MaxSteps is the step ceiling of a run.
	MaxSteps int `toml:"max_steps"`
	// StackDepth bounds both stacks; zero leaves them unbounded.
	StackDepth int `toml:"stack_depth"`

	Log    Log    `toml:"log"`
	Server Server `toml:"server"`
}

type Log struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

type Server struct {
	Listen  string `toml:"listen"`
	MaxBody string `toml:"max_body"`
	// MaxSteps caps what a request may ask for.
	MaxSteps int `toml:"max_steps"`
}

func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load parses the file at path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return Parse(string(data))
}

func Parse(data string) (*Config, error) {
	var c Config
	md, err := toml.Decode(data, &c)
	if err != nil {
		return nil, fmt.Errorf("parse error in config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.MaxSteps == 0 {
		c.MaxSteps = vm.DefaultStepLimit
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Server.Listen == "" {
		c.Server.Listen = defaultListen
	}
	if c.Server.MaxBody == "" {
		c.Server.MaxBody = defaultMaxBody
	}
	if c.Server.MaxSteps == 0 {
		c.Server.MaxSteps = c.MaxSteps
	}
}

func (c *Config) validate() error {
	if c.MaxSteps < 0 {
		return fmt.Errorf("max_steps must not be negative, got %d", c.MaxSteps)
	}
	if c.StackDepth < 0 {
		return fmt.Errorf("stack_depth must not be negative, got %d", c.StackDepth)
	}
	if c.Server.MaxSteps < 0 {
		return fmt.Errorf("server.max_steps must not be negative, got %d", c.Server.MaxSteps)
	}
	if c.Log.Level != "" {
		if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
	}
	return nil
}

// VMOpts translates the config into VM options.
func (c *Config) VMOpts() []vm.VMOpt {
	opts := []vm.VMOpt{vm.StepLimitOpt(c.MaxSteps)}
	if c.StackDepth > 0 {
		opts = append(opts, vm.StackOpts(vm.MaxStack(c.StackDepth)))
	}
	return opts
}

// Logger builds the zap logger described by the log section.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	// stdout belongs to the running program
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}
