package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xyproto/env/v2"
	"gopkg.in/yaml.v3"

	"constfold/internal/ir"
)

// DefaultPath is read when no explicit configuration file is given
const DefaultPath = ".constfold.yaml"

// Config controls which passes run and how results are reported
type Config struct {
	Passes       []string `yaml:"passes"`
	Verify       bool     `yaml:"verify"`
	Verbosity    int      `yaml:"verbosity"`
	Color        bool     `yaml:"color"`
	AnnotateDead bool     `yaml:"annotate_dead"`
}

// Default returns the configuration used when nothing else is set
func Default() *Config {
	return &Config{
		Passes: []string{"fold-constants"},
		Color:  true,
	}
}

// Load reads the YAML file at path on top of the defaults and then applies
// environment overrides. An empty path means DefaultPath, which may be absent.
func Load(path string) (*Config, error) {
	cfg := Default()

	optional := path == ""
	if optional {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case optional && errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv() {
	if passes := env.Str("CONSTFOLD_PASSES"); passes != "" {
		c.Passes = splitList(passes)
	}
	if env.Str("CONSTFOLD_VERIFY") != "" {
		c.Verify = env.Bool("CONSTFOLD_VERIFY")
	}
	c.Verbosity = env.Int("CONSTFOLD_VERBOSITY", c.Verbosity)
	if env.Str("CONSTFOLD_ANNOTATE_DEAD") != "" {
		c.AnnotateDead = env.Bool("CONSTFOLD_ANNOTATE_DEAD")
	}
	// https://no-color.org: any non-empty value disables color
	if env.Str("NO_COLOR") != "" {
		c.Color = false
	}
}

// Validate checks pass names and numeric ranges
func (c *Config) Validate() error {
	if len(c.Passes) == 0 {
		return errors.New("config: at least one pass is required")
	}

	known := make(map[string]bool)
	for _, name := range ir.PassNames() {
		known[name] = true
	}
	for _, name := range c.Passes {
		if !known[name] {
			return fmt.Errorf("config: unknown pass %q (available: %s)", name, strings.Join(ir.PassNames(), ", "))
		}
	}

	if c.Verbosity < 0 {
		return fmt.Errorf("config: verbosity must not be negative, got %d", c.Verbosity)
	}
	return nil
}

// PipelinePasses returns the pass names to run, adding a trailing verify
// pass when Verify is set and the list does not already end with one
func (c *Config) PipelinePasses() []string {
	passes := append([]string(nil), c.Passes...)
	if c.Verify && (len(passes) == 0 || passes[len(passes)-1] != "verify") {
		passes = append(passes, "verify")
	}
	return passes
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
