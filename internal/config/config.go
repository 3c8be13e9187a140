// Package config loads chartpack.yaml and its environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/dosanma1/chartpack/internal/chart"
	"github.com/dosanma1/chartpack/internal/compiler"
	"github.com/dosanma1/chartpack/internal/deployer"
	"github.com/dosanma1/chartpack/pkg/xos"
)

// FileName is the default configuration file name.
const FileName = "chartpack.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CHARTPACK_"

// Config represents the chartpack.yaml configuration file.
type Config struct {
	// Layout of chart sources and build output
	Layout LayoutConfig `yaml:"layout" envPrefix:"LAYOUT_"`

	// Compiler settings
	Compiler CompilerConfig `yaml:"compiler" envPrefix:"COMPILER_"`

	// Descriptor settings
	Descriptor DescriptorConfig `yaml:"descriptor" envPrefix:"DESCRIPTOR_"`

	// Deployer selects the deploy target implementation
	Deployer string `yaml:"deployer" env:"DEPLOYER"`

	// Remote repository service
	Remote deployer.Config `yaml:"remote" envPrefix:"REMOTE_"`
}

// LayoutConfig holds source and output locations.
type LayoutConfig struct {
	SourceRoot     string `yaml:"source_root" env:"SOURCE_ROOT"`
	OutputRoot     string `yaml:"output_root" env:"OUTPUT_ROOT"`
	EntryFile      string `yaml:"entry_file" env:"ENTRY_FILE"`
	DescriptorFile string `yaml:"descriptor_file" env:"DESCRIPTOR_FILE"`
}

// CompilerConfig holds compiler settings.
type CompilerConfig struct {
	Kind      string        `yaml:"kind" env:"KIND"` // esbuild, command
	Command   []string      `yaml:"command,omitempty" env:"COMMAND"`
	Minify    bool          `yaml:"minify" env:"MINIFY"`
	Sourcemap bool          `yaml:"sourcemap" env:"SOURCEMAP"`
	Debounce  time.Duration `yaml:"debounce" env:"DEBOUNCE"`
}

// DescriptorConfig holds descriptor settings.
type DescriptorConfig struct {
	// SkipValidation disables the schema check before copying.
	SkipValidation bool `yaml:"skip_validation" env:"SKIP_VALIDATION"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

// Load reads path, applies environment overrides from environ and validates
// the result. A missing file yields the defaults; a nil environ applies no
// overrides.
func Load(path string, environ map[string]string) (*Config, error) {
	var config Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		slog.Debug("config file not found, using defaults", "path", path)
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// Environment overrides
	if environ == nil {
		environ = map[string]string{}
	}
	if err := env.ParseWithOptions(&config, env.Options{
		Environment: environ,
		Prefix:      EnvPrefix,
	}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	// Apply defaults
	config.applyDefaults()

	// Validate
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Save writes the config to a file, replacing it atomically.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := xos.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Compiler.Kind == "command" && len(c.Compiler.Command) == 0 {
		return fmt.Errorf("compiler.command is required for the command compiler")
	}
	if c.Compiler.Debounce < 0 {
		return fmt.Errorf("compiler.debounce must not be negative")
	}

	if c.Remote.BaseURL != "" {
		if err := validateBaseURL(c.Remote.BaseURL); err != nil {
			return err
		}
	}
	if c.Remote.Xrfkey != "" && !validXrfkey(c.Remote.Xrfkey) {
		return fmt.Errorf("remote.xrfkey must be %d alphanumeric characters", deployer.XrfkeyLength)
	}
	if c.Remote.Timeout < 0 {
		return fmt.Errorf("remote.timeout must not be negative")
	}
	if (c.Remote.TLS.Cert == "") != (c.Remote.TLS.Key == "") {
		return fmt.Errorf("remote.tls.cert and remote.tls.key must be set together")
	}

	return nil
}

// ValidateDeploy checks the settings a deploy needs on top of Validate.
func (c *Config) ValidateDeploy() error {
	if c.Remote.BaseURL == "" {
		return fmt.Errorf("remote.base_url is required to deploy (or set %sREMOTE_BASE_URL)", EnvPrefix)
	}
	return validateBaseURL(c.Remote.BaseURL)
}

// applyDefaults sets default values for missing fields.
func (c *Config) applyDefaults() {
	layout := chart.DefaultLayout()
	if c.Layout.SourceRoot == "" {
		c.Layout.SourceRoot = layout.SourceRoot
	}
	if c.Layout.OutputRoot == "" {
		c.Layout.OutputRoot = layout.OutputRoot
	}
	if c.Layout.EntryFile == "" {
		c.Layout.EntryFile = layout.EntryFile
	}
	if c.Layout.DescriptorFile == "" {
		c.Layout.DescriptorFile = layout.DescriptorFile
	}

	if c.Compiler.Kind == "" {
		c.Compiler.Kind = "esbuild"
	}
	if c.Compiler.Debounce == 0 {
		c.Compiler.Debounce = 100 * time.Millisecond
	}

	if c.Deployer == "" {
		c.Deployer = "qrs"
	}
	if c.Remote.Prefix == "" {
		c.Remote.Prefix = "hdr"
	}
	if c.Remote.UserHeader == "" {
		c.Remote.UserHeader = "hdr-usr"
	}
	if c.Remote.Timeout == 0 {
		c.Remote.Timeout = 60 * time.Second
	}
}

// ChartLayout returns the configured layout.
func (c *Config) ChartLayout() chart.Layout {
	return chart.Layout{
		SourceRoot:     c.Layout.SourceRoot,
		OutputRoot:     c.Layout.OutputRoot,
		EntryFile:      c.Layout.EntryFile,
		DescriptorFile: c.Layout.DescriptorFile,
	}
}

// CompilerOptions returns the options for compiler.New.
func (c *Config) CompilerOptions(logger *slog.Logger, color bool) compiler.Options {
	return compiler.Options{
		Kind:      c.Compiler.Kind,
		Command:   c.Compiler.Command,
		Minify:    c.Compiler.Minify,
		Sourcemap: c.Compiler.Sourcemap,
		Color:     color,
		Debounce:  c.Compiler.Debounce,
		Logger:    logger,
	}
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("remote.base_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("remote.base_url must be an absolute http(s) URL, got %q", raw)
	}
	return nil
}

func validXrfkey(key string) bool {
	if len(key) != deployer.XrfkeyLength {
		return false
	}
	for _, r := range key {
		if !(r >= 'a' && r <= 'z') && !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
