// Package config loads the release pipeline configuration file. The file
// lives next to the contract registry in the contracts repository and
// carries everything a run needs besides the tag: paths, toolchain
// commands and timeouts, hosting coordinates, and logging.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full pipeline configuration.
type Config struct {
	// Repo is the contracts repository path. Defaults to ".".
	Repo string `yaml:"repo"`

	// Registry is the contract registry file path, relative to Repo.
	// Defaults to "contracts.yaml".
	Registry string `yaml:"registry"`

	// Dist is the local bundle directory, relative to Repo.
	// Defaults to "dist".
	Dist string `yaml:"dist"`

	Toolchain ToolchainConfig `yaml:"toolchain"`
	Release   ReleaseConfig   `yaml:"release"`
	Log       LogConfig       `yaml:"log"`
}

// ToolchainConfig names the external build and optimize tools.
type ToolchainConfig struct {
	Cargo           string   `yaml:"cargo"`
	Target          string   `yaml:"target"`
	WasmOpt         string   `yaml:"wasm_opt"`
	WasmOptArgs     []string `yaml:"wasm_opt_args"`
	BuildTimeout    Duration `yaml:"build_timeout"`
	OptimizeTimeout Duration `yaml:"optimize_timeout"`
}

// ReleaseConfig locates the hosting service.
type ReleaseConfig struct {
	// Owner and Repo identify the hosted repository the release is
	// created on.
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`

	// TokenEnv names the environment variable holding the hosting
	// credential. The token itself never appears in the file.
	// Defaults to "GITHUB_TOKEN".
	TokenEnv string `yaml:"token_env"`

	// BaseURL overrides the hosting API endpoint. Empty means the
	// public endpoint.
	BaseURL string `yaml:"base_url"`
}

// LogConfig selects the log handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Duration is a time.Duration that unmarshals from yaml strings like
// "90s" or "10m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Load reads, defaults, and validates the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes configuration yaml, applies defaults, and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Repo == "" {
		c.Repo = "."
	}
	if c.Registry == "" {
		c.Registry = "contracts.yaml"
	}
	if c.Dist == "" {
		c.Dist = "dist"
	}
	if c.Release.TokenEnv == "" {
		c.Release.TokenEnv = "GITHUB_TOKEN"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate rejects malformed configurations. Hosting coordinates are
// checked separately by ValidateRelease: a dry run publishes locally and
// does not need them.
func (c *Config) Validate() error {
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// ValidateRelease checks the coordinates the remote hosting service
// requires.
func (c *Config) ValidateRelease() error {
	if c.Release.Owner == "" || c.Release.Repo == "" {
		return errors.New("release.owner and release.repo are required")
	}
	return nil
}

// Token resolves the hosting credential from the environment.
func (c *Config) Token() string {
	return os.Getenv(c.Release.TokenEnv)
}
