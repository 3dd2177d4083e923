package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
release:
  owner: strellerminds
  repo: contracts
`

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimal))
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.Repo)
	assert.Equal(t, "contracts.yaml", cfg.Registry)
	assert.Equal(t, "dist", cfg.Dist)
	assert.Equal(t, "GITHUB_TOKEN", cfg.Release.TokenEnv)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestParseFull(t *testing.T) {
	cfg, err := Parse([]byte(`
repo: /srv/contracts
registry: release/contracts.yaml
dist: out
toolchain:
  cargo: /usr/local/bin/cargo
  target: wasm32-unknown-unknown
  wasm_opt: wasm-opt
  wasm_opt_args: ["-Oz"]
  build_timeout: 15m
  optimize_timeout: 90s
release:
  owner: strellerminds
  repo: contracts
  token_env: RELEASE_TOKEN
  base_url: https://github.internal/api/v3
log:
  level: debug
  format: json
`))
	require.NoError(t, err)

	assert.Equal(t, "/srv/contracts", cfg.Repo)
	assert.Equal(t, 15*time.Minute, cfg.Toolchain.BuildTimeout.Std())
	assert.Equal(t, 90*time.Second, cfg.Toolchain.OptimizeTimeout.Std())
	assert.Equal(t, []string{"-Oz"}, cfg.Toolchain.WasmOptArgs)
	assert.Equal(t, "RELEASE_TOKEN", cfg.Release.TokenEnv)
	assert.Equal(t, "https://github.internal/api/v3", cfg.Release.BaseURL)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad log format", minimal + "log:\n  format: xml\n"},
		{"bad duration", minimal + "toolchain:\n  build_timeout: soon\n"},
		{"malformed yaml", "release: ["},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestValidateRelease(t *testing.T) {
	// Local dry runs do not talk to the hosting service, so a config
	// without release coordinates still parses.
	cfg, err := Parse([]byte("dist: out\n"))
	require.NoError(t, err)
	assert.Error(t, cfg.ValidateRelease())

	cfg, err = Parse([]byte(minimal))
	require.NoError(t, err)
	assert.NoError(t, cfg.ValidateRelease())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "release.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimal), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "strellerminds", cfg.Release.Owner)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestToken(t *testing.T) {
	cfg, err := Parse([]byte("release:\n  owner: o\n  repo: r\n  token_env: TEST_RELEASE_TOKEN\n"))
	require.NoError(t, err)

	t.Setenv("TEST_RELEASE_TOKEN", "secret")
	assert.Equal(t, "secret", cfg.Token())
}
