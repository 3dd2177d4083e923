package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name        string
		yaml        string
		expectError bool
		validate    func(t *testing.T, r *Registry)
	}{
		{
			name: "full entries",
			yaml: `
contracts:
  - name: certificate
    crate: certificate
    path: contracts/certificate
  - name: proxy
    crate: proxy
    path: contracts/proxy
`,
			validate: func(t *testing.T, r *Registry) {
				require.Len(t, r.Contracts, 2)
				assert.Equal(t, "certificate", r.Contracts[0].Name)
				assert.Equal(t, "proxy", r.Contracts[1].Name)
			},
		},
		{
			name: "crate defaults to name",
			yaml: `
contracts:
  - name: certificate
`,
			validate: func(t *testing.T, r *Registry) {
				require.Len(t, r.Contracts, 1)
				assert.Equal(t, "certificate", r.Contracts[0].Crate)
			},
		},
		{
			name: "duplicate names rejected",
			yaml: `
contracts:
  - name: certificate
  - name: certificate
`,
			expectError: true,
		},
		{
			name:        "empty registry rejected",
			yaml:        `contracts: []`,
			expectError: true,
		},
		{
			name: "nameless entry rejected",
			yaml: `
contracts:
  - crate: certificate
`,
			expectError: true,
		},
		{
			name:        "malformed yaml",
			yaml:        `contracts: [`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Parse([]byte(tt.yaml))
			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validate(t, r)
		})
	}
}

func TestParseDuplicateSentinel(t *testing.T) {
	_, err := Parse([]byte("contracts:\n  - name: a\n  - name: a\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateContract)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contracts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("contracts:\n  - name: certificate\n"), 0o644))

	r, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, r.Contracts, 1)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
