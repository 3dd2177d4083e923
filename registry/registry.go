// Package registry enumerates the contract units the pipeline builds. The
// registry is a yaml file checked into the contracts repository; each entry
// names a contract and the cargo crate that compiles to its wasm artifact.
package registry

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrDuplicateContract is returned when two registry entries share a
// contract name. Check with errors.Is().
var ErrDuplicateContract = errors.New("duplicate contract name")

// Unit is a single registered contract. The pipeline treats it as an
// opaque compilable unit; its source is never inspected.
type Unit struct {
	// Name identifies the contract and prefixes its artifact file name.
	Name string `yaml:"name"`

	// Crate is the cargo package that produces the contract's wasm.
	// Defaults to Name.
	Crate string `yaml:"crate,omitempty"`

	// Path is the contract source directory relative to the repository
	// root. Informational; the build runs from the workspace root.
	Path string `yaml:"path,omitempty"`
}

// Registry is the ordered set of contract units for a release.
type Registry struct {
	Contracts []Unit `yaml:"contracts"`
}

// Load reads and validates a registry file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes registry yaml and validates it.
func Parse(data []byte) (*Registry, error) {
	var r Registry
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse registry: %w", err)
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	r.applyDefaults()
	return &r, nil
}

func (r *Registry) validate() error {
	if len(r.Contracts) == 0 {
		return errors.New("registry lists no contracts")
	}

	seen := make(map[string]struct{}, len(r.Contracts))
	for i, u := range r.Contracts {
		if u.Name == "" {
			return fmt.Errorf("registry entry %d has no name", i)
		}
		if _, ok := seen[u.Name]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateContract, u.Name)
		}
		seen[u.Name] = struct{}{}
	}
	return nil
}

func (r *Registry) applyDefaults() {
	for i := range r.Contracts {
		if r.Contracts[i].Crate == "" {
			r.Contracts[i].Crate = r.Contracts[i].Name
		}
	}
}
