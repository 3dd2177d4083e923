package toolchain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ISTIFANUS-N/strellerminds-release/executor"
	"github.com/ISTIFANUS-N/strellerminds-release/registry"
)

const (
	// DefaultCargoProgram is the cargo binary used for contract builds.
	DefaultCargoProgram = "cargo"

	// DefaultWasmTarget is the compilation target for Soroban contracts.
	DefaultWasmTarget = "wasm32-unknown-unknown"

	// DefaultBuildTimeout bounds a single contract build.
	DefaultBuildTimeout = 10 * time.Minute
)

// CargoCompiler compiles contract crates with cargo. One invocation per
// contract; builds are deterministic given identical sources and a pinned
// toolchain, which the surrounding workspace is responsible for.
type CargoCompiler struct {
	// Runner executes cargo. Defaults to the os/exec runner.
	Runner executor.Runner

	// WorkspaceDir is the cargo workspace root of the contracts repository.
	WorkspaceDir string

	// Program overrides the cargo binary. Defaults to DefaultCargoProgram.
	Program string

	// Target overrides the wasm target triple. Defaults to DefaultWasmTarget.
	Target string

	// Timeout bounds each build. Defaults to DefaultBuildTimeout.
	Timeout time.Duration
}

// NewCargoCompiler returns a compiler for the given cargo workspace.
func NewCargoCompiler(workspaceDir string) *CargoCompiler {
	return &CargoCompiler{
		Runner:       executor.New(),
		WorkspaceDir: workspaceDir,
		Program:      DefaultCargoProgram,
		Target:       DefaultWasmTarget,
		Timeout:      DefaultBuildTimeout,
	}
}

// Compile builds the unit's crate in release mode and returns the produced
// wasm bytes. A non-zero cargo outcome yields a *BuildError carrying
// cargo's stderr.
func (c *CargoCompiler) Compile(ctx context.Context, unit registry.Unit) ([]byte, error) {
	program := c.Program
	if program == "" {
		program = DefaultCargoProgram
	}
	target := c.Target
	if target == "" {
		target = DefaultWasmTarget
	}
	timeout := c.Timeout
	if timeout == 0 {
		timeout = DefaultBuildTimeout
	}
	runner := c.Runner
	if runner == nil {
		runner = executor.New()
	}

	args := []string{"build", "--release", "--target", target, "--package", unit.Crate}
	result, err := runner.Run(ctx, program, args,
		executor.WithWorkingDir(c.WorkspaceDir),
		executor.WithTimeout(timeout),
	)
	if err != nil {
		var output string
		if result != nil {
			output = result.Stderr
		}
		return nil, &BuildError{Contract: unit.Name, Output: output, Err: err}
	}

	wasm, err := os.ReadFile(c.artifactPath(unit, target))
	if err != nil {
		return nil, &BuildError{
			Contract: unit.Name,
			Output:   fmt.Sprintf("build succeeded but artifact is missing: %v", err),
			Err:      err,
		}
	}
	return wasm, nil
}

// artifactPath is where cargo places the crate's wasm. Cargo normalizes
// hyphens in crate names to underscores in artifact file names.
func (c *CargoCompiler) artifactPath(unit registry.Unit, target string) string {
	artifact := strings.ReplaceAll(unit.Crate, "-", "_") + ".wasm"
	return filepath.Join(c.WorkspaceDir, "target", target, "release", artifact)
}
