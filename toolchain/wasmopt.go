package toolchain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ISTIFANUS-N/strellerminds-release/executor"
)

const (
	// DefaultWasmOptProgram is the binaryen optimizer binary.
	DefaultWasmOptProgram = "wasm-opt"

	// DefaultOptimizeTimeout bounds a single optimization pass.
	DefaultOptimizeTimeout = 2 * time.Minute
)

// DefaultWasmOptArgs is the fixed optimization flag set. Keeping the flags
// fixed is what makes the pass idempotent: wasm-opt is deterministic for a
// given input and flag set, and an already-optimized module re-optimizes
// to the same bytes.
var DefaultWasmOptArgs = []string{"-Oz", "--strip-debug", "--strip-producers"}

// WasmOptOptimizer shrinks wasm artifacts with binaryen's wasm-opt.
// wasm-opt is a file-in/file-out tool, so each pass round-trips through a
// private temp directory.
type WasmOptOptimizer struct {
	// Runner executes wasm-opt. Defaults to the os/exec runner.
	Runner executor.Runner

	// Program overrides the wasm-opt binary. Defaults to DefaultWasmOptProgram.
	Program string

	// Args overrides the optimization flags. Defaults to DefaultWasmOptArgs.
	Args []string

	// Timeout bounds each pass. Defaults to DefaultOptimizeTimeout.
	Timeout time.Duration
}

// NewWasmOptOptimizer returns an optimizer with the default flag set.
func NewWasmOptOptimizer() *WasmOptOptimizer {
	return &WasmOptOptimizer{
		Runner:  executor.New(),
		Program: DefaultWasmOptProgram,
		Args:    DefaultWasmOptArgs,
		Timeout: DefaultOptimizeTimeout,
	}
}

// Optimize runs wasm-opt over the raw module and returns the optimized
// bytes. Failures yield a *OptimizeError carrying the tool's stderr.
func (o *WasmOptOptimizer) Optimize(ctx context.Context, contract string, wasm []byte) ([]byte, error) {
	program := o.Program
	if program == "" {
		program = DefaultWasmOptProgram
	}
	args := o.Args
	if args == nil {
		args = DefaultWasmOptArgs
	}
	timeout := o.Timeout
	if timeout == 0 {
		timeout = DefaultOptimizeTimeout
	}
	runner := o.Runner
	if runner == nil {
		runner = executor.New()
	}

	dir, err := os.MkdirTemp("", "wasm-opt-")
	if err != nil {
		return nil, &OptimizeError{Contract: contract, Err: fmt.Errorf("failed to create temp dir: %w", err)}
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "in.wasm")
	out := filepath.Join(dir, "out.wasm")
	if err := os.WriteFile(in, wasm, 0o600); err != nil {
		return nil, &OptimizeError{Contract: contract, Err: fmt.Errorf("failed to stage input: %w", err)}
	}

	cmdArgs := append(append([]string{}, args...), in, "-o", out)
	result, err := runner.Run(ctx, program, cmdArgs, executor.WithTimeout(timeout))
	if err != nil {
		var output string
		if result != nil {
			output = result.Stderr
		}
		return nil, &OptimizeError{Contract: contract, Output: output, Err: err}
	}

	optimized, err := os.ReadFile(out)
	if err != nil {
		return nil, &OptimizeError{
			Contract: contract,
			Output:   fmt.Sprintf("wasm-opt succeeded but produced no output: %v", err),
			Err:      err,
		}
	}
	return optimized, nil
}
