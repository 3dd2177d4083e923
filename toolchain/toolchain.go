// Package toolchain abstracts the external programs that turn contract
// sources into release-ready wasm: the compiler that produces raw
// artifacts and the optimizer that post-processes them. Both are modelled
// as small capability interfaces so tests can substitute deterministic
// fakes instead of invoking real toolchains.
package toolchain

import (
	"context"
	"fmt"
	"strings"

	"github.com/ISTIFANUS-N/strellerminds-release/registry"
)

// Compiler builds one contract unit into raw wasm bytes.
type Compiler interface {
	Compile(ctx context.Context, unit registry.Unit) ([]byte, error)
}

// Optimizer post-processes raw wasm into its optimized form. It must be
// idempotent: optimizing the same input twice yields byte-identical
// output, which reproducible-build verification depends on.
type Optimizer interface {
	Optimize(ctx context.Context, contract string, wasm []byte) ([]byte, error)
}

// BuildError reports a failed compilation. Output carries the toolchain's
// message verbatim so operators can diagnose without re-running.
type BuildError struct {
	Contract string
	Output   string
	Err      error
}

func (e *BuildError) Error() string {
	msg := fmt.Sprintf("build failed for contract %s", e.Contract)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

func (e *BuildError) Unwrap() error { return e.Err }

// OptimizeError reports a failed optimization pass.
type OptimizeError struct {
	Contract string
	Output   string
	Err      error
}

func (e *OptimizeError) Error() string {
	msg := fmt.Sprintf("optimization failed for contract %s", e.Contract)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

func (e *OptimizeError) Unwrap() error { return e.Err }
