package toolchain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ISTIFANUS-N/strellerminds-release/executor"
	"github.com/ISTIFANUS-N/strellerminds-release/registry"
)

// fakeRunner scripts command outcomes and optionally mimics the side
// effects of the real toolchain (writing artifact files).
type fakeRunner struct {
	onRun func(program string, args []string) (*executor.Result, error)
	calls [][]string
}

func (f *fakeRunner) Run(
	ctx context.Context,
	program string,
	args []string,
	opts ...executor.Option,
) (*executor.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.calls = append(f.calls, append([]string{program}, args...))
	return f.onRun(program, args)
}

func TestCargoCompilerCompile(t *testing.T) {
	workspace := t.TempDir()
	wasm := []byte("\x00asm raw certificate module")

	runner := &fakeRunner{
		onRun: func(program string, args []string) (*executor.Result, error) {
			// Mimic cargo dropping the artifact into the target dir.
			dir := filepath.Join(workspace, "target", DefaultWasmTarget, "release")
			require.NoError(t, os.MkdirAll(dir, 0o755))
			require.NoError(t, os.WriteFile(filepath.Join(dir, "certificate.wasm"), wasm, 0o644))
			return &executor.Result{}, nil
		},
	}

	compiler := NewCargoCompiler(workspace)
	compiler.Runner = runner

	got, err := compiler.Compile(context.Background(), registry.Unit{Name: "certificate", Crate: "certificate"})
	require.NoError(t, err)
	assert.Equal(t, wasm, got)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{
		"cargo", "build", "--release",
		"--target", DefaultWasmTarget,
		"--package", "certificate",
	}, runner.calls[0])
}

func TestCargoCompilerHyphenatedCrate(t *testing.T) {
	workspace := t.TempDir()

	runner := &fakeRunner{
		onRun: func(program string, args []string) (*executor.Result, error) {
			dir := filepath.Join(workspace, "target", DefaultWasmTarget, "release")
			require.NoError(t, os.MkdirAll(dir, 0o755))
			// Cargo converts hyphens to underscores in artifact names.
			require.NoError(t, os.WriteFile(filepath.Join(dir, "student_progress.wasm"), []byte("wasm"), 0o644))
			return &executor.Result{}, nil
		},
	}

	compiler := NewCargoCompiler(workspace)
	compiler.Runner = runner

	got, err := compiler.Compile(context.Background(), registry.Unit{Name: "progress", Crate: "student-progress"})
	require.NoError(t, err)
	assert.Equal(t, []byte("wasm"), got)
}

func TestCargoCompilerBuildFailure(t *testing.T) {
	runner := &fakeRunner{
		onRun: func(program string, args []string) (*executor.Result, error) {
			return &executor.Result{Stderr: "error[E0308]: mismatched types", ExitCode: 101},
				errors.New("command cargo failed: exit status 101")
		},
	}

	compiler := NewCargoCompiler(t.TempDir())
	compiler.Runner = runner

	_, err := compiler.Compile(context.Background(), registry.Unit{Name: "certificate", Crate: "certificate"})
	require.Error(t, err)

	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, "certificate", buildErr.Contract)
	assert.Contains(t, buildErr.Output, "mismatched types")
	assert.Contains(t, buildErr.Error(), "certificate")
	assert.Contains(t, buildErr.Error(), "mismatched types")
}

func TestCargoCompilerMissingArtifact(t *testing.T) {
	runner := &fakeRunner{
		onRun: func(program string, args []string) (*executor.Result, error) {
			return &executor.Result{}, nil // cargo "succeeds" but writes nothing
		},
	}

	compiler := NewCargoCompiler(t.TempDir())
	compiler.Runner = runner

	_, err := compiler.Compile(context.Background(), registry.Unit{Name: "proxy", Crate: "proxy"})
	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, "proxy", buildErr.Contract)
}

func TestWasmOptOptimize(t *testing.T) {
	// Mimic wasm-opt: read the input file from args, write a transformed
	// copy to the -o path. The transformation is deterministic, so two
	// passes over the same input produce identical bytes.
	runner := &fakeRunner{
		onRun: func(program string, args []string) (*executor.Result, error) {
			var in, out string
			for i, a := range args {
				if a == "-o" && i+1 < len(args) {
					in, out = args[i-1], args[i+1]
				}
			}
			data, err := os.ReadFile(in)
			if err != nil {
				return nil, err
			}
			return &executor.Result{}, os.WriteFile(out, append([]byte("opt:"), data...), 0o644)
		},
	}

	opt := NewWasmOptOptimizer()
	opt.Runner = runner

	raw := []byte("\x00asm module")
	first, err := opt.Optimize(context.Background(), "certificate", raw)
	require.NoError(t, err)
	assert.Equal(t, append([]byte("opt:"), raw...), first)

	second, err := opt.Optimize(context.Background(), "certificate", raw)
	require.NoError(t, err)
	assert.Equal(t, first, second, "optimizer must be idempotent for fixed input")
}

func TestWasmOptOptimizeFailure(t *testing.T) {
	runner := &fakeRunner{
		onRun: func(program string, args []string) (*executor.Result, error) {
			return &executor.Result{Stderr: "parse exception: bad magic"},
				errors.New("command wasm-opt failed: exit status 1")
		},
	}

	opt := NewWasmOptOptimizer()
	opt.Runner = runner

	_, err := opt.Optimize(context.Background(), "proxy", []byte("not wasm"))
	require.Error(t, err)

	var optErr *OptimizeError
	require.ErrorAs(t, err, &optErr)
	assert.Equal(t, "proxy", optErr.Contract)
	assert.Contains(t, optErr.Output, "bad magic")
}
