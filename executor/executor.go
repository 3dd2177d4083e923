// Package executor runs external programs with output capture, environment
// control, and per-invocation timeouts. The release pipeline delegates
// compilation and optimization to external toolchains; this package is the
// single place that touches os/exec.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Result holds the captured output and exit status of a command run.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes external commands. Toolchain implementations depend on
// this interface so tests can substitute a fake.
type Runner interface {
	Run(ctx context.Context, program string, args []string, opts ...Option) (*Result, error)
}

// Options configures a single command invocation.
type Options struct {
	// WorkingDir is the directory the command runs in. Empty means the
	// current process directory.
	WorkingDir string

	// Env is appended to the current process environment.
	Env map[string]string

	// Timeout bounds the invocation. Zero means no timeout beyond the
	// caller's context.
	Timeout time.Duration

	// Stdin is fed to the command's standard input when non-empty.
	Stdin string
}

// Option mutates Options.
type Option func(*Options)

// WithWorkingDir sets the command working directory.
func WithWorkingDir(dir string) Option {
	return func(o *Options) { o.WorkingDir = dir }
}

// WithEnv appends environment variables to the invocation.
func WithEnv(env map[string]string) Option {
	return func(o *Options) {
		if o.Env == nil {
			o.Env = make(map[string]string, len(env))
		}
		for k, v := range env {
			o.Env[k] = v
		}
	}
}

// WithTimeout bounds the invocation duration.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.Timeout = d }
}

// WithStdin feeds input to the command.
func WithStdin(input string) Option {
	return func(o *Options) { o.Stdin = input }
}

// CommandRunner is the os/exec backed Runner.
type CommandRunner struct{}

// New returns a Runner backed by os/exec.
func New() *CommandRunner {
	return &CommandRunner{}
}

// Run executes program with args and returns the captured result. A
// non-zero exit status is reported as an error; the Result is still
// populated so callers can surface the toolchain's stderr verbatim.
// The command is killed when ctx is cancelled or the timeout elapses.
func (r *CommandRunner) Run(
	ctx context.Context,
	program string,
	args []string,
	opts ...Option,
) (*Result, error) {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, program, args...)

	if options.WorkingDir != "" {
		cmd.Dir = options.WorkingDir
	}
	if len(options.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range options.Env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}
	if options.Stdin != "" {
		cmd.Stdin = bytes.NewBufferString(options.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode(err),
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, fmt.Errorf("command %s timed out or was cancelled: %w", program, ctxErr)
		}
		return result, fmt.Errorf("command %s failed: %w", program, err)
	}
	return result, nil
}

// exitCode extracts the process exit status from a Run error. -1 means
// the process did not run to completion.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
