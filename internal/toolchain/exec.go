// Package toolchain runs the external pipeline tools as subprocesses.
//
// Exec turns a set of per-stage command templates into a stage.Invoker.
// Templates are plain command lines such as
//
//	dotnet run -- --compile {source} --assembler {variant}
//
// where {source} is the test source path and {variant} the selected
// toolchain variant. Environment references ($HOME, ${WSL_DISTRO}) are
// expanded before the command is started.
package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/roach88/ionstest/internal/stage"
)

// ErrTimeout reports a stage that exceeded its time limit.
// Errors wrapping it also match context.DeadlineExceeded.
var ErrTimeout = errors.New("stage timed out")

// Capture selects which output streams are recorded.
type Capture string

const (
	// CaptureCombined records stdout and stderr interleaved.
	CaptureCombined Capture = "combined"

	// CaptureStdout records stdout only; stderr is discarded.
	CaptureStdout Capture = "stdout"
)

// Valid reports whether c is a known capture mode.
func (c Capture) Valid() bool {
	return c == CaptureCombined || c == CaptureStdout
}

// waitDelay bounds how long Wait blocks on inherited pipes after the
// process was killed.
const waitDelay = 2 * time.Second

// Commands holds the command template of each stage.
type Commands struct {
	Transcribe string `yaml:"transcribe" json:"transcribe"`
	Compile    string `yaml:"compile" json:"compile"`
	Execute    string `yaml:"execute" json:"execute"`
}

// For returns the template of stage s.
func (c Commands) For(s stage.Stage) string {
	switch s {
	case stage.Transcription:
		return c.Transcribe
	case stage.Compilation:
		return c.Compile
	case stage.Execution:
		return c.Execute
	default:
		return ""
	}
}

// Exec invokes pipeline stages by running external commands.
//
// Thread-safety: Exec is immutable after construction and safe for
// concurrent use.
type Exec struct {
	variant  string
	commands Commands
	build    string
	timeout  time.Duration
	capture  Capture
	dir      string
	env      []string
	logger   *slog.Logger
}

// Option configures an Exec.
type Option func(*Exec)

// WithTimeout limits each stage invocation. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(e *Exec) { e.timeout = d }
}

// WithCapture selects the captured output streams.
func WithCapture(c Capture) Option {
	return func(e *Exec) {
		if c != "" {
			e.capture = c
		}
	}
}

// WithDir sets the working directory of every command.
func WithDir(dir string) Option {
	return func(e *Exec) { e.dir = dir }
}

// WithEnv adds KEY=VALUE pairs to the environment of every command.
func WithEnv(env ...string) Option {
	return func(e *Exec) { e.env = append(e.env, env...) }
}

// WithBuild sets the command run by Build.
func WithBuild(command string) Option {
	return func(e *Exec) { e.build = command }
}

// WithLogger sets the logger. By default logs are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Exec) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Exec for the named variant.
func New(variant string, commands Commands, opts ...Option) *Exec {
	e := &Exec{
		variant:  variant,
		commands: commands,
		capture:  CaptureCombined,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Variant returns the toolchain variant name.
func (e *Exec) Variant() string {
	return e.variant
}

// Command returns the argument vector that Invoke would run for stage s.
func (e *Exec) Command(s stage.Stage, source string) ([]string, error) {
	argv, err := buildCommand(e.commands.For(s), map[string]string{
		PlaceholderSource:  source,
		PlaceholderVariant: e.variant,
	})
	if err != nil {
		return nil, fmt.Errorf("%s command: %w", s, err)
	}
	return argv, nil
}

// Invoke implements stage.Invoker.
//
// A command that runs to completion yields its exit code and captured output,
// whatever the exit code. A process killed by a signal reports 128 plus the
// signal number. Errors are returned only when the command cannot be built or
// started, when it exceeds the stage timeout (ErrTimeout) or when ctx is done.
func (e *Exec) Invoke(ctx context.Context, s stage.Stage, source string) (stage.Outcome, error) {
	argv, err := e.Command(s, source)
	if err != nil {
		return stage.Outcome{}, err
	}

	runCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	var out bytes.Buffer
	cmd := e.command(runCtx, argv)
	cmd.Stdout = &out
	if e.capture == CaptureCombined {
		cmd.Stderr = &out
	}

	e.logger.Debug("invoking stage", "stage", s.String(), "argv", argv)

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return stage.Outcome{}, ctxErr
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return stage.Outcome{}, fmt.Errorf("%w after %s: %w", ErrTimeout, e.timeout, context.DeadlineExceeded)
	}

	code, err := exitCode(runErr)
	if err != nil {
		return stage.Outcome{}, fmt.Errorf("run %s: %w", argv[0], err)
	}

	e.logger.Debug("stage finished",
		"stage", s.String(),
		"exit_code", code,
		"duration", elapsed,
	)

	return stage.Outcome{
		Stage:    s,
		ExitCode: code,
		Output:   stage.NormalizeOutput(out.Bytes()),
		Duration: elapsed,
	}, nil
}

// Build runs the configured build command once, streaming its output to w.
// It does nothing when no build command is configured.
func (e *Exec) Build(ctx context.Context, w io.Writer) error {
	if e.build == "" {
		return nil
	}
	argv, err := buildCommand(e.build, map[string]string{PlaceholderVariant: e.variant})
	if err != nil {
		return fmt.Errorf("build command: %w", err)
	}

	e.logger.Info("building toolchain", "argv", argv)

	cmd := e.command(ctx, argv)
	cmd.Stdout = w
	cmd.Stderr = w
	code, err := exitCode(cmd.Run())
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	if code != 0 {
		return fmt.Errorf("build failed with exit code %d", code)
	}
	return nil
}

func (e *Exec) command(ctx context.Context, argv []string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = e.dir
	if len(e.env) > 0 {
		cmd.Env = append(os.Environ(), e.env...)
	}
	cmd.WaitDelay = waitDelay
	return cmd
}

// exitCode extracts the exit status from the error returned by Cmd.Run.
// Errors other than a non-zero exit are returned unchanged.
func exitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return 0, err
	}
	if code := exitErr.ExitCode(); code >= 0 {
		return code, nil
	}
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return 128 + int(status.Signal()), nil
	}
	return 0, err
}
