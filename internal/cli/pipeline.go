package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/ionstest/internal/config"
	"github.com/roach88/ionstest/internal/harness"
	"github.com/roach88/ionstest/internal/stage"
	"github.com/roach88/ionstest/internal/store"
	"github.com/roach88/ionstest/internal/toolchain"
)

// SelectionOptions holds the flags shared by run and generate.
type SelectionOptions struct {
	Tests     string   // comma-separated test names
	Filters   []string // doublestar patterns
	Variant   string   // toolchain variant, "" for the configured one
	NoBuild   bool
	Database  string // history database, "" for the configured one
	NoHistory bool

	// Invoker overrides the toolchain (for testing). When set, no build
	// step runs.
	Invoker stage.Invoker
}

func addSelectionFlags(cmd *cobra.Command, sel *SelectionOptions) {
	cmd.Flags().StringVarP(&sel.Tests, "test", "t", "", "comma-separated test names (with or without extension)")
	cmd.Flags().StringArrayVar(&sel.Filters, "filter", nil, "only tests whose name matches this glob (repeatable)")
	cmd.Flags().StringVarP(&sel.Variant, "assembler", "a", "", "toolchain variant (default from config)")
	cmd.Flags().BoolVar(&sel.NoBuild, "no-build", false, "skip the build step")
	cmd.Flags().StringVar(&sel.Database, "db", "", "run history database (default from config)")
	cmd.Flags().BoolVar(&sel.NoHistory, "no-history", false, "do not record this run")
}

// session is everything a pipeline command needs, resolved from flags and
// configuration.
type session struct {
	cfg     config.Config
	variant string
	tests   []harness.TestCase
	invoker stage.Invoker
	exec    *toolchain.Exec // nil when the invoker is overridden
	logger  *slog.Logger
}

// loadConfig loads the dotenv file and the configuration.
// The configuration file may only be missing if the flag was not set.
func loadConfig(opts *RootOptions, cmd *cobra.Command) (config.Config, error) {
	if opts.EnvFile != "" {
		if err := config.LoadEnv(opts.EnvFile); err != nil {
			return config.Config{}, WrapExitError(ExitCommandError, "failed to load environment", err)
		}
	}

	path := opts.ConfigPath
	if path == "" {
		path = config.DefaultPath
	}
	mustExist := cmd.Flags().Changed("config")

	cfg, err := config.Load(path, mustExist)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return cfg, nil
}

// newSession resolves configuration, variant and test selection.
func newSession(opts *RootOptions, sel *SelectionOptions, cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(opts, cmd)
	if err != nil {
		return nil, err
	}
	logger := opts.logger()

	variant := sel.Variant
	if variant == "" {
		variant = cfg.Variant
	}
	commands, err := cfg.Commands(variant)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid assembler", err)
	}

	tests, err := harness.Discover(cfg.TestsDir, harness.DiscoverOptions{
		SourceExt:      cfg.SourceExt,
		ExpectationExt: cfg.ExpectationExt,
		Names:          harness.SplitNames(sel.Tests),
		Patterns:       sel.Filters,
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to discover tests", err)
	}
	logger.Debug("discovered tests", "dir", cfg.TestsDir, "count", len(tests))

	s := &session{
		cfg:     cfg,
		variant: variant,
		tests:   tests,
		logger:  logger,
	}

	if sel.Invoker != nil {
		s.invoker = sel.Invoker
		return s, nil
	}

	s.exec = toolchain.New(variant, commands,
		toolchain.WithTimeout(time.Duration(cfg.Timeout)),
		toolchain.WithCapture(cfg.Capture),
		toolchain.WithBuild(cfg.BuildCommand()),
		toolchain.WithLogger(logger),
	)
	s.invoker = s.exec
	return s, nil
}

// build runs the configured build step once, unless disabled.
func (s *session) build(ctx context.Context, sel *SelectionOptions, cmd *cobra.Command) error {
	if s.exec == nil || sel.NoBuild {
		return nil
	}
	if err := s.exec.Build(ctx, cmd.ErrOrStderr()); err != nil {
		return WrapExitError(ExitCommandError, "build step failed", err)
	}
	return nil
}

// openRecorder starts a history run. History is best effort: if the
// database cannot be opened the suite still runs, with a warning.
func (s *session) openRecorder(ctx context.Context, sel *SelectionOptions, action store.Action) (*store.Recorder, func()) {
	if sel.NoHistory {
		return nil, func() {}
	}

	path := sel.Database
	if path == "" {
		path = s.cfg.History
	}
	if path == "" {
		return nil, func() {}
	}

	st, err := store.Open(path)
	if err != nil {
		s.logger.Warn("run history disabled", "path", path, "error", err)
		return nil, func() {}
	}
	closeStore := func() {
		if err := st.Close(); err != nil {
			s.logger.Error("error closing history database", "error", err)
		}
	}

	rec, err := st.NewRecorder(ctx, action, s.variant, time.Now())
	if err != nil {
		s.logger.Warn("run history disabled", "path", path, "error", err)
		closeStore()
		return nil, func() {}
	}
	s.logger.Debug("recording run", "run_id", rec.Run().ID, "path", path)
	return rec, closeStore
}

// finishRecorder stores the run totals. Failures are logged, not returned.
func (s *session) finishRecorder(rec *store.Recorder, sum harness.Summary) {
	if rec == nil {
		return
	}
	if err := rec.Finish(context.Background(), time.Now(), sum); err != nil {
		s.logger.Warn("failed to record run history", "run_id", rec.Run().ID, "error", err)
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command, logger *slog.Logger) (context.Context, context.CancelFunc) {
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Warn("received signal, stopping", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// interrupted converts a cancelled context into a failure exit.
func interrupted(ctx context.Context) error {
	if err := ctx.Err(); err != nil && errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "interrupted", err)
	}
	return nil
}

// harnessOptions passes the logger to the harness components.
func (s *session) harnessOptions() []harness.Option {
	return []harness.Option{harness.WithLogger(s.logger)}
}

// describeSelection is used in the empty-suite message.
func describeSelection(sel *SelectionOptions, dir string) string {
	if sel.Tests == "" && len(sel.Filters) == 0 {
		return fmt.Sprintf("No tests found in %s.", dir)
	}
	return fmt.Sprintf("No tests in %s match the selection.", dir)
}
