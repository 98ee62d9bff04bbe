package cli

import (
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// newLogger creates the process logger writing to w.
//
// Terminals get a colored tint handler without timestamps. Anything else,
// such as a redirected stderr or a test buffer, gets a plain slog text
// handler. Only warnings and errors are logged unless verbose is set, which
// enables debug logging.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	if isTerminal(w) {
		return slog.New(tint.NewHandler(w, &tint.Options{
			NoColor: runtime.GOOS == "windows",
			Level:   level,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey && len(groups) == 0 {
					return slog.Attr{}
				}
				return a
			},
		}))
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// discardLogger is used when a command runs without the root command, as in
// tests that build a subcommand directly.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
