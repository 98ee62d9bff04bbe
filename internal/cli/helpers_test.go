package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ionstest/internal/expectation"
	"github.com/roach88/ionstest/internal/stage"
)

// fixture is a throwaway project: a configuration file, a tests directory
// and a history database path, all under t.TempDir().
type fixture struct {
	dir        string
	testsDir   string
	configPath string
	dbPath     string
}

func newFixture(t *testing.T, extraConfig string) *fixture {
	t.Helper()

	dir := t.TempDir()
	f := &fixture{
		dir:        dir,
		testsDir:   filepath.Join(dir, "tests"),
		configPath: filepath.Join(dir, "ionstest.yaml"),
		dbPath:     filepath.Join(dir, "history.db"),
	}
	require.NoError(t, os.MkdirAll(f.testsDir, 0755))

	cfg := "tests_dir: " + f.testsDir + "\n" +
		"history: " + f.dbPath + "\n" +
		"build: \"\"\n" +
		extraConfig
	require.NoError(t, os.WriteFile(f.configPath, []byte(cfg), 0644))
	return f
}

// addTest creates a source file and returns its path.
func (f *fixture) addTest(t *testing.T, name, source string) string {
	t.Helper()
	path := filepath.Join(f.testsDir, name)
	require.NoError(t, os.WriteFile(path, []byte(source), 0644))
	return path
}

// expect writes the expectation for the named test.
func (f *fixture) expect(t *testing.T, name string, s stage.Stage, exitCode int, output string) {
	t.Helper()
	path := filepath.Join(f.testsDir, name[:len(name)-len(filepath.Ext(name))]+".txt")
	require.NoError(t, expectation.Save(path, expectation.Record{Stage: s, ExitCode: exitCode, Output: output}))
}

func (f *fixture) rootOptions(format string) *RootOptions {
	return &RootOptions{
		Format:     format,
		ConfigPath: f.configPath,
		EnvFile:    filepath.Join(f.dir, ".env"),
	}
}

// invoke calls fn with a bare command whose output is captured.
func invoke(ctx context.Context, fn func(cmd *cobra.Command) error) (stdout, stderr string, err error) {
	var out, errOut bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetContext(ctx)
	err = fn(cmd)
	return out.String(), errOut.String(), err
}

// execute runs the root command with args.
func execute(args ...string) (stdout, stderr string, err error) {
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func requireExitCode(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, GetExitCode(err), "unexpected exit code for %v", err)
}
