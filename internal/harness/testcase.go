package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Default file extensions of test sources and their expectations.
const (
	DefaultSourceExt      = ".ions"
	DefaultExpectationExt = ".txt"
)

// TestCase identifies one source file under test.
type TestCase struct {
	// Name is the source file name, e.g. "add.ions".
	Name string `json:"name"`

	// SourcePath is the path handed to the Transcription stage.
	SourcePath string `json:"source_path"`

	// ExpectationPath is where the expectation for this test case lives.
	ExpectationPath string `json:"expectation_path"`
}

// NewTestCase builds a test case for sourcePath whose expectation uses
// expectationExt in place of the source extension.
func NewTestCase(sourcePath, expectationExt string) TestCase {
	return TestCase{
		Name:            filepath.Base(sourcePath),
		SourcePath:      sourcePath,
		ExpectationPath: ExpectationPathFor(sourcePath, expectationExt),
	}
}

// ExpectationPathFor replaces the extension of sourcePath with expectationExt.
func ExpectationPathFor(sourcePath, expectationExt string) string {
	if expectationExt == "" {
		expectationExt = DefaultExpectationExt
	}
	return strings.TrimSuffix(sourcePath, filepath.Ext(sourcePath)) + expectationExt
}

// DiscoverOptions controls which test cases Discover returns.
type DiscoverOptions struct {
	// SourceExt selects source files (default ".ions").
	SourceExt string

	// ExpectationExt is the expectation extension (default ".txt").
	ExpectationExt string

	// Names restricts discovery to the listed tests. A name matches with or
	// without the source extension. Unknown names are an error.
	Names []string

	// Patterns restricts discovery to tests whose name matches at least one
	// doublestar glob (e.g. "loop*", "{add,sub}*").
	Patterns []string
}

// Discover lists the test cases in dir in file name order.
// Only regular files directly inside dir are considered; symlinks count when
// they resolve to one.
func Discover(dir string, opts DiscoverOptions) ([]TestCase, error) {
	sourceExt := opts.SourceExt
	if sourceExt == "" {
		sourceExt = DefaultSourceExt
	}

	for _, p := range opts.Patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid filter pattern %q", p)
		}
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("tests directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("tests directory %s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read tests directory: %w", err)
	}

	wanted := make(map[string]bool, len(opts.Names))
	for _, n := range opts.Names {
		wanted[n] = false
	}

	tests := []TestCase{}
	for _, entry := range entries {
		name := entry.Name()
		if filepath.Ext(name) != sourceExt || !isSourceFile(dir, entry) {
			continue
		}

		if len(wanted) > 0 {
			stem := strings.TrimSuffix(name, sourceExt)
			_, byName := wanted[name]
			_, byStem := wanted[stem]
			if !byName && !byStem {
				continue
			}
			if byName {
				wanted[name] = true
			}
			if byStem {
				wanted[stem] = true
			}
		}

		if !matchesAny(opts.Patterns, name, sourceExt) {
			continue
		}

		tests = append(tests, NewTestCase(filepath.Join(dir, name), opts.ExpectationExt))
	}

	var unknown []string
	for _, n := range opts.Names {
		if !wanted[n] {
			unknown = append(unknown, n)
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown test(s): %s", strings.Join(unknown, ", "))
	}

	return tests, nil
}

// matchesAny reports whether name, or name without its source extension,
// matches one of the patterns. No patterns matches everything.
func matchesAny(patterns []string, name, sourceExt string) bool {
	if len(patterns) == 0 {
		return true
	}
	stem := strings.TrimSuffix(name, sourceExt)
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
		if ok, _ := doublestar.Match(p, stem); ok {
			return true
		}
	}
	return false
}

// SplitNames splits a comma-separated test list, dropping blanks.
func SplitNames(list string) []string {
	var names []string
	for _, n := range strings.Split(list, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// isSourceFile reports whether entry is a regular file. Symlinks are followed;
// dangling links and links to directories are not sources.
func isSourceFile(dir string, entry os.DirEntry) bool {
	if entry.Type()&os.ModeSymlink == 0 {
		return entry.Type().IsRegular()
	}
	info, err := os.Stat(filepath.Join(dir, entry.Name()))
	return err == nil && info.Mode().IsRegular()
}
