package expectation

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrMissing is returned by Load when no expectation file exists.
var ErrMissing = errors.New("no expectation found")

// Load reads and parses the expectation file at path.
// A missing file yields an error matching ErrMissing.
func Load(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrMissing)
		}
		return nil, fmt.Errorf("read expectation: %w", err)
	}

	rec, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &rec, nil
}

// Exists reports whether an expectation file is present at path.
func Exists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat expectation: %w", err)
	}
	if info.IsDir() {
		return false, fmt.Errorf("expectation path %s is a directory", path)
	}
	return true, nil
}

// Save writes r to path, replacing any existing file.
// The data goes to a temporary file in the same directory first so a
// failed write never leaves a truncated expectation behind.
func Save(path string, r Record) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp expectation: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(Write(r)); err != nil {
		tmp.Close()
		return fmt.Errorf("write expectation: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close expectation: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("chmod expectation: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename expectation: %w", err)
	}
	return nil
}
