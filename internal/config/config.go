// Package config loads the ionstest configuration file.
//
// The file is YAML. Before decoding, the raw document is checked against an
// embedded CUE schema that rejects unknown keys and malformed values, so typos
// surface as errors instead of silently falling back to defaults.
//
// A .env file in the working directory is loaded into the process environment
// first, making its variables available to $VAR references in command
// templates.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/roach88/ionstest/internal/toolchain"
)

// Defaults.
const (
	DefaultPath           = "ionstest.yaml"
	DefaultEnvFile        = ".env"
	DefaultTestsDir       = "tests"
	DefaultSourceExt      = ".ions"
	DefaultExpectationExt = ".txt"
	DefaultVariant        = "nasm"
	DefaultTimeout        = 2 * time.Minute
	DefaultBuild          = "dotnet build"
	DefaultHistory        = ".ionstest/history.db"
)

// Config is the resolved harness configuration.
type Config struct {
	TestsDir       string                        `yaml:"tests_dir" json:"tests_dir"`
	SourceExt      string                        `yaml:"source_ext" json:"source_ext"`
	ExpectationExt string                        `yaml:"expectation_ext" json:"expectation_ext"`
	Variant        string                        `yaml:"variant" json:"variant"`
	Timeout        Duration                      `yaml:"timeout" json:"timeout"`
	Capture        toolchain.Capture             `yaml:"capture" json:"capture"`
	Build          string                        `yaml:"build" json:"build"`
	History        string                        `yaml:"history" json:"history"`
	Variants       map[string]toolchain.Commands `yaml:"variants" json:"variants"`
}

// Duration is a time.Duration written as a Go duration string ("90s", "2m")
// or a bare 0.
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration string.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// MarshalText writes the duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// DefaultVariants returns the built-in toolchain variants: the IonS compiler
// transcribing for NASM or FASM, assembled and run inside WSL.
func DefaultVariants() map[string]toolchain.Commands {
	return map[string]toolchain.Commands{
		"nasm": {
			Transcribe: "dotnet run -- --compile {source} --assembler nasm",
			Compile:    "wsl --exec /shared/compIonsTest",
			Execute:    "wsl --exec /shared/testIons",
		},
		"fasm": {
			Transcribe: "dotnet run -- --compile {source} --assembler fasm",
			Compile:    "wsl --exec /shared/compIonsTestFasm",
			Execute:    "wsl --exec /shared/testIons",
		},
	}
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		TestsDir:       DefaultTestsDir,
		SourceExt:      DefaultSourceExt,
		ExpectationExt: DefaultExpectationExt,
		Variant:        DefaultVariant,
		Timeout:        Duration(DefaultTimeout),
		Capture:        toolchain.CaptureCombined,
		Build:          DefaultBuild,
		History:        DefaultHistory,
		Variants:       DefaultVariants(),
	}
}

// Load reads the configuration file at path.
// A missing file yields the defaults unless mustExist is set.
func Load(path string, mustExist bool) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !mustExist {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data, path)
}

// Parse validates and decodes a YAML configuration document.
// Keys that are absent keep their default values; an empty build disables
// the build step. Variants are merged by name over the built-in ones.
func Parse(data []byte, filename string) (Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", filename, err)
	}
	if err := validateSchema(raw, filename); err != nil {
		return Config{}, err
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", filename, err)
	}

	cfg := merge(Default(), file, raw)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config file %s: %w", filename, err)
	}
	return cfg, nil
}

// merge overlays the keys present in the file onto base.
func merge(base, file Config, present map[string]any) Config {
	has := func(key string) bool {
		_, ok := present[key]
		return ok
	}

	if has("tests_dir") {
		base.TestsDir = file.TestsDir
	}
	if has("source_ext") {
		base.SourceExt = file.SourceExt
	}
	if has("expectation_ext") {
		base.ExpectationExt = file.ExpectationExt
	}
	if has("variant") {
		base.Variant = file.Variant
	}
	if has("timeout") {
		base.Timeout = file.Timeout
	}
	if has("capture") {
		base.Capture = file.Capture
	}
	if has("build") {
		base.Build = file.Build
	}
	if has("history") {
		base.History = file.History
	}
	for name, cmds := range file.Variants {
		base.Variants[name] = cmds
	}
	return base
}

// Validate checks the cross-field constraints the schema cannot express.
func (c Config) Validate() error {
	if c.SourceExt == c.ExpectationExt {
		return fmt.Errorf("source_ext and expectation_ext are both %q", c.SourceExt)
	}
	if !c.Capture.Valid() {
		return fmt.Errorf("unknown capture mode %q", c.Capture)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("negative timeout %s", c.Timeout)
	}
	if _, err := c.Commands(c.Variant); err != nil {
		return err
	}
	return nil
}

// BuildCommand returns the build command, or "" when building is disabled.
func (c Config) BuildCommand() string {
	return strings.TrimSpace(c.Build)
}

// VariantNames lists the configured variants in sorted order.
func (c Config) VariantNames() []string {
	names := make([]string, 0, len(c.Variants))
	for name := range c.Variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Commands returns the command templates of the named variant.
func (c Config) Commands(variant string) (toolchain.Commands, error) {
	cmds, ok := c.Variants[variant]
	if !ok {
		return toolchain.Commands{}, fmt.Errorf("unknown variant %q (available: %s)",
			variant, strings.Join(c.VariantNames(), ", "))
	}
	return cmds, nil
}

// LoadEnv loads KEY=VALUE pairs from path into the process environment.
// Variables that are already set are not overridden. A missing file is not
// an error.
func LoadEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
