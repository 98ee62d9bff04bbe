package toolchain

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/shlex"
)

// Placeholders substituted in command templates.
const (
	PlaceholderSource  = "{source}"
	PlaceholderVariant = "{variant}"
)

// ErrEmptyCommand is returned for a blank command template.
var ErrEmptyCommand = errors.New("command template is empty")

// buildCommand splits tpl into an argument vector and expands it.
//
// The template is split first so that substituted values containing spaces
// stay a single argument. Each field then has $VAR references expanded from
// the environment and placeholders replaced from vars. References to unset
// variables are left as written.
func buildCommand(tpl string, vars map[string]string) ([]string, error) {
	if strings.TrimSpace(tpl) == "" {
		return nil, ErrEmptyCommand
	}

	fields, err := shlex.Split(tpl)
	if err != nil {
		return nil, fmt.Errorf("parse command template %q: %w", tpl, err)
	}
	if len(fields) == 0 {
		return nil, ErrEmptyCommand
	}

	for i, f := range fields {
		f = os.Expand(f, lookupEnv)
		for placeholder, value := range vars {
			f = strings.ReplaceAll(f, placeholder, value)
		}
		fields[i] = f
	}
	return fields, nil
}

func lookupEnv(name string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return "$" + name
}
