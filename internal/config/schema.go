package config

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaSource string

var (
	schemaOnce sync.Once
	cueCtx     *cue.Context
	schema     cue.Value
	schemaErr  error
)

// SchemaError is a configuration document that does not satisfy the schema.
type SchemaError struct {
	File    string
	Path    string
	Message string
}

func (e *SchemaError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.File, e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

func loadSchema() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		cueCtx = cuecontext.New()
		v := cueCtx.CompileString(schemaSource, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compile config schema: %w", err)
			return
		}
		schema = v.LookupPath(cue.ParsePath("#Config"))
		if err := schema.Err(); err != nil {
			schemaErr = fmt.Errorf("config schema: %w", err)
		}
	})
	return cueCtx, schema, schemaErr
}

// validateSchema checks a decoded YAML document against the #Config schema.
func validateSchema(raw map[string]any, filename string) error {
	ctx, def, err := loadSchema()
	if err != nil {
		return err
	}
	if raw == nil {
		raw = map[string]any{}
	}

	v := ctx.Encode(raw)
	if err := v.Err(); err != nil {
		return formatSchemaError(err, filename)
	}
	if err := def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return formatSchemaError(err, filename)
	}
	return nil
}

// formatSchemaError reports the first CUE error with its field path.
func formatSchemaError(err error, filename string) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &SchemaError{File: filename, Message: err.Error()}
	}

	first := errs[0]
	format, args := first.Msg()
	return &SchemaError{
		File:    filename,
		Path:    strings.Join(fieldPath(first.Path()), "."),
		Message: fmt.Sprintf(format, args...),
	}
}

// fieldPath drops the schema definition from a CUE error path.
func fieldPath(path []string) []string {
	fields := make([]string, 0, len(path))
	for _, p := range path {
		if p != "#Config" {
			fields = append(fields, p)
		}
	}
	return fields
}
