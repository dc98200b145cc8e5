// Package schema checks raw blob JSON against the embedded CUE description
// of the serialized design tree before it is reloaded.
package schema

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed designformat.cue
var source []byte

// ErrInvalid is returned when a blob does not match the schema.
var ErrInvalid = errors.New("schema: blob does not match")

// Validator holds the compiled schema.
type Validator struct {
	mu      sync.Mutex
	ctx     *cue.Context
	project cue.Value
}

// New compiles the embedded schema.
func New() (*Validator, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileBytes(source, cue.Filename("designformat.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("schema: compile: %w", err)
	}
	project := schema.LookupPath(cue.ParsePath("#Project"))
	if err := project.Err(); err != nil {
		return nil, fmt.Errorf("schema: lookup #Project: %w", err)
	}
	return &Validator{ctx: ctx, project: project}, nil
}

func (v *Validator) unify(data []byte) (cue.Value, error) {
	value := v.ctx.CompileBytes(data, cue.Filename("blob.json"))
	if err := value.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("schema: parse blob: %w", err)
	}
	return v.project.Unify(value), nil
}

// Validate reports whether data is a well-formed blob.
func (v *Validator) Validate(data []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	unified, err := v.unify(data)
	if err != nil {
		return err
	}
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Problems lists every schema violation in data, one entry per error with
// its CUE path.
func (v *Validator) Problems(data []byte) []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	unified, err := v.unify(data)
	if err != nil {
		return []string{err.Error()}
	}
	err = unified.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}
	var out []string
	for _, e := range cueerrors.Errors(err) {
		out = append(out, e.Error())
	}
	return out
}

var (
	defaultOnce sync.Once
	defaultV    *Validator
	defaultErr  error
)

// Validate checks data against a shared Validator.
func Validate(data []byte) error {
	defaultOnce.Do(func() { defaultV, defaultErr = New() })
	if defaultErr != nil {
		return defaultErr
	}
	return defaultV.Validate(data)
}
