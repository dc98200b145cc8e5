// Package blob dumps a design project to its JSON tree form and reloads it.
//
// A blob is a project header followed by an ordered list of nodes, each
// wrapped in an envelope that names its type:
//
//	{"id": "soc", "version": "1.3", "nodes": [
//	    {"__type__": "dfblock", "__dump__": {...}},
//	    {"__type__": "dfinterconnect", "__dump__": {...}}
//	]}
//
// Reload is driven by an explicit table of type tags. Interconnects and
// defines are rebuilt first so that blocks and register fields referring to
// them can be checked in the second pass.
package blob

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/OpenTraceLab/designformat/pkg/design"
)

type options struct {
	log    logrus.FieldLogger
	indent bool
}

// Option configures Dump and Load.
type Option func(*options)

// WithLogger routes debug output to l.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) { o.log = l }
}

// WithIndent pretty-prints dumped JSON.
func WithIndent() Option {
	return func(o *options) { o.indent = true }
}

func newOptions(opts []Option) *options {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	o := &options{log: discard}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// LoadFile reads a blob from path.
func LoadFile(path string, opts ...Option) (*design.Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "blob: read")
	}
	p, err := Unmarshal(data, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "blob: load %s", path)
	}
	return p, nil
}

// SaveFile writes p to path.
func SaveFile(path string, p *design.Project, opts ...Option) error {
	data, err := Marshal(p, opts...)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "blob: write")
	}
	return nil
}

// Load reads a blob from r.
func Load(r io.Reader, opts ...Option) (*design.Project, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "blob: read")
	}
	return Unmarshal(data, opts...)
}

// Dump writes p to w.
func Dump(w io.Writer, p *design.Project, opts ...Option) error {
	data, err := Marshal(p, opts...)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return errors.Wrap(err, "blob: write")
}
