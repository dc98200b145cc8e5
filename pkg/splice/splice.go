// Package splice appends register groups from separate register databases
// onto blocks of a base design.
package splice

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/OpenTraceLab/designformat/pkg/blob"
	"github.com/OpenTraceLab/designformat/pkg/design"
)

// Source names a register database and where its groups go. It is written
// BLOCK=DATABASE or BLOCK=DATABASE+OFFSET.
type Source struct {
	Block    string
	Database string
	Offset   uint64
}

func (s Source) String() string {
	if s.Offset == 0 {
		return s.Block + "=" + s.Database
	}
	return fmt.Sprintf("%s=%s+0x%x", s.Block, s.Database, s.Offset)
}

// ParseSource parses BLOCK=DATABASE(+OFFSET). The offset accepts Go integer
// prefixes such as 0x.
func ParseSource(s string) (Source, error) {
	key, rest, ok := strings.Cut(s, "=")
	key, rest = strings.TrimSpace(key), strings.TrimSpace(rest)
	if !ok || key == "" || rest == "" {
		return Source{}, fmt.Errorf("splice: %q is not BLOCK=DATABASE(+OFFSET)", s)
	}
	src := Source{Block: key, Database: rest}
	if db, off, ok := strings.Cut(rest, "+"); ok {
		v, err := strconv.ParseUint(strings.TrimSpace(off), 0, 64)
		if err != nil {
			return Source{}, fmt.Errorf("splice: offset of %q: %w", s, err)
		}
		src.Database, src.Offset = strings.TrimSpace(db), v
	}
	return src, nil
}

type options struct {
	log     logrus.FieldLogger
	workers int
	load    []blob.Option
}

// Option configures Splice.
type Option func(*options)

// WithLogger routes progress output to l.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) { o.log = l }
}

// WithWorkers bounds the number of databases read at once.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithLoadOptions passes opts to every database reload.
func WithLoadOptions(opts ...blob.Option) Option {
	return func(o *options) { o.load = append(o.load, opts...) }
}

// Splice loads every source database and appends its principal register
// groups, shifted by the source offset, to the named block of the single
// principal block in p. Databases load in parallel; groups are appended in
// source order.
func Splice(ctx context.Context, p *design.Project, sources []Source, opts ...Option) error {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	o := &options{log: discard, workers: 4}
	for _, opt := range opts {
		opt(o)
	}

	tops := p.PrincipalBlocks()
	if len(tops) != 1 {
		return fmt.Errorf("splice: base needs exactly one principal block, found %d", len(tops))
	}
	top := tops[0]

	groups := make([][]*design.RegisterGroup, len(sources))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, src := range sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			o.log.WithField("path", src.Database).Debug("loading register database")
			found, err := loadGroups(src.Database, o.load)
			if err != nil {
				return err
			}
			groups[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Every block and group name is checked before the first group is
	// attached, so a failed splice leaves p unchanged.
	blocks := make([]*design.Block, len(sources))
	names := make(map[*design.Block]map[string]bool)
	for i, src := range sources {
		b, port, err := top.Resolve(src.Block)
		if err != nil {
			return fmt.Errorf("splice: block %s: %w", src.Block, err)
		}
		if port != nil {
			return fmt.Errorf("splice: %s names a port, not a block", src.Block)
		}
		taken, ok := names[b]
		if !ok {
			taken = make(map[string]bool)
			for _, grp := range b.RegisterGroups() {
				taken[grp.Name] = true
			}
			if len(taken) > 0 {
				o.log.WithField("block", b.HierarchicalPath()).Warn("block already has registers, merging anyway")
			}
			names[b] = taken
		}
		for _, grp := range groups[i] {
			if taken[grp.Name] {
				return fmt.Errorf("splice: %s: register group %s.%s: %w", src, b.HierarchicalPath(), grp.Name, design.ErrDuplicate)
			}
			taken[grp.Name] = true
		}
		blocks[i] = b
	}

	for i, src := range sources {
		b := blocks[i]
		for _, grp := range groups[i] {
			grp.Offset += src.Offset
			if err := b.AddRegisterGroup(grp); err != nil {
				return fmt.Errorf("splice: %s: %w", src, err)
			}
			o.log.WithFields(logrus.Fields{
				"block":  b.HierarchicalPath(),
				"group":  grp.Name,
				"offset": fmt.Sprintf("0x%x", grp.Offset),
			}).Debug("appended register group")
		}
	}
	return nil
}

func loadGroups(path string, opts []blob.Option) ([]*design.RegisterGroup, error) {
	db, err := blob.LoadFile(path, opts...)
	if err != nil {
		return nil, fmt.Errorf("splice: %w", err)
	}
	var out []*design.RegisterGroup
	for _, n := range db.PrincipalNodes() {
		if grp, ok := n.(*design.RegisterGroup); ok {
			out = append(out, grp)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("splice: no principal register group in %s", path)
	}
	return out, nil
}
