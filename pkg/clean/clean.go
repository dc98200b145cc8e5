// Package clean trims a design down to the structure that matters to a
// consumer and optionally strips documentation from what is left.
package clean

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/OpenTraceLab/designformat/pkg/design"
)

// Summary counts what Clean removed.
type Summary struct {
	Blocks        int
	Ports         int
	Connections   int
	Interconnects []string
}

type options struct {
	log          logrus.FieldLogger
	stripDesc    bool
	stripAttrs   bool
	trees        []string
	connectivity []string
}

// Option configures Clean.
type Option func(*options)

// WithLogger routes progress output to l.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) { o.log = l }
}

// StripDescriptions blanks every description.
func StripDescriptions() Option {
	return func(o *options) { o.stripDesc = true }
}

// StripAttributes removes every attribute except the well-known keys.
func StripAttributes() Option {
	return func(o *options) { o.stripAttrs = true }
}

// PreserveTree keeps the block at path and its ancestors.
func PreserveTree(path string) Option {
	return func(o *options) { o.trees = append(o.trees, path) }
}

// PreserveConnectivity keeps every port and block reachable from the port
// at path, through wiring and address-map routes.
func PreserveConnectivity(path string) Option {
	return func(o *options) { o.connectivity = append(o.connectivity, path) }
}

type cleaner struct {
	o     *options
	top   *design.Block
	d     *design.Design
	tree  map[*design.Block]bool
	ports map[*design.Port]bool
	keepB map[*design.Block]bool
	keepP map[*design.Port]bool
	seen  map[design.Signal]bool
}

// Clean trims the single principal block of p. Paths given to
// PreserveTree and PreserveConnectivity are relative to that block. With
// neither, connectivity is preserved from every port flagged PRINCIPAL in
// the tree; a tree with no such port is not trimmed. Interconnect types no
// longer carried by any port of the tree are dropped from the project.
func Clean(p *design.Project, opts ...Option) (Summary, error) {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	o := &options{log: discard}
	for _, opt := range opts {
		opt(o)
	}
	tops := p.PrincipalBlocks()
	if len(tops) != 1 {
		return Summary{}, fmt.Errorf("clean: need exactly one principal block, found %d", len(tops))
	}
	c := &cleaner{
		o:     o,
		top:   tops[0],
		d:     p.Design(),
		tree:  make(map[*design.Block]bool),
		ports: make(map[*design.Port]bool),
		keepB: make(map[*design.Block]bool),
		keepP: make(map[*design.Port]bool),
		seen:  make(map[design.Signal]bool),
	}
	c.top.Walk(func(b *design.Block) {
		c.tree[b] = true
		for _, port := range b.Ports() {
			c.ports[port] = true
		}
	})

	var sum Summary
	trim, err := c.preserve()
	if err != nil {
		return sum, err
	}
	if trim {
		sum = c.retain()
	} else {
		o.log.WithField("block", c.top.HierarchicalPath()).Warn("nothing to preserve, tree left intact")
	}
	sum.Interconnects = c.pruneInterconnects(p)
	if o.stripDesc || o.stripAttrs {
		c.strip(p)
	}
	return sum, nil
}

func (c *cleaner) preserve() (bool, error) {
	var roots []*design.Port
	for _, path := range c.o.connectivity {
		_, port, err := c.top.Resolve(path)
		if err != nil {
			return false, fmt.Errorf("clean: preserve connectivity: %w", err)
		}
		if port == nil {
			return false, fmt.Errorf("clean: preserve connectivity: %s is not a port", path)
		}
		roots = append(roots, port)
	}
	for _, path := range c.o.trees {
		b, port, err := c.top.Resolve(path)
		if err != nil {
			return false, fmt.Errorf("clean: preserve tree: %w", err)
		}
		if port != nil {
			return false, fmt.Errorf("clean: preserve tree: %s is not a block", path)
		}
		c.keepBlock(b)
	}
	if len(c.o.connectivity) == 0 && len(c.o.trees) == 0 {
		c.top.Walk(func(b *design.Block) {
			for _, port := range b.Ports() {
				if port.Flag(design.AttrPrincipal) {
					roots = append(roots, port)
				}
			}
		})
		if len(roots) == 0 {
			return false, nil
		}
	}
	for _, port := range roots {
		for i := 0; i < port.Count; i++ {
			if err := c.chase(port, i); err != nil {
				return false, err
			}
		}
	}
	return true, nil
}

func (c *cleaner) keepBlock(b *design.Block) {
	for ; b != nil && !c.keepB[b]; b = b.Parent() {
		c.keepB[b] = true
	}
}

// chase marks signal idx of port and everything it reaches.
func (c *cleaner) chase(port *design.Port, idx int) error {
	sig := port.Signal(idx)
	if c.seen[sig] {
		return nil
	}
	c.seen[sig] = true
	c.keepP[port] = true
	c.keepBlock(port.Block())

	paths, err := port.ChaseConnection(idx)
	if err != nil {
		return err
	}
	for _, path := range paths {
		for _, s := range path {
			if err := c.chase(c.d.Port(s.Port), s.Index); err != nil {
				return err
			}
		}
	}

	m := port.Block().AddressMap()
	if m == nil {
		return nil
	}
	in := m.Initiator(port, idx)
	if in == nil {
		return nil
	}
	targets, err := m.TargetsForInitiator(in)
	if err != nil {
		return err
	}
	for _, t := range targets {
		if err := c.chase(t.Port(), t.Index()); err != nil {
			return err
		}
	}
	return nil
}

func (c *cleaner) retain() Summary {
	blocks, ports, conns := c.d.Stats()
	// The keep functions run under the design lock and must not call back
	// into locking accessors.
	c.d.Retain(
		func(b *design.Block) bool { return !c.tree[b] || c.keepB[b] },
		func(p *design.Port) bool { return !c.ports[p] || c.keepP[p] },
	)
	nb, np, nc := c.d.Stats()
	c.o.log.WithFields(logrus.Fields{
		"block":       c.top.HierarchicalPath(),
		"blocks":      blocks - nb,
		"ports":       ports - np,
		"connections": conns - nc,
	}).Debug("trimmed design")
	return Summary{Blocks: blocks - nb, Ports: ports - np, Connections: conns - nc}
}

// pruneInterconnects drops interconnect nodes that no port of the tree
// carries, following complex components to the types they embed.
func (c *cleaner) pruneInterconnects(p *design.Project) []string {
	used := make(map[string]bool)
	var visit func(name string)
	visit = func(name string) {
		if used[name] {
			return
		}
		used[name] = true
		ic := p.Interconnect(name)
		if ic == nil {
			return
		}
		for _, comp := range ic.Components() {
			if comp.Kind == design.Complex {
				visit(comp.Ref)
			}
		}
	}
	for _, name := range c.top.InterconnectTypes(-1) {
		visit(name)
	}
	var dropped []string
	p.Prune(func(n design.Node) bool {
		ic, ok := n.(*design.Interconnect)
		if !ok || used[ic.Name] {
			return true
		}
		dropped = append(dropped, ic.Name)
		return false
	})
	for _, name := range dropped {
		c.o.log.WithField("type", name).Debug("dropped unused interconnect")
	}
	return dropped
}

func (c *cleaner) strip(p *design.Project) {
	c.top.Walk(func(b *design.Block) {
		c.stripEntity(&b.Entity)
		for _, port := range b.Ports() {
			c.stripEntity(&port.Entity)
		}
		for _, g := range b.RegisterGroups() {
			c.stripEntity(&g.Entity)
			for _, r := range g.Registers() {
				c.stripEntity(&r.Entity)
				for _, f := range r.Fields() {
					c.stripEntity(&f.Entity)
				}
			}
		}
	})
	for _, ic := range p.Interconnects() {
		c.stripEntity(&ic.Entity)
		for _, comp := range ic.Components() {
			c.stripEntity(&comp.Entity)
		}
	}
}

func (c *cleaner) stripEntity(e *design.Entity) {
	if c.o.stripDesc {
		e.Description = ""
	}
	if c.o.stripAttrs {
		for _, k := range e.AttributeKeys() {
			if !design.ReservedAttribute(k) {
				e.RemoveAttribute(k)
			}
		}
	}
}
