package design

import (
	"fmt"
	"time"

	"github.com/OpenTraceLab/designformat/pkg/hierpath"
)

// Project is the top-level container of a design: the entity arena plus the
// ordered set of nodes (root blocks, interconnect types, defines, register
// groups, commands) registered as principal or reference members.
type Project struct {
	Entity
	ID      string
	Path    string
	Version string
	Created time.Time

	design *Design
	nodes  []Node
	byID   map[string]Node
}

// NewProject creates an empty project with its own arena.
func NewProject(id, path string) *Project {
	return &Project{
		ID:      id,
		Path:    path,
		Version: FormatVersion,
		Created: time.Now().UTC().Truncate(time.Millisecond),
		design:  NewDesign(),
		byID:    make(map[string]Node),
	}
}

// NodeID implements Node.
func (p *Project) NodeID() string { return p.ID }

// Design returns the project's entity arena.
func (p *Project) Design() *Design { return p.design }

// AddPrincipal registers n as a principal node.
func (p *Project) AddPrincipal(n Node) error {
	if err := p.add(n); err != nil {
		return err
	}
	n.SetAttribute(AttrPrincipal, true)
	return nil
}

// AddReference registers n as a referenced, non-principal node.
func (p *Project) AddReference(n Node) error {
	if err := p.add(n); err != nil {
		return err
	}
	n.RemoveAttribute(AttrPrincipal)
	return nil
}

func (p *Project) add(n Node) error {
	id := n.NodeID()
	if _, ok := p.byID[id]; ok {
		return fmt.Errorf("design: project node %s: %w", id, ErrDuplicate)
	}
	switch v := n.(type) {
	case *Block:
		if v.d != p.design {
			return fmt.Errorf("design: project block %s: %w", id, ErrForeign)
		}
		if v.Parent() != nil {
			return fmt.Errorf("design: project block %s is not a root", v.HierarchicalPath())
		}
	case *Interconnect:
		v.project = p
	}
	p.nodes = append(p.nodes, n)
	p.byID[id] = n
	return nil
}

// Nodes returns every node in registration order.
func (p *Project) Nodes() []Node { return append([]Node(nil), p.nodes...) }

// PrincipalNodes returns the nodes flagged principal.
func (p *Project) PrincipalNodes() []Node {
	var out []Node
	for _, n := range p.nodes {
		if isPrincipal(n) {
			out = append(out, n)
		}
	}
	return out
}

// ReferenceNodes returns the nodes not flagged principal.
func (p *Project) ReferenceNodes() []Node {
	var out []Node
	for _, n := range p.nodes {
		if !isPrincipal(n) {
			out = append(out, n)
		}
	}
	return out
}

func isPrincipal(n Node) bool {
	v, ok := n.Attribute(AttrPrincipal).(bool)
	return ok && v
}

// PrincipalBlocks returns the principal root blocks.
func (p *Project) PrincipalBlocks() []*Block {
	var out []*Block
	for _, n := range p.PrincipalNodes() {
		if b, ok := n.(*Block); ok {
			out = append(out, b)
		}
	}
	return out
}

// Blocks returns every root block node.
func (p *Project) Blocks() []*Block {
	var out []*Block
	for _, n := range p.nodes {
		if b, ok := n.(*Block); ok {
			out = append(out, b)
		}
	}
	return out
}

// Interconnects returns every interconnect node.
func (p *Project) Interconnects() []*Interconnect {
	var out []*Interconnect
	for _, n := range p.nodes {
		if ic, ok := n.(*Interconnect); ok {
			out = append(out, ic)
		}
	}
	return out
}

// FindNode returns the node with the given id, or nil.
func (p *Project) FindNode(id string) Node { return p.byID[id] }

// Interconnect returns the interconnect node with the given id, or nil.
func (p *Project) Interconnect(id string) *Interconnect {
	ic, _ := p.byID[id].(*Interconnect)
	return ic
}

// Define returns the define node with the given id, or nil.
func (p *Project) Define(id string) *Define {
	d, _ := p.byID[id].(*Define)
	return d
}

// InterconnectType returns the interconnect type carried by port.
func (p *Project) InterconnectType(port *Port) *Interconnect {
	return p.Interconnect(port.Type)
}

// Resolve turns block.path[port] into a block, and a port when the path
// names one. The first segment selects one of the project's root blocks.
func (p *Project) Resolve(path string) (*Block, *Port, error) {
	ref, err := hierpath.Parse(path)
	if err != nil {
		return nil, nil, fmt.Errorf("design: resolve %q: %w", path, err)
	}
	if len(ref.Blocks) == 0 {
		return nil, nil, fmt.Errorf("design: resolve %q: no block: %w", path, ErrUnresolved)
	}
	var root *Block
	for _, b := range p.Blocks() {
		if b.name == ref.Blocks[0] {
			root = b
			break
		}
	}
	if root == nil {
		return nil, nil, fmt.Errorf("design: resolve %q: no root block %q: %w", path, ref.Blocks[0], ErrUnresolved)
	}
	p.design.mu.RLock()
	defer p.design.mu.RUnlock()
	b, port, err := root.resolve(ref.Blocks[1:], ref.Port, path)
	if err != nil {
		return nil, nil, err
	}
	if ref.HasIndex && port != nil {
		if err := port.checkIndex(ref.Index); err != nil {
			return nil, nil, err
		}
	}
	return b, port, nil
}

// ResolveBlock resolves a path that must name a block.
func (p *Project) ResolveBlock(path string) (*Block, error) {
	b, port, err := p.Resolve(path)
	if err != nil {
		return nil, err
	}
	if port != nil {
		return nil, fmt.Errorf("design: %s names a port, not a block", path)
	}
	return b, nil
}

// ResolvePort resolves a path that must name a port.
func (p *Project) ResolvePort(path string) (*Port, error) {
	_, port, err := p.Resolve(path)
	if err != nil {
		return nil, err
	}
	if port == nil {
		return nil, fmt.Errorf("design: %s names a block, not a port", path)
	}
	return port, nil
}

// ResolveSignal resolves block.path[port][index]; a missing index is 0.
func (p *Project) ResolveSignal(path string) (*Port, int, error) {
	port, err := p.ResolvePort(path)
	if err != nil {
		return nil, 0, err
	}
	ref, _ := hierpath.Parse(path)
	return port, ref.Index, nil
}

// InterconnectTypes returns the interconnect nodes used by ports of the
// principal blocks, together with every interconnect they reference through
// complex components.
func (p *Project) InterconnectTypes() []*Interconnect {
	seen := make(map[*Interconnect]bool)
	var out []*Interconnect
	var visit func(ic *Interconnect)
	visit = func(ic *Interconnect) {
		if ic == nil || seen[ic] {
			return
		}
		seen[ic] = true
		out = append(out, ic)
		for _, c := range ic.components {
			if c.Kind == Complex {
				visit(p.Interconnect(c.Ref))
			}
		}
	}
	for _, b := range p.PrincipalBlocks() {
		for _, t := range b.InterconnectTypes(-1) {
			visit(p.Interconnect(t))
		}
	}
	return out
}

// Merge moves every node of o into p. Node ids must not clash; o must not
// be used afterwards.
func (p *Project) Merge(o *Project) error {
	if o == p {
		return nil
	}
	for _, n := range o.nodes {
		if _, ok := p.byID[n.NodeID()]; ok {
			return fmt.Errorf("design: merge node %s: %w", n.NodeID(), ErrDuplicate)
		}
	}
	p.design.absorb(o.design)
	for _, n := range o.nodes {
		if ic, ok := n.(*Interconnect); ok {
			ic.project = p
		}
		p.nodes = append(p.nodes, n)
		p.byID[n.NodeID()] = n
	}
	o.nodes = nil
	o.byID = make(map[string]Node)
	return nil
}

// Prune drops nodes rejected by keep. Root blocks dropped here stay in the
// arena until Design().Retain removes them.
func (p *Project) Prune(keep func(Node) bool) {
	nodes := p.nodes[:0]
	for _, n := range p.nodes {
		if keep(n) {
			nodes = append(nodes, n)
			continue
		}
		delete(p.byID, n.NodeID())
	}
	p.nodes = nodes
}
