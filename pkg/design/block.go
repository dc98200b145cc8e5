package design

import (
	"fmt"
	"sort"
	"strings"

	"github.com/OpenTraceLab/designformat/pkg/hierpath"
)

// Block is a node of the design tree: a module instance owning ports, the
// connections between its children, constant ties, an optional address map
// and register groups.
type Block struct {
	Entity
	// Type is the module type the block instantiates.
	Type string

	d        *Design
	id       BlockID
	name     string
	parent   BlockID
	children []BlockID

	inputs  []PortID
	outputs []PortID
	inouts  []PortID

	conns []ConnID
	ties  []TieID

	addrMap *AddressMap
	groups  []*RegisterGroup
}

// Name returns the instance name of the block.
func (b *Block) Name() string { return b.name }

// NodeID implements Node.
func (b *Block) NodeID() string { return b.name }

// ID returns the arena ID of the block.
func (b *Block) ID() BlockID { return b.id }

// Design returns the arena holding the block.
func (b *Block) Design() *Design { return b.d }

// Parent returns the parent block, or nil for a root block.
func (b *Block) Parent() *Block {
	b.d.mu.RLock()
	defer b.d.mu.RUnlock()
	return b.d.block(b.parent)
}

// Root returns the root of the tree holding b.
func (b *Block) Root() *Block {
	b.d.mu.RLock()
	defer b.d.mu.RUnlock()
	r := b
	for r.parent != NoBlock {
		r = b.d.blocks[r.parent]
	}
	return r
}

// Children returns the child blocks in declaration order.
func (b *Block) Children() []*Block {
	b.d.mu.RLock()
	defer b.d.mu.RUnlock()
	out := make([]*Block, len(b.children))
	for i, id := range b.children {
		out[i] = b.d.blocks[id]
	}
	return out
}

// LookupChild returns the child block with the given instance name.
func (b *Block) LookupChild(name string) *Block {
	b.d.mu.RLock()
	defer b.d.mu.RUnlock()
	return b.child(name)
}

func (b *Block) child(name string) *Block {
	for _, id := range b.children {
		if c := b.d.blocks[id]; c.name == name {
			return c
		}
	}
	return nil
}

// LookupRegister returns the register group with the given name.
func (b *Block) LookupRegister(name string) *RegisterGroup {
	b.d.mu.RLock()
	defer b.d.mu.RUnlock()
	for _, g := range b.groups {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// HierarchicalPath returns the dot-joined instance names from the root.
func (b *Block) HierarchicalPath() string {
	b.d.mu.RLock()
	defer b.d.mu.RUnlock()
	return b.path()
}

func (b *Block) path() string {
	names := []string{b.name}
	for p := b.parent; p != NoBlock; p = b.d.blocks[p].parent {
		names = append(names, b.d.blocks[p].name)
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, ".")
}

// IsLeaf reports whether the block carries the leaf marker, which stops
// connectivity traversal at its inputs.
func (b *Block) IsLeaf() bool { return b.Flag(AttrLeafNode) }

// Block attributes steer traversal (LEAF_NODE), so they are read and
// written under the design lock.

// Attribute returns the value stored under key, or nil.
func (b *Block) Attribute(key string) any {
	b.d.mu.RLock()
	defer b.d.mu.RUnlock()
	return b.Entity.Attribute(key)
}

// HasAttribute reports whether key is set.
func (b *Block) HasAttribute(key string) bool {
	b.d.mu.RLock()
	defer b.d.mu.RUnlock()
	return b.Entity.HasAttribute(key)
}

// SetAttribute stores value under key.
func (b *Block) SetAttribute(key string, value any) {
	b.d.mu.Lock()
	defer b.d.mu.Unlock()
	b.Entity.SetAttribute(key, value)
}

// RemoveAttribute deletes key.
func (b *Block) RemoveAttribute(key string) {
	b.d.mu.Lock()
	defer b.d.mu.Unlock()
	b.Entity.RemoveAttribute(key)
}

// AttributeKeys returns the attribute keys in sorted order.
func (b *Block) AttributeKeys() []string {
	b.d.mu.RLock()
	defer b.d.mu.RUnlock()
	return b.Entity.AttributeKeys()
}

// Flag reports whether key holds a true boolean.
func (b *Block) Flag(key string) bool {
	b.d.mu.RLock()
	defer b.d.mu.RUnlock()
	return b.Entity.Flag(key)
}

// AddPort creates a port on the block. count is the number of signals and
// must be at least 1; intc names the interconnect type.
func (b *Block) AddPort(name, intc string, count int, dir Direction) (*Port, error) {
	if !dir.Valid() {
		return nil, fmt.Errorf("design: port %s direction %q: %w", name, dir, ErrInvalidEnum)
	}
	if count < 1 {
		return nil, fmt.Errorf("design: port %s count %d: %w", name, count, ErrIndexRange)
	}
	b.d.mu.Lock()
	defer b.d.mu.Unlock()
	if b.port(name) != nil {
		return nil, fmt.Errorf("design: port %s[%s]: %w", b.path(), name, ErrDuplicate)
	}
	p := &Port{
		Name:      name,
		Type:      intc,
		Count:     count,
		Direction: dir,
		d:         b.d,
		id:        PortID(len(b.d.ports)),
		block:     b.id,
	}
	b.d.ports = append(b.d.ports, p)
	switch dir {
	case Input:
		b.inputs = append(b.inputs, p.id)
	case Output:
		b.outputs = append(b.outputs, p.id)
	default:
		b.inouts = append(b.inouts, p.id)
	}
	return p, nil
}

// LookupPort returns the port with the given name.
func (b *Block) LookupPort(name string) *Port {
	b.d.mu.RLock()
	defer b.d.mu.RUnlock()
	return b.port(name)
}

func (b *Block) port(name string) *Port {
	for _, ids := range [][]PortID{b.inputs, b.outputs, b.inouts} {
		for _, id := range ids {
			if p := b.d.ports[id]; p.Name == name {
				return p
			}
		}
	}
	return nil
}

// Ports returns inputs, then outputs, then inouts, each in declaration order.
func (b *Block) Ports() []*Port {
	b.d.mu.RLock()
	defer b.d.mu.RUnlock()
	return b.allPorts()
}

func (b *Block) allPorts() []*Port {
	out := make([]*Port, 0, len(b.inputs)+len(b.outputs)+len(b.inouts))
	for _, ids := range [][]PortID{b.inputs, b.outputs, b.inouts} {
		for _, id := range ids {
			out = append(out, b.d.ports[id])
		}
	}
	return out
}

// Inputs returns the input ports.
func (b *Block) Inputs() []*Port { return b.portsOf(Input) }

// Outputs returns the output ports.
func (b *Block) Outputs() []*Port { return b.portsOf(Output) }

// Inouts returns the bidirectional ports.
func (b *Block) Inouts() []*Port { return b.portsOf(Inout) }

func (b *Block) portsOf(dir Direction) []*Port {
	b.d.mu.RLock()
	defer b.d.mu.RUnlock()
	ids := b.inouts
	switch dir {
	case Input:
		ids = b.inputs
	case Output:
		ids = b.outputs
	}
	out := make([]*Port, len(ids))
	for i, id := range ids {
		out[i] = b.d.ports[id]
	}
	return out
}

// Connect wires signal fromIdx of from to signal toIdx of to. The
// connection is owned by b.
func (b *Block) Connect(from *Port, fromIdx int, to *Port, toIdx int) (*Connection, error) {
	b.d.mu.Lock()
	defer b.d.mu.Unlock()
	if from.d != b.d || to.d != b.d {
		return nil, fmt.Errorf("design: connect in %s: %w", b.path(), ErrForeign)
	}
	if err := from.checkIndex(fromIdx); err != nil {
		return nil, err
	}
	if err := to.checkIndex(toIdx); err != nil {
		return nil, err
	}
	c := &Connection{
		d:     b.d,
		id:    ConnID(len(b.d.conns)),
		block: b.id,
		tie:   -1,
		from:  Signal{Port: from.id, Index: fromIdx},
		to:    Signal{Port: to.id, Index: toIdx},
	}
	b.d.conns = append(b.d.conns, c)
	b.conns = append(b.conns, c.id)
	b.d.link(c)
	return c, nil
}

// TieOff drives signal idx of port from a constant. With reset set the
// interconnect's reset value is used instead of value.
func (b *Block) TieOff(to *Port, idx int, value uint64, reset bool) (*Connection, error) {
	b.d.mu.Lock()
	defer b.d.mu.Unlock()
	if to.d != b.d {
		return nil, fmt.Errorf("design: tie in %s: %w", b.path(), ErrForeign)
	}
	if err := to.checkIndex(idx); err != nil {
		return nil, err
	}
	t := &ConstantTie{
		Value: value,
		Reset: reset,
		d:     b.d,
		id:    TieID(len(b.d.ties)),
		block: b.id,
	}
	b.d.ties = append(b.d.ties, t)
	b.ties = append(b.ties, t.id)
	c := &Connection{
		d:     b.d,
		id:    ConnID(len(b.d.conns)),
		block: b.id,
		tie:   t.id,
		to:    Signal{Port: to.id, Index: idx},
	}
	b.d.conns = append(b.d.conns, c)
	b.conns = append(b.conns, c.id)
	b.d.link(c)
	return c, nil
}

// Connections returns the connections declared in this block.
func (b *Block) Connections() []*Connection {
	b.d.mu.RLock()
	defer b.d.mu.RUnlock()
	out := make([]*Connection, len(b.conns))
	for i, id := range b.conns {
		out[i] = b.d.conns[id]
	}
	return out
}

// Ties returns the constant ties declared in this block.
func (b *Block) Ties() []*ConstantTie {
	b.d.mu.RLock()
	defer b.d.mu.RUnlock()
	out := make([]*ConstantTie, len(b.ties))
	for i, id := range b.ties {
		out[i] = b.d.ties[id]
	}
	return out
}

// NewAddressMap attaches an empty address map to the block. A block holds
// at most one map.
func (b *Block) NewAddressMap() (*AddressMap, error) {
	b.d.mu.Lock()
	defer b.d.mu.Unlock()
	if b.addrMap != nil {
		return nil, fmt.Errorf("design: address map of %s: %w", b.path(), ErrAlreadySet)
	}
	b.addrMap = newAddressMap(b)
	return b.addrMap, nil
}

// AddressMap returns the block's address map, or nil.
func (b *Block) AddressMap() *AddressMap {
	b.d.mu.RLock()
	defer b.d.mu.RUnlock()
	return b.addrMap
}

// AddRegisterGroup attaches g to the block.
func (b *Block) AddRegisterGroup(g *RegisterGroup) error {
	b.d.mu.Lock()
	defer b.d.mu.Unlock()
	if g.block != nil {
		return fmt.Errorf("design: register group %s: %w", g.Name, ErrAlreadySet)
	}
	for _, other := range b.groups {
		if other.Name == g.Name {
			return fmt.Errorf("design: register group %s.%s: %w", b.path(), g.Name, ErrDuplicate)
		}
	}
	g.block = b
	b.groups = append(b.groups, g)
	return nil
}

// RegisterGroups returns the block's register groups.
func (b *Block) RegisterGroups() []*RegisterGroup {
	b.d.mu.RLock()
	defer b.d.mu.RUnlock()
	return append([]*RegisterGroup(nil), b.groups...)
}

// Resolve follows a relative path (child names, then an optional port) from
// this block. A leading segment equal to the block's own name is accepted.
// The port is nil when the path names a block.
func (b *Block) Resolve(path string) (*Block, *Port, error) {
	ref, err := hierpath.Parse(path)
	if err != nil {
		return nil, nil, fmt.Errorf("design: resolve %q: %w", path, err)
	}
	b.d.mu.RLock()
	defer b.d.mu.RUnlock()
	return b.resolve(ref.Blocks, ref.Port, path)
}

func (b *Block) resolve(segments []string, port, full string) (*Block, *Port, error) {
	cur := b
	for i, seg := range segments {
		next := cur.child(seg)
		if next == nil && i == 0 && seg == cur.name {
			continue
		}
		if next == nil {
			return nil, nil, fmt.Errorf("design: %s: no block %q under %s: %w", full, seg, cur.path(), ErrUnresolved)
		}
		cur = next
	}
	if port == "" {
		return cur, nil, nil
	}
	p := cur.port(port)
	if p == nil {
		return nil, nil, fmt.Errorf("design: %s: no port %q on %s: %w", full, port, cur.path(), ErrUnresolved)
	}
	return cur, p, nil
}

// PrincipalSignal returns the port nominated as principal for interconnect
// type intc among this block's inputs and its children's outputs.
func (b *Block) PrincipalSignal(intc string) *Port {
	b.d.mu.RLock()
	defer b.d.mu.RUnlock()
	for _, p := range b.principalCandidates(intc) {
		if p.Entity.Flag(AttrPrincipal) {
			return p
		}
	}
	return nil
}

// SetPrincipalSignal nominates p, one of this block's inputs or a child
// output, as the principal signal for its interconnect type.
func (b *Block) SetPrincipalSignal(p *Port) error {
	if p.d != b.d {
		return fmt.Errorf("design: principal %s not in scope of %s: %w", p.HierarchicalPath(), b.HierarchicalPath(), ErrUnresolved)
	}
	b.d.mu.Lock()
	defer b.d.mu.Unlock()
	owner := b.d.block(p.block)
	if !(owner == b && p.Direction == Input) && !(owner.parent == b.id && p.Direction == Output) {
		return fmt.Errorf("design: principal %s not in scope of %s: %w", p.path(), b.path(), ErrUnresolved)
	}
	for _, c := range b.principalCandidates(p.Type) {
		if c != p && c.Entity.Flag(AttrPrincipal) {
			c.Entity.SetAttribute(AttrPrincipal, false)
		}
	}
	p.Entity.SetAttribute(AttrPrincipal, true)
	return nil
}

func (b *Block) principalCandidates(intc string) []*Port {
	var out []*Port
	for _, id := range b.inputs {
		if p := b.d.ports[id]; p.Type == intc {
			out = append(out, p)
		}
	}
	for _, cid := range b.children {
		for _, id := range b.d.blocks[cid].outputs {
			if p := b.d.ports[id]; p.Type == intc {
				out = append(out, p)
			}
		}
	}
	return out
}

// UnconnectedPorts returns this block's inputs that drive nothing inside it
// and outputs that nothing drives, sorted by name.
func (b *Block) UnconnectedPorts() []*Port {
	b.d.mu.RLock()
	defer b.d.mu.RUnlock()
	var out []*Port
	for _, p := range b.allPorts() {
		if (p.Direction == Input && !p.anyEdge(b.d.drives)) ||
			(p.Direction == Output && !p.anyEdge(b.d.driven)) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// UnconnectedChildPorts returns child inputs with no driver and child
// outputs that drive nothing.
func (b *Block) UnconnectedChildPorts() []*Port {
	b.d.mu.RLock()
	defer b.d.mu.RUnlock()
	var out []*Port
	for _, cid := range b.children {
		for _, p := range b.d.blocks[cid].allPorts() {
			if (p.Direction == Input && !p.anyEdge(b.d.driven)) ||
				(p.Direction == Output && !p.anyEdge(b.d.drives)) {
				out = append(out, p)
			}
		}
	}
	return out
}

// InterconnectTypes returns the distinct port interconnect types used in
// this sub-tree, in first-seen order. depth limits the descent; a negative
// depth is unlimited.
func (b *Block) InterconnectTypes(depth int) []string {
	b.d.mu.RLock()
	defer b.d.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	b.walk(depth, func(blk *Block) {
		for _, p := range blk.allPorts() {
			if p.Type != "" && !seen[p.Type] {
				seen[p.Type] = true
				out = append(out, p.Type)
			}
		}
	})
	return out
}

// ChildTypes returns the distinct module types of blocks below this one.
func (b *Block) ChildTypes(depth int) []string {
	b.d.mu.RLock()
	defer b.d.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	b.walk(depth, func(blk *Block) {
		if blk != b && !seen[blk.Type] {
			seen[blk.Type] = true
			out = append(out, blk.Type)
		}
	})
	return out
}

func (b *Block) walk(depth int, fn func(*Block)) {
	fn(b)
	if depth == 0 {
		return
	}
	for _, cid := range b.children {
		b.d.blocks[cid].walk(depth-1, fn)
	}
}

// Walk visits b and every descendant, parents before children.
func (b *Block) Walk(fn func(*Block)) {
	fn(b)
	for _, c := range b.Children() {
		c.Walk(fn)
	}
}
