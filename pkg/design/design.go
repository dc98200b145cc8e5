package design

import (
	"fmt"
	"sync"
)

// BlockID, PortID, TieID and ConnID index the entity slices of a Design.
type (
	BlockID int
	PortID  int
	TieID   int
	ConnID  int
)

// NoBlock is the parent of a root block.
const NoBlock BlockID = -1

// Signal identifies one wire of a port.
type Signal struct {
	Port  PortID
	Index int
}

// Design is the arena that owns every structural entity of a project.
//
// Wiring is held as edge lists keyed by the signal at each end: drives maps
// a signal to the connections it sources, driven to the connections that
// end on it.
type Design struct {
	mu sync.RWMutex

	blocks []*Block
	ports  []*Port
	ties   []*ConstantTie
	conns  []*Connection

	drives map[Signal][]ConnID
	driven map[Signal][]ConnID
}

// NewDesign creates an empty arena.
func NewDesign() *Design {
	return &Design{
		drives: make(map[Signal][]ConnID),
		driven: make(map[Signal][]ConnID),
	}
}

// Block returns the block with the given ID, or nil.
func (d *Design) Block(id BlockID) *Block {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.block(id)
}

// Port returns the port with the given ID, or nil.
func (d *Design) Port(id PortID) *Port {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.port(id)
}

// Roots returns the blocks without a parent in creation order.
func (d *Design) Roots() []*Block {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var roots []*Block
	for _, b := range d.blocks {
		if b.parent == NoBlock {
			roots = append(roots, b)
		}
	}
	return roots
}

// Stats reports the number of entities held by the arena.
func (d *Design) Stats() (blocks, ports, connections int) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.blocks), len(d.ports), len(d.conns)
}

// NewBlock creates a block named name of module type typ. A nil parent
// creates a root block. Sibling names must be unique.
func (d *Design) NewBlock(name, typ string, parent *Block) (*Block, error) {
	if name == "" {
		return nil, fmt.Errorf("design: block name must not be empty")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	pid := NoBlock
	if parent != nil {
		if parent.d != d {
			return nil, fmt.Errorf("design: parent of %s: %w", name, ErrForeign)
		}
		if parent.child(name) != nil {
			return nil, fmt.Errorf("design: block %s.%s: %w", parent.path(), name, ErrDuplicate)
		}
		pid = parent.id
	}
	b := &Block{
		Type:   typ,
		d:      d,
		id:     BlockID(len(d.blocks)),
		name:   name,
		parent: pid,
	}
	d.blocks = append(d.blocks, b)
	if parent != nil {
		parent.children = append(parent.children, b.id)
	}
	return b, nil
}

func (d *Design) block(id BlockID) *Block {
	if id < 0 || int(id) >= len(d.blocks) {
		return nil
	}
	return d.blocks[id]
}

func (d *Design) port(id PortID) *Port {
	if id < 0 || int(id) >= len(d.ports) {
		return nil
	}
	return d.ports[id]
}

// owner returns the block that owns the port carrying sig.
func (d *Design) owner(sig Signal) *Block {
	return d.blocks[d.ports[sig.Port].block]
}

// signalName renders sig as block.path[port][index].
func (d *Design) signalName(sig Signal) string {
	p := d.port(sig.Port)
	if p == nil {
		return fmt.Sprintf("<port %d>[%d]", sig.Port, sig.Index)
	}
	return fmt.Sprintf("%s[%d]", p.path(), sig.Index)
}

func (d *Design) link(c *Connection) {
	if c.tie < 0 {
		d.drives[c.from] = append(d.drives[c.from], c.id)
	}
	d.driven[c.to] = append(d.driven[c.to], c.id)
}

// Retain compacts the arena down to the blocks and ports accepted by keep
// functions. Dropping a block drops its whole sub-tree. Connections lose
// their place when either end is dropped, and address-map entries and
// constraints when their port is dropped. Entity pointers held by callers
// for retained entities stay valid.
func (d *Design) Retain(keepBlock func(*Block) bool, keepPort func(*Port) bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	blockMap := make([]BlockID, len(d.blocks))
	var blocks []*Block
	for i, b := range d.blocks {
		blockMap[i] = NoBlock
		if b.parent != NoBlock && blockMap[b.parent] == NoBlock {
			continue
		}
		if keepBlock != nil && !keepBlock(b) {
			continue
		}
		blockMap[i] = BlockID(len(blocks))
		blocks = append(blocks, b)
	}

	portMap := make([]PortID, len(d.ports))
	var ports []*Port
	for i, p := range d.ports {
		portMap[i] = -1
		if blockMap[p.block] == NoBlock {
			continue
		}
		if keepPort != nil && !keepPort(p) {
			continue
		}
		portMap[i] = PortID(len(ports))
		ports = append(ports, p)
	}

	tieMap := make([]TieID, len(d.ties))
	var ties []*ConstantTie
	for i, t := range d.ties {
		tieMap[i] = -1
		if blockMap[t.block] == NoBlock {
			continue
		}
		tieMap[i] = TieID(len(ties))
		ties = append(ties, t)
	}

	connMap := make([]ConnID, len(d.conns))
	var conns []*Connection
	for i, c := range d.conns {
		connMap[i] = -1
		if blockMap[c.block] == NoBlock || portMap[c.to.Port] < 0 {
			continue
		}
		if c.tie >= 0 && tieMap[c.tie] < 0 {
			continue
		}
		if c.tie < 0 && portMap[c.from.Port] < 0 {
			continue
		}
		connMap[i] = ConnID(len(conns))
		conns = append(conns, c)
	}

	d.remap(remapping{
		blocks: blocks, ports: ports, ties: ties, conns: conns,
		block: func(id BlockID) BlockID {
			if id == NoBlock {
				return NoBlock
			}
			return blockMap[id]
		},
		port: func(id PortID) PortID { return portMap[id] },
		tie: func(id TieID) TieID {
			if id < 0 {
				return -1
			}
			return tieMap[id]
		},
		conn: func(id ConnID) ConnID { return connMap[id] },
	})
}

// absorb moves every entity of o into d. o is left empty.
func (d *Design) absorb(o *Design) {
	if o == d {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	d.mu.Lock()
	defer d.mu.Unlock()

	nb, np, nt, nc := len(d.blocks), len(d.ports), len(d.ties), len(d.conns)
	for _, b := range o.blocks {
		b.d = d
	}
	for _, p := range o.ports {
		p.d = d
	}
	for _, c := range o.conns {
		c.d = d
	}
	for _, t := range o.ties {
		t.d = d
	}
	r := remapping{
		blocks: append(d.blocks, o.blocks...),
		ports:  append(d.ports, o.ports...),
		ties:   append(d.ties, o.ties...),
		conns:  append(d.conns, o.conns...),
		offset: [4]int{nb, np, nt, nc},
		block: func(id BlockID) BlockID {
			if id == NoBlock {
				return NoBlock
			}
			return id + BlockID(nb)
		},
		port: func(id PortID) PortID { return id + PortID(np) },
		tie: func(id TieID) TieID {
			if id < 0 {
				return -1
			}
			return id + TieID(nt)
		},
		conn: func(id ConnID) ConnID { return id + ConnID(nc) },
	}
	d.remap(r)
	o.blocks, o.ports, o.ties, o.conns = nil, nil, nil, nil
	o.drives = make(map[Signal][]ConnID)
	o.driven = make(map[Signal][]ConnID)
}

type remapping struct {
	blocks []*Block
	ports  []*Port
	ties   []*ConstantTie
	conns  []*Connection
	// offset marks entities already in the arena with correct IDs
	// (blocks, ports, ties, conns); they are skipped by the rewrite.
	offset [4]int

	block func(BlockID) BlockID
	port  func(PortID) PortID
	tie   func(TieID) TieID
	conn  func(ConnID) ConnID
}

func (d *Design) remap(r remapping) {
	sig := func(s Signal) Signal { return Signal{Port: r.port(s.Port), Index: s.Index} }

	for i := r.offset[0]; i < len(r.blocks); i++ {
		b := r.blocks[i]
		b.id = r.block(b.id)
		b.parent = r.block(b.parent)
		b.children = keepBlocks(b.children, r.block)
		b.inputs = keepPorts(b.inputs, r.port)
		b.outputs = keepPorts(b.outputs, r.port)
		b.inouts = keepPorts(b.inouts, r.port)
		b.conns = keepConns(b.conns, r.conn)
		ties := b.ties[:0]
		for _, t := range b.ties {
			if nt := r.tie(t); nt >= 0 {
				ties = append(ties, nt)
			}
		}
		b.ties = ties
		if m := b.addrMap; m != nil {
			m.retain(func(s Signal) (Signal, bool) {
				if np := r.port(s.Port); np >= 0 {
					return Signal{Port: np, Index: s.Index}, true
				}
				return Signal{}, false
			})
		}
	}
	for i := r.offset[1]; i < len(r.ports); i++ {
		p := r.ports[i]
		p.id = r.port(p.id)
		p.block = r.block(p.block)
	}
	for i := r.offset[2]; i < len(r.ties); i++ {
		t := r.ties[i]
		t.id = r.tie(t.id)
		t.block = r.block(t.block)
	}
	for i := r.offset[3]; i < len(r.conns); i++ {
		c := r.conns[i]
		c.id = r.conn(c.id)
		c.block = r.block(c.block)
		c.tie = r.tie(c.tie)
		if c.tie < 0 {
			c.from = sig(c.from)
		}
		c.to = sig(c.to)
	}

	d.blocks, d.ports, d.ties, d.conns = r.blocks, r.ports, r.ties, r.conns
	d.drives = make(map[Signal][]ConnID)
	d.driven = make(map[Signal][]ConnID)
	for _, c := range d.conns {
		d.link(c)
	}
}

func keepBlocks(ids []BlockID, f func(BlockID) BlockID) []BlockID {
	out := ids[:0]
	for _, id := range ids {
		if n := f(id); n != NoBlock {
			out = append(out, n)
		}
	}
	return out
}

func keepPorts(ids []PortID, f func(PortID) PortID) []PortID {
	out := ids[:0]
	for _, id := range ids {
		if n := f(id); n >= 0 {
			out = append(out, n)
		}
	}
	return out
}

func keepConns(ids []ConnID, f func(ConnID) ConnID) []ConnID {
	out := ids[:0]
	for _, id := range ids {
		if n := f(id); n >= 0 {
			out = append(out, n)
		}
	}
	return out
}
