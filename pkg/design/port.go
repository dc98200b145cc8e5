package design

import "fmt"

// Port is a named, directed bundle of Count signals on a block. Type names
// the interconnect type carried by the port.
type Port struct {
	Entity
	Name      string
	Type      string
	Count     int
	Direction Direction

	d     *Design
	id    PortID
	block BlockID
}

// ID returns the arena ID of the port.
func (p *Port) ID() PortID { return p.id }

// Signal returns the signal at index i of the port.
func (p *Port) Signal(i int) Signal { return Signal{Port: p.id, Index: i} }

// Block returns the block that owns the port.
func (p *Port) Block() *Block {
	p.d.mu.RLock()
	defer p.d.mu.RUnlock()
	return p.d.blocks[p.block]
}

// Attribute returns the value stored under key, or nil.
func (p *Port) Attribute(key string) any {
	p.d.mu.RLock()
	defer p.d.mu.RUnlock()
	return p.Entity.Attribute(key)
}

// HasAttribute reports whether key is set.
func (p *Port) HasAttribute(key string) bool {
	p.d.mu.RLock()
	defer p.d.mu.RUnlock()
	return p.Entity.HasAttribute(key)
}

// SetAttribute stores value under key.
func (p *Port) SetAttribute(key string, value any) {
	p.d.mu.Lock()
	defer p.d.mu.Unlock()
	p.Entity.SetAttribute(key, value)
}

// RemoveAttribute deletes key.
func (p *Port) RemoveAttribute(key string) {
	p.d.mu.Lock()
	defer p.d.mu.Unlock()
	p.Entity.RemoveAttribute(key)
}

// AttributeKeys returns the attribute keys in sorted order.
func (p *Port) AttributeKeys() []string {
	p.d.mu.RLock()
	defer p.d.mu.RUnlock()
	return p.Entity.AttributeKeys()
}

// Flag reports whether key holds a true boolean.
func (p *Port) Flag(key string) bool {
	p.d.mu.RLock()
	defer p.d.mu.RUnlock()
	return p.Entity.Flag(key)
}

// HierarchicalPath returns block.path[name].
func (p *Port) HierarchicalPath() string {
	p.d.mu.RLock()
	defer p.d.mu.RUnlock()
	return p.path()
}

func (p *Port) path() string {
	return p.d.blocks[p.block].path() + "[" + p.Name + "]"
}

func (p *Port) checkIndex(i int) error {
	if i < 0 || i >= p.Count {
		return fmt.Errorf("design: %s index %d of %d: %w", p.path(), i, p.Count, ErrIndexRange)
	}
	return nil
}

// Drivers returns the connections that end on signal i.
func (p *Port) Drivers(i int) []*Connection {
	p.d.mu.RLock()
	defer p.d.mu.RUnlock()
	return p.d.connList(p.d.driven[p.Signal(i)])
}

// Loads returns the connections that signal i drives.
func (p *Port) Loads(i int) []*Connection {
	p.d.mu.RLock()
	defer p.d.mu.RUnlock()
	return p.d.connList(p.d.drives[p.Signal(i)])
}

// Inbound returns every connection ending on any signal of the port.
func (p *Port) Inbound() []*Connection {
	p.d.mu.RLock()
	defer p.d.mu.RUnlock()
	var out []*Connection
	for i := 0; i < p.Count; i++ {
		out = append(out, p.d.connList(p.d.driven[p.Signal(i)])...)
	}
	return out
}

// Outbound returns every connection leaving any signal of the port.
func (p *Port) Outbound() []*Connection {
	p.d.mu.RLock()
	defer p.d.mu.RUnlock()
	var out []*Connection
	for i := 0; i < p.Count; i++ {
		out = append(out, p.d.connList(p.d.drives[p.Signal(i)])...)
	}
	return out
}

// IsConnected reports whether signal i has any connection at either end.
func (p *Port) IsConnected(i int) bool {
	p.d.mu.RLock()
	defer p.d.mu.RUnlock()
	s := p.Signal(i)
	return len(p.d.drives[s]) > 0 || len(p.d.driven[s]) > 0
}

func (p *Port) anyEdge(edges map[Signal][]ConnID) bool {
	for i := 0; i < p.Count; i++ {
		if len(edges[p.Signal(i)]) > 0 {
			return true
		}
	}
	return false
}

func (d *Design) connList(ids []ConnID) []*Connection {
	out := make([]*Connection, len(ids))
	for i, id := range ids {
		out[i] = d.conns[id]
	}
	return out
}
