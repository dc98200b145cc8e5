package design

import "fmt"

// Connection is a directed edge from a port signal, or a constant tie, to a
// port signal.
type Connection struct {
	Entity

	d     *Design
	id    ConnID
	block BlockID
	tie   TieID
	from  Signal
	to    Signal
}

// ID returns the arena ID of the connection.
func (c *Connection) ID() ConnID { return c.id }

// Block returns the block that declares the connection.
func (c *Connection) Block() *Block {
	c.d.mu.RLock()
	defer c.d.mu.RUnlock()
	return c.d.blocks[c.block]
}

// IsTieOff reports whether the connection is driven by a constant.
func (c *Connection) IsTieOff() bool { return c.tie >= 0 }

// From returns the driving port and signal index. The port is nil for a
// tie-off.
func (c *Connection) From() (*Port, int) {
	if c.tie >= 0 {
		return nil, 0
	}
	c.d.mu.RLock()
	defer c.d.mu.RUnlock()
	return c.d.ports[c.from.Port], c.from.Index
}

// Tie returns the constant driving the connection, or nil.
func (c *Connection) Tie() *ConstantTie {
	if c.tie < 0 {
		return nil
	}
	c.d.mu.RLock()
	defer c.d.mu.RUnlock()
	return c.d.ties[c.tie]
}

// To returns the driven port and signal index.
func (c *Connection) To() (*Port, int) {
	c.d.mu.RLock()
	defer c.d.mu.RUnlock()
	return c.d.ports[c.to.Port], c.to.Index
}

// FromSignal returns the driving signal; ok is false for a tie-off.
func (c *Connection) FromSignal() (Signal, bool) { return c.from, c.tie < 0 }

// ToSignal returns the driven signal.
func (c *Connection) ToSignal() Signal { return c.to }

func (c *Connection) String() string {
	c.d.mu.RLock()
	defer c.d.mu.RUnlock()
	src := ""
	if c.tie >= 0 {
		src = c.d.ties[c.tie].path()
	} else {
		src = c.d.signalName(c.from)
	}
	return src + " -> " + c.d.signalName(c.to)
}

// ConstantTie is a fixed-value source owned by a block.
type ConstantTie struct {
	Entity
	Value uint64
	// Reset ties to the interconnect's reset value rather than Value.
	Reset bool

	d     *Design
	id    TieID
	block BlockID
}

// Name returns tie-<value>.
func (t *ConstantTie) Name() string { return fmt.Sprintf("tie-%d", t.Value) }

// Block returns the owning block.
func (t *ConstantTie) Block() *Block {
	t.d.mu.RLock()
	defer t.d.mu.RUnlock()
	return t.d.blocks[t.block]
}

// HierarchicalPath returns block.path[tie-<value>].
func (t *ConstantTie) HierarchicalPath() string {
	t.d.mu.RLock()
	defer t.d.mu.RUnlock()
	return t.path()
}

func (t *ConstantTie) path() string {
	return t.d.blocks[t.block].path() + "[" + t.Name() + "]"
}
