package design

import (
	"fmt"
	"sort"
)

// RegisterGroup is a named bank of registers at an offset within its
// block's register space.
type RegisterGroup struct {
	Entity
	Name   string
	Offset uint64

	block     *Block
	registers []*Register
}

// NewRegisterGroup creates a detached register group.
func NewRegisterGroup(name string, offset uint64) *RegisterGroup {
	return &RegisterGroup{Name: name, Offset: offset}
}

// NodeID implements Node.
func (g *RegisterGroup) NodeID() string { return g.Name }

// Block returns the owning block, or nil while detached.
func (g *RegisterGroup) Block() *Block { return g.block }

// AddRegister inserts r, keeping registers sorted by offset. Two registers
// may not share an offset or a name.
func (g *RegisterGroup) AddRegister(r *Register) error {
	if r.group != nil {
		return fmt.Errorf("design: register %s: %w", r.Name, ErrAlreadySet)
	}
	for _, other := range g.registers {
		if other.Name == r.Name {
			return fmt.Errorf("design: register %s.%s: %w", g.Name, r.Name, ErrDuplicate)
		}
		if other.Offset == r.Offset {
			return fmt.Errorf("design: registers %s and %s at 0x%x: %w", other.Name, r.Name, r.Offset, ErrOverlap)
		}
	}
	r.group = g
	g.registers = append(g.registers, r)
	sort.SliceStable(g.registers, func(i, j int) bool {
		return g.registers[i].Offset < g.registers[j].Offset
	})
	return nil
}

// Registers returns the registers in ascending offset order.
func (g *RegisterGroup) Registers() []*Register {
	return append([]*Register(nil), g.registers...)
}

// LookupRegister returns the register with the given name.
func (g *RegisterGroup) LookupRegister(name string) *Register {
	for _, r := range g.registers {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// Size returns the number of bytes spanned from the group offset to the end
// of its last register.
func (g *RegisterGroup) Size() uint64 {
	if len(g.registers) == 0 {
		return 0
	}
	last := g.registers[len(g.registers)-1]
	n := uint64((last.Width() + 7) / 8)
	if n == 0 {
		n = 1
	}
	return last.Offset + n
}

// RegisterAccess is the access mode of a register from the bus, from the
// owning block's logic and from instructions.
type RegisterAccess struct {
	Bus   Access `json:"bus"`
	Block Access `json:"block"`
	Inst  Access `json:"inst"`
}

// DefaultAccess is read-write from every side.
func DefaultAccess() RegisterAccess {
	return RegisterAccess{Bus: AccessReadWrite, Block: AccessReadWrite, Inst: AccessReadWrite}
}

// Validate checks each mode is a known access.
func (a RegisterAccess) Validate() error {
	for _, m := range []Access{a.Bus, a.Block, a.Inst} {
		if !m.Valid() {
			return fmt.Errorf("design: access %q: %w", m, ErrInvalidEnum)
		}
	}
	return nil
}

// Register is a command placed at an offset within a register group.
type Register struct {
	Entity
	Name   string
	Offset uint64
	Access RegisterAccess

	group  *RegisterGroup
	fields []*RegisterField
}

// NewRegister creates a register at offset within its future group.
func NewRegister(name string, offset uint64, access RegisterAccess) (*Register, error) {
	if err := access.Validate(); err != nil {
		return nil, fmt.Errorf("design: register %s: %w", name, err)
	}
	return &Register{Name: name, Offset: offset, Access: access}, nil
}

// NodeID implements Node.
func (r *Register) NodeID() string { return r.Name }

// Group returns the owning register group, or nil.
func (r *Register) Group() *RegisterGroup { return r.group }

// AddField inserts f keeping fields in ascending bit order. Field bits may
// not overlap.
func (r *Register) AddField(f *RegisterField) error {
	if err := f.Access.Validate(); err != nil {
		return fmt.Errorf("design: field %s.%s: %w", r.Name, f.Name, err)
	}
	for _, other := range r.fields {
		if other.Name == f.Name {
			return fmt.Errorf("design: field %s.%s: %w", r.Name, f.Name, ErrDuplicate)
		}
		if f.LSB <= other.MSB() && other.LSB <= f.MSB() {
			return fmt.Errorf("design: fields %s and %s of %s: %w", other.Name, f.Name, r.Name, ErrOverlap)
		}
	}
	r.fields = append(r.fields, f)
	sort.SliceStable(r.fields, func(i, j int) bool { return r.fields[i].LSB < r.fields[j].LSB })
	return nil
}

// Fields returns the fields in ascending LSB order.
func (r *Register) Fields() []*RegisterField {
	return append([]*RegisterField(nil), r.fields...)
}

// Field returns the field with the given name.
func (r *Register) Field(name string) *RegisterField {
	for _, f := range r.fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Width is the number of bits up to the top of the highest field.
func (r *Register) Width() int {
	w := 0
	for _, f := range r.fields {
		if top := f.LSB + f.Size; top > w {
			w = top
		}
	}
	return w
}

// BlockOffset returns the register offset plus its group's offset.
func (r *Register) BlockOffset() uint64 {
	if r.group == nil {
		return r.Offset
	}
	return r.Offset + r.group.Offset
}

// RelativeAddress returns the address of the register as seen from the
// block from. ok is false when from has no route to the register's block.
func (r *Register) RelativeAddress(from *Block) (int64, bool, error) {
	if r.group == nil || r.group.block == nil {
		return 0, false, fmt.Errorf("design: register %s: %w", r.Name, ErrDetached)
	}
	base, ok, err := from.RelativeAddressToBlock(r.group.block)
	if err != nil || !ok {
		return 0, ok, err
	}
	return base + int64(r.BlockOffset()), true, nil
}

// RelativeAddressFromPort is RelativeAddress from the block owning p.
func (r *Register) RelativeAddressFromPort(p *Port) (int64, bool, error) {
	return r.RelativeAddress(p.Block())
}

// RegisterField is a command field with its own access modes.
type RegisterField struct {
	CommandField
	Access RegisterAccess
}

// NewRegisterField creates a field of size bits at lsb.
func NewRegisterField(name string, lsb, size int, reset int64, signed bool, access RegisterAccess) (*RegisterField, error) {
	cf, err := NewCommandField(name, lsb, size, reset, signed)
	if err != nil {
		return nil, err
	}
	if err := access.Validate(); err != nil {
		return nil, fmt.Errorf("design: field %s: %w", name, err)
	}
	return &RegisterField{CommandField: *cf, Access: access}, nil
}
