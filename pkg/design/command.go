package design

import (
	"fmt"
	"sort"
)

// Define is a named constant.
type Define struct {
	Entity
	Name string
	// Value is an int64 or a string.
	Value any
}

// NewDefine creates a define.
func NewDefine(name string, value any) *Define {
	return &Define{Name: name, Value: value}
}

// NodeID implements Node.
func (d *Define) NodeID() string { return d.Name }

// Command is an instruction word made of bit fields. Unlike register fields,
// command fields may overlap.
type Command struct {
	Entity
	Name  string
	Width int

	fields []*CommandField
}

// NewCommand creates a command of the given width in bits.
func NewCommand(name string, width int) *Command {
	return &Command{Name: name, Width: width}
}

// NodeID implements Node.
func (c *Command) NodeID() string { return c.Name }

// AddField inserts f keeping fields in ascending LSB order.
func (c *Command) AddField(f *CommandField) error {
	for _, other := range c.fields {
		if other.Name == f.Name {
			return fmt.Errorf("design: field %s.%s: %w", c.Name, f.Name, ErrDuplicate)
		}
	}
	c.fields = append(c.fields, f)
	sort.SliceStable(c.fields, func(i, j int) bool { return c.fields[i].LSB < c.fields[j].LSB })
	return nil
}

// Fields returns the fields in ascending LSB order.
func (c *Command) Fields() []*CommandField {
	return append([]*CommandField(nil), c.fields...)
}

// Field returns the field with the given name.
func (c *Command) Field(name string) *CommandField {
	for _, f := range c.fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// CommandField is a bit range within a command or register.
type CommandField struct {
	Entity
	Name   string
	LSB    int
	Size   int
	Reset  int64
	Signed bool

	enum map[string]*Define
}

// NewCommandField creates a field of size bits at lsb. An unsigned field
// may not reset to a negative value.
func NewCommandField(name string, lsb, size int, reset int64, signed bool) (*CommandField, error) {
	f := &CommandField{Name: name, LSB: lsb, Size: size, Reset: reset, Signed: signed}
	if err := f.Check(); err != nil {
		return nil, err
	}
	return f, nil
}

// Check validates the bit range and reset value.
func (f *CommandField) Check() error {
	switch {
	case f.LSB < 0:
		return fmt.Errorf("design: field %s lsb %d: %w", f.Name, f.LSB, ErrIndexRange)
	case f.Size < 1:
		return fmt.Errorf("design: field %s size %d: %w", f.Name, f.Size, ErrIndexRange)
	case !f.Signed && f.Reset < 0:
		return fmt.Errorf("design: field %s reset %d: %w", f.Name, f.Reset, ErrIndexRange)
	}
	return nil
}

// NodeID implements Node.
func (f *CommandField) NodeID() string { return f.Name }

// MSB returns the index of the top bit of the field.
func (f *CommandField) MSB() int { return f.LSB + f.Size - 1 }

// AddEnumValue names a value of the field.
func (f *CommandField) AddEnumValue(name string, value int64, description string) {
	if f.enum == nil {
		f.enum = make(map[string]*Define)
	}
	def := NewDefine(name, value)
	def.Description = description
	f.enum[name] = def
}

// EnumValue returns the named value, or nil.
func (f *CommandField) EnumValue(name string) *Define { return f.enum[name] }

// EnumNames returns the enumeration names in sorted order.
func (f *CommandField) EnumNames() []string {
	names := make([]string, 0, len(f.enum))
	for k := range f.enum {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
