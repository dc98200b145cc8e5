package design

import (
	"fmt"
	"strings"
)

// Interconnect describes a bus or signal bundle type that ports carry.
type Interconnect struct {
	Entity
	Name string
	Role Role

	project    *Project
	components []*InterconnectComponent
}

// NewInterconnect creates an interconnect type. An empty role is MASTER.
func NewInterconnect(name string, role Role) (*Interconnect, error) {
	if role == "" {
		role = RoleMaster
	}
	if !role.Valid() {
		return nil, fmt.Errorf("design: interconnect %s role %q: %w", name, role, ErrInvalidEnum)
	}
	return &Interconnect{Name: name, Role: role}, nil
}

// NodeID implements Node.
func (ic *Interconnect) NodeID() string { return ic.Name }

// AddComponent appends c.
func (ic *Interconnect) AddComponent(c *InterconnectComponent) error {
	for _, other := range ic.components {
		if other.Name == c.Name {
			return fmt.Errorf("design: component %s.%s: %w", ic.Name, c.Name, ErrDuplicate)
		}
	}
	c.owner = ic
	ic.components = append(ic.components, c)
	return nil
}

// Components returns the components in declaration order.
func (ic *Interconnect) Components() []*InterconnectComponent {
	return append([]*InterconnectComponent(nil), ic.components...)
}

// Roles returns the set of roles offered by the interconnect, seen from its
// own role. A SLAVE interconnect swaps the MASTER and SLAVE roles of its
// components.
func (ic *Interconnect) Roles() map[Role]bool {
	return ic.roles(make(map[*Interconnect]bool))
}

func (ic *Interconnect) roles(active map[*Interconnect]bool) map[Role]bool {
	roles := make(map[Role]bool)
	if active[ic] {
		return roles
	}
	active[ic] = true
	defer delete(active, ic)
	for _, c := range ic.components {
		for _, r := range c.roles(active) {
			roles[flip(ic.Role, r)] = true
		}
	}
	return roles
}

// HasRole reports whether any component offers role.
func (ic *Interconnect) HasRole(role Role) bool { return ic.Roles()[role] }

// RoleComponents returns the components offering role.
func (ic *Interconnect) RoleComponents(role Role) ([]*InterconnectComponent, error) {
	role = Role(strings.ToUpper(strings.TrimSpace(string(role))))
	if role != RoleMaster && role != RoleSlave && role != RoleBidir {
		return nil, fmt.Errorf("design: interconnect %s role %q: %w", ic.Name, role, ErrInvalidEnum)
	}
	var out []*InterconnectComponent
	for _, c := range ic.components {
		if c.HasRole(role) {
			out = append(out, c)
		}
	}
	return out, nil
}

// HasSimpleComponents reports whether any component is a plain signal.
func (ic *Interconnect) HasSimpleComponents() bool {
	for _, c := range ic.components {
		if c.Kind == Simple {
			return true
		}
	}
	return false
}

// HasComplexComponents reports whether any component references another
// interconnect.
func (ic *Interconnect) HasComplexComponents() bool {
	for _, c := range ic.components {
		if c.Kind == Complex {
			return true
		}
	}
	return false
}

// RoleWidth returns the total number of bits the interconnect carries in
// role.
func (ic *Interconnect) RoleWidth(role Role) (int, error) {
	return ic.roleWidth(role, make(map[*Interconnect]bool))
}

func (ic *Interconnect) roleWidth(role Role, active map[*Interconnect]bool) (int, error) {
	role = Role(strings.ToUpper(strings.TrimSpace(string(role))))
	if active[ic] {
		return 0, fmt.Errorf("design: interconnect %s references itself", ic.Name)
	}
	active[ic] = true
	defer delete(active, ic)

	want := role
	switch role {
	case RoleMaster, RoleSlave:
		// A SLAVE interconnect's master width is its components' slave width.
		want = flip(ic.Role, role)
	case RoleBidir:
	default:
		return 0, fmt.Errorf("design: interconnect %s role %q: %w", ic.Name, role, ErrInvalidEnum)
	}
	total := 0
	for _, c := range ic.components {
		if !c.HasRole(want) {
			continue
		}
		w, err := c.roleWidth(want, active)
		if err != nil {
			return 0, err
		}
		total += w * c.Count
	}
	return total, nil
}

func flip(outer, r Role) Role {
	if outer != RoleSlave {
		return r
	}
	switch r {
	case RoleMaster:
		return RoleSlave
	case RoleSlave:
		return RoleMaster
	}
	return r
}

// InterconnectComponent is one member of an interconnect: a SIMPLE signal
// bundle of Width bits or a COMPLEX reference to another interconnect.
type InterconnectComponent struct {
	Entity
	Name    string
	Role    Role
	Kind    ComponentKind
	Width   int
	Count   int
	Default int64
	// Ref names the referenced interconnect of a COMPLEX component.
	Ref string

	owner *Interconnect
	enum  map[string]*Define
}

// NewSimpleComponent creates a plain signal component.
func NewSimpleComponent(name string, role Role, width, count int, def int64) (*InterconnectComponent, error) {
	c := &InterconnectComponent{Name: name, Role: role, Kind: Simple, Width: width, Count: count, Default: def}
	return c, c.check()
}

// NewComplexComponent creates a component referencing interconnect ref.
func NewComplexComponent(name string, role Role, ref string, count int) (*InterconnectComponent, error) {
	c := &InterconnectComponent{Name: name, Role: role, Kind: Complex, Ref: ref, Count: count}
	return c, c.check()
}

func (c *InterconnectComponent) check() error {
	if c.Role == "" {
		c.Role = RoleMaster
	}
	if c.Count == 0 {
		c.Count = 1
	}
	switch {
	case !c.Role.Valid():
		return fmt.Errorf("design: component %s role %q: %w", c.Name, c.Role, ErrInvalidEnum)
	case !c.Kind.Valid():
		return fmt.Errorf("design: component %s kind %q: %w", c.Name, c.Kind, ErrInvalidEnum)
	case c.Kind == Complex && c.Ref == "":
		return fmt.Errorf("design: complex component %s has no reference: %w", c.Name, ErrUnresolved)
	}
	return nil
}

// AddEnumValue names a value the component may carry.
func (c *InterconnectComponent) AddEnumValue(name string, value int64, description string) {
	if c.enum == nil {
		c.enum = make(map[string]*Define)
	}
	def := NewDefine(name, value)
	def.Description = description
	c.enum[name] = def
}

// Enum returns the enumeration of named values.
func (c *InterconnectComponent) Enum() map[string]*Define { return c.enum }

// Reference returns the interconnect a COMPLEX component refers to.
func (c *InterconnectComponent) Reference() (*Interconnect, error) {
	if c.Kind != Complex {
		return nil, nil
	}
	if c.owner == nil || c.owner.project == nil {
		return nil, fmt.Errorf("design: component %s reference %s: %w", c.Name, c.Ref, ErrDetached)
	}
	ref := c.owner.project.Interconnect(c.Ref)
	if ref == nil {
		return nil, fmt.Errorf("design: component %s reference %s: %w", c.Name, c.Ref, ErrUnresolved)
	}
	return ref, nil
}

// Roles returns the roles offered by the component. A SLAVE reference to
// another interconnect swaps MASTER and SLAVE.
func (c *InterconnectComponent) Roles() []Role {
	return c.roles(make(map[*Interconnect]bool))
}

func (c *InterconnectComponent) roles(active map[*Interconnect]bool) []Role {
	if c.Kind == Simple {
		return []Role{c.Role}
	}
	ref, err := c.Reference()
	if err != nil {
		return nil
	}
	var out []Role
	for r := range ref.roles(active) {
		out = append(out, flip(c.Role, r))
	}
	return out
}

// HasRole reports whether the component offers role.
func (c *InterconnectComponent) HasRole(role Role) bool {
	for _, r := range c.Roles() {
		if r == role {
			return true
		}
	}
	return false
}

func (c *InterconnectComponent) roleWidth(role Role, active map[*Interconnect]bool) (int, error) {
	if c.Kind == Simple {
		if c.Role == role {
			return c.Width, nil
		}
		return 0, nil
	}
	ref, err := c.Reference()
	if err != nil {
		return 0, err
	}
	return ref.roleWidth(flip(c.Role, role), active)
}
