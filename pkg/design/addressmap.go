package design

import "fmt"

// Initiator marks a port signal as a bus master of an address map. Outbound
// addresses are (address & Mask) + Offset.
type Initiator struct {
	Entity
	Mask   uint64
	Offset int64

	m   *AddressMap
	sig Signal
}

// Signal returns the port signal registered as initiator.
func (i *Initiator) Signal() Signal { return i.sig }

// Port returns the initiator's port.
func (i *Initiator) Port() *Port { return i.m.block.d.Port(i.sig.Port) }

// Index returns the initiator's signal index.
func (i *Initiator) Index() int { return i.sig.Index }

// OutboundAddress translates a into the map's address space. The add wraps
// modulo 2^64 so a negative offset subtracts.
func (i *Initiator) OutboundAddress(a uint64) uint64 {
	return (a & i.Mask) + uint64(i.Offset)
}

// ID returns path[port][index].
func (i *Initiator) ID() string {
	i.m.block.d.mu.RLock()
	defer i.m.block.d.mu.RUnlock()
	return i.m.block.d.signalName(i.sig)
}

// Target marks a port signal as a bus slave accepting [Offset,
// Offset+Aperture) of the map's address space.
type Target struct {
	Entity
	Offset   uint64
	Aperture uint64

	m   *AddressMap
	sig Signal
}

// Signal returns the port signal registered as target.
func (t *Target) Signal() Signal { return t.sig }

// Port returns the target's port.
func (t *Target) Port() *Port { return t.m.block.d.Port(t.sig.Port) }

// Index returns the target's signal index.
func (t *Target) Index() int { return t.sig.Index }

// Accepts reports whether a falls inside the target's aperture.
func (t *Target) Accepts(a uint64) bool {
	return a >= t.Offset && a-t.Offset < t.Aperture
}

// ID returns path[port][index].
func (t *Target) ID() string {
	t.m.block.d.mu.RLock()
	defer t.m.block.d.mu.RUnlock()
	return t.m.block.d.signalName(t.sig)
}

// Constraint limits an initiator to a target and the target to the
// initiator.
type Constraint struct {
	Entity
	Initiator *Initiator
	Target    *Target
}

// ID returns <initiator id>-<target id>.
func (c *Constraint) ID() string { return c.Initiator.ID() + "-" + c.Target.ID() }

// AddressMap routes addresses from initiators to targets within one block.
// Target declaration order is significant: the first target whose aperture
// contains an address wins.
type AddressMap struct {
	Entity

	block       *Block
	initiators  []*Initiator
	targets     []*Target
	constraints []*Constraint

	initBySig   map[Signal]*Initiator
	targetBySig map[Signal]*Target
}

func newAddressMap(b *Block) *AddressMap {
	return &AddressMap{
		block:       b,
		initBySig:   make(map[Signal]*Initiator),
		targetBySig: make(map[Signal]*Target),
	}
}

// Block returns the block owning the map.
func (m *AddressMap) Block() *Block { return m.block }

// AddInitiator registers signal idx of p as an initiator.
func (m *AddressMap) AddInitiator(p *Port, idx int, mask uint64, offset int64) (*Initiator, error) {
	d := m.block.d
	d.mu.Lock()
	defer d.mu.Unlock()
	sig, err := m.checkNew(p, idx)
	if err != nil {
		return nil, err
	}
	if _, ok := m.initBySig[sig]; ok {
		return nil, fmt.Errorf("design: initiator %s in map of %s: %w", d.signalName(sig), m.block.path(), ErrDuplicate)
	}
	if _, ok := m.targetBySig[sig]; ok {
		return nil, fmt.Errorf("design: initiator %s in map of %s: %w", d.signalName(sig), m.block.path(), ErrRoleConflict)
	}
	in := &Initiator{Mask: mask, Offset: offset, m: m, sig: sig}
	m.initiators = append(m.initiators, in)
	m.initBySig[sig] = in
	return in, nil
}

// AddTarget registers signal idx of p as a target with the given window.
func (m *AddressMap) AddTarget(p *Port, idx int, offset, aperture uint64) (*Target, error) {
	d := m.block.d
	d.mu.Lock()
	defer d.mu.Unlock()
	sig, err := m.checkNew(p, idx)
	if err != nil {
		return nil, err
	}
	if _, ok := m.targetBySig[sig]; ok {
		return nil, fmt.Errorf("design: target %s in map of %s: %w", d.signalName(sig), m.block.path(), ErrDuplicate)
	}
	if _, ok := m.initBySig[sig]; ok {
		return nil, fmt.Errorf("design: target %s in map of %s: %w", d.signalName(sig), m.block.path(), ErrRoleConflict)
	}
	t := &Target{Offset: offset, Aperture: aperture, m: m, sig: sig}
	m.targets = append(m.targets, t)
	m.targetBySig[sig] = t
	return t, nil
}

func (m *AddressMap) checkNew(p *Port, idx int) (Signal, error) {
	if p == nil || p.d != m.block.d {
		return Signal{}, fmt.Errorf("design: map of %s: %w", m.block.path(), ErrForeign)
	}
	if err := p.checkIndex(idx); err != nil {
		return Signal{}, err
	}
	return p.Signal(idx), nil
}

// AddConstraint restricts in and t to each other. Both must belong to this
// map and the pair may be constrained once.
func (m *AddressMap) AddConstraint(in *Initiator, t *Target) (*Constraint, error) {
	d := m.block.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if in == nil || in.m != m || m.initBySig[in.sig] != in {
		return nil, fmt.Errorf("design: constraint initiator in map of %s: %w", m.block.path(), ErrNotInMap)
	}
	if t == nil || t.m != m || m.targetBySig[t.sig] != t {
		return nil, fmt.Errorf("design: constraint target in map of %s: %w", m.block.path(), ErrNotInMap)
	}
	for _, c := range m.constraints {
		if c.Initiator == in && c.Target == t {
			return nil, fmt.Errorf("design: constraint %s-%s: %w",
				d.signalName(in.sig), d.signalName(t.sig), ErrDuplicate)
		}
	}
	c := &Constraint{Initiator: in, Target: t}
	m.constraints = append(m.constraints, c)
	return c, nil
}

// Initiators returns the initiators in declaration order.
func (m *AddressMap) Initiators() []*Initiator {
	m.block.d.mu.RLock()
	defer m.block.d.mu.RUnlock()
	return append([]*Initiator(nil), m.initiators...)
}

// Targets returns the targets in declaration order.
func (m *AddressMap) Targets() []*Target {
	m.block.d.mu.RLock()
	defer m.block.d.mu.RUnlock()
	return append([]*Target(nil), m.targets...)
}

// Constraints returns the constraints in declaration order.
func (m *AddressMap) Constraints() []*Constraint {
	m.block.d.mu.RLock()
	defer m.block.d.mu.RUnlock()
	return append([]*Constraint(nil), m.constraints...)
}

// Initiator returns the initiator registered for signal idx of p, or nil.
func (m *AddressMap) Initiator(p *Port, idx int) *Initiator {
	m.block.d.mu.RLock()
	defer m.block.d.mu.RUnlock()
	return m.initBySig[p.Signal(idx)]
}

// Target returns the target registered for signal idx of p, or nil.
func (m *AddressMap) Target(p *Port, idx int) *Target {
	m.block.d.mu.RLock()
	defer m.block.d.mu.RUnlock()
	return m.targetBySig[p.Signal(idx)]
}

// ResolveTarget returns the first declared target whose aperture contains
// address, which must already be in the map's space. A constrained
// initiator only considers its constrained targets. Nil means no target
// accepts the address.
func (m *AddressMap) ResolveTarget(address uint64, in *Initiator) *Target {
	m.block.d.mu.RLock()
	defer m.block.d.mu.RUnlock()
	return m.resolveTarget(address, in)
}

func (m *AddressMap) resolveTarget(address uint64, in *Initiator) *Target {
	var allowed map[*Target]bool
	if in != nil {
		for _, c := range m.constraints {
			if c.Initiator == in {
				if allowed == nil {
					allowed = make(map[*Target]bool)
				}
				allowed[c.Target] = true
			}
		}
	}
	for _, t := range m.targets {
		if allowed != nil && !allowed[t] {
			continue
		}
		if t.Accepts(address) {
			return t
		}
	}
	return nil
}

// TargetsForInitiator returns the targets in reach of in, in declaration
// order. A constrained initiator reaches only its constrained targets; an
// unconstrained one reaches every unconstrained target and every target
// constrained to it.
func (m *AddressMap) TargetsForInitiator(in *Initiator) ([]*Target, error) {
	m.block.d.mu.RLock()
	defer m.block.d.mu.RUnlock()
	if in == nil || in.m != m {
		return nil, fmt.Errorf("design: targets for initiator in map of %s: %w", m.block.path(), ErrNotInMap)
	}
	return m.targetsFor(in), nil
}

func (m *AddressMap) targetsFor(in *Initiator) []*Target {
	mine := make(map[*Target]bool)
	constrained := make(map[*Target]bool)
	for _, c := range m.constraints {
		constrained[c.Target] = true
		if c.Initiator == in {
			mine[c.Target] = true
		}
	}
	var out []*Target
	for _, t := range m.targets {
		if len(mine) > 0 {
			if mine[t] {
				out = append(out, t)
			}
			continue
		}
		if !constrained[t] {
			out = append(out, t)
		}
	}
	return out
}

// InitiatorsForTarget is the mirror of TargetsForInitiator.
func (m *AddressMap) InitiatorsForTarget(t *Target) ([]*Initiator, error) {
	m.block.d.mu.RLock()
	defer m.block.d.mu.RUnlock()
	if t == nil || t.m != m {
		return nil, fmt.Errorf("design: initiators for target in map of %s: %w", m.block.path(), ErrNotInMap)
	}
	mine := make(map[*Initiator]bool)
	constrained := make(map[*Initiator]bool)
	for _, c := range m.constraints {
		constrained[c.Initiator] = true
		if c.Target == t {
			mine[c.Initiator] = true
		}
	}
	var out []*Initiator
	for _, in := range m.initiators {
		if len(mine) > 0 {
			if mine[in] {
				out = append(out, in)
			}
			continue
		}
		if !constrained[in] {
			out = append(out, in)
		}
	}
	return out, nil
}

// retain rewrites the signals of every entry through f, dropping entries
// whose signal f rejects along with their constraints.
func (m *AddressMap) retain(f func(Signal) (Signal, bool)) {
	inits := m.initiators[:0]
	m.initBySig = make(map[Signal]*Initiator)
	dropped := make(map[any]bool)
	for _, in := range m.initiators {
		sig, ok := f(in.sig)
		if !ok {
			dropped[in] = true
			continue
		}
		in.sig = sig
		inits = append(inits, in)
		m.initBySig[sig] = in
	}
	m.initiators = inits

	targets := m.targets[:0]
	m.targetBySig = make(map[Signal]*Target)
	for _, t := range m.targets {
		sig, ok := f(t.sig)
		if !ok {
			dropped[t] = true
			continue
		}
		t.sig = sig
		targets = append(targets, t)
		m.targetBySig[sig] = t
	}
	m.targets = targets

	cons := m.constraints[:0]
	for _, c := range m.constraints {
		if !dropped[c.Initiator] && !dropped[c.Target] {
			cons = append(cons, c)
		}
	}
	m.constraints = cons
}
