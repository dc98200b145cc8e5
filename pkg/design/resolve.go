package design

import "fmt"

// Path is a sequence of signals from a start point towards a goal.
type Path []Signal

// Last returns the final signal of the path.
func (p Path) Last() Signal { return p[len(p)-1] }

func (p Path) contains(s Signal) bool {
	for _, x := range p {
		if x == s {
			return true
		}
	}
	return false
}

func (p Path) index(s Signal) int {
	for i, x := range p {
		if x == s {
			return i
		}
	}
	return -1
}

// join returns p followed by q in fresh storage.
func (p Path) join(q ...Signal) Path {
	out := make(Path, 0, len(p)+len(q))
	out = append(out, p...)
	return append(out, q...)
}

// Names renders each signal of path as block.path[port][index].
func (d *Design) Names(path Path) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, len(path))
	for i, s := range path {
		out[i] = d.signalName(s)
	}
	return out
}

// Destination is where ResolveAddress delivers an address.
type Destination struct {
	Port  *Port
	Index int
	// Address is the address as seen by the destination, after every
	// initiator translation on the way.
	Address uint64
}

// ChaseConnection follows direct wiring forward from signal idx and returns
// one path per terminal reached. A terminal is a signal that drives nothing
// or an input of a leaf block. A branch that loops back on itself ends at
// the last signal before the loop.
func (p *Port) ChaseConnection(idx int) ([]Path, error) {
	p.d.mu.RLock()
	defer p.d.mu.RUnlock()
	if err := p.checkIndex(idx); err != nil {
		return nil, err
	}
	return p.d.chase(p.Signal(idx), nil), nil
}

func (d *Design) chase(sig Signal, path Path) []Path {
	if path.contains(sig) {
		return []Path{path}
	}
	path = path.join(sig)
	port := d.ports[sig.Port]
	if port.Direction == Input && d.blocks[port.block].Entity.Flag(AttrLeafNode) {
		return []Path{path}
	}
	out := d.drives[sig]
	if len(out) == 0 {
		return []Path{path}
	}
	var paths []Path
	for _, id := range out {
		paths = append(paths, d.chase(d.conns[id].to, path)...)
	}
	return paths
}

// FindConnectionPath searches for the shortest route from signal idx of p
// to signal remoteIdx of remote, through wiring and through address maps
// from an initiator to every target it may reach. The route from a signal
// to itself is the empty path. A nil path with a nil error means the two
// signals are not related.
func (p *Port) FindConnectionPath(idx int, remote *Port, remoteIdx int) (Path, error) {
	p.d.mu.RLock()
	defer p.d.mu.RUnlock()
	if remote.d != p.d {
		return nil, fmt.Errorf("design: path to %s: %w", remote.Name, ErrForeign)
	}
	if err := p.checkIndex(idx); err != nil {
		return nil, err
	}
	if err := remote.checkIndex(remoteIdx); err != nil {
		return nil, err
	}
	return p.d.findPath(p.Signal(idx), remote.Signal(remoteIdx), nil), nil
}

// findPath returns the shortest path from from to goal appended to path,
// or nil. Among equal lengths the first found wins; wiring is explored in
// connection declaration order and map hops in target declaration order.
func (d *Design) findPath(from, goal Signal, path Path) Path {
	if path.contains(from) {
		return nil
	}
	if from == goal {
		if path == nil {
			return Path{}
		}
		return path
	}
	dests := d.chase(from, nil)
	for _, dest := range dests {
		if i := dest.index(goal); i >= 0 {
			return path.join(dest[:i+1]...)
		}
	}
	var best Path
	for _, dest := range dests {
		end := dest.Last()
		m := d.owner(end).addrMap
		if m == nil {
			continue
		}
		in := m.initBySig[end]
		if in == nil {
			continue
		}
		prefix := path.join(dest...)
		for _, t := range m.targetsFor(in) {
			var found Path
			switch {
			case prefix.contains(t.sig):
				continue
			case t.sig == goal:
				found = prefix.join(t.sig)
			default:
				found = d.findPath(t.sig, goal, prefix)
			}
			if found != nil && (best == nil || len(found) < len(best)) {
				best = found
			}
		}
	}
	return best
}

// ResolveAddress routes address, presented on signal idx of p, to the port
// signal that finally receives it. Each initiator on the way translates the
// address and selects a target; plain wiring passes it on unchanged.
//
// A translated address that no target accepts fails with ErrNoTarget and
// wiring that fans out to more than one terminal fails with ErrAmbiguous.
func (p *Port) ResolveAddress(address uint64, idx int) (Destination, error) {
	p.d.mu.RLock()
	defer p.d.mu.RUnlock()
	if err := p.checkIndex(idx); err != nil {
		return Destination{}, err
	}
	seen := make(map[routeStep]bool)
	sig, addr, err := p.d.resolveAddress(p.Signal(idx), address, seen)
	if err != nil {
		return Destination{}, err
	}
	return Destination{Port: p.d.ports[sig.Port], Index: sig.Index, Address: addr}, nil
}

type routeStep struct {
	sig  Signal
	addr uint64
}

func (d *Design) resolveAddress(sig Signal, addr uint64, seen map[routeStep]bool) (Signal, uint64, error) {
	step := routeStep{sig, addr}
	if seen[step] {
		return Signal{}, 0, fmt.Errorf("design: %s at 0x%x: %w", d.signalName(sig), addr, ErrRoutingLoop)
	}
	seen[step] = true

	var dests []Path
	if m := d.owner(sig).addrMap; m != nil && m.initBySig[sig] != nil {
		in := m.initBySig[sig]
		out := in.OutboundAddress(addr)
		t := m.resolveTarget(out, in)
		if t == nil {
			return Signal{}, 0, fmt.Errorf("design: %s: address 0x%x in map of %s: %w",
				d.signalName(sig), out, m.block.path(), ErrNoTarget)
		}
		addr = out
		dests = d.chase(t.sig, nil)
	} else {
		dests = d.chase(sig, nil)
	}

	switch {
	case len(dests) > 1:
		names := make([]string, len(dests))
		for i, p := range dests {
			names[i] = d.signalName(p.Last())
		}
		return Signal{}, 0, fmt.Errorf("design: %s fans out to %v: %w", d.signalName(sig), names, ErrAmbiguous)
	case len(dests) == 0 || dests[0].Last() == sig:
		return sig, addr, nil
	}
	return d.resolveAddress(dests[0].Last(), addr, seen)
}
