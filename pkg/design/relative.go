package design

import "fmt"

// RelativeAddress returns the signed offset at which signal remoteIdx of
// remote appears to signal idx of p. ok is false when no path links them.
//
// Every path node inside a block with an address map contributes: targets
// add their offset and initiators subtract theirs. When the path leaves p
// through an initiator the result is expressed in that initiator's
// translated space, so its offset is added back.
func (p *Port) RelativeAddress(idx int, remote *Port, remoteIdx int) (int64, bool, error) {
	p.d.mu.RLock()
	defer p.d.mu.RUnlock()
	if remote.d != p.d {
		return 0, false, fmt.Errorf("design: relative address of %s: %w", remote.Name, ErrForeign)
	}
	if err := p.checkIndex(idx); err != nil {
		return 0, false, err
	}
	if err := remote.checkIndex(remoteIdx); err != nil {
		return 0, false, err
	}
	return p.d.relativeAddress(p.Signal(idx), remote.Signal(remoteIdx))
}

func (d *Design) relativeAddress(from, to Signal) (int64, bool, error) {
	path := d.findPath(from, to, nil)
	if path == nil {
		return 0, false, nil
	}
	var contributors Path
	for _, s := range path {
		if d.owner(s).addrMap != nil {
			contributors = append(contributors, s)
		}
	}
	if len(contributors) == 0 {
		return 0, true, nil
	}
	var base int64
	for i := len(contributors) - 1; i >= 0; i-- {
		s := contributors[i]
		m := d.owner(s).addrMap
		in, t := m.initBySig[s], m.targetBySig[s]
		switch {
		case in != nil && t != nil:
			return 0, false, fmt.Errorf("design: %s is initiator and target: %w", d.signalName(s), ErrInconsistent)
		case in != nil:
			base -= in.Offset
		case t != nil:
			base += int64(t.Offset)
		default:
			return 0, false, fmt.Errorf("design: %s is not mapped in %s: %w", d.signalName(s), m.block.path(), ErrInconsistent)
		}
	}
	first := contributors[0]
	if in := d.owner(first).addrMap.initBySig[first]; in != nil {
		base += in.Offset
	}
	return base, true, nil
}

// RelativeAddressToPort returns the offset at which signal remoteIdx of
// remote appears from this block. Every signal of the block's outputs is
// tried as a source, in declaration order, and the first that reaches the
// remote signal is used.
func (b *Block) RelativeAddressToPort(remote *Port, remoteIdx int) (int64, bool, error) {
	b.d.mu.RLock()
	defer b.d.mu.RUnlock()
	if remote.d != b.d {
		return 0, false, fmt.Errorf("design: relative address of %s: %w", remote.Name, ErrForeign)
	}
	if err := remote.checkIndex(remoteIdx); err != nil {
		return 0, false, err
	}
	return b.relativeTo([]Signal{remote.Signal(remoteIdx)}, remote.path())
}

// RelativeAddressToBlock returns the offset at which remote appears from
// this block, pairing every output signal of b with every input signal of
// remote and using the first pairing with a path.
func (b *Block) RelativeAddressToBlock(remote *Block) (int64, bool, error) {
	b.d.mu.RLock()
	defer b.d.mu.RUnlock()
	return b.relativeToBlock(remote)
}

func (b *Block) relativeToBlock(remote *Block) (int64, bool, error) {
	if remote.d != b.d {
		return 0, false, fmt.Errorf("design: relative address of %s: %w", remote.name, ErrForeign)
	}
	var targets []Signal
	for _, id := range remote.inputs {
		p := b.d.ports[id]
		for i := 0; i < p.Count; i++ {
			targets = append(targets, p.Signal(i))
		}
	}
	return b.relativeTo(targets, remote.path())
}

func (b *Block) relativeTo(targets []Signal, name string) (int64, bool, error) {
	var sources []Signal
	for _, id := range b.outputs {
		p := b.d.ports[id]
		for i := 0; i < p.Count; i++ {
			sources = append(sources, p.Signal(i))
		}
	}
	if len(sources) == 0 {
		return 0, false, fmt.Errorf("design: %s has no output signals: %w", b.path(), ErrUnresolved)
	}
	if len(targets) == 0 {
		return 0, false, fmt.Errorf("design: %s has no input signals: %w", name, ErrUnresolved)
	}
	for _, s := range sources {
		for _, t := range targets {
			if b.d.findPath(s, t, nil) != nil {
				return b.d.relativeAddress(s, t)
			}
		}
	}
	return 0, false, nil
}
