package blob

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/OpenTraceLab/designformat/pkg/design"
)

type attributed interface {
	AttributeKeys() []string
	Attribute(key string) any
}

func entityOf(n attributed, description string) wireEntity {
	e := wireEntity{Description: description}
	for _, k := range n.AttributeKeys() {
		if e.Attributes == nil {
			e.Attributes = make(map[string]any)
		}
		e.Attributes[k] = n.Attribute(k)
	}
	return e
}

// Marshal encodes p as a blob.
func Marshal(p *design.Project, opts ...Option) ([]byte, error) {
	o := newOptions(opts)
	wp := wireProject{
		ID:         p.ID,
		Created:    p.Created.UnixMilli(),
		Path:       p.Path,
		Version:    p.Version,
		wireEntity: entityOf(p, p.Description),
	}
	for _, n := range p.Nodes() {
		env, err := dumpNode(n)
		if err != nil {
			return nil, err
		}
		o.log.WithFields(logrus.Fields{"type": env.Type, "id": n.NodeID()}).Debug("dump node")
		wp.Nodes = append(wp.Nodes, env)
	}
	var (
		data []byte
		err  error
	)
	if o.indent {
		data, err = json.MarshalIndent(wp, "", "  ")
	} else {
		data, err = json.Marshal(wp)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "blob: encode project %s", p.ID)
	}
	return data, nil
}

func dumpNode(n design.Node) (envelope, error) {
	var (
		tag string
		v   any
	)
	switch node := n.(type) {
	case *design.Block:
		tag, v = TagBlock, dumpBlock(node)
	case *design.Interconnect:
		tag, v = TagInterconnect, dumpInterconnect(node)
	case *design.Define:
		tag, v = TagDefine, dumpDefine(node)
	case *design.RegisterGroup:
		tag, v = TagRegisterGroup, dumpRegGroup(node)
	case *design.Command:
		tag, v = TagCommand, dumpCommand(node)
	default:
		return envelope{}, fmt.Errorf("blob: node %s: unsupported type %T", n.NodeID(), n)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return envelope{}, errors.Wrapf(err, "blob: encode %s %s", tag, n.NodeID())
	}
	return envelope{Type: tag, Dump: raw}, nil
}

func portRef(p *design.Port, idx int) *wirePortRef {
	return &wirePortRef{Block: p.Block().HierarchicalPath(), Port: p.Name, Index: idx}
}

func dumpBlock(b *design.Block) *wireBlock {
	wb := &wireBlock{
		ID:         b.Name(),
		wireEntity: entityOf(b, b.Description),
		Path:       b.HierarchicalPath(),
		Type:       b.Type,
	}
	if parent := b.Parent(); parent != nil {
		wb.Parent = parent.HierarchicalPath()
	}
	for _, p := range b.Ports() {
		wp := &wirePort{
			ID:         p.Name,
			wireEntity: entityOf(p, p.Description),
			Type:       p.Type,
			Count:      p.Count,
			Direction:  string(p.Direction),
			Block:      wb.Path,
		}
		switch p.Direction {
		case design.Input:
			wb.Ports.Input = append(wb.Ports.Input, wp)
		case design.Output:
			wb.Ports.Output = append(wb.Ports.Output, wp)
		default:
			wb.Ports.Inout = append(wb.Ports.Inout, wp)
		}
	}
	for _, c := range b.Children() {
		wb.Children = append(wb.Children, dumpBlock(c))
	}
	for _, c := range b.Connections() {
		wc := &wireConnection{wireEntity: entityOf(c, c.Description)}
		if t := c.Tie(); t != nil {
			wc.StartTie = &wireTie{
				ID:         t.Name(),
				wireEntity: entityOf(t, t.Description),
				Value:      t.Value,
				Reset:      t.Reset,
				Block:      wb.Path,
			}
		} else {
			from, fi := c.From()
			wc.StartPort = portRef(from, fi)
			wc.StartIndex = fi
		}
		to, ti := c.To()
		wc.EndPort = portRef(to, ti)
		wc.EndIndex = ti
		wb.Connections = append(wb.Connections, wc)
	}
	for _, g := range b.RegisterGroups() {
		wb.Registers = append(wb.Registers, dumpRegGroup(g))
	}
	if m := b.AddressMap(); m != nil {
		wb.AddressMap = dumpAddressMap(m)
	}
	return wb
}

func dumpAddressMap(m *design.AddressMap) *wireAddressMap {
	wm := &wireAddressMap{wireEntity: entityOf(m, m.Description)}
	for _, in := range m.Initiators() {
		wm.Initiators = append(wm.Initiators, &wireInitiator{
			wireEntity: entityOf(in, in.Description),
			Mask:       in.Mask,
			Offset:     in.Offset,
			Port:       portRef(in.Port(), in.Index()),
		})
	}
	for _, t := range m.Targets() {
		wm.Targets = append(wm.Targets, &wireTarget{
			wireEntity: entityOf(t, t.Description),
			Offset:     t.Offset,
			Aperture:   t.Aperture,
			Port:       portRef(t.Port(), t.Index()),
		})
	}
	for _, c := range m.Constraints() {
		wm.Constraints = append(wm.Constraints, &wireConstraint{
			wireEntity: entityOf(c, c.Description),
			Initiator:  portRef(c.Initiator.Port(), c.Initiator.Index()),
			Target:     portRef(c.Target.Port(), c.Target.Index()),
		})
	}
	return wm
}

func dumpAccess(a design.RegisterAccess) wireAccess {
	return wireAccess{Bus: string(a.Bus), Block: string(a.Block), Inst: string(a.Inst)}
}

func dumpEnum(names []string, lookup func(string) *design.Define) map[string]*wireDefine {
	if len(names) == 0 {
		return nil
	}
	out := make(map[string]*wireDefine, len(names))
	for _, name := range names {
		out[name] = dumpDefine(lookup(name))
	}
	return out
}

func dumpField(f *design.CommandField, access *wireAccess) *wireField {
	return &wireField{
		ID:         f.Name,
		wireEntity: entityOf(f, f.Description),
		LSB:        f.LSB,
		Size:       f.Size,
		Reset:      f.Reset,
		Signed:     f.Signed,
		Access:     access,
		Enum:       dumpEnum(f.EnumNames(), f.EnumValue),
	}
}

func dumpRegGroup(g *design.RegisterGroup) *wireRegGroup {
	wg := &wireRegGroup{ID: g.Name, wireEntity: entityOf(g, g.Description), Offset: g.Offset}
	for _, r := range g.Registers() {
		wr := &wireRegister{
			ID:         r.Name,
			wireEntity: entityOf(r, r.Description),
			Offset:     r.Offset,
			Access:     dumpAccess(r.Access),
		}
		for _, f := range r.Fields() {
			a := dumpAccess(f.Access)
			wr.Fields = append(wr.Fields, dumpField(&f.CommandField, &a))
		}
		wg.Registers = append(wg.Registers, wr)
	}
	return wg
}

func dumpCommand(c *design.Command) *wireCommand {
	wc := &wireCommand{ID: c.Name, wireEntity: entityOf(c, c.Description), Width: c.Width}
	for _, f := range c.Fields() {
		wc.Fields = append(wc.Fields, dumpField(f, nil))
	}
	return wc
}

func dumpDefine(d *design.Define) *wireDefine {
	raw, err := json.Marshal(d.Value)
	if err != nil {
		raw = []byte("null")
	}
	return &wireDefine{ID: d.Name, wireEntity: entityOf(d, d.Description), Value: raw}
}

func dumpInterconnect(ic *design.Interconnect) *wireInterconnect {
	wi := &wireInterconnect{ID: ic.Name, wireEntity: entityOf(ic, ic.Description), Role: string(ic.Role)}
	for _, c := range ic.Components() {
		enum := c.Enum()
		names := make([]string, 0, len(enum))
		for k := range enum {
			names = append(names, k)
		}
		wi.Components = append(wi.Components, &wireComponent{
			ID:         c.Name,
			wireEntity: entityOf(c, c.Description),
			Role:       string(c.Role),
			Type:       string(c.Kind),
			Count:      c.Count,
			Width:      c.Width,
			Default:    c.Default,
			Ref:        c.Ref,
			Enum:       dumpEnum(names, func(k string) *design.Define { return enum[k] }),
		})
	}
	return wi
}
