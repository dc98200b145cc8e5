package blob

import (
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/OpenTraceLab/designformat/pkg/design"
	"github.com/OpenTraceLab/designformat/pkg/hierpath"
)

type loader func(r *reloader, raw json.RawMessage) (design.Node, error)

// loaders maps each node type tag to the function rebuilding it.
var loaders = map[string]loader{
	TagBlock:         loadBlock,
	TagInterconnect:  loadInterconnect,
	TagDefine:        loadDefine,
	TagRegisterGroup: loadRegGroupNode,
	TagCommand:       loadCommand,
}

// Types reports the node type tags this package can reload.
func Types() []string {
	tags := make([]string, 0, len(loaders))
	for t := range loaders {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// pass returns the reload pass of a node type. Interconnects and defines
// go first.
func pass(tag string) int {
	switch tag {
	case TagInterconnect, TagDefine:
		return 0
	}
	return 1
}

type reloader struct {
	o     *options
	p     *design.Project
	intcs map[string]bool
}

type attributeSetter interface {
	SetAttribute(key string, value any)
}

func setAttrs(n attributeSetter, attrs map[string]any) {
	for k, v := range attrs {
		n.SetAttribute(k, v)
	}
}

// Unmarshal rebuilds a project from blob data.
func Unmarshal(data []byte, opts ...Option) (*design.Project, error) {
	o := newOptions(opts)
	var wp wireProject
	if err := json.Unmarshal(data, &wp); err != nil {
		return nil, errors.Wrap(err, "blob: decode")
	}
	if wp.Version != design.FormatVersion {
		return nil, errors.Wrapf(design.ErrVersion, "blob: version %q, want %q", wp.Version, design.FormatVersion)
	}
	p := design.NewProject(wp.ID, wp.Path)
	p.Description = wp.Description
	setAttrs(p, wp.Attributes)
	if wp.Created != 0 {
		p.Created = time.UnixMilli(wp.Created).UTC()
	}

	r := &reloader{o: o, p: p, intcs: make(map[string]bool)}
	nodes := make([]design.Node, len(wp.Nodes))
	for step := 0; step < 2; step++ {
		for i, env := range wp.Nodes {
			if pass(env.Type) != step {
				continue
			}
			load, ok := loaders[env.Type]
			if !ok {
				return nil, errors.Errorf("blob: node %d: unknown type %q", i, env.Type)
			}
			n, err := load(r, env.Dump)
			if err != nil {
				return nil, errors.Wrapf(err, "blob: node %d (%s)", i, env.Type)
			}
			if ic, ok := n.(*design.Interconnect); ok {
				r.intcs[ic.Name] = true
			}
			o.log.WithFields(logrus.Fields{"type": env.Type, "id": n.NodeID(), "pass": step}).Debug("reload node")
			nodes[i] = n
		}
	}
	for _, n := range nodes {
		principal, _ := n.Attribute(design.AttrPrincipal).(bool)
		var err error
		if principal {
			err = p.AddPrincipal(n)
		} else {
			err = p.AddReference(n)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "blob: register %s", n.NodeID())
		}
	}
	return p, nil
}

func loadBlock(r *reloader, raw json.RawMessage) (design.Node, error) {
	var wb wireBlock
	if err := json.Unmarshal(raw, &wb); err != nil {
		return nil, errors.Wrap(err, "decode block")
	}
	b, err := r.buildBlock(&wb, nil)
	if err != nil {
		return nil, err
	}
	if err := r.wireBlock(b, &wb); err != nil {
		return nil, err
	}
	return b, nil
}

// buildBlock creates the block tree with its ports.
func (r *reloader) buildBlock(wb *wireBlock, parent *design.Block) (*design.Block, error) {
	b, err := r.p.Design().NewBlock(wb.ID, wb.Type, parent)
	if err != nil {
		return nil, errors.Wrapf(err, "load block %s", wb.Path)
	}
	b.Description = wb.Description
	setAttrs(b, wb.Attributes)
	for _, ports := range [][]*wirePort{wb.Ports.Input, wb.Ports.Output, wb.Ports.Inout} {
		for _, wp := range ports {
			dir, err := design.ParseDirection(wp.Direction)
			if err != nil {
				return nil, errors.Wrapf(err, "load port %s[%s]", wb.Path, wp.ID)
			}
			p, err := b.AddPort(wp.ID, wp.Type, wp.Count, dir)
			if err != nil {
				return nil, errors.Wrapf(err, "load port %s[%s]", wb.Path, wp.ID)
			}
			p.Description = wp.Description
			setAttrs(p, wp.Attributes)
			if len(r.intcs) > 0 && wp.Type != "" && !r.intcs[wp.Type] {
				r.o.log.WithFields(logrus.Fields{
					"block": wb.Path, "port": wp.ID, "type": wp.Type,
				}).Warn("port interconnect type not defined in blob")
			}
		}
	}
	for _, wc := range wb.Children {
		if _, err := r.buildBlock(wc, b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// wireBlock adds connections, address maps and registers once every port
// of the tree exists.
func (r *reloader) wireBlock(b *design.Block, wb *wireBlock) error {
	children := b.Children()
	for i, wc := range wb.Children {
		if err := r.wireBlock(children[i], wc); err != nil {
			return err
		}
	}
	for i, wc := range wb.Connections {
		if err := r.connect(b, wc); err != nil {
			return errors.Wrapf(err, "load connection %d of %s", i, wb.Path)
		}
	}
	if wb.AddressMap != nil {
		if err := r.addressMap(b, wb.AddressMap); err != nil {
			return errors.Wrapf(err, "load address map of %s", wb.Path)
		}
	}
	for _, wg := range wb.Registers {
		g, err := loadRegGroup(wg)
		if err != nil {
			return errors.Wrapf(err, "load registers of %s", wb.Path)
		}
		if err := b.AddRegisterGroup(g); err != nil {
			return errors.Wrapf(err, "load registers of %s", wb.Path)
		}
	}
	return nil
}

func (r *reloader) port(b *design.Block, ref *wirePortRef) (*design.Port, error) {
	if ref == nil {
		return nil, errors.New("missing port reference")
	}
	_, p, err := b.Root().Resolve(hierpath.PortPath(ref.Block, ref.Port))
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *reloader) connect(b *design.Block, wc *wireConnection) error {
	to, err := r.port(b, wc.EndPort)
	if err != nil {
		return err
	}
	var c *design.Connection
	if wc.StartTie != nil {
		c, err = b.TieOff(to, wc.EndIndex, wc.StartTie.Value, wc.StartTie.Reset)
		if err != nil {
			return err
		}
		tie := c.Tie()
		tie.Description = wc.StartTie.Description
		setAttrs(tie, wc.StartTie.Attributes)
	} else {
		from, err := r.port(b, wc.StartPort)
		if err != nil {
			return err
		}
		if c, err = b.Connect(from, wc.StartIndex, to, wc.EndIndex); err != nil {
			return err
		}
	}
	c.Description = wc.Description
	setAttrs(c, wc.Attributes)
	return nil
}

func (r *reloader) addressMap(b *design.Block, wm *wireAddressMap) error {
	m, err := b.NewAddressMap()
	if err != nil {
		return err
	}
	m.Description = wm.Description
	setAttrs(m, wm.Attributes)
	for _, wi := range wm.Initiators {
		p, err := r.port(b, wi.Port)
		if err != nil {
			return err
		}
		in, err := m.AddInitiator(p, wi.Port.Index, wi.Mask, wi.Offset)
		if err != nil {
			return err
		}
		in.Description = wi.Description
		setAttrs(in, wi.Attributes)
	}
	for _, wt := range wm.Targets {
		p, err := r.port(b, wt.Port)
		if err != nil {
			return err
		}
		t, err := m.AddTarget(p, wt.Port.Index, wt.Offset, wt.Aperture)
		if err != nil {
			return err
		}
		t.Description = wt.Description
		setAttrs(t, wt.Attributes)
	}
	for i, wc := range wm.Constraints {
		ip, err := r.port(b, wc.Initiator)
		if err != nil {
			return errors.Wrapf(err, "constraint %d", i)
		}
		tp, err := r.port(b, wc.Target)
		if err != nil {
			return errors.Wrapf(err, "constraint %d", i)
		}
		c, err := m.AddConstraint(m.Initiator(ip, wc.Initiator.Index), m.Target(tp, wc.Target.Index))
		if err != nil {
			return errors.Wrapf(err, "constraint %d", i)
		}
		c.Description = wc.Description
		setAttrs(c, wc.Attributes)
	}
	return nil
}

func loadAccess(a *wireAccess, fallback design.RegisterAccess) design.RegisterAccess {
	if a == nil {
		return fallback
	}
	return design.RegisterAccess{
		Bus:   design.Access(a.Bus),
		Block: design.Access(a.Block),
		Inst:  design.Access(a.Inst),
	}
}

func decodeValue(raw json.RawMessage) (any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, errors.Errorf("value %s is neither an integer nor a string", raw)
	}
	return s, nil
}

type enumTarget interface {
	AddEnumValue(name string, value int64, description string)
}

func loadEnum(dst enumTarget, enum map[string]*wireDefine) error {
	for name, wd := range enum {
		v, err := decodeValue(wd.Value)
		if err != nil {
			return errors.Wrapf(err, "enum %s", name)
		}
		n, ok := v.(int64)
		if !ok {
			return errors.Errorf("enum %s: value %v is not an integer", name, v)
		}
		dst.AddEnumValue(name, n, wd.Description)
	}
	return nil
}

func loadCommandField(wf *wireField) (*design.CommandField, error) {
	f, err := design.NewCommandField(wf.ID, wf.LSB, wf.Size, wf.Reset, wf.Signed)
	if err != nil {
		return nil, err
	}
	f.Description = wf.Description
	setAttrs(f, wf.Attributes)
	if err := loadEnum(f, wf.Enum); err != nil {
		return nil, errors.Wrapf(err, "field %s", wf.ID)
	}
	return f, nil
}

func loadRegGroup(wg *wireRegGroup) (*design.RegisterGroup, error) {
	g := design.NewRegisterGroup(wg.ID, wg.Offset)
	g.Description = wg.Description
	setAttrs(g, wg.Attributes)
	for _, wr := range wg.Registers {
		reg, err := design.NewRegister(wr.ID, wr.Offset, loadAccess(&wr.Access, design.DefaultAccess()))
		if err != nil {
			return nil, errors.Wrapf(err, "load register %s.%s", wg.ID, wr.ID)
		}
		reg.Description = wr.Description
		setAttrs(reg, wr.Attributes)
		for _, wf := range wr.Fields {
			cf, err := loadCommandField(wf)
			if err != nil {
				return nil, errors.Wrapf(err, "load register %s.%s", wg.ID, wr.ID)
			}
			rf := &design.RegisterField{CommandField: *cf, Access: loadAccess(wf.Access, reg.Access)}
			if err := reg.AddField(rf); err != nil {
				return nil, errors.Wrapf(err, "load register %s.%s", wg.ID, wr.ID)
			}
		}
		if err := g.AddRegister(reg); err != nil {
			return nil, errors.Wrapf(err, "load register group %s", wg.ID)
		}
	}
	return g, nil
}

func loadRegGroupNode(_ *reloader, raw json.RawMessage) (design.Node, error) {
	var wg wireRegGroup
	if err := json.Unmarshal(raw, &wg); err != nil {
		return nil, errors.Wrap(err, "decode register group")
	}
	return loadRegGroup(&wg)
}

func loadCommand(_ *reloader, raw json.RawMessage) (design.Node, error) {
	var wc wireCommand
	if err := json.Unmarshal(raw, &wc); err != nil {
		return nil, errors.Wrap(err, "decode command")
	}
	c := design.NewCommand(wc.ID, wc.Width)
	c.Description = wc.Description
	setAttrs(c, wc.Attributes)
	for _, wf := range wc.Fields {
		f, err := loadCommandField(wf)
		if err != nil {
			return nil, errors.Wrapf(err, "load command %s", wc.ID)
		}
		if err := c.AddField(f); err != nil {
			return nil, errors.Wrapf(err, "load command %s", wc.ID)
		}
	}
	return c, nil
}

func loadDefine(_ *reloader, raw json.RawMessage) (design.Node, error) {
	var wd wireDefine
	if err := json.Unmarshal(raw, &wd); err != nil {
		return nil, errors.Wrap(err, "decode define")
	}
	v, err := decodeValue(wd.Value)
	if err != nil {
		return nil, errors.Wrapf(err, "load define %s", wd.ID)
	}
	d := design.NewDefine(wd.ID, v)
	d.Description = wd.Description
	setAttrs(d, wd.Attributes)
	return d, nil
}

func loadInterconnect(_ *reloader, raw json.RawMessage) (design.Node, error) {
	var wi wireInterconnect
	if err := json.Unmarshal(raw, &wi); err != nil {
		return nil, errors.Wrap(err, "decode interconnect")
	}
	ic, err := design.NewInterconnect(wi.ID, design.Role(wi.Role))
	if err != nil {
		return nil, err
	}
	ic.Description = wi.Description
	setAttrs(ic, wi.Attributes)
	for _, wc := range wi.Components {
		var (
			c   *design.InterconnectComponent
			err error
		)
		role := design.Role(wc.Role)
		switch design.ComponentKind(wc.Type) {
		case design.Complex:
			c, err = design.NewComplexComponent(wc.ID, role, wc.Ref, wc.Count)
		case design.Simple, "":
			c, err = design.NewSimpleComponent(wc.ID, role, wc.Width, wc.Count, wc.Default)
		default:
			err = errors.Wrapf(design.ErrInvalidEnum, "component %s kind %q", wc.ID, wc.Type)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "load interconnect %s", wi.ID)
		}
		c.Description = wc.Description
		setAttrs(c, wc.Attributes)
		if err := loadEnum(c, wc.Enum); err != nil {
			return nil, errors.Wrapf(err, "load interconnect %s", wi.ID)
		}
		if err := ic.AddComponent(c); err != nil {
			return nil, errors.Wrapf(err, "load interconnect %s", wi.ID)
		}
	}
	return ic, nil
}
