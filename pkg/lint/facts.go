package lint

import (
	"fmt"

	"github.com/OpenTraceLab/designformat/pkg/design"
)

// Facts is the flattened view of a project the rules run over.
type Facts struct {
	Connections []ConnectionFact `json:"connections"`
	Ports       []PortFact       `json:"ports"`
	Maps        []MapFact        `json:"maps"`
	Registers   []RegisterFact   `json:"registers"`
}

// ConnectionFact is one connection. From is empty for a tie-off.
type ConnectionFact struct {
	Block string `json:"block"`
	From  string `json:"from"`
	To    string `json:"to"`
	Tie   bool   `json:"tie"`
}

// PortFact is one port signal.
type PortFact struct {
	Signal    string `json:"signal"`
	Block     string `json:"block"`
	Port      string `json:"port"`
	Index     int    `json:"index"`
	Direction string `json:"direction"`
	// Child is set when the owning block has a parent.
	Child bool `json:"child"`
}

// TargetFact is a target window in declaration order.
type TargetFact struct {
	Signal   string `json:"signal"`
	Offset   uint64 `json:"offset"`
	Aperture uint64 `json:"aperture"`
}

// MapFact is the address map of one block.
type MapFact struct {
	Block      string       `json:"block"`
	Initiators []string     `json:"initiators"`
	Targets    []TargetFact `json:"targets"`
}

// RegisterFact is a register group with the apertures of every target
// that can reach its block.
type RegisterFact struct {
	Block     string   `json:"block"`
	Group     string   `json:"group"`
	Offset    uint64   `json:"offset"`
	Size      uint64   `json:"size"`
	Apertures []uint64 `json:"apertures"`
}

func signalKey(p *design.Port, i int) string {
	return fmt.Sprintf("%s[%d]", p.HierarchicalPath(), i)
}

// Extract flattens every block tree registered in p.
func Extract(p *design.Project) *Facts {
	f := &Facts{
		Connections: []ConnectionFact{},
		Ports:       []PortFact{},
		Maps:        []MapFact{},
		Registers:   []RegisterFact{},
	}
	var targets []*design.Target
	var grouped []*design.Block
	for _, root := range p.Blocks() {
		root.Walk(func(b *design.Block) {
			path := b.HierarchicalPath()
			child := b.Parent() != nil
			for _, pt := range b.Ports() {
				for i := 0; i < pt.Count; i++ {
					f.Ports = append(f.Ports, PortFact{
						Signal:    signalKey(pt, i),
						Block:     path,
						Port:      pt.Name,
						Index:     i,
						Direction: string(pt.Direction),
						Child:     child,
					})
				}
			}
			for _, c := range b.Connections() {
				to, ti := c.To()
				cf := ConnectionFact{Block: path, To: signalKey(to, ti), Tie: c.IsTieOff()}
				if from, fi := c.From(); from != nil {
					cf.From = signalKey(from, fi)
				}
				f.Connections = append(f.Connections, cf)
			}
			if m := b.AddressMap(); m != nil {
				mf := MapFact{Block: path, Initiators: []string{}, Targets: []TargetFact{}}
				for _, in := range m.Initiators() {
					mf.Initiators = append(mf.Initiators, in.ID())
				}
				for _, t := range m.Targets() {
					mf.Targets = append(mf.Targets, TargetFact{Signal: t.ID(), Offset: t.Offset, Aperture: t.Aperture})
					targets = append(targets, t)
				}
				f.Maps = append(f.Maps, mf)
			}
			if len(b.RegisterGroups()) > 0 {
				grouped = append(grouped, b)
			}
		})
	}
	for _, b := range grouped {
		apertures := reaching(b, targets)
		for _, g := range b.RegisterGroups() {
			f.Registers = append(f.Registers, RegisterFact{
				Block:     b.HierarchicalPath(),
				Group:     g.Name,
				Offset:    g.Offset,
				Size:      g.Size(),
				Apertures: apertures,
			})
		}
	}
	return f
}

// reaching returns the apertures of the targets with a route to any input
// of b.
func reaching(b *design.Block, targets []*design.Target) []uint64 {
	out := []uint64{}
	for _, t := range targets {
		tp := t.Port()
	inputs:
		for _, in := range b.Inputs() {
			for i := 0; i < in.Count; i++ {
				path, err := tp.FindConnectionPath(t.Index(), in, i)
				if err == nil && path != nil {
					out = append(out, t.Aperture)
					break inputs
				}
			}
		}
	}
	return out
}
