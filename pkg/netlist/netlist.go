// Package netlist flattens the wiring of a design into nets: sets of port
// signals that are connected, directly or through other signals.
package netlist

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chewxy/sexp"
	"github.com/goccy/go-json"

	"github.com/OpenTraceLab/designformat/pkg/design"
)

// Pin is one port signal.
type Pin struct {
	Block string `json:"block"`
	Port  string `json:"port"`
	Index int    `json:"index"`
}

// Key renders the pin as block.path[port][index].
func (p Pin) Key() string {
	return fmt.Sprintf("%s[%s][%d]", p.Block, p.Port, p.Index)
}

// Net is a connected set of pins.
type Net struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Pins []Pin  `json:"pins"`
}

// Netlist tracks connectivity between pins with a union-find structure.
type Netlist struct {
	parent map[string]string
	rank   map[string]int

	pins  []Pin
	byKey map[string]Pin
	names map[string]string

	// Nets is populated by Finalize.
	Nets []*Net
}

// New creates a netlist in which every pin is its own net.
func New(pins []Pin) *Netlist {
	nl := &Netlist{
		parent: make(map[string]string),
		rank:   make(map[string]int),
		byKey:  make(map[string]Pin),
		names:  make(map[string]string),
	}
	for _, p := range pins {
		nl.Add(p)
	}
	return nl
}

// Add registers p as an isolated pin. Adding a known pin is a no-op.
func (nl *Netlist) Add(p Pin) {
	key := p.Key()
	if _, ok := nl.byKey[key]; ok {
		return
	}
	nl.parent[key] = key
	nl.byKey[key] = p
	nl.pins = append(nl.pins, p)
}

// Connect merges the nets of a and b.
func (nl *Netlist) Connect(a, b Pin) {
	nl.Add(a)
	nl.Add(b)
	ka, kb := nl.find(a.Key()), nl.find(b.Key())
	if ka == kb {
		return
	}
	switch {
	case nl.rank[ka] < nl.rank[kb]:
		nl.parent[ka] = kb
	case nl.rank[ka] > nl.rank[kb]:
		nl.parent[kb] = ka
	default:
		nl.parent[kb] = ka
		nl.rank[ka]++
	}
}

// Name labels the net holding p. Finalize uses the smallest label of a net.
func (nl *Netlist) Name(p Pin, name string) {
	nl.Add(p)
	if old, ok := nl.names[p.Key()]; !ok || name < old {
		nl.names[p.Key()] = name
	}
}

// Find returns the representative pin of the net holding p.
func (nl *Netlist) Find(p Pin) Pin {
	return nl.byKey[nl.find(p.Key())]
}

func (nl *Netlist) find(key string) string {
	root := key
	for nl.parent[root] != root {
		root = nl.parent[root]
	}
	for key != root {
		next := nl.parent[key]
		nl.parent[key] = root
		key = next
	}
	return root
}

// Finalize builds Nets. A net needs two pins or a label; nets are numbered
// in the order their first pin was added.
func (nl *Netlist) Finalize() {
	groups := make(map[string][]Pin)
	var order []string
	for _, p := range nl.pins {
		root := nl.find(p.Key())
		if _, ok := groups[root]; !ok {
			order = append(order, root)
		}
		groups[root] = append(groups[root], p)
	}
	nl.Nets = make([]*Net, 0, len(order))
	for _, root := range order {
		pins := groups[root]
		name := ""
		for _, p := range pins {
			if n, ok := nl.names[p.Key()]; ok && (name == "" || n < name) {
				name = n
			}
		}
		if len(pins) < 2 && name == "" {
			continue
		}
		sort.Slice(pins, func(i, j int) bool { return pins[i].Key() < pins[j].Key() })
		id := len(nl.Nets)
		if name == "" {
			name = fmt.Sprintf("Net-%d", id)
		}
		nl.Nets = append(nl.Nets, &Net{ID: id, Name: name, Pins: pins})
	}
}

// NetCount returns the number of finalized nets.
func (nl *Netlist) NetCount() int { return len(nl.Nets) }

// MultiPinNetCount returns the number of finalized nets with two or more
// pins.
func (nl *Netlist) MultiPinNetCount() int {
	n := 0
	for _, net := range nl.Nets {
		if len(net.Pins) > 1 {
			n++
		}
	}
	return n
}

// Build creates the finalized netlist of every block tree in p. Constant
// ties label the net they drive.
func Build(p *design.Project) *Netlist {
	nl := New(nil)
	pin := func(pt *design.Port, i int) Pin {
		return Pin{Block: pt.Block().HierarchicalPath(), Port: pt.Name, Index: i}
	}
	for _, root := range p.Blocks() {
		root.Walk(func(b *design.Block) {
			for _, pt := range b.Ports() {
				for i := 0; i < pt.Count; i++ {
					nl.Add(pin(pt, i))
				}
			}
		})
		root.Walk(func(b *design.Block) {
			for _, c := range b.Connections() {
				to, ti := c.To()
				if t := c.Tie(); t != nil {
					nl.Name(pin(to, ti), t.HierarchicalPath())
					continue
				}
				from, fi := c.From()
				nl.Connect(pin(from, fi), pin(to, ti))
			}
		})
	}
	nl.Finalize()
	return nl
}

// ExportJSON encodes the finalized netlist.
func (nl *Netlist) ExportJSON() ([]byte, error) {
	if nl.Nets == nil {
		return nil, fmt.Errorf("netlist: not finalized")
	}
	out := struct {
		Version   string `json:"version"`
		NetCount  int    `json:"net_count"`
		MultiNets int    `json:"multi_pin_nets"`
		Nets      []*Net `json:"nets"`
	}{
		Version:   design.FormatVersion,
		NetCount:  nl.NetCount(),
		MultiNets: nl.MultiPinNetCount(),
		Nets:      nl.Nets,
	}
	return json.MarshalIndent(out, "", "  ")
}

// ExportKiCad renders the finalized netlist as a KiCad netlist. Blocks are
// the components and port signals their pins.
func (nl *Netlist) ExportKiCad(source string) (string, error) {
	if nl.Nets == nil {
		return "", fmt.Errorf("netlist: not finalized")
	}
	var sb strings.Builder
	sb.WriteString("(export (version D)\n")
	fmt.Fprintf(&sb, "  (design\n    (source %q)\n    (tool \"dfx\")\n  )\n", source)

	seen := make(map[string]bool)
	var blocks []string
	for _, net := range nl.Nets {
		for _, p := range net.Pins {
			if !seen[p.Block] {
				seen[p.Block] = true
				blocks = append(blocks, p.Block)
			}
		}
	}
	sort.Strings(blocks)
	sb.WriteString("  (components\n")
	for _, b := range blocks {
		fmt.Fprintf(&sb, "    (comp (ref %q))\n", b)
	}
	sb.WriteString("  )\n")

	sb.WriteString("  (nets\n")
	for _, net := range nl.Nets {
		fmt.Fprintf(&sb, "    (net (code %d) (name %q)\n", net.ID+1, net.Name)
		for _, p := range net.Pins {
			fmt.Fprintf(&sb, "      (node (ref %q) (pin %q))\n", p.Block, fmt.Sprintf("%s[%d]", p.Port, p.Index))
		}
		sb.WriteString("    )\n")
	}
	sb.WriteString("  )\n)\n")
	return sb.String(), nil
}

// VerifyKiCad checks that s parses as a single s-expression list.
func VerifyKiCad(s string) error {
	exprs, err := sexp.ParseString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("netlist: kicad output does not parse: %w", err)
	}
	if len(exprs) != 1 {
		return fmt.Errorf("netlist: kicad output has %d top-level expressions, want 1", len(exprs))
	}
	if exprs[0].IsLeaf() {
		return fmt.Errorf("netlist: kicad output is an atom, not a list")
	}
	return nil
}
