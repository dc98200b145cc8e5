package netlist

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/OpenTraceLab/designformat/pkg/design"
)

func TestConnect(t *testing.T) {
	pins := []Pin{
		{Block: "top.a", Port: "o", Index: 0},
		{Block: "top.b", Port: "i", Index: 0},
		{Block: "top.c", Port: "i", Index: 0},
	}
	nl := New(pins)
	for _, p := range pins {
		if nl.Find(p) != p {
			t.Errorf("%s should start as its own net", p.Key())
		}
	}
	nl.Connect(pins[0], pins[1])
	if nl.Find(pins[0]) != nl.Find(pins[1]) {
		t.Errorf("a and b should share a net")
	}
	if nl.Find(pins[2]) == nl.Find(pins[0]) {
		t.Errorf("c should stay apart")
	}
	nl.Connect(pins[1], pins[2])
	if nl.Find(pins[0]) != nl.Find(pins[2]) {
		t.Errorf("connection should be transitive")
	}
}

func TestFinalize(t *testing.T) {
	a := Pin{Block: "x", Port: "a", Index: 0}
	b := Pin{Block: "x", Port: "b", Index: 0}
	c := Pin{Block: "y", Port: "c", Index: 0}
	d := Pin{Block: "y", Port: "d", Index: 0}
	nl := New([]Pin{a, b, c, d})
	nl.Connect(b, a)
	nl.Name(d, "x[tie-1]")
	nl.Finalize()

	if nl.NetCount() != 2 || nl.MultiPinNetCount() != 1 {
		t.Fatalf("nets = %d (multi %d), want 2 (1)", nl.NetCount(), nl.MultiPinNetCount())
	}
	if got := nl.Nets[0]; got.Name != "Net-0" || got.Pins[0] != a || got.Pins[1] != b {
		t.Errorf("first net = %+v", got)
	}
	if got := nl.Nets[1]; got.Name != "x[tie-1]" || len(got.Pins) != 1 {
		t.Errorf("tie net = %+v", got)
	}
}

func buildProject(t *testing.T) *design.Project {
	t.Helper()
	p := design.NewProject("board", "")
	d := p.Design()
	top, _ := d.NewBlock("top", "board", nil)
	u1, _ := d.NewBlock("u1", "mcu", top)
	u2, _ := d.NewBlock("u2", "sensor", top)
	tx, _ := u1.AddPort("tx", "uart", 1, design.Output)
	rx, _ := u2.AddPort("rx", "uart", 1, design.Input)
	en, _ := u2.AddPort("en", "wire", 1, design.Input)
	ext, err := top.AddPort("dbg", "uart", 1, design.Output)
	if err != nil {
		t.Fatalf("AddPort: %v", err)
	}
	for _, c := range [][2]*design.Port{{tx, rx}, {tx, ext}} {
		if _, err := top.Connect(c[0], 0, c[1], 0); err != nil {
			t.Fatalf("Connect: %v", err)
		}
	}
	if _, err := top.TieOff(en, 0, 1, false); err != nil {
		t.Fatalf("TieOff: %v", err)
	}
	if err := p.AddPrincipal(top); err != nil {
		t.Fatalf("AddPrincipal: %v", err)
	}
	return p
}

func TestBuild(t *testing.T) {
	nl := Build(buildProject(t))
	if nl.NetCount() != 2 {
		t.Fatalf("NetCount = %d, want 2", nl.NetCount())
	}
	uart := nl.Nets[0]
	var keys []string
	for _, p := range uart.Pins {
		keys = append(keys, p.Key())
	}
	if got := strings.Join(keys, " "); got != "top.u1[tx][0] top.u2[rx][0] top[dbg][0]" {
		t.Errorf("uart net = %s", got)
	}
	if tie := nl.Nets[1]; tie.Name != "top[tie-1]" || tie.Pins[0].Key() != "top.u2[en][0]" {
		t.Errorf("tie net = %+v", tie)
	}
}

func TestExport(t *testing.T) {
	nl := Build(buildProject(t))

	data, err := nl.ExportJSON()
	if err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	var decoded struct {
		NetCount int    `json:"net_count"`
		Nets     []*Net `json:"nets"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.NetCount != 2 || len(decoded.Nets[0].Pins) != 3 {
		t.Errorf("decoded = %+v", decoded)
	}

	out, err := nl.ExportKiCad("board.json")
	if err != nil {
		t.Fatalf("ExportKiCad: %v", err)
	}
	for _, want := range []string{
		`(comp (ref "top.u1"))`,
		`(net (code 2) (name "top[tie-1]")`,
		`(node (ref "top.u2") (pin "rx[0]"))`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("kicad output missing %s:\n%s", want, out)
		}
	}
	if err := VerifyKiCad(out); err != nil {
		t.Errorf("VerifyKiCad: %v", err)
	}

	if _, err := New(nil).ExportJSON(); err == nil {
		t.Errorf("export before Finalize must fail")
	}
}

func TestVerifyKiCadRejects(t *testing.T) {
	for _, in := range []string{"export", "(a) (b)"} {
		if err := VerifyKiCad(in); err == nil {
			t.Errorf("VerifyKiCad(%q) should fail", in)
		}
	}
}
