package lint

import (
	"context"
	"reflect"
	"testing"

	"github.com/OpenTraceLab/designformat/pkg/design"
)

func buildFaulty(t *testing.T) *design.Project {
	t.Helper()
	p := design.NewProject("faulty", "")
	d := p.Design()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("build: %v", err)
		}
	}
	block := func(name string, parent *design.Block) *design.Block {
		b, err := d.NewBlock(name, name, parent)
		must(err)
		return b
	}
	port := func(b *design.Block, name string, count int, dir design.Direction) *design.Port {
		pt, err := b.AddPort(name, "bus", count, dir)
		must(err)
		return pt
	}

	top := block("top", nil)
	cpu, bus, mem, dev := block("cpu", top), block("bus", top), block("mem", top), block("dev", top)
	cpuM := port(cpu, "m", 1, design.Output)
	busS := port(bus, "s", 1, design.Input)
	busT := port(bus, "t", 3, design.Output)
	memS := port(mem, "s", 1, design.Input)
	port(dev, "irq", 1, design.Input)

	for _, c := range [][2]*design.Port{{cpuM, busS}, {busT, memS}} {
		_, err := top.Connect(c[0], 0, c[1], 0)
		must(err)
	}
	_, err := top.Connect(busT, 1, memS, 0)
	must(err)

	m, err := bus.NewAddressMap()
	must(err)
	_, err = m.AddInitiator(busS, 0, 0xFFFFFFFF, 0)
	must(err)
	_, err = m.AddTarget(busT, 0, 0, 0x1000)
	must(err)
	_, err = m.AddTarget(busT, 1, 0x100, 0x100)
	must(err)
	_, err = m.AddTarget(busT, 2, 0x2000, 0)
	must(err)

	g := design.NewRegisterGroup("regs", 0x2000)
	r, err := design.NewRegister("data", 0, design.DefaultAccess())
	must(err)
	f, err := design.NewRegisterField("value", 0, 32, 0, false, design.DefaultAccess())
	must(err)
	must(r.AddField(f))
	must(g.AddRegister(r))
	must(mem.AddRegisterGroup(g))

	must(p.AddPrincipal(top))
	return p
}

func TestExtract(t *testing.T) {
	facts := Extract(buildFaulty(t))
	if len(facts.Ports) != 7 {
		t.Errorf("ports = %d, want 7", len(facts.Ports))
	}
	if len(facts.Connections) != 3 {
		t.Errorf("connections = %d, want 3", len(facts.Connections))
	}
	if len(facts.Maps) != 1 || len(facts.Maps[0].Targets) != 3 {
		t.Fatalf("maps = %+v", facts.Maps)
	}
	want := RegisterFact{Block: "top.mem", Group: "regs", Offset: 0x2000, Size: 4, Apertures: []uint64{0x1000, 0x100}}
	if len(facts.Registers) != 1 || !reflect.DeepEqual(facts.Registers[0], want) {
		t.Errorf("registers = %+v", facts.Registers)
	}
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	e, err := New(ctx)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	facts := Extract(buildFaulty(t))
	vs, err := e.Run(ctx, facts, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	type finding struct{ rule, subject string }
	var got []finding
	for _, v := range vs {
		got = append(got, finding{v.Rule, v.Subject})
	}
	want := []finding{
		{"zero_aperture", "top.bus[t][2]"},
		{"multi_driver", "top.mem[s][0]"},
		{"register_outside_aperture", "top.mem.regs"},
		{"shadowed_target", "top.bus[t][1]"},
		{"unconnected_input", "top.dev[irq][0]"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("violations = %v, want %v", got, want)
	}

	tests := []struct {
		threshold string
		want      bool
	}{
		{SeverityError, true},
		{SeverityWarning, true},
		{"never", false},
	}
	for _, tt := range tests {
		t.Run("fail on "+tt.threshold, func(t *testing.T) {
			if got := Fails(vs, tt.threshold); got != tt.want {
				t.Errorf("Fails = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRunSelectedRules(t *testing.T) {
	vs, err := Run(context.Background(), Extract(buildFaulty(t)), []string{"unconnected_input"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(vs) != 1 || vs[0].Severity != SeverityInfo {
		t.Fatalf("violations = %v", vs)
	}
	if Fails(vs, SeverityWarning) {
		t.Errorf("an info finding must not fail a warning threshold")
	}
}

func TestCleanDesign(t *testing.T) {
	p := design.NewProject("clean", "")
	top, _ := p.Design().NewBlock("top", "top", nil)
	if err := p.AddPrincipal(top); err != nil {
		t.Fatalf("AddPrincipal: %v", err)
	}
	vs, err := Run(context.Background(), Extract(p), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(vs) != 0 {
		t.Errorf("violations = %v", vs)
	}
}
