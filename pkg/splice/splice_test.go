package splice

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/OpenTraceLab/designformat/pkg/blob"
	"github.com/OpenTraceLab/designformat/pkg/design"
)

func TestParseSource(t *testing.T) {
	tests := []struct {
		in      string
		want    Source
		wantErr bool
	}{
		{in: "cpu=regs.json", want: Source{Block: "cpu", Database: "regs.json"}},
		{in: "top.uart = uart.json+0x100", want: Source{Block: "top.uart", Database: "uart.json", Offset: 0x100}},
		{in: "dma=dma.json+64", want: Source{Block: "dma", Database: "dma.json", Offset: 64}},
		{in: "regs.json", wantErr: true},
		{in: "=regs.json", wantErr: true},
		{in: "cpu=", wantErr: true},
		{in: "cpu=regs.json+zz", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSource(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSource: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
	if s := (Source{Block: "a", Database: "b.json", Offset: 0x20}).String(); s != "a=b.json+0x20" {
		t.Errorf("String() = %q", s)
	}
}

// writeDatabase saves a blob whose principal nodes are register groups.
func writeDatabase(t *testing.T, dir, name string, groups ...string) string {
	t.Helper()
	p := design.NewProject(name, "")
	for i, g := range groups {
		grp := design.NewRegisterGroup(g, uint64(i)*0x100)
		r, err := design.NewRegister("ctrl", 0x4, design.DefaultAccess())
		if err != nil {
			t.Fatalf("NewRegister: %v", err)
		}
		if err := grp.AddRegister(r); err != nil {
			t.Fatalf("AddRegister: %v", err)
		}
		if err := p.AddPrincipal(grp); err != nil {
			t.Fatalf("AddPrincipal: %v", err)
		}
	}
	path := filepath.Join(dir, name+".json")
	if err := blob.SaveFile(path, p); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	return path
}

func baseProject(t *testing.T) (*design.Project, *design.Block) {
	t.Helper()
	p := design.NewProject("soc", "")
	d := p.Design()
	top, err := d.NewBlock("top", "soc_t", nil)
	if err != nil {
		t.Fatalf("NewBlock: %v", err)
	}
	uart, err := d.NewBlock("uart", "uart_t", top)
	if err != nil {
		t.Fatalf("NewBlock: %v", err)
	}
	if err := p.AddPrincipal(top); err != nil {
		t.Fatalf("AddPrincipal: %v", err)
	}
	return p, uart
}

func TestSplice(t *testing.T) {
	dir := t.TempDir()
	uartDB := writeDatabase(t, dir, "uart_regs", "cfg", "status")
	topDB := writeDatabase(t, dir, "top_regs", "sys")

	p, uart := baseProject(t)
	sources := []Source{
		{Block: "uart", Database: uartDB, Offset: 0x1000},
		{Block: "top", Database: topDB},
	}
	if err := Splice(context.Background(), p, sources, WithWorkers(2)); err != nil {
		t.Fatalf("Splice: %v", err)
	}

	groups := uart.RegisterGroups()
	if len(groups) != 2 {
		t.Fatalf("uart has %d groups, want 2", len(groups))
	}
	for i, want := range []struct {
		name   string
		offset uint64
	}{{"cfg", 0x1000}, {"status", 0x1100}} {
		if groups[i].Name != want.name || groups[i].Offset != want.offset {
			t.Errorf("group %d = %s@0x%x, want %s@0x%x", i, groups[i].Name, groups[i].Offset, want.name, want.offset)
		}
	}
	top := p.PrincipalBlocks()[0]
	if g := top.LookupRegister("sys"); g == nil || g.Offset != 0 {
		t.Errorf("top register group sys missing")
	}
	if r := groups[1].LookupRegister("ctrl"); r == nil || r.BlockOffset() != 0x1104 {
		t.Errorf("spliced register offset wrong: %v", r)
	}

	// Round trip through a blob keeps the spliced groups.
	out := filepath.Join(dir, "out.json")
	if err := blob.SaveFile(out, p); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	reloaded, err := blob.LoadFile(out)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if b, err := reloaded.ResolveBlock("top.uart"); err != nil || len(b.RegisterGroups()) != 2 {
		t.Errorf("reloaded uart groups: %v", err)
	}
}

func TestSpliceErrors(t *testing.T) {
	dir := t.TempDir()
	db := writeDatabase(t, dir, "regs", "cfg")
	empty := design.NewProject("empty", "")
	emptyPath := filepath.Join(dir, "empty.json")
	if err := blob.SaveFile(emptyPath, empty); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}

	tests := []struct {
		name    string
		sources []Source
		want    string
	}{
		{"missing file", []Source{{Block: "uart", Database: filepath.Join(dir, "nope.json")}}, "read"},
		{"no groups", []Source{{Block: "uart", Database: emptyPath}}, "no principal register group"},
		{"unknown block", []Source{{Block: "dma", Database: db}}, "no block"},
		{"duplicate group", []Source{{Block: "uart", Database: db}, {Block: "uart", Database: db}}, "duplicate"},
		{"duplicate after other block", []Source{{Block: "top", Database: db}, {Block: "uart", Database: db}, {Block: "uart", Database: db}}, "duplicate"},
		{"unknown block after good one", []Source{{Block: "uart", Database: db}, {Block: "dma", Database: db}}, "no block"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, uart := baseProject(t)
			err := Splice(context.Background(), p, tt.sources)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("got %v, want error containing %q", err, tt.want)
			}
			// A failed splice attaches nothing.
			if n := len(uart.RegisterGroups()); n != 0 {
				t.Errorf("uart has %d groups after failed splice", n)
			}
			if n := len(p.PrincipalBlocks()[0].RegisterGroups()); n != 0 {
				t.Errorf("top has %d groups after failed splice", n)
			}
		})
	}

	if err := Splice(context.Background(), design.NewProject("bare", ""), nil); err == nil {
		t.Errorf("base without principal block must fail")
	}
}
