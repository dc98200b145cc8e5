package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/OpenTraceLab/designformat/pkg/blob"
	"github.com/OpenTraceLab/designformat/pkg/design"
)

// writeSoC saves
//
//	top.cpu[m] -> top.noc[s] (initiator) -> t[0] @0x0000 -> top.uart[s]
//	                                     -> t[1] @0x1000 -> top.spi[s]
//
// with an unwired top input, an unwired spi interrupt and a uart register
// group, and returns the blob path.
func writeSoC(t *testing.T, dir string) string {
	t.Helper()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("fixture: %v", err)
		}
	}
	p := design.NewProject("soc", "")
	d := p.Design()
	block := func(name string, parent *design.Block) *design.Block {
		b, err := d.NewBlock(name, name+"_t", parent)
		must(err)
		return b
	}
	port := func(b *design.Block, name, typ string, n int, dir design.Direction) *design.Port {
		pt, err := b.AddPort(name, typ, n, dir)
		must(err)
		return pt
	}
	top := block("top", nil)
	cpu := block("cpu", top)
	noc := block("noc", top)
	uart := block("uart", top)
	spi := block("spi", top)

	port(top, "dbg", "axi4", 1, design.Input)
	m := port(cpu, "m", "axi4", 1, design.Output)
	ns := port(noc, "s", "axi4", 1, design.Input)
	nt := port(noc, "t", "axi4", 2, design.Output)
	us := port(uart, "s", "axi4", 1, design.Input)
	ss := port(spi, "s", "axi4", 1, design.Input)
	port(spi, "irq", "wire", 1, design.Input)

	_, err := top.Connect(m, 0, ns, 0)
	must(err)
	_, err = top.Connect(nt, 0, us, 0)
	must(err)
	_, err = top.Connect(nt, 1, ss, 0)
	must(err)
	amap, err := noc.NewAddressMap()
	must(err)
	_, err = amap.AddInitiator(ns, 0, 0xFFFFFFFF, 0)
	must(err)
	_, err = amap.AddTarget(nt, 0, 0x0000, 0x1000)
	must(err)
	_, err = amap.AddTarget(nt, 1, 0x1000, 0x1000)
	must(err)

	regs := design.NewRegisterGroup("regs", 0)
	ctrl, err := design.NewRegister("ctrl", 0x4, design.DefaultAccess())
	must(err)
	must(regs.AddRegister(ctrl))
	must(uart.AddRegisterGroup(regs))

	must(top.SetPrincipalSignal(m))
	top.SetAttribute("FPGA", true)
	top.SetAttribute("SPEED", 100)
	must(p.AddPrincipal(top))

	axi, err := design.NewInterconnect("axi4", design.RoleMaster)
	must(err)
	aw, err := design.NewComplexComponent("aw", design.RoleMaster, "axi4_ch", 1)
	must(err)
	must(axi.AddComponent(aw))
	ch, err := design.NewInterconnect("axi4_ch", design.RoleMaster)
	must(err)
	addr, err := design.NewSimpleComponent("addr", design.RoleMaster, 32, 1, 0)
	must(err)
	must(ch.AddComponent(addr))
	unused, err := design.NewInterconnect("unused", design.RoleMaster)
	must(err)
	for _, ic := range []*design.Interconnect{axi, ch, unused} {
		must(p.AddReference(ic))
	}

	path := filepath.Join(dir, "soc.json")
	must(blob.SaveFile(path, p))
	return path
}

// writeRegisterDB saves a blob holding one principal register group.
func writeRegisterDB(t *testing.T, dir string) string {
	t.Helper()
	p := design.NewProject("spi_regs", "")
	g := design.NewRegisterGroup("spi_cfg", 0)
	r, err := design.NewRegister("mode", 0, design.DefaultAccess())
	if err != nil {
		t.Fatalf("NewRegister: %v", err)
	}
	if err := g.AddRegister(r); err != nil {
		t.Fatalf("AddRegister: %v", err)
	}
	if err := p.AddPrincipal(g); err != nil {
		t.Fatalf("AddPrincipal: %v", err)
	}
	path := filepath.Join(dir, "spi_regs.json")
	if err := blob.SaveFile(path, p); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	return path
}

// resetFlags restores every flag of c and its sub-commands to its default
// so that test cases do not leak into each other.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			sv.Replace(nil)
		} else {
			f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCommandsE2E(t *testing.T) {
	dir := t.TempDir()
	soc := writeSoC(t, dir)
	regs := writeRegisterDB(t, dir)
	conf := filepath.Join(dir, "dfx.yaml")
	if err := os.WriteFile(conf, []byte("load:\n  validate_schema: true\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	tests := []struct {
		name        string
		args        []string
		wantErr     bool
		wantContain []string
	}{
		{
			name:        "list blocks",
			args:        []string{"inspect", soc, "--blocks"},
			wantContain: []string{"top\n"},
		},
		{
			name:        "list interconnects",
			args:        []string{"inspect", soc, "--interconnects", "--spaced"},
			wantContain: []string{"axi4 axi4_ch unused\n"},
		},
		{
			name:        "top interconnects chase complex components",
			args:        []string{"inspect", soc, "--top-interconnects"},
			wantContain: []string{"axi4\naxi4_ch\n"},
		},
		{
			name: "address map",
			args: []string{"inspect", soc, "--address-map", "cpu[m]"},
			wantContain: []string{
				"top.noc: 0x0\n",
				" |- top.uart[s][0]: 0x0\n",
				" |- top.spi[s][0]: 0x1000\n",
			},
		},
		{
			name:        "attribute test",
			args:        []string{"inspect", soc, "--test", "FPGA"},
			wantContain: []string{"1\n"},
		},
		{
			name:        "attribute value test",
			args:        []string{"inspect", soc, "--test", "SPEED", "--value", "100", "--if-true", "fast"},
			wantContain: []string{"fast\n"},
		},
		{
			name:        "present or",
			args:        []string{"inspect", soc, "--present", "FPGA", "--present", "ASIC", "--present-or", "--if-true", "yes"},
			wantContain: []string{"yes\n"},
		},
		{
			name:        "absent fails",
			args:        []string{"inspect", soc, "--absent", "FPGA", "--if-false", "no"},
			wantContain: []string{"no\n"},
		},
		{
			name:        "resolve address",
			args:        []string{"resolve", soc, "top.cpu[m]", "0x1010"},
			wantContain: []string{"top.spi[s][0] @ 0x1010\n"},
		},
		{
			name:    "resolve unmapped address",
			args:    []string{"resolve", soc, "top.cpu[m]", "0x3000"},
			wantErr: true,
		},
		{
			name:    "resolve bad address",
			args:    []string{"resolve", soc, "top.cpu[m]", "zz"},
			wantErr: true,
		},
		{
			name: "path",
			args: []string{"path", soc, "top.cpu[m]", "top.spi[s]"},
			wantContain: []string{
				"top.cpu[m][0]\ntop.noc[s][0]\ntop.noc[t][1]\ntop.spi[s][0]\n",
				"relative address: 0x1000\n",
			},
		},
		{
			name:    "no path",
			args:    []string{"path", soc, "top.uart[s]", "top.cpu[m]"},
			wantErr: true,
		},
		{
			name:        "validate",
			args:        []string{"validate", soc, regs},
			wantContain: []string{"soc.json: ok", "spi_regs.json: ok"},
		},
		{
			name:        "lint",
			args:        []string{"lint", soc},
			wantContain: []string{"info: unconnected_input:", "1 violation(s)"},
		},
		{
			name:    "lint unknown rule",
			args:    []string{"lint", soc, "--rule", "nope"},
			wantErr: true,
		},
		{
			name:        "netlist json",
			args:        []string{"netlist", soc},
			wantContain: []string{`"net_count": 3`},
		},
		{
			name:        "netlist kicad",
			args:        []string{"netlist", soc, "--format", "kicad"},
			wantContain: []string{"(export (version D)", `(node (ref "top.spi") (pin "s[0]"))`},
		},
		{
			name:    "netlist unknown format",
			args:    []string{"netlist", soc, "--format", "spice"},
			wantErr: true,
		},
		{
			name:        "dump graph",
			args:        []string{"dump-graph", soc, "top.noc"},
			wantContain: []string{"digraph"},
		},
		{
			name:    "missing blob",
			args:    []string{"inspect", filepath.Join(dir, "nope.json"), "--blocks"},
			wantErr: true,
		},
		{
			name:    "missing config",
			args:    []string{"inspect", soc, "--blocks", "--config", filepath.Join(dir, "nope.yaml")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := tt.args
			if !slices.Contains(args, "--config") {
				args = append(args, "--config", conf)
			}
			output, err := execute(t, args...)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error but got none\nOutput: %s", output)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v\nOutput: %s", err, output)
			}
			for _, want := range tt.wantContain {
				if !strings.Contains(output, want) {
					t.Errorf("Output missing expected string: %q\nGot:\n%s", want, output)
				}
			}
		})
	}
}

func TestInspectExitCode(t *testing.T) {
	dir := t.TempDir()
	soc := writeSoC(t, dir)

	_, err := execute(t, "inspect", soc, "--test", "FPGA", "--false", "--exitcode")
	var ee *exitError
	if !errors.As(err, &ee) || ee.code != 1 {
		t.Fatalf("got %v, want exit status 1", err)
	}
	if _, err := execute(t, "inspect", soc, "--test", "FPGA", "--exitcode"); err != nil {
		t.Fatalf("passing test should not fail: %v", err)
	}
}

func TestCleanAndSpliceE2E(t *testing.T) {
	dir := t.TempDir()
	soc := writeSoC(t, dir)
	regs := writeRegisterDB(t, dir)

	cleaned := filepath.Join(dir, "clean.json")
	output, err := execute(t, "clean", soc, cleaned, "--strip-attributes")
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if !strings.Contains(output, "removed 0 blocks, 2 ports, 0 connections, 1 interconnect types") {
		t.Errorf("clean output = %q", output)
	}
	p, err := blob.LoadFile(cleaned)
	if err != nil {
		t.Fatalf("reload cleaned: %v", err)
	}
	top := p.PrincipalBlocks()[0]
	if top.HasAttribute("FPGA") || !top.Flag(design.AttrPrincipal) {
		t.Errorf("cleaned attributes = %v", top.AttributeKeys())
	}
	if p.Interconnect("unused") != nil {
		t.Errorf("unused interconnect kept")
	}

	spliced := filepath.Join(dir, "spliced.json")
	output, err = execute(t, "splice", cleaned, spliced, "--registers", "spi="+regs+"+0x100")
	if err != nil {
		t.Fatalf("splice: %v", err)
	}
	if !strings.Contains(output, "spliced 1 register databases") {
		t.Errorf("splice output = %q", output)
	}
	p, err = blob.LoadFile(spliced)
	if err != nil {
		t.Fatalf("reload spliced: %v", err)
	}
	spi, err := p.ResolveBlock("top.spi")
	if err != nil {
		t.Fatalf("ResolveBlock: %v", err)
	}
	if g := spi.LookupRegister("spi_cfg"); g == nil || g.Offset != 0x100 {
		t.Errorf("spliced group = %v", g)
	}
	if _, err := execute(t, "splice", cleaned, spliced, "--registers", "spi"); err == nil {
		t.Errorf("malformed --registers should fail")
	}
}
