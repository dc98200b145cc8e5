package hierpath

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Ref
		wantErr bool
	}{
		{name: "empty", input: "", want: Ref{}},
		{name: "single block", input: "top", want: Ref{Blocks: []string{"top"}}},
		{name: "nested block", input: "top.cpu.core_0", want: Ref{Blocks: []string{"top", "cpu", "core_0"}}},
		{name: "port", input: "top.noc[axi-m]", want: Ref{Blocks: []string{"top", "noc"}, Port: "axi-m"}},
		{name: "port only", input: "[clk]", want: Ref{Port: "clk"}},
		{name: "indexed", input: "top.noc[tgt][3]", want: Ref{Blocks: []string{"top", "noc"}, Port: "tgt", Index: 3, HasIndex: true}},
		{name: "surrounding space", input: "  top[clk] ", want: Ref{Blocks: []string{"top"}, Port: "clk"}},
		{name: "bad index", input: "top[clk][x]", wantErr: true},
		{name: "negative index", input: "top[clk][-1]", wantErr: true},
		{name: "trailing dot", input: "top.", wantErr: true},
		{name: "unclosed bracket", input: "top[clk", wantErr: true},
		{name: "three brackets", input: "top[a][1][2]", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %+v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.input, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestRefString(t *testing.T) {
	for _, s := range []string{"top", "top.a.b", "top.a[p]", "top.a[p][2]"} {
		ref, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q): %v", s, err)
		}
		if got := ref.String(); got != s {
			t.Errorf("String() = %q, want %q", got, s)
		}
	}
	if got := PortPath("top.a", "clk"); got != "top.a[clk]" {
		t.Errorf("PortPath = %q", got)
	}
}
