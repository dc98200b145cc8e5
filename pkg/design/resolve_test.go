package design

import (
	"errors"
	"reflect"
	"testing"
)

func TestChaseConnection(t *testing.T) {
	d := NewDesign()
	top := mustBlock(t, d, "top", nil)
	src := mustBlock(t, d, "src", top)
	leaf := mustBlock(t, d, "leaf", top)
	inner := mustBlock(t, d, "inner", leaf)
	srcOut := mustPort(t, src, "o", 2, Output)
	leafIn := mustPort(t, leaf, "i", 1, Input)
	innerIn := mustPort(t, inner, "i", 1, Input)
	sink := mustPort(t, mustBlock(t, d, "sink", top), "i", 1, Input)
	mustConnect(t, top, srcOut, 0, leafIn, 0)
	mustConnect(t, top, srcOut, 1, sink, 0)
	mustConnect(t, leaf, leafIn, 0, innerIn, 0)

	paths, err := srcOut.ChaseConnection(0)
	if err != nil {
		t.Fatalf("ChaseConnection: %v", err)
	}
	want := []Path{{srcOut.Signal(0), leafIn.Signal(0), innerIn.Signal(0)}}
	if !reflect.DeepEqual(paths, want) {
		t.Fatalf("without leaf marker got %v, want %v", d.Names(paths[0]), d.Names(want[0]))
	}

	leaf.SetAttribute(AttrLeafNode, true)
	paths, _ = srcOut.ChaseConnection(0)
	want = []Path{{srcOut.Signal(0), leafIn.Signal(0)}}
	if !reflect.DeepEqual(paths, want) {
		t.Fatalf("leaf input must stop the chase, got %v", d.Names(paths[0]))
	}

	// Only wiring from the requested index is followed.
	paths, _ = srcOut.ChaseConnection(1)
	want = []Path{{srcOut.Signal(1), sink.Signal(0)}}
	if !reflect.DeepEqual(paths, want) {
		t.Fatalf("index 1 got %v", paths)
	}

	// An unwired signal is its own terminal.
	paths, _ = sink.ChaseConnection(0)
	if len(paths) != 1 || len(paths[0]) != 1 {
		t.Fatalf("unwired signal got %v", paths)
	}

	if _, err := srcOut.ChaseConnection(2); !errors.Is(err, ErrIndexRange) {
		t.Errorf("index 2: got %v, want ErrIndexRange", err)
	}
}

func TestChaseConnectionFanOut(t *testing.T) {
	d := NewDesign()
	top := mustBlock(t, d, "top", nil)
	o := mustPort(t, mustBlock(t, d, "a", top), "o", 1, Output)
	i1 := mustPort(t, mustBlock(t, d, "b", top), "i", 1, Input)
	i2 := mustPort(t, mustBlock(t, d, "c", top), "i", 1, Input)
	mustConnect(t, top, o, 0, i1, 0)
	mustConnect(t, top, o, 0, i2, 0)

	paths, err := o.ChaseConnection(0)
	if err != nil {
		t.Fatalf("ChaseConnection: %v", err)
	}
	if len(paths) != 2 || paths[0].Last() != i1.Signal(0) || paths[1].Last() != i2.Signal(0) {
		t.Fatalf("fan-out got %v", paths)
	}
	if _, err := o.ResolveAddress(0x10, 0); !errors.Is(err, ErrAmbiguous) {
		t.Errorf("ResolveAddress over fan-out: got %v, want ErrAmbiguous", err)
	}
}

func TestFindConnectionPathTrivial(t *testing.T) {
	f := newSoC(t)
	path, err := f.cpuM.FindConnectionPath(0, f.cpuM, 0)
	if err != nil {
		t.Fatalf("FindConnectionPath: %v", err)
	}
	if path == nil || len(path) != 0 {
		t.Fatalf("self path = %v, want empty non-nil path", path)
	}
	off, ok, err := f.cpuM.RelativeAddress(0, f.cpuM, 0)
	if err != nil || !ok || off != 0 {
		t.Errorf("self relative address = %d, %v, %v", off, ok, err)
	}
}

func TestFindConnectionPathCycle(t *testing.T) {
	d := NewDesign()
	top := mustBlock(t, d, "top", nil)
	x := mustPort(t, mustBlock(t, d, "x", top), "io", 1, Inout)
	y := mustPort(t, mustBlock(t, d, "y", top), "io", 1, Inout)
	z := mustPort(t, mustBlock(t, d, "z", top), "i", 1, Input)
	mustConnect(t, top, x, 0, y, 0)
	mustConnect(t, top, y, 0, x, 0)

	path, err := x.FindConnectionPath(0, z, 0)
	if err != nil {
		t.Fatalf("FindConnectionPath: %v", err)
	}
	if path != nil {
		t.Fatalf("unrelated ports on a loop got %v, want nil", d.Names(path))
	}
	path, _ = x.FindConnectionPath(0, y, 0)
	if len(path) != 2 {
		t.Fatalf("x -> y got %v", d.Names(path))
	}
	_, ok, err := x.RelativeAddress(0, z, 0)
	if err != nil || ok {
		t.Errorf("RelativeAddress to unrelated port = ok %v, err %v", ok, err)
	}
}

func TestFindConnectionPathThroughMap(t *testing.T) {
	f := newSoC(t)
	path, err := f.cpuM.FindConnectionPath(0, f.spiS, 0)
	if err != nil {
		t.Fatalf("FindConnectionPath: %v", err)
	}
	want := Path{f.cpuM.Signal(0), f.nocS.Signal(0), f.nocT1.Signal(0), f.spiS.Signal(0)}
	if !reflect.DeepEqual(path, want) {
		t.Fatalf("path = %v, want %v", f.project.Design().Names(path), f.project.Design().Names(want))
	}

	// Constraining the initiator to the UART hides the SPI port.
	if _, err := f.nocMap.AddConstraint(f.initiator, f.uartTgt); err != nil {
		t.Fatalf("AddConstraint: %v", err)
	}
	path, _ = f.cpuM.FindConnectionPath(0, f.spiS, 0)
	if path != nil {
		t.Errorf("constrained route = %v, want nil", f.project.Design().Names(path))
	}
}

func TestFindConnectionPathShortest(t *testing.T) {
	d := NewDesign()
	top := mustBlock(t, d, "top", nil)
	src := mustPort(t, mustBlock(t, d, "src", top), "m", 1, Output)
	bus := mustBlock(t, d, "bus", top)
	busIn := mustPort(t, bus, "s", 1, Input)
	busOut := mustPort(t, bus, "t", 2, Output)
	pass := mustBlock(t, d, "pass", top)
	passIn := mustPort(t, pass, "i", 1, Input)
	passOut := mustPort(t, pass, "o", 1, Output)
	dst := mustPort(t, mustBlock(t, d, "dst", top), "i", 1, Input)

	mustConnect(t, top, src, 0, busIn, 0)
	mustConnect(t, top, busOut, 0, passIn, 0)
	mustConnect(t, pass, passIn, 0, passOut, 0)
	mustConnect(t, top, passOut, 0, dst, 0)
	mustConnect(t, top, busOut, 1, dst, 0)

	m := mustMap(t, bus)
	mustInitiator(t, m, busIn, 0, 0xFFFF, 0)
	mustTarget(t, m, busOut, 0, 0x0000, 0x1000)
	mustTarget(t, m, busOut, 1, 0x8000, 0x1000)

	path, err := src.FindConnectionPath(0, dst, 0)
	if err != nil {
		t.Fatalf("FindConnectionPath: %v", err)
	}
	if len(path) != 4 || path[2] != busOut.Signal(1) {
		t.Fatalf("shortest path = %v", d.Names(path))
	}
	off, ok, err := src.RelativeAddress(0, dst, 0)
	if err != nil || !ok {
		t.Fatalf("RelativeAddress: %d, %v, %v", off, ok, err)
	}
	if off != 0x8000 {
		t.Errorf("RelativeAddress = 0x%x, want 0x8000", off)
	}
}

func TestResolveAddress(t *testing.T) {
	f := newSoC(t)
	tests := []struct {
		name    string
		addr    uint64
		want    *Port
		wantErr error
	}{
		{name: "uart", addr: 0x40000010, want: f.uartS},
		{name: "spi", addr: 0x40001004, want: f.spiS},
		{name: "hole", addr: 0x50000000, wantErr: ErrNoTarget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst, err := f.cpuM.ResolveAddress(tt.addr, 0)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("got %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveAddress(0x%x): %v", tt.addr, err)
			}
			if dst.Port != tt.want || dst.Index != 0 || dst.Address != tt.addr {
				t.Errorf("ResolveAddress(0x%x) = %s[%d] @0x%x", tt.addr, dst.Port.HierarchicalPath(), dst.Index, dst.Address)
			}
		})
	}
}

// Two directly wired blocks where the receiving block translates through an
// initiator with a narrow mask.
func newMaskedPair(t *testing.T, offset int64) (a, tgt *Port) {
	t.Helper()
	d := NewDesign()
	top := mustBlock(t, d, "top", nil)
	blkA := mustBlock(t, d, "A", top)
	blkB := mustBlock(t, d, "B", top)
	aOut := mustPort(t, blkA, "a_out", 1, Output)
	bIn := mustPort(t, blkB, "b_in", 1, Input)
	bTgt := mustPort(t, blkB, "b_tgt", 1, Output)
	mustConnect(t, top, aOut, 0, bIn, 0)
	m := mustMap(t, blkB)
	mustInitiator(t, m, bIn, 0, 0xFFF, offset)
	mustTarget(t, m, bTgt, 0, 0x2000, 0x100)
	return aOut, bTgt
}

func TestMaskAndApertureIndependence(t *testing.T) {
	aOut, bTgt := newMaskedPair(t, 0x1000)

	// (0x050 & 0xFFF) + 0x1000 = 0x1050 misses [0x2000, 0x2100).
	if _, err := aOut.ResolveAddress(0x050, 0); !errors.Is(err, ErrNoTarget) {
		t.Fatalf("ResolveAddress: got %v, want ErrNoTarget", err)
	}

	off, ok, err := aOut.RelativeAddress(0, bTgt, 0)
	if err != nil || !ok {
		t.Fatalf("RelativeAddress: %v, %v", ok, err)
	}
	// Walking back from the remote end: +0x2000 for the target, -0x1000
	// for the initiator. The nearest contributor is that initiator, so its
	// 0x1000 is added back: the result is 0x2000, not 0x1000.
	if off != 0x2000 {
		t.Errorf("RelativeAddress = 0x%x, want 0x2000", off)
	}

	aOut, bTgt = newMaskedPair(t, 0x2000)
	dst, err := aOut.ResolveAddress(0x1050, 0)
	if err != nil {
		t.Fatalf("ResolveAddress: %v", err)
	}
	if dst.Port != bTgt || dst.Address != 0x2050 {
		t.Errorf("ResolveAddress = %s @0x%x, want b_tgt @0x2050", dst.Port.Name, dst.Address)
	}
}

func TestResolveAddressLoop(t *testing.T) {
	d := NewDesign()
	top := mustBlock(t, d, "top", nil)
	var ins, outs [2]*Port
	for i, name := range []string{"bus0", "bus1"} {
		b := mustBlock(t, d, name, top)
		ins[i] = mustPort(t, b, "s", 1, Input)
		outs[i] = mustPort(t, b, "t", 1, Output)
		m := mustMap(t, b)
		mustInitiator(t, m, ins[i], 0, 0xFF, 0)
		mustTarget(t, m, outs[i], 0, 0, 0x100)
	}
	// Each bus forwards into the other.
	mustConnect(t, top, outs[0], 0, ins[1], 0)
	mustConnect(t, top, outs[1], 0, ins[0], 0)

	if _, err := ins[0].ResolveAddress(0x10, 0); !errors.Is(err, ErrRoutingLoop) {
		t.Fatalf("got %v, want ErrRoutingLoop", err)
	}
}
