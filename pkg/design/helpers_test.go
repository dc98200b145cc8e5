package design

import "testing"

func mustBlock(t *testing.T, d *Design, name string, parent *Block) *Block {
	t.Helper()
	b, err := d.NewBlock(name, name+"_t", parent)
	if err != nil {
		t.Fatalf("NewBlock(%s): %v", name, err)
	}
	return b
}

func mustPort(t *testing.T, b *Block, name string, count int, dir Direction) *Port {
	t.Helper()
	p, err := b.AddPort(name, "axi4", count, dir)
	if err != nil {
		t.Fatalf("AddPort(%s): %v", name, err)
	}
	return p
}

func mustConnect(t *testing.T, b *Block, from *Port, fi int, to *Port, ti int) {
	t.Helper()
	if _, err := b.Connect(from, fi, to, ti); err != nil {
		t.Fatalf("Connect(%s -> %s): %v", from.Name, to.Name, err)
	}
}

func mustMap(t *testing.T, b *Block) *AddressMap {
	t.Helper()
	m, err := b.NewAddressMap()
	if err != nil {
		t.Fatalf("NewAddressMap(%s): %v", b.Name(), err)
	}
	return m
}

func mustInitiator(t *testing.T, m *AddressMap, p *Port, idx int, mask uint64, offset int64) *Initiator {
	t.Helper()
	in, err := m.AddInitiator(p, idx, mask, offset)
	if err != nil {
		t.Fatalf("AddInitiator(%s): %v", p.Name, err)
	}
	return in
}

func mustTarget(t *testing.T, m *AddressMap, p *Port, idx int, offset, aperture uint64) *Target {
	t.Helper()
	tgt, err := m.AddTarget(p, idx, offset, aperture)
	if err != nil {
		t.Fatalf("AddTarget(%s): %v", p.Name, err)
	}
	return tgt
}

// socFixture is a CPU behind an interconnect with two peripherals:
//
//	cpu.m -> noc.s (initiator) ; noc.t0 -> uart.s ; noc.t1 -> spi.s
type socFixture struct {
	project         *Project
	top             *Block
	cpu, noc        *Block
	uart, spi       *Block
	cpuM, nocS      *Port
	nocT0, nocT1    *Port
	uartS, spiS     *Port
	nocMap          *AddressMap
	initiator       *Initiator
	uartTgt, spiTgt *Target
}

func newSoC(t *testing.T) *socFixture {
	t.Helper()
	f := &socFixture{project: NewProject("soc", "")}
	d := f.project.Design()
	f.top = mustBlock(t, d, "top", nil)
	f.cpu = mustBlock(t, d, "cpu", f.top)
	f.noc = mustBlock(t, d, "noc", f.top)
	f.uart = mustBlock(t, d, "uart", f.top)
	f.spi = mustBlock(t, d, "spi", f.top)

	f.cpuM = mustPort(t, f.cpu, "m", 1, Output)
	f.nocS = mustPort(t, f.noc, "s", 1, Input)
	f.nocT0 = mustPort(t, f.noc, "t0", 1, Output)
	f.nocT1 = mustPort(t, f.noc, "t1", 1, Output)
	f.uartS = mustPort(t, f.uart, "s", 1, Input)
	f.spiS = mustPort(t, f.spi, "s", 1, Input)

	mustConnect(t, f.top, f.cpuM, 0, f.nocS, 0)
	mustConnect(t, f.top, f.nocT0, 0, f.uartS, 0)
	mustConnect(t, f.top, f.nocT1, 0, f.spiS, 0)

	f.nocMap = mustMap(t, f.noc)
	f.initiator = mustInitiator(t, f.nocMap, f.nocS, 0, 0xFFFFFFFF, 0)
	f.uartTgt = mustTarget(t, f.nocMap, f.nocT0, 0, 0x40000000, 0x1000)
	f.spiTgt = mustTarget(t, f.nocMap, f.nocT1, 0, 0x40001000, 0x1000)

	if err := f.project.AddPrincipal(f.top); err != nil {
		t.Fatalf("AddPrincipal: %v", err)
	}
	return f
}
