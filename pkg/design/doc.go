// Package design is the in-memory object model for hardware system designs:
// blocks, ports, connections, address maps, registers, commands and
// interconnect types, grouped into a Project.
//
// # Overview
//
// Structural entities live in an arena owned by a Design. Blocks, ports,
// constant ties and connections are addressed by stable IDs and the wiring is
// stored as edge lists keyed by the (port, index) Signal at each end. This
// keeps the block tree, the port <-> connection links and the address maps
// free of ownership cycles.
//
// On top of the arena sit three queries:
//
//   - ChaseConnection follows direct wiring forward from a signal to its
//     terminals.
//   - FindConnectionPath searches wiring and address-map hops (initiator to
//     reachable target) for the shortest route between two signals.
//   - ResolveAddress routes a concrete address through initiators and
//     apertures to the port that finally receives it.
//
// RelativeAddress turns a path into the signed offset at which a remote
// signal, block or register appears from a local one.
//
// # Usage
//
//	p := design.NewProject("soc", "")
//	top, _ := p.Design().NewBlock("top", "soc_top", nil)
//	cpu, _ := p.Design().NewBlock("cpu", "core", top)
//	bus, _ := p.Design().NewBlock("bus", "noc", top)
//	out, _ := cpu.AddPort("axi_m", "axi4", 1, design.Output)
//	in, _ := bus.AddPort("cpu_s", "axi4", 1, design.Input)
//	_, _ = top.Connect(out, 0, in, 0)
//	_ = p.AddPrincipal(top)
//
// Edits take the design's write lock and queries its read lock, so a
// design may be shared between goroutines once built.
package design
