package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/designformat/pkg/design"
)

var (
	// Flags for inspect command
	inspectTest          string
	inspectPresent       []string
	inspectAbsent        []string
	inspectPresentOr     bool
	inspectAbsentOr      bool
	inspectFalse         bool
	inspectValue         string
	inspectIfTrue        string
	inspectIfFalse       string
	inspectExitCode      bool
	inspectInterconnects bool
	inspectTopIntc       bool
	inspectBlocks        bool
	inspectAddressMap    string
	inspectSpaced        bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <blob>",
	Short: "List nodes, print address maps and test attributes of a blob",
	Long: `Inspect a blob. Exactly one mode runs, in this order of precedence:

  --interconnects / --top-interconnects   list interconnect types, including
                                          the types their complex components embed
  --blocks                                list root blocks
  --address-map <port>                    walk the address maps reachable from a
                                          port of the principal block
  --present / --absent <key>              test for attributes of the principal block
  --test <key> [--value V]                test one attribute of the principal block

Tests print --if-true or --if-false and, with --exitcode, exit with 0 or 1.

Examples:
  dfx inspect soc.json --blocks
  dfx inspect soc.json --top-interconnects --spaced
  dfx inspect soc.json --address-map cpu[m]
  dfx inspect soc.json --test SIM_ONLY --false --exitcode
  dfx inspect soc.json --present FPGA --present ASIC --present-or`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVarP(&inspectTest, "test", "c", "",
		"attribute to test; without --value it must be present and true")
	inspectCmd.Flags().StringArrayVarP(&inspectPresent, "present", "p", nil,
		"attributes that must all be present")
	inspectCmd.Flags().StringArrayVarP(&inspectAbsent, "absent", "a", nil,
		"attributes that must all be absent")
	inspectCmd.Flags().BoolVar(&inspectPresentOr, "present-or", false,
		"any one --present attribute is enough")
	inspectCmd.Flags().BoolVar(&inspectAbsentOr, "absent-or", false,
		"any one --absent attribute missing is enough")
	inspectCmd.Flags().BoolVarP(&inspectFalse, "false", "n", false,
		"invert the test result")
	inspectCmd.Flags().StringVar(&inspectValue, "value", "",
		"value the tested attribute must hold")
	inspectCmd.Flags().StringVarP(&inspectIfTrue, "if-true", "t", "1",
		"text printed when the test passes")
	inspectCmd.Flags().StringVarP(&inspectIfFalse, "if-false", "f", "",
		"text printed when the test fails")
	inspectCmd.Flags().BoolVarP(&inspectExitCode, "exitcode", "x", false,
		"exit with 1 when the test fails")
	inspectCmd.Flags().BoolVarP(&inspectInterconnects, "interconnects", "i", false,
		"list every interconnect type in the blob")
	inspectCmd.Flags().BoolVar(&inspectTopIntc, "top-interconnects", false,
		"list interconnect types carried by the principal block's own ports")
	inspectCmd.Flags().BoolVarP(&inspectBlocks, "blocks", "b", false,
		"list root blocks")
	inspectCmd.Flags().StringVarP(&inspectAddressMap, "address-map", "m", "",
		"print the address map seen from a port")
	inspectCmd.Flags().BoolVarP(&inspectSpaced, "spaced", "s", false,
		"separate listed items with spaces")
}

func runInspect(cmd *cobra.Command, args []string) error {
	p, err := loadProject(args[0])
	if err != nil {
		return err
	}
	principal, err := principalBlock(p)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	spaced := inspectSpaced || cfg.Output.Spaced

	switch {
	case inspectInterconnects || inspectTopIntc:
		names, err := interconnectListing(p, principal, cmd.Flags().Changed("value"))
		if err != nil {
			return err
		}
		printList(out, names, spaced)
		return nil

	case inspectBlocks:
		var names []string
		for _, b := range p.Blocks() {
			names = append(names, b.Name())
		}
		printList(out, names, spaced)
		return nil

	case inspectAddressMap != "":
		_, entry, err := principal.Resolve(inspectAddressMap)
		if err != nil {
			return fmt.Errorf("failed to identify entrypoint: %w", err)
		}
		if entry == nil {
			return fmt.Errorf("entrypoint %s is not a port", inspectAddressMap)
		}
		w := &mapWalker{
			out:   out,
			entry: entry,
			maps:  make(map[*design.AddressMap]bool),
			sigs:  make(map[design.Signal]bool),
		}
		return w.walk(entry, 0, 0)

	case len(inspectPresent) > 0 || len(inspectAbsent) > 0:
		var missing, extra int
		for _, key := range inspectPresent {
			if !principal.HasAttribute(key) {
				missing++
			}
		}
		for _, key := range inspectAbsent {
			if principal.HasAttribute(key) {
				extra++
			}
		}
		present := missing == 0 || (inspectPresentOr && missing < len(inspectPresent))
		absent := extra == 0 || (inspectAbsentOr && extra < len(inspectAbsent))
		return report(out, (present && absent) != inspectFalse)

	case inspectTest != "":
		return report(out, attributeTest(principal, inspectTest, inspectValue, cmd.Flags().Changed("value")) != inspectFalse)
	}
	return fmt.Errorf("nothing to inspect, pick a mode (see --help)")
}

// interconnectListing lists the selected interconnect types followed by
// every type their complex components embed.
func interconnectListing(p *design.Project, principal *design.Block, hasValue bool) ([]string, error) {
	var intcs []*design.Interconnect
	if inspectTopIntc {
		for _, name := range principal.InterconnectTypes(0) {
			ic := p.Interconnect(name)
			if ic == nil {
				return nil, fmt.Errorf("interconnect type %s is not defined", name)
			}
			intcs = append(intcs, ic)
		}
	} else {
		intcs = p.Interconnects()
	}
	if inspectTest != "" {
		kept := intcs[:0]
		for _, ic := range intcs {
			if attributeTest(ic, inspectTest, inspectValue, hasValue) != inspectFalse {
				kept = append(kept, ic)
			}
		}
		intcs = kept
	}

	listed := make(map[*design.Interconnect]bool)
	for _, ic := range intcs {
		listed[ic] = true
	}
	var chase func(ic *design.Interconnect) error
	chase = func(ic *design.Interconnect) error {
		for _, comp := range ic.Components() {
			if comp.Kind != design.Complex {
				continue
			}
			ref, err := comp.Reference()
			if err != nil {
				return err
			}
			if listed[ref] {
				continue
			}
			listed[ref] = true
			intcs = append(intcs, ref)
			if err := chase(ref); err != nil {
				return err
			}
		}
		return nil
	}
	for _, ic := range append([]*design.Interconnect(nil), intcs...) {
		if err := chase(ic); err != nil {
			return nil, err
		}
	}
	names := make([]string, len(intcs))
	for i, ic := range intcs {
		names[i] = ic.Name
	}
	return names, nil
}

// attributeTest reports whether key holds a truthy value, or equals value
// when one is given.
func attributeTest(n design.Node, key, value string, hasValue bool) bool {
	v := n.Attribute(key)
	if !hasValue {
		return truthy(v)
	}
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x == value
	case bool:
		b, err := strconv.ParseBool(value)
		return err == nil && b == x
	case float64:
		f, err := strconv.ParseFloat(value, 64)
		return err == nil && f == x
	case int64:
		i, err := strconv.ParseInt(value, 0, 64)
		return err == nil && i == x
	case int:
		i, err := strconv.ParseInt(value, 0, 64)
		return err == nil && i == int64(x)
	}
	return fmt.Sprint(v) == value
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	case int64:
		return x != 0
	case int:
		return x != 0
	}
	return true
}

func report(w io.Writer, pass bool) error {
	text := inspectIfFalse
	if pass {
		text = inspectIfTrue
	}
	if text != "" {
		fmt.Fprintln(w, text)
	}
	if !pass && inspectExitCode {
		return &exitError{code: 1}
	}
	return nil
}

// mapWalker prints each address map reachable from entry, and each
// terminal signal beyond them, with its address relative to entry.
type mapWalker struct {
	out   io.Writer
	entry *design.Port
	maps  map[*design.AddressMap]bool
	sigs  map[design.Signal]bool
}

func (w *mapWalker) walk(port *design.Port, idx, depth int) error {
	if w.sigs[port.Signal(idx)] {
		return nil
	}
	w.sigs[port.Signal(idx)] = true
	block := port.Block()
	if m := block.AddressMap(); m != nil && !w.maps[m] {
		w.maps[m] = true
		addr, ok, err := w.entry.RelativeAddress(0, port, idx)
		if err != nil || !ok {
			return err
		}
		w.line(depth, block.HierarchicalPath(), addr)
		for _, t := range m.Targets() {
			if err := w.walk(t.Port(), t.Index(), depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if len(port.Loads(idx)) > 0 {
		paths, err := port.ChaseConnection(idx)
		if err != nil {
			return err
		}
		for _, path := range paths {
			end := path.Last()
			if end == port.Signal(idx) {
				if err := w.terminal(port, idx, depth); err != nil {
					return err
				}
				continue
			}
			if err := w.walk(block.Design().Port(end.Port), end.Index, depth); err != nil {
				return err
			}
		}
		return nil
	}
	return w.terminal(port, idx, depth)
}

func (w *mapWalker) terminal(port *design.Port, idx, depth int) error {
	addr, ok, err := w.entry.RelativeAddress(0, port, idx)
	if err != nil || !ok {
		return err
	}
	w.line(depth, fmt.Sprintf("%s[%d]", port.HierarchicalPath(), idx), addr)
	return nil
}

func (w *mapWalker) line(depth int, name string, addr int64) {
	prefix := ""
	if depth > 1 {
		prefix = strings.Repeat(" | ", depth-2)
	}
	if depth > 0 {
		prefix += " |- "
	}
	fmt.Fprintf(w.out, "%s%s: %s\n", prefix, name, formatOffset(addr))
}
