package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <blob> <signal> <address>",
	Short: "Route an address from a port signal to the signal that receives it",
	Long: `Route an address presented on a port signal through wiring and address
maps and print the receiving signal with the address it sees.

The signal is a hierarchical path such as top.cpu[m] or top.cpu[m][1];
the index defaults to 0.

Examples:
  dfx resolve soc.json top.cpu[m] 0x40001000`,
	Args: cobra.ExactArgs(3),
	RunE: runResolve,
}

var pathCmd = &cobra.Command{
	Use:   "path <blob> <from> <to>",
	Short: "Show the route between two port signals and their relative address",
	Long: `Find the shortest route from one port signal to another, following wiring
and address-map hops, and print each signal on the way followed by the
address at which the destination appears from the source.

Examples:
  dfx path soc.json top.cpu[m] top.uart[s]`,
	Args: cobra.ExactArgs(3),
	RunE: runPath,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(pathCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	p, err := loadProject(args[0])
	if err != nil {
		return err
	}
	port, idx, err := p.ResolveSignal(args[1])
	if err != nil {
		return err
	}
	addr, err := parseAddress(args[2])
	if err != nil {
		return err
	}
	dst, err := port.ResolveAddress(addr, idx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s[%d] @ 0x%x\n", dst.Port.HierarchicalPath(), dst.Index, dst.Address)
	return nil
}

func runPath(cmd *cobra.Command, args []string) error {
	p, err := loadProject(args[0])
	if err != nil {
		return err
	}
	from, fi, err := p.ResolveSignal(args[1])
	if err != nil {
		return err
	}
	to, ti, err := p.ResolveSignal(args[2])
	if err != nil {
		return err
	}
	path, err := from.FindConnectionPath(fi, to, ti)
	if err != nil {
		return err
	}
	if path == nil {
		return fmt.Errorf("no path from %s to %s", args[1], args[2])
	}
	out := cmd.OutOrStdout()
	for _, name := range p.Design().Names(path) {
		fmt.Fprintln(out, name)
	}
	rel, ok, err := from.RelativeAddress(fi, to, ti)
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintf(out, "relative address: %s\n", formatOffset(rel))
	}
	return nil
}
