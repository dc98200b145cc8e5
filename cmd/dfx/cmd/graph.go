package cmd

import (
	"bytes"
	"fmt"

	"github.com/bradleyjkemp/memviz"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/designformat/pkg/design"
)

var (
	// Flags for dump-graph command
	graphOutput string
	graphDepth  int
)

var dumpGraphCmd = &cobra.Command{
	Use:   "dump-graph <blob> [block]",
	Short: "Write a Graphviz graph of a block sub-tree",
	Long: `Write a Graphviz dot graph of a block, its ports, register groups and
children. The block path defaults to the principal block.

Examples:
  dfx dump-graph soc.json top.noc | dot -Tsvg > noc.svg
  dfx dump-graph soc.json --depth 1 --output top.dot`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDumpGraph,
}

func init() {
	rootCmd.AddCommand(dumpGraphCmd)

	dumpGraphCmd.Flags().StringVarP(&graphOutput, "output", "o", "",
		"output file (default: stdout)")
	dumpGraphCmd.Flags().IntVar(&graphDepth, "depth", -1,
		"levels of children to include (negative: all)")
}

// graphBlock is the snapshot of a block drawn by dump-graph.
type graphBlock struct {
	Path      string
	Type      string
	Ports     []graphPort
	Registers []string
	Children  []*graphBlock
}

type graphPort struct {
	Name      string
	Type      string
	Direction string
	Count     int
}

func snapshot(b *design.Block, depth int) *graphBlock {
	g := &graphBlock{Path: b.HierarchicalPath(), Type: b.Type}
	for _, p := range b.Ports() {
		g.Ports = append(g.Ports, graphPort{Name: p.Name, Type: p.Type, Direction: string(p.Direction), Count: p.Count})
	}
	for _, grp := range b.RegisterGroups() {
		g.Registers = append(g.Registers, fmt.Sprintf("%s@0x%x", grp.Name, grp.Offset))
	}
	if depth == 0 {
		return g
	}
	for _, c := range b.Children() {
		g.Children = append(g.Children, snapshot(c, depth-1))
	}
	return g
}

func runDumpGraph(cmd *cobra.Command, args []string) error {
	p, err := loadProject(args[0])
	if err != nil {
		return err
	}
	var root *design.Block
	if len(args) == 2 {
		if root, err = p.ResolveBlock(args[1]); err != nil {
			return err
		}
	} else if root, err = principalBlock(p); err != nil {
		return err
	}
	var buf bytes.Buffer
	memviz.Map(&buf, snapshot(root, graphDepth))
	return writeOutput(cmd.OutOrStdout(), graphOutput, buf.Bytes())
}
