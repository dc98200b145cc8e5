package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/designformat/pkg/blob"
	"github.com/OpenTraceLab/designformat/pkg/clean"
)

var (
	// Flags for clean command
	cleanStripDesc    bool
	cleanStripAttrs   bool
	cleanPreserveTree []string
	cleanPreserveConn []string
)

var cleanCmd = &cobra.Command{
	Use:   "clean <input> <output>",
	Short: "Remove unneeded structure from a blob",
	Long: `Trim the principal block down to the blocks and ports reachable from the
preserved trees and ports, drop interconnect types nothing uses any more and
optionally strip descriptions and non-essential attributes.

Without --preserve-tree or --preserve-connectivity the ports flagged
PRINCIPAL are preserved. Paths are relative to the principal block.

Examples:
  dfx clean soc.json soc_min.json --strip-descriptions
  dfx clean soc.json cpu_view.json --preserve-connectivity cpu[m]`,
	Args: cobra.ExactArgs(2),
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)

	cleanCmd.Flags().BoolVar(&cleanStripDesc, "strip-descriptions", false,
		"remove all descriptions")
	cleanCmd.Flags().BoolVar(&cleanStripAttrs, "strip-attributes", false,
		"remove all attributes except the well-known keys")
	cleanCmd.Flags().StringArrayVar(&cleanPreserveTree, "preserve-tree", nil,
		"preserve the tree down to a block (repeatable)")
	cleanCmd.Flags().StringArrayVar(&cleanPreserveConn, "preserve-connectivity", nil,
		"preserve everything reachable from a port (repeatable)")
}

func runClean(cmd *cobra.Command, args []string) error {
	p, err := loadProject(args[0])
	if err != nil {
		return err
	}
	opts := []clean.Option{clean.WithLogger(log)}
	if cleanStripDesc {
		opts = append(opts, clean.StripDescriptions())
	}
	if cleanStripAttrs {
		opts = append(opts, clean.StripAttributes())
	}
	for _, path := range cleanPreserveTree {
		opts = append(opts, clean.PreserveTree(path))
	}
	for _, path := range cleanPreserveConn {
		opts = append(opts, clean.PreserveConnectivity(path))
	}
	sum, err := clean.Clean(p, opts...)
	if err != nil {
		return err
	}
	if err := blob.SaveFile(args[1], p); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d blocks, %d ports, %d connections, %d interconnect types\n",
		sum.Blocks, sum.Ports, sum.Connections, len(sum.Interconnects))
	return nil
}
