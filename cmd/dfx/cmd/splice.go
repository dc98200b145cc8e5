package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/designformat/pkg/blob"
	"github.com/OpenTraceLab/designformat/pkg/splice"
)

var (
	// Flags for splice command
	spliceRegisters []string
)

var spliceCmd = &cobra.Command{
	Use:   "splice <input> <output>",
	Short: "Append register databases to blocks of a blob",
	Long: `Append the principal register groups of separate register databases to
blocks of the base blob. Each --registers entry has the form
BLOCK=DATABASE(+OFFSET); the offset shifts every appended group.

Examples:
  dfx splice soc.json soc_regs.json --registers uart=uart_regs.json \
    --registers dma=dma_regs.json+0x100`,
	Args: cobra.ExactArgs(2),
	RunE: runSplice,
}

func init() {
	rootCmd.AddCommand(spliceCmd)

	spliceCmd.Flags().StringArrayVar(&spliceRegisters, "registers", nil,
		"register database to append, BLOCK=DATABASE(+OFFSET) (repeatable)")
}

func runSplice(cmd *cobra.Command, args []string) error {
	p, err := loadProject(args[0])
	if err != nil {
		return err
	}
	var sources []splice.Source
	for _, entry := range spliceRegisters {
		src, err := splice.ParseSource(entry)
		if err != nil {
			return err
		}
		sources = append(sources, src)
	}
	err = splice.Splice(cmd.Context(), p, sources,
		splice.WithLogger(log),
		splice.WithWorkers(cfg.Load.Workers),
		splice.WithLoadOptions(blob.WithLogger(log)),
	)
	if err != nil {
		return err
	}
	if err := blob.SaveFile(args[1], p); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "spliced %d register databases into %s\n", len(sources), args[1])
	return nil
}
