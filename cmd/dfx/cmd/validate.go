package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/designformat/pkg/blob"
	"github.com/OpenTraceLab/designformat/pkg/schema"
)

var validateCmd = &cobra.Command{
	Use:   "validate <blob>...",
	Short: "Check blobs against the schema and reload them",
	Long: `Check each blob against the embedded CUE schema, then reload it to catch
dangling references the schema cannot see. Every problem is listed.

Examples:
  dfx validate soc.json uart_regs.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	v, err := schema.New()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	failed := 0
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("could not read file at path: %s", path)
		}
		if problems := v.Problems(data); len(problems) > 0 {
			failed++
			for _, p := range problems {
				fmt.Fprintf(out, "%s: %s\n", path, p)
			}
			continue
		}
		if _, err := blob.Unmarshal(data, blob.WithLogger(log)); err != nil {
			failed++
			fmt.Fprintf(out, "%s: %v\n", path, err)
			continue
		}
		fmt.Fprintf(out, "%s: ok\n", path)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d blobs failed validation", failed, len(args))
	}
	return nil
}
