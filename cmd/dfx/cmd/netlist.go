package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/designformat/pkg/netlist"
)

var (
	// Flags for netlist command
	netlistFormat string
	netlistOutput string
)

var netlistCmd = &cobra.Command{
	Use:   "netlist <blob>",
	Short: "Export the connectivity of a blob as nets",
	Long: `Flatten the wiring of every root block into nets of port signals and
export them as JSON or as a KiCad netlist. Constant ties name the net they
drive.

Examples:
  dfx netlist soc.json
  dfx netlist soc.json --format kicad --output soc.net`,
	Args: cobra.ExactArgs(1),
	RunE: runNetlist,
}

func init() {
	rootCmd.AddCommand(netlistCmd)

	netlistCmd.Flags().StringVar(&netlistFormat, "format", "json",
		"output format (json, kicad)")
	netlistCmd.Flags().StringVarP(&netlistOutput, "output", "o", "",
		"output file (default: stdout)")
}

func runNetlist(cmd *cobra.Command, args []string) error {
	p, err := loadProject(args[0])
	if err != nil {
		return err
	}
	nl := netlist.Build(p)
	log.WithField("path", args[0]).Debugf("%d nets, %d with several pins", nl.NetCount(), nl.MultiPinNetCount())

	var data []byte
	switch netlistFormat {
	case "json":
		if data, err = nl.ExportJSON(); err != nil {
			return err
		}
		data = append(data, '\n')
	case "kicad":
		s, err := nl.ExportKiCad(args[0])
		if err != nil {
			return err
		}
		if err := netlist.VerifyKiCad(s); err != nil {
			return err
		}
		data = []byte(s)
	default:
		return fmt.Errorf("unknown format %q (json, kicad)", netlistFormat)
	}
	return writeOutput(cmd.OutOrStdout(), netlistOutput, data)
}
