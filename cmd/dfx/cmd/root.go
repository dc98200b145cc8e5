package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/designformat/internal/config"
	"github.com/OpenTraceLab/designformat/internal/logging"
)

var (
	// Global flags
	verbose    bool
	configPath string

	cfg *config.Config
	log *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "dfx",
	Short: "DesignFormat blob tools",
	Long: `dfx inspects, checks and transforms DesignFormat blobs: JSON dumps of a
hardware design with its block tree, wiring, address maps and registers.

Examples:
  dfx inspect soc.json --blocks                      # List root blocks
  dfx inspect soc.json --address-map cpu[m]          # Address map seen from a port
  dfx resolve soc.json top.cpu[m] 0x40001000         # Where does an access land
  dfx path soc.json top.cpu[m] top.uart[s]           # Route between two signals
  dfx lint soc.json                                  # Run design rules
  dfx netlist soc.json --format kicad                # Export connectivity`,
	Version:       "0.9.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
		log, err = logging.New(cfg.Log, verbose, cmd.ErrOrStderr())
		return err
	},
}

// exitError ends the process with a status code and no message.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "configuration file (default: ./dfx.yaml, ./.dfx.yaml, ~/.config/dfx/config.yaml)")
}
