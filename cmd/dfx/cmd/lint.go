package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/designformat/pkg/lint"
)

var (
	// Flags for lint command
	lintRules  []string
	lintFailOn string
)

var lintCmd = &cobra.Command{
	Use:   "lint <blob>",
	Short: "Run design rules over a blob",
	Long: `Run the design rules over a blob and list violations, most severe first.

Rules:
  multi_driver               an input signal driven more than once
  shadowed_target            a target hidden behind an earlier, wider target
  unconnected_input          a child input with no driver
  zero_aperture              a target with an empty window
  register_outside_aperture  registers beyond every window reaching the block

The command fails when a violation reaches --fail-on (error, warning or never).

Examples:
  dfx lint soc.json
  dfx lint soc.json --rule multi_driver --rule zero_aperture --fail-on warning`,
	Args: cobra.ExactArgs(1),
	RunE: runLint,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringArrayVar(&lintRules, "rule", nil,
		"rule to run (repeatable, default: lint.rules from config or all)")
	lintCmd.Flags().StringVar(&lintFailOn, "fail-on", "",
		"severity that fails the command (default: lint.fail_on from config)")
}

func runLint(cmd *cobra.Command, args []string) error {
	p, err := loadProject(args[0])
	if err != nil {
		return err
	}
	rules := lintRules
	if len(rules) == 0 {
		rules = cfg.Lint.Rules
	}
	for _, r := range rules {
		if !slices.Contains(lint.Rules, r) {
			return fmt.Errorf("unknown rule %q", r)
		}
	}
	failOn := lintFailOn
	if failOn == "" {
		failOn = cfg.Lint.FailOn
	}
	switch failOn {
	case lint.SeverityError, lint.SeverityWarning, "never":
	default:
		return fmt.Errorf("--fail-on %q is not error, warning or never", failOn)
	}

	vs, err := lint.Run(cmd.Context(), lint.Extract(p), rules)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, v := range vs {
		fmt.Fprintln(out, v)
	}
	fmt.Fprintf(out, "%d violation(s)\n", len(vs))
	if lint.Fails(vs, failOn) {
		return fmt.Errorf("design rules failed at %s level", failOn)
	}
	return nil
}
