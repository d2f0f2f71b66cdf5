package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"tools.zach/dev/pctracker/internal/classify"
	"tools.zach/dev/pctracker/internal/config"
	"tools.zach/dev/pctracker/internal/paths"
)

func newRulesCmd(dataDir *string) *cobra.Command {
	rules := &cobra.Command{Use: "rules", Short: "Inspect classification rules"}

	var file string
	check := &cobra.Command{
		Use:   "check",
		Short: "Validate the rules file and print the rule tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRulesCheck(paths.DataDir{Root: *dataDir}, file, cmd.OutOrStdout())
		},
	}
	check.Flags().StringVar(&file, "rules", "", "Rules file (default from analyze.rules_file)")
	rules.AddCommand(check)
	return rules
}

func runRulesCheck(dp paths.DataDir, file string, w io.Writer) error {
	if file == "" {
		cfg, err := config.Load(dp.Root)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		file = dp.Rules(cfg.Analyze.RulesFile)
	}
	rules, err := loadRules(file)
	if err != nil {
		return err
	}
	if err := classify.Fprint(w, rules); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s: ok\n", file)
	return err
}
