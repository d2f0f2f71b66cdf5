package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"tools.zach/dev/pctracker/internal/logger"
	"tools.zach/dev/pctracker/internal/paths"
)

func newLogsCmd(dataDir *string) *cobra.Command {
	var lines int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the end of the recorder log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(paths.DataDir{Root: *dataDir}, lines, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show")
	return cmd
}

func runLogs(dp paths.DataDir, lines int, w io.Writer) error {
	tail, err := logger.ReadTail(dp.Log(), lines)
	if err != nil {
		return fmt.Errorf("read log: %w", err)
	}
	if tail == "" {
		return nil
	}
	_, err = fmt.Fprintln(w, tail)
	return err
}
