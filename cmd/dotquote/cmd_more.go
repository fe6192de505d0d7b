package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newMoreCmd(o *options) *cobra.Command {
	var skip string

	cmd := &cobra.Command{
		Use:   "more <name>",
		Short: "Check a name under the extended extension list",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if name == "" {
				return &cliError{Code: 2, ShowUsage: true, Cmd: cmd}
			}

			records := o.engine.CheckMoreExtensions(cmd.Context(), name, splitCommaList(skip))
			results := make([]result, 0, len(records))
			for in, rec := range records {
				results = append(results, result{Input: in, Record: rec})
			}
			sortResults(results, "domain")

			if err := writeResults(os.Stdout, o.outFormat, results); err != nil {
				return failure(cmd, fmt.Errorf("failed to write output: %w", err))
			}
			return nil
		},
	}

	cmd.SetFlagErrorFunc(usageErr)
	cmd.Flags().StringVar(&skip, "skip", "", "Comma-separated extensions already checked (e.g. com,ai)")

	return cmd
}
