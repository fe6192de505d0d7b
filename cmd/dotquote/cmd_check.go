package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

func newCheckCmd(o *options) *cobra.Command {
	var availableOnly bool
	var only string
	var sortBy string

	cmd := &cobra.Command{
		Use:   "check [domain...]",
		Short: "Check availability and prices for explicit domains (args and/or stdin)",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			onlyVal := strings.ToLower(strings.TrimSpace(only))
			if availableOnly {
				onlyVal = "available"
			}
			switch onlyVal {
			case "", "all":
				onlyVal = "all"
			case "available", "taken", "error":
			default:
				return usageErr(cmd, fmt.Errorf("invalid --only %q (use all|available|taken|error)", only))
			}

			sortVal := strings.ToLower(strings.TrimSpace(sortBy))
			switch sortVal {
			case "":
				sortVal = "input"
			case "input", "domain", "status", "length", "price":
			default:
				return usageErr(cmd, fmt.Errorf("invalid --sort %q (use input|domain|status|length|price)", sortBy))
			}

			inputs, err := readDomainsFromArgsAndStdin(args, stdin)
			if err != nil {
				return failure(cmd, fmt.Errorf("failed to read domains: %w", err))
			}
			if len(inputs) == 0 {
				return &cliError{Code: 2, ShowUsage: true, Cmd: cmd}
			}

			records := o.engine.CheckMultiple(cmd.Context(), inputs)

			results := make([]result, 0, len(records))
			seen := make(map[string]struct{}, len(inputs))
			for _, in := range inputs {
				rec, ok := records[in]
				if !ok {
					continue
				}
				if _, dup := seen[in]; dup {
					continue
				}
				seen[in] = struct{}{}
				results = append(results, result{Input: in, Record: rec})
			}

			strictFail := false
			if o.Strict {
				for _, r := range results {
					if r.Error != "" {
						strictFail = true
						break
					}
				}
			}

			if onlyVal != "all" {
				filtered := results[:0]
				for _, r := range results {
					if r.status() == onlyVal {
						filtered = append(filtered, r)
					}
				}
				results = filtered
			}

			sortResults(results, sortVal)

			if err := writeResults(os.Stdout, o.outFormat, results); err != nil {
				return failure(cmd, fmt.Errorf("failed to write output: %w", err))
			}
			if strictFail {
				return &cliError{Code: 1}
			}
			return nil
		},
	}

	cmd.SetFlagErrorFunc(usageErr)
	cmd.Flags().BoolVar(&availableOnly, "available-only", false, "Only output available domains")
	cmd.Flags().StringVar(&only, "only", "all", "Filter output: all|available|taken|error")
	cmd.Flags().StringVar(&sortBy, "sort", "input", "Sort output: input|domain|status|length|price")

	return cmd
}

var statusOrder = map[string]int{"available": 0, "taken": 1, "error": 2}

func sortResults(results []result, by string) {
	switch by {
	case "domain":
		sort.SliceStable(results, func(i, j int) bool { return results[i].Domain < results[j].Domain })
	case "status":
		sort.SliceStable(results, func(i, j int) bool {
			oi, oj := statusOrder[results[i].status()], statusOrder[results[j].status()]
			if oi != oj {
				return oi < oj
			}
			return results[i].Domain < results[j].Domain
		})
	case "length":
		sort.SliceStable(results, func(i, j int) bool {
			li, lj := len(results[i].Domain), len(results[j].Domain)
			if li != lj {
				return li < lj
			}
			return results[i].Domain < results[j].Domain
		})
	case "price":
		// Unpriced results go last.
		sort.SliceStable(results, func(i, j int) bool {
			pi, pj := results[i].Price, results[j].Price
			switch {
			case pi == nil:
				return false
			case pj == nil:
				return true
			default:
				return *pi < *pj
			}
		})
	}
}
