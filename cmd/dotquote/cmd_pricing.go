package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/benithors/dotquote/internal/logger"
	"github.com/benithors/dotquote/internal/serrors"
)

func newPricingCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pricing <provider> [extension...]",
		Short: "Show a pricing provider's table, or selected extensions of it",
		Args:  usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := o.engine.Pricing(cmd.Context(), args[0], args[1:]...)
			if err != nil {
				if errors.Is(err, serrors.ErrNotFound) {
					return usageErr(cmd, err)
				}
				if len(table) == 0 {
					return failure(cmd, err)
				}
				logger.Warn(cmd.Context(), "pricing: serving partial table", zap.String("provider", args[0]), zap.Error(err))
			}

			if err := writePricing(os.Stdout, o.outFormat, priceRows(table)); err != nil {
				return failure(cmd, fmt.Errorf("failed to write output: %w", err))
			}
			return nil
		},
	}

	cmd.SetFlagErrorFunc(usageErr)
	return cmd
}
