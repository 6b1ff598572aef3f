package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/amp-labs/amp-fsm/logger"
	"github.com/spf13/cobra"
)

func newFeedCmd() *cobra.Command {
	var keepGoing bool

	cmd := &cobra.Command{
		Use:   "feed <config> <input>...",
		Short: "Feed a sequence of inputs to a machine",
		Long:  `Builds the machine, dispatches every input in order and prints each transition. Stops at the first failed dispatch unless --keep-going is set.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			_, m, err := loadMachine(ctx, args[0])
			if err != nil {
				return err
			}

			var failures []error

			for _, input := range args[1:] {
				if ctx.Err() != nil {
					return context.Cause(ctx)
				}

				if err := step(ctx, out, m, input); err != nil {
					if !keepGoing {
						return err
					}

					logger.Get(ctx).Warn("Dispatch failed, continuing", "error", err)

					failures = append(failures, err)
				}
			}

			fmt.Fprintf(out, "final state: %s\n", m.CurrentState())

			return errors.Join(failures...)
		},
	}

	cmd.Flags().BoolVar(&keepGoing, "keep-going", false, "Continue after a failed dispatch")

	return cmd
}
