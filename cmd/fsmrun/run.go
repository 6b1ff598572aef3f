package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/amp-labs/amp-fsm/cli"
	"github.com/amp-labs/amp-fsm/logger"
	"github.com/amp-labs/amp-fsm/statemachine"
	"github.com/spf13/cobra"
)

type configMachine = statemachine.Machine[statemachine.Name, string, string]

// loadMachine loads a config by path or bundled name and builds a machine
// at its initial state that logs through the process logger.
func loadMachine(ctx context.Context, pathOrName string) (*statemachine.Config, *configMachine, error) {
	config, err := statemachine.LoadConfig(pathOrName)
	if err != nil {
		return nil, nil, err
	}

	ctx = logger.With(ctx, "config", pathOrName)

	m, err := config.NewMachine(func(b *statemachine.Builder[statemachine.Name, string, string]) {
		b.WithLogger(statemachine.NewDefaultLogger(logger.Get(ctx)))
	})
	if err != nil {
		return nil, nil, err
	}

	return config, m, nil
}

// step dispatches one input and prints the outcome. Unhandled inputs are
// reported but not fatal.
func step(ctx context.Context, out io.Writer, m *configMachine, input string) error {
	from := m.CurrentState()

	result, err := m.Dispatch(ctx, input)
	if err != nil {
		if errors.Is(err, statemachine.ErrUnhandledState) {
			fmt.Fprintf(out, "%s --%s--> unhandled\n", from, input)
		}

		return logger.AnnotateError(err, "input", input, "state", from.String())
	}

	line := fmt.Sprintf("%s --%s--> %s", from, input, m.CurrentState())
	if value, ok := result.Get(); ok {
		line += " : " + value
	}

	fmt.Fprintln(out, line)

	return nil
}

func newRunCmd(prompter cli.Prompter) *cobra.Command {
	return &cobra.Command{
		Use:   "run <config>",
		Short: "Run a machine interactively",
		Long:  `Builds the machine and repeatedly offers the inputs its rules know about until [Quit] is chosen and confirmed. [Other] reads an input no rule lists.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			config, m, err := loadMachine(ctx, args[0])
			if err != nil {
				return err
			}

			fmt.Fprint(out, cli.BannerAutoWidth(fmt.Sprintf("%s\nmachine %s", config.Name, m.ID()), cli.AlignCenter))

			inputs := config.Inputs()

			for ctx.Err() == nil {
				input, ok, err := cli.SelectInput(prompter, fmt.Sprintf("%s [%s]", config.Name, m.CurrentState()), inputs...)
				if err != nil {
					if cli.IsInterrupt(err) {
						return nil
					}

					return err
				}

				if !ok {
					return nil
				}

				if err := step(ctx, out, m, input); err != nil {
					if !errors.Is(err, statemachine.ErrUnhandledState) {
						return err
					}

					logger.Get(ctx).Warn("Input not handled", "error", err)
				}
			}

			return nil
		},
	}
}
