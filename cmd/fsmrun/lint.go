package main

import (
	"errors"
	"fmt"

	"github.com/amp-labs/amp-fsm/statemachine"
	"github.com/amp-labs/amp-fsm/statemachine/validator"
	"github.com/spf13/cobra"
)

var errLintFailed = errors.New("lint failed")

func newLintCmd() *cobra.Command {
	var (
		strict bool
		fix    bool
	)

	cmd := &cobra.Command{
		Use:   "lint <config>",
		Short: "Check a machine for unknown, unhandled and unreachable states",
		Long:  `Reports errors (bindings to undeclared states, states bound twice) and warnings (unhandled states, unreachable states, shadowed rules). With --strict, warnings fail the lint too. With --fix, applies the available fixes and prints the fixed configuration.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			config, err := statemachine.LoadConfig(args[0])
			if err != nil {
				return err
			}

			var result validator.ValidationResult
			if strict {
				result = validator.ValidateWithRulesStrict(config, validator.DefaultRules())
			} else {
				result = validator.Validate(config)
			}

			if !fix {
				fmt.Fprint(out, result.String())

				if !result.Valid {
					return fmt.Errorf("%w: %d error(s)", errLintFailed, len(result.Errors))
				}

				return nil
			}

			applied, err := validator.ApplyFixes(config, result)
			if err != nil {
				return err
			}

			data, err := config.Marshal()
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "applied %d fix(es)\n", applied)
			fmt.Fprint(out, string(data))

			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Treat warnings as errors")
	cmd.Flags().BoolVar(&fix, "fix", false, "Apply available fixes and print the result")

	return cmd
}
