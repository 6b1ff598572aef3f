package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/amp-labs/amp-fsm/cli"
	"github.com/amp-labs/amp-fsm/logger"
	"github.com/amp-labs/amp-fsm/statemachine"
	"github.com/amp-labs/amp-fsm/telemetry"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const appName = "fsmrun"

func newRootCmd(prompter cli.Prompter) *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           appName,
		Short:         "Run declarative state machines",
		Long:          `fsmrun loads a machine from a YAML file (or a bundled machine by name) and runs it interactively, feeds it inputs, draws it as a Mermaid diagram or lints it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// A missing .env file is fine.
			if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}

			_, err := logger.ConfigureLogging(appName, func(o *logger.Options) {
				if _, set := os.LookupEnv("LOG_OUTPUT"); !set {
					o.Output = cmd.ErrOrStderr()
				}
			})
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			config, err := telemetry.LoadConfigFromEnv(ctx, os.Getenv("ENVIRONMENT"))
			if err != nil {
				return err
			}

			return telemetry.Initialize(ctx, config)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return telemetry.Shutdown(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file to load before running")

	root.AddCommand(
		newRunCmd(prompter),
		newFeedCmd(),
		newGraphCmd(prompter),
		newLintCmd(),
		newListCmd(),
	)

	statemachine.SetConfigLoader(bundled)

	return root
}
