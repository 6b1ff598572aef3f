package main

import (
	"fmt"

	"github.com/amp-labs/amp-fsm/cli"
	"github.com/amp-labs/amp-fsm/statemachine"
	"github.com/amp-labs/amp-fsm/statemachine/visualizer"
	"github.com/spf13/cobra"
)

func newGraphCmd(chooser cli.Chooser) *cobra.Command {
	var (
		direction string
		handlers  bool
		highlight []string
		pick      bool
		raw       bool
	)

	cmd := &cobra.Command{
		Use:   "graph <config>",
		Short: "Export the machine as a Mermaid state diagram",
		Long:  `Outputs a Mermaid stateDiagram-v2 with one edge per rule, labelled "input / output". States without a handler are styled as unhandled.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := statemachine.LoadConfig(args[0])
			if err != nil {
				return err
			}

			if pick {
				picked, err := cli.MultiSelect(chooser, "Highlight states", config.States...)
				if err != nil && !cli.IsInterrupt(err) {
					return err
				}

				highlight = append(highlight, picked...)
			}

			opts := visualizer.DefaultOptions().
				WithDirection(direction).
				WithShowHandlers(handlers).
				WithHighlightPath(highlight).
				WithFenced(!raw)

			diagram, err := visualizer.GenerateMermaidWithOptions(config, opts)
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), diagram)

			return nil
		},
	}

	cmd.Flags().StringVar(&direction, "direction", "TD", "Diagram direction: TD or LR")
	cmd.Flags().BoolVar(&handlers, "handlers", false, "Annotate states with their handler")
	cmd.Flags().StringSliceVar(&highlight, "highlight", nil, "States to highlight")
	cmd.Flags().BoolVar(&pick, "pick", false, "Choose states to highlight interactively")
	cmd.Flags().BoolVar(&raw, "raw", false, "Omit the markdown fence")

	return cmd
}
