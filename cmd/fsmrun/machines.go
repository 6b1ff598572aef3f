package main

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"facette.io/natsort"
	"github.com/amp-labs/amp-fsm/statemachine"
	"github.com/spf13/cobra"
)

//go:embed machines/*.yaml
var machineFiles embed.FS

// embeddedLoader serves the bundled machines by file name without extension.
type embeddedLoader struct {
	fsys fs.FS
}

var bundled statemachine.ConfigLoader = embeddedLoader{fsys: machineFiles}

func (l embeddedLoader) LoadByName(name string) ([]byte, error) {
	return fs.ReadFile(l.fsys, path.Join("machines", name+".yaml"))
}

func (l embeddedLoader) ListAvailable() []string {
	entries, err := fs.ReadDir(l.fsys, "machines")
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, strings.TrimSuffix(entry.Name(), ".yaml"))
	}

	natsort.Sort(names)

	return names
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the bundled machines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range bundled.ListAvailable() {
				config, err := statemachine.LoadConfig(name)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d states, starts in %s\n",
					name, len(config.States), config.InitialState)
			}

			return nil
		},
	}
}
