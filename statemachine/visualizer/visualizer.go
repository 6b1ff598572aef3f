// Package visualizer generates Mermaid state diagrams from machine definitions.
//
//nolint:varnamelen // short names idiomatic
package visualizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/amp-labs/amp-fsm/statemachine"
	"github.com/amp-labs/amp-fsm/statemachine/validator"
)

// Visualizer errors.
var (
	ErrConfigNil      = errors.New("config cannot be nil")
	ErrDefinitionNil  = errors.New("definition cannot be nil")
	ErrNoInitialState = errors.New("config must have an initial state")
)

// GenerateMermaid converts a Config to a Mermaid state diagram.
func GenerateMermaid(config *statemachine.Config) (string, error) {
	return GenerateMermaidWithOptions(config, DefaultOptions())
}

// GenerateMermaidFromFile loads a config from a file and generates a Mermaid diagram.
func GenerateMermaidFromFile(path string, opts Options) (string, error) {
	config, err := statemachine.LoadConfig(path)
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}

	return GenerateMermaidWithOptions(config, opts)
}

// GenerateMermaidWithOptions generates a Mermaid diagram with custom options.
// Every rule becomes an edge labelled with its input, rules that hold the
// state become self loops, and states without a handler are styled as
// unhandled.
func GenerateMermaidWithOptions(config *statemachine.Config, opts Options) (string, error) {
	if config == nil {
		return "", ErrConfigNil
	}

	if config.InitialState == "" {
		return "", ErrNoInitialState
	}

	handlers := validator.BoundHandlers(config)

	edges := make(map[string][]validator.Edge)
	for _, edge := range validator.Edges(config) {
		edges[edge.From] = append(edges[edge.From], edge)
	}

	d := newDiagram(opts)
	d.initial(config.InitialState)

	for _, state := range config.States {
		handler, bound := handlers[state]
		d.state(state, handler, bound)

		for _, edge := range edges[state] {
			label := edge.Input
			if opts.ShowOutputs && edge.Output != "" {
				label += " / " + edge.Output
			}

			d.edge(edge.From, edge.To, label)
		}
	}

	return d.finish(), nil
}

// GenerateFromDefinition renders a machine type defined in code. Handlers
// are opaque functions, so the diagram shows the states of the domain and
// the handler answering for each one but no edges.
func GenerateFromDefinition[S statemachine.State, I, O any](
	def *statemachine.Definition[S, I, O],
	start S,
	opts Options,
) (string, error) {
	if def == nil {
		return "", ErrDefinitionNil
	}

	infos, err := def.Describe()
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", def.Name(), err)
	}

	if !def.Domain().Contains(start) {
		return "", &statemachine.StateError{Machine: def.Name(), State: start.String(), Err: statemachine.ErrUnknownState}
	}

	d := newDiagram(opts)
	d.initial(start.String())

	for _, info := range infos {
		d.state(info.State.String(), info.Handler, info.Bound)
	}

	return d.finish(), nil
}

type diagram struct {
	sb        strings.Builder
	opts      Options
	highlight map[string]bool
}

func newDiagram(opts Options) *diagram {
	if opts.Direction == "" {
		opts.Direction = "TD"
	}

	d := &diagram{opts: opts, highlight: make(map[string]bool)}
	for _, state := range opts.HighlightPath {
		d.highlight[state] = true
	}

	if opts.Fenced {
		d.sb.WriteString("```mermaid\n")
	}

	d.sb.WriteString("stateDiagram-v2\n")
	fmt.Fprintf(&d.sb, "    direction %s\n", opts.Direction)

	return d
}

func (d *diagram) initial(state string) {
	fmt.Fprintf(&d.sb, "    [*] --> %s\n", state)
}

func (d *diagram) state(state, handler string, bound bool) {
	if d.opts.ShowHandlers && handler != "" {
		fmt.Fprintf(&d.sb, "    %s: %s\\n(%s)\n", state, state, handler)
	}

	switch {
	case d.highlight[state]:
		fmt.Fprintf(&d.sb, "    class %s highlighted\n", state)
	case !bound:
		fmt.Fprintf(&d.sb, "    class %s unhandled\n", state)
	}
}

func (d *diagram) edge(from, to, label string) {
	fmt.Fprintf(&d.sb, "    %s --> %s: %s\n", from, to, label)
}

func (d *diagram) finish() string {
	d.sb.WriteString("\n")
	d.sb.WriteString("    classDef unhandled fill:#ffebee,stroke:#c62828,stroke-dasharray:5 5\n")
	d.sb.WriteString("    classDef highlighted fill:#fff9c4,stroke:#f57f17,stroke-width:3px\n")

	if d.opts.Fenced {
		d.sb.WriteString("```\n")
	}

	return d.sb.String()
}
