package visualizer

// Options configures the visualization output.
type Options struct {
	// ShowOutputs appends the produced output to each edge label
	ShowOutputs bool

	// ShowHandlers annotates each state with the handler bound to it
	ShowHandlers bool

	// Direction controls diagram flow: "TD" (top-down) or "LR" (left-right)
	Direction string

	// HighlightPath highlights a specific state path through the diagram
	HighlightPath []string

	// Fenced wraps the diagram in a ```mermaid markdown block
	Fenced bool
}

// DefaultOptions returns sensible defaults for visualization.
func DefaultOptions() Options {
	return Options{
		ShowOutputs:  true,
		ShowHandlers: false,
		Direction:    "TD",
		Fenced:       true,
	}
}

// WithShowOutputs enables/disables edge outputs.
func (o Options) WithShowOutputs(show bool) Options {
	o.ShowOutputs = show

	return o
}

// WithShowHandlers enables/disables handler annotations.
func (o Options) WithShowHandlers(show bool) Options {
	o.ShowHandlers = show

	return o
}

// WithDirection sets the diagram direction.
func (o Options) WithDirection(direction string) Options {
	o.Direction = direction

	return o
}

// WithHighlightPath sets states to highlight.
func (o Options) WithHighlightPath(path []string) Options {
	o.HighlightPath = path

	return o
}

// WithFenced enables/disables the markdown fence.
func (o Options) WithFenced(fenced bool) Options {
	o.Fenced = fenced

	return o
}
