package statemachine

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Fallback modes for inputs no rule matches.
const (
	// OtherwiseNothing returns no output and leaves the state alone.
	OtherwiseNothing = ""
	// OtherwiseIgnore holds the state (Stay) and returns no output.
	OtherwiseIgnore = "ignore"
	// OtherwiseUnhandled fails the dispatch with ErrUnhandledState.
	OtherwiseUnhandled = "unhandled"
)

// Name is the state type of machines defined in configuration files.
type Name string

func (n Name) String() string {
	return string(n)
}

// ConfigLoader is an interface for loading configurations by name.
// Applications can implement this to provide embedded or custom config loading.
type ConfigLoader interface {
	LoadByName(name string) ([]byte, error)
	ListAvailable() []string
}

var (
	// defaultConfigLoader is the global config loader used by LoadConfig.
	// Applications can set this to provide embedded configs.
	defaultConfigLoader ConfigLoader
)

// SetConfigLoader sets the default config loader for name-based loading.
func SetConfigLoader(loader ConfigLoader) {
	defaultConfigLoader = loader
}

// Config declares a machine whose states, inputs and outputs are strings.
type Config struct {
	Name         string          `json:"name"         yaml:"name"`
	InitialState string          `json:"initialState" yaml:"initialState"`
	States       []string        `json:"states"       yaml:"states"`
	Handlers     []HandlerConfig `json:"handlers"     yaml:"handlers"`
}

// HandlerConfig declares one handler and the states it is bound to.
type HandlerConfig struct {
	Name      string       `json:"name,omitempty"      yaml:"name,omitempty"`
	States    []string     `json:"states"              yaml:"states,flow"`
	Rules     []RuleConfig `json:"rules,omitempty"     yaml:"rules,omitempty"`
	Otherwise string       `json:"otherwise,omitempty" yaml:"otherwise,omitempty"`
}

// RuleConfig maps an input to an output and an optional next state.
// A rule without Goto holds the current state; a rule without Output
// produces nothing.
type RuleConfig struct {
	Input  string `json:"input"            yaml:"input"`
	Output string `json:"output,omitempty" yaml:"output,omitempty"`
	Goto   string `json:"goto,omitempty"   yaml:"goto,omitempty"`
}

// LoadConfig loads a machine configuration by path or name.
// Supports two modes:
//   - Path mode: pass a file path (containing '/', '\', or ending in '.yaml'/'.yml')
//     Example: LoadConfig("testdata/turnstile.yaml")
//   - Name mode: pass a bare name to load via the registered ConfigLoader
//     Example: LoadConfig("turnstile")
func LoadConfig(pathOrName string) (*Config, error) {
	lower := strings.ToLower(pathOrName)
	isPath := strings.Contains(pathOrName, "/") ||
		strings.Contains(pathOrName, `\`) ||
		strings.HasSuffix(lower, ".yaml") ||
		strings.HasSuffix(lower, ".yml")

	if isPath {
		data, err := os.ReadFile(pathOrName) //nolint:gosec // Intentional path-based loading
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", pathOrName, err)
		}

		return LoadConfigFromBytes(data)
	}

	if defaultConfigLoader == nil {
		return nil, ErrNoConfigLoader
	}

	data, err := defaultConfigLoader.LoadByName(pathOrName)
	if err != nil {
		available := defaultConfigLoader.ListAvailable()

		return nil, fmt.Errorf("failed to load config %q (available: %v): %w", pathOrName, available, err)
	}

	return LoadConfigFromBytes(data)
}

// LoadConfigFromBytes loads a machine configuration from YAML bytes.
func LoadConfigFromBytes(data []byte) (*Config, error) {
	var config Config

	err := yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	err = config.Validate()
	if err != nil {
		return nil, err
	}

	return &config, nil
}

// Marshal encodes the configuration as YAML, in the layout LoadConfig reads.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2) //nolint:mnd // two-space indent

	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}

	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}

	return buf.Bytes(), nil
}

// LoadConfigFromFS loads a configuration from an embedded filesystem.
func LoadConfigFromFS(fsys fs.FS, path string) (*Config, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config from FS: %w", err)
	}

	return LoadConfigFromBytes(data)
}

// Validate checks the shape of the configuration. States named by handlers
// are not checked here: a handler bound to an undeclared state
// is rejected with ErrUnknownState when a machine is built.
func (c *Config) Validate() error {
	if c.Name == "" {
		return ErrConfigNameRequired
	}

	if len(c.States) == 0 {
		return ErrStateRequired
	}

	seen := make(map[string]bool, len(c.States))

	for _, state := range c.States {
		if state == "" {
			return ErrStateNameRequired
		}

		if seen[state] {
			return fmt.Errorf("%w: %s", ErrDuplicateStateName, state)
		}

		seen[state] = true
	}

	if c.InitialState == "" {
		return ErrInitialStateRequired
	}

	if !seen[c.InitialState] {
		return fmt.Errorf("%w: %s", ErrInitialStateNotFound, c.InitialState)
	}

	for i, handler := range c.Handlers {
		label := handler.label(i)

		if len(handler.States) == 0 {
			return fmt.Errorf("handler %s: %w", label, ErrHandlerStatesRequired)
		}

		switch handler.Otherwise {
		case OtherwiseNothing, OtherwiseIgnore, OtherwiseUnhandled:
		default:
			return fmt.Errorf("handler %s: %w: %q", label, ErrInvalidOtherwise, handler.Otherwise)
		}

		for _, rule := range handler.Rules {
			if rule.Input == "" {
				return fmt.Errorf("handler %s: %w", label, ErrRuleInputRequired)
			}

			if rule.Goto != "" && !seen[rule.Goto] {
				return fmt.Errorf("handler %s: %w: %s", label, ErrTransitionToNotFound, rule.Goto)
			}
		}
	}

	return nil
}

// HasState reports whether the configuration declares the given state.
func (c *Config) HasState(state string) bool {
	return slices.Contains(c.States, state)
}

// Inputs returns every distinct input named by a rule, in first-seen order.
func (c *Config) Inputs() []string {
	var inputs []string

	for _, handler := range c.Handlers {
		for _, rule := range handler.Rules {
			if !slices.Contains(inputs, rule.Input) {
				inputs = append(inputs, rule.Input)
			}
		}
	}

	return inputs
}

// Definition compiles the configuration into a machine definition. The
// configure functions run against the builder before it is finished, which
// is where loggers, hooks and the duplicate policy are set.
func (c *Config) Definition(configure ...func(*Builder[Name, string, string])) *Definition[Name, string, string] {
	states := make([]Name, len(c.States))
	for i, state := range c.States {
		states[i] = Name(state)
	}

	builder := NewBuilder[Name, string, string](c.Name, NewDomain(states...))

	for i, handler := range c.Handlers {
		bound := make([]Name, len(handler.States))
		for j, state := range handler.States {
			bound[j] = Name(state)
		}

		builder.WhenNamed(handler.label(i), handler.compile(), bound...)
	}

	for _, fn := range configure {
		fn(builder)
	}

	return builder.Build()
}

// NewMachine compiles the configuration and builds a machine at its initial state.
func (c *Config) NewMachine(configure ...func(*Builder[Name, string, string])) (*Machine[Name, string, string], error) {
	return c.Definition(configure...).New(Name(c.InitialState))
}

func (h HandlerConfig) label(position int) string {
	if h.Name != "" {
		return h.Name
	}

	return fmt.Sprintf("handler_%d", position)
}

// compile turns the rule list into a handler. The first rule matching the
// input wins.
func (h HandlerConfig) compile() Handler[Name, string, string] {
	rules := slices.Clone(h.Rules)
	otherwise := h.Otherwise

	return func(ctx context.Context, m *Machine[Name, string, string], input string) (Output[string], error) {
		for _, rule := range rules {
			if rule.Input != input {
				continue
			}

			if rule.Goto == "" {
				m.Stay(ctx, input)
			} else {
				m.Transition(Name(rule.Goto))
			}

			if rule.Output == "" {
				return NoOutput[string](), nil
			}

			return Emit(rule.Output), nil
		}

		switch otherwise {
		case OtherwiseIgnore:
			m.Stay(ctx, input)
		case OtherwiseUnhandled:
			return NoOutput[string](), WrapStateError(m.def.name, m.current.String(), ErrUnhandledState)
		}

		return NoOutput[string](), nil
	}
}
