package statemachine

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errConfigNotFound = errors.New("config not found")

type mapLoader map[string][]byte

func (l mapLoader) LoadByName(name string) ([]byte, error) {
	data, ok := l[name]
	if !ok {
		return nil, errConfigNotFound
	}

	return data, nil
}

func (l mapLoader) ListAvailable() []string {
	names := make([]string, 0, len(l))
	for name := range l {
		names = append(names, name)
	}

	return names
}

func TestConfigTurnstile(t *testing.T) {
	t.Parallel()

	config, err := LoadConfig("testdata/turnstile.yaml")
	require.NoError(t, err)

	assert.Equal(t, "turnstile", config.Name)
	assert.Equal(t, []string{"COIN", "PUSH"}, config.Inputs())
	assert.True(t, config.HasState("UNLOCKED"))

	m, err := config.NewMachine()
	require.NoError(t, err)
	assert.Equal(t, Name("LOCKED"), m.CurrentState())

	steps := []struct {
		input  string
		output string
		state  Name
	}{
		{"PUSH", "ALARM", "LOCKED"},
		{"COIN", "UNLOCK", "UNLOCKED"},
		{"COIN", "THANKS", "UNLOCKED"},
		{"PUSH", "LOCK", "LOCKED"},
	}

	for _, step := range steps {
		out, err := m.Dispatch(t.Context(), step.input)
		require.NoError(t, err)
		assert.Equal(t, step.output, out.GetOrElse(""), "input %s", step.input)
		assert.Equal(t, step.state, m.CurrentState(), "input %s", step.input)
	}
}

func TestConfigWindowOtherwiseUnhandled(t *testing.T) {
	t.Parallel()

	config, err := LoadConfig("testdata/window.yaml")
	require.NoError(t, err)

	m, err := config.NewMachine()
	require.NoError(t, err)

	out, err := m.Dispatch(t.Context(), "PRESS")
	require.NoError(t, err)
	assert.Equal(t, "CW", out.GetOrElse(""))

	out, err = m.Dispatch(t.Context(), "PRESS")
	require.NoError(t, err)
	assert.Equal(t, "CCW", out.GetOrElse(""))
	assert.Equal(t, Name("CLOSE"), m.CurrentState())

	_, err = m.Dispatch(t.Context(), "KICK")
	require.ErrorIs(t, err, ErrUnhandledState)
	assert.Equal(t, Name("CLOSE"), m.CurrentState())
}

func TestConfigUnknownBindingFailsOnBuild(t *testing.T) {
	t.Parallel()

	config, err := LoadConfig("testdata/unknown_binding.yaml")
	require.NoError(t, err, "binding targets are checked when the machine is built")

	_, err = config.NewMachine()
	require.ErrorIs(t, err, ErrUnknownState)
	assert.Contains(t, err.Error(), "SLEEPING")
}

func TestConfigPartial(t *testing.T) {
	t.Parallel()

	config, err := LoadConfig("testdata/partial.yaml")
	require.NoError(t, err)

	var held []string

	m, err := config.NewMachine(func(b *Builder[Name, string, string]) {
		b.OnStay(func(_ context.Context, _ *Machine[Name, string, string], input string) {
			held = append(held, input)
		})
	})
	require.NoError(t, err)

	out, err := m.Dispatch(t.Context(), "OPEN")
	require.NoError(t, err)
	assert.Equal(t, "OPENED", out.GetOrElse(""), "first matching rule wins")

	out, err = m.Dispatch(t.Context(), "KNOCK")
	require.NoError(t, err)
	assert.True(t, out.Empty())
	assert.Equal(t, []string{"KNOCK"}, held, "otherwise: ignore holds the state")

	_, err = m.Dispatch(t.Context(), "CLOSE")
	require.NoError(t, err)

	out, err = m.Dispatch(t.Context(), "LOCK")
	require.NoError(t, err)
	assert.True(t, out.Empty())
	assert.Equal(t, Name("LOCKED"), m.CurrentState())

	_, err = m.Dispatch(t.Context(), "UNLOCK")
	require.ErrorIs(t, err, ErrUnhandledState)

	infos, err := m.Definition().Describe()
	require.NoError(t, err)
	require.Len(t, infos, 4)
	assert.False(t, infos[2].Bound)
	assert.False(t, infos[3].Bound)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := func() Config {
		return Config{
			Name:         "m",
			InitialState: "A",
			States:       []string{"A", "B"},
			Handlers: []HandlerConfig{
				{States: []string{"A"}, Rules: []RuleConfig{{Input: "x", Goto: "B"}}},
			},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		err    error
	}{
		{"valid", func(*Config) {}, nil},
		{"missing name", func(c *Config) { c.Name = "" }, ErrConfigNameRequired},
		{"no states", func(c *Config) { c.States = nil }, ErrStateRequired},
		{"empty state name", func(c *Config) { c.States = append(c.States, "") }, ErrStateNameRequired},
		{"duplicate state", func(c *Config) { c.States = append(c.States, "A") }, ErrDuplicateStateName},
		{"missing initial", func(c *Config) { c.InitialState = "" }, ErrInitialStateRequired},
		{"unknown initial", func(c *Config) { c.InitialState = "Z" }, ErrInitialStateNotFound},
		{"unbound handler", func(c *Config) { c.Handlers[0].States = nil }, ErrHandlerStatesRequired},
		{"empty input", func(c *Config) { c.Handlers[0].Rules[0].Input = "" }, ErrRuleInputRequired},
		{"unknown goto", func(c *Config) { c.Handlers[0].Rules[0].Goto = "Z" }, ErrTransitionToNotFound},
		{"bad otherwise", func(c *Config) { c.Handlers[0].Otherwise = "explode" }, ErrInvalidOtherwise},
		{"unknown binding state passes", func(c *Config) { c.Handlers[0].States = []string{"Z"} }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			config := valid()
			tt.mutate(&config)

			err := config.Validate()
			if tt.err == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestLoadConfigByName(t *testing.T) { //nolint:paralleltest // Test modifies the global config loader
	turnstile := []byte(`
name: named
initialState: A
states: [A]
`)

	SetConfigLoader(nil)

	_, err := LoadConfig("named")
	require.ErrorIs(t, err, ErrNoConfigLoader)

	SetConfigLoader(mapLoader{"named": turnstile})
	t.Cleanup(func() { SetConfigLoader(nil) })

	config, err := LoadConfig("named")
	require.NoError(t, err)
	assert.Equal(t, "named", config.Name)

	_, err = LoadConfig("missing")
	require.ErrorIs(t, err, errConfigNotFound)
}

func TestLoadConfigFromFS(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"machines/toggle.yaml": {Data: []byte(`
name: toggle
initialState: IDLE
states: [IDLE, ACTIVE]
handlers:
  - states: [IDLE]
    rules: [{input: FLIP, goto: ACTIVE}]
  - states: [ACTIVE]
    rules: [{input: FLIP, goto: IDLE}]
`)},
		"machines/broken.yaml": {Data: []byte("name: [")},
	}

	config, err := LoadConfigFromFS(fsys, "machines/toggle.yaml")
	require.NoError(t, err)

	def := config.Definition()
	assert.Equal(t, "handler_0", def.Bindings()[0].Name())

	_, err = LoadConfigFromFS(fsys, "machines/broken.yaml")
	require.Error(t, err)

	_, err = LoadConfigFromFS(fsys, "machines/missing.yaml")
	require.Error(t, err)
}

func TestConfigMarshal(t *testing.T) {
	t.Parallel()

	config, err := LoadConfig("testdata/partial.yaml")
	require.NoError(t, err)

	data, err := config.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), "states: [CLOSED]")
	assert.Contains(t, string(data), "otherwise: ignore")
	assert.NotContains(t, string(data), "goto: \"\"")

	reloaded, err := LoadConfigFromBytes(data)
	require.NoError(t, err)
	assert.Equal(t, config, reloaded)
}
