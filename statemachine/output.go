package statemachine

import "fmt"

// Output is the result of a single dispatch: either a value or nothing.
// Nothing means the handler had no observable output for that input in
// that state, which is different from a zero value.
type Output[O any] struct {
	value   O
	present bool
}

// Emit wraps a value produced by a handler.
func Emit[O any](value O) Output[O] {
	return Output[O]{value: value, present: true}
}

// NoOutput is the empty result.
func NoOutput[O any]() Output[O] {
	return Output[O]{}
}

// Get returns the value and whether one was produced.
func (o Output[O]) Get() (O, bool) {
	return o.value, o.present
}

// Present returns true if the handler produced a value.
func (o Output[O]) Present() bool {
	return o.present
}

// Empty returns true if the handler produced nothing.
func (o Output[O]) Empty() bool {
	return !o.present
}

// GetOrElse returns the value if present, or the provided default otherwise.
func (o Output[O]) GetOrElse(defaultValue O) O {
	if o.present {
		return o.value
	}

	return defaultValue
}

func (o Output[O]) String() string {
	if !o.present {
		return "NoOutput"
	}

	return fmt.Sprintf("Emit(%v)", o.value)
}
