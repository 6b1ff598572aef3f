package statemachine

import "slices"

// DuplicatePolicy decides what happens when two bindings claim the same state.
type DuplicatePolicy int

const (
	// RejectDuplicates fails construction with ErrDuplicateBinding.
	RejectDuplicates DuplicatePolicy = iota
	// LastBindingWins lets the binding registered last take the state.
	LastBindingWins
)

func (p DuplicatePolicy) String() string {
	switch p {
	case RejectDuplicates:
		return "reject"
	case LastBindingWins:
		return "last_wins"
	default:
		return "unknown"
	}
}

// Definition describes a machine type: its state domain, the handlers bound
// to those states and the hooks shared by every machine built from it.
// A Definition is immutable; each machine built from it gets its own
// dispatch table.
type Definition[S State, I, O any] struct {
	name       string
	domain     Domain[S]
	bindings   []Binding[S, I, O]
	unhandled  Handler[S, I, O]
	stay       StayHook[S, I, O]
	duplicates DuplicatePolicy
	logger     Logger
}

// Name returns the machine type's name.
func (d *Definition[S, I, O]) Name() string {
	return d.name
}

// Domain returns the machine type's state domain.
func (d *Definition[S, I, O]) Domain() Domain[S] {
	return d.domain
}

// Bindings returns the bindings in registration order.
func (d *Definition[S, I, O]) Bindings() []Binding[S, I, O] {
	return slices.Clone(d.bindings)
}

// DuplicatePolicy returns how conflicting bindings are treated.
func (d *Definition[S, I, O]) DuplicatePolicy() DuplicatePolicy {
	return d.duplicates
}

// New builds a machine of this type starting in state start.
func (d *Definition[S, I, O]) New(start S) (*Machine[S, I, O], error) {
	return New(d, start)
}

// StateInfo describes how a single state is dispatched.
type StateInfo[S State] struct {
	State   S
	Handler string
	Bound   bool
}

// Describe resolves the dispatch table without building a machine and
// reports, for every state of the domain, which handler answers for it.
func (d *Definition[S, I, O]) Describe() ([]StateInfo[S], error) {
	table, err := buildTable(d)
	if err != nil {
		return nil, err
	}

	infos := make([]StateInfo[S], 0, d.domain.Len())
	for state := range d.domain.All() {
		ent := table[state]
		infos = append(infos, StateInfo[S]{
			State:   state,
			Handler: ent.name,
			Bound:   ent.bound,
		})
	}

	return infos, nil
}

// Builder provides a fluent API for defining machine types.
type Builder[S State, I, O any] struct {
	def *Definition[S, I, O]
}

// NewBuilder creates a new definition builder for the given domain.
func NewBuilder[S State, I, O any](name string, domain Domain[S]) *Builder[S, I, O] {
	return &Builder[S, I, O]{
		def: &Definition[S, I, O]{
			name:       name,
			domain:     domain,
			duplicates: RejectDuplicates,
		},
	}
}

// When binds handler to the given states.
func (b *Builder[S, I, O]) When(handler Handler[S, I, O], states ...S) *Builder[S, I, O] {
	return b.Add(Bind(handler, states...))
}

// WhenNamed binds a named handler to the given states.
func (b *Builder[S, I, O]) WhenNamed(name string, handler Handler[S, I, O], states ...S) *Builder[S, I, O] {
	return b.Add(Bind(handler, states...).Named(name))
}

// Add registers previously created bindings, in order.
func (b *Builder[S, I, O]) Add(bindings ...Binding[S, I, O]) *Builder[S, I, O] {
	b.def.bindings = append(b.def.bindings, bindings...)

	return b
}

// OnUnhandled replaces the default handler used for every state without an
// explicit binding. Binding a handler to a single state is the way to
// override the default for that state only.
func (b *Builder[S, I, O]) OnUnhandled(handler Handler[S, I, O]) *Builder[S, I, O] {
	b.def.unhandled = handler

	return b
}

// OnStay sets a hook invoked whenever a handler holds the current state.
func (b *Builder[S, I, O]) OnStay(hook StayHook[S, I, O]) *Builder[S, I, O] {
	b.def.stay = hook

	return b
}

// LastBindingWins lets later bindings silently take over states already
// claimed by earlier ones instead of failing construction.
func (b *Builder[S, I, O]) LastBindingWins() *Builder[S, I, O] {
	b.def.duplicates = LastBindingWins

	return b
}

// WithLogger sets the logger shared by machines of this type.
func (b *Builder[S, I, O]) WithLogger(logger Logger) *Builder[S, I, O] {
	b.def.logger = logger

	return b
}

// Build returns the finished definition. The builder can keep being used;
// later changes do not affect definitions already built.
func (b *Builder[S, I, O]) Build() *Definition[S, I, O] {
	def := *b.def
	def.bindings = slices.Clone(b.def.bindings)

	return &def
}
