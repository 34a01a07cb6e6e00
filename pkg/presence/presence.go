// Package presence classifies the lifecycle of an observed record into
// three states: never seen, currently present, and previously present.
package presence

// Kind identifies one of the three presence states.
type Kind int

const (
	// Missing means the record has never been observed to exist.
	Missing Kind = iota
	// Existing means the record currently exists.
	Existing
	// Gone means the record existed at some point but no longer does.
	Gone
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case Missing:
		return "missing"
	case Existing:
		return "existing"
	case Gone:
		return "gone"
	default:
		return "unknown"
	}
}

// Presence is an immutable classification of a single record, together with
// the most recently fetched value for the Existing and Gone states.
// The zero value is Missing.
type Presence[T any] struct {
	kind  Kind
	value T
}

// NewMissing returns the Missing presence.
func NewMissing[T any]() Presence[T] {
	return Presence[T]{kind: Missing}
}

// NewExisting returns an Existing presence carrying the current value.
func NewExisting[T any](value T) Presence[T] {
	return Presence[T]{kind: Existing, value: value}
}

// NewGone returns a Gone presence carrying the last value observed before
// the record disappeared.
func NewGone[T any](value T) Presence[T] {
	return Presence[T]{kind: Gone, value: value}
}

// Kind returns the presence state.
func (p Presence[T]) Kind() Kind {
	return p.kind
}

// Value returns the retained payload. The second return is false only for
// Missing, which carries no value.
func (p Presence[T]) Value() (T, bool) {
	if p.kind == Missing {
		var zero T
		return zero, false
	}
	return p.value, true
}

// Exists reports whether the record currently exists. It is true only for
// Existing; a Gone record retains its last value but does not exist.
func (p Presence[T]) Exists() bool {
	return p.kind == Existing
}

// Equal reports whether two presences have the same kind and payload.
func Equal[T comparable](a, b Presence[T]) bool {
	return a.kind == b.kind && a.value == b.value
}
