package presence

// Transition is the pure state-transition rule. Given the previous presence
// of a record and the outcome of the latest fetch (value plus a found flag),
// it returns the next presence:
//
//   - a found value always yields Existing, regardless of history.
//   - a miss after Existing or Gone yields Gone, retaining the last value.
//   - a miss with no prior value yields Missing.
//
// The rule is total: every (previous, fetch) pair has a defined result.
func Transition[T any](prev Presence[T], value T, found bool) Presence[T] {
	if found {
		return NewExisting(value)
	}
	if last, ok := prev.Value(); ok {
		return NewGone(last)
	}
	return NewMissing[T]()
}

// Tracker folds a sequence of fetch results into a sequence of presences,
// one output per input, seeded at Missing. It holds only the previous
// presence between calls and performs no I/O.
//
// A Tracker is not safe for concurrent use: the transition is
// order-dependent, so callers delivering results from multiple goroutines
// must serialize access themselves.
type Tracker[T any] struct {
	prev Presence[T]
}

// NewTracker returns a tracker seeded at Missing.
func NewTracker[T any]() *Tracker[T] {
	return &Tracker[T]{prev: NewMissing[T]()}
}

// Observe applies one fetch result and returns the resulting presence.
// Outputs preserve the order in which results are observed.
func (t *Tracker[T]) Observe(value T, found bool) Presence[T] {
	t.prev = Transition(t.prev, value, found)
	return t.prev
}

// Last returns the most recently produced presence, or Missing if nothing
// has been observed yet.
func (t *Tracker[T]) Last() Presence[T] {
	return t.prev
}

// Reset returns the tracker to its initial Missing state, discarding any
// retained value. Use it when the caller restarts the input sequence for a
// different record.
func (t *Tracker[T]) Reset() {
	t.prev = NewMissing[T]()
}
