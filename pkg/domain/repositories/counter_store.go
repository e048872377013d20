package repositories

import "context"

// CounterKey identifies one sequence: a document prefix within a YYMM period
type CounterKey struct {
	Prefix string
	Period string
}

// String renders the key as PREFIX-YYMM
func (k CounterKey) String() string {
	return k.Prefix + "-" + k.Period
}

// CounterStore is the storage backend of the reference sequencer.
// Increment must be atomic per key; counters never decrease except by Reset
type CounterStore interface {
	// Increment raises the counter by one and returns the new value
	Increment(ctx context.Context, key CounterKey) (int64, error)
	// RaiseTo sets the counter to max(current, value)
	RaiseTo(ctx context.Context, key CounterKey, value int64) error
	// Current returns the highest issued value, zero when unused
	Current(ctx context.Context, key CounterKey) (int64, error)
	// Reset sets the counter back to zero
	Reset(ctx context.Context, key CounterKey) error
}
