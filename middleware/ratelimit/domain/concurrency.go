package domain

import "context"

// SlotPool is a resource with finite capacity (in-flight gated actions).
//
// Acquire blocks until a slot is free or ctx ends. On success it returns a
// release func that must be called exactly once.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
}
