package hooks

import (
	"context"
	"sync"
)

// Callbacks observe a mutation's outcome. Every field is optional.
type Callbacks[In, Out any] struct {
	OnSuccess func(ctx context.Context, data Out, variables In)
	OnError   func(ctx context.Context, err error, variables In)
	OnSettled func(ctx context.Context, data Out, err error, variables In)
}

// Mutation runs one kind of write and tracks the state of its latest call.
// Mutations never retry.
type Mutation[In, Out any] struct {
	fn        func(ctx context.Context, in In) (Out, error)
	callbacks Callbacks[In, Out]

	mu    sync.RWMutex
	seq   uint64
	state MutationState[In, Out]
}

// NewMutation wraps fn with lifecycle tracking.
func NewMutation[In, Out any](fn func(ctx context.Context, in In) (Out, error)) *Mutation[In, Out] {
	return &Mutation[In, Out]{
		fn:    fn,
		state: MutationState[In, Out]{Status: MutationIdle},
	}
}

// WithCallbacks sets the lifecycle callbacks and returns m.
func (m *Mutation[In, Out]) WithCallbacks(cb Callbacks[In, Out]) *Mutation[In, Out] {
	m.mu.Lock()
	m.callbacks = cb
	m.mu.Unlock()
	return m
}

// Mutate runs the write. The state moves to pending, then to success or
// error; when calls overlap the state follows the latest one.
func (m *Mutation[In, Out]) Mutate(ctx context.Context, in In) (Out, error) {
	m.mu.Lock()
	m.seq++
	seq := m.seq
	cb := m.callbacks
	m.state = MutationState[In, Out]{Status: MutationPending, Variables: in}
	m.mu.Unlock()

	out, err := m.fn(ctx, in)

	m.mu.Lock()
	if seq == m.seq {
		if err != nil {
			m.state = MutationState[In, Out]{Status: MutationError, Variables: in, Err: err}
		} else {
			m.state = MutationState[In, Out]{Status: MutationSuccess, Variables: in, Data: out}
		}
	}
	m.mu.Unlock()

	if err != nil {
		if cb.OnError != nil {
			cb.OnError(ctx, err, in)
		}
	} else if cb.OnSuccess != nil {
		cb.OnSuccess(ctx, out, in)
	}
	if cb.OnSettled != nil {
		cb.OnSettled(ctx, out, err, in)
	}
	return out, err
}

// State returns the state of the latest call.
func (m *Mutation[In, Out]) State() MutationState[In, Out] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Reset returns the mutation to idle.
func (m *Mutation[In, Out]) Reset() {
	m.mu.Lock()
	m.seq++
	m.state = MutationState[In, Out]{Status: MutationIdle}
	m.mu.Unlock()
}
