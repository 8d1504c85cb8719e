package native

import (
	"context"
	"encoding/json"
	"sync"
)

// HandlerFunc answers one call on a Fake.
type HandlerFunc func(ctx context.Context, call Call) (any, error)

// Fake is an in-memory Module for tests. Calls are recorded; results come
// from per-method handlers (unhandled methods return null); Emit pushes
// envelopes to listeners synchronously.
type Fake struct {
	mu        sync.Mutex
	calls     []Call
	handlers  map[string]HandlerFunc
	listeners listenerSet
	closed    bool
}

// NewFake returns an empty Fake.
func NewFake() *Fake { return &Fake{handlers: make(map[string]HandlerFunc)} }

// Handle installs fn as the handler for method.
func (f *Fake) Handle(method string, fn HandlerFunc) {
	f.mu.Lock()
	f.handlers[method] = fn
	f.mu.Unlock()
}

// Return makes method answer v.
func (f *Fake) Return(method string, v any) {
	f.Handle(method, func(context.Context, Call) (any, error) { return v, nil })
}

// Fail makes method fail with err.
func (f *Fake) Fail(method string, err error) {
	f.Handle(method, func(context.Context, Call) (any, error) { return nil, err })
}

func (f *Fake) Invoke(ctx context.Context, call Call) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, errClosed
	}
	f.calls = append(f.calls, call)
	h := f.handlers[call.Method]
	f.mu.Unlock()
	if h == nil {
		return json.RawMessage("null"), nil
	}
	v, err := h(ctx, call)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (f *Fake) Listen(fn func(Envelope)) func() {
	f.mu.Lock()
	id := f.listeners.add(fn)
	f.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			f.listeners.remove(id)
			f.mu.Unlock()
		})
	}
}

// Emit delivers env to every current listener before returning.
func (f *Fake) Emit(env Envelope) {
	f.mu.Lock()
	fns := f.listeners.snapshot()
	f.mu.Unlock()
	for _, fn := range fns {
		fn(env)
	}
}

// Calls returns a copy of every recorded call.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsTo returns the recorded calls of one method.
func (f *Fake) CallsTo(method string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Listeners reports how many listeners are attached.
func (f *Fake) Listeners() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners.fns)
}

func (f *Fake) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
