package bridge

import (
	"context"
	"sync"
	"testing"
	"time"

	"tjbridge/internal/native"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}

// waitFor polls cond until it holds or a second passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func newTestClient(t *testing.T, cfg Config) (*Client, *native.Fake) {
	t.Helper()
	f := native.NewFake()
	c := New(f, cfg)
	t.Cleanup(func() { _ = c.Close() })
	return c, f
}

// emitOnCall makes method emit envs, stamped with the call's correlation id
// and placement, before answering.
func emitOnCall(f *native.Fake, method string, envs ...native.Envelope) {
	f.Handle(method, func(_ context.Context, call native.Call) (any, error) {
		for _, e := range envs {
			if e.ID == "" {
				e.ID = call.ID
			}
			if e.Placement == "" && e.Channel == native.ChannelPlacement && len(call.Args) > 0 {
				e.Placement, _ = call.Args[0].(string)
			}
			f.Emit(e)
		}
		return nil, nil
	})
}

func placementEnv(name Notification) native.Envelope {
	return native.Envelope{Channel: native.ChannelPlacement, Name: string(name)}
}

// recorder keeps published events for assertions.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func newRecorder() *recorder { return &recorder{} }

func (r *recorder) Publish(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Named returns the recorded events called name.
func (r *recorder) Named(name string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}
