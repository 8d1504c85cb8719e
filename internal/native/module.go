// Package native is the boundary to the vendor SDK. The SDK itself is an
// opaque component reached only through a call surface and an event stream;
// this package defines that boundary (Module) and the transports that
// implement it:
//
//   - HTTPModule: JSON calls and an SSE event stream to a native host.
//   - Spawn: launches a native host process, then talks HTTP to it.
//   - Fake: scriptable in-memory module used by tests.
//   - Unlinked: every call fails with the linkage error.
package native

import (
	"context"
	"encoding/json"
)

// Event channels the native layer emits on.
const (
	ChannelConnection = "Tapjoy"
	ChannelPlacement  = "TapjoyPlacement"
)

// Envelope is one tagged event delivered by the native layer.
type Envelope struct {
	Channel   string `json:"channel"`
	Name      string `json:"name"`
	Error     string `json:"error,omitempty"`
	Placement string `json:"placement,omitempty"`
	// ID echoes the correlation id of the call that caused the event, when
	// the native layer supports it.
	ID string `json:"id,omitempty"`
}

// Call is a single invocation of the native command surface. Args are sent
// positionally and must keep the native method's argument order.
type Call struct {
	ID     string
	Method string
	Args   []any
}

// Module is the native command surface plus its event stream.
type Module interface {
	// Invoke performs the call and returns the raw JSON result ("null" for
	// methods without a result).
	Invoke(ctx context.Context, call Call) (json.RawMessage, error)
	// Listen registers fn for every envelope on every channel. The returned
	// func removes the listener.
	Listen(fn func(Envelope)) (stop func())
	// Close releases transport resources. Calls after Close fail.
	Close() error
}

// listenerSet is the listener bookkeeping shared by the transports.
type listenerSet struct {
	next int
	fns  map[int]func(Envelope)
}

func (s *listenerSet) add(fn func(Envelope)) int {
	if s.fns == nil {
		s.fns = make(map[int]func(Envelope))
	}
	s.next++
	s.fns[s.next] = fn
	return s.next
}

func (s *listenerSet) remove(id int) { delete(s.fns, id) }

func (s *listenerSet) snapshot() []func(Envelope) {
	out := make([]func(Envelope), 0, len(s.fns))
	for _, fn := range s.fns {
		out = append(out, fn)
	}
	return out
}
