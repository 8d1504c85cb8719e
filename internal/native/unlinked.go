package native

import (
	"context"
	"encoding/json"
)

// unlinkedModule stands in for a missing native module. It never reaches
// the SDK; every call fails fast with the linkage error.
type unlinkedModule struct{ err error }

// Unlinked returns a Module whose calls all fail with the linkage error for
// the given platform family.
func Unlinked(platform string) Module { return unlinkedModule{err: NewLinkError(platform)} }

func (m unlinkedModule) Invoke(ctx context.Context, call Call) (json.RawMessage, error) {
	return nil, m.err
}

// Listen accepts the listener but nothing is ever emitted.
func (m unlinkedModule) Listen(fn func(Envelope)) func() { return func() {} }

func (m unlinkedModule) Close() error { return nil }
