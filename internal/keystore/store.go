// Package keystore persists the small pieces of app state the session
// bootstrap needs across restarts: the SDK key and the user id.
package keystore

import (
	"context"
	"fmt"
	"strings"

	"tjbridge/internal/common/fsutil"
)

// Well-known keys.
const (
	KeySDKKey = "sdkKey"
	KeyUserID = "userId"
)

// Store is a string key/value store. Get reports ok=false for a missing key.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	// Kind is memory, sqlite or redis. Empty means memory.
	Kind string
	// Path is the sqlite database file; defaults to ~/.tjbridge/keystore.db.
	Path string
	// RedisURL is a redis:// URL or host:port.
	RedisURL string
	// Prefix namespaces redis keys.
	Prefix string
}

// Open constructs the backend named by opts.Kind.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Kind)) {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		p, err := fsutil.StatePath(opts.Path, "keystore.db")
		if err != nil {
			return nil, err
		}
		if err := fsutil.EnsureParentDir(p); err != nil {
			return nil, err
		}
		return OpenSQLite(ctx, p)
	case "redis":
		return OpenRedis(ctx, opts.RedisURL, opts.Prefix)
	}
	return nil, fmt.Errorf("unknown keystore %q", opts.Kind)
}
