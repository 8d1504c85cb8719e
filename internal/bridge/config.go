package bridge

import (
	"time"

	"github.com/rs/zerolog"

	"tjbridge/internal/native"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultOperationTimeout = 5 * time.Minute
	defaultSubBuffer        = 16
)

// Config encapsulates the client tunables.
type Config struct {
	// Platform family (android or ios). Selects the linkage hint and
	// platform-only behavior such as advertising id opt-out.
	Platform string
	// CallTimeout bounds each native call when the caller's context has no
	// deadline. Zero or negative leaves calls bounded by the caller only.
	CallTimeout time.Duration
	// OperationTimeout bounds how long a request, show or connect-warning
	// subscription waits for its terminal event. Zero selects the default;
	// negative waits forever.
	OperationTimeout time.Duration
	Logger           *zerolog.Logger
	Publisher        EventPublisher
}

func (c Config) withDefaults() Config {
	if c.Platform == "" {
		c.Platform = native.PlatformAndroid
	}
	if c.OperationTimeout == 0 {
		c.OperationTimeout = defaultOperationTimeout
	}
	if c.Publisher == nil {
		c.Publisher = noopPublisher{}
	}
	return c
}

func (c Config) logger() zerolog.Logger {
	if c.Logger != nil {
		return *c.Logger
	}
	return zerolog.Nop()
}
