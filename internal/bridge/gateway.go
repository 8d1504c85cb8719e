package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tjbridge/internal/native"
)

// Gateway forwards named calls to the native module. It is the only place
// that touches native.Module.Invoke, so linkage checks, call timeouts and
// call metrics live here.
type Gateway struct {
	mod         native.Module
	platform    string
	callTimeout time.Duration
	log         zerolog.Logger
}

// NewGateway wraps mod. A nil mod behaves like an unlinked module.
func NewGateway(mod native.Module, platform string, callTimeout time.Duration, logger zerolog.Logger) *Gateway {
	if mod == nil {
		mod = native.Unlinked(platform)
	}
	return &Gateway{
		mod:         mod,
		platform:    platform,
		callTimeout: callTimeout,
		log:         logger.With().Str("component", "gateway").Logger(),
	}
}

// Invoke performs method and decodes its result into out (nil discards).
func (g *Gateway) Invoke(ctx context.Context, method string, out any, args ...any) error {
	return g.call(ctx, "", method, out, args...)
}

// Fire performs method without surfacing native failures: only the linkage
// error is returned, anything else is logged.
func (g *Gateway) Fire(ctx context.Context, method string, args ...any) error {
	err := g.call(ctx, "", method, nil, args...)
	if err == nil {
		return nil
	}
	if native.IsNotLinked(err) {
		return err
	}
	g.log.Warn().Err(err).Str("method", method).Msg("fire-and-forget call failed")
	return nil
}

func (g *Gateway) call(ctx context.Context, opID, method string, out any, args ...any) error {
	if g.callTimeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, g.callTimeout)
			defer cancel()
		}
	}
	start := time.Now()
	raw, err := g.mod.Invoke(ctx, native.Call{ID: opID, Method: method, Args: args})
	bridgeCallDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		bridgeCallsTotal.WithLabelValues(method, outcomeOf(err)).Inc()
		g.log.Debug().Err(err).Str("method", method).Str("op", opID).Msg("native call failed")
		return err
	}
	bridgeCallsTotal.WithLabelValues(method, "ok").Inc()
	if out == nil || len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

func outcomeOf(err error) string {
	switch {
	case native.IsNotLinked(err):
		return "not_linked"
	case native.IsNativeError(err):
		return "native_error"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "canceled"
	}
	return "error"
}
