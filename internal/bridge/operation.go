package bridge

import (
	"context"
	"sync"
	"time"

	"tjbridge/internal/native"
)

// OperationKind names what an Operation waits for.
type OperationKind string

const (
	KindRequest        OperationKind = "request"
	KindShow           OperationKind = "show"
	KindConnectWarning OperationKind = "connect_warning"
)

// step is how an operation reacts to one routed envelope. A zero step means
// the envelope is not one the operation cares about.
type step struct {
	note     Notification
	terminal bool
	deliver  func()
}

type stepFunc func(ctx context.Context, env native.Envelope) step

// Operation is one pending event-driven exchange with the native side:
// a placement request, a placement show or the connect warning watch. It
// owns its subscription and releases it on the terminal event, timeout,
// cancellation or client close, whichever comes first.
type Operation struct {
	id        string
	kind      OperationKind
	placement string

	ctx    context.Context
	cancel context.CancelFunc
	parent context.Context
	done   chan struct{}

	mu       sync.Mutex
	seen     []Notification
	last     Notification
	err      error
	abortErr error
}

// ID is the correlation id sent with the initiating call.
func (o *Operation) ID() string { return o.id }

func (o *Operation) Kind() OperationKind { return o.kind }

// Placement is the placement name, empty for connect operations.
func (o *Operation) Placement() string { return o.placement }

// Done is closed when the operation has finished.
func (o *Operation) Done() <-chan struct{} { return o.done }

// Wait blocks until the operation finishes or ctx is done. Giving up on
// ctx does not cancel the operation.
func (o *Operation) Wait(ctx context.Context) (Notification, error) {
	select {
	case <-o.done:
		return o.Result()
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Result returns the terminal notification, or the error that ended the
// operation. Before Done it returns ("", nil).
func (o *Operation) Result() (Notification, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last, o.err
}

// Seen lists every notification delivered so far, terminal included.
func (o *Operation) Seen() []Notification {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Notification, len(o.seen))
	copy(out, o.seen)
	return out
}

// Cancel stops waiting and releases the subscription.
func (o *Operation) Cancel() { o.cancel() }

func (o *Operation) abort(err error) {
	o.mu.Lock()
	if o.abortErr == nil {
		o.abortErr = err
	}
	o.mu.Unlock()
	o.cancel()
}

func (o *Operation) stopErr() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch {
	case o.abortErr != nil:
		return o.abortErr
	case o.parent.Err() != nil:
		return ErrClosed
	}
	return ErrCanceled
}

func (o *Operation) finish(last Notification, err error) {
	o.mu.Lock()
	o.last, o.err = last, err
	o.mu.Unlock()
	outcome := "event"
	switch {
	case err == nil:
	case err == ErrOperationTimeout:
		outcome = "timeout"
	case err == ErrCanceled:
		outcome = "canceled"
	case err == ErrClosed:
		outcome = "closed"
	default:
		outcome = "failed"
	}
	operationsTotal.WithLabelValues(string(o.kind), outcome).Inc()
}

func (o *Operation) run(sub *Subscription, timeout time.Duration, fn stepFunc, onTimeout func()) {
	defer close(o.done)
	defer o.cancel()
	defer sub.Remove()
	var timeoutC <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timeoutC = t.C
	}
	for {
		select {
		case env := <-sub.Events():
			st := fn(o.ctx, env)
			if st.note == "" {
				continue
			}
			if st.terminal {
				sub.Remove()
			}
			o.mu.Lock()
			o.seen = append(o.seen, st.note)
			o.mu.Unlock()
			if st.deliver != nil {
				st.deliver()
			}
			if st.terminal {
				o.finish(st.note, nil)
				return
			}
		case <-timeoutC:
			sub.Remove()
			o.finish("", ErrOperationTimeout)
			if onTimeout != nil {
				onTimeout()
			}
			return
		case <-o.ctx.Done():
			o.finish("", o.stopErr())
			return
		case <-sub.Done():
			o.finish("", ErrClosed)
			return
		}
	}
}
