package bridge

import (
	"sync"

	"github.com/rs/zerolog"

	"tjbridge/internal/native"
)

// Router attaches one listener to the native module and hands each
// envelope to the subscriptions it belongs to.
//
// Matching, per subscription on the envelope's channel:
//   - both carry a correlation id: the ids must be equal;
//   - otherwise, if both name a placement: the names must be equal;
//   - otherwise the envelope is delivered (channel broadcast).
type Router struct {
	log zerolog.Logger
	buf int

	mu     sync.Mutex
	subs   map[uint64]*Subscription
	next   uint64
	stop   func()
	closed bool
}

// NewRouter starts listening on mod.
func NewRouter(mod native.Module, logger zerolog.Logger) *Router {
	r := &Router{
		log:  logger.With().Str("component", "router").Logger(),
		buf:  defaultSubBuffer,
		subs: make(map[uint64]*Subscription),
	}
	if mod != nil {
		r.stop = mod.Listen(r.dispatch)
	}
	return r
}

// Subscription receives the envelopes routed to it until removed.
type Subscription struct {
	r         *Router
	id        uint64
	channel   string
	opID      string
	placement string

	ch   chan native.Envelope
	done chan struct{}
	once sync.Once
}

// Subscribe registers interest in channel, optionally narrowed by a
// correlation id and a placement name.
func (r *Router) Subscribe(channel, opID, placement string) (*Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	r.next++
	s := &Subscription{
		r:         r,
		id:        r.next,
		channel:   channel,
		opID:      opID,
		placement: placement,
		ch:        make(chan native.Envelope, r.buf),
		done:      make(chan struct{}),
	}
	r.subs[s.id] = s
	subscriptionsActive.Inc()
	return s, nil
}

// Events delivers routed envelopes in arrival order.
func (s *Subscription) Events() <-chan native.Envelope { return s.ch }

// Done is closed once the subscription is removed.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Remove detaches the subscription. Safe to call more than once.
func (s *Subscription) Remove() {
	s.once.Do(func() {
		s.r.mu.Lock()
		delete(s.r.subs, s.id)
		s.r.mu.Unlock()
		close(s.done)
		subscriptionsActive.Dec()
	})
}

func (s *Subscription) matches(env native.Envelope) bool {
	if env.Channel != s.channel {
		return false
	}
	if s.opID != "" && env.ID != "" {
		return s.opID == env.ID
	}
	if s.placement != "" && env.Placement != "" {
		return s.placement == env.Placement
	}
	return true
}

func (r *Router) dispatch(env native.Envelope) {
	r.mu.Lock()
	var targets []*Subscription
	for _, s := range r.subs {
		if s.matches(env) {
			targets = append(targets, s)
		}
	}
	r.mu.Unlock()
	if len(targets) == 0 {
		envelopesTotal.WithLabelValues(env.Channel, "unrouted").Inc()
		r.log.Debug().Str("channel", env.Channel).Str("name", env.Name).
			Str("placement", env.Placement).Str("op", env.ID).Msg("envelope without subscriber")
		return
	}
	envelopesTotal.WithLabelValues(env.Channel, "routed").Inc()
	for _, s := range targets {
		select {
		case s.ch <- env:
		case <-s.done:
		}
	}
}

// Active reports the number of live subscriptions.
func (r *Router) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// Close detaches from the module and removes every subscription.
func (r *Router) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	stop := r.stop
	subs := make([]*Subscription, 0, len(r.subs))
	for _, s := range r.subs {
		subs = append(subs, s)
	}
	r.mu.Unlock()
	if stop != nil {
		stop()
	}
	for _, s := range subs {
		s.Remove()
	}
}
