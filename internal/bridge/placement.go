package bridge

import (
	"context"
	"sort"
	"strings"
	"sync"

	"tjbridge/internal/native"
)

// Notification is a placement lifecycle event name as the SDK emits it.
type Notification string

const (
	RequestDidSucceed   Notification = "requestDidSucceed"
	RequestDidFail      Notification = "requestDidFail"
	ContentIsReady      Notification = "contentIsReady"
	ContentDidAppear    Notification = "contentDidAppear"
	ContentDidDisappear Notification = "contentDidDisappear"
)

// State is where a placement object is in its request/show lifecycle.
type State string

const (
	StateCreated          State = "created"
	StateRequesting       State = "requesting"
	StateRequestSucceeded State = "request_succeeded"
	StateContentReady     State = "content_ready"
	StateRequestFailed    State = "request_failed"
	StateShowing          State = "showing"
	StateAppeared         State = "appeared"
	StateDismissed        State = "dismissed"
)

// Placement is a handle on one named native placement. Several handles may
// share a name; the native side is asked to create each of them.
type Placement struct {
	name string
	c    *Client

	mu        sync.Mutex
	state     State
	err       string
	hasErr    bool
	pending   string
	observers map[Notification]map[int]func(*Placement)
	nextObs   int
}

// NewPlacement asks the SDK to create the placement and returns its handle.
// Only the linkage error is surfaced; other native failures are logged.
func (c *Client) NewPlacement(ctx context.Context, name string) (*Placement, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidPlacement
	}
	if c.isClosed() {
		return nil, ErrClosed
	}
	if err := c.gw.Fire(ctx, "createPlacement", name); err != nil {
		return nil, err
	}
	p := &Placement{
		name:      name,
		c:         c,
		state:     StateCreated,
		observers: make(map[Notification]map[int]func(*Placement)),
	}
	c.track(p)
	c.publish(Event{Name: EventPlacementCreated, Placement: name})
	return p, nil
}

func (p *Placement) Name() string { return p.name }

func (p *Placement) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// LastError returns the error recorded by the latest failed request.
func (p *Placement) LastError() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err, p.hasErr
}

// PendingOperation returns the id of the request or show in flight.
func (p *Placement) PendingOperation() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending
}

// On registers fn for notification n. Observers run on the operation's
// goroutine, in registration order, and must not block. The returned func
// unregisters fn.
func (p *Placement) On(n Notification, fn func(*Placement)) (remove func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.observers[n] == nil {
		p.observers[n] = make(map[int]func(*Placement))
	}
	p.nextObs++
	id := p.nextObs
	p.observers[n][id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.observers[n], id)
			p.mu.Unlock()
		})
	}
}

func (p *Placement) notify(n Notification, opID string) {
	p.mu.Lock()
	ids := make([]int, 0, len(p.observers[n]))
	for id := range p.observers[n] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(*Placement), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, p.observers[n][id])
	}
	errMsg, hasErr := p.err, p.hasErr
	p.mu.Unlock()

	fields := map[string]any{}
	if n == RequestDidFail && hasErr {
		fields["error"] = errMsg
	}
	p.c.publish(Event{Name: string(n), Placement: p.name, OperationID: opID, Fields: fields})
	for _, fn := range fns {
		fn(p)
	}
}

func (p *Placement) set(state State, pending string) {
	p.mu.Lock()
	p.state = state
	p.pending = pending
	p.mu.Unlock()
}

// RequestContent asks the SDK to load content. The returned operation
// ends on requestDidFail, on contentIsReady, or on requestDidSucceed when
// the SDK reports no content available.
func (p *Placement) RequestContent(ctx context.Context) (*Operation, error) {
	op, err := p.c.startOperation(KindRequest, native.ChannelPlacement, p.name, p.requestStep, EventRequestTimeout)
	if err != nil {
		return nil, err
	}
	p.set(StateRequesting, op.id)
	if err := p.c.gw.call(ctx, op.id, "requestPlacement", nil, p.name); err != nil {
		op.abort(err)
		p.set(StateRequestFailed, "")
		return nil, err
	}
	return op, nil
}

func (p *Placement) requestStep(o *Operation) stepFunc {
	return func(ctx context.Context, env native.Envelope) step {
		n := Notification(env.Name)
		switch n {
		case RequestDidSucceed:
			avail, err := p.IsContentAvailable(ctx)
			if err != nil {
				p.c.log.Warn().Err(err).Str("placement", p.name).Msg("content availability query failed")
			}
			terminal := !avail
			return step{note: n, terminal: terminal, deliver: func() {
				pending := o.id
				if terminal {
					pending = ""
				}
				p.set(StateRequestSucceeded, pending)
				p.notify(n, o.id)
			}}
		case RequestDidFail:
			return step{note: n, terminal: true, deliver: func() {
				p.mu.Lock()
				p.err, p.hasErr = env.Error, true
				p.state, p.pending = StateRequestFailed, ""
				p.mu.Unlock()
				p.notify(n, o.id)
			}}
		case ContentIsReady:
			return step{note: n, terminal: true, deliver: func() {
				p.set(StateContentReady, "")
				p.notify(n, o.id)
			}}
		}
		return step{}
	}
}

// ShowContent asks the SDK to present loaded content. The returned
// operation reports contentDidAppear and ends on contentDidDisappear.
func (p *Placement) ShowContent(ctx context.Context) (*Operation, error) {
	op, err := p.c.startOperation(KindShow, native.ChannelPlacement, p.name, p.showStep, EventShowTimeout)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	prevState, prevPending := p.state, p.pending
	p.mu.Unlock()
	p.set(StateShowing, op.id)
	if err := p.c.gw.call(ctx, op.id, "showPlacement", nil, p.name); err != nil {
		op.abort(err)
		// A request may still be in flight; leave its pending id in place.
		p.set(prevState, prevPending)
		return nil, err
	}
	return op, nil
}

func (p *Placement) showStep(o *Operation) stepFunc {
	return func(_ context.Context, env native.Envelope) step {
		n := Notification(env.Name)
		switch n {
		case ContentDidAppear:
			return step{note: n, deliver: func() {
				p.set(StateAppeared, o.id)
				p.notify(n, o.id)
			}}
		case ContentDidDisappear:
			return step{note: n, terminal: true, deliver: func() {
				p.set(StateDismissed, "")
				p.notify(n, o.id)
			}}
		}
		return step{}
	}
}

// IsContentReady reports whether loaded content can be shown now.
func (p *Placement) IsContentReady(ctx context.Context) (bool, error) {
	var ok bool
	err := p.c.gw.Invoke(ctx, "isContentReady", &ok, p.name)
	return ok, err
}

// IsContentAvailable reports whether the last request found content.
func (p *Placement) IsContentAvailable(ctx context.Context) (bool, error) {
	var ok bool
	err := p.c.gw.Invoke(ctx, "isContentAvailable", &ok, p.name)
	return ok, err
}

// SetCurrencyBalance sets this placement's balance for currencyID.
func (p *Placement) SetCurrencyBalance(ctx context.Context, currencyID string, balance int) error {
	if balance < 0 {
		return invalid(ErrInvalidAmount, balance)
	}
	return p.c.gw.Invoke(ctx, "setCurrencyBalance", nil, balance, currencyID, p.name)
}

// GetCurrencyBalance reads this placement's balance for currencyID.
func (p *Placement) GetCurrencyBalance(ctx context.Context, currencyID string) (int, error) {
	var n int
	err := p.c.gw.Invoke(ctx, "getPlacementCurrencyBalance", &n, currencyID, p.name)
	return n, err
}

// SetRequiredAmount sets how much of currencyID the user needs.
func (p *Placement) SetRequiredAmount(ctx context.Context, currencyID string, amount int) error {
	if amount < 0 {
		return invalid(ErrInvalidAmount, amount)
	}
	return p.c.gw.Invoke(ctx, "setRequiredAmount", nil, amount, currencyID, p.name)
}

// GetRequiredAmount returns the required amount, -1 when unavailable.
func (p *Placement) GetRequiredAmount(ctx context.Context, currencyID string) (int, error) {
	var n int
	err := p.c.gw.Invoke(ctx, "getRequiredAmount", &n, currencyID, p.name)
	return n, err
}

// SetEntryPoint sends the entry point's index. Native failures are only
// logged.
func (p *Placement) SetEntryPoint(ctx context.Context, e EntryPoint) error {
	if !e.Valid() {
		return invalid(ErrInvalidEntryPoint, int(e))
	}
	return p.c.gw.Fire(ctx, "setEntryPoint", p.name, int(e))
}

// GetEntryPoint maps the native index back to an EntryPoint. ok is false
// when the index is outside the enumeration.
func (p *Placement) GetEntryPoint(ctx context.Context) (e EntryPoint, ok bool, err error) {
	var idx int
	if err := p.c.gw.Invoke(ctx, "getEntryPoint", &idx, p.name); err != nil {
		return 0, false, err
	}
	if !EntryPoint(idx).Valid() {
		return EntryPointUnknown, false, nil
	}
	return EntryPoint(idx), true, nil
}
