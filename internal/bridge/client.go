package bridge

import (
	"context"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tjbridge/internal/native"
	"tjbridge/pkg/types"
)

// Connection event tags delivered on the connection channel.
const (
	TagConnectSuccess = "TJC_Connect_Success"
	TagConnectFailed  = "TJC_Connect_Failed"
	TagConnectWarning = "TJC_Connect_Warning"
)

// FlagUserID is the connect flag carrying the app's user id.
const FlagUserID = "TJC_OPTION_USER_ID"

// Client is the session facade over one native module. It owns the module,
// the event router and every pending operation; Close releases all of them.
type Client struct {
	gw     *Gateway
	router *Router
	mod    native.Module
	cfg    Config
	pub    EventPublisher
	log    zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	closed     bool
	placements map[string]*Placement
	order      []string
}

// New constructs a Client over mod. A nil mod yields a client whose every
// call fails with the linkage error for cfg.Platform.
func New(mod native.Module, cfg Config) *Client {
	cfg = cfg.withDefaults()
	if mod == nil {
		mod = native.Unlinked(cfg.Platform)
	}
	lg := cfg.logger().With().Str("component", "bridge").Logger()
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		gw:         NewGateway(mod, cfg.Platform, cfg.CallTimeout, lg),
		router:     NewRouter(mod, lg),
		mod:        mod,
		cfg:        cfg,
		pub:        cfg.Publisher,
		log:        lg,
		ctx:        ctx,
		cancel:     cancel,
		placements: make(map[string]*Placement),
	}
}

// Gateway exposes the underlying call gateway.
func (c *Client) Gateway() *Gateway { return c.gw }

// Platform returns the configured platform family.
func (c *Client) Platform() string { return c.cfg.Platform }

// ActiveSubscriptions reports live event subscriptions.
func (c *Client) ActiveSubscriptions() int { return c.router.Active() }

// SetEventPublisher swaps the publisher; nil restores the no-op default.
func (c *Client) SetEventPublisher(p EventPublisher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p == nil {
		p = noopPublisher{}
	}
	c.pub = p
}

func (c *Client) publish(e Event) {
	c.mu.Lock()
	p := c.pub
	c.mu.Unlock()
	p.Publish(e)
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// startOperation subscribes and launches the operation loop. The returned
// operation is already listening when the initiating call goes out.
func (c *Client) startOperation(kind OperationKind, channel, placement string, fn func(o *Operation) stepFunc, timeoutEvent string) (*Operation, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.wg.Add(1)
	c.mu.Unlock()

	id := uuid.NewString()
	sub, err := c.router.Subscribe(channel, id, placement)
	if err != nil {
		c.wg.Done()
		return nil, err
	}
	ctx, cancel := context.WithCancel(c.ctx)
	o := &Operation{
		id:        id,
		kind:      kind,
		placement: placement,
		ctx:       ctx,
		cancel:    cancel,
		parent:    c.ctx,
		done:      make(chan struct{}),
	}
	var timeout time.Duration
	if c.cfg.OperationTimeout > 0 {
		timeout = c.cfg.OperationTimeout
	}
	onTimeout := func() {
		c.log.Warn().Str("op", id).Str("kind", string(kind)).Str("placement", placement).
			Dur("timeout", timeout).Msg("operation timed out")
		c.publish(Event{Name: timeoutEvent, Placement: placement, OperationID: id})
	}
	go func() {
		defer c.wg.Done()
		o.run(sub, timeout, fn(o), onTimeout)
	}()
	return o, nil
}

// Connect starts the SDK session. A connection-warning watch is armed
// before the connect call and stays armed until the first warning, the
// operation timeout or Close; onWarning (optional) runs once for that
// warning. The returned error is the connect call's own outcome.
func (c *Client) Connect(ctx context.Context, sdkKey string, flags map[string]any, onWarning func(native.Envelope)) error {
	if flags == nil {
		flags = map[string]any{}
	}
	op, err := c.startOperation(KindConnectWarning, native.ChannelConnection, "", func(o *Operation) stepFunc {
		return func(_ context.Context, env native.Envelope) step {
			if env.Name != TagConnectWarning {
				return step{}
			}
			return step{note: Notification(env.Name), terminal: true, deliver: func() {
				c.log.Warn().Str("op", o.id).Str("error", env.Error).Msg("connect warning")
				c.publish(Event{Name: EventConnectWarning, OperationID: o.id, Fields: map[string]any{"message": env.Error}})
				if onWarning != nil {
					onWarning(env)
				}
			}}
		}
	}, EventConnectWarningTimeout)
	if err != nil {
		return err
	}
	err = c.gw.call(ctx, op.id, "connect", nil, sdkKey, flags)
	if native.IsNotLinked(err) {
		op.abort(err)
	}
	if err != nil {
		return err
	}
	c.log.Info().Msg("connected")
	return nil
}

// IsConnected asks the SDK whether a session is established.
func (c *Client) IsConnected(ctx context.Context) (bool, error) {
	var ok bool
	err := c.gw.Invoke(ctx, "isConnected", &ok)
	return ok, err
}

// SetDebugEnabled toggles SDK logging. Native failures are only logged.
func (c *Client) SetDebugEnabled(ctx context.Context, enable bool) error {
	return c.gw.Fire(ctx, "setDebugEnabled", enable)
}

// GetCurrencyBalance fetches the managed currency balance.
func (c *Client) GetCurrencyBalance(ctx context.Context) (types.CurrencyBalance, error) {
	var out types.CurrencyBalance
	err := c.gw.Invoke(ctx, "getCurrencyBalance", &out)
	return out, err
}

// SpendCurrency spends amount of the managed currency.
func (c *Client) SpendCurrency(ctx context.Context, amount float64) (types.CurrencyBalance, error) {
	return c.currencyOp(ctx, "spendCurrency", amount)
}

// AwardCurrency awards amount of the managed currency.
func (c *Client) AwardCurrency(ctx context.Context, amount float64) (types.CurrencyBalance, error) {
	return c.currencyOp(ctx, "awardCurrency", amount)
}

func (c *Client) currencyOp(ctx context.Context, method string, amount float64) (types.CurrencyBalance, error) {
	var out types.CurrencyBalance
	if err := checkAmount(amount); err != nil {
		return out, err
	}
	err := c.gw.Invoke(ctx, method, &out, amount)
	return out, err
}

// TrackPurchase records an in-app purchase. currencyCode is an ISO 4217
// code such as USD.
func (c *Client) TrackPurchase(ctx context.Context, currencyCode string, price float64) error {
	if err := checkAmount(price); err != nil {
		return err
	}
	return c.gw.Fire(ctx, "trackPurchase", strings.ToUpper(strings.TrimSpace(currencyCode)), price)
}

func checkAmount(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return invalid(ErrInvalidAmount, v)
	}
	return nil
}

// ParseAmount converts user text into a currency amount, rejecting
// non-numeric, negative and non-finite values.
func ParseAmount(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, invalid(ErrInvalidAmount, s)
	}
	if err := checkAmount(v); err != nil {
		return 0, err
	}
	return v, nil
}

// Placement returns the most recently created placement object for name.
func (c *Client) Placement(name string) (*Placement, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.placements[name]
	return p, ok
}

// Placements lists the latest placement object per name in creation order.
func (c *Client) Placements() []*Placement {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Placement, 0, len(c.order))
	for _, n := range c.order {
		out = append(out, c.placements[n])
	}
	return out
}

func (c *Client) track(p *Placement) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.placements[p.name]; !ok {
		c.order = append(c.order, p.name)
	}
	c.placements[p.name] = p
}

// Close cancels pending operations, releases every subscription and closes
// the native module. Further calls that start operations fail with
// ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	c.cancel()
	c.wg.Wait()
	c.router.Close()
	return c.mod.Close()
}
