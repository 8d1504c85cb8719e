package native

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// HTTPOptions tunes an HTTPModule. Zero values select defaults.
type HTTPOptions struct {
	ConnectTimeout time.Duration
	// ReconnectDelay is the pause before reopening a dropped event stream.
	ReconnectDelay time.Duration
	Logger         *zerolog.Logger
}

const (
	defaultConnectTimeout = 5 * time.Second
	defaultReconnectDelay = 500 * time.Millisecond
)

// HTTPModule talks to a native host over HTTP: calls are JSON POSTs to
// /v1/call/{method}; events arrive as SSE lines on /v1/events.
//
// Hosts do not replay events, so once a listener exists every call waits
// (up to ConnectTimeout) for the event stream to be attached. Events a host
// emits while the stream is down are lost.
type HTTPModule struct {
	baseURL        string
	httpClient     *http.Client
	connectTimeout time.Duration
	reconnectDelay time.Duration
	log            zerolog.Logger

	mu        sync.Mutex
	listeners listenerSet
	streamOn  bool
	closed    bool
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	// attached is closed while the event stream is connected.
	attached chan struct{}
}

// NewHTTPModule constructs a module for the host at baseURL. The event
// stream is opened lazily on the first Listen.
func NewHTTPModule(baseURL string, opts HTTPOptions) *HTTPModule {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = defaultReconnectDelay
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   opts.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	// Timeout stays 0: calls are bounded by their context and the event
	// stream is long-lived.
	cli := &http.Client{Transport: tr, Timeout: 0}
	lg := zerolog.Nop()
	if opts.Logger != nil {
		lg = *opts.Logger
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &HTTPModule{
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     cli,
		connectTimeout: opts.ConnectTimeout,
		reconnectDelay: opts.ReconnectDelay,
		log:            lg.With().Str("component", "native_http").Logger(),
		ctx:            ctx,
		cancel:         cancel,
		done:           make(chan struct{}),
		attached:       make(chan struct{}),
	}
}

// BaseURL returns the host address the module talks to.
func (m *HTTPModule) BaseURL() string { return m.baseURL }

type callRequest struct {
	ID   string `json:"id,omitempty"`
	Args []any  `json:"args"`
}

type callResponse struct {
	Result json.RawMessage `json:"result"`
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (m *HTTPModule) Invoke(ctx context.Context, call Call) (json.RawMessage, error) {
	m.mu.Lock()
	closed, streaming := m.closed, m.streamOn
	m.mu.Unlock()
	if closed {
		return nil, errClosed
	}
	if streaming {
		if err := m.awaitStream(ctx); err != nil {
			return nil, err
		}
	}
	args := call.Args
	if args == nil {
		args = []any{}
	}
	body, err := json.Marshal(callRequest{ID: call.ID, Args: args})
	if err != nil {
		return nil, fmt.Errorf("encode %s args: %w", call.Method, err)
	}
	u := m.baseURL + "/v1/call/" + url.PathEscape(call.Method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := m.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb errorBody
		if json.Unmarshal(b, &eb) == nil && (eb.Error.Code != "" || eb.Error.Message != "") {
			return nil, &Error{Method: call.Method, Code: eb.Error.Code, Message: eb.Error.Message}
		}
		return nil, fmt.Errorf("native host http error: %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	var cr callResponse
	if err := json.Unmarshal(b, &cr); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", call.Method, err)
	}
	if len(cr.Result) == 0 {
		return json.RawMessage("null"), nil
	}
	return cr.Result, nil
}

// Health checks the host's /v1/health endpoint.
func (m *HTTPModule) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/v1/health", nil)
	if err != nil {
		return err
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("native host unhealthy: %s", resp.Status)
	}
	return nil
}

// WaitReady blocks until the event stream is attached. The stream opens on
// the first Listen; before that only ctx ends the wait.
func (m *HTTPModule) WaitReady(ctx context.Context) error {
	m.mu.Lock()
	ch := m.attached
	m.mu.Unlock()
	select {
	case <-ch:
		return nil
	case <-m.ctx.Done():
		return errClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// awaitStream holds a call until the event stream is attached so the events
// it triggers have somewhere to go. Past ConnectTimeout the call proceeds.
func (m *HTTPModule) awaitStream(ctx context.Context) error {
	wctx, cancel := context.WithTimeout(ctx, m.connectTimeout)
	defer cancel()
	err := m.WaitReady(wctx)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case IsClosed(err):
		return err
	}
	m.log.Warn().Dur("waited", m.connectTimeout).Msg("event stream not attached; calling anyway")
	return nil
}

func (m *HTTPModule) setAttached(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	select {
	case <-m.attached:
		if !on {
			m.attached = make(chan struct{})
		}
	default:
		if on {
			close(m.attached)
		}
	}
}

// Listen registers fn and, on first use, opens the event stream. It returns
// once the stream is attached or ConnectTimeout passes.
func (m *HTTPModule) Listen(fn func(Envelope)) func() {
	m.mu.Lock()
	id := m.listeners.add(fn)
	if !m.streamOn && !m.closed {
		m.streamOn = true
		go m.streamLoop()
	}
	streaming := m.streamOn && !m.closed
	m.mu.Unlock()
	if streaming {
		ctx, cancel := context.WithTimeout(m.ctx, m.connectTimeout)
		if err := m.WaitReady(ctx); err != nil {
			m.log.Warn().Err(err).Msg("event stream not attached yet")
		}
		cancel()
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			m.listeners.remove(id)
			m.mu.Unlock()
		})
	}
}

// Close stops the event stream and fails later calls.
func (m *HTTPModule) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	started := m.streamOn
	m.mu.Unlock()
	m.cancel()
	if started {
		<-m.done
	}
	m.httpClient.CloseIdleConnections()
	return nil
}

func (m *HTTPModule) streamLoop() {
	defer close(m.done)
	for {
		err := m.readStream(m.ctx)
		if m.ctx.Err() != nil {
			return
		}
		m.log.Warn().Err(err).Msg("event stream dropped")
		select {
		case <-time.After(m.reconnectDelay):
		case <-m.ctx.Done():
			return
		}
	}
}

func (m *HTTPModule) readStream(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/v1/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("event stream http error: %s", resp.Status)
	}
	m.setAttached(true)
	defer m.setAttached(false)
	m.log.Debug().Str("url", m.baseURL).Msg("event stream open")
	r := bufio.NewReader(resp.Body)
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			m.handleLine(line)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}
			return err
		}
	}
}

func (m *HTTPModule) handleLine(line string) {
	l := strings.TrimSpace(line)
	// blank separators, comments and heartbeats
	if l == "" || strings.HasPrefix(l, ":") {
		return
	}
	if !strings.HasPrefix(strings.ToLower(l), "data:") {
		return
	}
	data := strings.TrimSpace(l[len("data:"):])
	var env Envelope
	if err := json.Unmarshal([]byte(data), &env); err != nil || env.Name == "" {
		m.log.Warn().Str("line", l).Msg("unknown event line")
		return
	}
	m.mu.Lock()
	fns := m.listeners.snapshot()
	m.mu.Unlock()
	for _, fn := range fns {
		fn(env)
	}
}
