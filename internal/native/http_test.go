package native

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}

func TestHTTPModule_InvokeSendsArgsAndID(t *testing.T) {
	var got struct {
		ID   string `json:"id"`
		Args []any  `json:"args"`
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/call/spendCurrency", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method=%s", r.Method)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":{"currencyName":"Gems","amount":90}}`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	m := NewHTTPModule(ts.URL, HTTPOptions{})
	defer m.Close()
	raw, err := m.Invoke(testCtx(t), Call{ID: "op-1", Method: "spendCurrency", Args: []any{10}})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got.ID != "op-1" || len(got.Args) != 1 || got.Args[0].(float64) != 10 {
		t.Fatalf("unexpected request body: %+v", got)
	}
	var res struct {
		CurrencyName string `json:"currencyName"`
		Amount       int    `json:"amount"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if res.CurrencyName != "Gems" || res.Amount != 90 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestHTTPModule_NilArgsEncodeAsEmptyList(t *testing.T) {
	var body map[string]json.RawMessage
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/call/isConnected", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"result":false}`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	m := NewHTTPModule(ts.URL, HTTPOptions{})
	defer m.Close()
	if _, err := m.Invoke(testCtx(t), Call{Method: "isConnected"}); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if string(body["args"]) != "[]" {
		t.Fatalf("args=%s, want []", body["args"])
	}
}

func TestHTTPModule_NativeErrorBody(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/call/connect", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":{"code":"E_CONNECT","message":"bad key"}}`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	m := NewHTTPModule(ts.URL, HTTPOptions{})
	defer m.Close()
	_, err := m.Invoke(testCtx(t), Call{Method: "connect", Args: []any{"k", map[string]any{}}})
	if !IsNativeError(err) {
		t.Fatalf("expected native error, got %v", err)
	}
	ne := err.(*Error)
	if ne.Code != "E_CONNECT" || ne.Message != "bad key" || ne.Method != "connect" {
		t.Fatalf("unexpected native error: %+v", ne)
	}
}

func TestHTTPModule_PlainHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()
	m := NewHTTPModule(ts.URL, HTTPOptions{})
	defer m.Close()
	_, err := m.Invoke(testCtx(t), Call{Method: "getUserId"})
	if err == nil || IsNativeError(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestHTTPModule_InvokeAfterClose(t *testing.T) {
	m := NewHTTPModule("http://127.0.0.1:1", HTTPOptions{})
	_ = m.Close()
	if _, err := m.Invoke(testCtx(t), Call{Method: "isConnected"}); !IsClosed(err) {
		t.Fatalf("expected closed error, got %v", err)
	}
}

func TestHTTPModule_ContextCancel(t *testing.T) {
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/call/getUserId", func(w http.ResponseWriter, r *http.Request) {
		// The server only notices a client hang-up once the body is read.
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()
	defer ts.CloseClientConnections()
	defer close(release)
	m := NewHTTPModule(ts.URL, HTTPOptions{})
	defer m.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := m.Invoke(ctx, Call{Method: "getUserId"}); err != context.DeadlineExceeded {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestHTTPModule_EventStream(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/events", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		write := func(s string) {
			_, _ = w.Write([]byte(s + "\n"))
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
		write(": heartbeat")
		write("data: not-json")
		write(`data: {"channel":"TapjoyPlacement","name":"requestDidFail","error":"no fill","placement":"Main","id":"op-7"}`)
		write("")
		<-r.Context().Done()
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	m := NewHTTPModule(ts.URL, HTTPOptions{ReconnectDelay: 20 * time.Millisecond})
	defer m.Close()
	got := make(chan Envelope, 4)
	stop := m.Listen(func(e Envelope) { got <- e })
	defer stop()

	select {
	case e := <-got:
		want := Envelope{Channel: ChannelPlacement, Name: "requestDidFail", Error: "no fill", Placement: "Main", ID: "op-7"}
		if e != want {
			t.Fatalf("envelope=%+v, want %+v", e, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no envelope received")
	}
}

func TestHTTPModule_Health(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	ts := httptest.NewServer(mux)
	defer ts.Close()
	m := NewHTTPModule(ts.URL+"/", HTTPOptions{})
	defer m.Close()
	if m.BaseURL() != ts.URL {
		t.Fatalf("base url not trimmed: %s", m.BaseURL())
	}
	if err := m.Health(testCtx(t)); err != nil {
		t.Fatalf("Health: %v", err)
	}
}

// lossyHost emits envelopes only to streams attached at emission time, the
// way real hosts behave. Each stream attaches after attachDelay; with
// dropAfter set, a stream ends that long after attaching.
type lossyHost struct {
	attachDelay time.Duration
	dropAfter   time.Duration

	mu      sync.Mutex
	streams map[chan string]struct{}
	opened  int
}

func newLossyHost(t *testing.T, attachDelay, dropAfter time.Duration) (*lossyHost, *httptest.Server) {
	t.Helper()
	h := &lossyHost{attachDelay: attachDelay, dropAfter: dropAfter, streams: map[chan string]struct{}{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/events", h.serveEvents)
	mux.HandleFunc("/v1/call/requestPlacement", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ID string `json:"id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		go func() {
			time.Sleep(5 * time.Millisecond)
			h.emit(`{"channel":"TapjoyPlacement","name":"contentIsReady","placement":"Main","id":"` + body.ID + `"}`)
		}()
		_, _ = w.Write([]byte(`{"result":null}`))
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(func() {
		ts.CloseClientConnections()
		ts.Close()
	})
	return h, ts
}

func (h *lossyHost) serveEvents(w http.ResponseWriter, r *http.Request) {
	select {
	case <-time.After(h.attachDelay):
	case <-r.Context().Done():
		return
	}
	ch := make(chan string, 8)
	h.mu.Lock()
	h.streams[ch] = struct{}{}
	h.opened++
	first := h.opened == 1
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.streams, ch)
		h.mu.Unlock()
	}()
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	w.(http.Flusher).Flush()
	var drop <-chan time.Time
	if first && h.dropAfter > 0 {
		drop = time.After(h.dropAfter)
	}
	for {
		select {
		case line := <-ch:
			_, _ = w.Write([]byte("data: " + line + "\n\n"))
			w.(http.Flusher).Flush()
		case <-drop:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (h *lossyHost) emit(line string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.streams {
		ch <- line
	}
}

func (h *lossyHost) streamsOpened() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.opened
}

func requestAndExpectReady(t *testing.T, m *HTTPModule, got <-chan Envelope) {
	t.Helper()
	if _, err := m.Invoke(testCtx(t), Call{ID: "op-1", Method: "requestPlacement", Args: []any{"Main"}}); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	select {
	case e := <-got:
		if e.Name != "contentIsReady" || e.ID != "op-1" {
			t.Fatalf("envelope=%+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("contentIsReady emitted after the call never arrived")
	}
}

func waitDetached(t *testing.T, m *HTTPModule) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		m.mu.Lock()
		ch := m.attached
		m.mu.Unlock()
		select {
		case <-ch:
			time.Sleep(2 * time.Millisecond)
		default:
			return
		}
	}
	t.Fatal("event stream never dropped")
}

func TestHTTPModule_ListenWaitsForSlowStream(t *testing.T) {
	_, ts := newLossyHost(t, 50*time.Millisecond, 0)
	m := NewHTTPModule(ts.URL, HTTPOptions{ConnectTimeout: 2 * time.Second})
	defer m.Close()
	got := make(chan Envelope, 4)
	stop := m.Listen(func(e Envelope) { got <- e })
	defer stop()
	if err := m.WaitReady(testCtx(t)); err != nil {
		t.Fatalf("WaitReady after Listen: %v", err)
	}
	requestAndExpectReady(t, m, got)
}

func TestHTTPModule_CallsWaitForReconnect(t *testing.T) {
	h, ts := newLossyHost(t, 0, 20*time.Millisecond)
	m := NewHTTPModule(ts.URL, HTTPOptions{ConnectTimeout: 2 * time.Second, ReconnectDelay: 100 * time.Millisecond})
	defer m.Close()
	got := make(chan Envelope, 4)
	stop := m.Listen(func(e Envelope) { got <- e })
	defer stop()

	// Call while the module is between stream attempts.
	waitDetached(t, m)
	requestAndExpectReady(t, m, got)
	if n := h.streamsOpened(); n < 2 {
		t.Fatalf("streams opened=%d, want a reconnect", n)
	}
}

func TestHTTPModule_WaitReadyWithoutListener(t *testing.T) {
	m := NewHTTPModule("http://127.0.0.1:1", HTTPOptions{})
	defer m.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := m.WaitReady(ctx); err != context.DeadlineExceeded {
		t.Fatalf("WaitReady=%v, want deadline exceeded", err)
	}
	_ = m.Close()
	if err := m.WaitReady(context.Background()); !IsClosed(err) {
		t.Fatalf("WaitReady after Close=%v", err)
	}
}
