package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tjbridge/internal/bridge"
	"tjbridge/internal/httpapi"
	"tjbridge/internal/keystore"
	"tjbridge/internal/native"
	"tjbridge/internal/session"
	"tjbridge/internal/simhost"
)

type stack struct {
	srv    *httptest.Server
	sim    *simhost.Server
	client *bridge.Client
	events *httpapi.EventBroker
	store  keystore.Store
}

// newStack wires the HTTP API to a simulated native host over the real
// HTTP wire protocol.
func newStack(t *testing.T, opts simhost.Options) *stack {
	t.Helper()
	if opts.EventDelay == 0 {
		opts.EventDelay = 5 * time.Millisecond
	}
	if opts.ShowDuration == 0 {
		opts.ShowDuration = 20 * time.Millisecond
	}
	sim, err := simhost.Listen("127.0.0.1:0", opts)
	if err != nil {
		t.Fatalf("listen simhost: %v", err)
	}
	sim.Start()

	mod := native.NewHTTPModule(sim.URL(), native.HTTPOptions{ReconnectDelay: 20 * time.Millisecond})
	events := httpapi.NewEventBroker()
	client := bridge.New(mod, bridge.Config{
		Platform:         native.PlatformAndroid,
		OperationTimeout: 5 * time.Second,
		Publisher:        events,
	})
	store := keystore.NewMemory()
	boot := session.New(client, store, nil)
	srv := httptest.NewServer(httpapi.NewMux(httpapi.Options{Client: client, Session: boot, Events: events}))
	t.Cleanup(func() {
		events.Close()
		srv.Close()
		_ = client.Close()
		_ = mod.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = sim.Shutdown(ctx)
	})
	return &stack{srv: srv, sim: sim, client: client, events: events, store: store}
}

func httpDo(t *testing.T, method, url string, payload any) (*http.Response, []byte) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, url, body)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}

func mustJSON[T any](t *testing.T, resp *http.Response, body []byte, want int) T {
	t.Helper()
	var out T
	if resp.StatusCode != want {
		t.Fatalf("%s %s status=%d body=%s", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	return out
}

func (s *stack) connect(t *testing.T) {
	t.Helper()
	resp, body := httpDo(t, http.MethodPost, s.srv.URL+"/connect", map[string]any{"sdk_key": "e2e-key", "user_id": "player-1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("connect status=%d body=%s", resp.StatusCode, body)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
