package e2e

import (
	"bufio"
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"tjbridge/internal/keystore"
	"tjbridge/internal/simhost"
	"tjbridge/pkg/types"
)

func TestE2E_RequestThenShow(t *testing.T) {
	s := newStack(t, simhost.Options{})
	s.connect(t)

	resp, body := httpDo(t, http.MethodPost, s.srv.URL+"/placements/level_complete/request", nil)
	op := mustJSON[types.OperationResponse](t, resp, body, http.StatusOK)
	if op.Notification != "contentIsReady" || op.State.State != "content_ready" {
		t.Fatalf("request op=%+v", op)
	}
	if len(op.Seen) != 1 || op.Seen[0] != "requestDidSucceed" {
		t.Fatalf("seen=%v", op.Seen)
	}
	if got := s.sim.Host.Creates("level_complete"); got != 1 {
		t.Fatalf("creates=%d", got)
	}

	resp, body = httpDo(t, http.MethodGet, s.srv.URL+"/placements/level_complete/ready", nil)
	if ready := mustJSON[map[string]any](t, resp, body, http.StatusOK); ready["value"] != true {
		t.Fatalf("ready=%v", ready)
	}

	resp, body = httpDo(t, http.MethodPost, s.srv.URL+"/placements/level_complete/show", nil)
	op = mustJSON[types.OperationResponse](t, resp, body, http.StatusOK)
	if op.Notification != "contentDidDisappear" || op.State.State != "dismissed" {
		t.Fatalf("show op=%+v", op)
	}
}

func TestE2E_NoFillIsTerminalOutcome(t *testing.T) {
	s := newStack(t, simhost.Options{NoFill: []string{"empty"}})
	s.connect(t)
	resp, body := httpDo(t, http.MethodPost, s.srv.URL+"/placements/empty/request", nil)
	op := mustJSON[types.OperationResponse](t, resp, body, http.StatusOK)
	if op.Notification != "requestDidFail" || op.State.Error != "No fill" {
		t.Fatalf("op=%+v", op)
	}
	// Showing without content is a native failure.
	resp, _ = httpDo(t, http.MethodPost, s.srv.URL+"/placements/empty/show", nil)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("show status=%d", resp.StatusCode)
	}
}

func TestE2E_CurrencyAndUser(t *testing.T) {
	s := newStack(t, simhost.Options{CurrencyName: "Gems", InitialBalance: 10})

	// Not connected yet: the simulated SDK refuses.
	resp, _ := httpDo(t, http.MethodGet, s.srv.URL+"/currency", nil)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("currency before connect status=%d", resp.StatusCode)
	}
	s.connect(t)

	resp, body := httpDo(t, http.MethodPost, s.srv.URL+"/currency/spend", types.AmountRequest{Amount: 4})
	if bal := mustJSON[types.CurrencyBalance](t, resp, body, http.StatusOK); bal.Amount != 6 || bal.CurrencyName != "Gems" {
		t.Fatalf("spend bal=%+v", bal)
	}
	if got := s.sim.Host.Balance(); got != 6 {
		t.Fatalf("host balance=%d", got)
	}

	resp, body = httpDo(t, http.MethodGet, s.srv.URL+"/user/id", nil)
	if id := mustJSON[map[string]any](t, resp, body, http.StatusOK); id["value"] != "player-1" {
		t.Fatalf("user id=%v", id)
	}
	if v, ok, _ := s.store.Get(context.Background(), keystore.KeyUserID); !ok || v != "player-1" {
		t.Fatalf("stored user id=%q ok=%v", v, ok)
	}

	resp, body = httpDo(t, http.MethodPut, s.srv.URL+"/user/tags", types.ValueRequest{List: []string{"beta", "eu"}})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("tags status=%d body=%s", resp.StatusCode, body)
	}
	resp, body = httpDo(t, http.MethodGet, s.srv.URL+"/user/tags", nil)
	if !strings.Contains(string(body), "beta") || resp.StatusCode != http.StatusOK {
		t.Fatalf("tags body=%s", body)
	}
}

func TestE2E_ConnectWarningReported(t *testing.T) {
	s := newStack(t, simhost.Options{ConnectWarning: "slow network", EventDelay: time.Millisecond})
	resp, body := httpDo(t, http.MethodPost, s.srv.URL+"/connect", map[string]any{"sdk_key": "k"})
	c := mustJSON[types.ConnectResponse](t, resp, body, http.StatusOK)
	if !c.Connected {
		t.Fatalf("connect=%+v", c)
	}
}

func TestE2E_EventStream(t *testing.T) {
	s := newStack(t, simhost.Options{})
	s.connect(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, s.srv.URL+"/events?placement=p1", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	defer resp.Body.Close()
	waitFor(t, "event subscriber", func() bool { return s.events.Clients() == 1 })

	go func() {
		r, err := http.Post(s.srv.URL+"/placements/p1/request", "application/json", nil)
		if err == nil {
			_ = r.Body.Close()
		}
	}()

	sc := bufio.NewScanner(resp.Body)
	var names []string
	for sc.Scan() {
		line := sc.Text()
		if name, ok := strings.CutPrefix(line, "event: "); ok {
			names = append(names, name)
			if name == "contentIsReady" {
				break
			}
		}
	}
	want := []string{"placement_created", "requestDidSucceed", "contentIsReady"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("events=%v want %v", names, want)
	}
}
