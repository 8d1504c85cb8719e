package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"tjbridge/internal/bridge"
	"tjbridge/internal/keystore"
	"tjbridge/internal/native"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}

type recordingPrompt struct {
	status    TrackingStatus
	requested bool
}

func (p *recordingPrompt) Status(context.Context) (TrackingStatus, error) { return p.status, nil }

func (p *recordingPrompt) Request(context.Context) (TrackingStatus, error) {
	p.requested = true
	return TrackingAuthorized, nil
}

func newBootstrapper(t *testing.T) (*Bootstrapper, *native.Fake, keystore.Store) {
	t.Helper()
	f := native.NewFake()
	c := bridge.New(f, bridge.Config{})
	t.Cleanup(func() { _ = c.Close() })
	store := keystore.NewMemory()
	return New(c, store, nil), f, store
}

func TestConnect_FullFlow(t *testing.T) {
	b, f, store := newBootstrapper(t)
	prompt := &recordingPrompt{status: TrackingNotDetermined}
	res, err := b.Connect(testCtx(t), Options{
		SDKKey:  "key-1",
		UserID:  "player-42",
		Debug:   true,
		Prompt:  prompt,
		Privacy: &Privacy{BelowConsentAge: bridge.StatusFalse, SubjectToGDPR: bridge.StatusTrue, UserConsent: bridge.StatusTrue, USPrivacy: "1---"},
	})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !prompt.requested || res.Tracking != TrackingAuthorized {
		t.Fatalf("tracking not requested: %+v", res)
	}
	if res.Flags[bridge.FlagUserID] != "player-42" {
		t.Fatalf("flags=%v", res.Flags)
	}
	if v, _, _ := store.Get(testCtx(t), keystore.KeySDKKey); v != "key-1" {
		t.Fatalf("sdk key not stored: %q", v)
	}
	if v, _, _ := store.Get(testCtx(t), keystore.KeyUserID); v != "player-42" {
		t.Fatalf("user id not stored: %q", v)
	}
	want := []string{"setBelowConsentAgeStatus", "setSubjectToGDPRStatus", "setUSPrivacy", "setUserConsentStatus", "setDebugEnabled", "connect"}
	calls := f.Calls()
	if len(calls) != len(want) {
		t.Fatalf("calls=%+v", calls)
	}
	for i, m := range want {
		if calls[i].Method != m {
			t.Fatalf("call %d = %s, want %s", i, calls[i].Method, m)
		}
	}
}

func TestConnect_RestoresStoredValues(t *testing.T) {
	b, f, store := newBootstrapper(t)
	_ = store.Set(testCtx(t), keystore.KeySDKKey, "stored-key")
	_ = store.Set(testCtx(t), keystore.KeyUserID, "stored-user")
	res, err := b.Connect(testCtx(t), Options{Prompt: StaticPrompt(TrackingAuthorized)})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if res.SDKKey != "stored-key" || res.UserID != "stored-user" {
		t.Fatalf("result=%+v", res)
	}
	call := f.CallsTo("connect")[0]
	if call.Args[0] != "stored-key" {
		t.Fatalf("connect key=%v", call.Args[0])
	}
}

func TestConnect_NoKey(t *testing.T) {
	b, f, _ := newBootstrapper(t)
	if _, err := b.Connect(testCtx(t), Options{}); !errors.Is(err, ErrNoSDKKey) {
		t.Fatalf("err=%v", err)
	}
	if len(f.CallsTo("connect")) != 0 {
		t.Fatalf("connect attempted without key")
	}
}

func TestConnect_NoUserIDOmitsFlag(t *testing.T) {
	b, _, _ := newBootstrapper(t)
	res, err := b.Connect(testCtx(t), Options{SDKKey: "k"})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if _, ok := res.Flags[bridge.FlagUserID]; ok {
		t.Fatalf("user id flag set without a user id: %v", res.Flags)
	}
	if res.Tracking != TrackingUnavailable {
		t.Fatalf("tracking=%s", res.Tracking)
	}
}

func TestConnect_FailureStillStoresKey(t *testing.T) {
	b, f, store := newBootstrapper(t)
	f.Fail("connect", &native.Error{Method: "connect", Code: "E", Message: "offline"})
	if _, err := b.Connect(testCtx(t), Options{SDKKey: "k"}); !bridge.IsNativeError(err) {
		t.Fatalf("err=%v", err)
	}
	if _, ok, _ := store.Get(testCtx(t), keystore.KeySDKKey); !ok {
		t.Fatalf("key not stored before connect")
	}
}
