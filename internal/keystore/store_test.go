package keystore

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}

// exerciseStore runs the contract every backend must satisfy.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := testCtx(t)
	if _, ok, err := s.Get(ctx, KeySDKKey); err != nil || ok {
		t.Fatalf("missing key: ok=%v err=%v", ok, err)
	}
	if err := s.Set(ctx, KeySDKKey, "k1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, KeySDKKey, "k2"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	v, ok, err := s.Get(ctx, KeySDKKey)
	if err != nil || !ok || v != "k2" {
		t.Fatalf("Get=%q ok=%v err=%v", v, ok, err)
	}
	if err := s.Delete(ctx, KeySDKKey); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, KeySDKKey); ok {
		t.Fatalf("key survived Delete")
	}
	if err := s.Delete(ctx, "never-set"); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestSQLite(t *testing.T) {
	p := filepath.Join(t.TempDir(), "kv.db")
	s, err := OpenSQLite(testCtx(t), p)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	exerciseStore(t, s)
	if err := s.Set(testCtx(t), KeyUserID, "u1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	s2, err := OpenSQLite(testCtx(t), p)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	if v, ok, err := s2.Get(testCtx(t), KeyUserID); err != nil || !ok || v != "u1" {
		t.Fatalf("value lost across reopen: %q ok=%v err=%v", v, ok, err)
	}
}

func TestOpen(t *testing.T) {
	s, err := Open(testCtx(t), Options{})
	if err != nil {
		t.Fatalf("Open memory: %v", err)
	}
	if _, ok := s.(*Memory); !ok {
		t.Fatalf("default backend=%T", s)
	}
	p := filepath.Join(t.TempDir(), "nested", "kv.db")
	s, err = Open(testCtx(t), Options{Kind: "sqlite", Path: p})
	if err != nil {
		t.Fatalf("Open sqlite: %v", err)
	}
	_ = s.Close()
	if _, err := Open(testCtx(t), Options{Kind: "etcd"}); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
	if _, err := Open(testCtx(t), Options{Kind: "redis"}); err == nil {
		t.Fatalf("expected error for empty redis url")
	}
}
