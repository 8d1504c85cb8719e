package native

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

// buildFakeHost compiles testdata/fake_native_host.go into a temp dir.
func buildFakeHost(t *testing.T) string {
	t.Helper()
	bin := filepath.Join(t.TempDir(), "fake_native_host")
	cmd := exec.Command("go", "build", "-o", bin, "./testdata/fake_native_host.go")
	cmd.Dir = "."
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("build fake host: %v: %s", err, string(out))
	}
	return bin
}

func TestSpawn_StartCallStop(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	bin := buildFakeHost(t)
	mod, sp, err := Spawn(testCtx(t), SpawnConfig{Bin: bin, Host: "127.0.0.1", PortStart: 31400, PortEnd: 31420, ReadyTimeout: 10 * time.Second}, HTTPOptions{})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if sp.PID() == 0 {
		t.Fatalf("expected pid")
	}
	raw, err := mod.Invoke(testCtx(t), Call{Method: "isConnected"})
	if err != nil || string(raw) != "true" {
		t.Fatalf("raw=%s err=%v", raw, err)
	}
	if err := mod.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if sp.PID() != 0 {
		t.Fatalf("expected process to be stopped")
	}
}

func TestSpawn_EmptyBinary(t *testing.T) {
	if _, _, err := Spawn(testCtx(t), SpawnConfig{}, HTTPOptions{}); err == nil {
		t.Fatalf("expected error for empty binary")
	}
}

func TestSpawn_ExitEarly(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	falseBin, err := exec.LookPath("false")
	if err != nil {
		t.Skip("no false binary")
	}
	if _, _, err := Spawn(testCtx(t), SpawnConfig{Bin: falseBin, ReadyTimeout: 5 * time.Second}, HTTPOptions{}); err == nil {
		t.Fatalf("expected early exit error")
	}
}

func TestPickPortInRange(t *testing.T) {
	p, err := pickPortInRange("127.0.0.1", 31500, 31510)
	if err != nil {
		t.Fatalf("pick: %v", err)
	}
	if p < 31500 || p > 31510 {
		t.Fatalf("port %d out of range", p)
	}
}
