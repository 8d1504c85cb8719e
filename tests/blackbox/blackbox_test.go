package blackbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// findFreePort picks an available TCP port on localhost.
func findFreePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func projectRootFromThisFile(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	// this file: <root>/tests/blackbox/blackbox_test.go
	return filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
}

func buildBinary(t *testing.T, pkg string) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping binary build in -short mode")
	}
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go toolchain not on PATH")
	}
	binPath := filepath.Join(t.TempDir(), filepath.Base(pkg))
	cmd := exec.Command("go", "build", "-o", binPath, pkg)
	cmd.Dir = projectRootFromThisFile(t)
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("go build %s failed: %v\n%s", pkg, err, string(out))
	}
	return binPath
}

type serverProc struct {
	cmd  *exec.Cmd
	base string // http base URL, e.g. http://127.0.0.1:18080
}

func startServer(t *testing.T, bin string, args ...string) *serverProc {
	t.Helper()
	port := findFreePort(t)
	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	cmd := exec.Command(bin, append([]string{"-addr", fmt.Sprintf("127.0.0.1:%d", port)}, args...)...)
	cmd.Env = append(os.Environ(), "TJBRIDGE_KEYSTORE=memory")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Signal(os.Interrupt)
		done := make(chan struct{})
		go func() { _ = cmd.Wait(); close(done) }()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			_ = cmd.Process.Kill()
		}
	})
	deadline := time.Now().Add(10 * time.Second)
	for {
		resp, err := http.Get(base + "/healthz")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not become healthy in time")
		}
		time.Sleep(50 * time.Millisecond)
	}
	return &serverProc{cmd: cmd, base: base}
}

func do(t *testing.T, method, url string, payload string) (*http.Response, []byte) {
	t.Helper()
	var body io.Reader
	if payload != "" {
		body = bytes.NewReader([]byte(payload))
	}
	req, err := http.NewRequestWithContext(context.Background(), method, url, body)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	if payload != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}

func waitReady(t *testing.T, base string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, _ := do(t, http.MethodGet, base+"/readyz", "")
		if resp.StatusCode == http.StatusOK {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("/readyz did not become ready in time; last=%d", resp.StatusCode)
		}
		time.Sleep(25 * time.Millisecond)
	}
}

func placementFlow(t *testing.T, base string) {
	t.Helper()
	resp, body := do(t, http.MethodPost, base+"/connect", `{"sdk_key":"blackbox"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/connect %d %s", resp.StatusCode, body)
	}
	resp, body = do(t, http.MethodPost, base+"/placements/level_complete/request", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("request %d %s", resp.StatusCode, body)
	}
	var op struct {
		Notification string `json:"notification"`
	}
	if err := json.Unmarshal(body, &op); err != nil || op.Notification != "contentIsReady" {
		t.Fatalf("request body=%s err=%v", body, err)
	}
	resp, body = do(t, http.MethodPost, base+"/placements/level_complete/show", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "contentDidDisappear") {
		t.Fatalf("show %d %s", resp.StatusCode, body)
	}
}

func TestBlackbox_SimulatedFlow(t *testing.T) {
	bin := buildBinary(t, "./cmd/tjbridged")
	sp := startServer(t, bin, "-simulate")
	waitReady(t, sp.base)

	placementFlow(t, sp.base)

	resp, body := do(t, http.MethodGet, sp.base+"/status", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/status %d %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("/status content-type=%s", ct)
	}
	var st struct {
		Connected  bool  `json:"connected"`
		Placements []any `json:"placements"`
	}
	if err := json.Unmarshal(body, &st); err != nil || !st.Connected || len(st.Placements) != 1 {
		t.Fatalf("/status body=%s err=%v", body, err)
	}

	_, body = do(t, http.MethodGet, sp.base+"/metrics", "")
	if !strings.Contains(string(body), "tjbridge_http_requests_total") {
		t.Fatal("/metrics missing request counter")
	}
}

func TestBlackbox_UnlinkedIOS_503(t *testing.T) {
	bin := buildBinary(t, "./cmd/tjbridged")
	sp := startServer(t, bin, "-platform", "ios")

	resp, body := do(t, http.MethodGet, sp.base+"/currency", "")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d, body=%s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), "pod install") {
		t.Fatalf("missing ios linking hint: %s", body)
	}
}

func TestBlackbox_SpawnedNativeHost(t *testing.T) {
	sim := buildBinary(t, "./cmd/tjsim")
	bin := buildBinary(t, "./cmd/tjbridged")
	sp := startServer(t, bin, "-native-bin", sim)
	waitReady(t, sp.base)
	placementFlow(t, sp.base)
}
