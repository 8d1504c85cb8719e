package tjctl

import (
	"bytes"
	"strings"
	"testing"
)

func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	old := stdout
	buf := &bytes.Buffer{}
	stdout = buf
	t.Cleanup(func() { stdout = old })
	return buf
}

func TestMainWithArgs_NoArgs_ShowsUsageAndExit2(t *testing.T) {
	out := captureStdout(t)
	if code := MainWithArgs([]string{}); code != 2 {
		t.Fatalf("expected exit code 2 for no args, got %d", code)
	}
	if !strings.Contains(out.String(), "Usage: tjctl") {
		t.Fatalf("usage not printed: %q", out.String())
	}
}

func TestMainWithArgs_Help_Exit0(t *testing.T) {
	captureStdout(t)
	if code := MainWithArgs([]string{"placement", "--help"}); code != 0 {
		t.Fatalf("expected exit code 0 for help, got %d", code)
	}
}

func TestMainWithArgs_UnknownCommand_Exit1(t *testing.T) {
	captureStdout(t)
	if code := MainWithArgs([]string{"wat"}); code != 1 {
		t.Fatalf("expected exit code 1 for unknown command, got %d", code)
	}
}

func TestMainWithArgs_GroupWithoutSubcommand_Exit1(t *testing.T) {
	captureStdout(t)
	if code := MainWithArgs([]string{"--addr", "http://127.0.0.1:1", "operation"}); code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a, ,b ,")
	if strings.Join(got, "|") != "a|b" {
		t.Fatalf("splitList=%v", got)
	}
	if got := splitList(""); got == nil || len(got) != 0 {
		t.Fatalf("empty list should be non-nil and empty: %#v", got)
	}
}

func TestParseBool(t *testing.T) {
	for in, want := range map[string]bool{"on": true, "off": false, "true": true, "0": false, "Yes": true} {
		got, err := parseBool(in)
		if err != nil || got != want {
			t.Fatalf("parseBool(%q)=%v,%v", in, got, err)
		}
	}
	if _, err := parseBool("maybe"); err == nil {
		t.Fatal("expected error")
	}
}
