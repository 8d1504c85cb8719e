package main

import "testing"

func TestRun_BadFlags(t *testing.T) {
	if code := run([]string{"--port", "notaport"}); code != 2 {
		t.Fatalf("code=%d", code)
	}
}

func TestSplitCSV(t *testing.T) {
	got := splitCSV("a, b,,c")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("got %v", got)
	}
}
