package bridge

import (
	"errors"
	"testing"
)

func TestEntryPoint_Order(t *testing.T) {
	want := []string{"unknown", "other", "main_menu", "hud", "exit", "fail", "complete", "inbox", "initialisation", "store"}
	eps := EntryPoints()
	if len(eps) != len(want) {
		t.Fatalf("len=%d", len(eps))
	}
	for i, e := range eps {
		if int(e) != i || e.String() != want[i] {
			t.Fatalf("entry %d = %d/%s", i, int(e), e)
		}
	}
}

func TestParseEntryPoint(t *testing.T) {
	for in, want := range map[string]EntryPoint{
		"main_menu": EntryPointMainMenu,
		"mainMenu":  EntryPointMainMenu,
		"HUD":       EntryPointHUD,
		"9":         EntryPointStore,
	} {
		got, err := ParseEntryPoint(in)
		if err != nil || got != want {
			t.Fatalf("ParseEntryPoint(%q)=%s err=%v", in, got, err)
		}
	}
	if _, err := ParseEntryPoint("lobby"); !errors.Is(err, ErrInvalidEntryPoint) {
		t.Fatalf("lobby: %v", err)
	}
	if _, err := ParseEntryPoint("10"); !IsInvalidInput(err) {
		t.Fatalf("10: %v", err)
	}
}

func TestSegment(t *testing.T) {
	if SegmentNonPayer != 0 || SegmentPayer != 1 || SegmentVIP != 2 {
		t.Fatalf("segment codes changed")
	}
	s, err := ParseSegment("non_payer")
	if err != nil || s != SegmentNonPayer {
		t.Fatalf("ParseSegment: %v %v", s, err)
	}
	if _, err := ParseSegment("whale"); !errors.Is(err, ErrInvalidSegment) {
		t.Fatalf("whale: %v", err)
	}
	if Segment(-1).String() != "unknown" {
		t.Fatalf("unset segment string=%q", Segment(-1).String())
	}
}

func TestStatus(t *testing.T) {
	if StatusFalse != 0 || StatusTrue != 1 || StatusUnknown != 2 {
		t.Fatalf("status codes changed")
	}
	if s, ok := ParseStatus("TRUE"); !ok || s != StatusTrue {
		t.Fatalf("ParseStatus(TRUE)=%v %v", s, ok)
	}
	if _, ok := ParseStatus("maybe"); ok {
		t.Fatalf("maybe should not parse")
	}
}
