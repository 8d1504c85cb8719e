package bridge

import (
	"strconv"
	"strings"
)

// EntryPoint tells the SDK where in the app a placement is shown. The
// numeric values are the indices the native side expects; the order is
// fixed.
type EntryPoint int

const (
	EntryPointUnknown EntryPoint = iota
	EntryPointOther
	EntryPointMainMenu
	EntryPointHUD
	EntryPointExit
	EntryPointFail
	EntryPointComplete
	EntryPointInbox
	EntryPointInitialisation
	EntryPointStore
)

var entryPointNames = [...]string{
	"unknown",
	"other",
	"main_menu",
	"hud",
	"exit",
	"fail",
	"complete",
	"inbox",
	"initialisation",
	"store",
}

// EntryPoints lists every entry point in index order.
func EntryPoints() []EntryPoint {
	out := make([]EntryPoint, len(entryPointNames))
	for i := range out {
		out[i] = EntryPoint(i)
	}
	return out
}

// Valid reports whether e is one of the enumerated entry points.
func (e EntryPoint) Valid() bool { return e >= 0 && int(e) < len(entryPointNames) }

func (e EntryPoint) String() string {
	if !e.Valid() {
		return "entry_point(" + strconv.Itoa(int(e)) + ")"
	}
	return entryPointNames[e]
}

// ParseEntryPoint accepts a name (main_menu, mainMenu, MAIN_MENU) or an
// index.
func ParseEntryPoint(s string) (EntryPoint, error) {
	key := normalizeName(s)
	for i, n := range entryPointNames {
		if normalizeName(n) == key {
			return EntryPoint(i), nil
		}
	}
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && EntryPoint(n).Valid() {
		return EntryPoint(n), nil
	}
	return 0, invalid(ErrInvalidEntryPoint, s)
}

// Segment is the user's monetization category.
type Segment int

const (
	SegmentNonPayer Segment = 0
	SegmentPayer    Segment = 1
	SegmentVIP      Segment = 2
)

// Valid reports whether s is one of the three enumerated codes. The SDK
// may still report other values, e.g. -1 while the segment is unset.
func (s Segment) Valid() bool { return s >= SegmentNonPayer && s <= SegmentVIP }

func (s Segment) String() string {
	switch s {
	case SegmentNonPayer:
		return "non_payer"
	case SegmentPayer:
		return "payer"
	case SegmentVIP:
		return "vip"
	}
	return "unknown"
}

// ParseSegment accepts non_payer, payer, vip or their codes.
func ParseSegment(v string) (Segment, error) {
	switch normalizeName(v) {
	case "nonpayer", "0":
		return SegmentNonPayer, nil
	case "payer", "1":
		return SegmentPayer, nil
	case "vip", "2":
		return SegmentVIP, nil
	}
	return 0, invalid(ErrInvalidSegment, v)
}

// Status is the tri-state consent value used by the privacy policy.
type Status int

const (
	StatusFalse   Status = 0
	StatusTrue    Status = 1
	StatusUnknown Status = 2
)

func (s Status) String() string {
	switch s {
	case StatusFalse:
		return "false"
	case StatusTrue:
		return "true"
	}
	return "unknown"
}

// ParseStatus accepts true/false/unknown (and 1/0/2).
func ParseStatus(v string) (Status, bool) {
	switch normalizeName(v) {
	case "true", "1", "yes":
		return StatusTrue, true
	case "false", "0", "no":
		return StatusFalse, true
	case "unknown", "2":
		return StatusUnknown, true
	}
	return StatusUnknown, false
}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(s)
}
