package annotation

import (
	"testing"

	"github.com/seonyeomin-rgb/md-feedback/internal/checksum"
)

func TestResolveAnchor_ExactPosition(t *testing.T) {
	lines := []string{"alpha", "beta", "gamma"}
	idx, ok := ResolveAnchor(NewAnchor(1, "beta"), "", lines)
	if !ok || idx != 1 {
		t.Errorf("got (%d, %v), want (1, true)", idx, ok)
	}
}

func TestResolveAnchor_StableUnderInsertion(t *testing.T) {
	// Anchor recorded against line 6 (0-based 5), then 4 lines inserted
	// above: the hash probe must find the shifted line.
	original := []string{"a", "b", "c", "d", "e", "the target line"}
	anchor := NewAnchor(5, "the target line")

	edited := append([]string{"n1", "n2", "n3", "n4"}, original...)
	idx, ok := ResolveAnchor(anchor, "", edited)
	if !ok || idx != 9 {
		t.Errorf("got (%d, %v), want (9, true)", idx, ok)
	}
}

func TestResolveAnchor_StableUnderDeletion(t *testing.T) {
	anchor := NewAnchor(5, "the target line")
	edited := []string{"a", "b", "the target line"}
	idx, ok := ResolveAnchor(anchor, "", edited)
	if !ok || idx != 2 {
		t.Errorf("got (%d, %v), want (2, true)", idx, ok)
	}
}

func TestResolveAnchor_NearestMatchWins(t *testing.T) {
	// The same content appears twice; the probe widens distance by
	// distance, so the duplicate nearest the stale position wins.
	lines := []string{"dup", "x", "y", "dup", "z"}
	anchor := "L3|" + checksum.Line("dup")
	idx, ok := ResolveAnchor(anchor, "", lines)
	if !ok || idx != 3 {
		t.Errorf("got (%d, %v), want (3, true)", idx, ok)
	}
}

func TestResolveAnchor_TextFallback(t *testing.T) {
	lines := []string{"one", "contains the excerpt here", "three"}
	idx, ok := ResolveAnchor("L9|deadbeef", "the excerpt", lines)
	if !ok || idx != 1 {
		t.Errorf("got (%d, %v), want (1, true)", idx, ok)
	}
}

func TestResolveAnchor_TextFallbackWithoutAnchor(t *testing.T) {
	lines := []string{"one", "two"}
	idx, ok := ResolveAnchor("", "two", lines)
	if !ok || idx != 1 {
		t.Errorf("got (%d, %v), want (1, true)", idx, ok)
	}
}

func TestResolveAnchor_Unresolved(t *testing.T) {
	if _, ok := ResolveAnchor("L2|00000000", "gone forever", []string{"a", "b"}); ok {
		t.Error("expected unresolved")
	}
	if _, ok := ResolveAnchor("", "", []string{"a"}); ok {
		t.Error("empty locator must not resolve")
	}
}

func TestResolveAnchor_RangeForm(t *testing.T) {
	lines := []string{"alpha", "beta", "gamma"}
	anchor := "L2:L3|" + checksum.Line("beta")
	idx, ok := ResolveAnchor(anchor, "", lines)
	if !ok || idx != 1 {
		t.Errorf("got (%d, %v), want (1, true)", idx, ok)
	}
}

func TestResolveAnchor_BeyondProbeRadiusFallsThrough(t *testing.T) {
	lines := make([]string, 30)
	for i := range lines {
		lines[i] = "filler"
	}
	lines[25] = "needle"
	// Stale position 1 is 24 lines away from the needle: outside the
	// probe radius, so only the text fallback can find it.
	anchor := "L1|" + checksum.Line("needle")
	if _, ok := ResolveAnchor(anchor, "", lines); ok {
		t.Error("hash probe should not reach distance 24")
	}
	idx, ok := ResolveAnchor(anchor, "needle", lines)
	if !ok || idx != 25 {
		t.Errorf("got (%d, %v), want (25, true)", idx, ok)
	}
}

func TestParseAnchorRef_Malformed(t *testing.T) {
	for _, bad := range []string{"", "L2", "|abcd1234", "X2|abcd1234", "L0|abcd1234", "Lx|abcd1234", "L2|"} {
		if _, _, ok := parseAnchorRef(bad); ok {
			t.Errorf("parseAnchorRef(%q) accepted", bad)
		}
	}
}
