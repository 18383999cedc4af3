package models

import (
	"testing"
	"time"
)

func TestParseWindow(t *testing.T) {
	accept := map[string]Window{
		"24h":  Window24h,
		"24H":  Window24h,
		"7d":   Window7d,
		" 7D ": Window7d,
		"30d":  Window30d,
		"all":  WindowAll,
		"ALL":  WindowAll,
	}
	for in, want := range accept {
		got, err := ParseWindow(in)
		if err != nil {
			t.Fatalf("ParseWindow(%q) returned error: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseWindow(%q) = %q, want %q", in, got, want)
		}
	}

	for _, in := range []string{"", "1w", "25h", "7", "d7", "alltime"} {
		if _, err := ParseWindow(in); err == nil {
			t.Fatalf("ParseWindow(%q) should have been rejected", in)
		}
	}
}

func TestWindowsOrder(t *testing.T) {
	got := Windows()
	want := []Window{Window24h, Window7d, Window30d, WindowAll}
	if len(got) != len(want) {
		t.Fatalf("Windows() returned %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Windows()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCutoffOrdering(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	c24 := Window24h.CutoffTime(now)
	c7 := Window7d.CutoffTime(now)
	c30 := Window30d.CutoffTime(now)
	call := WindowAll.CutoffTime(now)

	if !c24.After(c7) || !c7.After(c30) {
		t.Fatalf("cutoffs out of order: 24h=%v 7d=%v 30d=%v", c24, c7, c30)
	}
	if !call.IsZero() {
		t.Fatalf("all-time cutoff should be zero, got %v", call)
	}
	if got := now.Sub(c24); got != 24*time.Hour {
		t.Fatalf("24h cutoff distance = %v", got)
	}
	if got := now.Sub(c30); got != 30*24*time.Hour {
		t.Fatalf("30d cutoff distance = %v", got)
	}
}

func TestWindowContains(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	inside := now.Add(-23 * time.Hour)
	outside := now.Add(-25 * time.Hour)
	ancient := now.AddDate(-3, 0, 0)

	if !Window24h.Contains(inside, now) {
		t.Fatalf("expected %v inside 24h window", inside)
	}
	if Window24h.Contains(outside, now) {
		t.Fatalf("expected %v outside 24h window", outside)
	}
	if !Window7d.Contains(outside, now) {
		t.Fatalf("expected %v inside 7d window", outside)
	}
	if !WindowAll.Contains(ancient, now) {
		t.Fatalf("all window must contain every time")
	}
	// Cutoff boundary is inclusive.
	if !Window24h.Contains(now.Add(-24*time.Hour), now) {
		t.Fatalf("cutoff instant should be inside the window")
	}
}
