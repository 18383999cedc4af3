package models

import (
	"fmt"
	"strings"
	"time"
)

// Window is a trailing time window for P&L and volume aggregation.
type Window string

const (
	Window24h Window = "24h"
	Window7d  Window = "7d"
	Window30d Window = "30d"
	WindowAll Window = "all"
)

// Windows returns the supported windows in canonical display order.
func Windows() []Window {
	return []Window{Window24h, Window7d, Window30d, WindowAll}
}

// ParseWindow normalizes a window label. The four canonical labels are
// accepted case-insensitively; anything else is rejected.
func ParseWindow(s string) (Window, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "24h":
		return Window24h, nil
	case "7d":
		return Window7d, nil
	case "30d":
		return Window30d, nil
	case "all":
		return WindowAll, nil
	default:
		return "", fmt.Errorf("unknown window %q (want 24h, 7d, 30d or all)", s)
	}
}

// CutoffTime returns the inclusive lower bound of the window ending at now.
// The all-time window has no bound and returns the zero time.
func (w Window) CutoffTime(now time.Time) time.Time {
	switch w {
	case Window24h:
		return now.Add(-24 * time.Hour)
	case Window7d:
		return now.Add(-7 * 24 * time.Hour)
	case Window30d:
		return now.Add(-30 * 24 * time.Hour)
	default:
		return time.Time{}
	}
}

// Contains reports whether t falls inside the window ending at now.
func (w Window) Contains(t, now time.Time) bool {
	if w == WindowAll {
		return true
	}
	return !t.Before(w.CutoffTime(now))
}
