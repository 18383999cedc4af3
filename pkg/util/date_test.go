package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestMillisToTime(t *testing.T) {
	want := time.Date(2024, 10, 10, 10, 10, 10, 500_000_000, time.UTC)
	got := MillisToTime(want.UnixMilli())
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestShortAddress(t *testing.T) {
	addr := "0x1111111111111111111111111111111111111111"
	got := ShortAddress(addr)
	if got != "0x1111..1111" {
		t.Fatalf("unexpected short address %q", got)
	}
	if ShortAddress("0xabc") != "0xabc" {
		t.Fatalf("short input must pass through")
	}
}
