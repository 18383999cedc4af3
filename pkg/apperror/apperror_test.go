package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindThroughWrapChain(t *testing.T) {
	base := Network("hypercore", "request timed out")
	wrapped := fmt.Errorf("fetch balances: %w", base)
	outer := fmt.Errorf("wallet 0xabc: %w", wrapped)

	if !IsKind(outer, KindNetwork) {
		t.Fatalf("expected network kind through wrap chain, got %v", outer)
	}
	if IsKind(outer, KindValidation) {
		t.Fatalf("did not expect validation kind")
	}
	if got := SourceOf(outer); got != "hypercore" {
		t.Fatalf("SourceOf = %q, want %q", got, "hypercore")
	}
}

func TestKindOfPlainError(t *testing.T) {
	if _, ok := KindOf(errors.New("plain")); ok {
		t.Fatalf("plain error should carry no kind")
	}
}

func TestErrorString(t *testing.T) {
	err := Validationf("evmrpc", "malformed wallet address %q", "xyz")
	want := `evmrpc: validation: malformed wallet address "xyz"`
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}

	inner := errors.New("dial tcp: connection refused")
	nerr := Network("prices", "hermes request failed").WithError(inner)
	if !errors.Is(nerr, inner) {
		t.Fatalf("expected wrapped error to satisfy errors.Is")
	}
	want = "prices: network: hermes request failed: dial tcp: connection refused"
	if nerr.Error() != want {
		t.Fatalf("Error() = %q, want %q", nerr.Error(), want)
	}
}

func TestConfigErr(t *testing.T) {
	err := ConfigErr(fmt.Errorf("app.title is required"))
	if !IsKind(err, KindConfig) {
		t.Fatalf("expected config kind")
	}
	if err.Error() != "config: app.title is required" {
		t.Fatalf("Error() = %q", err.Error())
	}
}
