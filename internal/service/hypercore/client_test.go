package hypercore

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"HyperTrack/pkg/apperror"
	"HyperTrack/pkg/cache"
)

const testAddress = "0x1111111111111111111111111111111111111111"

type infoRequest struct {
	Type string `json:"type"`
	User string `json:"user"`
}

func infoServer(t *testing.T, calls *int64, respond func(req infoRequest) (int, string)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(calls, 1)

		var req infoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode info request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		status, body := respond(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
}

func testClient(endpoint string, cacheSvc cache.Service) *Client {
	return NewClient(Config{
		Endpoint:  endpoint,
		Timeout:   2 * time.Second,
		CacheTTL:  time.Minute,
		RateLimit: 1000,
		Burst:     1000,
	}, cacheSvc)
}

func TestFetchBalances(t *testing.T) {
	var calls int64
	srv := infoServer(t, &calls, func(req infoRequest) (int, string) {
		if req.Type != "spotClearinghouseState" {
			t.Errorf("unexpected query type %q", req.Type)
		}
		if req.User != testAddress {
			t.Errorf("unexpected user %q", req.User)
		}
		return http.StatusOK, `{"balances":[{"coin":"HYPE","total":"12.5"},{"coin":"USDC","total":"1000"}]}`
	})
	defer srv.Close()

	balances, err := testClient(srv.URL, nil).FetchBalances(context.Background(), testAddress)
	if err != nil {
		t.Fatalf("FetchBalances: %v", err)
	}
	if len(balances) != 2 {
		t.Fatalf("expected 2 balances, got %d", len(balances))
	}
	if balances[0].Token != "HYPE" || balances[0].Amount.String() != "12.5" {
		t.Errorf("unexpected first balance: %+v", balances[0])
	}
	if balances[1].Token != "USDC" || balances[1].Amount.String() != "1000" {
		t.Errorf("unexpected second balance: %+v", balances[1])
	}
}

func TestFetchBalancesRejectsMalformedAddressBeforeNetwork(t *testing.T) {
	var calls int64
	srv := infoServer(t, &calls, func(infoRequest) (int, string) {
		return http.StatusOK, `{"balances":[]}`
	})
	defer srv.Close()

	c := testClient(srv.URL, nil)
	for _, addr := range []string{"", "nothex", "0x1234", testAddress + "ff"} {
		_, err := c.FetchBalances(context.Background(), addr)
		if err == nil {
			t.Fatalf("expected error for address %q", addr)
		}
		if !apperror.IsKind(err, apperror.KindValidation) {
			t.Errorf("address %q: expected validation error, got %v", addr, err)
		}
	}
	if n := atomic.LoadInt64(&calls); n != 0 {
		t.Errorf("expected no network calls for malformed addresses, got %d", n)
	}
}

func TestFetchBalancesBadAmount(t *testing.T) {
	var calls int64
	srv := infoServer(t, &calls, func(infoRequest) (int, string) {
		return http.StatusOK, `{"balances":[{"coin":"HYPE","total":"not-a-number"}]}`
	})
	defer srv.Close()

	_, err := testClient(srv.URL, nil).FetchBalances(context.Background(), testAddress)
	if err == nil {
		t.Fatal("expected error for unparseable amount")
	}
	if !apperror.IsKind(err, apperror.KindData) {
		t.Errorf("expected data error, got %v", err)
	}
}

func TestFetchBalancesUpstreamFailure(t *testing.T) {
	var calls int64
	srv := infoServer(t, &calls, func(infoRequest) (int, string) {
		return http.StatusBadGateway, `upstream down`
	})
	defer srv.Close()

	_, err := testClient(srv.URL, nil).FetchBalances(context.Background(), testAddress)
	if err == nil {
		t.Fatal("expected error for 502 response")
	}
	if !apperror.IsKind(err, apperror.KindNetwork) {
		t.Errorf("expected network error, got %v", err)
	}
}

func TestFetchStakingDelegationsList(t *testing.T) {
	var calls int64
	srv := infoServer(t, &calls, func(req infoRequest) (int, string) {
		if req.Type != "delegations" {
			t.Errorf("unexpected query type %q", req.Type)
		}
		return http.StatusOK, `[
			{"validator":"val-a","amount":"100.5","rewards":"0.25"},
			{"validator":"val-b","amount":"50"}
		]`
	})
	defer srv.Close()

	positions, err := testClient(srv.URL, nil).FetchStaking(context.Background(), testAddress)
	if err != nil {
		t.Fatalf("FetchStaking: %v", err)
	}
	if len(positions) != 2 {
		t.Fatalf("expected 2 positions, got %d", len(positions))
	}
	if positions[0].Validator != "val-a" || positions[0].Delegated.String() != "100.5" {
		t.Errorf("unexpected first position: %+v", positions[0])
	}
	if positions[0].Rewards.String() != "0.25" {
		t.Errorf("expected rewards 0.25, got %s", positions[0].Rewards)
	}
	if !positions[1].Rewards.IsZero() {
		t.Errorf("expected zero rewards for val-b, got %s", positions[1].Rewards)
	}
	if n := atomic.LoadInt64(&calls); n != 1 {
		t.Errorf("expected 1 call when delegations list is populated, got %d", n)
	}
}

func TestFetchStakingSummaryFallback(t *testing.T) {
	var calls int64
	srv := infoServer(t, &calls, func(req infoRequest) (int, string) {
		switch req.Type {
		case "delegations":
			return http.StatusOK, `[]`
		case "delegatorSummary":
			return http.StatusOK, `{"delegated":"321.75"}`
		default:
			t.Errorf("unexpected query type %q", req.Type)
			return http.StatusBadRequest, `{}`
		}
	})
	defer srv.Close()

	positions, err := testClient(srv.URL, nil).FetchStaking(context.Background(), testAddress)
	if err != nil {
		t.Fatalf("FetchStaking: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("expected 1 aggregate position, got %d", len(positions))
	}
	if positions[0].Validator != "(total)" || positions[0].Delegated.String() != "321.75" {
		t.Errorf("unexpected aggregate position: %+v", positions[0])
	}
	if n := atomic.LoadInt64(&calls); n != 2 {
		t.Errorf("expected 2 calls for summary fallback, got %d", n)
	}
}

func TestFetchStakingNothingDelegated(t *testing.T) {
	var calls int64
	srv := infoServer(t, &calls, func(req infoRequest) (int, string) {
		if req.Type == "delegations" {
			return http.StatusOK, `[]`
		}
		return http.StatusOK, `{"delegated":"0.0"}`
	})
	defer srv.Close()

	positions, err := testClient(srv.URL, nil).FetchStaking(context.Background(), testAddress)
	if err != nil {
		t.Fatalf("FetchStaking: %v", err)
	}
	if len(positions) != 0 {
		t.Errorf("expected no positions, got %+v", positions)
	}
}

func TestFetchFills(t *testing.T) {
	var calls int64
	srv := infoServer(t, &calls, func(req infoRequest) (int, string) {
		if req.Type != "userFills" {
			t.Errorf("unexpected query type %q", req.Type)
		}
		return http.StatusOK, `[
			{"time":1700000000000,"coin":"HYPE","side":"B","sz":"10","px":"2.5","fee":"0.01","closedPnl":"1.5"},
			{"time":1700000060000,"coin1":"PURR","side":"A","sz":"4","px":"0.5"},
			{"time":1700000120000,"coin":"HYPE","dir":"Open Long","sz":"1","px":"3"},
			{"time":1700000180000,"coin":"HYPE","side":"X","dir":"mystery","sz":"2","px":"3"}
		]`
	})
	defer srv.Close()

	fills, err := testClient(srv.URL, nil).FetchFills(context.Background(), testAddress)
	if err != nil {
		t.Fatalf("FetchFills: %v", err)
	}
	if len(fills) != 4 {
		t.Fatalf("expected 4 fills, got %d", len(fills))
	}

	first := fills[0]
	if got := first.Time.UnixMilli(); got != 1700000000000 {
		t.Errorf("expected millisecond timestamp preserved, got %d", got)
	}
	if first.Token != "HYPE" || first.Side != "buy" {
		t.Errorf("unexpected first fill: %+v", first)
	}
	if !first.HasClosedPnL || first.ClosedPnL.String() != "1.5" {
		t.Errorf("expected closed pnl 1.5, got %+v", first)
	}
	if first.Fee.String() != "0.01" {
		t.Errorf("expected fee 0.01, got %s", first.Fee)
	}

	second := fills[1]
	if second.Token != "PURR" {
		t.Errorf("expected coin1 fallback, got %q", second.Token)
	}
	if second.Side != "sell" {
		t.Errorf("expected sell side, got %q", second.Side)
	}
	if second.HasClosedPnL {
		t.Error("expected no closed pnl on second fill")
	}
	if !second.Fee.IsZero() {
		t.Errorf("expected zero fee default, got %s", second.Fee)
	}

	if fills[2].Side != "buy" {
		t.Errorf("expected dir fallback to buy, got %q", fills[2].Side)
	}
	if fills[3].Side != "X" {
		t.Errorf("expected unknown side kept as-is, got %q", fills[3].Side)
	}
}

func TestResponseCache(t *testing.T) {
	var calls int64
	srv := infoServer(t, &calls, func(infoRequest) (int, string) {
		return http.StatusOK, `{"balances":[{"coin":"HYPE","total":"7"}]}`
	})
	defer srv.Close()

	c := testClient(srv.URL, cache.NewMemoryCache())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		balances, err := c.FetchBalances(ctx, testAddress)
		if err != nil {
			t.Fatalf("FetchBalances call %d: %v", i, err)
		}
		if len(balances) != 1 || balances[0].Amount.String() != "7" {
			t.Fatalf("call %d: unexpected balances %+v", i, balances)
		}
	}

	if n := atomic.LoadInt64(&calls); n != 1 {
		t.Errorf("expected 1 upstream call across 3 fetches, got %d", n)
	}
}
