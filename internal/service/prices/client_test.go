package prices

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"HyperTrack/pkg/apperror"
	"HyperTrack/pkg/cache"
)

type feedPrice struct {
	Price string
	Expo  int32
}

func hermesServer(t *testing.T, calls *int64, table map[string]feedPrice) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(calls, 1)

		type wirePrice struct {
			Price string `json:"price"`
			Expo  int32  `json:"expo"`
		}
		type wireEntry struct {
			ID    string    `json:"id"`
			Price wirePrice `json:"price"`
		}

		parsed := make([]wireEntry, 0, 4)
		for _, id := range r.URL.Query()["ids[]"] {
			norm := normalizeFeedID(id)
			fp, ok := table[norm]
			if !ok {
				continue
			}
			parsed = append(parsed, wireEntry{ID: norm, Price: wirePrice{Price: fp.Price, Expo: fp.Expo}})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"parsed": parsed})
	}))
}

func testClient(t *testing.T, endpoint string, cacheSvc cache.Service) *Client {
	t.Helper()
	c, err := NewClient(Config{
		Endpoint: endpoint,
		Timeout:  2 * time.Second,
		CacheTTL: time.Minute,
	}, cacheSvc)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestFetchPricesSingleBatchedRequest(t *testing.T) {
	var calls int64
	srv := hermesServer(t, &calls, map[string]feedPrice{
		normalizeFeedID(defaultFeeds["HYPE"]): {Price: "4275000000", Expo: -8},
		normalizeFeedID(defaultFeeds["BTC"]):  {Price: "6412345678901", Expo: -8},
	})
	defer srv.Close()

	got, err := testClient(t, srv.URL, nil).FetchPrices(context.Background(),
		[]string{"HYPE", "BTC", "hype", "USDC", "NOSUCHTOKEN"})
	if err != nil {
		t.Fatalf("FetchPrices: %v", err)
	}

	if n := atomic.LoadInt64(&calls); n != 1 {
		t.Errorf("expected exactly 1 upstream request, got %d", n)
	}
	if got["HYPE"].String() != "42.75" {
		t.Errorf("expected HYPE 42.75, got %s", got["HYPE"])
	}
	if got["BTC"].String() != "64123.45678901" {
		t.Errorf("expected BTC 64123.45678901, got %s", got["BTC"])
	}
	if got["USDC"].String() != "1" {
		t.Errorf("expected static USDC 1, got %s", got["USDC"])
	}
	if _, ok := got["NOSUCHTOKEN"]; ok {
		t.Error("expected unknown symbol to be omitted")
	}
	if len(got) != 3 {
		t.Errorf("expected 3 priced symbols, got %d: %v", len(got), got)
	}
}

func TestFetchPricesStaticOnlyNoRequest(t *testing.T) {
	var calls int64
	srv := hermesServer(t, &calls, nil)
	defer srv.Close()

	got, err := testClient(t, srv.URL, nil).FetchPrices(context.Background(), []string{"USDC", "USDT"})
	if err != nil {
		t.Fatalf("FetchPrices: %v", err)
	}
	if n := atomic.LoadInt64(&calls); n != 0 {
		t.Errorf("expected no upstream requests for static symbols, got %d", n)
	}
	if got["USDT"].String() != "1" {
		t.Errorf("expected static USDT 1, got %s", got["USDT"])
	}
}

func TestFetchPricesCacheHit(t *testing.T) {
	var calls int64
	srv := hermesServer(t, &calls, map[string]feedPrice{
		normalizeFeedID(defaultFeeds["HYPE"]): {Price: "300", Expo: -2},
	})
	defer srv.Close()

	c := testClient(t, srv.URL, cache.NewMemoryCache())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := c.FetchPrices(ctx, []string{"HYPE"})
		if err != nil {
			t.Fatalf("FetchPrices call %d: %v", i, err)
		}
		if got["HYPE"].String() != "3" {
			t.Fatalf("call %d: expected HYPE 3, got %s", i, got["HYPE"])
		}
	}

	if n := atomic.LoadInt64(&calls); n != 1 {
		t.Errorf("expected 1 upstream request across 3 fetches, got %d", n)
	}
}

func TestFetchPricesUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL, nil).FetchPrices(context.Background(), []string{"HYPE"})
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if !apperror.IsKind(err, apperror.KindNetwork) {
		t.Errorf("expected network error, got %v", err)
	}
}

func TestFetchPricesBadMantissa(t *testing.T) {
	var calls int64
	srv := hermesServer(t, &calls, map[string]feedPrice{
		normalizeFeedID(defaultFeeds["HYPE"]): {Price: "garbage", Expo: -8},
	})
	defer srv.Close()

	_, err := testClient(t, srv.URL, nil).FetchPrices(context.Background(), []string{"HYPE"})
	if err == nil {
		t.Fatal("expected error for unparseable mantissa")
	}
	if !apperror.IsKind(err, apperror.KindData) {
		t.Errorf("expected data error, got %v", err)
	}
}

func TestNewClientRejectsBadStaticPrice(t *testing.T) {
	_, err := NewClient(Config{
		Endpoint: "http://localhost:9",
		Static:   map[string]string{"FOO": "abc"},
	}, nil)
	if err == nil {
		t.Fatal("expected error for unparseable static price")
	}
	if !apperror.IsKind(err, apperror.KindConfig) {
		t.Errorf("expected config error, got %v", err)
	}
}

func TestConfigOverridesDefaults(t *testing.T) {
	var calls int64
	customFeed := "0x" + "ab12" + "00000000000000000000000000000000000000000000000000000000ffff"
	srv := hermesServer(t, &calls, map[string]feedPrice{
		normalizeFeedID(customFeed): {Price: "5", Expo: 0},
	})
	defer srv.Close()

	c, err := NewClient(Config{
		Endpoint: srv.URL,
		Timeout:  2 * time.Second,
		Feeds:    map[string]string{"purr": customFeed},
		Static:   map[string]string{"hype": "9.5"},
	}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	got, err := c.FetchPrices(context.Background(), []string{"PURR", "HYPE"})
	if err != nil {
		t.Fatalf("FetchPrices: %v", err)
	}
	if got["PURR"].String() != "5" {
		t.Errorf("expected PURR 5 from config feed, got %s", got["PURR"])
	}
	if got["HYPE"].String() != "9.5" {
		t.Errorf("expected HYPE 9.5 from static override, got %s", got["HYPE"])
	}

	if !c.Priced("purr") || !c.Priced("USDC") || c.Priced("NOPE") {
		t.Error("Priced gave wrong answers")
	}
}
