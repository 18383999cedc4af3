package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"HyperTrack/internal/domain/models"
	internalrepo "HyperTrack/internal/repository"
	xlogger "HyperTrack/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

const (
	addrA = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	addrB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

type fakeRefresher struct {
	wallets []models.WalletConfig
	started bool
	calls   int
}

func (f *fakeRefresher) Wallets() []models.WalletConfig { return f.wallets }

func (f *fakeRefresher) TriggerRefresh() bool {
	f.calls++
	return f.started
}

type fakeMetrics struct {
	mu     sync.Mutex
	wsSubs int
}

func (*fakeMetrics) RecordRefresh(string, float64)     {}
func (*fakeMetrics) RecordError(string)                {}
func (*fakeMetrics) RecordWalletValue(string, float64) {}
func (*fakeMetrics) RecordDegraded(int)                {}
func (*fakeMetrics) RecordHistoryWrite(string, int)    {}
func (*fakeMetrics) RecordLatency(string, float64)     {}

func (m *fakeMetrics) RecordWSSubscribers(n int) {
	m.mu.Lock()
	m.wsSubs = n
	m.mu.Unlock()
}

func (m *fakeMetrics) subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wsSubs
}

func testLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func testSet() *models.SnapshotSet {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &models.SnapshotSet{
		Snapshots: []models.WalletSnapshot{
			{
				Wallet: models.WalletConfig{Label: "A", Address: addrA},
				Balances: []models.TokenBalance{
					{Token: "TOKEN", Amount: decimal.NewFromInt(10), USDValue: decimal.NewFromInt(25)},
				},
				TotalUSD:  decimal.NewFromInt(25),
				PnL:       map[models.Window]models.PnLStat{models.Window24h: {Amount: decimal.NewFromInt(5)}},
				Volume:    map[models.Window]decimal.Decimal{models.Window24h: decimal.NewFromInt(100)},
				FetchedAt: now,
			},
			{
				Wallet:    models.WalletConfig{Label: "B", Address: addrB},
				TotalUSD:  decimal.Zero,
				FetchedAt: now,
			},
		},
		TakenAt: now,
		Tick:    1,
	}
}

type testEnv struct {
	e         *echo.Echo
	store     *internalrepo.SnapshotStore
	refresher *fakeRefresher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := internalrepo.NewSnapshotStore()
	ref := &fakeRefresher{
		wallets: []models.WalletConfig{
			{Label: "A", Address: addrA},
			{Label: "B", Address: addrB},
		},
		started: true,
	}
	h := NewDashboardHandler(testLogger(t), "HyperCore Wallet Tracker", ref, store, internalrepo.NewNoopHistory(), nil)
	e := echo.New()
	h.RegisterRoutes(e)
	return &testEnv{e: e, store: store, refresher: ref}
}

func (env *testEnv) do(method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
	}
	return env
}

func TestWalletsReturnsConfiguredList(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/api/v1/wallets")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var wallets []models.WalletConfig
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &wallets); err != nil {
		t.Fatalf("decode wallets: %v", err)
	}
	if len(wallets) != 2 || wallets[0].Label != "A" || wallets[1].Address != addrB {
		t.Fatalf("unexpected wallets: %+v", wallets)
	}
}

func TestSnapshotsBeforeFirstTick(t *testing.T) {
	env := newTestEnv(t)
	if rec := env.do(http.MethodGet, "/api/v1/snapshots"); rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 before the first publish", rec.Code)
	}
}

func TestSnapshotsReturnsPublishedSet(t *testing.T) {
	env := newTestEnv(t)
	env.store.Publish(testSet())

	rec := env.do(http.MethodGet, "/api/v1/snapshots")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var set models.SnapshotSet
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &set); err != nil {
		t.Fatalf("decode set: %v", err)
	}
	if len(set.Snapshots) != 2 || set.Tick != 1 {
		t.Fatalf("unexpected set: %d snapshots, tick %d", len(set.Snapshots), set.Tick)
	}
}

func TestSnapshotByAddress(t *testing.T) {
	env := newTestEnv(t)
	env.store.Publish(testSet())

	// Lookup is case-insensitive.
	rec := env.do(http.MethodGet, "/api/v1/snapshots/0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var snap models.WalletSnapshot
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Wallet.Label != "A" || !snap.TotalUSD.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	if rec := env.do(http.MethodGet, "/api/v1/snapshots/not-an-address"); rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed address: status = %d, want 400", rec.Code)
	}
	if rec := env.do(http.MethodGet, "/api/v1/snapshots/0xcccccccccccccccccccccccccccccccccccccccc"); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown address: status = %d, want 404", rec.Code)
	}
}

func TestSummaryAggregatesAcrossWallets(t *testing.T) {
	env := newTestEnv(t)
	env.store.Publish(testSet())

	rec := env.do(http.MethodGet, "/api/v1/summary?window=24h")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var sum models.Summary
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &sum); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if !sum.TotalUSD.Equal(decimal.NewFromInt(25)) {
		t.Errorf("TotalUSD = %s, want 25", sum.TotalUSD)
	}
	if !sum.PnL.Equal(decimal.NewFromInt(5)) {
		t.Errorf("PnL = %s, want 5", sum.PnL)
	}
	if sum.ActiveTokens != 1 || sum.Wallets != 2 {
		t.Errorf("ActiveTokens = %d, Wallets = %d", sum.ActiveTokens, sum.Wallets)
	}
}

func TestSummaryRejectsUnknownWindow(t *testing.T) {
	env := newTestEnv(t)
	env.store.Publish(testSet())
	if rec := env.do(http.MethodGet, "/api/v1/summary?window=90d"); rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRefreshTrigger(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/refresh")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	var out map[string]bool
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out["started"] {
		t.Fatal("started = false, want true")
	}

	// An in-flight refresh reports started=false, still 202.
	env.refresher.started = false
	rec = env.do(http.MethodPost, "/api/v1/refresh")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["started"] {
		t.Fatal("started = true, want false while in flight")
	}
	if env.refresher.calls != 2 {
		t.Fatalf("trigger calls = %d, want 2", env.refresher.calls)
	}
}

func TestHistoryUnavailableWithoutReadBackend(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/api/v1/history/trades?address="+addrA)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("trades: status = %d, want 503", rec.Code)
	}
	rec = env.do(http.MethodGet, "/api/v1/history/balances?address="+addrA+"&window=7d")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("balances: status = %d, want 503", rec.Code)
	}
}

func TestHistoryValidatesAddress(t *testing.T) {
	env := newTestEnv(t)
	if rec := env.do(http.MethodGet, "/api/v1/history/trades?address=bogus"); rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if rec := env.do(http.MethodGet, "/api/v1/history/balances?window=7d"); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing address: status = %d, want 400", rec.Code)
	}
}

func TestHealthAlwaysServes(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["history"] != "none" {
		t.Fatalf("history backend = %v, want none", out["history"])
	}
}
