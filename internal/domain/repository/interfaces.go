package repository

import (
	"context"
	"time"

	"HyperTrack/internal/domain/models"

	"github.com/shopspring/decimal"
)

// InfoClient reads wallet state from the HyperCore info API.
type InfoClient interface {
	FetchBalances(ctx context.Context, address string) ([]models.TokenBalance, error)
	FetchStaking(ctx context.Context, address string) ([]models.StakingPosition, error)
	FetchFills(ctx context.Context, address string) ([]models.Trade, error)
}

// ChainClient reads on-chain state over EVM JSON-RPC.
type ChainClient interface {
	NativeBalance(ctx context.Context, address string) (decimal.Decimal, error)
	ChainID(ctx context.Context) (string, error)
	Close()
}

// PriceSource resolves token symbols to USD prices. Implementations must
// issue at most one upstream request per call regardless of symbol count.
type PriceSource interface {
	FetchPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error)
}

// SnapshotStore holds the current snapshot set. Single writer (the
// refresher), many readers; a published set is immutable.
type SnapshotStore interface {
	Publish(set *models.SnapshotSet)
	Current() *models.SnapshotSet
	Snapshot(address string) (*models.WalletSnapshot, bool)
}

// Broadcaster pushes every published snapshot set to live subscribers.
type Broadcaster interface {
	Broadcast(set *models.SnapshotSet)
}

// HistorySink accepts published snapshot sets for asynchronous persistence.
// Enqueue never blocks the refresh path.
type HistorySink interface {
	Enqueue(set *models.SnapshotSet)
}

// HistoryStore persists published snapshot sets and serves the history API.
type HistoryStore interface {
	Init(ctx context.Context) error
	Record(ctx context.Context, set *models.SnapshotSet) error
	RecentTrades(ctx context.Context, wallet string, limit int) ([]models.TradeRecord, error)
	BalanceHistory(ctx context.Context, wallet, token string, since time.Time) ([]models.BalancePoint, error)
	Backend() string
	Health(ctx context.Context) error
	Close() error
}

// Metrics records operational measurements.
type Metrics interface {
	RecordRefresh(result string, seconds float64)
	RecordError(kind string)
	RecordWalletValue(wallet string, usd float64)
	RecordDegraded(n int)
	RecordHistoryWrite(backend string, rows int)
	RecordLatency(op string, seconds float64)
	RecordWSSubscribers(n int)
}
