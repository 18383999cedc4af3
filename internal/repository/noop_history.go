package repository

import (
	"context"
	"time"

	"HyperTrack/internal/domain/models"
)

// NoopHistory is the history store when persistence is disabled. The
// history API reports the backend as disabled.
type NoopHistory struct{}

func NewNoopHistory() *NoopHistory { return &NoopHistory{} }

func (NoopHistory) Backend() string { return "none" }

func (NoopHistory) Init(context.Context) error { return nil }

func (NoopHistory) Record(context.Context, *models.SnapshotSet) error { return nil }

func (NoopHistory) RecentTrades(context.Context, string, int) ([]models.TradeRecord, error) {
	return nil, nil
}

func (NoopHistory) BalanceHistory(context.Context, string, string, time.Time) ([]models.BalancePoint, error) {
	return nil, nil
}

func (NoopHistory) Health(context.Context) error { return nil }

func (NoopHistory) Close() error { return nil }
