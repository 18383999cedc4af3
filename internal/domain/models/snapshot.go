package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PnLStat is realized profit and loss over one window.
type PnLStat struct {
	Amount  decimal.Decimal `json:"amount"`
	Percent decimal.Decimal `json:"percent"`
}

// SourceError records a data source failure that degraded a snapshot.
type SourceError struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

// WalletSnapshot is the complete per-wallet view assembled on one refresh
// tick. Snapshots are immutable once built: a new tick replaces the whole
// set instead of mutating fields in place.
type WalletSnapshot struct {
	Wallet    WalletConfig               `json:"wallet"`
	Balances  []TokenBalance             `json:"balances"`
	Staking   []StakingPosition          `json:"staking"`
	PnL       map[Window]PnLStat         `json:"pnl"`
	Volume    map[Window]decimal.Decimal `json:"volume"`
	TotalUSD  decimal.Decimal            `json:"total_usd"`
	FetchedAt time.Time                  `json:"fetched_at"`
	Degraded  bool                       `json:"degraded"`
	Errors    []SourceError              `json:"errors,omitempty"`
}

// SnapshotSet is the atomically published unit: exactly one snapshot per
// configured wallet, in configuration order. Fills carries each wallet's
// raw trade history for the history backends; it rides along with the set
// but is never serialized to API consumers.
type SnapshotSet struct {
	Snapshots []WalletSnapshot   `json:"snapshots"`
	TakenAt   time.Time          `json:"taken_at"`
	Tick      uint64             `json:"tick"`
	Fills     map[string][]Trade `json:"-"`
}

// Find returns the snapshot for the given address, case-insensitive.
func (s *SnapshotSet) Find(address string) (*WalletSnapshot, bool) {
	for i := range s.Snapshots {
		if strings.EqualFold(s.Snapshots[i].Wallet.Address, address) {
			return &s.Snapshots[i], true
		}
	}
	return nil, false
}

// Summary is the aggregate top-metrics row across all wallets for one window.
type Summary struct {
	Window       Window          `json:"window"`
	TotalUSD     decimal.Decimal `json:"total_usd"`
	PnL          decimal.Decimal `json:"pnl"`
	Volume       decimal.Decimal `json:"volume"`
	ActiveTokens int             `json:"active_tokens"`
	Wallets      int             `json:"wallets"`
	Degraded     int             `json:"degraded"`
}

// Summarize aggregates the set into the top-metrics row for one window.
// Tokens count as active when any wallet holds a non-zero amount.
func (s *SnapshotSet) Summarize(w Window) Summary {
	sum := Summary{Window: w, Wallets: len(s.Snapshots)}
	active := make(map[string]struct{})
	for i := range s.Snapshots {
		snap := &s.Snapshots[i]
		sum.TotalUSD = sum.TotalUSD.Add(snap.TotalUSD)
		if pnl, ok := snap.PnL[w]; ok {
			sum.PnL = sum.PnL.Add(pnl.Amount)
		}
		if vol, ok := snap.Volume[w]; ok {
			sum.Volume = sum.Volume.Add(vol)
		}
		for _, b := range snap.Balances {
			if !b.Amount.IsZero() {
				active[b.Token] = struct{}{}
			}
		}
		if snap.Degraded {
			sum.Degraded++
		}
	}
	sum.ActiveTokens = len(active)
	return sum
}
