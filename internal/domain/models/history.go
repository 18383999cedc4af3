package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeRecord is one persisted fill row from the history store.
type TradeRecord struct {
	Wallet string `json:"wallet"`
	Trade
}

// BalancePoint is one persisted wallet×token valuation sample.
type BalancePoint struct {
	Wallet     string          `json:"wallet"`
	Token      string          `json:"token"`
	Amount     decimal.Decimal `json:"amount"`
	USDValue   decimal.Decimal `json:"usd_value"`
	RecordedAt time.Time       `json:"recorded_at"`
}
