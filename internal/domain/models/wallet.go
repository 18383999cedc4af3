package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// WalletConfig identifies one tracked wallet. The set comes from
// configuration and is fixed for the process lifetime.
type WalletConfig struct {
	Label   string `json:"label"`
	Address string `json:"address"`
}

// TokenBalance is one spot holding valued in USD. Derived fresh each tick
// and superseded wholesale by the next tick.
type TokenBalance struct {
	Token    string          `json:"token"`
	Amount   decimal.Decimal `json:"amount"`
	USDValue decimal.Decimal `json:"usd_value"`
}

// StakingPosition is stake delegated to one validator. Rewards carries
// accrued rewards when the API exposes them, zero otherwise.
type StakingPosition struct {
	Validator string          `json:"validator"`
	Delegated decimal.Decimal `json:"delegated"`
	Rewards   decimal.Decimal `json:"rewards"`
}

// Trade is one fill from the wallet's trade history. Side is normalized to
// "buy" or "sell" by the info client; HasClosedPnL marks fills whose source
// carried a realized-pnl field.
type Trade struct {
	Time         time.Time       `json:"time"`
	Token        string          `json:"token"`
	Side         string          `json:"side"`
	Size         decimal.Decimal `json:"size"`
	Price        decimal.Decimal `json:"price"`
	Fee          decimal.Decimal `json:"fee"`
	ClosedPnL    decimal.Decimal `json:"closed_pnl"`
	HasClosedPnL bool            `json:"-"`
}

// Notional returns size times price for the fill.
func (t Trade) Notional() decimal.Decimal {
	return t.Size.Mul(t.Price)
}

// IsBuy reports whether the fill is a buy.
func (t Trade) IsBuy() bool { return t.Side == SideBuy }

// IsSell reports whether the fill is a sell.
func (t Trade) IsSell() bool { return t.Side == SideSell }

const (
	SideBuy  = "buy"
	SideSell = "sell"
)
