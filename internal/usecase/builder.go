package usecase

import (
	"sort"
	"strings"
	"time"

	"HyperTrack/internal/domain/models"

	"github.com/shopspring/decimal"
)

// NativeToken is the chain's gas token, held both natively on HyperEVM and
// as a spot asset on the core book.
const NativeToken = "HYPE"

var (
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)
)

// BuildSnapshot derives one wallet's snapshot from already-fetched data.
// It is pure: no I/O, no clock reads beyond now, inputs are not mutated,
// identical inputs produce identical output.
func BuildSnapshot(
	wallet models.WalletConfig,
	balances []models.TokenBalance,
	staking []models.StakingPosition,
	fills []models.Trade,
	prices map[string]decimal.Decimal,
	now time.Time,
) models.WalletSnapshot {
	windows := models.Windows()
	snap := models.WalletSnapshot{
		Wallet:    wallet,
		Balances:  valueBalances(balances, prices),
		Staking:   sortStaking(staking),
		PnL:       make(map[models.Window]models.PnLStat, len(windows)),
		Volume:    make(map[models.Window]decimal.Decimal, len(windows)),
		TotalUSD:  decimal.Zero,
		FetchedAt: now,
	}

	for _, b := range snap.Balances {
		snap.TotalUSD = snap.TotalUSD.Add(b.USDValue)
	}

	for _, w := range windows {
		volume, pnl := derivePnL(fills, w, now)
		snap.Volume[w] = volume
		snap.PnL[w] = pnl
	}
	return snap
}

// BuildDegraded builds a snapshot for a wallet with one or more failed
// sources. Whatever fetched successfully is kept; errs names the failures.
func BuildDegraded(
	wallet models.WalletConfig,
	balances []models.TokenBalance,
	staking []models.StakingPosition,
	fills []models.Trade,
	prices map[string]decimal.Decimal,
	errs []models.SourceError,
	now time.Time,
) models.WalletSnapshot {
	snap := BuildSnapshot(wallet, balances, staking, fills, prices, now)
	snap.Degraded = true
	snap.Errors = errs
	return snap
}

// MergeNativeBalance folds the HyperEVM native balance into a spot balance
// list. Natively held HYPE and spot HYPE are the same asset, so the amounts
// sum into a single entry. A zero native balance adds nothing.
func MergeNativeBalance(balances []models.TokenBalance, native decimal.Decimal) []models.TokenBalance {
	if !native.IsPositive() {
		return balances
	}
	out := make([]models.TokenBalance, len(balances))
	copy(out, balances)
	for i := range out {
		if strings.EqualFold(out[i].Token, NativeToken) {
			out[i].Amount = out[i].Amount.Add(native)
			return out
		}
	}
	return append(out, models.TokenBalance{Token: NativeToken, Amount: native})
}

// valueBalances prices each balance and orders the result by USD value
// descending, then token ascending. The input slice is left untouched.
func valueBalances(balances []models.TokenBalance, prices map[string]decimal.Decimal) []models.TokenBalance {
	out := make([]models.TokenBalance, len(balances))
	copy(out, balances)
	for i := range out {
		if p, ok := prices[strings.ToUpper(out[i].Token)]; ok {
			out[i].USDValue = out[i].Amount.Mul(p)
		} else {
			out[i].USDValue = decimal.Zero
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].USDValue.Equal(out[j].USDValue) {
			return out[i].USDValue.GreaterThan(out[j].USDValue)
		}
		return out[i].Token < out[j].Token
	})
	return out
}

func sortStaking(staking []models.StakingPosition) []models.StakingPosition {
	out := make([]models.StakingPosition, len(staking))
	copy(out, staking)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Delegated.Equal(out[j].Delegated) {
			return out[i].Delegated.GreaterThan(out[j].Delegated)
		}
		return out[i].Validator < out[j].Validator
	})
	return out
}

// derivePnL computes volume and P&L over the fills inside one window.
// When any fill carries a closed-pnl figure the realized sum is used;
// otherwise P&L falls back to sell notional minus buy notional. Percent is
// P&L over half the volume (a round trip touches volume twice), zero when
// nothing traded.
func derivePnL(fills []models.Trade, w models.Window, now time.Time) (decimal.Decimal, models.PnLStat) {
	volume := decimal.Zero
	closed := decimal.Zero
	buys := decimal.Zero
	sells := decimal.Zero
	hasClosed := false

	for _, f := range fills {
		if !w.Contains(f.Time, now) {
			continue
		}
		notional := f.Notional()
		volume = volume.Add(notional)
		if f.HasClosedPnL {
			hasClosed = true
			closed = closed.Add(f.ClosedPnL)
		}
		switch {
		case f.IsBuy():
			buys = buys.Add(notional)
		case f.IsSell():
			sells = sells.Add(notional)
		}
	}

	pnl := sells.Sub(buys)
	if hasClosed {
		pnl = closed
	}

	stat := models.PnLStat{Amount: pnl, Percent: decimal.Zero}
	if volume.IsPositive() {
		stat.Percent = pnl.Div(volume.Div(two)).Mul(hundred)
	}
	return volume, stat
}
