package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"HyperTrack/internal/domain/models"
	"HyperTrack/pkg/clickhouse"

	"github.com/shopspring/decimal"
)

// insertChunkSize bounds one multi-row INSERT, 2000 rows per round-trip.
const insertChunkSize = 2000

// ClickHouseHistory persists balance points and fills and serves the
// history API. Fills arrive in full on every tick, so trade_history
// deduplicates by its sorting key through ReplacingMergeTree.
type ClickHouseHistory struct {
	client   *clickhouse.Client
	db       *sql.DB
	database string
}

func NewClickHouseHistory(client *clickhouse.Client, database string) *ClickHouseHistory {
	return &ClickHouseHistory{client: client, db: client.DB(), database: database}
}

func (h *ClickHouseHistory) Backend() string { return "clickhouse" }

func (h *ClickHouseHistory) Init(ctx context.Context) error {
	return h.client.InitSchema(ctx, []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", h.database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.balance_history (
			wallet String,
			token String,
			amount Decimal(38, 18),
			usd_value Decimal(38, 18),
			recorded_at DateTime
		) ENGINE=MergeTree ORDER BY (wallet, token, recorded_at)`, h.database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.trade_history (
			wallet String,
			token String,
			side String,
			size Decimal(38, 18),
			price Decimal(38, 18),
			fee Decimal(38, 18),
			closed_pnl Decimal(38, 18),
			has_closed_pnl UInt8,
			traded_at DateTime64(3)
		) ENGINE=ReplacingMergeTree ORDER BY (wallet, traded_at, token, side, size, price)`, h.database),
	})
}

// Record writes one row per wallet and token to balance_history and every
// fill of the tick to trade_history.
func (h *ClickHouseHistory) Record(ctx context.Context, set *models.SnapshotSet) error {
	if set == nil {
		return nil
	}

	balanceRows := make([][]interface{}, 0, len(set.Snapshots)*4)
	for i := range set.Snapshots {
		snap := &set.Snapshots[i]
		wallet := strings.ToLower(snap.Wallet.Address)
		for _, b := range snap.Balances {
			balanceRows = append(balanceRows, []interface{}{
				wallet, b.Token, b.Amount, b.USDValue, set.TakenAt,
			})
		}
	}
	if err := h.insertRows(ctx, "balance_history",
		"wallet, token, amount, usd_value, recorded_at",
		"(?, ?, ?, ?, ?)", balanceRows); err != nil {
		return err
	}

	tradeRows := make([][]interface{}, 0, 256)
	for wallet, fills := range set.Fills {
		for _, f := range fills {
			hasClosed := uint8(0)
			if f.HasClosedPnL {
				hasClosed = 1
			}
			tradeRows = append(tradeRows, []interface{}{
				wallet, f.Token, f.Side, f.Size, f.Price, f.Fee, f.ClosedPnL, hasClosed, f.Time,
			})
		}
	}
	return h.insertRows(ctx, "trade_history",
		"wallet, token, side, size, price, fee, closed_pnl, has_closed_pnl, traded_at",
		"(?, ?, ?, ?, ?, ?, ?, ?, ?)", tradeRows)
}

// insertRows runs chunked multi-row INSERTs to keep round-trips low.
func (h *ClickHouseHistory) insertRows(ctx context.Context, table, columns, placeholder string, rows [][]interface{}) error {
	for start := 0; start < len(rows); start += insertChunkSize {
		end := start + insertChunkSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		values := make([]string, 0, len(chunk))
		args := make([]interface{}, 0, len(chunk)*9)
		for _, row := range chunk {
			values = append(values, placeholder)
			args = append(args, row...)
		}

		q := fmt.Sprintf("INSERT INTO %s.%s (%s) VALUES %s",
			h.database, table, columns, strings.Join(values, ","))
		if _, err := h.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return nil
}

// RecentTrades returns the wallet's newest fills, deduplicated. FINAL forces
// replacing-merge semantics at read time.
func (h *ClickHouseHistory) RecentTrades(ctx context.Context, wallet string, limit int) ([]models.TradeRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	q := fmt.Sprintf(`SELECT wallet, token, side, toString(size), toString(price), toString(fee), toString(closed_pnl), has_closed_pnl, traded_at
		FROM %s.trade_history FINAL WHERE wallet = ? ORDER BY traded_at DESC LIMIT ?`, h.database)

	rows, err := h.db.QueryContext(ctx, q, strings.ToLower(wallet), limit)
	if err != nil {
		return nil, fmt.Errorf("query trade_history: %w", err)
	}
	defer rows.Close()

	var out []models.TradeRecord
	for rows.Next() {
		var (
			rec                         models.TradeRecord
			size, price, fee, closedPnl string
			hasClosed                   uint8
		)
		if err := rows.Scan(&rec.Wallet, &rec.Token, &rec.Side, &size, &price, &fee, &closedPnl, &hasClosed, &rec.Time); err != nil {
			return nil, fmt.Errorf("scan trade_history: %w", err)
		}
		if rec.Size, err = parseStored("size", size); err != nil {
			return nil, err
		}
		if rec.Price, err = parseStored("price", price); err != nil {
			return nil, err
		}
		if rec.Fee, err = parseStored("fee", fee); err != nil {
			return nil, err
		}
		if rec.ClosedPnL, err = parseStored("closed_pnl", closedPnl); err != nil {
			return nil, err
		}
		rec.HasClosedPnL = hasClosed == 1
		out = append(out, rec)
	}
	return out, rows.Err()
}

// BalanceHistory returns a wallet's balance points since the given time,
// oldest first. An empty token matches all tokens.
func (h *ClickHouseHistory) BalanceHistory(ctx context.Context, wallet, token string, since time.Time) ([]models.BalancePoint, error) {
	if since.IsZero() {
		since = time.Unix(0, 0) // DateTime cannot hold Go's zero time
	}

	var (
		rows *sql.Rows
		err  error
	)
	if token != "" {
		q := fmt.Sprintf(`SELECT wallet, token, toString(amount), toString(usd_value), recorded_at
			FROM %s.balance_history WHERE wallet = ? AND token = ? AND recorded_at >= ? ORDER BY recorded_at ASC`, h.database)
		rows, err = h.db.QueryContext(ctx, q, strings.ToLower(wallet), token, since)
	} else {
		q := fmt.Sprintf(`SELECT wallet, token, toString(amount), toString(usd_value), recorded_at
			FROM %s.balance_history WHERE wallet = ? AND recorded_at >= ? ORDER BY recorded_at ASC`, h.database)
		rows, err = h.db.QueryContext(ctx, q, strings.ToLower(wallet), since)
	}
	if err != nil {
		return nil, fmt.Errorf("query balance_history: %w", err)
	}
	defer rows.Close()

	var out []models.BalancePoint
	for rows.Next() {
		var (
			p               models.BalancePoint
			amount, usdValue string
		)
		if err := rows.Scan(&p.Wallet, &p.Token, &amount, &usdValue, &p.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan balance_history: %w", err)
		}
		if p.Amount, err = parseStored("amount", amount); err != nil {
			return nil, err
		}
		if p.USDValue, err = parseStored("usd_value", usdValue); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (h *ClickHouseHistory) Health(ctx context.Context) error {
	return h.client.Health(ctx)
}

func (h *ClickHouseHistory) Close() error {
	return h.client.Close()
}

func parseStored(field, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("stored %s is not a number: %q", field, value)
	}
	return d, nil
}
