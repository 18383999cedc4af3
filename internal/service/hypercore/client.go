package hypercore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"HyperTrack/internal/domain/models"
	"HyperTrack/internal/service/evmrpc"
	"HyperTrack/pkg/apperror"
	"HyperTrack/pkg/cache"
	xhttp "HyperTrack/pkg/http"
	"HyperTrack/pkg/util"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// Source is the label this client reports in degraded-snapshot errors.
const Source = "hypercore"

// Query types understood by the info API. Every request is a POST with a
// JSON body {"type": <query>, "user": <address>}.
const (
	queryBalances    = "spotClearinghouseState"
	queryDelegations = "delegations"
	querySummary     = "delegatorSummary"
	queryFills       = "userFills"
)

// Config holds client settings taken from the apis/prices config sections.
type Config struct {
	Endpoint  string
	Timeout   time.Duration
	CacheTTL  time.Duration
	RateLimit int
	Burst     int
}

// Client queries the wallet-keyed HyperCore info API. Responses are cached
// for the configured TTL and all calls share one rate limiter, so a burst of
// wallets does not hammer the endpoint.
type Client struct {
	http     *xhttp.Client
	endpoint string
	cache    cache.Service
	ttl      time.Duration
	limiter  *rate.Limiter
}

// NewClient creates an info API client.
func NewClient(cfg Config, cacheSvc cache.Service) *Client {
	rl := cfg.RateLimit
	if rl <= 0 {
		rl = 8
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 4
	}
	return &Client{
		http:     xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
		endpoint: cfg.Endpoint,
		cache:    cacheSvc,
		ttl:      cfg.CacheTTL,
		limiter:  rate.NewLimiter(rate.Limit(rl), burst),
	}
}

type spotStateResponse struct {
	Balances []struct {
		Coin  string `json:"coin"`
		Total string `json:"total"`
	} `json:"balances"`
}

// FetchBalances returns the wallet's spot holdings. USD valuation happens
// later in the snapshot builder; Amount alone is populated here.
func (c *Client) FetchBalances(ctx context.Context, address string) ([]models.TokenBalance, error) {
	if err := guardAddress(address); err != nil {
		return nil, err
	}

	var resp spotStateResponse
	if err := c.post(ctx, queryBalances, address, &resp); err != nil {
		return nil, err
	}

	out := make([]models.TokenBalance, 0, len(resp.Balances))
	for _, b := range resp.Balances {
		amount, err := parseAmount("balance total for "+b.Coin, b.Total)
		if err != nil {
			return nil, err
		}
		out = append(out, models.TokenBalance{Token: b.Coin, Amount: amount})
	}
	return out, nil
}

type delegationEntry struct {
	Validator string `json:"validator"`
	Amount    string `json:"amount"`
	Rewards   string `json:"rewards"`
}

type delegatorSummaryResponse struct {
	Delegated string `json:"delegated"`
}

// FetchStaking returns the wallet's delegations. When the per-validator
// list is empty the aggregate delegatorSummary is consulted, yielding a
// single "(total)" position on older API deployments.
func (c *Client) FetchStaking(ctx context.Context, address string) ([]models.StakingPosition, error) {
	if err := guardAddress(address); err != nil {
		return nil, err
	}

	var entries []delegationEntry
	if err := c.post(ctx, queryDelegations, address, &entries); err != nil {
		return nil, err
	}

	out := make([]models.StakingPosition, 0, len(entries))
	for _, e := range entries {
		amount, err := parseAmount("delegation amount for "+e.Validator, e.Amount)
		if err != nil {
			return nil, err
		}
		pos := models.StakingPosition{Validator: e.Validator, Delegated: amount}
		if e.Rewards != "" {
			if r, err := decimal.NewFromString(e.Rewards); err == nil {
				pos.Rewards = r
			}
		}
		out = append(out, pos)
	}
	if len(out) > 0 {
		return out, nil
	}

	var sum delegatorSummaryResponse
	if err := c.post(ctx, querySummary, address, &sum); err != nil {
		return nil, err
	}
	if sum.Delegated == "" {
		return out, nil
	}
	total, err := parseAmount("delegated total", sum.Delegated)
	if err != nil {
		return nil, err
	}
	if total.IsZero() {
		return out, nil
	}
	return append(out, models.StakingPosition{Validator: "(total)", Delegated: total}), nil
}

type fillEntry struct {
	Time      int64   `json:"time"`
	Coin      string  `json:"coin"`
	Coin1     string  `json:"coin1"`
	Side      string  `json:"side"`
	Dir       string  `json:"dir"`
	Sz        string  `json:"sz"`
	Px        string  `json:"px"`
	Fee       string  `json:"fee"`
	ClosedPnl *string `json:"closedPnl"`
}

// FetchFills returns the wallet's trade history with sides normalized to
// buy/sell and timestamps converted from millisecond epochs.
func (c *Client) FetchFills(ctx context.Context, address string) ([]models.Trade, error) {
	if err := guardAddress(address); err != nil {
		return nil, err
	}

	var entries []fillEntry
	if err := c.post(ctx, queryFills, address, &entries); err != nil {
		return nil, err
	}

	out := make([]models.Trade, 0, len(entries))
	for _, f := range entries {
		size, err := parseAmount("fill size", f.Sz)
		if err != nil {
			return nil, err
		}
		price, err := parseAmount("fill price", f.Px)
		if err != nil {
			return nil, err
		}

		token := f.Coin
		if token == "" {
			token = f.Coin1
		}

		t := models.Trade{
			Time:  util.MillisToTime(f.Time),
			Token: token,
			Side:  normalizeSide(f.Side, f.Dir),
			Size:  size,
			Price: price,
		}
		if f.Fee != "" {
			if fee, err := decimal.NewFromString(f.Fee); err == nil {
				t.Fee = fee
			}
		}
		if f.ClosedPnl != nil {
			pnl, err := parseAmount("fill closedPnl", *f.ClosedPnl)
			if err != nil {
				return nil, err
			}
			t.ClosedPnL = pnl
			t.HasClosedPnL = true
		}
		out = append(out, t)
	}
	return out, nil
}

// post runs one info API query, satisfying it from the response cache when
// possible. Responses are cached raw so cached and fresh paths decode
// identically.
func (c *Client) post(ctx context.Context, queryType, address string, dest interface{}) error {
	key := cache.GenerateKeyWithParams("hypercore", queryType, strings.ToLower(address))
	if c.cache != nil {
		if err := c.cache.Get(ctx, key, dest); err == nil {
			return nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return apperror.Network(Source, queryType+" rate limiter interrupted").WithError(err)
	}

	var raw []byte
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.endpoint,
		Body:   map[string]string{"type": queryType, "user": address},
	}, &raw)
	if err != nil {
		return apperror.Network(Source, queryType+" request failed").WithError(err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return apperror.Data(Source, queryType+" returned unexpected shape").WithError(err)
	}

	if c.cache != nil {
		_ = c.cache.Set(ctx, key, raw, c.ttl)
	}
	return nil
}

func guardAddress(address string) error {
	if !evmrpc.ValidAddress(address) {
		return apperror.Validationf(Source, "malformed wallet address %q", address)
	}
	return nil
}

func parseAmount(field, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, apperror.Data(Source, fmt.Sprintf("%s is not a number: %q", field, value))
	}
	return d, nil
}

func normalizeSide(side, dir string) string {
	switch strings.ToUpper(side) {
	case "B", "BUY":
		return models.SideBuy
	case "A", "S", "SELL":
		return models.SideSell
	}
	d := strings.ToLower(dir)
	switch {
	case strings.Contains(d, "buy"), strings.HasPrefix(d, "open long"), strings.HasPrefix(d, "close short"):
		return models.SideBuy
	case strings.Contains(d, "sell"), strings.HasPrefix(d, "open short"), strings.HasPrefix(d, "close long"):
		return models.SideSell
	}
	return side
}
