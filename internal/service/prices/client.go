package prices

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"HyperTrack/pkg/apperror"
	"HyperTrack/pkg/cache"
	xhttp "HyperTrack/pkg/http"

	"github.com/shopspring/decimal"
)

// Source is the label this client reports in degraded-snapshot errors.
const Source = "prices"

// Built-in Pyth feed ids for common HyperCore symbols. Entries from the
// prices.feeds config section extend or override this table.
var defaultFeeds = map[string]string{
	"HYPE": "0x4279e31cc369bbcc2faf022b382b080e32a8e689ff20fbc530d2a603eb6cd98b",
	"BTC":  "0xe62df6c8b4a85fe1a67db44dc12de5db330f7ac66b72dc658afedf0f4a415b43",
	"ETH":  "0xff61491a931112ddf1bd8147cd1b641375f79f5825126d665480874634fd0ace",
	"SOL":  "0xef0d8b6fda2ceba41da15d4095d1da392a0d2f8ed0c6c7bc0f4cfac8c280b56d",
}

var one = decimal.NewFromInt(1)

// Stablecoins are valued at par without an upstream feed.
var defaultStatic = map[string]decimal.Decimal{
	"USDC": one,
	"USDT": one,
}

// Config holds client settings taken from the apis/prices config sections.
type Config struct {
	Endpoint string
	Timeout  time.Duration
	CacheTTL time.Duration
	Feeds    map[string]string
	Static   map[string]string
}

// Client resolves token symbols to USD prices through the Pyth Hermes API.
// All feeds missing from the cache are fetched in one batched request, so a
// refresh costs at most one upstream call regardless of wallet count.
type Client struct {
	http     *xhttp.Client
	endpoint string
	cache    cache.Service
	ttl      time.Duration
	feeds    map[string]string
	static   map[string]decimal.Decimal
}

// NewClient creates a price client. Static price overrides from config are
// parsed here so a typo fails at startup instead of mispricing a wallet.
func NewClient(cfg Config, cacheSvc cache.Service) (*Client, error) {
	feeds := make(map[string]string, len(defaultFeeds)+len(cfg.Feeds))
	for sym, id := range defaultFeeds {
		feeds[sym] = id
	}
	for sym, id := range cfg.Feeds {
		feeds[strings.ToUpper(sym)] = id
	}

	static := make(map[string]decimal.Decimal, len(defaultStatic)+len(cfg.Static))
	for sym, v := range defaultStatic {
		static[sym] = v
	}
	for sym, v := range cfg.Static {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, apperror.Config(fmt.Sprintf("prices.static.%s is not a number: %q", sym, v))
		}
		static[strings.ToUpper(sym)] = d
	}

	return &Client{
		http:     xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
		endpoint: cfg.Endpoint,
		cache:    cacheSvc,
		ttl:      cfg.CacheTTL,
		feeds:    feeds,
		static:   static,
	}, nil
}

type hermesResponse struct {
	Parsed []struct {
		ID    string `json:"id"`
		Price struct {
			Price string `json:"price"`
			Expo  int32  `json:"expo"`
		} `json:"price"`
	} `json:"parsed"`
}

// FetchPrices returns USD prices for the given symbols. Symbols with neither
// a feed nor a static price are omitted from the result and their holdings
// value as zero downstream.
func (c *Client) FetchPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(symbols))
	need := make(map[string]string, len(symbols)) // normalized feed id -> symbol
	ids := make([]string, 0, len(symbols))

	for _, raw := range symbols {
		sym := strings.ToUpper(strings.TrimSpace(raw))
		if sym == "" {
			continue
		}
		if _, done := out[sym]; done {
			continue
		}
		if price, ok := c.static[sym]; ok {
			out[sym] = price
			continue
		}
		feed, ok := c.feeds[sym]
		if !ok {
			continue
		}
		norm := normalizeFeedID(feed)
		if c.cache != nil {
			var cached string
			if err := c.cache.Get(ctx, priceKey(norm), &cached); err == nil {
				if d, err := decimal.NewFromString(cached); err == nil {
					out[sym] = d
					continue
				}
			}
		}
		if _, queued := need[norm]; queued {
			continue
		}
		need[norm] = sym
		ids = append(ids, feed)
	}

	if len(ids) == 0 {
		return out, nil
	}

	q := url.Values{}
	for _, id := range ids {
		q.Add("ids[]", id)
	}

	var resp hermesResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.endpoint + "?" + q.Encode(),
	}, &resp)
	if err != nil {
		return nil, apperror.Network(Source, "hermes request failed").WithError(err)
	}

	for _, p := range resp.Parsed {
		norm := normalizeFeedID(p.ID)
		sym, ok := need[norm]
		if !ok {
			continue
		}
		mantissa, err := decimal.NewFromString(p.Price.Price)
		if err != nil {
			return nil, apperror.Data(Source, fmt.Sprintf("feed %s price is not a number: %q", p.ID, p.Price.Price))
		}
		value := mantissa.Shift(p.Price.Expo)
		out[sym] = value
		if c.cache != nil {
			_ = c.cache.Set(ctx, priceKey(norm), value.String(), c.ttl)
		}
	}
	return out, nil
}

// Priced reports whether a symbol can be valued at all, via feed or static.
func (c *Client) Priced(symbol string) bool {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if _, ok := c.static[sym]; ok {
		return true
	}
	_, ok := c.feeds[sym]
	return ok
}

// Hermes reports ids without the 0x prefix; config entries usually carry it.
func normalizeFeedID(id string) string {
	return strings.ToLower(strings.TrimPrefix(id, "0x"))
}

func priceKey(normalizedID string) string {
	return cache.GenerateKey("price", normalizedID)
}
