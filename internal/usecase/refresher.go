package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"HyperTrack/internal/domain/models"
	"HyperTrack/internal/domain/repository"
	"HyperTrack/internal/service/evmrpc"
	"HyperTrack/internal/service/hypercore"
	"HyperTrack/internal/service/prices"
	"HyperTrack/pkg/apperror"
	"HyperTrack/pkg/config"
	"HyperTrack/pkg/logger"
	"HyperTrack/pkg/util"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// fetchConcurrency bounds the wallet fan-out. Latency optimization only:
// the info API rate limiter paces actual request throughput.
const fetchConcurrency = 4

// Refresher owns the tick loop. It is the single writer of the snapshot
// store; everything else reads.
type Refresher struct {
	wallets   []models.WalletConfig
	interval  time.Duration
	log       *logger.Logger
	info      repository.InfoClient
	chain     repository.ChainClient
	priceSrc  repository.PriceSource
	store     repository.SnapshotStore
	broadcast repository.Broadcaster
	sink      repository.HistorySink
	metrics   repository.Metrics

	running atomic.Bool
	ticks   atomic.Uint64
	runCtx  atomic.Value // context.Context set by Run
}

// NewRefresher wires the refresh orchestrator. broadcast and sink may be nil
// when the corresponding surface is disabled.
func NewRefresher(
	cfg *config.Config,
	log *logger.Logger,
	info repository.InfoClient,
	chain repository.ChainClient,
	priceSrc repository.PriceSource,
	store repository.SnapshotStore,
	broadcast repository.Broadcaster,
	sink repository.HistorySink,
	metrics repository.Metrics,
) *Refresher {
	wallets := make([]models.WalletConfig, 0, len(cfg.Wallets))
	for _, w := range cfg.Wallets {
		wallets = append(wallets, models.WalletConfig{Label: w.Label, Address: w.Address})
	}
	return &Refresher{
		wallets:   wallets,
		interval:  cfg.RefreshInterval(),
		log:       log.WithComponent("refresher"),
		info:      info,
		chain:     chain,
		priceSrc:  priceSrc,
		store:     store,
		broadcast: broadcast,
		sink:      sink,
		metrics:   metrics,
	}
}

// Wallets returns the configured wallet set, in configuration order.
func (r *Refresher) Wallets() []models.WalletConfig {
	return r.wallets
}

// Run starts the polling loop: one immediate refresh, then one per interval.
// A tick that arrives while a refresh is still in flight is skipped, not
// queued. Blocks until ctx is canceled.
func (r *Refresher) Run(ctx context.Context) {
	r.runCtx.Store(ctx)
	r.warnMalformedAddresses()
	r.probeChain(ctx)

	r.startRefresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.log.Info("refresh loop stopped")
			return
		case <-ticker.C:
			if !r.startRefresh(ctx) {
				r.log.Warn("previous refresh still running, tick skipped",
					logger.Uint64("tick", r.ticks.Load()))
				r.metrics.RecordRefresh("skipped", 0)
			}
		}
	}
}

// TriggerRefresh starts an on-demand refresh unless one is already in
// flight. It reports whether a refresh was started; completion is observable
// through the snapshot store.
func (r *Refresher) TriggerRefresh() bool {
	ctx := context.Background()
	if v, ok := r.runCtx.Load().(context.Context); ok {
		ctx = v
	}
	return r.startRefresh(ctx)
}

// startRefresh launches one guarded refresh goroutine. False means a
// refresh was already running and nothing was started.
func (r *Refresher) startRefresh(ctx context.Context) bool {
	if !r.running.CompareAndSwap(false, true) {
		return false
	}
	go func() {
		defer r.running.Store(false)
		if _, err := r.RefreshAll(ctx); err != nil {
			r.log.Error("refresh failed, previous snapshot set stays published", logger.Error(err))
		}
	}()
	return true
}

type walletResult struct {
	balances []models.TokenBalance
	staking  []models.StakingPosition
	fills    []models.Trade
	native   decimal.Decimal
	errs     []models.SourceError
}

// RefreshAll performs one full refresh cycle: fan out per-wallet fetches,
// price all distinct tokens in one call, build and publish the snapshot
// set. Always yields exactly one snapshot per configured wallet; a wallet
// whose sources failed is published degraded, never dropped. Only a
// canceled or expired context aborts the cycle without publishing.
func (r *Refresher) RefreshAll(ctx context.Context) (*models.SnapshotSet, error) {
	start := time.Now()

	var mu sync.Mutex
	results := make([]walletResult, len(r.wallets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, w := range r.wallets {
		i, w := i, w
		g.Go(func() error {
			res := r.fetchWallet(gctx, w)
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // per-source failures are carried in results, never here

	if err := ctx.Err(); err != nil {
		r.metrics.RecordRefresh("aborted", time.Since(start).Seconds())
		return nil, apperror.Network("refresh", "cycle aborted").WithError(err)
	}

	pt := time.Now()
	priceMap, perr := r.priceSrc.FetchPrices(ctx, collectSymbols(results))
	r.observe("fetch_prices", pt, perr)
	if perr != nil {
		r.log.Warn("price fetch failed, publishing unvalued balances", logger.Error(perr))
		priceMap = nil
	}

	now := time.Now()
	snapshots := make([]models.WalletSnapshot, 0, len(r.wallets))
	fillsByWallet := make(map[string][]models.Trade, len(r.wallets))
	degraded := 0
	for i, w := range r.wallets {
		res := results[i]
		balances := MergeNativeBalance(res.balances, res.native)
		if len(res.fills) > 0 {
			fillsByWallet[strings.ToLower(w.Address)] = res.fills
		}

		errs := res.errs
		if perr != nil {
			errs = append(errs, sourceError(prices.Source, perr))
		}

		var snap models.WalletSnapshot
		if len(errs) == 0 {
			snap = BuildSnapshot(w, balances, res.staking, res.fills, priceMap, now)
		} else {
			snap = BuildDegraded(w, balances, res.staking, res.fills, priceMap, errs, now)
			degraded++
		}
		snapshots = append(snapshots, snap)
		r.metrics.RecordWalletValue(util.ShortAddress(w.Address), snap.TotalUSD.InexactFloat64())
	}

	set := &models.SnapshotSet{
		Snapshots: snapshots,
		TakenAt:   now,
		Tick:      r.ticks.Add(1),
		Fills:     fillsByWallet,
	}
	r.store.Publish(set)
	if r.broadcast != nil {
		r.broadcast.Broadcast(set)
	}
	if r.sink != nil {
		r.sink.Enqueue(set)
	}

	r.metrics.RecordDegraded(degraded)
	result := "ok"
	if degraded > 0 {
		result = "degraded"
	}
	r.metrics.RecordRefresh(result, time.Since(start).Seconds())

	r.log.Info("refresh complete",
		logger.Uint64("tick", set.Tick),
		logger.Int("wallets", len(snapshots)),
		logger.Int("degraded", degraded),
		logger.Duration("took", time.Since(start)))
	return set, nil
}

// fetchWallet pulls all four sources for one wallet. Sources fail
// independently: a failure is recorded and the remaining sources are still
// fetched, so the snapshot degrades per source rather than wholesale.
func (r *Refresher) fetchWallet(ctx context.Context, w models.WalletConfig) walletResult {
	var res walletResult
	short := util.ShortAddress(w.Address)

	t := time.Now()
	balances, err := r.info.FetchBalances(ctx, w.Address)
	r.observe("fetch_balances", t, err)
	if err != nil {
		r.log.Warn("balance fetch failed", logger.String("wallet", short), logger.Error(err))
		res.errs = append(res.errs, sourceError(hypercore.Source, err))
	} else {
		res.balances = balances
	}

	t = time.Now()
	staking, err := r.info.FetchStaking(ctx, w.Address)
	r.observe("fetch_staking", t, err)
	if err != nil {
		r.log.Warn("staking fetch failed", logger.String("wallet", short), logger.Error(err))
		res.errs = append(res.errs, sourceError(hypercore.Source, err))
	} else {
		res.staking = staking
	}

	t = time.Now()
	fills, err := r.info.FetchFills(ctx, w.Address)
	r.observe("fetch_fills", t, err)
	if err != nil {
		r.log.Warn("fills fetch failed", logger.String("wallet", short), logger.Error(err))
		res.errs = append(res.errs, sourceError(hypercore.Source, err))
	} else {
		res.fills = fills
	}

	t = time.Now()
	native, err := r.chain.NativeBalance(ctx, w.Address)
	r.observe("native_balance", t, err)
	if err != nil {
		r.log.Warn("native balance fetch failed", logger.String("wallet", short), logger.Error(err))
		res.errs = append(res.errs, sourceError(evmrpc.Source, err))
	} else {
		res.native = native
	}

	return res
}

func (r *Refresher) observe(op string, start time.Time, err error) {
	r.metrics.RecordLatency(op, time.Since(start).Seconds())
	if err == nil {
		return
	}
	if kind, ok := apperror.KindOf(err); ok {
		r.metrics.RecordError(string(kind))
	} else {
		r.metrics.RecordError("unknown")
	}
}

// warnMalformedAddresses flags configured addresses that can never fetch.
// They keep their snapshot slot and publish as persistently degraded.
func (r *Refresher) warnMalformedAddresses() {
	for _, w := range r.wallets {
		if !evmrpc.ValidAddress(w.Address) {
			r.log.Warn("wallet address is not a valid EVM address, its snapshots will be degraded",
				logger.String("label", w.Label),
				logger.String("address", w.Address))
		}
	}
}

func (r *Refresher) probeChain(ctx context.Context) {
	id, err := r.chain.ChainID(ctx)
	if err != nil {
		r.log.Warn("chain probe failed", logger.Error(err))
		return
	}
	r.log.Info("connected to HyperEVM", logger.String("chain_id", id))
}

// collectSymbols gathers the distinct token symbols across all wallets,
// sorted for a deterministic price request.
func collectSymbols(results []walletResult) []string {
	seen := make(map[string]struct{})
	symbols := make([]string, 0, 8)
	add := func(token string) {
		sym := strings.ToUpper(token)
		if sym == "" {
			return
		}
		if _, dup := seen[sym]; dup {
			return
		}
		seen[sym] = struct{}{}
		symbols = append(symbols, sym)
	}

	for _, res := range results {
		for _, b := range res.balances {
			add(b.Token)
		}
		if res.native.IsPositive() {
			add(NativeToken)
		}
	}
	sort.Strings(symbols)
	return symbols
}

func sourceError(fallback string, err error) models.SourceError {
	src := apperror.SourceOf(err)
	if src == "" {
		src = fallback
	}
	return models.SourceError{Source: src, Message: err.Error()}
}
