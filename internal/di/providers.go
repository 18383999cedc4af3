package di

import (
	"context"
	"fmt"
	"time"

	"HyperTrack/internal/domain/repository"
	"HyperTrack/internal/handler/api"
	mid "HyperTrack/internal/middleware"
	internalrepo "HyperTrack/internal/repository"
	"HyperTrack/internal/service/evmrpc"
	"HyperTrack/internal/service/hypercore"
	"HyperTrack/internal/service/prices"
	"HyperTrack/internal/usecase"
	"HyperTrack/pkg/cache"
	pkgch "HyperTrack/pkg/clickhouse"
	"HyperTrack/pkg/config"
	xhttp "HyperTrack/pkg/http"
	pkgkafka "HyperTrack/pkg/kafka"
	applogger "HyperTrack/pkg/logger"
	"HyperTrack/pkg/metrics"
	"HyperTrack/pkg/server"
)

// ProvideLogger creates the application logger. Development environments get
// human-readable console output; everything else logs JSON.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	lcfg := &applogger.Config{Level: "info", Format: "json", Output: "stdout"}
	if cfg.App.Environment == "development" {
		lcfg.Level = "debug"
		lcfg.Format = "console"
	}
	return applogger.New(lcfg)
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache creates the API response cache backend.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	switch cfg.Cache.Backend {
	case "memory":
		return cache.NewMemoryCache(cache.WithMemoryTTL(cfg.PriceCacheTTL())), nil
	case "redis":
		return newRedisCache(cfg)
	case "layered":
		rc, err := newRedisCache(cfg)
		if err != nil {
			return nil, err
		}
		return cache.NewLayeredCache(rc, cache.WithLayeredMemoryTTL(cfg.PriceCacheTTL())), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

func newRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Cache.Redis.Host),
		cache.WithRedisPort(cfg.Cache.Redis.Port),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
		cache.WithRedisPrefix("hypertrack"),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideChainClient creates the HyperEVM JSON-RPC client.
func ProvideChainClient(cfg *config.Config) (repository.ChainClient, error) {
	client, err := evmrpc.NewClient(cfg.APIs.RPCEndpoint, cfg.RequestTimeout())
	if err != nil {
		return nil, fmt.Errorf("evm rpc client: %w", err)
	}
	return client, nil
}

// ProvideInfoClient creates the HyperCore info API client.
func ProvideInfoClient(cfg *config.Config, cacheSvc cache.Service) repository.InfoClient {
	return hypercore.NewClient(hypercore.Config{
		Endpoint:  cfg.APIs.HyperCoreAPI,
		Timeout:   cfg.RequestTimeout(),
		CacheTTL:  cfg.PriceCacheTTL(),
		RateLimit: cfg.APIs.RateLimit,
		Burst:     cfg.APIs.BurstLimit,
	}, cacheSvc)
}

// ProvidePriceSource creates the Pyth Hermes price client.
func ProvidePriceSource(cfg *config.Config, cacheSvc cache.Service) (repository.PriceSource, error) {
	client, err := prices.NewClient(prices.Config{
		Endpoint: cfg.APIs.PriceAPI,
		Timeout:  cfg.RequestTimeout(),
		CacheTTL: cfg.PriceCacheTTL(),
		Feeds:    cfg.Prices.Feeds,
		Static:   cfg.Prices.Static,
	}, cacheSvc)
	if err != nil {
		return nil, fmt.Errorf("price client: %w", err)
	}
	return client, nil
}

// ProvideSnapshotStore creates the current-snapshot-set holder.
func ProvideSnapshotStore() repository.SnapshotStore {
	return internalrepo.NewSnapshotStore()
}

// ProvideHistoryStore creates the configured history backend and prepares
// its schema. The "none" backend is a no-op sink.
func ProvideHistoryStore(cfg *config.Config, log *applogger.Logger) (repository.HistoryStore, error) {
	switch cfg.History.Backend {
	case "clickhouse":
		ch := cfg.History.ClickHouse
		client, err := pkgch.NewClient(
			pkgch.WithHost(ch.Host),
			pkgch.WithPort(ch.Port),
			pkgch.WithDatabase(ch.Database),
			pkgch.WithCredentials(ch.User, ch.Password),
			pkgch.WithMaxConnections(10, 5),
			pkgch.WithHTTP(ch.UseHTTP),
			pkgch.WithAsyncInsert(ch.AsyncInsert, ch.WaitForAsync),
			pkgch.WithTimeouts(ch.DialTimeout, ch.ReadTimeout, ch.WriteTimeout),
		)
		if err != nil {
			return nil, fmt.Errorf("clickhouse client: %w", err)
		}

		store := internalrepo.NewClickHouseHistory(client, ch.Database)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.Init(ctx); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("clickhouse schema: %w", err)
		}
		return store, nil

	case "kafka":
		k := cfg.History.Kafka
		producer, err := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(k.Brokers),
			pkgkafka.WithCompression(k.Compression),
			pkgkafka.WithRequiredAcks(k.RequiredAcks),
			pkgkafka.WithMaxAttempts(k.MaxAttempts),
			pkgkafka.WithBatchSize(k.BatchSize),
			pkgkafka.WithBatchBytes(k.BatchBytes),
			pkgkafka.WithBatchTimeout(k.Linger),
			pkgkafka.WithTimeouts(k.WriteTimeout, k.ReadTimeout),
			pkgkafka.WithAsync(k.Async),
			pkgkafka.WithHashByKey(true),
		)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		// With a broker at hand, ship deduplicated warn/error batches there
		// too, so repeated per-tick fetch failures don't flood the log sink.
		log.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          k.Topic + ".logs",
			Publisher:      producer,
		})
		return internalrepo.NewKafkaHistory(producer, k.Topic), nil

	default:
		return internalrepo.NewNoopHistory(), nil
	}
}

// ProvideHistoryPipeline creates the async write pipeline between the
// refresher and the history store.
func ProvideHistoryPipeline(store repository.HistoryStore, log *applogger.Logger, m repository.Metrics) *mid.HistoryPipeline {
	return mid.NewHistoryPipeline(store, log, m)
}

// ProvideHub creates the WebSocket broadcast hub.
func ProvideHub(log *applogger.Logger, store repository.SnapshotStore, m repository.Metrics) *api.Hub {
	return api.NewHub(log, store, m)
}

// ProvideRefresher creates the refresh orchestrator.
func ProvideRefresher(
	cfg *config.Config,
	log *applogger.Logger,
	info repository.InfoClient,
	chain repository.ChainClient,
	priceSrc repository.PriceSource,
	store repository.SnapshotStore,
	hub *api.Hub,
	pipeline *mid.HistoryPipeline,
	m repository.Metrics,
) *usecase.Refresher {
	return usecase.NewRefresher(cfg, log, info, chain, priceSrc, store, hub, pipeline, m)
}

// ProvideDashboardHandler creates the HTTP route handler.
func ProvideDashboardHandler(
	cfg *config.Config,
	log *applogger.Logger,
	refresher *usecase.Refresher,
	store repository.SnapshotStore,
	history repository.HistoryStore,
	hub *api.Hub,
) xhttp.Handler {
	return api.NewDashboardHandler(log, cfg.App.Title, refresher, store, history, hub)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	refresher *usecase.Refresher,
	pipeline *mid.HistoryPipeline,
	history repository.HistoryStore,
	chain repository.ChainClient,
	cacheSvc cache.Service,
	hub *api.Hub,
	handler xhttp.Handler,
) *server.App {
	return server.New(cfg, log, refresher, pipeline, history, chain, cacheSvc, hub, handler)
}
