package middleware

import (
	"context"
	"sync"
	"time"

	"HyperTrack/internal/domain/models"
	domrepo "HyperTrack/internal/domain/repository"
	"HyperTrack/pkg/logger"
)

// HistoryPipeline sits between the refresher and the history store. The
// refresher enqueues published sets without blocking; a background flusher
// writes them with exponential backoff so a slow or briefly unavailable
// backend never stalls a tick.
type HistoryPipeline struct {
	store    domrepo.HistoryStore
	log      *logger.Logger
	metrics  domrepo.Metrics
	buf      chan *models.SnapshotSet
	stopCh   chan struct{}
	retries  int
	disabled bool
	started  bool
	mu       sync.Mutex
	wg       sync.WaitGroup
}

type PipelineOption func(*HistoryPipeline)

// WithBufferSize sets how many pending sets the pipeline holds before it
// starts dropping the oldest.
func WithBufferSize(n int) PipelineOption {
	return func(p *HistoryPipeline) {
		if n > 0 {
			p.buf = make(chan *models.SnapshotSet, n)
		}
	}
}

// WithRetries sets how many write attempts a set gets before it is dropped.
func WithRetries(n int) PipelineOption {
	return func(p *HistoryPipeline) {
		if n > 0 {
			p.retries = n
		}
	}
}

// NewHistoryPipeline creates the write pipeline. With the "none" backend
// the pipeline constructs normally but Enqueue becomes a no-op.
func NewHistoryPipeline(store domrepo.HistoryStore, log *logger.Logger, metrics domrepo.Metrics, opts ...PipelineOption) *HistoryPipeline {
	p := &HistoryPipeline{
		store:    store,
		log:      log.WithComponent("history"),
		metrics:  metrics,
		buf:      make(chan *models.SnapshotSet, 16),
		stopCh:   make(chan struct{}),
		retries:  3,
		disabled: store.Backend() == "none",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Enqueue hands a published set to the flusher without blocking. When the
// buffer is full the oldest queued set is dropped: history prefers fresh
// ticks over completeness.
func (p *HistoryPipeline) Enqueue(set *models.SnapshotSet) {
	if set == nil || p.disabled {
		return
	}
	select {
	case p.buf <- set:
		return
	default:
	}

	select {
	case <-p.buf:
		p.metrics.RecordError("history_buffer_drop")
	default:
	}
	select {
	case p.buf <- set:
	default:
		p.metrics.RecordError("history_buffer_drop")
	}
}

// Start launches the background flusher.
func (p *HistoryPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started || p.disabled {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			case set := <-p.buf:
				if set == nil {
					continue
				}
				p.flush(ctx, set)
			}
		}
	}()
}

// Stop halts the flusher. Sets still buffered are dropped; the next tick
// carries fresh data anyway.
func (p *HistoryPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
	p.wg.Wait()
}

// flush writes one set, retrying with exponential backoff up to the
// configured attempt count.
func (p *HistoryPipeline) flush(ctx context.Context, set *models.SnapshotSet) {
	backoff := 250 * time.Millisecond
	for attempt := 1; ; attempt++ {
		start := time.Now()
		err := p.store.Record(ctx, set)
		p.metrics.RecordLatency("history_write", time.Since(start).Seconds())
		if err == nil {
			p.metrics.RecordHistoryWrite(p.store.Backend(), countRows(set))
			return
		}

		p.metrics.RecordError("history_write")
		if attempt >= p.retries {
			p.log.Error("history write dropped after retries",
				logger.Uint64("tick", set.Tick),
				logger.Int("attempts", attempt),
				logger.Error(err))
			return
		}
		p.log.Warn("history write failed, retrying",
			logger.Uint64("tick", set.Tick),
			logger.Duration("backoff", backoff),
			logger.Error(err))

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		}
		if backoff < 4*time.Second {
			backoff *= 2
		}
	}
}

func countRows(set *models.SnapshotSet) int {
	rows := 0
	for i := range set.Snapshots {
		rows += len(set.Snapshots[i].Balances)
	}
	for _, fills := range set.Fills {
		rows += len(fills)
	}
	return rows
}
