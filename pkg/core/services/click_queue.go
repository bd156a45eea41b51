package services

import (
	"context"
	"sync"
	"time"

	"github.com/wadjakorntonsri/linkbio/pkg/core/domain"
	"github.com/wadjakorntonsri/linkbio/pkg/metrics"
	"github.com/wadjakorntonsri/linkbio/pkg/ports"
	"go.uber.org/zap"
)

const clickTimeout = 10 * time.Second

type tracker interface {
	Track(ctx context.Context, linkID string, visit domain.Visit) error
}

type clickJob struct {
	linkID string
	visit  domain.Visit
}

// ClickQueue records clicks in the background so redirects never wait on
// storage. Delivery is best effort: when the buffer is full the click is
// dropped and counted.
type ClickQueue struct {
	tracker tracker
	jobs    chan clickJob
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewClickQueue(t tracker, size int, logger *zap.Logger, m *metrics.Metrics) *ClickQueue {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	q := &ClickQueue{
		tracker: t,
		jobs:    make(chan clickJob, size),
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
	q.wg.Add(1)
	go q.run()
	return q
}

// Record enqueues the visit without blocking. The arrival time is fixed
// here so a click waiting in the buffer keeps its day.
func (q *ClickQueue) Record(_ context.Context, linkID string, visit domain.Visit) {
	if visit.At.IsZero() {
		visit.At = q.now()
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.metrics.RecordClick("dropped", 0)
		return
	}

	select {
	case q.jobs <- clickJob{linkID: linkID, visit: visit}:
		q.metrics.SetQueueDepth(len(q.jobs))
	default:
		q.metrics.RecordClick("dropped", 0)
		q.logger.Warn("click queue full, dropping click", zap.String("link_id", linkID))
	}
}

func (q *ClickQueue) run() {
	defer q.wg.Done()
	for job := range q.jobs {
		q.metrics.SetQueueDepth(len(q.jobs))
		ctx, cancel := context.WithTimeout(context.Background(), clickTimeout)
		if err := q.tracker.Track(ctx, job.linkID, job.visit); err != nil {
			q.logger.Error("failed to record click", zap.String("link_id", job.linkID), zap.Error(err))
		}
		cancel()
	}
}

// Close stops accepting clicks and waits for the buffered ones to be
// recorded, or for ctx to expire.
func (q *ClickQueue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SyncRecorder records the click before returning. Failures are logged and
// never reach the caller.
type SyncRecorder struct {
	tracker tracker
	logger  *zap.Logger
}

func NewSyncRecorder(t tracker, logger *zap.Logger) *SyncRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncRecorder{tracker: t, logger: logger}
}

func (r *SyncRecorder) Record(ctx context.Context, linkID string, visit domain.Visit) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), clickTimeout)
	defer cancel()
	if err := r.tracker.Track(ctx, linkID, visit); err != nil {
		r.logger.Error("failed to record click", zap.String("link_id", linkID), zap.Error(err))
	}
}

var (
	_ ports.ClickRecorder = (*ClickQueue)(nil)
	_ ports.ClickRecorder = (*SyncRecorder)(nil)
)
