package dispatch

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/dvc-connector/internal/logging"
	"github.com/fyrsmithlabs/dvc-connector/internal/metrics"
)

// DefaultQueueSize bounds pending requests when no size is given.
const DefaultQueueSize = 64

// Handler processes one request.
type Handler interface {
	HandleSource(ctx context.Context, src SourceRequest) error
}

// Queue hands requests to a single worker so that at most one pipeline
// invocation runs at a time.
type Queue struct {
	handler Handler
	pending chan SourceRequest
	logger  *logging.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	closed bool
}

// NewQueue creates a queue holding up to size pending requests.
func NewQueue(h Handler, size int, logger *logging.Logger, m *metrics.Metrics) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Queue{
		handler: h,
		pending: make(chan SourceRequest, size),
		logger:  logger.Named("queue"),
		metrics: m,
	}
}

// Enqueue adds src without blocking.
func (q *Queue) Enqueue(src SourceRequest) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.pending <- src:
		q.metrics.SetQueueDepth(len(q.pending))
		return nil
	default:
		q.metrics.Request(metrics.OutcomeDropped)
		return ErrQueueFull
	}
}

// Len returns the number of pending requests.
func (q *Queue) Len() int {
	return len(q.pending)
}

// Run handles queued requests one at a time until ctx is cancelled.
// Requests still pending at that point are dropped.
func (q *Queue) Run(ctx context.Context) {
	q.logger.Info(ctx, "queue worker started", zap.Int("capacity", cap(q.pending)))
	for {
		select {
		case <-ctx.Done():
			q.Close()
			q.logger.Info(ctx, "queue worker stopped", zap.Int("dropped", len(q.pending)))
			return
		case src := <-q.pending:
			q.metrics.SetQueueDepth(len(q.pending))
			if err := q.handler.HandleSource(ctx, src); err != nil {
				q.logger.Warn(ctx, "queued request failed",
					zap.String("repository", src.Name),
					zap.Error(err),
				)
			}
		}
	}
}

// Close stops accepting requests.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}
