package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"linklock-be/internal/entities"
	"linklock-be/internal/repository"
)

const clickInsertTimeout = 5 * time.Second

// ClickRecorder persists click events in the background. Emit never
// blocks the redirect decision: events are queued to a buffered
// channel drained by a single worker, and a failed or dropped insert
// is logged without affecting the redirect.
type ClickRecorder struct {
	repo   repository.ClickRepository
	queue  chan *entities.Click
	done   chan struct{}
	logger *zap.SugaredLogger

	stopOnce sync.Once
}

// NewClickRecorder creates a recorder with the given queue capacity.
func NewClickRecorder(repo repository.ClickRepository, bufferSize int, logger *zap.SugaredLogger) *ClickRecorder {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	return &ClickRecorder{
		repo:   repo,
		queue:  make(chan *entities.Click, bufferSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Start launches the background worker.
func (r *ClickRecorder) Start() {
	go r.drain()
}

// Stop closes the queue and waits for queued events to be persisted.
func (r *ClickRecorder) Stop() {
	r.stopOnce.Do(func() {
		close(r.queue)
		<-r.done
	})
}

// Emit queues one click event. If the queue is full the event is
// dropped and logged; analytics loss must never stall a redirect.
func (r *ClickRecorder) Emit(click *entities.Click) {
	select {
	case r.queue <- click:
	default:
		r.logger.Warnw("click queue full, dropping event", "link_id", click.LinkID)
	}
}

func (r *ClickRecorder) drain() {
	defer close(r.done)
	for click := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), clickInsertTimeout)
		if err := r.repo.Insert(ctx, click); err != nil {
			r.logger.Errorw("failed to record click", "link_id", click.LinkID, "error", err)
		}
		cancel()
	}
}
