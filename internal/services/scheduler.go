package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"shortlist/internal/logger"
)

const (
	scoreQueueSize = 1000
	scoreBatchSize = 50
)

// Recomputer recalculates one property's combined score.
type Recomputer interface {
	CalculateID(ctx context.Context, propertyID uuid.UUID) (float64, error)
}

// Refresher recomputes a property's score if the property still exists.
type Refresher interface {
	Refresh(ctx context.Context, propertyID uuid.UUID) error
}

// ScoreTrigger is the narrow interface producers use to request a recompute.
type ScoreTrigger interface {
	ScheduleUpdate(propertyID uuid.UUID)
}

// ScoreScheduler queues score recomputations and runs them in batches,
// skipping properties that are already waiting.
type ScoreScheduler struct {
	log      *logger.Logger
	calc     Refresher
	queue    chan uuid.UUID
	pending  map[uuid.UUID]bool
	mu       sync.Mutex
	interval time.Duration
}

func NewScoreScheduler(log *logger.Logger, calc Refresher, interval time.Duration) *ScoreScheduler {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &ScoreScheduler{
		log:      log.With("service", "ScoreScheduler"),
		calc:     calc,
		queue:    make(chan uuid.UUID, scoreQueueSize),
		pending:  make(map[uuid.UUID]bool),
		interval: interval,
	}
}

// ScheduleUpdate enqueues propertyID without blocking.
func (s *ScoreScheduler) ScheduleUpdate(propertyID uuid.UUID) {
	s.mu.Lock()
	if s.pending[propertyID] {
		s.mu.Unlock()
		return
	}
	s.pending[propertyID] = true
	s.mu.Unlock()

	select {
	case s.queue <- propertyID:
	default:
		s.mu.Lock()
		delete(s.pending, propertyID)
		s.mu.Unlock()
		s.log.Warn("Score queue full, dropping update", "property_id", propertyID)
	}
}

// Start runs the batch worker in the background until ctx is cancelled.
// The returned channel closes once the worker has drained its last batch.
func (s *ScoreScheduler) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.worker(ctx)
	}()
	return done
}

func (s *ScoreScheduler) worker(ctx context.Context) {
	batch := make([]uuid.UUID, 0, scoreBatchSize)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if len(batch) > 0 {
				s.processBatch(context.Background(), batch)
			}
			return
		case id := <-s.queue:
			batch = append(batch, id)
			if len(batch) >= scoreBatchSize {
				s.processBatch(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.processBatch(ctx, batch)
				batch = batch[:0]
			}
		}
	}
}

// Flush synchronously processes everything currently queued.
func (s *ScoreScheduler) Flush(ctx context.Context) {
	var batch []uuid.UUID
	for {
		select {
		case id := <-s.queue:
			batch = append(batch, id)
		default:
			if len(batch) > 0 {
				s.processBatch(ctx, batch)
			}
			return
		}
	}
}

// Pending reports how many properties are waiting for a recompute.
func (s *ScoreScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *ScoreScheduler) processBatch(ctx context.Context, ids []uuid.UUID) {
	for _, id := range ids {
		// Cleared first so a change arriving mid-recompute queues another pass.
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()

		if err := s.calc.Refresh(ctx, id); err != nil {
			s.log.Error("Scheduled score update failed", "property_id", id, "error", err)
		}
	}
}
