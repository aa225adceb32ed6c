package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"shortlist/internal/apierr"
	"shortlist/internal/events"
	"shortlist/internal/logger"
	"shortlist/internal/models"
	"shortlist/internal/repos"
	"shortlist/internal/utils"
)

var ErrPropertyIDRequired = errors.New("property_id is required")

// CombineScore is the pure reduction behind every combined score: half of
// each primary rating plus up votes minus down votes, clamped to [0,100].
func CombineScore(ratingScores []float64, up, down int) float64 {
	return utils.DefaultScoreConfig.Combine(ratingScores, up, down)
}

// ScoreAggregator recomputes and persists a property's combined score.
type ScoreAggregator struct {
	log   *logger.Logger
	repos *repos.Repos
	bus   events.Bus

	mu    sync.Mutex
	locks map[uuid.UUID]*propertyLock
}

// propertyLock serialises recomputes of one property. refs counts holders
// and waiters so the entry can be dropped once idle.
type propertyLock struct {
	sync.Mutex
	refs int
}

func NewScoreAggregator(log *logger.Logger, r *repos.Repos, bus events.Bus) *ScoreAggregator {
	return &ScoreAggregator{
		log:   log.With("service", "ScoreAggregator"),
		repos: r,
		bus:   bus,
		locks: make(map[uuid.UUID]*propertyLock),
	}
}

// Calculate validates a raw property id and recomputes its score. A missing
// or malformed id fails before any store access.
func (a *ScoreAggregator) Calculate(ctx context.Context, propertyID string) (float64, error) {
	propertyID = strings.TrimSpace(propertyID)
	if propertyID == "" {
		return 0, apierr.Validation(ErrPropertyIDRequired)
	}
	id, err := uuid.Parse(propertyID)
	if err != nil {
		return 0, apierr.Validation(fmt.Errorf("invalid property id: %w", err))
	}
	return a.CalculateID(ctx, id)
}

// CalculateID recomputes the score for id from a fresh read. Calls for the
// same property run one at a time, so the last write reflects the latest
// inputs.
func (a *ScoreAggregator) CalculateID(ctx context.Context, id uuid.UUID) (float64, error) {
	unlock := a.lock(id)
	defer unlock()
	return a.compute(ctx, id)
}

// Refresh recomputes id only while the property still exists. Recomputes
// queued before a delete become no-ops instead of orphan score rows.
func (a *ScoreAggregator) Refresh(ctx context.Context, id uuid.UUID) error {
	unlock := a.lock(id)
	defer unlock()

	if _, err := a.repos.Properties.GetByID(ctx, nil, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			a.log.Debug("Skipping score for deleted property", "property_id", id)
			return nil
		}
		return apierr.Upstream(fmt.Errorf("fetch property: %w", err))
	}
	_, err := a.compute(ctx, id)
	return err
}

func (a *ScoreAggregator) lock(id uuid.UUID) func() {
	a.mu.Lock()
	l, ok := a.locks[id]
	if !ok {
		l = &propertyLock{}
		a.locks[id] = l
	}
	l.refs++
	a.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		a.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(a.locks, id)
		}
		a.mu.Unlock()
	}
}

func (a *ScoreAggregator) compute(ctx context.Context, id uuid.UUID) (float64, error) {
	var (
		ratings  []*models.PropertyRating
		feedback []*models.Feedback
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := a.repos.Ratings.ListPrimaryByProperty(gctx, nil, id)
		if err != nil {
			return fmt.Errorf("fetch primary ratings: %w", err)
		}
		ratings = rows
		return nil
	})
	g.Go(func() error {
		rows, err := a.repos.Feedback.ListByProperty(gctx, nil, id)
		if err != nil {
			return fmt.Errorf("fetch feedback: %w", err)
		}
		feedback = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		a.log.Error("Score inputs unavailable", "property_id", id, "error", err)
		return 0, apierr.Upstream(err)
	}

	scores := make([]float64, 0, len(ratings))
	for _, r := range ratings {
		scores = append(scores, r.Score)
	}
	up, down := CountVotes(feedback)
	combined := CombineScore(scores, up, down)

	if err := a.repos.Scores.Upsert(ctx, nil, id, combined); err != nil {
		a.log.Error("Failed to store combined score", "property_id", id, "error", err)
		return 0, apierr.Upstream(fmt.Errorf("store combined score: %w", err))
	}

	a.log.Debug("Combined score updated",
		"property_id", id,
		"ratings", len(scores),
		"up", up,
		"down", down,
		"combined_score", combined,
	)

	if a.bus != nil {
		evt := events.New(events.ScoreUpdated, id.String(), map[string]float64{"combined_score": combined})
		if err := a.bus.Publish(ctx, evt); err != nil {
			a.log.Warn("Failed to publish score update", "property_id", id, "error", err)
		}
	}
	return combined, nil
}

// CountVotes tallies up and down votes. Unknown votes count as neither.
func CountVotes(feedback []*models.Feedback) (up, down int) {
	for _, f := range feedback {
		switch f.Vote {
		case models.VoteUp:
			up++
		case models.VoteDown:
			down++
		}
	}
	return up, down
}
