package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"shortlist/internal/apierr"
	"shortlist/internal/events"
	"shortlist/internal/logger"
	"shortlist/internal/models"
	"shortlist/internal/repos"
)

const maxNotesRunes = 2000

// FeedbackService records votes and manual criterion scores. Both feed the
// combined score, so each write schedules a recompute.
type FeedbackService struct {
	log     *logger.Logger
	repos   *repos.Repos
	trigger ScoreTrigger
	bus     events.Bus
}

func NewFeedbackService(log *logger.Logger, r *repos.Repos, trigger ScoreTrigger, bus events.Bus) *FeedbackService {
	return &FeedbackService{
		log:     log.With("service", "FeedbackService"),
		repos:   r,
		trigger: trigger,
		bus:     bus,
	}
}

func (s *FeedbackService) requireProperty(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repos.Properties.GetByID(ctx, nil, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierr.NotFound(errors.New("property not found"))
		}
		return apierr.Upstream(fmt.Errorf("fetch property: %w", err))
	}
	return nil
}

// UpsertFeedback records user's vote; voting again replaces vote and notes.
func (s *FeedbackService) UpsertFeedback(ctx context.Context, user *models.User, propertyID uuid.UUID, vote models.Vote, notes string) (*models.Feedback, error) {
	if !vote.Valid() {
		return nil, apierr.Validation(fmt.Errorf("vote must be %q or %q", models.VoteUp, models.VoteDown))
	}
	notes = strings.TrimSpace(notes)
	if len([]rune(notes)) > maxNotesRunes {
		return nil, apierr.Validation(fmt.Errorf("notes must be at most %d characters", maxNotesRunes))
	}
	if err := s.requireProperty(ctx, propertyID); err != nil {
		return nil, err
	}

	fb := &models.Feedback{UserID: user.ID, PropertyID: propertyID, Vote: vote, Notes: notes}
	if err := s.repos.Feedback.Upsert(ctx, nil, fb); err != nil {
		s.log.Error("Failed to store feedback", "property_id", propertyID, "user_id", user.ID, "error", err)
		return nil, apierr.Upstream(fmt.Errorf("store feedback: %w", err))
	}

	s.after(ctx, events.FeedbackChanged, propertyID, map[string]string{"vote": string(vote)})
	return fb, nil
}

// UpsertRating sets a primary user's score for one of their own criteria.
func (s *FeedbackService) UpsertRating(ctx context.Context, user *models.User, propertyID, ratingID uuid.UUID, score float64) (*models.PropertyRating, error) {
	if !user.IsPrimary() {
		return nil, apierr.Forbidden(errors.New("only primary users can rate properties"))
	}
	if score < 0 || score > maxRatingScore {
		return nil, apierr.Validation(fmt.Errorf("score must be between 0 and %d", maxRatingScore))
	}
	criterion, err := s.repos.Catalog.GetCriterion(ctx, nil, ratingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound(errors.New("rating criterion not found"))
		}
		return nil, apierr.Upstream(fmt.Errorf("fetch rating criterion: %w", err))
	}
	if criterion.UserID != user.ID {
		return nil, apierr.Forbidden(errors.New("rating criterion belongs to another user"))
	}
	if err := s.requireProperty(ctx, propertyID); err != nil {
		return nil, err
	}

	row := &models.PropertyRating{UserID: user.ID, PropertyID: propertyID, RatingID: ratingID, Score: score}
	if err := s.repos.Ratings.Upsert(ctx, nil, []*models.PropertyRating{row}); err != nil {
		s.log.Error("Failed to store rating", "property_id", propertyID, "user_id", user.ID, "error", err)
		return nil, apierr.Upstream(fmt.Errorf("store rating: %w", err))
	}

	s.after(ctx, events.RatingChanged, propertyID, map[string]interface{}{"rating_id": ratingID, "score": score})
	return row, nil
}

func (s *FeedbackService) after(ctx context.Context, t events.Type, propertyID uuid.UUID, data interface{}) {
	if s.trigger != nil {
		s.trigger.ScheduleUpdate(propertyID)
	}
	if s.bus != nil {
		if err := s.bus.Publish(ctx, events.New(t, propertyID.String(), data)); err != nil {
			s.log.Warn("Failed to publish event", "type", t, "property_id", propertyID, "error", err)
		}
	}
}
