package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"shortlist/internal/apierr"
	"shortlist/internal/logger"
	"shortlist/internal/models"
	"shortlist/internal/repos"
)

const (
	MaxPriorities      = 10
	MaxRatingCriteria  = 5
	MinPriorityWeight  = 1
	MaxPriorityWeight  = 10
	maxCatalogNameRune = 50
)

var errPrimaryOnly = errors.New("only primary users can manage priorities and ratings")

// CatalogService manages each primary user's priorities and rating criteria.
type CatalogService struct {
	log   *logger.Logger
	repos *repos.Repos
}

func NewCatalogService(log *logger.Logger, r *repos.Repos) *CatalogService {
	return &CatalogService{log: log.With("service", "CatalogService"), repos: r}
}

func normaliseCatalogName(name string) (string, error) {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	if n == 0 || n > maxCatalogNameRune {
		return "", apierr.Validation(fmt.Errorf("name must be 1-%d characters", maxCatalogNameRune))
	}
	return name, nil
}

func (s *CatalogService) CreatePriority(ctx context.Context, user *models.User, name string, weight int) (*models.Priority, error) {
	if !user.IsPrimary() {
		return nil, apierr.Forbidden(errPrimaryOnly)
	}
	name, err := normaliseCatalogName(name)
	if err != nil {
		return nil, err
	}
	if weight < MinPriorityWeight || weight > MaxPriorityWeight {
		return nil, apierr.Validation(fmt.Errorf("weight must be between %d and %d", MinPriorityWeight, MaxPriorityWeight))
	}

	n, err := s.repos.Catalog.CountPriorities(ctx, nil, user.ID)
	if err != nil {
		return nil, apierr.Upstream(fmt.Errorf("count priorities: %w", err))
	}
	if n >= MaxPriorities {
		return nil, apierr.Unprocessable(fmt.Errorf("at most %d priorities allowed", MaxPriorities))
	}

	p := &models.Priority{UserID: user.ID, Name: name, Weight: weight}
	if err := s.repos.Catalog.CreatePriority(ctx, nil, p); err != nil {
		return nil, apierr.Upstream(fmt.Errorf("create priority: %w", err))
	}
	s.log.Info("Priority created", "user_id", user.ID, "priority_id", p.ID)
	return p, nil
}

func (s *CatalogService) ListPriorities(ctx context.Context, userID uuid.UUID) ([]*models.Priority, error) {
	out, err := s.repos.Catalog.ListPriorities(ctx, nil, userID)
	if err != nil {
		return nil, apierr.Upstream(fmt.Errorf("list priorities: %w", err))
	}
	return out, nil
}

func (s *CatalogService) DeletePriority(ctx context.Context, user *models.User, id uuid.UUID) error {
	if err := s.repos.Catalog.DeletePriority(ctx, nil, user.ID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierr.NotFound(errors.New("priority not found"))
		}
		return apierr.Upstream(fmt.Errorf("delete priority: %w", err))
	}
	return nil
}

func (s *CatalogService) CreateRatingCriterion(ctx context.Context, user *models.User, name string, category models.Category) (*models.RatingCriterion, error) {
	if !user.IsPrimary() {
		return nil, apierr.Forbidden(errPrimaryOnly)
	}
	name, err := normaliseCatalogName(name)
	if err != nil {
		return nil, err
	}
	points, ok := category.Points()
	if !ok {
		return nil, apierr.Validation(fmt.Errorf("unknown category %q", category))
	}

	n, err := s.repos.Catalog.CountCriteria(ctx, nil, user.ID)
	if err != nil {
		return nil, apierr.Upstream(fmt.Errorf("count rating criteria: %w", err))
	}
	if n >= MaxRatingCriteria {
		return nil, apierr.Unprocessable(fmt.Errorf("at most %d rating criteria allowed", MaxRatingCriteria))
	}

	c := &models.RatingCriterion{UserID: user.ID, Name: name, Category: category, Points: points}
	if err := s.repos.Catalog.CreateCriterion(ctx, nil, c); err != nil {
		return nil, apierr.Upstream(fmt.Errorf("create rating criterion: %w", err))
	}
	s.log.Info("Rating criterion created", "user_id", user.ID, "rating_id", c.ID)
	return c, nil
}

func (s *CatalogService) ListRatingCriteria(ctx context.Context, userID uuid.UUID) ([]*models.RatingCriterion, error) {
	out, err := s.repos.Catalog.ListCriteria(ctx, nil, userID)
	if err != nil {
		return nil, apierr.Upstream(fmt.Errorf("list rating criteria: %w", err))
	}
	return out, nil
}

func (s *CatalogService) DeleteRatingCriterion(ctx context.Context, user *models.User, id uuid.UUID) error {
	if err := s.repos.Catalog.DeleteCriterion(ctx, nil, user.ID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierr.NotFound(errors.New("rating criterion not found"))
		}
		return apierr.Upstream(fmt.Errorf("delete rating criterion: %w", err))
	}
	return nil
}
