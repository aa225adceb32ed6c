package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"shortlist/internal/apierr"
	"shortlist/internal/logger"
	"shortlist/internal/models"
	"shortlist/internal/repos"
	"shortlist/internal/utils"
)

const maxRatingScore = 100

// InitialScore seeds a criterion's score from the property's features.
// The criterion scores weight×points (capped at 100) when the user has a
// priority with the same name and some feature mentions that name; every
// other case scores 0. Names compare case-insensitively.
func InitialScore(features []string, priorities []*models.Priority, criterion *models.RatingCriterion) float64 {
	if criterion == nil {
		return 0
	}
	name := strings.ToLower(criterion.Name)

	var match *models.Priority
	for _, p := range priorities {
		if strings.ToLower(p.Name) == name {
			match = p
			break
		}
	}
	if match == nil {
		return 0
	}

	for _, f := range features {
		if strings.Contains(strings.ToLower(f), name) {
			return utils.Clamp(float64(match.Weight*criterion.Points), 0, maxRatingScore)
		}
	}
	return 0
}

// PopulateReport lists which primary users were seeded and which failed.
type PopulateReport struct {
	Succeeded []uuid.UUID         `json:"succeeded"`
	Failed    map[uuid.UUID]error `json:"-"`
}

// RatingPopulator writes the initial per-criterion scores for a property.
type RatingPopulator struct {
	log     *logger.Logger
	repos   *repos.Repos
	trigger ScoreTrigger
}

func NewRatingPopulator(log *logger.Logger, r *repos.Repos, trigger ScoreTrigger) *RatingPopulator {
	return &RatingPopulator{
		log:     log.With("service", "RatingPopulator"),
		repos:   r,
		trigger: trigger,
	}
}

// PopulateInitialRatings writes one row per criterion userID owns. Rows are
// upserted on (user, property, criterion), so repeating the call overwrites
// instead of duplicating. Any fetch failure aborts before writing.
func (p *RatingPopulator) PopulateInitialRatings(ctx context.Context, propertyID, userID uuid.UUID) (int, error) {
	property, err := p.repos.Properties.GetByID(ctx, nil, propertyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apierr.NotFound(fmt.Errorf("property %s not found", propertyID))
		}
		return 0, apierr.Upstream(fmt.Errorf("fetch property: %w", err))
	}
	priorities, err := p.repos.Catalog.ListPriorities(ctx, nil, userID)
	if err != nil {
		return 0, apierr.Upstream(fmt.Errorf("fetch priorities: %w", err))
	}
	criteria, err := p.repos.Catalog.ListCriteria(ctx, nil, userID)
	if err != nil {
		return 0, apierr.Upstream(fmt.Errorf("fetch rating criteria: %w", err))
	}

	features := property.FeatureList()
	rows := make([]*models.PropertyRating, 0, len(criteria))
	for _, c := range criteria {
		rows = append(rows, &models.PropertyRating{
			UserID:     userID,
			PropertyID: propertyID,
			RatingID:   c.ID,
			Score:      InitialScore(features, priorities, c),
		})
	}

	if err := p.repos.Ratings.Upsert(ctx, nil, rows); err != nil {
		return 0, apierr.Upstream(fmt.Errorf("store initial ratings: %w", err))
	}
	return len(rows), nil
}

// PopulateForPrimaryUsers seeds ratings for every primary user. A failure
// for one user is logged and recorded without stopping the others. The
// returned error is set only when the primary users cannot be listed.
func (p *RatingPopulator) PopulateForPrimaryUsers(ctx context.Context, propertyID uuid.UUID) (*PopulateReport, error) {
	users, err := p.repos.Users.ListByRole(ctx, nil, models.RolePrimary)
	if err != nil {
		p.log.Error("Failed to list primary users", "property_id", propertyID, "error", err)
		return nil, apierr.Upstream(fmt.Errorf("list primary users: %w", err))
	}

	report := &PopulateReport{Failed: make(map[uuid.UUID]error)}
	for _, u := range users {
		n, err := p.PopulateInitialRatings(ctx, propertyID, u.ID)
		if err != nil {
			p.log.Warn("Initial rating population failed",
				"property_id", propertyID,
				"user_id", u.ID,
				"error", err,
			)
			report.Failed[u.ID] = err
			continue
		}
		p.log.Debug("Initial ratings populated", "property_id", propertyID, "user_id", u.ID, "rows", n)
		report.Succeeded = append(report.Succeeded, u.ID)
	}

	if len(report.Succeeded) > 0 && p.trigger != nil {
		p.trigger.ScheduleUpdate(propertyID)
	}
	return report, nil
}
