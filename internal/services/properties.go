package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

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

// PropertyInput is the manual-entry form of a property.
type PropertyInput struct {
	URL          string   `json:"url"`
	ImageURL     string   `json:"image_url"`
	Price        float64  `json:"price"`
	Description  string   `json:"description"`
	Location     string   `json:"location"`
	Bedrooms     int      `json:"bedrooms"`
	DateOnSale   string   `json:"date_on_sale"`
	EstateAgent  string   `json:"estate_agent"`
	Reduced      bool     `json:"reduced"`
	Views        bool     `json:"views"`
	Gardens      bool     `json:"gardens"`
	Outbuildings bool     `json:"outbuildings"`
	Condition    string   `json:"condition"`
	Features     []string `json:"features"`
}

// PropertySummary is a list row: the property plus its score, nil until
// the first aggregation.
type PropertySummary struct {
	*models.Property
	CombinedScore *float64 `json:"combined_score"`
}

type PropertyDetail struct {
	*models.Property
	CombinedScore *float64                 `json:"combined_score"`
	Feedback      []*models.Feedback       `json:"feedback"`
	Ratings       []*models.PropertyRating `json:"ratings"`
	Upvotes       int                      `json:"upvotes"`
	Downvotes     int                      `json:"downvotes"`
}

// ListingScraper is the part of Scraper properties depend on.
type ListingScraper interface {
	Scrape(ctx context.Context, rawURL string) (*ScrapedProperty, error)
}

// ImageMirror copies a remote image into local storage.
type ImageMirror interface {
	Mirror(ctx context.Context, remoteURL string) (string, error)
}

type PropertyService struct {
	log       *logger.Logger
	repos     *repos.Repos
	populator *RatingPopulator
	scraper   ListingScraper
	images    ImageMirror
	trigger   ScoreTrigger
	bus       events.Bus
}

func NewPropertyService(
	log *logger.Logger,
	r *repos.Repos,
	populator *RatingPopulator,
	scraper ListingScraper,
	images ImageMirror,
	trigger ScoreTrigger,
	bus events.Bus,
) *PropertyService {
	return &PropertyService{
		log:       log.With("service", "PropertyService"),
		repos:     r,
		populator: populator,
		scraper:   scraper,
		images:    images,
		trigger:   trigger,
		bus:       bus,
	}
}

func validateInput(in *PropertyInput) error {
	in.URL = strings.TrimSpace(in.URL)
	if in.URL != "" {
		if _, err := ValidateListingURL(in.URL); err != nil {
			return err
		}
	}
	if in.Price < 0 {
		return apierr.Validation(errors.New("price must not be negative"))
	}
	if in.Bedrooms < 0 {
		return apierr.Validation(errors.New("bedrooms must not be negative"))
	}
	in.DateOnSale = strings.TrimSpace(in.DateOnSale)
	if in.DateOnSale != "" {
		if _, err := time.Parse("2006-01-02", in.DateOnSale); err != nil {
			return apierr.Validation(errors.New("date_on_sale must be YYYY-MM-DD"))
		}
	}
	return nil
}

// CreateManual stores a hand-entered property and seeds every primary
// user's initial ratings.
func (s *PropertyService) CreateManual(ctx context.Context, user *models.User, in PropertyInput) (*models.Property, error) {
	if err := validateInput(&in); err != nil {
		return nil, err
	}
	p := &models.Property{
		URL:          in.URL,
		ImageURL:     strings.TrimSpace(in.ImageURL),
		Price:        in.Price,
		Description:  utils.Truncate(strings.TrimSpace(in.Description), maxDescriptionRunes),
		Location:     strings.TrimSpace(in.Location),
		Bedrooms:     in.Bedrooms,
		DateOnSale:   in.DateOnSale,
		EstateAgent:  strings.TrimSpace(in.EstateAgent),
		Reduced:      in.Reduced,
		Views:        in.Views,
		Gardens:      in.Gardens,
		Outbuildings: in.Outbuildings,
		Condition:    strings.TrimSpace(in.Condition),
		AddedBy:      user.ID,
	}
	p.SetFeatures(in.Features)
	return s.create(ctx, p)
}

// CreateFromURL scrapes the listing, mirrors its image when possible and
// stores the result.
func (s *PropertyService) CreateFromURL(ctx context.Context, user *models.User, rawURL string) (*models.Property, error) {
	scraped, err := s.scraper.Scrape(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	imageURL := scraped.ImageURL
	if imageURL != "" && s.images != nil {
		if local, err := s.images.Mirror(ctx, imageURL); err != nil {
			s.log.Warn("Image mirror failed, keeping remote URL", "image_url", imageURL, "error", err)
		} else {
			imageURL = local
		}
	}

	p := &models.Property{
		URL:          scraped.URL,
		ImageURL:     imageURL,
		Price:        scraped.Price,
		Description:  scraped.Description,
		Location:     scraped.Location,
		Bedrooms:     scraped.Bedrooms,
		DateOnSale:   scraped.DateOnSale,
		EstateAgent:  scraped.EstateAgent,
		Reduced:      scraped.Reduced,
		Views:        scraped.Views,
		Gardens:      scraped.Gardens,
		Outbuildings: scraped.Outbuildings,
		Condition:    scraped.Condition,
		AddedBy:      user.ID,
	}
	p.SetFeatures(scraped.Features)
	return s.create(ctx, p)
}

func (s *PropertyService) create(ctx context.Context, p *models.Property) (*models.Property, error) {
	if err := s.repos.Properties.Create(ctx, nil, p); err != nil {
		s.log.Error("Failed to create property", "error", err)
		return nil, apierr.Upstream(fmt.Errorf("create property: %w", err))
	}
	s.log.Info("Property created", "property_id", p.ID, "added_by", p.AddedBy)

	if s.populator != nil {
		report, err := s.populator.PopulateForPrimaryUsers(ctx, p.ID)
		if err != nil {
			s.log.Warn("Initial ratings not populated", "property_id", p.ID, "error", err)
		} else if len(report.Failed) > 0 {
			s.log.Warn("Initial ratings partially populated",
				"property_id", p.ID,
				"succeeded", len(report.Succeeded),
				"failed", len(report.Failed),
			)
		}
	}

	s.publish(ctx, events.PropertyChanged, p.ID, map[string]string{"action": "created"})
	return p, nil
}

func (s *PropertyService) getProperty(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	p, err := s.repos.Properties.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound(errors.New("property not found"))
		}
		return nil, apierr.Upstream(fmt.Errorf("fetch property: %w", err))
	}
	return p, nil
}

// Get returns the property with its score, feedback and ratings.
func (s *PropertyService) Get(ctx context.Context, id uuid.UUID) (*PropertyDetail, error) {
	p, err := s.getProperty(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &PropertyDetail{Property: p}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		row, err := s.repos.Scores.Get(gctx, nil, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("fetch score: %w", err)
		}
		score := row.CombinedScore
		detail.CombinedScore = &score
		return nil
	})
	g.Go(func() error {
		rows, err := s.repos.Feedback.ListByProperty(gctx, nil, id)
		if err != nil {
			return fmt.Errorf("fetch feedback: %w", err)
		}
		detail.Feedback = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.repos.Ratings.ListByProperty(gctx, nil, id)
		if err != nil {
			return fmt.Errorf("fetch ratings: %w", err)
		}
		detail.Ratings = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, apierr.Upstream(err)
	}

	detail.Upvotes, detail.Downvotes = CountVotes(detail.Feedback)
	if err := s.decorateFeedback(ctx, detail.Feedback); err != nil {
		return nil, err
	}
	return detail, nil
}

func (s *PropertyService) decorateFeedback(ctx context.Context, feedback []*models.Feedback) error {
	ids := make([]uuid.UUID, 0, len(feedback))
	for _, f := range feedback {
		ids = append(ids, f.UserID)
		f.NotesHTML = utils.RenderMarkdown(f.Notes)
	}
	users, err := s.repos.Users.GetByIDs(ctx, nil, ids)
	if err != nil {
		return apierr.Upstream(fmt.Errorf("fetch feedback users: %w", err))
	}
	emails := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		emails[u.ID] = u.Email
	}
	for _, f := range feedback {
		f.UserEmail = emails[f.UserID]
	}
	return nil
}

func (s *PropertyService) List(ctx context.Context, filter repos.PropertyFilter) ([]*PropertySummary, error) {
	props, err := s.repos.Properties.List(ctx, nil, filter)
	if err != nil {
		return nil, apierr.Upstream(fmt.Errorf("list properties: %w", err))
	}
	ids := make([]uuid.UUID, len(props))
	for i, p := range props {
		ids[i] = p.ID
	}
	scores, err := s.repos.Scores.GetMany(ctx, nil, ids)
	if err != nil {
		return nil, apierr.Upstream(fmt.Errorf("list scores: %w", err))
	}

	out := make([]*PropertySummary, 0, len(props))
	for _, p := range props {
		row := &PropertySummary{Property: p}
		if v, ok := scores[p.ID]; ok {
			row.CombinedScore = &v
		}
		out = append(out, row)
	}
	return out, nil
}

const featureSwapAttempts = 5

// AddFeature appends a feature, ignoring case-insensitive duplicates.
func (s *PropertyService) AddFeature(ctx context.Context, user *models.User, id uuid.UUID, feature string) (*models.Property, error) {
	feature = strings.TrimSpace(feature)
	if feature == "" {
		return nil, apierr.Validation(errors.New("feature must not be empty"))
	}
	var p *models.Property
	for attempt := 0; ; attempt++ {
		current, err := s.getProperty(ctx, id)
		if err != nil {
			return nil, err
		}
		prev := current.Features
		current.SetFeatures(append(current.FeatureList(), feature))
		ok, err := s.repos.Properties.SwapFeatures(ctx, nil, id, prev, current.Features)
		if err != nil {
			return nil, apierr.Upstream(fmt.Errorf("update features: %w", err))
		}
		if ok {
			p = current
			break
		}
		if attempt == featureSwapAttempts-1 {
			return nil, apierr.Upstream(errors.New("features kept changing, giving up"))
		}
	}
	s.log.Info("Feature added", "property_id", id, "user_id", user.ID)

	if s.trigger != nil {
		s.trigger.ScheduleUpdate(id)
	}
	s.publish(ctx, events.PropertyChanged, id, map[string]string{"action": "feature_added"})
	return p, nil
}

// SetImage points the property at a new image path.
func (s *PropertyService) SetImage(ctx context.Context, user *models.User, id uuid.UUID, imageURL string) (*models.Property, error) {
	p, err := s.getProperty(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repos.Properties.UpdateImage(ctx, nil, id, imageURL); err != nil {
		return nil, apierr.Upstream(fmt.Errorf("update image: %w", err))
	}
	p.ImageURL = imageURL
	s.log.Info("Property image replaced", "property_id", id, "user_id", user.ID)
	s.publish(ctx, events.PropertyChanged, id, map[string]string{"action": "image_updated"})
	return p, nil
}

// Delete removes a property and everything scored against it. Only
// primary users may delete.
func (s *PropertyService) Delete(ctx context.Context, user *models.User, id uuid.UUID) error {
	if !user.IsPrimary() {
		return apierr.Forbidden(errors.New("only primary users can delete properties"))
	}
	if err := s.repos.Properties.Delete(ctx, nil, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierr.NotFound(errors.New("property not found"))
		}
		return apierr.Upstream(fmt.Errorf("delete property: %w", err))
	}
	s.log.Info("Property deleted", "property_id", id, "user_id", user.ID)
	s.publish(ctx, events.PropertyChanged, id, map[string]string{"action": "deleted"})
	return nil
}

func (s *PropertyService) publish(ctx context.Context, t events.Type, id uuid.UUID, data interface{}) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, events.New(t, id.String(), data)); err != nil {
		s.log.Warn("Failed to publish event", "type", t, "property_id", id, "error", err)
	}
}
