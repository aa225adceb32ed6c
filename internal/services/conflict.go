package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"shortlist/internal/apierr"
	"shortlist/internal/logger"
	"shortlist/internal/repos"
)

// DefaultConflictThreshold is the spread primary scores must exceed
// before a property is flagged.
const DefaultConflictThreshold = 20.0

// DefaultConflictStateCapacity bounds how many properties keep a conflict
// state in memory. Evicting a flagged property returns it to Idle without a
// Resolve; the next Check flags it again if the spread still exceeds the
// threshold. State does not survive a restart either.
const DefaultConflictStateCapacity = 1024

type ConflictState string

const (
	ConflictIdle    ConflictState = "idle"
	ConflictFlagged ConflictState = "conflict_flagged"
)

// Dispersion measures how far apart the per-user scores are.
type Dispersion string

const (
	// PairwiseExactlyTwo compares two deciders and never flags any other count.
	PairwiseExactlyTwo Dispersion = "pairwise"
	MaxPairwise        Dispersion = "max_pairwise"
	StdDev             Dispersion = "stddev"
)

func ParseDispersion(s string) (Dispersion, error) {
	switch d := Dispersion(strings.ToLower(strings.TrimSpace(s))); d {
	case "":
		return PairwiseExactlyTwo, nil
	case PairwiseExactlyTwo, MaxPairwise, StdDev:
		return d, nil
	default:
		return "", fmt.Errorf("unknown conflict measure %q", s)
	}
}

// Spread returns the dispersion of scores and whether the measure applies
// to that many scores at all.
func (d Dispersion) Spread(scores []float64) (float64, bool) {
	switch d {
	case MaxPairwise:
		if len(scores) < 2 {
			return 0, false
		}
		lo, hi := scores[0], scores[0]
		for _, s := range scores[1:] {
			lo = math.Min(lo, s)
			hi = math.Max(hi, s)
		}
		return hi - lo, true
	case StdDev:
		if len(scores) < 2 {
			return 0, false
		}
		mean := 0.0
		for _, s := range scores {
			mean += s
		}
		mean /= float64(len(scores))
		variance := 0.0
		for _, s := range scores {
			variance += (s - mean) * (s - mean)
		}
		return math.Sqrt(variance / float64(len(scores))), true
	default:
		if len(scores) != 2 {
			return 0, false
		}
		return math.Abs(scores[0] - scores[1]), true
	}
}

// Flags reports whether scores diverge strictly beyond threshold.
func (d Dispersion) Flags(scores []float64, threshold float64) bool {
	spread, ok := d.Spread(scores)
	return ok && spread > threshold
}

type UserScore struct {
	UserID uuid.UUID `json:"user_id"`
	Score  float64   `json:"score"`
}

type ConflictReport struct {
	PropertyID uuid.UUID     `json:"property_id"`
	Measure    Dispersion    `json:"measure"`
	Threshold  float64       `json:"threshold"`
	Scores     []UserScore   `json:"scores"`
	Spread     float64       `json:"spread"`
	Flagged    bool          `json:"flagged"`
	State      ConflictState `json:"state"`
}

// ConflictDetector decides when primary users disagree enough about a
// property to prompt a manual recompute.
type ConflictDetector struct {
	log       *logger.Logger
	repos     *repos.Repos
	calc      Recomputer
	measure   Dispersion
	threshold float64
	states    *lru.Cache[uuid.UUID, ConflictState]
}

// NewConflictDetector keeps state for up to capacity properties; zero or less
// uses DefaultConflictStateCapacity.
func NewConflictDetector(log *logger.Logger, r *repos.Repos, calc Recomputer, measure Dispersion, threshold float64, capacity int) (*ConflictDetector, error) {
	if threshold <= 0 {
		threshold = DefaultConflictThreshold
	}
	if measure == "" {
		measure = PairwiseExactlyTwo
	}
	if capacity <= 0 {
		capacity = DefaultConflictStateCapacity
	}
	log = log.With("service", "ConflictDetector")
	states, err := lru.NewWithEvict[uuid.UUID, ConflictState](capacity, func(id uuid.UUID, state ConflictState) {
		if state == ConflictFlagged {
			log.Warn("Conflict flag evicted before resolve", "property_id", id, "capacity", capacity)
		}
	})
	if err != nil {
		return nil, err
	}
	return &ConflictDetector{
		log:       log,
		repos:     r,
		calc:      calc,
		measure:   measure,
		threshold: threshold,
		states:    states,
	}, nil
}

// Check loads the primary users' scores and flags the property when they
// diverge. A clean check leaves an existing flag in place; only Resolve
// clears it.
func (d *ConflictDetector) Check(ctx context.Context, propertyID uuid.UUID) (*ConflictReport, error) {
	rows, err := d.repos.Ratings.ListPrimaryByProperty(ctx, nil, propertyID)
	if err != nil {
		d.log.Error("Failed to load ratings for conflict check", "property_id", propertyID, "error", err)
		return nil, apierr.Upstream(fmt.Errorf("fetch primary ratings: %w", err))
	}

	type acc struct {
		sum float64
		n   int
	}
	perUser := make(map[uuid.UUID]*acc)
	for _, r := range rows {
		a, ok := perUser[r.UserID]
		if !ok {
			a = &acc{}
			perUser[r.UserID] = a
		}
		a.sum += r.Score
		a.n++
	}

	userScores := make([]UserScore, 0, len(perUser))
	for id, a := range perUser {
		userScores = append(userScores, UserScore{UserID: id, Score: a.sum / float64(a.n)})
	}
	sort.Slice(userScores, func(i, j int) bool {
		return userScores[i].UserID.String() < userScores[j].UserID.String()
	})

	values := make([]float64, len(userScores))
	for i, us := range userScores {
		values[i] = us.Score
	}
	spread, _ := d.measure.Spread(values)
	flagged := d.measure.Flags(values, d.threshold)
	if flagged {
		d.states.Add(propertyID, ConflictFlagged)
		d.log.Info("Score conflict flagged", "property_id", propertyID, "spread", spread, "users", len(values))
	}

	return &ConflictReport{
		PropertyID: propertyID,
		Measure:    d.measure,
		Threshold:  d.threshold,
		Scores:     userScores,
		Spread:     spread,
		Flagged:    flagged,
		State:      d.State(propertyID),
	}, nil
}

// Resolve recomputes the combined score. Success returns the property to
// idle; failure keeps it flagged and is not retried.
func (d *ConflictDetector) Resolve(ctx context.Context, propertyID uuid.UUID) (float64, error) {
	score, err := d.calc.CalculateID(ctx, propertyID)
	if err != nil {
		d.log.Warn("Conflict resolution failed", "property_id", propertyID, "error", err)
		return 0, err
	}
	// Overwrite instead of Remove so the evict hook only sees real evictions.
	d.states.Add(propertyID, ConflictIdle)
	return score, nil
}

func (d *ConflictDetector) State(propertyID uuid.UUID) ConflictState {
	if s, ok := d.states.Get(propertyID); ok {
		return s
	}
	return ConflictIdle
}
