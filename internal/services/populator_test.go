package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"shortlist/internal/apierr"
	"shortlist/internal/models"
	"shortlist/internal/repos"
	"shortlist/internal/repos/testutil"
	"shortlist/internal/services"
)

func TestInitialScoreMatchingRule(t *testing.T) {
	for w := 1; w <= 10; w++ {
		for _, cat := range []models.Category{
			models.CategoryMustHave, models.CategoryNiceToHave,
			models.CategoryWouldLike, models.CategoryNotImportant,
		} {
			points, _ := cat.Points()
			criterion := &models.RatingCriterion{Name: "Pool", Category: cat, Points: points}
			priorities := []*models.Priority{{Name: "pool", Weight: w}}

			want := float64(w * points)
			if want > 100 {
				want = 100
			}
			if got := services.InitialScore([]string{"Heated POOL house"}, priorities, criterion); got != want {
				t.Fatalf("w=%d p=%d matched: got=%v want=%v", w, points, got, want)
			}
			if got := services.InitialScore([]string{"Fireplace"}, priorities, criterion); got != 0 {
				t.Fatalf("w=%d p=%d unmatched feature: got=%v want=0", w, points, got)
			}
			if got := services.InitialScore([]string{"Pool"}, nil, criterion); got != 0 {
				t.Fatalf("w=%d p=%d no priority: got=%v want=0", w, points, got)
			}
		}
	}
}

func TestPopulateAndAggregateScenario(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)

	a := primary(t, env.db, "a@example.com")
	b := primary(t, env.db, "b@example.com")
	voterUp := testutil.SeedUser(t, env.db, "up@example.com", models.RoleSecondary)
	voterDown := testutil.SeedUser(t, env.db, "down@example.com", models.RoleSecondary)

	testutil.SeedPriority(t, env.db, a.ID, "Pool", 10)
	testutil.SeedCriterion(t, env.db, a.ID, "Pool", models.CategoryMustHave)
	testutil.SeedCriterion(t, env.db, b.ID, "Pool", models.CategoryMustHave)

	p := testutil.SeedProperty(t, env.db, a.ID, "Fireplace", "Pool")
	testutil.SeedVote(t, env.db, voterUp.ID, p.ID, models.VoteUp)
	testutil.SeedVote(t, env.db, voterDown.ID, p.ID, models.VoteDown)

	trigger := &recordingTrigger{}
	pop := services.NewRatingPopulator(env.log, env.repos, trigger)
	report, err := pop.PopulateForPrimaryUsers(ctx, p.ID)
	if err != nil {
		t.Fatalf("populate: %v", err)
	}
	if len(report.Succeeded) != 2 || len(report.Failed) != 0 {
		t.Fatalf("report: got=%+v", report)
	}
	if trigger.count(p.ID) != 1 {
		t.Fatalf("scheduled: got=%d want=1", trigger.count(p.ID))
	}

	rowsA, _ := env.repos.Ratings.ListByUserAndProperty(ctx, nil, a.ID, p.ID)
	rowsB, _ := env.repos.Ratings.ListByUserAndProperty(ctx, nil, b.ID, p.ID)
	if len(rowsA) != 1 || rowsA[0].Score != 100 {
		t.Fatalf("user A rows: got=%+v want one row scoring 100", rowsA)
	}
	if len(rowsB) != 1 || rowsB[0].Score != 0 {
		t.Fatalf("user B rows: got=%+v want one row scoring 0", rowsB)
	}

	agg := services.NewScoreAggregator(env.log, env.repos, nil)
	got, err := agg.Calculate(ctx, p.ID.String())
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if got != 50 {
		t.Fatalf("combined: got=%v want=50", got)
	}
}

func TestPopulateTwiceKeepsOneRowPerCriterion(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)

	u := primary(t, env.db, "p@example.com")
	testutil.SeedCriterion(t, env.db, u.ID, "Garden", models.CategoryNiceToHave)
	testutil.SeedCriterion(t, env.db, u.ID, "Views", models.CategoryWouldLike)
	p := testutil.SeedProperty(t, env.db, u.ID, "Garden")

	pop := services.NewRatingPopulator(env.log, env.repos, nil)
	for i := 0; i < 2; i++ {
		n, err := pop.PopulateInitialRatings(ctx, p.ID, u.ID)
		if err != nil {
			t.Fatalf("populate %d: %v", i, err)
		}
		if n != 2 {
			t.Fatalf("rows written: got=%d want=2", n)
		}
	}

	if n := countRows(t, env.db, &models.PropertyRating{}, "property_id = ?", p.ID); n != 2 {
		t.Fatalf("stored rows: got=%d want=2", n)
	}
}

func TestPopulateMissingPropertyIsNotFound(t *testing.T) {
	env := newEnv(t)
	u := primary(t, env.db, "p@example.com")

	pop := services.NewRatingPopulator(env.log, env.repos, nil)
	_, err := pop.PopulateInitialRatings(context.Background(), uuid.New(), u.ID)
	if !apierr.IsCode(err, apierr.CodeNotFound) {
		t.Fatalf("err: got=%v want not_found", err)
	}
}

type failingCatalog struct {
	repos.CatalogRepo
	failFor uuid.UUID
}

func (f failingCatalog) ListPriorities(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*models.Priority, error) {
	if userID == f.failFor {
		return nil, errors.New("connection reset")
	}
	return f.CatalogRepo.ListPriorities(ctx, tx, userID)
}

func TestPopulateIsolatesPerUserFailures(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)

	good := primary(t, env.db, "good@example.com")
	bad := primary(t, env.db, "bad@example.com")
	testutil.SeedCriterion(t, env.db, good.ID, "Pool", models.CategoryMustHave)
	testutil.SeedCriterion(t, env.db, bad.ID, "Pool", models.CategoryMustHave)
	p := testutil.SeedProperty(t, env.db, good.ID, "Pool")

	env.repos.Catalog = failingCatalog{CatalogRepo: env.repos.Catalog, failFor: bad.ID}
	trigger := &recordingTrigger{}
	pop := services.NewRatingPopulator(env.log, env.repos, trigger)

	report, err := pop.PopulateForPrimaryUsers(ctx, p.ID)
	if err != nil {
		t.Fatalf("populate: %v", err)
	}
	if len(report.Succeeded) != 1 || report.Succeeded[0] != good.ID {
		t.Fatalf("succeeded: got=%v want=[%s]", report.Succeeded, good.ID)
	}
	if _, ok := report.Failed[bad.ID]; !ok || len(report.Failed) != 1 {
		t.Fatalf("failed: got=%v want only %s", report.Failed, bad.ID)
	}
	if n := countRows(t, env.db, &models.PropertyRating{}, "user_id = ?", good.ID); n != 1 {
		t.Fatalf("good user rows: got=%d want=1", n)
	}
	if n := countRows(t, env.db, &models.PropertyRating{}, "user_id = ?", bad.ID); n != 0 {
		t.Fatalf("bad user rows: got=%d want=0", n)
	}
	if trigger.count(p.ID) != 1 {
		t.Fatalf("aggregation should still be scheduled once")
	}
}
