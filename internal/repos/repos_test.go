package repos_test

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"shortlist/internal/models"
	"shortlist/internal/repos"
	"shortlist/internal/repos/testutil"
)

func TestRatingUpsertKeepsOneRowPerTriple(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)
	r := repos.New(gdb, testutil.Logger(t))

	u := testutil.SeedUser(t, gdb, "a@example.com", models.RolePrimary)
	p := testutil.SeedProperty(t, gdb, u.ID, "Pool")
	c := testutil.SeedCriterion(t, gdb, u.ID, "Pool", models.CategoryMustHave)

	for _, score := range []float64{40, 90} {
		row := &models.PropertyRating{UserID: u.ID, PropertyID: p.ID, RatingID: c.ID, Score: score}
		if err := r.Ratings.Upsert(ctx, nil, []*models.PropertyRating{row}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	rows, err := r.Ratings.ListByUserAndProperty(ctx, nil, u.ID, p.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows: got=%d want=1", len(rows))
	}
	if rows[0].Score != 90 {
		t.Fatalf("score: got=%v want=90", rows[0].Score)
	}
}

func TestListPrimaryByPropertyFiltersRole(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)
	r := repos.New(gdb, testutil.Logger(t))

	primary := testutil.SeedUser(t, gdb, "p@example.com", models.RolePrimary)
	secondary := testutil.SeedUser(t, gdb, "s@example.com", models.RoleSecondary)
	p := testutil.SeedProperty(t, gdb, primary.ID)
	c1 := testutil.SeedCriterion(t, gdb, primary.ID, "Pool", models.CategoryMustHave)
	c2 := testutil.SeedCriterion(t, gdb, secondary.ID, "Pool", models.CategoryMustHave)
	testutil.SeedRating(t, gdb, primary.ID, p.ID, c1.ID, 60)
	testutil.SeedRating(t, gdb, secondary.ID, p.ID, c2.ID, 80)

	rows, err := r.Ratings.ListPrimaryByProperty(ctx, nil, p.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].UserID != primary.ID {
		t.Fatalf("rows: got=%v want only primary user's row", rows)
	}
}

func TestFeedbackUpsertOverwritesVote(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)
	r := repos.New(gdb, testutil.Logger(t))

	u := testutil.SeedUser(t, gdb, "v@example.com", models.RoleSecondary)
	p := testutil.SeedProperty(t, gdb, u.ID)

	if err := r.Feedback.Upsert(ctx, nil, &models.Feedback{UserID: u.ID, PropertyID: p.ID, Vote: models.VoteUp}); err != nil {
		t.Fatalf("first vote: %v", err)
	}
	if err := r.Feedback.Upsert(ctx, nil, &models.Feedback{UserID: u.ID, PropertyID: p.ID, Vote: models.VoteDown, Notes: "too small"}); err != nil {
		t.Fatalf("second vote: %v", err)
	}

	rows, err := r.Feedback.ListByProperty(ctx, nil, p.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows: got=%d want=1", len(rows))
	}
	if rows[0].Vote != models.VoteDown || rows[0].Notes != "too small" {
		t.Fatalf("row: got=%+v", rows[0])
	}
}

func TestScoreUpsertSingleRow(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)
	r := repos.New(gdb, testutil.Logger(t))

	u := testutil.SeedUser(t, gdb, "x@example.com", models.RolePrimary)
	p := testutil.SeedProperty(t, gdb, u.ID)

	if err := r.Scores.Upsert(ctx, nil, p.ID, 10); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := r.Scores.Upsert(ctx, nil, p.ID, 42); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	var n int64
	gdb.Model(&models.PropertyScore{}).Where("property_id = ?", p.ID).Count(&n)
	if n != 1 {
		t.Fatalf("score rows: got=%d want=1", n)
	}
	got, err := r.Scores.Get(ctx, nil, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CombinedScore != 42 {
		t.Fatalf("combined: got=%v want=42", got.CombinedScore)
	}
}

func TestPropertyDeleteCascades(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)
	r := repos.New(gdb, testutil.Logger(t))

	u := testutil.SeedUser(t, gdb, "d@example.com", models.RolePrimary)
	p := testutil.SeedProperty(t, gdb, u.ID, "Garden")
	c := testutil.SeedCriterion(t, gdb, u.ID, "Garden", models.CategoryNiceToHave)
	testutil.SeedRating(t, gdb, u.ID, p.ID, c.ID, 50)
	testutil.SeedVote(t, gdb, u.ID, p.ID, models.VoteUp)
	if err := r.Scores.Upsert(ctx, nil, p.ID, 26); err != nil {
		t.Fatalf("score: %v", err)
	}

	if err := r.Properties.Delete(ctx, nil, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	for _, model := range []interface{}{&models.PropertyRating{}, &models.Feedback{}, &models.PropertyScore{}} {
		var n int64
		gdb.Model(model).Where("property_id = ?", p.ID).Count(&n)
		if n != 0 {
			t.Fatalf("%T rows left: %d", model, n)
		}
	}
	if _, err := r.Properties.GetByID(ctx, nil, p.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("property still present: err=%v", err)
	}
	if err := r.Properties.Delete(ctx, nil, p.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("second delete: got=%v want not found", err)
	}
}

func TestPropertyListSortsByScoreWithNullsLast(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)
	r := repos.New(gdb, testutil.Logger(t))

	u := testutil.SeedUser(t, gdb, "l@example.com", models.RolePrimary)
	low := testutil.SeedProperty(t, gdb, u.ID)
	unscored := testutil.SeedProperty(t, gdb, u.ID)
	high := testutil.SeedProperty(t, gdb, u.ID)
	_ = r.Scores.Upsert(ctx, nil, low.ID, 5)
	_ = r.Scores.Upsert(ctx, nil, high.ID, 75)

	list, err := r.Properties.List(ctx, nil, repos.PropertyFilter{Sort: repos.SortByScore})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len: got=%d want=3", len(list))
	}
	want := []string{high.ID.String(), low.ID.String(), unscored.ID.String()}
	for i, p := range list {
		if p.ID.String() != want[i] {
			t.Fatalf("position %d: got=%s want=%s", i, p.ID, want[i])
		}
	}
}

func TestPropertyListFilters(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)
	r := repos.New(gdb, testutil.Logger(t))

	u := testutil.SeedUser(t, gdb, "f@example.com", models.RolePrimary)
	cheap := &models.Property{AddedBy: u.ID, Price: 100000, Bedrooms: 2, Location: "Leeds", Gardens: true}
	dear := &models.Property{AddedBy: u.ID, Price: 900000, Bedrooms: 5, Location: "North London"}
	for _, p := range []*models.Property{cheap, dear} {
		if err := r.Properties.Create(ctx, nil, p); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	minBeds := 3
	list, err := r.Properties.List(ctx, nil, repos.PropertyFilter{MinBedrooms: &minBeds, Location: "london"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != dear.ID {
		t.Fatalf("filtered: got=%v", list)
	}

	gardens := true
	list, err = r.Properties.List(ctx, nil, repos.PropertyFilter{Gardens: &gardens, Sort: repos.SortByPrice})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != cheap.ID {
		t.Fatalf("gardens filter: got=%v", list)
	}
}

func TestDeleteCriterionRequiresOwnerAndCascades(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)
	r := repos.New(gdb, testutil.Logger(t))

	owner := testutil.SeedUser(t, gdb, "o@example.com", models.RolePrimary)
	other := testutil.SeedUser(t, gdb, "q@example.com", models.RolePrimary)
	p := testutil.SeedProperty(t, gdb, owner.ID)
	c := testutil.SeedCriterion(t, gdb, owner.ID, "Views", models.CategoryWouldLike)
	testutil.SeedRating(t, gdb, owner.ID, p.ID, c.ID, 20)

	if err := r.Catalog.DeleteCriterion(ctx, nil, other.ID, c.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("non-owner delete: got=%v want not found", err)
	}
	if err := r.Catalog.DeleteCriterion(ctx, nil, owner.ID, c.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	rows, _ := r.Ratings.ListByProperty(ctx, nil, p.ID)
	if len(rows) != 0 {
		t.Fatalf("ratings left: %d", len(rows))
	}
}
