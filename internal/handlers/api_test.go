package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"shortlist/internal/handlers"
	"shortlist/internal/models"
	"shortlist/internal/services"
)

func TestProtectedRoutesReturn401JSON(t *testing.T) {
	env := newAPI(t)
	c := env.anon()
	for _, path := range []string{"/api/properties", "/api/auth/me", "/api/priorities", "/api/events"} {
		rec := c.do(http.MethodGet, path, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: got=%d want=%d", path, rec.Code, http.StatusUnauthorized)
		}
		errorOf(t, rec)
	}
}

func TestSignupLoginLogout(t *testing.T) {
	env := newAPI(t)

	owner, u := env.signup(ownerEmail, "")
	if u.Role != models.RolePower {
		t.Fatalf("bootstrap role: got=%q want=%q", u.Role, models.RolePower)
	}
	if rec := owner.do(http.MethodGet, "/api/auth/me", nil); rec.Code != http.StatusOK {
		t.Fatalf("me after signup: got=%d", rec.Code)
	}

	_, other := env.signup("member@example.com", "")
	if other.Role != models.RoleSecondary {
		t.Fatalf("default role: got=%q want=%q", other.Role, models.RoleSecondary)
	}

	dup := env.anon().do(http.MethodPost, "/api/auth/signup", map[string]string{"email": "Member@example.com", "password": "hunter22"})
	if dup.Code != http.StatusConflict {
		t.Fatalf("duplicate signup: got=%d want=%d", dup.Code, http.StatusConflict)
	}

	c := env.anon()
	if rec := c.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "member@example.com", "password": "wrong-pass"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: got=%d want=%d", rec.Code, http.StatusUnauthorized)
	}
	if rec := c.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "member@example.com", "password": "hunter22"}); rec.Code != http.StatusOK {
		t.Fatalf("login: got=%d body=%s", rec.Code, rec.Body.String())
	}
	if rec := c.do(http.MethodGet, "/api/auth/me", nil); rec.Code != http.StatusOK {
		t.Fatalf("me after login: got=%d", rec.Code)
	}
	if rec := c.do(http.MethodPost, "/api/auth/logout", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("logout: got=%d", rec.Code)
	}
	if rec := c.do(http.MethodGet, "/api/auth/me", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("me after logout: got=%d want=%d", rec.Code, http.StatusUnauthorized)
	}

	want := []handlers.SessionEvent{handlers.SignedIn, handlers.SignedIn, handlers.SignedIn, handlers.SignedOut}
	if len(env.sessions) != len(want) {
		t.Fatalf("session events: got=%v want=%v", env.sessions, want)
	}
	for i := range want {
		if env.sessions[i] != want[i] {
			t.Fatalf("session event %d: got=%q want=%q", i, env.sessions[i], want[i])
		}
	}
}

func TestRoleManagement(t *testing.T) {
	env := newAPI(t)
	owner, _ := env.signup(ownerEmail, "")
	member, m := env.signup("member@example.com", "")

	if rec := member.do(http.MethodGet, "/api/users", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("secondary listing users: got=%d want=%d", rec.Code, http.StatusForbidden)
	}
	if rec := member.do(http.MethodPut, "/api/users/"+m.ID.String()+"/role", map[string]string{"role": "power"}); rec.Code != http.StatusForbidden {
		t.Fatalf("self promotion: got=%d want=%d", rec.Code, http.StatusForbidden)
	}

	rec := owner.do(http.MethodPut, "/api/users/"+m.ID.String()+"/role", map[string]string{"role": "primary"})
	if rec.Code != http.StatusOK {
		t.Fatalf("promote: got=%d body=%s", rec.Code, rec.Body.String())
	}
	if rec := owner.do(http.MethodPut, "/api/users/"+m.ID.String()+"/role", map[string]string{"role": "admin"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown role: got=%d want=%d", rec.Code, http.StatusBadRequest)
	}

	// The session reloads the user, so the new role applies immediately.
	if rec := member.do(http.MethodGet, "/api/users", nil); rec.Code != http.StatusOK {
		t.Fatalf("primary listing users: got=%d want=%d", rec.Code, http.StatusOK)
	}
}

func TestShortlistEndToEnd(t *testing.T) {
	env := newAPI(t)
	ctx := context.Background()
	owner, _ := env.signup(ownerEmail, "")
	buyer, _ := env.signup("buyer@example.com", models.RolePrimary)
	family, _ := env.signup("family@example.com", "")

	if rec := family.do(http.MethodPost, "/api/priorities", map[string]interface{}{"name": "Pool", "weight": 10}); rec.Code != http.StatusForbidden {
		t.Fatalf("secondary priority: got=%d want=%d", rec.Code, http.StatusForbidden)
	}
	if rec := buyer.do(http.MethodPost, "/api/priorities", map[string]interface{}{"name": "Pool", "weight": 10}); rec.Code != http.StatusCreated {
		t.Fatalf("create priority: got=%d body=%s", rec.Code, rec.Body.String())
	}
	rec := buyer.do(http.MethodPost, "/api/ratings", map[string]interface{}{"name": "Pool", "category": "must_have"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create criterion: got=%d body=%s", rec.Code, rec.Body.String())
	}
	var crit models.RatingCriterion
	decode(t, rec, &crit)
	if crit.Points != 10 {
		t.Fatalf("criterion points: got=%d want=10", crit.Points)
	}

	rec = family.do(http.MethodPost, "/api/properties", map[string]interface{}{
		"price":    450000,
		"location": "Mill Lane",
		"bedrooms": 4,
		"features": []string{"pool", " ", "Garage"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create property: got=%d body=%s", rec.Code, rec.Body.String())
	}
	var prop models.Property
	decode(t, rec, &prop)

	env.scheduler.Flush(ctx)

	var detail services.PropertyDetail
	rec = family.do(http.MethodGet, "/api/properties/"+prop.ID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get property: got=%d", rec.Code)
	}
	decode(t, rec, &detail)
	if detail.CombinedScore == nil || *detail.CombinedScore != 50 {
		t.Fatalf("combined score after populate: got=%v want=50", detail.CombinedScore)
	}
	if len(detail.Ratings) != 1 || detail.Ratings[0].Score != 100 {
		t.Fatalf("initial ratings: got=%+v", detail.Ratings)
	}

	rec = family.do(http.MethodPut, "/api/properties/"+prop.ID.String()+"/feedback", map[string]string{"vote": "up", "notes": "**lovely** kitchen"})
	if rec.Code != http.StatusOK {
		t.Fatalf("vote: got=%d body=%s", rec.Code, rec.Body.String())
	}
	env.scheduler.Flush(ctx)

	rec = family.do(http.MethodGet, "/api/properties?sort=score", nil)
	var list []services.PropertySummary
	decode(t, rec, &list)
	if len(list) != 1 || list[0].CombinedScore == nil || *list[0].CombinedScore != 51 {
		t.Fatalf("list after vote: got=%s", rec.Body.String())
	}

	rec = buyer.do(http.MethodPut, "/api/properties/"+prop.ID.String()+"/ratings/"+crit.ID.String(), map[string]float64{"score": 40})
	if rec.Code != http.StatusOK {
		t.Fatalf("manual rating: got=%d body=%s", rec.Code, rec.Body.String())
	}
	env.scheduler.Flush(ctx)

	rec = family.do(http.MethodGet, "/api/properties/"+prop.ID.String(), nil)
	decode(t, rec, &detail)
	if *detail.CombinedScore != 21 {
		t.Fatalf("combined score after manual rating: got=%v want=21", *detail.CombinedScore)
	}
	if len(detail.Feedback) != 1 || detail.Feedback[0].NotesHTML == "" {
		t.Fatalf("feedback notes should render: got=%+v", detail.Feedback)
	}

	if rec := family.do(http.MethodGet, "/api/properties/"+prop.ID.String()+"/conflict", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("secondary conflict check: got=%d want=%d", rec.Code, http.StatusForbidden)
	}
	if rec := owner.do(http.MethodGet, "/api/properties/"+prop.ID.String()+"/conflict", nil); rec.Code != http.StatusOK {
		t.Fatalf("power conflict check: got=%d body=%s", rec.Code, rec.Body.String())
	}
	rec = owner.do(http.MethodPost, "/api/properties/"+prop.ID.String()+"/conflict/resolve", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("resolve: got=%d body=%s", rec.Code, rec.Body.String())
	}

	if rec := family.do(http.MethodDelete, "/api/properties/"+prop.ID.String(), nil); rec.Code != http.StatusForbidden {
		t.Fatalf("secondary delete: got=%d want=%d", rec.Code, http.StatusForbidden)
	}
	if rec := buyer.do(http.MethodDelete, "/api/properties/"+prop.ID.String(), nil); rec.Code != http.StatusNoContent {
		t.Fatalf("primary delete: got=%d", rec.Code)
	}
	if rec := buyer.do(http.MethodGet, "/api/properties/"+prop.ID.String(), nil); rec.Code != http.StatusNotFound {
		t.Fatalf("deleted property: got=%d want=%d", rec.Code, http.StatusNotFound)
	}
}

func TestListPropertiesValidatesQuery(t *testing.T) {
	env := newAPI(t)
	c, _ := env.signup("member@example.com", "")

	for _, q := range []string{"sort=cheapest", "min_price=abc", "min_bedrooms=-1", "views=maybe"} {
		if rec := c.do(http.MethodGet, "/api/properties?"+q, nil); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: got=%d want=%d", q, rec.Code, http.StatusBadRequest)
		}
	}
	if rec := c.do(http.MethodGet, "/api/properties?min_price=100000&views=true&sort=price", nil); rec.Code != http.StatusOK {
		t.Fatalf("valid filter: got=%d", rec.Code)
	}
}

func TestScrapeIsRateLimited(t *testing.T) {
	env := newAPI(t)
	c, _ := env.signup("member@example.com", "")

	body := map[string]string{"url": "https://www.rightmove.co.uk/properties/1"}
	for i := 0; i < 2; i++ {
		if rec := c.do(http.MethodPost, "/api/scrape", body); rec.Code != http.StatusOK {
			t.Fatalf("scrape %d: got=%d body=%s", i, rec.Code, rec.Body.String())
		}
	}
	if rec := c.do(http.MethodPost, "/api/properties/from-url", body); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third scrape: got=%d want=%d", rec.Code, http.StatusTooManyRequests)
	}
}

func TestCreateFromURL(t *testing.T) {
	env := newAPI(t)
	c, _ := env.signup("member@example.com", "")

	if rec := c.do(http.MethodPost, "/api/properties/from-url", map[string]string{"url": "ftp://example.com/x"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad scheme: got=%d want=%d", rec.Code, http.StatusBadRequest)
	}
	rec := c.do(http.MethodPost, "/api/properties/from-url", map[string]string{"url": "https://example.com/listing/9"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("from url: got=%d body=%s", rec.Code, rec.Body.String())
	}
	var prop models.Property
	decode(t, rec, &prop)
	if prop.Price != 325000 || prop.Location != "Harbour Road" {
		t.Fatalf("scraped property: got=%+v", prop)
	}
}

func TestHealthzAndUnknownRoute(t *testing.T) {
	env := newAPI(t)
	c := env.anon()
	if rec := c.do(http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz: got=%d", rec.Code)
	}
	rec := c.do(http.MethodGet, "/api/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown route: got=%d want=%d", rec.Code, http.StatusNotFound)
	}
	errorOf(t, rec)
}
