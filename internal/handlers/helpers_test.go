package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"shortlist/internal/events"
	"shortlist/internal/handlers"
	"shortlist/internal/models"
	"shortlist/internal/repos"
	"shortlist/internal/repos/testutil"
	"shortlist/internal/router"
	"shortlist/internal/services"
)

const ownerEmail = "owner@example.com"

type fixedScraper struct{}

func (fixedScraper) Scrape(_ context.Context, rawURL string) (*services.ScrapedProperty, error) {
	if _, err := services.ValidateListingURL(rawURL); err != nil {
		return nil, err
	}
	return &services.ScrapedProperty{
		URL:      rawURL,
		Price:    325000,
		Location: "Harbour Road",
		Bedrooms: 3,
		Features: []string{"Garden"},
	}, nil
}

type apiEnv struct {
	t         *testing.T
	db        *gorm.DB
	repos     *repos.Repos
	bus       *events.MemoryBus
	scheduler *services.ScoreScheduler
	engine    *gin.Engine
	sessions  []handlers.SessionEvent
}

func newAPI(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	store := repos.New(gdb, log)
	bus := events.NewMemoryBus()
	t.Cleanup(func() { _ = bus.Close() })

	aggregator := services.NewScoreAggregator(log, store, bus)
	// Never started: tests drain it with Flush.
	scheduler := services.NewScoreScheduler(log, aggregator, time.Hour)
	conflicts, err := services.NewConflictDetector(log, store, aggregator, services.PairwiseExactlyTwo, services.DefaultConflictThreshold, 0)
	if err != nil {
		t.Fatalf("conflict detector: %v", err)
	}
	images, err := services.NewImageStore(log, t.TempDir())
	if err != nil {
		t.Fatalf("image store: %v", err)
	}

	populator := services.NewRatingPopulator(log, store, scheduler)
	users := services.NewUserService(log, store, ownerEmail)
	properties := services.NewPropertyService(log, store, populator, fixedScraper{}, images, scheduler, bus)

	env := &apiEnv{t: t, db: gdb, repos: store, bus: bus, scheduler: scheduler}
	onSession := func(_ context.Context, _ uuid.UUID, e handlers.SessionEvent) {
		env.sessions = append(env.sessions, e)
	}

	env.engine = router.New(log, router.Options{
		SessionSecret:   "test-secret",
		CORSOrigins:     []string{"http://localhost:5173"},
		ScrapePerMinute: 2,
	}, users, router.Handlers{
		Auth:       handlers.NewAuthHandler(users, onSession),
		Users:      handlers.NewUserHandler(users),
		Catalog:    handlers.NewCatalogHandler(services.NewCatalogService(log, store)),
		Properties: handlers.NewPropertyHandler(properties, fixedScraper{}, images),
		Feedback:   handlers.NewFeedbackHandler(services.NewFeedbackService(log, store, scheduler, bus)),
		Score:      handlers.NewScoreHandler(aggregator),
		Admin:      handlers.NewAdminHandler(conflicts),
		Events:     handlers.NewEventsHandler(bus),
		Images:     handlers.NewImageHandler(images.Dir()),
	})
	return env
}

// client carries one browser's session cookies.
type client struct {
	env     *apiEnv
	cookies []*http.Cookie
}

func (e *apiEnv) anon() *client { return &client{env: e} }

func (c *client) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	c.env.t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			c.env.t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req)
}

func (c *client) send(req *http.Request) *httptest.ResponseRecorder {
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.env.engine.ServeHTTP(rec, req)
	if set := rec.Result().Cookies(); len(set) > 0 {
		c.cookies = set
	}
	return rec
}

// signup registers email and returns a signed-in client.
func (e *apiEnv) signup(email string, role models.Role) (*client, *models.User) {
	e.t.Helper()
	c := e.anon()
	rec := c.do(http.MethodPost, "/api/auth/signup", map[string]string{"email": email, "password": "hunter22"})
	if rec.Code != http.StatusCreated {
		e.t.Fatalf("signup %s: got=%d body=%s", email, rec.Code, rec.Body.String())
	}
	var u models.User
	decode(e.t, rec, &u)
	if role != "" && u.Role != role {
		if err := e.repos.Users.UpdateRole(context.Background(), nil, u.ID, role); err != nil {
			e.t.Fatalf("set role: %v", err)
		}
		u.Role = role
	}
	return c, &u
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	decode(t, rec, &body)
	if body.Error == "" {
		t.Fatalf("expected an error message, body=%s", rec.Body.String())
	}
	return body.Error
}
