package router

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"shortlist/internal/handlers"
	"shortlist/internal/logger"
	"shortlist/internal/middleware"
	"shortlist/internal/models"
)

const sessionName = "shortlist_session"

type Options struct {
	SessionSecret   string
	CORSOrigins     []string
	ScrapePerMinute int
	SecureCookies   bool
	// Health reports whether the backing store is reachable. Nil means always healthy.
	Health func(ctx context.Context) error
}

type Handlers struct {
	Auth       *handlers.AuthHandler
	Users      *handlers.UserHandler
	Catalog    *handlers.CatalogHandler
	Properties *handlers.PropertyHandler
	Feedback   *handlers.FeedbackHandler
	Score      *handlers.ScoreHandler
	Admin      *handlers.AdminHandler
	Events     *handlers.EventsHandler
	Images     *handlers.ImageHandler
}

// New builds the engine with the global middleware and every route.
func New(log *logger.Logger, opts Options, users middleware.UserLoader, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.CORS(opts.CORSOrigins))

	store := cookie.NewStore([]byte(opts.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   30 * 24 * 3600,
		HttpOnly: true,
		Secure:   opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	RegisterRoutes(r, opts, users, h)
	return r
}

func RegisterRoutes(r *gin.Engine, opts Options, users middleware.UserLoader, h Handlers) {
	scrapeLimiter := middleware.NewClientRateLimiter(opts.ScrapePerMinute)

	// Public routes
	r.GET("/healthz", func(c *gin.Context) {
		if opts.Health != nil {
			if err := opts.Health(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/images/:name", h.Images.Serve)
	r.POST(middleware.CalculateScorePath, h.Score.Calculate)
	r.OPTIONS(middleware.CalculateScorePath, h.Score.Preflight)

	api := r.Group("/api")
	api.Use(middleware.LoadUser(users))

	auth := api.Group("/auth")
	{
		auth.POST("/signup", h.Auth.Signup)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/logout", h.Auth.Logout)
	}

	// Protected routes
	authorized := api.Group("")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.GET("/auth/me", h.Auth.Me)
		authorized.GET("/events", h.Events.Stream)

		authorized.GET("/users", middleware.RequireRole(models.RolePower, models.RolePrimary), h.Users.List)
		authorized.PUT("/users/:id/role", middleware.RequireRole(models.RolePower), h.Users.UpdateRole)

		authorized.GET("/priorities", h.Catalog.ListPriorities)
		authorized.POST("/priorities", h.Catalog.CreatePriority)
		authorized.DELETE("/priorities/:id", h.Catalog.DeletePriority)
		authorized.GET("/ratings", h.Catalog.ListCriteria)
		authorized.POST("/ratings", h.Catalog.CreateCriterion)
		authorized.DELETE("/ratings/:id", h.Catalog.DeleteCriterion)

		limited := middleware.RateLimit(scrapeLimiter)
		authorized.POST("/scrape", limited, h.Properties.Scrape)
		authorized.POST("/properties/from-url", limited, h.Properties.CreateFromURL)

		authorized.GET("/properties", h.Properties.List)
		authorized.POST("/properties", h.Properties.Create)
		authorized.GET("/properties/:id", h.Properties.Get)
		authorized.DELETE("/properties/:id", h.Properties.Delete)
		authorized.POST("/properties/:id/features", h.Properties.AddFeature)
		authorized.POST("/properties/:id/image", h.Properties.UploadImage)
		authorized.PUT("/properties/:id/feedback", h.Feedback.Vote)
		authorized.PUT("/properties/:id/ratings/:ratingId", h.Feedback.Rate)

		authorized.GET("/properties/:id/conflict", h.Admin.CheckConflict)
		authorized.POST("/properties/:id/conflict/resolve", h.Admin.ResolveConflict)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
}
