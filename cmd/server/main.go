package main

import (
	"context"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"shortlist/internal/config"
	"shortlist/internal/db"
	"shortlist/internal/events"
	"shortlist/internal/handlers"
	"shortlist/internal/logger"
	"shortlist/internal/repos"
	"shortlist/internal/router"
	"shortlist/internal/services"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		stdlog.Fatalf("init logger: %v", err)
	}
	defer log.Sync()

	if cfg.LogMode == "prod" || cfg.LogMode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	gdb, err := db.Open(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("Failed to open database", "error", err)
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatal("Failed to migrate database", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus, err := newBus(log, cfg)
	if err != nil {
		log.Fatal("Failed to start event bus", "error", err)
	}

	store := repos.New(gdb, log)

	aggregator := services.NewScoreAggregator(log, store, bus)
	scheduler := services.NewScoreScheduler(log, aggregator, cfg.ScoreDebounce)
	workerCtx, stopWorker := context.WithCancel(context.Background())
	workerDone := scheduler.Start(workerCtx)

	measure, err := services.ParseDispersion(cfg.ConflictMeasure)
	if err != nil {
		log.Fatal("Invalid CONFLICT_MEASURE", "error", err)
	}
	conflicts, err := services.NewConflictDetector(log, store, aggregator, measure, cfg.ConflictThreshold, cfg.ConflictCapacity)
	if err != nil {
		log.Fatal("Failed to build conflict detector", "error", err)
	}

	var fetcher services.PageFetcher = services.NewHTTPFetcher(cfg.ScrapeTimeout)
	if cfg.ScrapeBrowser {
		fetcher = services.NewBrowserFetcher(cfg.ScrapeTimeout, cfg.ChromePath)
		log.Info("Scraping through headless Chrome")
	}
	scraper, err := services.NewScraper(log, fetcher)
	if err != nil {
		log.Fatal("Failed to build scraper", "error", err)
	}
	images, err := services.NewImageStore(log, cfg.ImageDir)
	if err != nil {
		log.Fatal("Failed to open image store", "error", err)
	}

	populator := services.NewRatingPopulator(log, store, scheduler)
	users := services.NewUserService(log, store, cfg.BootstrapPowerEmail)
	catalog := services.NewCatalogService(log, store)
	properties := services.NewPropertyService(log, store, populator, scraper, images, scheduler, bus)
	feedback := services.NewFeedbackService(log, store, scheduler, bus)

	onSession := func(ctx context.Context, userID uuid.UUID, event handlers.SessionEvent) {
		log.Info("Session changed", "user_id", userID, "event", event)
		evt := events.New(events.SessionChanged, "", map[string]string{
			"user_id": userID.String(),
			"event":   string(event),
		})
		if err := bus.Publish(ctx, evt); err != nil {
			log.Warn("Failed to publish session change", "error", err)
		}
	}

	engine := router.New(log, router.Options{
		SessionSecret:   cfg.SessionSecret,
		CORSOrigins:     cfg.CORSOrigins,
		ScrapePerMinute: cfg.ScrapeRatePerMinute,
		SecureCookies:   cfg.CookieSecure,
		Health:          pingDB(gdb),
	}, users, router.Handlers{
		Auth:       handlers.NewAuthHandler(users, onSession),
		Users:      handlers.NewUserHandler(users),
		Catalog:    handlers.NewCatalogHandler(catalog),
		Properties: handlers.NewPropertyHandler(properties, scraper, images),
		Feedback:   handlers.NewFeedbackHandler(feedback),
		Score:      handlers.NewScoreHandler(aggregator),
		Admin:      handlers.NewAdminHandler(conflicts),
		Events:     handlers.NewEventsHandler(bus),
		Images:     handlers.NewImageHandler(images.Dir()),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Shortlist server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", "error", err)
	}

	stopWorker()
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		log.Warn("Score worker did not stop in time")
	}
	scheduler.Flush(shutdownCtx)
	if err := bus.Close(); err != nil {
		log.Warn("Failed to close event bus", "error", err)
	}
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// newBus picks Redis pub/sub when REDIS_ADDR is set, otherwise an in-process bus.
func newBus(log *logger.Logger, cfg *config.Config) (events.Bus, error) {
	if cfg.RedisAddr == "" {
		return events.NewMemoryBus(), nil
	}
	bus, err := events.NewRedisBus(log, cfg.RedisAddr, cfg.RedisChannel)
	if err != nil {
		return nil, err
	}
	log.Info("Event bus on Redis", "addr", cfg.RedisAddr, "channel", cfg.RedisChannel)
	return bus, nil
}

func pingDB(gdb *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := gdb.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
