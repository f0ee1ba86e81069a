package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/lijid/lijid-dotcom/internal/content"
	"github.com/lijid/lijid-dotcom/internal/handlers"
	"github.com/lijid/lijid-dotcom/internal/mail"
	"github.com/lijid/lijid-dotcom/internal/places"
	"github.com/lijid/lijid-dotcom/internal/platform/config"
	pfirestore "github.com/lijid/lijid-dotcom/internal/platform/firestore"
	"github.com/lijid/lijid-dotcom/internal/platform/idempotency"
	"github.com/lijid/lijid-dotcom/internal/platform/observability"
	"github.com/lijid/lijid-dotcom/internal/platform/ratelimit"
	"github.com/lijid/lijid-dotcom/internal/platform/requestctx"
	"github.com/lijid/lijid-dotcom/internal/platform/secrets"
	"github.com/lijid/lijid-dotcom/internal/services"
)

const placeCacheCollection = "siteState"

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("site")
	ctx = requestctx.WithLogger(ctx, logger)

	fetcher, err := newSecretFetcher(ctx, logger)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx, config.WithSecretResolver(fetcher))
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.Names()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	leadService := newLeadService(cfg, logger)

	var firestoreProvider *pfirestore.Provider
	placeCache := places.IDCache(places.NewMemoryIDCache())
	if cfg.Reviews.PlaceCache == config.PlaceCacheFirestore {
		firestoreProvider = pfirestore.NewProvider(cfg.Firestore)
		placeCache = places.NewFirestoreIDCache(firestoreProvider, placeCacheCollection)
		defer func() {
			if err := firestoreProvider.Close(); err != nil {
				logger.Warn("firestore close error", zap.Error(err))
			}
		}()
	}

	bias := places.LocationBias{Lat: cfg.Reviews.BiasLat, Lng: cfg.Reviews.BiasLng, RadiusMeters: cfg.Reviews.BiasRadiusMeters}
	placesClient := places.NewAPIClient(cfg.Reviews.MapsAPIKey, places.WithLocationBias(bias))
	defer func() {
		if err := placesClient.Close(); err != nil {
			logger.Warn("places client close error", zap.Error(err))
		}
	}()
	resolver := places.NewResolver(
		places.ResolverConfig{APIKey: cfg.Reviews.MapsAPIKey, PlaceID: cfg.Reviews.PlaceID, Query: cfg.Reviews.PlaceQuery},
		placesClient,
		places.WithLegacyProvider(places.NewLegacyClient(cfg.Reviews.MapsAPIKey, places.WithLocationBias(bias))),
		places.WithIDCache(placeCache),
		places.WithLogger(logger.Named("places")),
	)
	feedService, err := services.NewReviewFeedService(services.ReviewFeedServiceDeps{
		Resolver:   resolver,
		MaxReviews: cfg.Reviews.MaxReviews,
		ShareURL:   cfg.Reviews.ShareURL,
		CacheTTL:   cfg.Reviews.CacheTTL,
		Debug:      cfg.Site.Debug,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal("failed to initialise review feed service", zap.Error(err))
	}

	renderer, err := handlers.NewRenderer(os.DirFS(cfg.Site.TemplatesDir), cfg.Site.Debug)
	if err != nil {
		logger.Fatal("failed to parse templates", zap.Error(err), zap.String("dir", cfg.Site.TemplatesDir))
	}

	publicFS := os.DirFS(cfg.Site.PublicDir)
	assetsFS, err := fs.Sub(publicFS, "assets")
	if err != nil {
		logger.Fatal("failed to open assets directory", zap.Error(err))
	}

	site := handlers.SiteInfo{
		Name:           cfg.Site.Name,
		BaseURL:        cfg.Site.BaseURL,
		Description:    cfg.Site.Description,
		ContactPhone:   cfg.Site.ContactPhone,
		Version:        cfg.Site.Version,
		ShareURL:       cfg.Reviews.ShareURL,
		CaptchaSiteKey: cfg.Site.CaptchaSiteKey,
		AreaServed:     cfg.Site.AreaServed,
		ReviewsMode:    cfg.Reviews.Mode,
		Debug:          cfg.Site.Debug,
	}

	testimonials := newTestimonialSource(cfg, logger)
	if _, err := testimonials(ctx); err != nil {
		logger.Warn("testimonials unavailable at startup", zap.Error(err), zap.String("file", cfg.Site.ContentFile))
	}

	reviewHandlers := handlers.NewReviewHandlers(feedService, renderer, publicFS, site)
	pageHandlers := handlers.NewPageHandlers(renderer, leadService, reviewHandlers, testimonials, site)
	leadHandlers := handlers.NewLeadHandlers(leadService,
		handlers.WithIdempotencyStore(idempotency.NewMemoryStore()),
		handlers.WithContactPhone(cfg.Site.ContactPhone),
	)
	assets := handlers.NewAssets(assetsFS)

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthVersion(cfg.Site.Version),
		handlers.WithHealthStartedAt(startedAt),
		handlers.WithReadinessCheck("lead", leadService.Ready),
		handlers.WithReadinessCheck("reviews", func() error {
			if cfg.Reviews.Mode == config.ReviewsModeLive && !resolver.Configured() {
				return places.ErrUnconfigured
			}
			return nil
		}),
	)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(observability.Chain(logger.Named("http"), cfg.Firestore.ProjectID)...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithAssetRoutes(assets.Routes),
		handlers.WithPageRoutes(pageHandlers.Routes),
		handlers.WithLeadRoutes(leadHandlers.Routes),
		handlers.WithReviewRoutes(reviewHandlers.Routes),
		handlers.WithNotFoundPage(pageHandlers.NotFound),
	)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("site listening",
			zap.String("environment", cfg.Site.Environment),
			zap.String("version", cfg.Site.Version),
			zap.String("reviewsMode", cfg.Reviews.Mode),
			zap.Bool("leadConfigured", cfg.Lead.Configured()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// newSecretFetcher reads its own settings from the environment because it
// has to exist before config.Load can resolve secret:// values.
func newSecretFetcher(ctx context.Context, logger *zap.Logger) (*secrets.Fetcher, error) {
	env := func(keys ...string) string {
		for _, key := range keys {
			if value, err := config.Lookup(key); err == nil && value != "" {
				return value
			}
		}
		return ""
	}
	localFile := env("SITE_SECRET_FALLBACK_FILE")
	if localFile == "" {
		localFile = secrets.DefaultLocalFile
	}
	return secrets.NewFetcher(ctx,
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithDefaultProject(env("SITE_SECRET_DEFAULT_PROJECT", "SITE_FIRESTORE_PROJECT_ID")),
		secrets.WithFallbackFile(localFile),
	)
}

// newLeadService only hands a mailer to the service when mail is configured,
// so Ready reports server_not_configured otherwise.
func newLeadService(cfg config.Config, logger *zap.Logger) services.LeadService {
	deps := services.LeadServiceDeps{
		Recipient:  cfg.Lead.ToEmail,
		Sender:     cfg.Lead.FromEmail,
		SenderName: cfg.Lead.FromName,
		Logger:     logger,
	}
	if limiter := ratelimit.NewFixedWindow(cfg.Lead.RateLimit, cfg.Lead.RateWindow, time.Now); limiter != nil {
		deps.Limiter = limiter
	}
	if cfg.Lead.Configured() {
		client, err := mail.NewClient(cfg.Lead.MailAPIKey, mail.WithEndpoint(cfg.Lead.MailEndpoint))
		if err != nil {
			logger.Warn("mail client unavailable", zap.Error(err))
		} else {
			deps.Mailer = client
		}
	} else {
		logger.Warn("lead mail settings incomplete; the contact form will report server_not_configured")
	}
	return services.NewLeadService(deps)
}

// newTestimonialSource parses the content file once, or on every request in
// debug mode so edits show up without a restart.
func newTestimonialSource(cfg config.Config, logger *zap.Logger) handlers.TestimonialSource {
	fsys := os.DirFS(filepath.Dir(cfg.Site.ContentFile))
	name := filepath.Base(cfg.Site.ContentFile)
	md := content.NewRenderer()
	load := func() ([]content.Testimonial, error) {
		return content.LoadTestimonials(fsys, name, md)
	}
	if cfg.Site.Debug {
		return func(context.Context) ([]content.Testimonial, error) { return load() }
	}

	var (
		once  sync.Once
		items []content.Testimonial
		err   error
	)
	return func(context.Context) ([]content.Testimonial, error) {
		once.Do(func() {
			items, err = load()
			if err == nil {
				logger.Info("testimonials loaded", zap.Int("count", len(items)))
			}
		})
		return items, err
	}
}
