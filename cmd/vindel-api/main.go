package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/vindel10/vindel-api/api/swagger"
	"github.com/vindel10/vindel-api/internal/catalog"
	"github.com/vindel10/vindel-api/internal/handler"
	"github.com/vindel10/vindel-api/internal/middleware"
	"github.com/vindel10/vindel-api/internal/models"
	"github.com/vindel10/vindel-api/internal/realtime"
	"github.com/vindel10/vindel-api/internal/repository"
	"github.com/vindel10/vindel-api/internal/service"
	"github.com/vindel10/vindel-api/pkg/cache"
	"github.com/vindel10/vindel-api/pkg/config"
	"github.com/vindel10/vindel-api/pkg/database"
	"github.com/vindel10/vindel-api/pkg/jobs"
	"github.com/vindel10/vindel-api/pkg/logger"
	corsmiddleware "github.com/vindel10/vindel-api/pkg/middleware/cors"
	reqidmiddleware "github.com/vindel10/vindel-api/pkg/middleware/requestid"
	"github.com/vindel10/vindel-api/pkg/payments"
	"github.com/vindel10/vindel-api/pkg/storage"
)

// @title Vindel10 API
// @version 1.0.0
// @description Classified listings marketplace: search, publishing, moderation, favorites, messaging and promotion.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("connect postgres", zap.Error(err))
	}
	defer db.Close()

	applied, err := database.Migrate(ctx, db, logr)
	if err != nil {
		logr.Fatal("apply migrations", zap.Error(err))
	}
	if len(applied) > 0 {
		logr.Info("migrations applied", zap.Strings("versions", applied))
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, using in-process stores", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Listings.CacheTTL, logr, redisClient != nil)

	listingRepo := repository.NewListingRepository(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	hub := realtime.NewHub(cfg.Notifications.SubscriberBuffer)
	notifications := service.NewNotificationService(repository.NewNotificationRepository(db), hub, logr)

	media, err := storage.NewMediaStore(cfg.Storage.Dir)
	if err != nil {
		logr.Fatal("init media store", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)
	linker := service.NewMediaLinker(signer, strings.TrimRight(cfg.APIPrefix, "/")+"/media", logr)

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	listingSvc := service.NewListingService(listingRepo, cacheSvc, notifications, media, linker, nil, logr, service.ListingServiceConfig{
		RequireReview: cfg.Listings.RequireReview,
		TTL:           cfg.Listings.TTL,
		CacheTTL:      cfg.Listings.CacheTTL,
		MaxImageBytes: cfg.Storage.MaxFileSizeBytes,
		AllowedMIMEs:  cfg.Storage.AllowedMIMEs,
	})
	searchSvc := service.NewSearchService(listingRepo, cfg.Search, metrics, logr).WithMediaLinker(linker)
	favoritesSvc := service.NewFavoritesService(favoritesStore(cfg.Favorites, redisClient, logr), repository.NewFavoriteRepository(db), logr)
	messageSvc := service.NewMessageService(repository.NewMessageRepository(db), listingRepo, notifications, nil, logr)
	visitSvc := service.NewVisitService(repository.NewVisitRepository(db), listingRepo, jobs.QueueConfig{
		Workers:    cfg.Visits.Workers,
		BufferSize: cfg.Visits.BufferSize,
		MaxRetries: cfg.Visits.MaxRetries,
		RetryDelay: cfg.Visits.RetryDelay,
		Logger:     logr,
	}, logr)
	provider := payments.NewStripeProvider(payments.StripeConfig{
		SecretKey:     cfg.Payments.StripeSecretKey,
		WebhookSecret: cfg.Payments.StripeWebhookSecret,
		SuccessURL:    cfg.Payments.SuccessURL,
		CancelURL:     cfg.Payments.CancelURL,
	})
	paymentSvc := service.NewPaymentService(repository.NewPaymentRepository(db), userRepo, listingRepo, provider, catalog.Default(), cacheSvc, notifications, logr, service.PaymentConfig{
		Currency:               cfg.Payments.Currency,
		PromotionCreditsPerDay: cfg.Payments.PromotionCreditsPerDay,
	})

	visitSvc.Start(ctx)
	go runExpirySweep(ctx, listingSvc, cfg.Listings.ExpirySweepInterval, logr)

	checks := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		checks["redis"] = handler.PingerFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(cfg.APIPrefix), routeDeps{
		auth:          authSvc,
		search:        handler.NewSearchHandler(searchSvc),
		listings:      handler.NewListingHandler(listingSvc, visitSvc),
		admin:         handler.NewAdminHandler(listingSvc),
		audit:         handler.NewAuditHandler(auditRepo),
		auditLog:      auditRepo,
		logger:        logr,
		favorites:     handler.NewFavoritesHandler(favoritesSvc),
		notifications: handler.NewNotificationHandler(notifications, cfg.CORS.AllowedOrigins, logr),
		messages:      handler.NewMessageHandler(messageSvc),
		visits:        handler.NewVisitHandler(visitSvc),
		payments:      handler.NewPaymentHandler(paymentSvc),
		authHandler:   handler.NewAuthHandler(authSvc),
		metrics:       metricsHandler,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           compress(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown", zap.Error(err))
	}
	visitSvc.Stop()
}

type routeDeps struct {
	auth          middleware.TokenValidator
	search        *handler.SearchHandler
	listings      *handler.ListingHandler
	admin         *handler.AdminHandler
	audit         *handler.AuditHandler
	auditLog      middleware.AuditRecorder
	logger        *zap.Logger
	favorites     *handler.FavoritesHandler
	notifications *handler.NotificationHandler
	messages      *handler.MessageHandler
	visits        *handler.VisitHandler
	payments      *handler.PaymentHandler
	authHandler   *handler.AuthHandler
	metrics       *handler.MetricsHandler
}

func registerRoutes(api *gin.RouterGroup, d routeDeps) {
	authRequired := middleware.JWT(d.auth)
	authOptional := middleware.OptionalJWT(d.auth)

	api.POST("/auth/register", d.authHandler.Register)
	api.POST("/auth/login", d.authHandler.Login)
	api.GET("/auth/me", authRequired, d.authHandler.Me)

	api.GET("/listings/search", d.search.Search)
	api.GET("/media/:token", d.listings.Media)
	api.GET("/payments/packages", d.payments.Packages)
	api.POST("/payments/webhook/stripe", d.payments.StripeWebhook)

	api.GET("/listings/:id", authOptional, d.listings.Get)

	favorites := api.Group("/favorites", authOptional)
	favorites.GET("", d.favorites.Get)
	favorites.PUT("/:listingId", d.favorites.Add)
	favorites.DELETE("/:listingId", d.favorites.Remove)
	api.POST("/favorites/sync", authRequired, d.favorites.Sync)

	secured := api.Group("", authRequired)
	secured.POST("/listings", d.listings.Create)
	secured.PUT("/listings/:id", d.listings.Update)
	secured.POST("/listings/:id/status", d.listings.ChangeStatus)
	secured.POST("/listings/:id/images", d.listings.UploadImage)
	secured.POST("/listings/:id/messages", d.messages.ContactSeller)
	secured.POST("/listings/:id/promote", d.payments.Promote)
	secured.GET("/listings/:id/stats", d.visits.Stats)
	secured.GET("/listings/:id/stats/export", d.visits.Export)
	secured.GET("/me/listings", d.listings.ListMine)
	secured.GET("/me/credits", d.payments.Ledger)

	secured.GET("/conversations", d.messages.Conversations)
	secured.GET("/conversations/:id/messages", d.messages.Messages)
	secured.POST("/conversations/:id/messages", d.messages.Reply)

	secured.GET("/notifications", d.notifications.List)
	secured.GET("/notifications/unread-count", d.notifications.UnreadCount)
	secured.POST("/notifications/:id/read", d.notifications.MarkRead)
	secured.GET("/notifications/stream", d.notifications.Stream)

	secured.POST("/payments/checkout", d.payments.Checkout)
	secured.GET("/payments/orders/:id/receipt", d.payments.Receipt)

	admin := secured.Group("/admin", middleware.RequireAdmin())
	admin.GET("/listings/pending", d.admin.Pending)
	admin.POST("/listings/:id/approve", middleware.Audit(d.auditLog, d.logger, models.AuditActionListingApprove), d.admin.Approve)
	admin.POST("/listings/:id/reject", middleware.Audit(d.auditLog, d.logger, models.AuditActionListingReject), d.admin.Reject)
	admin.POST("/listings/expire", middleware.Audit(d.auditLog, d.logger, models.AuditActionListingExpire), d.admin.Expire)
	admin.GET("/audit", d.audit.List)
	admin.GET("/metrics", d.metrics.Snapshot)
}

func favoritesStore(cfg config.FavoritesConfig, client *redis.Client, logr *zap.Logger) service.FavoritesKV {
	if cfg.Backend == config.FavoritesBackendRedis && client != nil {
		return repository.NewRedisFavoriteStore(client)
	}
	if cfg.Backend == config.FavoritesBackendRedis {
		logr.Warn("favorites backend redis requested without redis, using memory")
	}
	return repository.NewMemoryFavoriteStore()
}

// compress gzips responses except WebSocket upgrades, which need the raw connection.
func compress(next http.Handler) http.Handler {
	gz := gzhttp.GzipHandler(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			next.ServeHTTP(w, r)
			return
		}
		gz.ServeHTTP(w, r)
	})
}

func runExpirySweep(ctx context.Context, listings *service.ListingService, interval time.Duration, logr *zap.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			summary, err := listings.ExpireStale(ctx)
			if err != nil {
				logr.Warn("listing expiry sweep failed", zap.Error(err))
				continue
			}
			if len(summary.Expired) > 0 {
				logr.Info("listings expired", zap.Int("count", len(summary.Expired)))
			}
		}
	}
}
