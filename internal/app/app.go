// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/unklab-dev/kampusbot-go/internal/buildinfo"
	"github.com/unklab-dev/kampusbot-go/internal/chatbot"
	"github.com/unklab-dev/kampusbot-go/internal/config"
	"github.com/unklab-dev/kampusbot-go/internal/dataset"
	apperrors "github.com/unklab-dev/kampusbot-go/internal/errors"
	"github.com/unklab-dev/kampusbot-go/internal/handbook"
	"github.com/unklab-dev/kampusbot-go/internal/handlers"
	"github.com/unklab-dev/kampusbot-go/internal/knn"
	"github.com/unklab-dev/kampusbot-go/internal/logger"
	"github.com/unklab-dev/kampusbot-go/internal/metrics"
	"github.com/unklab-dev/kampusbot-go/internal/model"
	"github.com/unklab-dev/kampusbot-go/internal/ratelimit"
	"github.com/unklab-dev/kampusbot-go/internal/sentry"
	"github.com/unklab-dev/kampusbot-go/internal/session"
	"github.com/unklab-dev/kampusbot-go/internal/storage"
	"github.com/unklab-dev/kampusbot-go/internal/textproc"
	"github.com/unklab-dev/kampusbot-go/internal/trainer"
	"github.com/unklab-dev/kampusbot-go/internal/vectorizer"
)

const (
	chatLogRetention   = 90 * 24 * time.Hour
	pruneInterval      = 24 * time.Hour
	gaugeInterval      = 30 * time.Second
	httpReadTimeout    = 10 * time.Second
	httpWriteTimeout   = 15 * time.Second
	httpIdleTimeout    = 60 * time.Second
	readinessTimeout   = 3 * time.Second
	logShipperDeadline = 5 * time.Second
)

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg        *config.Config
	logger     *logger.Logger
	logShipper *logger.AsyncHandler
	db         *storage.DB
	repo       *storage.Repository
	metrics    *metrics.Metrics
	registry   *prometheus.Registry
	sessions   *session.Manager
	dispatcher *chatbot.Dispatcher
	handbook   *handbook.Index
	manifest   model.Manifest

	globalLimiter *ratelimit.Limiter
	userLimiter   *ratelimit.KeyedLimiter

	server *http.Server
	wg     sync.WaitGroup
}

// Initialize creates the application with all dependencies wired.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	log, shipper := buildLogger(cfg)

	instance := cfg.InstanceID
	if instance == "" {
		if host, err := os.Hostname(); err == nil {
			instance = host
		}
	}
	log = log.WithField("service", "kampusbot")
	if instance != "" {
		log = log.WithField("instance_id", instance)
	}
	slog.SetDefault(log.Logger)

	log.WithField("version", buildinfo.Version).Info("Initializing application...")

	if cfg.Sentry.Enabled {
		release := cfg.Sentry.Release
		if release == "" {
			release = buildinfo.Version
		}
		if err := sentry.Initialize(sentry.Config{
			DSN:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			Release:     release,
			SampleRate:  cfg.Sentry.SampleRate,
		}); err != nil {
			log.WithError(err).Warn("Sentry initialization failed, error tracking disabled")
		} else {
			log.WithField("environment", cfg.Sentry.Environment).Info("Sentry error tracking enabled")
		}
	}

	db, err := storage.New(cfg.SQLitePath())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	log.WithField("path", cfg.SQLitePath()).Info("Database connected")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	normOpts := textproc.Options{
		RemoveStopwords: cfg.RemoveStopwords,
		ApplyStemming:   cfg.ApplyStemming,
	}

	// A missing dataset degrades the service to rule handlers and the
	// handbook instead of refusing to start.
	var (
		manifest model.Manifest
		vec      *vectorizer.Vectorizer
		clf      *knn.Classifier
	)
	data, err := dataset.Load(cfg.DatasetPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.WithField("path", cfg.DatasetPath).
			Warn("Dataset not found, serving in degraded mode (rule handlers and handbook only)")
		data = nil
	case err != nil:
		return nil, err
	default:
		log.WithField("intents", len(data.Intents)).Info("Dataset loaded")

		vecCfg := vectorizer.Config{
			NGramMin:       cfg.NGramMin,
			NGramMax:       cfg.NGramMax,
			MaxFeatures:    cfg.MaxFeatures,
			MinDocFreq:     1,
			MaxDocFraction: cfg.MaxDocFraction,
		}
		artifacts, err := loadArtifacts(ctx, cfg, data, vecCfg, normOpts, log)
		if err != nil {
			return nil, err
		}
		if vec, err = vectorizer.NewFromState(artifacts.Vectorizer); err != nil {
			return nil, fmt.Errorf("restore encoder: %w", err)
		}
		if clf, err = knn.NewFromState(artifacts.Classifier); err != nil {
			return nil, fmt.Errorf("restore classifier: %w", err)
		}
		manifest = artifacts.Manifest
		log.WithField("vocabulary", manifest.Vocabulary).
			WithField("classes", manifest.Classes).
			WithField("fingerprint", manifest.Fingerprint[:12]).
			Info("Model artifacts loaded")
	}

	idx := loadHandbook(cfg.HandbookPath, log)

	sessions := session.NewManager(cfg.SessionTTL, log)
	if cfg.PersonalizationSeed != 0 {
		sessions.SetSeed(cfg.PersonalizationSeed)
	}

	dispatcher, err := chatbot.New(chatbot.Options{
		Registry: handlers.NewRegistry(
			handlers.NewArithmetic(),
			handlers.NewTimeDate(nil),
			handlers.NewNameMemory(),
		),
		Normalizer:          textproc.NewNormalizer(nil),
		NormOpts:            normOpts,
		Vectorizer:          vec,
		Classifier:          clf,
		Dataset:             data,
		Handbook:            idx,
		Sessions:            sessions,
		Repo:                storage.NewRepository(db),
		Metrics:             m,
		Logger:              log,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		ResponsePolicy:      cfg.ResponsePolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("dispatcher: %w", err)
	}
	if cfg.PersonalizationSeed != 0 {
		dispatcher.Reseed(cfg.PersonalizationSeed)
	}

	globalLimiter := ratelimit.New(cfg.GlobalRateLimitRPS, cfg.GlobalRateLimitRPS)
	userLimiter := ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
		Name:       "user",
		Burst:      cfg.UserRateLimitBurst,
		RefillRate: cfg.UserRateLimitRefillPerSec,
		OnDrop:     m.RecordRateLimiterDrop,
	})

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if sentry.IsEnabled() {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(securityHeadersMiddleware())
	router.Use(requestIDMiddleware())
	router.Use(loggingMiddleware(log))

	app := &Application{
		cfg:           cfg,
		logger:        log,
		logShipper:    shipper,
		db:            db,
		repo:          storage.NewRepository(db),
		metrics:       m,
		registry:      registry,
		sessions:      sessions,
		dispatcher:    dispatcher,
		handbook:      idx,
		manifest:      manifest,
		globalLimiter: globalLimiter,
		userLimiter:   userLimiter,
	}

	router.GET("/", app.rootInfo)
	router.GET("/healthz", app.livenessCheck)
	router.HEAD("/healthz", app.livenessCheck)
	router.GET("/ready", app.readinessCheck)
	router.HEAD("/ready", app.readinessCheck)
	router.POST("/chat", app.rateLimitMiddleware(), app.handleChat)
	router.GET("/metrics",
		metricsAuthMiddleware(cfg.MetricsAuthEnabled, cfg.MetricsUsername, cfg.MetricsPassword),
		gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: httpReadTimeout,
		ReadTimeout:       httpReadTimeout,
		WriteTimeout:      httpWriteTimeout,
		IdleTimeout:       httpIdleTimeout,
	}

	log.Info("Initialization complete")
	return app, nil
}

func buildLogger(cfg *config.Config) (*logger.Logger, *logger.AsyncHandler) {
	if cfg.BetterStackEnabled && cfg.BetterStackToken != "" {
		return logger.NewShipping(cfg.LogLevel, logger.ShippingOptions{
			Token:    cfg.BetterStackToken,
			Endpoint: cfg.BetterStackEndpoint,
		})
	}
	return logger.New(cfg.LogLevel), nil
}

// loadArtifacts loads the trained model from disk, pulling from object
// storage first when the snapshot feature is enabled and the local copy
// is missing or stale.
func loadArtifacts(ctx context.Context, cfg *config.Config, data *dataset.Dataset, vecCfg vectorizer.Config, normOpts textproc.Options, log *logger.Logger) (*model.Artifacts, error) {
	fingerprint, err := trainer.CorpusFingerprint(data, vecCfg, normOpts)
	if err != nil {
		return nil, fmt.Errorf("fingerprint: %w", err)
	}

	artifacts, err := model.Load(cfg.ModelDir, fingerprint)
	if err == nil {
		return artifacts, nil
	}
	if !cfg.S3.Enabled {
		return nil, err
	}

	log.WithError(err).Info("Local artifacts unusable, pulling snapshot from object storage")
	store, storeErr := model.NewObjectStore(ctx, model.ObjectStoreConfig{
		Endpoint:        cfg.S3.Endpoint,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
		BucketName:      cfg.S3.BucketName,
	}, log)
	if storeErr != nil {
		return nil, fmt.Errorf("object store: %w", storeErr)
	}
	if pullErr := store.Pull(ctx, cfg.S3.ModelKey, cfg.ModelDir); pullErr != nil {
		return nil, fmt.Errorf("pull model snapshot: %w", pullErr)
	}
	return model.Load(cfg.ModelDir, fingerprint)
}

// loadHandbook builds the fallback search index. A missing handbook file
// disables the feature instead of failing startup.
func loadHandbook(path string, log *logger.Logger) *handbook.Index {
	if path == "" {
		return nil
	}
	paragraphs, err := handbook.LoadParagraphs(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.WithField("path", path).Info("Handbook file not found, handbook search disabled")
		} else {
			log.WithError(err).Warn("Failed to load handbook, handbook search disabled")
		}
		return nil
	}
	idx, err := handbook.NewIndex(paragraphs, log)
	if err != nil {
		log.WithError(err).Warn("Failed to index handbook, handbook search disabled")
		return nil
	}
	log.WithField("paragraphs", idx.Len()).Info("Handbook index ready")
	return idx
}

func (a *Application) rootInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "kampusbot",
		"version": buildinfo.Version,
	})
}

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (a *Application) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	if err := a.db.Conn().PingContext(ctx); err != nil {
		a.logger.WithError(err).Warn("Readiness check failed: database unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "database unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ready",
		"database": "connected",
		"model": gin.H{
			"classes":    a.manifest.Classes,
			"vocabulary": a.manifest.Vocabulary,
			"trained_at": a.manifest.CreatedAt,
		},
		"features": gin.H{
			"classifier":      a.manifest.Classes > 0,
			"handbook_search": a.handbook != nil,
			"sentry":          sentry.IsEnabled(),
		},
		"sessions": a.sessions.Len(),
	})
}

// Run starts the HTTP server and background jobs and blocks until a
// shutdown signal arrives.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.startBackgroundJobs(ctx)

	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.WithError(err).Error("HTTP server error")
		}
	}()

	sig := a.waitForShutdownSignal()
	a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")

	cancel()

	a.logger.Info("Waiting for background jobs to finish...")
	start := time.Now()
	a.wg.Wait()
	a.logger.WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("All background jobs completed")

	return a.shutdown()
}

func (a *Application) startBackgroundJobs(ctx context.Context) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.sessions.Run(ctx)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.updateSessionGauge(ctx)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.pruneChatLogs(ctx)
	}()
}

func (a *Application) updateSessionGauge(ctx context.Context) {
	ticker := time.NewTicker(gaugeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.metrics.SetActiveSessions(a.sessions.Len())
		}
	}
}

func (a *Application) pruneChatLogs(ctx context.Context) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-chatLogRetention)
			pruned, err := a.repo.PruneBefore(ctx, cutoff)
			if err != nil {
				a.logger.WithError(err).Error("Chat log pruning failed")
				continue
			}
			if pruned > 0 {
				a.logger.WithField("pruned", pruned).Info("Old chat logs removed")
			}
		}
	}
}

func (a *Application) waitForShutdownSignal() os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return <-quit
}

// shutdown stops the HTTP server and closes resources. Background jobs
// must already be stopped so nothing writes to a closed database.
func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}

	a.logger.Info("Closing resources...")

	a.userLimiter.Stop()

	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).WithField("component", "database").Error("Component close error")
	}

	if sentry.IsEnabled() {
		sentry.Flush(2 * time.Second)
	}

	if a.logShipper != nil {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), logShipperDeadline)
		defer flushCancel()
		if err := a.logShipper.Shutdown(flushCtx); err != nil {
			a.logger.WithError(err).Warn("Log shipper shutdown timeout")
		}
	}

	a.logger.Info("Server stopped")
	return nil
}

// mapStatus converts a dispatcher error into an HTTP status code.
func mapStatus(err error) int {
	switch {
	case apperrors.IsInvalidInput(err):
		return http.StatusBadRequest
	case apperrors.IsRateLimitExceeded(err):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
