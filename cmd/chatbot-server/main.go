// cmd/chatbot-server/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"acu-chatbot/internal/analytics"
	"acu-chatbot/internal/cache"
	"acu-chatbot/internal/classify"
	"acu-chatbot/internal/common/config"
	"acu-chatbot/internal/common/database"
	httpclient "acu-chatbot/internal/common/http"
	"acu-chatbot/internal/common/logger"
	"acu-chatbot/internal/common/observability"
	"acu-chatbot/internal/devices"
	"acu-chatbot/internal/embedding"
	"acu-chatbot/internal/intent"
	"acu-chatbot/internal/llm"
	"acu-chatbot/internal/nlp"
	"acu-chatbot/internal/router"
	"acu-chatbot/internal/scrape"
	"acu-chatbot/internal/server"
	"acu-chatbot/internal/session"
)

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	zapLog.Info("Starting chatbot server...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Cache backend (Redis preferred, in-process fallback) ---
	var store cache.Store
	if cfg.Database.Redis.Address != "" {
		redisClient, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			zapLog.Warn("redis init failed, using in-process cache", zap.Error(err))
			store = cache.New(nil, log)
		} else {
			defer redisClient.Close()
			store = cache.New(redisClient.Client, log)
		}
	} else {
		store = cache.New(nil, log)
	}

	// --- Intent & device registries ---
	registry, err := intent.NewRegistry(cfg.Classifier.IntentsPath, log)
	if err != nil {
		zapLog.Fatal("intent registry load failed", zap.Error(err))
	}
	zapLog.Info("intent registry loaded", zap.Int("intents", len(registry.Current().Intents)))

	deviceRegistry := devices.NewRegistry(cfg.Classifier.DevicesPath, log)
	if err := deviceRegistry.Load(); err != nil {
		zapLog.Fatal("device registry load failed", zap.Error(err))
	}
	zapLog.Info("device registry loaded", zap.Int("devices", deviceRegistry.Len()))

	// --- Optional session history (PostgreSQL) ---
	var history *session.HistoryStore
	if cfg.Database.Postgres.Enabled() {
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			zapLog.Fatal("postgres failed", zap.Error(err))
		}
		defer pg.Close()
		history = session.NewHistoryStore(pg.DB, log)
		if err := history.Init(ctx); err != nil {
			zapLog.Fatal("history schema init failed", zap.Error(err))
		}
		zapLog.Info("session history enabled")
	}

	// --- Optional analytics mirror (Elasticsearch) ---
	var esClient *database.ElasticsearchClient
	if cfg.Database.Elasticsearch.Enabled() {
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			zapLog.Warn("elasticsearch init failed, analytics stays file-only", zap.Error(err))
			esClient = nil
		}
	}
	var recorder *analytics.Recorder
	if esClient != nil {
		recorder, err = analytics.NewRecorder(cfg.Analytics.Path, esClient.Client, log)
	} else {
		recorder, err = analytics.NewRecorder(cfg.Analytics.Path, nil, log)
	}
	if err != nil {
		zapLog.Fatal("analytics recorder init failed", zap.Error(err))
	}

	// --- Scrapers ---
	scrapeClient := httpclient.NewClient(config.GetDuration(cfg.Scrapers.Timeout))
	fetchers := []scrape.Fetcher{
		scrape.NewFoodScraper(scrapeClient, cfg.Scrapers.BaseURL+"/tr/yemek", log),
		scrape.NewAnnouncementScraper(scrapeClient, cfg.Scrapers.BaseURL, log),
		scrape.NewLibraryScraper(scrapeClient, cfg.Scrapers.LibraryURL, log),
		scrape.NewWeatherScraper(scrapeClient, cfg.Weather.APIKey, cfg.Weather.City, log),
	}
	calendarScraper := scrape.NewCalendarScraper(scrapeClient, cfg.Scrapers.BaseURL+"/akademik-takvim", log)
	labScraper := scrape.NewLabScraper(scrapeClient, cfg.Scrapers.BaseURL+"/laboratuvar-cihazlari", log)

	manager := scrape.NewManager(
		fetchers,
		store,
		registry,
		calendarScraper,
		deviceRegistry,
		labScraper,
		cfg.Classifier.IntentsPath,
		log,
	)

	// --- LLM & classifier ---
	generator, err := llm.NewGeminiClient(ctx, cfg.LLM.APIKey, cfg.LLM.Model, config.GetDuration(cfg.LLM.Timeout), log)
	if err != nil {
		zapLog.Fatal("gemini client init failed", zap.Error(err))
	}

	scorer := classify.NewKeywordScorer(nlp.NewSimpleTokenizer(), cfg.Classifier.KeywordThreshold)
	matcher := classify.NewNoopMatcher()
	if cfg.Classifier.UseEmbeddings {
		engine, err := embedding.NewGenAIEngine(ctx, cfg.LLM.APIKey, cfg.Classifier.EmbeddingModel)
		if err != nil {
			zapLog.Fatal("embedding engine init failed", zap.Error(err))
		}
		em := classify.NewEmbeddingMatcher(engine, cfg.Classifier.SimilarityThreshold, log)
		// Example embeddings are built in the background so startup does not
		// wait on the API. Until it finishes the matcher reports misses.
		go func() {
			if err := em.Rebuild(ctx, registry.Current()); err != nil {
				zapLog.Warn("embedding rebuild failed, semantic tier disabled until next refresh", zap.Error(err))
			}
		}()
		manager.OnReload(func(ctx context.Context, snap *intent.Snapshot) {
			if err := em.Rebuild(ctx, snap); err != nil {
				zapLog.Warn("embedding rebuild after reload failed", zap.Error(err))
			}
		})
		matcher = em
	}
	classifier := classify.NewClassifier(scorer, matcher, log)

	pending := session.NewPendingStore(store, log)
	chatRouter := router.New(classifier, registry, store, manager, deviceRegistry, pending, generator, log)

	srv := server.New(cfg, chatRouter, manager, history, recorder, obs, log)

	// --- Background refresh ---
	go manager.Warm(ctx)

	refreshCtx, stopRefresh := context.WithCancel(ctx)
	defer stopRefresh()
	go refreshLoops(refreshCtx, cfg, manager, history, zapLog)

	// --- Serve until signalled ---
	go func() {
		if err := srv.Start(); err != nil {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	stopRefresh()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("server shutdown failed", zap.Error(err))
	}

	zapLog.Info("Chatbot server stopped gracefully")
}

// refreshLoops keeps live data current: a full web refresh every
// refresh_interval hours, the device catalog every device_interval hours,
// and a daily history prune when persistence is enabled.
func refreshLoops(ctx context.Context, cfg *config.Config, manager *scrape.Manager, history *session.HistoryStore, log *zap.Logger) {
	webTicker := time.NewTicker(time.Duration(cfg.Scrapers.RefreshInterval) * time.Hour)
	defer webTicker.Stop()
	deviceTicker := time.NewTicker(time.Duration(cfg.Scrapers.DeviceInterval) * time.Hour)
	defer deviceTicker.Stop()
	pruneTicker := time.NewTicker(24 * time.Hour)
	defer pruneTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-webTicker.C:
			if err := manager.RefreshWeb(ctx); err != nil {
				log.Warn("scheduled web refresh failed", zap.Error(err))
			}
		case <-deviceTicker.C:
			if err := manager.RefreshDevices(ctx); err != nil {
				log.Warn("scheduled device refresh failed", zap.Error(err))
			}
		case <-pruneTicker.C:
			if history == nil {
				continue
			}
			n, err := history.PruneOlderThan(ctx, 30*24*time.Hour)
			if err != nil {
				log.Warn("history prune failed", zap.Error(err))
				continue
			}
			log.Info("history pruned", zap.Int64("rows", n))
		}
	}
}
