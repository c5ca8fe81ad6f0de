package main

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nour-az/portfolio-cms/internal/auth"
	"github.com/nour-az/portfolio-cms/internal/config"
	"github.com/nour-az/portfolio-cms/internal/database"
	"github.com/nour-az/portfolio-cms/internal/handlers"
	"github.com/nour-az/portfolio-cms/internal/kv"
	"github.com/nour-az/portfolio-cms/internal/logging"
	"github.com/nour-az/portfolio-cms/internal/services"
	"github.com/nour-az/portfolio-cms/internal/site"
)

func main() {
	// 1. Load Environment Variables
	cfg, loaded := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.Release)
	if err != nil {
		log.Fatalf("Unable to build logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	if !loaded {
		sugar.Warn("no .env file found, using process environment")
	}
	if cfg.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	defaultPassword, defaultKey := cfg.DefaultSecrets()
	if defaultPassword {
		sugar.Warn("CMS_ADMIN_PASSWORD is not set, using the development default")
	}
	if defaultKey {
		sugar.Warn("CMS_ADMIN_API_KEY is not set, using the development default")
	}

	// 2. Key-value store
	store, err := openStore(cfg, logger)
	if err != nil {
		sugar.Fatalw("failed to open store", "error", err)
	}

	// 3. Initialize Core Services (Dependencies)
	files := services.NewLocalFiles(cfg.CMSDir)
	cmsService := services.NewCMSService(store, files, logger.Named("cms").Sugar())
	llmService := services.NewLLMService(cfg.Ollama, logger.Named("llm").Sugar(),
		services.WithHTTPClient(&http.Client{Timeout: cfg.Ollama.Timeout}))
	gate := auth.NewGate(cfg.AdminAPIKey, cfg.AdminPassword)

	// 4. Setup Router, API routes and pages
	r := handlers.NewRouter(handlers.RouterDeps{
		CMS:         cmsService,
		LLM:         llmService,
		Gate:        gate,
		CORSOrigins: cfg.CORSOrigins,
		Log:         logger,
	})
	site.Register(r, cmsService, logger.Named("site").Sugar())

	sugar.Infof("🚀 Server starting on port %s...", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		sugar.Fatalw("server failed to start", "error", err)
	}
}

// openStore picks Cloudflare KV when its credentials are present, then SQL,
// then the in-memory store.
func openStore(cfg *config.Config, logger *zap.Logger) (kv.Store, error) {
	log := logger.Named("kv").Sugar()

	if cfg.Cloudflare.Configured() {
		cf, err := kv.NewCloudflare(cfg.Cloudflare.APIBase, cfg.Cloudflare.AccountID,
			cfg.Cloudflare.APIToken, cfg.Cloudflare.NamespaceID, nil, log)
		if err != nil {
			return nil, err
		}
		log.Infow("using Cloudflare KV", "namespace", cfg.Cloudflare.NamespaceID)
		return cf, nil
	}

	db, err := database.Connect(cfg.DatabaseURL, cfg.SQLitePath, logger.Named("database").Sugar())
	switch {
	case err == nil:
		return kv.NewSQL(db), nil
	case !errors.Is(err, database.ErrNoDSN):
		return nil, err
	}

	log.Warn("⚠️  no Cloudflare or database configured: CMS data lives in memory and is lost on restart")
	return kv.NewMemory(), nil
}
