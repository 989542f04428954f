// mcg-agent server - authenticates prompt submissions and routes them
// through the governed five-stage pipeline.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/dansasser/mcg-agent/pkg/api"
	"github.com/dansasser/mcg-agent/pkg/audit"
	"github.com/dansasser/mcg-agent/pkg/cache"
	"github.com/dansasser/mcg-agent/pkg/config"
	"github.com/dansasser/mcg-agent/pkg/database"
	"github.com/dansasser/mcg-agent/pkg/governance"
	"github.com/dansasser/mcg-agent/pkg/pipeline"
	"github.com/dansasser/mcg-agent/pkg/provider"
	"github.com/dansasser/mcg-agent/pkg/search"
	"github.com/dansasser/mcg-agent/pkg/services"
	"github.com/dansasser/mcg-agent/pkg/transform"
)

func main() {
	envPath := flag.String("env-file", ".env", "Path to .env file")
	configFile := flag.String("config-file", "mcg.yaml", "Path to optional YAML config overlay")
	flag.Parse()

	if err := godotenv.Load(*envPath); err != nil {
		log.Printf("Warning: could not load %s: %v", *envPath, err)
		log.Printf("Continuing with existing environment variables...")
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg, err = config.ApplyFile(cfg, *configFile)
	if err != nil {
		log.Fatalf("Failed to apply config file: %v", err)
	}

	config.SetupLogging(cfg.Log)
	gin.SetMode(cfg.HTTP.GinMode)

	slog.Info("Starting mcg-agent", "http_port", cfg.HTTP.Port, "cache_backend", string(cfg.Cache.Backend))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("Failed to load database config: %v", err)
	}
	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			slog.Error("Error closing database client", "error", err)
		}
	}()
	slog.Info("Connected to corpus database", "dialect", dbClient.Dialect(), "full_text", dbClient.SupportsFullText())

	// Request cache
	var requestCache cache.Cache
	switch cfg.Cache.Backend {
	case config.CacheBackendMemory:
		mem := cache.NewMemory(cfg.Cache.MaxItems, cfg.Cache.Compress)
		defer mem.Close()
		requestCache = mem
	case config.CacheBackendRedis:
		redisCache := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			UseTLS:   cfg.Cache.RedisTLS,
		})
		defer func() { _ = redisCache.Close() }()
		requestCache = redisCache
	default:
		requestCache = cache.Noop{}
	}

	// Governance
	enforcer := governance.NewEnforcer(governance.NewCatalog(), governance.Options{
		CorpusRateLimit: cfg.Governance.CorpusRateLimit,
		RetentionAge:    cfg.Governance.TaskRetention,
	})
	stopSweeper := enforcer.StartSweeper(time.Minute)
	defer stopSweeper()

	trail := audit.NewTrail(nil)

	// Providers
	var external provider.Provider
	if cfg.Provider.Enabled() {
		external = provider.NewOpenAI(provider.OpenAIConfig{
			BaseURL: cfg.Provider.BaseURL,
			APIKey:  cfg.Provider.APIKey,
			Model:   cfg.Provider.Model,
			Timeout: cfg.Provider.Timeout,
		})
		slog.Info("External provider configured", "model", cfg.Provider.Model)
	} else {
		slog.Info("No external provider configured; pipeline runs pass-through at Drafter")
	}
	transformerProvider := provider.NewTransformer(cfg.Transformer, transform.DefaultPunctuationPolicy())

	// Pipeline
	connectors := search.NewConnectors(dbClient, requestCache, cfg.Cache.TTL)
	assembler := pipeline.NewAssembler(connectors, enforcer, trail)
	driver := pipeline.NewDriver(enforcer, assembler, trail, pipeline.Config{
		External:             external,
		Transformer:          transformerProvider,
		TransformerAvailable: true,
	})

	composeService := services.NewComposeService(driver, enforcer)
	monitor := services.NewMemoryMonitor(memoryLimitFromEnv())

	router := api.NewRouter(api.ServerDeps{
		Composer:  composeService,
		DB:        dbClient,
		Monitor:   monitor,
		JWTSecret: cfg.Auth.JWTSecret,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
}

func memoryLimitFromEnv() uint64 {
	raw := os.Getenv("MEMORY_LIMIT_BYTES")
	if raw == "" {
		return 0
	}
	limit, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return limit
}
