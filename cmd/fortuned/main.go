// fortuned runs the fortune-interpretation task processing core: the
// HTTP/SSE API, the worker pool, and the pipeline orchestrator that
// together turn a submitted (deity, fortune number, question) into a
// streamed interpretation.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/philippgille/chromem-go"

	"github.com/codeready-toolchain/fortuned/pkg/api"
	"github.com/codeready-toolchain/fortuned/pkg/breaker"
	"github.com/codeready-toolchain/fortuned/pkg/bus"
	"github.com/codeready-toolchain/fortuned/pkg/cache"
	"github.com/codeready-toolchain/fortuned/pkg/config"
	"github.com/codeready-toolchain/fortuned/pkg/database"
	"github.com/codeready-toolchain/fortuned/pkg/deity"
	"github.com/codeready-toolchain/fortuned/pkg/llm"
	"github.com/codeready-toolchain/fortuned/pkg/pipeline"
	"github.com/codeready-toolchain/fortuned/pkg/queue"
	"github.com/codeready-toolchain/fortuned/pkg/store"
	"github.com/codeready-toolchain/fortuned/pkg/vectorstore"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: Could not load %s file: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("Failed to initialize configuration: %v", err)
	}

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("Failed to load database config: %v", err)
	}
	db, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}()
	log.Println("connected to PostgreSQL database")

	deities := deity.NewFromConfig(cfg)

	embedKey := ""
	if cfg.VectorStore.EmbeddingAPIKeyEnv != "" {
		embedKey = os.Getenv(cfg.VectorStore.EmbeddingAPIKeyEnv)
	}
	embedFunc := chromem.NewEmbeddingFuncOpenAI(embedKey, chromem.EmbeddingModel(cfg.VectorStore.EmbeddingModel))
	vstore, err := vectorstore.Open(ctx, cfg.VectorStore, embedFunc)
	if err != nil {
		log.Fatalf("Failed to open vector store: %v", err)
	}

	llmAPIKey := os.Getenv(cfg.LLM.APIKeyEnv)
	llmClient := llm.New(cfg.LLM, llmAPIKey)
	resultCache := cache.New(cfg.Cache)

	vstoreBreaker := breaker.New[any]("vectorstore", cfg.Breakers.VectorStore)
	llmBreaker := breaker.New[any]("llm", cfg.Breakers.LLM)

	progressBus := bus.New(cfg.Stream)
	taskStore := store.New(db)

	orchestrator := pipeline.New(deities, vstore, llmClient, resultCache, vstoreBreaker, llmBreaker, cfg.RAG)

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "fortuned"
	}
	podID := hostname + "-" + time.Now().UTC().Format("150405")

	pool := queue.NewWorkerPool(podID, taskStore, progressBus, cfg.Queue, orchestrator)
	if err := pool.Start(ctx); err != nil {
		log.Fatalf("Failed to start worker pool: %v", err)
	}

	breakers := map[string]*breaker.Breaker[any]{
		"vectorstore": vstoreBreaker,
		"llm":         llmBreaker,
	}
	server := api.NewServer(cfg, db, taskStore, pool, progressBus, deities, vstore, breakers)

	go func() {
		log.Printf("HTTP server listening on %s", cfg.Server.Addr)
		if err := server.Start(cfg.Server.Addr); err != nil {
			slog.Error("HTTP server stopped", "error", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutdown signal received, draining worker pool and HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("error shutting down HTTP server", "error", err)
	}
	pool.Stop()
	log.Println("shutdown complete")
}
