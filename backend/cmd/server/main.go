package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"graphspace/backend/internal/adapter"
	"graphspace/backend/internal/knowledge"
	"graphspace/backend/internal/mirror"
	"graphspace/backend/internal/services"
	"graphspace/backend/pkg/config"
	"graphspace/backend/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	// Initialize logger
	if err := logger.InitWithLevel(cfg.Env, cfg.LogLevel); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting GraphSpace API server...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kg, err := knowledge.Open(cfg.DataPath, cfg.RepairCorrupt)
	if err != nil {
		log.Fatal("Failed to open knowledge graph", zap.Error(err), zap.String("path", cfg.DataPath))
	}

	// Language model is optional
	var llm adapter.LanguageModel
	if cfg.LLMEnabled() {
		client := adapter.NewLLMAdapter(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel)
		client.SetEmbeddingModel(cfg.LLMEmbeddingModel)
		llm = client
		log.Info("Language model enabled",
			zap.String("model", cfg.LLMModel),
			zap.String("embedding_model", client.EmbeddingModel()),
		)
	}

	a := &api{
		kg:    kg,
		notes: services.NewNoteService(kg, llm),
		tasks: services.NewTaskService(kg, llm),
		log:   log,
	}

	// Neo4j mirror is optional
	if cfg.MirrorEnabled() {
		m, err := mirror.Connect(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
		if err != nil {
			log.Warn("Neo4j mirror unavailable", zap.Error(err))
		} else {
			defer m.Close(context.Background())
			if err := m.EnsureSchema(ctx); err != nil {
				log.Warn("Failed to ensure mirror schema", zap.Error(err))
			}
			a.mirror = m
		}
	}

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server started", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Server stopped with error", zap.Error(err))
	}
	log.Info("Server exited")
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
