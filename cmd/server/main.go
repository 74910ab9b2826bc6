package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ashwin-Arumugam/Tamil-nlp/internal/config"
	"github.com/Ashwin-Arumugam/Tamil-nlp/internal/gemini"
	"github.com/Ashwin-Arumugam/Tamil-nlp/internal/handler"
	"github.com/Ashwin-Arumugam/Tamil-nlp/internal/master"
	"github.com/Ashwin-Arumugam/Tamil-nlp/internal/repository"
	"github.com/Ashwin-Arumugam/Tamil-nlp/internal/service"
	"github.com/Ashwin-Arumugam/Tamil-nlp/internal/sheets"
	"github.com/Ashwin-Arumugam/Tamil-nlp/internal/store"
	"github.com/Ashwin-Arumugam/Tamil-nlp/internal/xlsx"
	"github.com/Ashwin-Arumugam/Tamil-nlp/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Starting Model Eval Rater...")

	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file loaded", zap.Error(err))
	}

	// Load configuration
	cfg, err := config.LoadConfig("configs/config.yml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	ctx := context.Background()

	// Initialize the tabular store backend
	var tabStore store.Store
	switch cfg.Store.Backend {
	case config.BackendSheets:
		tabStore, err = sheets.New(ctx, sheets.Config{
			SpreadsheetID:     cfg.Store.SpreadsheetID,
			CredentialsFile:   cfg.Store.CredentialsFile,
			RequestsPerMinute: cfg.Store.RequestsPerMinute,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to initialize sheets store", zap.Error(err))
		}
	case config.BackendXLSX:
		tabStore, err = xlsx.New(cfg.Store.WorkbookPath, logger)
		if err != nil {
			logger.Fatal("Failed to initialize xlsx store", zap.Error(err))
		}
	case config.BackendMemory:
		logger.Warn("Using in-memory store; all ratings are lost on shutdown")
		tabStore = store.NewMemory()
	default:
		logger.Fatal("Unknown store backend", zap.String("backend", cfg.Store.Backend))
	}

	// Create data directory if not exists
	os.MkdirAll("./data", 0755)

	// Initialize session repository
	sessions, err := repository.NewSessionRepository(cfg.Database.Path, logger)
	if err != nil {
		logger.Fatal("Failed to initialize session repository", zap.Error(err))
	}
	defer sessions.Close()

	// Optional suggestion provider
	var suggester service.Suggester
	if cfg.Gemini.APIKey != "" && cfg.Gemini.APIKey != "YOUR_API_KEY_HERE" {
		geminiClient, err := gemini.NewClient(gemini.Config{
			APIKey:     cfg.Gemini.APIKey,
			ModelName:  cfg.Gemini.ModelName,
			MaxRetries: cfg.Gemini.MaxRetries,
			RetryDelay: 2 * time.Second,
		}, logger)
		if err != nil {
			logger.Warn("Failed to initialize Gemini client, suggestions disabled", zap.Error(err))
		} else {
			suggester = geminiClient
		}
	} else {
		logger.Info("No Gemini API key configured, suggestions disabled")
	}

	// Initialize service
	masterLoader := master.NewLoader(tabStore, cfg.Master.Tab,
		time.Duration(cfg.Master.CacheTTLMinutes)*time.Minute, logger)

	rater := service.NewRater(service.Config{
		Store:          tabStore,
		MasterLoader:   masterLoader,
		Sessions:       sessions,
		Suggester:      suggester,
		Metrics:        metrics.New(prometheus.DefaultRegisterer),
		Logger:         logger,
		CorrectionsTab: cfg.CorrectionsTab,
	})
	defer rater.Close()

	// Initialize HTTP handler
	apiHandler := handler.NewHandler(rater, logger)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Register routes
	apiHandler.RegisterRoutes(router)

	// Start server
	serverAddr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.Info("Server starting", zap.String("address", serverAddr))

	// Graceful shutdown
	srv := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Model Eval Rater is running",
		zap.String("port", cfg.Server.Port),
		zap.String("store", cfg.Store.Backend))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
