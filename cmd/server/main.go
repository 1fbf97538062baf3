package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"synthesis.io/tutor-backend/internal/api"
	"synthesis.io/tutor-backend/internal/config"
	"synthesis.io/tutor-backend/internal/core"
	"synthesis.io/tutor-backend/internal/logger"
	"synthesis.io/tutor-backend/internal/store"
)

func main() {
	// Command line flag for catalog seeding
	seedOnlyFlag := flag.Bool("seed", false, "Seed the default module catalog and exit")
	flag.Parse()

	// Load configuration
	config.LoadConfig()

	appLog, err := logger.New(config.AppConfig.LogMode, config.AppConfig.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLog.Sync()

	// Initialize database store
	dbStore, err := store.NewSQLiteStore(config.AppConfig.DatabaseURL)
	if err != nil {
		appLog.Fatal("Failed to initialize database", "error", err)
	}
	defer dbStore.Close()

	// Seed once at startup instead of on the first catalog read
	catalog := core.NewModuleCatalog(dbStore, appLog.With("component", "modules"))
	if err := catalog.EnsureSeeded(context.Background()); err != nil {
		appLog.Fatal("Module seeding failed", "error", err)
	}
	if *seedOnlyFlag {
		appLog.Info("Module catalog ready. Exiting.")
		return
	}

	// Initialize LLM service
	llmService, err := core.NewLLMService(context.Background(), config.AppConfig.GeminiAPIKey, config.AppConfig.GeminiModel, appLog.With("component", "llm"))
	if err != nil {
		appLog.Fatal("Failed to initialize LLM service", "error", err)
	}
	defer llmService.Close()

	chatService := core.NewChatService(dbStore, dbStore, llmService, config.AppConfig.TranscriptLimit, appLog.With("component", "chat"))
	progressService := core.NewProgressService(dbStore, config.AppConfig.ProgressLimit, appLog.With("component", "progress"))
	mediaService := core.NewMediaService(dbStore, config.AppConfig.MediaDir, appLog.With("component", "media"))

	if !config.AppConfig.AuthEnabled() {
		appLog.Warn("JWT_SECRET not set, student routes are unauthenticated")
	}

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(chatService, progressService, catalog, mediaService, config.AppConfig.ChatTimeout, appLog.With("component", "api"))
	router := api.NewRouter(apiHandler, config.AppConfig.AuthEnabled())

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: config.AppConfig.ChatTimeout + 15*time.Second, // Two model round trips on a fresh chat
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		appLog.Info("Starting server", "addr", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal("Could not listen", "addr", serverAddr, "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	// Give active connections time to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLog.Error("Server forced to shutdown", "error", err)
		return
	}

	appLog.Info("Server exiting gracefully")
}
