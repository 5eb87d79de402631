package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"talentwire.com/sourcing/internal/agent"
	"talentwire.com/sourcing/internal/api"
	"talentwire.com/sourcing/internal/auth"
	"talentwire.com/sourcing/internal/cache"
	"talentwire.com/sourcing/internal/config"
	"talentwire.com/sourcing/internal/core"
	"talentwire.com/sourcing/internal/linkedin"
	"talentwire.com/sourcing/internal/pubsub"
	"talentwire.com/sourcing/internal/store"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if cfg.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	// Initialize database store
	dbStore, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbStore.Close()

	// Token crypto shared with the agent platform tool registration
	crypter := auth.NewCrypter(cfg.EncryptionKey)

	// External collaborators
	searchClient := linkedin.NewClient(linkedin.Config{
		Host:         cfg.RapidAPIBase,
		APIKey:       cfg.RapidAPIKey,
		PollInterval: cfg.SearchPollInterval,
		MaxAttempts:  cfg.SearchMaxAttempts,
	})
	agentClient := agent.NewClient(cfg.AgentBaseURL, nil)

	// In-memory tool-result cache with its background sweeper
	resultCache := cache.NewResultCache(cache.DefaultTTL, cache.DefaultSweepInterval)
	defer resultCache.Close()

	// Streaming relay for the start-search flow
	broker := pubsub.NewBroker()

	// Services
	chatService := core.NewChatService(dbStore, agentClient, resultCache, crypter, broker)
	searchService := core.NewSearchService(dbStore, searchClient,
		core.NewSessionPublisher(dbStore),
		core.NewCachePublisher(resultCache),
	)
	provisionService := core.NewProvisionService(dbStore, agentClient, crypter, cfg.AppBaseURL)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(chatService, searchService, provisionService, dbStore, broker, crypter, cfg.APIAuthToken)
	router := api.NewRouter(apiHandler)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	srv := &http.Server{
		Addr:        serverAddr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// A chat turn can cover the agent's whole reasoning loop, including a
		// tool call that polls the search API for up to a minute, so the
		// write budget is generous.
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give active connections time to finish before forcing the shutdown.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting gracefully")
}
