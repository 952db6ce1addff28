// Copyright (c) 2024 cblomart
// Licensed under the MIT License

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "hnproxy/docs"
	"hnproxy/internal/api"
	"hnproxy/internal/cache"
	"hnproxy/internal/config"
	"hnproxy/internal/hackernews"
	"hnproxy/internal/news"
	"hnproxy/internal/poller"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Shared story cache, owned here for the life of the process
	cacheManager := cache.NewManager(cfg.CacheTTL)

	// Upstream Hacker News client
	client := hackernews.New(cfg.NewsBaseURL, cfg.HTTPTimeout)

	stories := news.NewService(cacheManager, client, news.Options{
		CacheTTL:         cfg.CacheTTL,
		TopStoriesLimit:  cfg.TopStoriesLimit,
		FetchConcurrency: cfg.FetchConcurrency,
	})

	// Background cache warmer
	backgroundPoller := poller.New(stories, cfg.PollInterval)
	if cfg.EnablePoller {
		backgroundPoller.Start()
	}

	server := api.NewServer(stories, backgroundPoller, cfg)

	log.Printf("Starting Hacker News proxy on port %d", cfg.Port)
	log.Printf("Upstream: %s", cfg.NewsBaseURL)
	log.Printf("Cache TTL: %v", cfg.CacheTTL)
	log.Printf("Top stories window: %d (fetch concurrency %d)", cfg.TopStoriesLimit, cfg.FetchConcurrency)
	if cfg.EnablePoller {
		log.Printf("Background polling interval: %v", cfg.PollInterval)
	}

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		<-sigChan
		log.Println("Received shutdown signal, stopping services...")
		backgroundPoller.Stop()
		cancel()
	}()

	if err := server.StartWithContext(ctx); err != nil && err != context.Canceled {
		log.Fatal("Failed to start server:", err)
	}
}
