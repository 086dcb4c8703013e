package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tackboard/api/internal/app"
	"tackboard/api/internal/authpw"
	"tackboard/api/internal/config"
	"tackboard/api/internal/images"
	"tackboard/api/internal/search"
	"tackboard/api/internal/session"
	"tackboard/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	dataStore := store.NewPostgresStore(db)
	service := app.New(cfg, dataStore)

	var searchService *search.Service
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
		searchService = search.NewService(meiliClient, search.NewPgSearch(db))
		service.WithSearch(searchService)
		go reindexSearch(ctx, dataStore, searchService)
	}

	var imageStore *images.Store
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		imageStore, err = images.New(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey,
			cfg.MinioBucket, cfg.MinioPublicURL, cfg.MinioUseSSL)
		if err != nil {
			log.Printf("WARNING: image storage unavailable, background uploads disabled: %v", err)
			imageStore = nil
		} else {
			service.WithBackgrounds(imageStore)
		}
	}

	// Refresh tokens live in Redis when configured, otherwise in Postgres.
	var sessionStore authpw.SessionStore = dataStore
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Printf("WARNING: redis unavailable, using Postgres for refresh tokens: %v", err)
		} else {
			log.Printf("Using Redis for refresh token storage")
			defer redisStore.Close()
			sessionStore = redisStore
		}
	}
	authService := authpw.NewService(dataStore, sessionStore, cfg.TokenSecret, cfg.AccessTTL, cfg.RefreshTTL)

	httpServer := app.NewHTTPServer(service, authService, cfg.CORSOrigin)
	if searchService != nil {
		httpServer.WithSearch(searchService)
	}
	if imageStore != nil {
		httpServer.WithImages(imageStore)
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Tackboard API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

// reindexSearch rebuilds the search index from the database, catching up on
// writes Meilisearch missed while it was down.
func reindexSearch(ctx context.Context, dataStore *store.PostgresStore, searchService *search.Service) {
	boards, err := dataStore.AllBoards(ctx)
	if err != nil {
		log.Printf("search reindex: load boards: %v", err)
		return
	}
	cards, err := dataStore.AllCards(ctx)
	if err != nil {
		log.Printf("search reindex: load cards: %v", err)
		return
	}

	boardRecords := make([]search.BoardRecord, 0, len(boards))
	for _, b := range boards {
		boardRecords = append(boardRecords, search.BoardRecord{
			ID: b.ID, Title: b.Title, Description: b.Description, OwnerID: b.OwnerID,
		})
	}
	cardRecords := make([]search.CardRecord, 0, len(cards))
	for _, c := range cards {
		cardRecords = append(cardRecords, search.CardRecord{
			ID: c.ID, Title: c.Title, Description: c.Description,
			ListID: c.ListID, BoardID: c.BoardID, OwnerID: c.OwnerID,
		})
	}
	searchService.Reindex(boardRecords, cardRecords)
}
