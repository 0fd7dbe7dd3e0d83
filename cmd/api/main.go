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

	"flotilla/api/internal/app"
	"flotilla/api/internal/config"
	"flotilla/api/internal/draft"
	"flotilla/api/internal/search"
	"flotilla/api/internal/store"
	"flotilla/api/internal/template"
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

	// The question catalog is the backbone of the workflow: refuse to start
	// with a broken one.
	tpl, err := template.Load(cfg.TemplatePath)
	if err != nil {
		log.Fatalf("checklist template failed: %v", err)
	}

	dataStore := store.NewPostgresStore(db)
	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
	}
	searchService := search.NewService(meiliClient, pgfts)
	if meiliClient != nil {
		defer meiliClient.Close()
		go searchService.ReindexAllFromPG(ctx)
	}

	var service *app.Service
	var saver *draft.Saver
	if strings.TrimSpace(cfg.RedisURL) != "" {
		drafts, err := draft.NewStore(cfg.RedisURL)
		if err != nil {
			log.Printf("WARNING: redis unavailable, drafts disabled: %v", err)
			service = app.New(cfg, dataStore, tpl, searchService)
		} else {
			log.Printf("Using Redis for checklist drafts")
			defer drafts.Close()
			saver = draft.NewSaver(drafts, cfg.DraftDebounce)
			service = app.NewWithDrafts(cfg, dataStore, tpl, searchService, drafts, saver)
		}
	} else {
		log.Printf("No Redis configured, drafts disabled")
		service = app.New(cfg, dataStore, tpl, searchService)
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Flotilla API listening on %s", cfg.Addr)
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
	if saver != nil {
		saver.Close()
	}
}
