package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Skufu/securemed/internal/analysis"
	"github.com/Skufu/securemed/internal/config"
	"github.com/Skufu/securemed/internal/extract"
	"github.com/Skufu/securemed/internal/server"
	"github.com/Skufu/securemed/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()
	deps := server.Deps{
		Analyzer: analysis.New(extract.New(extract.NewTesseract(cfg.Analysis.OCRLanguage), extract.PDFText{})),
	}
	if cfg.EnableDB {
		db, err := store.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		defer db.Close()

		if err := db.EnsureSchema(ctx); err != nil {
			log.Fatalf("database schema: %v", err)
		}
		deps.DB = db
		deps.Store = db
	}

	router := server.NewRouter(cfg, deps)
	srv := newHTTPServer(cfg, router)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	log.Printf("server listening on :%s (ocr=%s, db=%t)", cfg.Port, cfg.Analysis.OCRLanguage, cfg.EnableDB)
	waitForShutdown(srv)
}

// newHTTPServer leaves room for a full analysis inside the write deadline.
func newHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Analysis.Timeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func waitForShutdown(srv *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
