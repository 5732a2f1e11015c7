package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lojasmm/washbot/internal/bot"
	"github.com/lojasmm/washbot/internal/config"
	"github.com/lojasmm/washbot/internal/flow"
	"github.com/lojasmm/washbot/internal/metrics"
	"github.com/lojasmm/washbot/internal/session"
	"github.com/lojasmm/washbot/internal/shop"
	"github.com/lojasmm/washbot/internal/store"
	"github.com/lojasmm/washbot/internal/whatsapp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := store.NewBoltStore(filepath.Join(cfg.DataDir, "washbot.db"))
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer db.Close()

	waClient := whatsapp.NewClient(cfg.WAAPIBaseURL, cfg.WAAPIVersion, cfg.WAPhoneNumberID, cfg.WAAccessToken)

	processor := flow.NewProcessor(db, db, db, shop.DefaultCatalog(), cfg.ShopName)
	sessionMgr := session.NewManager(cfg.RateLimitPerMinute)

	janitor := session.NewJanitor(sessionMgr, db, db, cfg.SessionRetention)
	scheduler, err := janitor.Start(cfg.CleanupSchedule)
	if err != nil {
		log.Fatalf("janitor: %v", err)
	}

	botHandler := bot.NewHandler(waClient, processor, db, sessionMgr, cfg.SendTimeout, cfg.StoreTimeout)
	webhookHandler := whatsapp.NewWebhookHandler(cfg.WAVerifyToken, cfg.WAAppSecret, botHandler.HandleMessage)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/webhook", webhookHandler.HandleVerify)
	r.Post("/webhook", webhookHandler.HandleIncoming)

	r.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("washbot: listening on :%s", cfg.Port)
		log.Printf("washbot: webhook verify token = %s", cfg.WAVerifyToken)
		if cfg.WAAppSecret == "" {
			log.Printf("washbot: WA_APP_SECRET not set, webhook signatures are not checked")
		}
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("washbot: shutting down...")

	<-scheduler.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
	if err := webhookHandler.Wait(shutdownCtx); err != nil {
		log.Printf("washbot: abandoning in-flight messages: %v", err)
	}
	log.Println("washbot: stopped")
}
