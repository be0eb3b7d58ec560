package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"servertycoon/internal/auth"
	"servertycoon/internal/catalog"
	"servertycoon/internal/clock"
	"servertycoon/internal/config"
	"servertycoon/internal/db"
	"servertycoon/internal/engine"
	api "servertycoon/internal/http"
	"servertycoon/internal/scheduler"
	"servertycoon/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if os.Getenv("DEBUG") != "" {
		log.SetLevel(logrus.DebugLevel)
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect db: %v", err)
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, "migrations"); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	cat := catalog.LoadOrDefault(cfg.CatalogFile)
	authManager := auth.NewManager(cfg.JWTSecret)
	gateway := store.NewPostgres(pool)
	eng := engine.New(gateway, cat, clock.RealClock{}, log)

	sched := scheduler.New(eng, log, cfg.SweepInterval)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start income sweep: %v", err)
	}

	handler := &api.API{Engine: eng, Auth: authManager, Log: log}
	if cfg.CORSOrigin != "" {
		handler.Origins = []string{cfg.CORSOrigin}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Infof("server listening on %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	sched.Stop()

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Warnf("server shutdown error: %v", err)
	}
}
