package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"loquia.org/internal/account"
	"loquia.org/internal/billing"
	"loquia.org/internal/chat"
	"loquia.org/internal/httpapi"
	"loquia.org/internal/obs"
	"loquia.org/internal/store/pg"
	"loquia.org/internal/stream"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	var (
		accountStore account.Store
		billingSvc   billing.Service
		pgStore      *pg.Store
	)
	if dsn := os.Getenv("LOQUIA_PG_DSN"); dsn != "" {
		var err error
		pgStore, err = pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		accountStore = pgStore
		billingSvc = pgStore
	} else {
		// Demo mode: everything lives in process memory.
		accountStore = account.NewInMemory()
		billingSvc = billing.NewInMemory()
	}

	accounts, err := account.NewService(accountStore)
	if err != nil {
		log.Fatalf("account service: %v", err)
	}

	probe := httpapi.ReadyProbe{}
	if pgStore != nil {
		probe.DB = pgStore.DB()
	}

	events := stream.New()
	api := httpapi.New(accounts, billingSvc, chat.NewEngine(), probe, version, httpapi.WithStream(events))

	handler := httpapi.RequestID(
		httpapi.LoggingJSON(
			httpapi.SecurityHeaders(
				httpapi.CORS(
					httpapi.MaxBodyBytes(
						httpapi.RateLimit(api.Handler(), 50, 25),
						1<<20,
					),
				),
			),
		),
	)

	addr := os.Getenv("LOQUIA_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second, // SSE connections hold the response open
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting loquia-api %s on %s", version, srv.Addr)
	obs.SetReady(true)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")
	obs.SetReady(false)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if pgStore != nil {
		_ = pgStore.Close()
	}
	log.Println("Stopped")
}
