package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/jbrpriv/RentifyPro-sub000/config"
	"github.com/jbrpriv/RentifyPro-sub000/loader"
	"github.com/jbrpriv/RentifyPro-sub000/notification"
	"github.com/jbrpriv/RentifyPro-sub000/scheduler"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("WARN: Failed to load config file: %v. Using defaults.", err)
	}
	if cfg.WebhookSecret == "" {
		log.Println("WARN: PAYMENT_WEBHOOK_SECRET is not set. Payment webhooks will be rejected.")
	}

	log.Println("Connecting to database...")
	dbConn, err := sqlx.Open("sqlite3", cfg.DatabasePath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		log.Fatalf("db open error: %v", err)
	}
	defer dbConn.Close()
	log.Println("Database connection successful.")

	if err := loader.InitDatabase(dbConn); err != nil {
		log.Fatalf("Database initialization failed: %v", err)
	}
	log.Println("Database initialization complete.")

	queue := notification.NewQueue(dbConn, cfg.MaxJobAttempts)
	worker := notification.NewWorker(dbConn, notification.DefaultSenders(),
		cfg.WorkerConcurrency, cfg.BackoffBaseSeconds)
	worker.Start()
	defer worker.Stop()

	sched, err := scheduler.Start(dbConn, queue, cfg)
	if err != nil {
		log.Fatalf("Scheduler start failed: %v", err)
	}
	defer sched.Stop()

	mux := http.NewServeMux()
	SetupRoutes(mux, dbConn, queue, func() string { return config.GetConfig().WebhookSecret })

	server := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	go func() {
		log.Printf("Server starting on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")
	if err := server.Close(); err != nil {
		log.Printf("WARN: Server close error: %v", err)
	}
}
