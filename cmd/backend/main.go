package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"burnlink/internal/cryptox"
	"burnlink/internal/db"
	"burnlink/internal/lifecycle"
	"burnlink/internal/server"
	"burnlink/internal/store"
)

func main() {
	addr := getenvDefault("BL_ADDR", ":8080")
	baseURL := getenvDefault("BL_BASE_URL", "http://localhost:8080")

	// Master secret for key derivation. The baked-in default keeps dev
	// setups working but is an operational weakness, so say so loudly.
	masterKey := os.Getenv("BL_MASTER_KEY")
	if masterKey == "" {
		log.Printf("service=backend msg=%q",
			"BL_MASTER_KEY not set, falling back to the built-in development key; do not run production like this")
	}
	cipher := cryptox.New(masterKey)

	// Database
	dsn := getenvDefault("DATABASE_URL", "")
	dbConn, err := store.OpenDB(dsn)
	if err != nil {
		log.Printf("service=backend msg=%q err=%v", "db_connect_failed", err)
		os.Exit(1)
	}
	defer func() { _ = dbConn.Close() }()

	log.Printf("service=backend msg=%q", "running_migrations")
	if err := db.RunMigrations(dbConn); err != nil {
		log.Printf("service=backend msg=%q err=%v", "migration_failed", err)
		os.Exit(1)
	}
	log.Printf("service=backend msg=%q", "migrations_complete")

	// Blob medium: MinIO when an S3 endpoint is configured, a local
	// directory otherwise.
	blobs, err := openBlobStore()
	if err != nil {
		log.Printf("service=backend msg=%q err=%v", "blob_store_failed", err)
		os.Exit(1)
	}

	service := lifecycle.NewService(store.NewPostgres(dbConn), blobs, cipher)

	// Background sweeper with its own cancellable lifetime.
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	if getenvDefault("BL_SWEEP_ENABLED", "true") == "true" {
		interval := envDuration("BL_SWEEP_INTERVAL", time.Hour)
		go lifecycle.NewSweeper(service, interval).Run(sweepCtx)
	} else {
		log.Printf("service=sweeper msg=%q", "disabled")
	}

	srv := server.New(server.Config{
		Addr:           addr,
		BaseURL:        baseURL,
		MaxUploadBytes: envInt64("BL_MAX_UPLOAD_BYTES", 0),
		Service:        service,
	})

	// Start the HTTP server in a background goroutine so we can listen
	// for OS signals while it runs.
	errCh := make(chan error, 1)
	go func() {
		log.Printf("service=backend msg=%q addr=%s", "starting", addr)
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("service=backend msg=%q signal=%s", "shutting_down", sig.String())
		stopSweeper()
		// Give the server 5 seconds to finish in-flight requests.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("service=backend msg=%q err=%v", "shutdown_error", err)
			os.Exit(1)
		}
		log.Printf("service=backend msg=%q", "shutdown_complete")
	case err := <-errCh:
		if err != nil {
			log.Printf("service=backend msg=%q err=%v", "server_error", err)
			os.Exit(1)
		}
	}
}

func openBlobStore() (lifecycle.BlobStore, error) {
	if endpoint := os.Getenv("BL_S3_ENDPOINT"); endpoint != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return store.NewMinio(ctx, store.MinioConfig{
			Endpoint:  endpoint,
			AccessKey: os.Getenv("BL_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("BL_S3_SECRET_KEY"),
			Bucket:    os.Getenv("BL_BUCKET"),
		})
	}
	return store.NewDir(getenvDefault("BL_STORAGE_DIR", "data/blobs"))
}

// getenvDefault reads an environment variable and returns a default value
// if not set.
func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("service=backend msg=%q key=%s", "ignoring_unparseable_duration", key)
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
		log.Printf("service=backend msg=%q key=%s", "ignoring_unparseable_int", key)
	}
	return def
}
