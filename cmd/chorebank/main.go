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

	"github.com/joho/godotenv"

	"chorebank/internal/database"
	"chorebank/internal/logging"
	"chorebank/internal/server"
	"chorebank/internal/store"
)

func main() {
	// Missing .env is fine; real deployments set the environment directly.
	godotenv.Load()

	logger := logging.Setup(os.Getenv("CHOREBANK_LOG_LEVEL"), os.Getenv("CHOREBANK_LOG_FORMAT"))

	port := os.Getenv("CHOREBANK_PORT")
	if port == "" {
		port = "8080"
	}

	jwtSecret := os.Getenv("CHOREBANK_JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("CHOREBANK_JWT_SECRET must be set")
	}

	ctx := context.Background()

	// Firestore when a project is configured, embedded SQLite otherwise.
	var st store.Store
	if project := os.Getenv("CHOREBANK_FIRESTORE_PROJECT"); project != "" {
		fs, err := store.NewFirestore(ctx, project, logger.With("component", "firestore"))
		if err != nil {
			log.Fatalf("failed to connect to firestore: %v", err)
		}
		st = fs
	} else {
		dbPath := os.Getenv("CHOREBANK_DB_PATH")
		if dbPath == "" {
			dbPath = "chorebank.db"
		}
		db, err := database.Open(dbPath)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		st = store.NewSQLite(db, logger.With("component", "sqlite"))
	}
	defer st.Close()

	srv := server.New(st, jwtSecret, logger)

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("Chorebank running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
	srv.Shutdown()
}
