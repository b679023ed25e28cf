/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the training compliance engine server: store,
  handler, router, alert scheduler, graceful shutdown.

COMMAND-LINE FLAGS:
  -port            HTTP server port (default: 8080)
  -db              SQLite database path (default: compliance.db)
                   Use ":memory:" for an in-memory database
  -seed            Optional JSON file of requirement definitions to load
  -alert-interval  Interval between automated alert passes (default: 24h)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the alert scheduler
  2. Stop accepting new connections, drain active requests (30s timeout)
  3. Close the database connection

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Automated alert pass
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stationops/compliance-engine/api"
	"github.com/stationops/compliance-engine/factory"
	"github.com/stationops/compliance-engine/store/sqlite"
)

func main() {
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "compliance.db", "SQLite database path")
	seedPath := flag.String("seed", "", "JSON file of requirement definitions to load at startup")
	alertInterval := flag.Duration("alert-interval", 24*time.Hour, "interval between automated alert passes")
	flag.Parse()

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	if *seedPath != "" {
		if err := seedRequirements(store, *seedPath); err != nil {
			log.Fatalf("Failed to seed requirements: %v", err)
		}
	}

	handler := api.NewHandler(store)
	router := api.NewRouter(handler)

	scheduler := api.NewAlertScheduler(store)
	scheduler.CheckInterval = *alertInterval
	scheduler.Start()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Compliance engine listening on http://localhost:%d", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server stopped")
}

// seedRequirements loads a requirement set definition file into the store.
func seedRequirements(store *sqlite.Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	reqs, err := factory.ParseSet(data)
	if err != nil {
		return err
	}
	ctx := context.Background()
	for _, req := range reqs {
		if err := store.SaveRequirement(ctx, req); err != nil {
			return err
		}
	}
	log.Printf("Seeded %d requirements from %s", len(reqs), path)
	return nil
}
