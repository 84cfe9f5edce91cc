// Command reconcile recomputes every denormalized counter once and repairs drift.
package main

import (
	"context"
	"flag"
	"log"
	"sort"
	"time"

	"chirp/internal/config"
	"chirp/internal/database"
	"chirp/internal/repository"
	"chirp/internal/service"
)

func main() {
	timeout := flag.Duration("timeout", 5*time.Minute, "Abort the sweep after this long")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	repaired, err := service.NewCounterReconciler(repository.NewStore(db), 0).Sweep(ctx)
	if err != nil {
		log.Fatalf("Counter sweep failed: %v", err)
	}

	names := make([]string, 0, len(repaired))
	for name := range repaired {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		log.Printf("%-16s repaired %d", name, repaired[name])
	}
}
