package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"water-savings-platform/internal/catalog"
	"water-savings-platform/internal/config"
	"water-savings-platform/internal/repository"
	"water-savings-platform/internal/services"
	"water-savings-platform/pkg/database"
	"water-savings-platform/pkg/logging"
	"water-savings-platform/pkg/metrics"
)

func main() {
	catalogPath := flag.String("catalog", "", "YAML catalog to import (default: CATALOG_PATH, then the built-in catalog)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	path := *catalogPath
	if path == "" {
		path = cfg.Catalog.Path
	}

	logger := logging.NewStructuredLogger("water-savings-seed", "1.0.0", logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[SEED_START] Starting catalog seed", logging.Fields{
		"version": "1.0.0",
		"catalog": displayPath(path),
	})

	cat, err := catalog.LoadOrDefault(path)
	if err != nil {
		logger.Fatal(ctx, "[SEED_ERROR] Failed to load catalog", logging.Fields{
			"catalog": displayPath(path),
		}, err)
	}

	metricsCollector := metrics.NewCollector("water_savings_seed")

	db, err := database.NewPostgresDB(cfg.Database.Postgres(), logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[SEED_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	catalogService := services.NewCatalogService(
		repository.NewCityRepository(db, logger, metricsCollector),
		repository.NewTariffRepository(db, logger, metricsCollector),
		logger,
		metricsCollector,
	)

	result, err := catalogService.Import(ctx, cat)
	if err != nil {
		logger.Fatal(ctx, "[SEED_ERROR] Import failed", logging.Fields{}, err)
	}

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("CATALOG IMPORT COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Catalog:            %s\n", displayPath(path))
	fmt.Printf("Cities Upserted:    %d of %d\n", result.Cities, len(cat.Cities))
	fmt.Printf("Constants Written:  %d\n", result.Tariffs)
	fmt.Printf("Duration:           %v\n", result.Duration)

	if len(result.Errors) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(result.Errors))
		for i, errMsg := range result.Errors {
			if i < 10 {
				fmt.Printf("  - %s\n", errMsg)
			}
		}
		if len(result.Errors) > 10 {
			fmt.Printf("  ... and %d more errors\n", len(result.Errors)-10)
		}
		os.Exit(1)
	}
}

func displayPath(path string) string {
	if path == "" {
		return "(built-in)"
	}
	return path
}
