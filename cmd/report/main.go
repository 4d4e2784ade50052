package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/meridian/commerce-insights/internal/config"
	"github.com/meridian/commerce-insights/internal/metrics"
	"github.com/meridian/commerce-insights/internal/pipeline"
	"github.com/meridian/commerce-insights/internal/pkg/logger"
	"github.com/meridian/commerce-insights/internal/sales"
)

// One-shot runner: loads the extracts, builds the sales dataset, and prints
// the comprehensive report as JSON on stdout.
func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	year := flag.Int("year", 0, "analysis year (overrides config)")
	comparison := flag.Int("comparison", 0, "comparison year (overrides config, 0 disables)")
	month := flag.Int("month", 0, "analysis month 1-12 (overrides config, 0 disables)")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))

	if *year != 0 {
		cfg.Analysis.AnalysisYear = *year
	}
	if *comparison != 0 {
		cfg.Analysis.ComparisonYear = comparison
	}
	if *month != 0 {
		cfg.Analysis.AnalysisMonth = month
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	start := time.Now()
	_, data, err := pipeline.LoadAndProcessData(ctx, cfg)
	if err != nil {
		log.Fatalf("Pipeline failed: %v", err)
	}

	filters := pipeline.FiltersFromConfig(cfg)
	records, err := data.CreateSalesDataset(filters)
	if err != nil {
		log.Fatalf("Join failed: %v", err)
	}

	if cfg.Analysis.ComparisonYear != nil {
		prev, err := data.CreateSalesDataset(sales.Filters{
			Year:  *cfg.Analysis.ComparisonYear,
			Month: cfg.Analysis.AnalysisMonth,
		})
		if err != nil {
			log.Fatalf("Join failed for comparison year: %v", err)
		}
		records = append(records, prev...)
	}

	report := metrics.NewCalculator(records).
		GenerateComprehensiveReport(cfg.Analysis.AnalysisYear, cfg.Analysis.ComparisonYear)

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Fatalf("Encoding report failed: %v", err)
	}
	fmt.Fprintln(os.Stdout, string(out))

	logger.Info("report generated",
		"year", cfg.Analysis.AnalysisYear,
		"records", len(records),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
