// Command fleet-report runs every fleet analytic over a JSON dataset and
// prints the combined report as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/fleetops/backend/internal/analytics/stats"
	"github.com/fleetops/backend/internal/domain"
	"github.com/fleetops/backend/internal/logging"
	"github.com/fleetops/backend/internal/repository/postgres"
	"github.com/fleetops/backend/internal/service"
)

func main() {
	input := flag.String("input", "", "dataset JSON file (default: built-in demo fleet)")
	output := flag.String("output", "", "write the report here instead of stdout")
	asOf := flag.String("as-of", "", "evaluate as of this date, YYYY-MM-DD (default: now)")
	seed := flag.Int64("seed", 0, "isolation forest seed, 0 for random")
	quiet := flag.Bool("quiet", false, "hide the progress bar")
	flag.Parse()

	zlog, err := logging.New(logging.Options{Level: "warn"})
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer zlog.Sync()

	if err := run(*input, *output, *asOf, *seed, *quiet, zlog); err != nil {
		zlog.Fatal("report failed", zap.Error(err))
	}
}

func run(input, output, asOf string, seed int64, quiet bool, zlog *zap.Logger) error {
	now := time.Now().UTC()
	if asOf != "" {
		t, err := time.Parse("2006-01-02", asOf)
		if err != nil {
			return fmt.Errorf("fleet-report: invalid -as-of: %w", err)
		}
		now = t
	}

	ds := postgres.SeedDataset(now)
	if input != "" {
		loaded, err := loadDataset(input)
		if err != nil {
			return err
		}
		ds = loaded
	}

	var rng stats.RandomSource = stats.GlobalSource{}
	if seed != 0 {
		rng = rand.New(rand.NewSource(seed))
	}

	svc := service.NewAnalyticsService(
		postgres.NewDatasetRepository(ds),
		datasetWeather{days: ds.Weather, fallback: service.NewWeatherService("", 0, 0, zlog).WithClock(func() time.Time { return now })},
		service.Options{Logger: zlog, Clock: func() time.Time { return now }, Random: rng},
	)

	var bar *progressbar.ProgressBar
	if quiet {
		bar = progressbar.DefaultSilent(service.ReportSteps)
	} else {
		bar = progressbar.NewOptions(service.ReportSteps,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("analysing fleet"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	report, err := svc.Report(context.Background(), func(desc string) {
		bar.Describe(desc)
		_ = bar.Add(1)
	})
	svc.WaitBackground()
	if err != nil {
		return err
	}
	_ = bar.Finish()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("fleet-report: failed to create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("fleet-report: failed to write report: %w", err)
	}
	return nil
}

func loadDataset(path string) (domain.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("fleet-report: failed to open dataset: %w", err)
	}
	defer f.Close()

	var ds domain.Dataset
	if err := json.NewDecoder(f).Decode(&ds); err != nil {
		return domain.Dataset{}, fmt.Errorf("fleet-report: failed to decode dataset: %w", err)
	}
	return ds, nil
}

// datasetWeather serves the dataset's own forecast, or the seasonal mock
// when the dataset has none
type datasetWeather struct {
	days     []domain.WeatherData
	fallback service.WeatherProvider
}

func (d datasetWeather) GetForecast(ctx context.Context) ([]domain.WeatherData, error) {
	if len(d.days) > 0 {
		return d.days, nil
	}
	return d.fallback.GetForecast(ctx)
}
