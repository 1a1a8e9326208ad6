package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/RRaffay/nuntium-em/internal/cli"
	"github.com/RRaffay/nuntium-em/internal/config"
	"github.com/RRaffay/nuntium-em/internal/db"
	"github.com/RRaffay/nuntium-em/internal/gdelt"
	"github.com/RRaffay/nuntium-em/internal/logging"
	"github.com/RRaffay/nuntium-em/internal/pipeline"
)

func runAnalyze(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	country := fs.String("country", "", "FIPS 10-4 country code, e.g. IN")
	hours := fs.Int("hours", 48, "Lookback window in hours")
	query := fs.String("query", "", "Interest query used for cluster matching")
	articleObjective := fs.String("article-objective", "", "Objective for per-article summaries (defaults to the query)")
	clusterObjective := fs.String("cluster-objective", "", "Objective for per-cluster summaries (defaults to the query)")
	sampleSize := fs.Int("sample-size", 0, "Significance sampling cap (0 uses SAMPLE_SIZE)")
	processAll := fs.Bool("process-all", false, "Skip significance sampling and process every record")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	code := strings.ToUpper(strings.TrimSpace(*country))
	if !gdelt.ValidCountry(code) {
		fmt.Fprintln(os.Stderr, "--country must be a supported FIPS 10-4 code; run \"nuntium countries\" to list them")
		return 2
	}
	if *hours < 1 {
		fmt.Fprintln(os.Stderr, "--hours must be >= 1")
		return 2
	}
	if strings.TrimSpace(*query) == "" {
		fmt.Fprintln(os.Stderr, "--query is required")
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		cancel()
	}()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("run failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	runner := buildRunner(cfg, pool, logger)

	summary, err := runner.Run(ctx, pipeline.Request{
		Country:          code,
		Hours:            *hours,
		Query:            *query,
		ArticleObjective: *articleObjective,
		ClusterObjective: *clusterObjective,
		SampleSize:       *sampleSize,
		ProcessAll:       *processAll,
	})
	if err != nil {
		logger.Error().Err(err).Str("country", code).Int("hours", *hours).Msg("analysis run failed")
		fmt.Fprintf(os.Stderr, "Analysis run failed: %v\n", err)
		return 1
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode summary: %v\n", err)
		return 1
	}
	fmt.Println(string(out))
	return 0
}
