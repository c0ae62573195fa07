package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/addresskit/addresskit/internal/archive"
	"github.com/addresskit/addresskit/internal/checkpoint"
	"github.com/addresskit/addresskit/internal/cli"
	"github.com/addresskit/addresskit/internal/config"
	"github.com/addresskit/addresskit/internal/fetch"
	"github.com/addresskit/addresskit/internal/ingest"
	"github.com/addresskit/addresskit/internal/logging"
	"github.com/addresskit/addresskit/internal/metrics"
	"github.com/addresskit/addresskit/internal/mirror"
	"github.com/addresskit/addresskit/internal/searchindex"
)

// withSignalContext mirrors the teacher's runConvert: a cancelable
// context that trips on SIGINT/SIGTERM so a killed run checkpoints
// cleanly instead of leaving a half-written file behind.
func withSignalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()
	return ctx, cancel
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if ingestNoGeo {
		cfg.EnableGeo = false
	}

	log := logging.New(os.Stderr, logging.LevelFromString(cfg.LogLevel))

	runID := ingestRunID
	if runID == "" {
		runID = uuid.NewString()
	}

	if cfg.MetricsAddr != "" {
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, metrics.Handler()); err != nil {
				log.Warn("metrics listener stopped", "err", err)
			}
		}()
	}

	cp, err := newCheckpointBackend(cfg)
	if err != nil {
		return fmt.Errorf("checkpoint backend: %w", err)
	}

	search, err := searchindex.NewClient(searchindex.Config{
		Addresses: cfg.ESAddresses,
		IndexName: cfg.ESIndexName,
		Log:       log,
	})
	if err != nil {
		return fmt.Errorf("search client: %w", err)
	}

	var mirrorClient *mirror.Client
	if cfg.MirrorEnabled() {
		mirrorClient, err = mirror.NewClient(context.Background(), mirror.Config{Region: cfg.MirrorRegion})
		if err != nil {
			return fmt.Errorf("archive mirror client: %w", err)
		}
	}

	cli.PrintHeader(version)

	ctx, cancel := withSignalContext()
	defer cancel()

	regions := ingestRegions
	if len(regions) == 0 {
		regions = cfg.CoveredStates
	}

	start := time.Now()
	runner := ingest.New(cfg, log, search, cp, mirrorClient)
	runCp, err := runner.Run(ctx, ingest.RunOptions{
		RunID:   runID,
		Clear:   ingestClear,
		Regions: regions,
	})
	if err != nil {
		return fmt.Errorf("ingest run %s: %w", runID, err)
	}

	cli.PrintReport(cli.Report{
		RegionsLoaded: len(regions),
		RowsIngested:  runCp.RowsIngested,
		Duration:      time.Since(start),
	})
	return nil
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx, cancel := withSignalContext()
	defer cancel()

	opts := fetch.DefaultOptions()
	opts.ExpectedSize = fetchExpectedSize
	if fetchExpectedSize > 0 {
		bar := cli.NewFileProgress(fetchExpectedSize, "fetching")
		opts.OnProgress = func(p fetch.Progress) {
			bar.Set64(p.BytesDownloaded)
		}
	}

	f := fetch.New(&http.Client{})
	result, err := f.Fetch(ctx, args[0], args[1], opts)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", args[0], err)
	}
	fmt.Printf("fetched %d bytes to %s\n", result.BytesWritten, args[1])
	return nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logging.New(os.Stderr, logging.LevelFromString("info"))
	result, err := archive.Extract(args[0], args[1], log)
	if err != nil {
		return fmt.Errorf("extract %s: %w", args[0], err)
	}
	fmt.Printf("extracted %d/%d entries (%d skipped) into %s\n", result.EntriesExtracted, result.EntriesTotal, result.EntriesSkipped, args[1])
	return nil
}

func newCheckpointBackend(cfg *config.Config) (checkpoint.Backend, error) {
	if cfg.CheckpointBackend == "redis" {
		return checkpoint.NewRedisBackend(checkpoint.DefaultRedisConfig(cfg.CheckpointRedisAddr))
	}
	return checkpoint.NewFileBackend(cfg.CheckpointFilePath), nil
}
