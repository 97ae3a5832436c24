package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ozonelab/o3skim/internal/adapter/httpadapter"
	kafkaadapter "github.com/ozonelab/o3skim/internal/adapter/kafka"
	netcdfadapter "github.com/ozonelab/o3skim/internal/adapter/netcdf"
	"github.com/ozonelab/o3skim/internal/config"
	"github.com/ozonelab/o3skim/internal/observability"
	"github.com/ozonelab/o3skim/internal/pipeline"
)

var (
	sourcesPath string
	outputDir   string
	groupByFlag string
)

var rootCmd = &cobra.Command{
	Use:   "o3skim",
	Short: "Standardize and partition ozone model output",
	Long: `o3skim loads the tco3_zm and vmro3_zm variables of the models
described in a sources file, standardizes them to the canonical schema,
and writes zonal-mean partitions grouped by year or decade.

A model that fails to load or write does not abort the run; failures are
reported at the end and the remaining models are still skimmed.`,
	SilenceUsage: true,
	RunE:         runSkim,
}

func init() {
	rootCmd.Flags().StringVar(&sourcesPath, "sources", "sources.yaml", "path to the sources description file")
	rootCmd.Flags().StringVar(&outputDir, "output", ".", "directory to write skimmed output under")
	rootCmd.Flags().StringVar(&groupByFlag, "groupby", "none", "time partitioning: none, year or decade")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSkim(cmd *cobra.Command, _ []string) error {
	groupby, err := pipeline.ParseGroupBy(groupByFlag)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	specs, err := config.LoadSources(sourcesPath)
	if err != nil {
		return fmt.Errorf("load sources: %w", err)
	}

	reader := netcdfadapter.NewReader(logger)
	writer := netcdfadapter.NewWriter(logger)
	loader := pipeline.NewLoader(reader, logger, metrics, cfg.Workers, cfg.ModelLoadTimeout)

	var notifier pipeline.Notifier
	if cfg.KafkaEnabled {
		kn := kafkaadapter.NewNotifier(cfg, logger)
		defer func() {
			if err := kn.Close(); err != nil {
				logger.Error("kafka notifier close error", "error", err)
			}
		}()
		notifier = kn
		logger.Info("skim report notifications enabled", "topic", cfg.KafkaTopic)
	}

	engine := pipeline.NewEngine(writer, notifier, logger, metrics, cfg.Workers)

	if cfg.MetricsAddr != "" {
		srv := httpadapter.NewServer(cfg.MetricsAddr, engine, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var modelFailures int
	for _, spec := range specs {
		source, loadReport := loader.BuildSource(ctx, spec)
		modelFailures += len(loadReport.Failures)

		reports, err := engine.SkimSource(ctx, source, outputDir, groupby)
		if err != nil {
			// Output directory problems are fatal: nothing useful can be
			// written for this invocation.
			return err
		}
		for _, r := range reports {
			modelFailures += len(r.Failures)
		}
		if ctx.Err() != nil {
			logger.Info("interrupted", "source", spec.Name)
			break
		}
	}

	if modelFailures > 0 {
		logger.Warn("skim finished with contained failures", "failures", modelFailures)
	} else {
		logger.Info("skim finished")
	}
	return nil
}
