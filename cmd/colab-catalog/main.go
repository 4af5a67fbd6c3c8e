// Package main provides the entry point for the colab-catalog CLI tool.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"colab-catalog/config"
	"colab-catalog/downloads"
	"colab-catalog/pipeline"
	"colab-catalog/refresh"
	"colab-catalog/render"
	"colab-catalog/scheduler"
)

var version = "dev"

var configFlag string

func main() {
	_ = godotenv.Load()

	// Set up structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	rootCmd := &cobra.Command{
		Use:   "colab-catalog",
		Short: "Curated ML catalog generator",
		Long: `colab-catalog renders a curated collection of ML notebooks, papers
and packages into a single Markdown document with rankings and trends.

Commands:
  generate  Render the catalog document from the data files
  refresh   Update star counts in the data files from the GitHub API
  snapshot  Record current metrics as the baseline for trend scores`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to config file (default $CATALOG_CONFIG or ./config.yaml)")

	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(refreshCmd())
	rootCmd.AddCommand(snapshotCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func generateCmd() *cobra.Command {
	var schedule bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Render the catalog document from the data files",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			setupLogging(cfg.LogLevel)

			stats, closeStats, err := newStatsSource(cfg)
			if err != nil {
				return fmt.Errorf("init downloads source: %w", err)
			}
			defer closeStats()

			runner := newRunner(cfg, stats)

			if !schedule {
				ctx, cancel := signalContext()
				defer cancel()
				return runner.Run(ctx)
			}
			return runScheduled(cfg, runner)
		},
	}

	cmd.Flags().BoolVar(&schedule, "schedule", false, "keep running and regenerate daily at schedule_time")

	return cmd
}

func refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Update star counts in the data files from the GitHub API",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			setupLogging(cfg.LogLevel)

			ctx, cancel := signalContext()
			defer cancel()

			token := os.Getenv("GITHUB_TOKEN")
			if token == "" {
				slog.Warn("GITHUB_TOKEN not set, using unauthenticated requests")
			}
			updater := refresh.NewUpdater(refresh.NewGitHubSource(ctx, token))

			for _, name := range []string{"research.json", "tutorials.json"} {
				if _, err := updater.UpdateFile(ctx, filepath.Join(cfg.DataDir, name)); err != nil {
					return fmt.Errorf("refresh %s: %w", name, err)
				}
			}
			return nil
		},
	}
}

func snapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Record current metrics as the baseline for trend scores",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			setupLogging(cfg.LogLevel)

			ctx, cancel := signalContext()
			defer cancel()

			return newRunner(cfg, nil).Snapshot(ctx)
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "colab-catalog %s\n", version)
		},
	}
}

func runScheduled(cfg *config.Config, runner *pipeline.Runner) error {
	sched, err := scheduler.New(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	if err := sched.Daily(cfg.ScheduleTime, func() {
		if err := runner.Run(context.Background()); err != nil {
			slog.Error("catalog generation failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule generation: %w", err)
	}

	sched.Start()
	defer sched.Stop()
	slog.Info("generation scheduled", "time", cfg.ScheduleTime, "timezone", cfg.Timezone, "next_run", sched.Next())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received shutdown signal", "signal", sig)
	return nil
}

func loadConfig() (*config.Config, error) {
	path := configFlag
	if path == "" {
		path = config.GetConfigPath()
		if _, err := os.Stat(path); os.IsNotExist(err) {
			slog.Info("no config file found, using defaults", "path", path)
			return config.Default(), nil
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	slog.Info("config loaded", "path", path)
	return cfg, nil
}

func setupLogging(level string) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(level)}))
	slog.SetDefault(logger)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newStatsSource builds the download statistics source the config asks
// for. The returned close func releases it.
func newStatsSource(cfg *config.Config) (pipeline.StatsSource, func(), error) {
	switch cfg.DownloadsSource {
	case "pypistats":
		client := downloads.NewClient(
			downloads.WithBaseURL(cfg.DownloadsBaseURL),
			downloads.WithTimeout(time.Duration(cfg.FetchTimeoutSecs)*time.Second),
			downloads.WithRetries(cfg.FetchRetries),
		)
		return client, func() {}, nil
	case "warehouse":
		warehouse, err := downloads.OpenWarehouse(cfg.WarehouseDriver, cfg.WarehouseDSN)
		if err != nil {
			return nil, nil, err
		}
		return warehouse, func() {
			if err := warehouse.Close(); err != nil {
				slog.Warn("failed to close warehouse", "error", err)
			}
		}, nil
	default: // off
		return nil, func() {}, nil
	}
}

func newRunner(cfg *config.Config, stats pipeline.StatsSource) *pipeline.Runner {
	renderer := render.New(render.Config{
		Title:         cfg.SiteTitle,
		RepoSlug:      cfg.SiteRepo,
		Badges:        cfg.Badges,
		ResearchPath:  dataPath(cfg, "research.json"),
		TutorialsPath: dataPath(cfg, "tutorials.json"),
	})

	opts := []pipeline.Option{
		pipeline.WithDataDir(cfg.DataDir),
		pipeline.WithOutputPath(cfg.OutputPath),
		pipeline.WithTopK(cfg.TopK),
	}
	if stats != nil {
		opts = append(opts, pipeline.WithStats(stats))
	}
	return pipeline.NewRunner(renderer, opts...)
}

func dataPath(cfg *config.Config, name string) string {
	return filepath.ToSlash(filepath.Join(cfg.DataDir, name))
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	return ctx, cancel
}
