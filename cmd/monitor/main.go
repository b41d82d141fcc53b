package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"lpmonitor/internal/config"
	"lpmonitor/internal/dune"
	"lpmonitor/internal/monitor"
	"lpmonitor/internal/notify"
	"lpmonitor/internal/publish"
	"lpmonitor/internal/storage"
	"lpmonitor/internal/storage/postgres"
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "monitor",
		Short:        "LP position monitor",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run one monitoring pass",
		RunE:  runMonitor,
	}

	runCmd.Flags().String("data-dir", "lp_data", "snapshot data directory")
	runCmd.Flags().Duration("poll-interval", 10*time.Second, "execution status poll interval")
	runCmd.Flags().Int("poll-max-attempts", 30, "maximum status polls before giving up")
	runCmd.Flags().Duration("http-timeout", 30*time.Second, "HTTP request timeout")
	runCmd.Flags().Int("max-retries", 3, "maximum transport retry attempts")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial transport retry backoff")
	runCmd.Flags().Int("chunk-size", 4000, "message split threshold in characters")
	runCmd.Flags().Duration("chunk-pause", time.Second, "pause between message chunks")
	runCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for the history sink")
	runCmd.Flags().String("repo-dir", ".", "git repository to publish data to")
	runCmd.Flags().Bool("publish", true, "commit and push the data directory")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	diffCmd := &cobra.Command{
		Use:   "diff",
		Short: "Diff two snapshot files offline",
		RunE:  runDiff,
	}

	diffCmd.Flags().String("old", "", "old snapshot JSON file")
	diffCmd.Flags().String("new", "", "new snapshot JSON file")

	root.AddCommand(diffCmd)

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Print the current-state report from the latest snapshot",
		RunE:  runReport,
	}

	reportCmd.Flags().String("data-dir", "lp_data", "snapshot data directory")

	root.AddCommand(reportCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source := dune.NewClient(dune.Config{
		APIKey:          cfg.DuneAPIKey,
		QueryID:         cfg.DuneQueryID,
		Timeout:         cfg.HTTPTimeout,
		PollInterval:    cfg.PollInterval,
		MaxPollAttempts: cfg.PollMaxAttempts,
		MaxRetries:      cfg.MaxRetries,
		RetryBackoff:    cfg.RetryBackoff,
	}, logger)

	store := storage.NewFileStore(cfg.DataDir)

	senders := []notify.Sender{
		notify.NewTelegramSender(cfg.TgBotToken, cfg.TgChatID, logger),
	}
	notifier := notify.NewNotifier(senders, cfg.ChunkSize, cfg.ChunkPause, logger)

	var history monitor.HistorySink
	if cfg.PGDSN != "" {
		pgStore, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			logger.Warn("history sink unavailable", zap.Error(err))
		} else {
			defer pgStore.Close()
			history = pgStore
		}
	}

	var publisher monitor.Publisher
	if cfg.Publish {
		publisher = publish.NewGitPublisher(cfg.RepoDir, cfg.GitAuthorName, cfg.GitAuthorEmail, logger)
	}

	runner := monitor.NewRunner(monitor.Deps{
		Source:    source,
		Store:     store,
		Notifier:  notifier,
		Publisher: publisher,
		History:   history,
		Logger:    logger,
	})

	logger.Info("monitor start",
		zap.String("query_id", cfg.DuneQueryID),
		zap.String("data_dir", cfg.DataDir),
		zap.Bool("publish", cfg.Publish),
		zap.Bool("history_sink", history != nil),
	)

	summary, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	logger.Info("monitor finished",
		zap.Int("positions", summary.Positions),
		zap.Int("added", summary.Added),
		zap.Int("removed", summary.Removed),
		zap.Int("modified", summary.Modified),
	)

	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
