package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"heartform/config"
	"heartform/db"
	qhttp "heartform/http"
	"heartform/logging"
	"heartform/ml"
	"heartform/monitoring"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "heartform",
		Short:         "Heart disease prediction form backed by a pre-trained classifier",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the YAML config file")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the prediction form and API",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(cmd.Context(), configPath)
			},
		},
		newPredictCmd(&configPath),
	)
	return root
}

// Look for config in the repository root even if run from cmd/
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) && !filepath.IsAbs(path) {
		if alt := filepath.Join("..", path); fileExists(alt) {
			path = alt
		}
	}
	return config.Load(path)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
}

func runServe(parent context.Context, configPath string) error {
	// 1. Load config
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	// 2. Load the classifier once; the process does not start without it
	model, err := ml.LoadModel(cfg.ML.ModelType, cfg.ML.ModelPath)
	if err != nil {
		logger.Fatal("failed to load model",
			zap.String("type", cfg.ML.ModelType),
			zap.String("path", cfg.ML.ModelPath),
			zap.Error(err))
	}
	if model.NumFeatures() != ml.VectorLen {
		logger.Warn("model feature count differs from the form encoding, predictions will fail",
			zap.Int("model_features", model.NumFeatures()),
			zap.Int("encoded_features", ml.VectorLen))
	}
	predictor := ml.NewPredictor(model)
	logger.Info("model loaded", zap.String("type", model.Type()), zap.String("path", cfg.ML.ModelPath))

	// 3. Optional history
	var store *db.Store
	if cfg.History.Enabled {
		store, err = db.Open(cfg.History.Path)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer store.Close()
		logger.Info("prediction history enabled", zap.String("path", cfg.History.Path))
	}

	handlers, err := qhttp.NewHandlers(predictor, logger, qhttp.Options{
		Metrics:    monitoring.NewMetricsCollector(),
		Store:      store,
		RecentSize: cfg.History.RecentSize,
	})
	if err != nil {
		return err
	}

	// 4. Start HTTP server
	server := qhttp.NewServer(qhttp.ServerConfig{
		Port:           cfg.Http.Port,
		Timeout:        cfg.Http.Timeout,
		AllowedOrigins: cfg.Http.AllowedOrigins,
	}, handlers, logger)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(server.Start)
	g.Go(func() error {
		// 5. Graceful shutdown
		<-ctx.Done()
		logger.Info("shutting down")
		return server.Stop()
	})
	if cfg.ML.Watch {
		g.Go(func() error {
			if err := ml.WatchArtifact(ctx, cfg.ML.ModelPath, logger); err != nil {
				logger.Warn("artifact watcher stopped", zap.Error(err))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("exiting")
	return nil
}
