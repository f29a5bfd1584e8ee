package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fraudcheck/db"
	"fraudcheck/fraud"
	qhttp "fraudcheck/http"
	"fraudcheck/logger"
	"fraudcheck/monitoring"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the fraud check web form and JSON API",
		RunE:  runServe,
	}
	cmd.Flags().Int("port", 0, "Override http.port from the config file")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Http.Port = port
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	metrics := monitoring.NewMetricsCollector()
	hub := monitoring.NewVerdictHub(log)
	sinks := []fraud.Sink{metrics, hub}

	// 1. Audit store
	var store *db.Store
	if cfg.Audit.Path != "" {
		store, err = db.Open(cfg.Audit.Path)
		if err != nil {
			return fmt.Errorf("open audit store: %w", err)
		}
		defer store.Close()
		sinks = append(sinks, store)
		log.Info("audit store opened", zap.String("path", cfg.Audit.Path))
	}

	// 2. Model, loaded once for the process lifetime
	detector := fraud.Load(cfg.Model.Path,
		fraud.WithLogger(log),
		fraud.WithCacheSize(cfg.Cache.Size),
		fraud.WithSinks(sinks...),
	)

	// 3. HTTP server
	go hub.Start()
	defer hub.Stop()

	server := qhttp.NewServer(qhttp.ServerConfig{
		Port:           cfg.Http.Port,
		Timeout:        cfg.Http.Timeout,
		AllowedOrigins: cfg.Http.AllowedOrigins,
		MaxBodyBytes:   cfg.Http.MaxBodyBytes,
		Locale:         cfg.UI.Locale,
	}, qhttp.Deps{
		Detector: detector,
		Metrics:  metrics,
		Hub:      hub,
		Store:    store,
		Logger:   log,
	})

	log.Info("fraudcheck ready",
		zap.String("addr", server.Addr()),
		zap.Bool("model_loaded", detector.Available()),
		zap.Bool("audit", store != nil),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// 4. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", zap.Stringer("signal", sig))
	}

	if err := server.Stop(); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
		return err
	}
	log.Info("exiting")
	return nil
}
