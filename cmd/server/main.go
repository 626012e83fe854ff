package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gostones/s3transfer/internal/config"
	"github.com/gostones/s3transfer/internal/server"
	"github.com/gostones/s3transfer/internal/storage"
)

func loadConfig(path string) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.LoadFromFile(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.ValidateServer()
}

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := cfg.Log.NewLogger(os.Stderr)

	svc, err := storage.NewClient(storage.ClientOptions{
		Endpoint:        cfg.S3.Endpoint,
		Region:          cfg.S3.Region,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
		ForcePathStyle:  cfg.S3.ForcePathStyle,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("create s3 client")
	}
	store, err := storage.New(svc, storage.Options{
		Bucket:    cfg.S3.Bucket,
		Prefix:    cfg.S3.Prefix,
		Delimiter: cfg.S3.Delimiter,
		Expires:   cfg.Sign.Expires,
		Logger:    &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("create storage service")
	}

	maxBody := server.MaxBodySizeFor(cfg.ChunkSize)
	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: server.New(store, server.Options{
			MaxBodySize: maxBody,
			Logger:      &logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info().
		Str("addr", cfg.Server.Addr).
		Str("bucket", store.Bucket()).
		Str("prefix", cfg.S3.Prefix).
		Int64("maxBody", maxBody).
		Msg("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("serve")
	}
}
