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

	"go.uber.org/zap"

	"github.com/linzh0131/find/internal/config"
	"github.com/linzh0131/find/internal/interpret"
	"github.com/linzh0131/find/internal/logger"
	"github.com/linzh0131/find/internal/places"
	"github.com/linzh0131/find/internal/server"
	"github.com/linzh0131/find/internal/speech"
	"github.com/linzh0131/find/internal/verify"
)

func runServe(args []string) error {
	var env string
	var port int

	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	fs.StringVar(&env, "env", config.GetEnv(), "Config environment (local, dev, prod)")
	fs.IntVar(&port, "port", 0, "Listen port (overrides config)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: find serve [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(env)
	if err != nil {
		return err
	}
	if port != 0 {
		cfg.Server.Port = port
	}

	log, err := logger.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	srv := server.New(
		cfg.Server,
		log,
		interpret.New(cfg.Server.LLM),
		places.NewClient(cfg.Server.PlacesAPIKey),
		speech.NewClient(cfg.Server.SpeechAPIKey),
		verify.NewTurnstile(cfg.Server.Turnstile.SecretKey),
	)

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.Int("port", cfg.Server.Port),
			zap.String("env", env),
			zap.Bool("verification_enabled", cfg.Server.Turnstile.SecretKey != ""),
		)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownSec)*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
