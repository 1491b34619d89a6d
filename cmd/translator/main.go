package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"qwenmt-translator/internal/config"
	"qwenmt-translator/internal/dashscope"
	"qwenmt-translator/internal/handlers"
	"qwenmt-translator/internal/httpserver"
	"qwenmt-translator/internal/metrics"
	"qwenmt-translator/internal/translator"
	"qwenmt-translator/pkg/logging/logging"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("translator exited with error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	// ----- Config -----
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	// ----- Logger -----
	logger, err := logging.New(logging.Options{
		Env:   cfg.Logging.Env,
		Level: cfg.Logging.Level,
	})
	if err != nil {
		return err
	}
	defer logger.Sync()
	logging.SetDefault(logger)

	// ----- Metrics -----
	metrics.Register()

	apiURL := cfg.Provider.APIURL
	if apiURL == "" {
		apiURL = dashscope.DefaultBaseURL
	}
	logger.Info("loaded config",
		zap.String("port", cfg.Server.Port),
		zap.String("api_url", apiURL),
		zap.String("model", cfg.Provider.Model),
		zap.Bool("stream", cfg.Provider.StreamEnabled()),
		zap.Bool("api_key_set", cfg.Provider.APIKey != ""),
	)
	if cfg.Provider.APIKey == "" {
		logger.Warn("no API key configured; translate requests will fail until DASHSCOPE_API_KEY is set")
	}

	// ----- Translator -----
	httpClient := dashscope.DefaultHTTPClient()
	defer httpClient.CloseIdleConnections()

	tr := translator.New(httpClient, logger, metrics.Recorder{})

	// ----- Handlers -----
	translateHandler := handlers.NewTranslateHandler(tr, cfg.Provider)

	// ----- Router + middleware -----
	r := chi.NewRouter()
	httpserver.SetupRouter(r, logger, translateHandler)

	// ----- HTTP server -----
	// No WriteTimeout: streamed translations stay open until DashScope finishes.
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("starting translator", zap.String("addr", srv.Addr))

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// ----- Graceful shutdown -----
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error("server error", zap.Error(err))
			return err
		}
	case <-stop:
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return err
	}

	logger.Info("server shutdown complete")
	return nil
}
