package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/common"
	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/export"
	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/extract"
	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/intake"
	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/llm/provider"
	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/pipeline"
	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/server"
	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/web"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := common.LoadEnvFile(); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}
	cfg := common.LoadConfig()

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	if cfg.Server.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	completer := provider.New(cfg.LLM, logger)
	extractor := extract.NewPDFExtractor(extract.Config{MaxPages: cfg.Extract.MaxPages}, logger)
	processor := pipeline.NewProcessor(logger, pipeline.Config{
		StrictSchema: cfg.LLM.StrictSchema,
		CallTimeout:  cfg.LLM.Timeout,
	}, extractor, completer)

	srv := server.New(logger, server.Options{
		Production: cfg.Server.Production,
		UI:         uiFS(cfg.Server),
		RateLimit:  cfg.RateLimit,
	}, intake.New(cfg.Upload.MaxBytes, logger), processor, export.NewService(logger))

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		// the model call dominates; leave room for it
		WriteTimeout: cfg.LLM.Timeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	var healthServer *server.HealthServer
	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
			os.Exit(1)
		}
		healthServer = server.NewHealthServer(logger)
		go func() {
			if err := healthServer.Serve(lis); err != nil {
				logger.Error("gRPC serve error", "error", err)
				stop()
			}
		}()
	}

	logger.Info("invoice-extractor listening",
		"addr", httpServer.Addr,
		"provider", cfg.LLM.Provider,
		"model", completer.Model(),
		"production", cfg.Server.Production,
		"strict_schema", cfg.LLM.StrictSchema,
	)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	if healthServer != nil {
		healthServer.Shutdown()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg common.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// uiFS picks the UI assets: STATIC_DIR in production when set, the embedded build otherwise.
func uiFS(cfg common.ServerConfig) fs.FS {
	if cfg.Production && cfg.StaticDir != "" {
		return os.DirFS(cfg.StaticDir)
	}
	return web.FS()
}
