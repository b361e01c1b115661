package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docview/internal/api"
	"github.com/dgallion1/docview/internal/build"
	"github.com/dgallion1/docview/internal/config"
	"github.com/dgallion1/docview/internal/docstore"
	"github.com/dgallion1/docview/internal/lazy"
	"github.com/dgallion1/docview/internal/metrics"
)

func main() {
	cfg := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	m := metrics.NewCollector("docview")

	// Initialize stores.
	client := docstore.NewClient(cfg.DocsBaseURL, cfg.HTTPTimeout)
	store := docstore.NewStore(client, m, log)
	cards := docstore.NewCardStore(client, cfg.AuthorName, m, log)

	// Lazy leaves share one loader per resource kind for the whole process.
	codeLoader := lazy.NewLoader("code", lazy.LoadCodeAssets, log)
	codeLoader.OnSettle(m.LeafLoad)
	mathLoader := lazy.NewLoader("math", lazy.MathAssetLoad(client.GetBytes, cfg.KatexCSSURL), log)
	mathLoader.OnSettle(m.LeafLoad)

	deps := api.Deps{
		Store:   store,
		Cards:   cards,
		Code:    lazy.NewCodeRenderer(codeLoader, log),
		Math:    lazy.NewMathRenderer(mathLoader, log),
		Metrics: m,
	}
	if cfg.BuildEnabled() {
		deps.Builds = build.NewRunner(build.Options{
			SrcDir:  cfg.SourceDir,
			OutDir:  cfg.StaticDir,
			Workers: cfg.BuildWorkers,
		}, m, log)
	}

	// Initialize HTTP server.
	srv, err := api.NewServer(deps, log, cfg)
	if err != nil {
		log.Error("server setup failed", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		client.Close()
	}()

	log.Info("starting docview", "port", cfg.Port, "docs", cfg.DocsBaseURL, "static", cfg.StaticDir)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
