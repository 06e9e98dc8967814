package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/baumanab/delta/internal/infra/buildinfo"
	"github.com/baumanab/delta/internal/infra/confloader"
	"github.com/baumanab/delta/internal/infra/shutdown"
	"github.com/baumanab/delta/internal/server/catalog"
	"github.com/baumanab/delta/internal/server/config"
	"github.com/baumanab/delta/internal/server/httpserver"
	"github.com/baumanab/delta/internal/server/localserver"
	"github.com/baumanab/delta/internal/storage"
	"github.com/baumanab/delta/internal/telemetry/logger"
	"github.com/baumanab/delta/internal/telemetry/metric"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		enableAudit = flag.Bool("audit", true, "Log one line per request")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("deltasnap-server " + buildinfo.String())
		return nil
	}

	loader := newLoader(*configFile)
	cfg, err := config.Load(loader)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slogLogger, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: os.Stdout})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	slog.SetDefault(slogLogger)

	info := buildinfo.Get()
	slogLogger.Info("starting deltasnap-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", *configFile,
		"tables", len(cfg.Tables))
	slogLogger.Debug("effective configuration", "config", config.Sanitize(cfg))

	metrics := metric.NewRegistry()
	shutdownHandler := shutdown.NewHandler(shutdownTimeout, slogLogger)

	kv, err := initKV(cfg, metrics, slogLogger)
	if err != nil {
		return fmt.Errorf("init checksum store: %w", err)
	}
	builder := &catalog.Builder{Config: cfg, Metrics: metrics, Logger: slogLogger}
	if kv != nil {
		builder.KV = kv
		shutdownHandler.OnShutdown("badger", func(context.Context) error {
			return kv.Close()
		})
	}

	tables := catalog.New(builder.Build, slogLogger)
	if err := tables.Sync(cfg.Tables); err != nil {
		// Tables that failed to open are logged; the rest are served.
		slogLogger.Error("some tables could not be opened", "error", err)
	}
	metrics.Registerer().MustRegister(metric.NewCollector(tables))

	router := httpserver.NewRouter(&httpserver.RouterConfig{
		Catalog:     tables,
		Metrics:     metrics,
		Logger:      slogLogger,
		RateLimit:   cfg.Server.HTTP.RateLimit,
		RateBurst:   cfg.Server.HTTP.RateBurst,
		EnableAudit: *enableAudit,
	})
	server := httpserver.New(cfg.Server.HTTP, router)
	shutdownHandler.OnShutdown("http", func(ctx context.Context) error {
		return server.Shutdown(ctx)
	})

	var reload func() error
	if *configFile != "" {
		var reloadMu sync.Mutex
		reload = func() error {
			reloadMu.Lock()
			defer reloadMu.Unlock()
			return applyConfig(loader, tables, slogLogger)
		}
		watcher, err := watchConfig(*configFile, reload, slogLogger)
		if err != nil {
			slogLogger.Warn("config watch disabled", "error", err)
		} else {
			shutdownHandler.OnShutdown("config-watcher", func(context.Context) error {
				return watcher.Stop()
			})
		}
	}

	if path := cfg.Server.Admin.Socket; path != "" {
		admin := localserver.New(path, localserver.NewHandler(tables, reload, shutdownHandler.Trigger), slogLogger)
		if err := admin.Listen(); err != nil {
			return fmt.Errorf("admin socket: %w", err)
		}
		shutdownHandler.OnShutdown("admin-socket", admin.Shutdown)
		go func() {
			slogLogger.Info("admin socket listening", "path", path)
			if err := admin.Serve(); err != nil {
				slogLogger.Error("admin socket error", "error", err)
			}
		}()
	}

	go func() {
		slogLogger.Info("HTTP server listening", "addr", cfg.Server.HTTP.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogLogger.Error("HTTP server error", "error", err)
			shutdownHandler.Trigger()
		}
	}()

	if err := shutdownHandler.Wait(context.Background()); err != nil {
		return err
	}
	slogLogger.Info("server stopped gracefully")
	return nil
}

func newLoader(configFile string) *confloader.Loader {
	var opts []confloader.Option
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}
	return confloader.NewLoader(opts...)
}

// initKV opens the badger engine when it backs the checksum store.
func initKV(cfg *config.ServerConfig, metrics *metric.Registry, log *slog.Logger) (*storage.BadgerEngine, error) {
	if cfg.Checksum.Store != config.ChecksumStoreBadger {
		return nil, nil
	}
	kv, err := storage.NewBadgerEngine(storage.DefaultKVConfig(cfg.Checksum.Dir), log)
	if err != nil {
		return nil, err
	}
	return kv.RegisterMetrics(metrics.Registerer()), nil
}

// applyConfig re-reads the configuration and applies the log level and
// table list. An invalid file leaves the running configuration in place.
func applyConfig(loader *confloader.Loader, tables *catalog.Catalog, log *slog.Logger) error {
	next, err := config.Reload(loader)
	if err != nil {
		log.Error("config reload rejected", "error", err)
		return err
	}
	logger.SetLevel(next.Log.Level)
	if err := tables.Sync(next.Tables); err != nil {
		log.Error("table sync after reload failed", "error", err)
		return err
	}
	log.Info("configuration reloaded", "tables", len(next.Tables), "log_level", next.Log.Level)
	return nil
}

// watchConfig calls reload whenever the file at path changes.
func watchConfig(path string, reload func() error, log *slog.Logger) (*confloader.Watcher, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(path); err != nil {
		w.Stop()
		return nil, err
	}
	w.OnChange(func(string) { _ = reload() })
	w.StartAsync()
	return w, nil
}
