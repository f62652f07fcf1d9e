// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/olegiv/ocms-taxonomy/internal/cache"
	"github.com/olegiv/ocms-taxonomy/internal/config"
	"github.com/olegiv/ocms-taxonomy/internal/handler/api"
	"github.com/olegiv/ocms-taxonomy/internal/logging"
	"github.com/olegiv/ocms-taxonomy/internal/middleware"
	"github.com/olegiv/ocms-taxonomy/internal/scheduler"
	"github.com/olegiv/ocms-taxonomy/internal/store"
	"github.com/olegiv/ocms-taxonomy/internal/taxonomy"
	"github.com/olegiv/ocms-taxonomy/internal/transfer"
	"github.com/olegiv/ocms-taxonomy/internal/version"
)

// cliOptions holds the one-shot commands selected by flags.
type cliOptions struct {
	exportPath string
	importPath string
	dryRun     bool
	audit      bool
}

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	var opts cliOptions
	flag.StringVar(&opts.exportPath, "export", "", "Export the category tree to `file` (.json or .zip) and exit")
	flag.StringVar(&opts.importPath, "import", "", "Import categories and links from `file` (.json or .zip) and exit")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "Validate an -import without writing")
	flag.BoolVar(&opts.audit, "audit", false, "Run the tree integrity audit once and exit")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "ocms-taxonomy - category tree service\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_DB_DRIVER           sqlite|sqlite3|mysql (default: sqlite)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_DB_DSN              Database DSN (default: ./data/taxonomy.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_SERVER_PORT         Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_REDIS_URL           Redis URL for shared tree caching (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_INTEGRITY_SCHEDULE  Cron spec of the integrity audit, or \"off\" (default: @hourly)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_EVENT_RETENTION_DAYS Days of event log to keep, 0 keeps all (default: 30)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_DO_SEED             Create the root category when missing (default: false)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		_, _ = fmt.Printf("ocms-taxonomy %s\n", version.Get())
		os.Exit(0)
	}

	if err := run(opts); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(opts cliOptions) error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(textHandler))

	dialect, err := store.DialectForDriver(cfg.DBDriver)
	if err != nil {
		return err
	}

	if dialect == store.DialectSQLite {
		if err := ensureDataDir(cfg.DBDSN); err != nil {
			return err
		}
	}

	slog.Info("initializing database", "driver", cfg.DBDriver)
	db, err := store.NewDB(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db, dialect); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	queries := store.New(db, dialect)

	// Mirror warnings and errors into the event log from here on.
	logger := slog.New(logging.NewEventLogHandler(textHandler, queries))
	slog.SetDefault(logger)

	ctx := context.Background()
	if cfg.DoSeed {
		root := store.NewNode{Label: taxonomy.SanitizeLabel(cfg.RootLabel), LabelKey: taxonomy.LabelKey(cfg.RootLabel)}
		if err := store.Seed(ctx, db, dialect, root); err != nil {
			return fmt.Errorf("seeding database: %w", err)
		}
	}

	cacheCfg := cache.DefaultConfig()
	cacheCfg.RedisURL = cfg.RedisURL
	cacheCfg.Prefix = cfg.CachePrefix
	cacheCfg.DefaultTTL = cfg.CacheTTLDuration()
	cacheCfg.MaxSize = cfg.CacheMaxSize
	treeStore, info, err := cache.NewCache(cacheCfg)
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}
	defer func() { _ = treeStore.Close() }()
	slog.Info("tree cache ready", "backend", info.Backend, "fallback", info.Fallback)

	repo := taxonomy.NewRepository(queries, logger,
		taxonomy.WithTreeCache(cache.NewTreeCache(treeStore, cfg.CacheTTLDuration())),
		taxonomy.WithPrefixLimit(cfg.AutocompleteLimit),
	)
	builder := taxonomy.NewBuilder(db, dialect, repo, logger)
	links := taxonomy.NewLinkManager(queries, repo, taxonomy.NewStoreDrafts(queries), logger)
	sched := scheduler.New(queries, logger)

	switch {
	case opts.exportPath != "":
		return runExport(ctx, transfer.NewExporter(queries, repo, logger), opts.exportPath)
	case opts.importPath != "":
		return runImport(ctx, transfer.NewImporter(db, queries, repo, logger), opts.importPath, opts.dryRun)
	case opts.audit:
		report, err := sched.RunIntegrityAudit(ctx)
		if err != nil {
			return err
		}
		return report.Err()
	}

	if cfg.EventRetentionDays > 0 {
		if err := sched.ScheduleEventCleanup(cfg.EventRetention()); err != nil {
			return fmt.Errorf("scheduling event cleanup: %w", err)
		}
	}
	if err := sched.Start(cfg.IntegritySchedule); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	apiHandler := api.NewHandler(db, queries, api.Services{
		Repo:    repo,
		Builder: builder,
		Links:   links,
		Cache:   treeStore,
	}, logger,
		api.WithAutocompleteLimit(cfg.AutocompleteLimit),
		api.WithVersion(version.Get().Version),
	)

	rateLimiter := middleware.NewRateLimiter(cfg.APIRateLimit, cfg.APIRateBurst)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.Actor)
	r.Use(rateLimiter.Middleware())
	apiHandler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", version.Get().Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// ensureDataDir creates the directory of a file-backed SQLite DSN.
func ensureDataDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || strings.HasPrefix(path, ":memory:") {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}

func runExport(ctx context.Context, exporter *transfer.Exporter, path string) error {
	opts := transfer.DefaultExportOptions()
	var err error
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		err = exporter.ExportArchiveToFile(ctx, opts, path)
	} else {
		err = exporter.ExportToFile(ctx, opts, path)
	}
	if err != nil {
		return fmt.Errorf("exporting to %s: %w", path, err)
	}
	slog.Info("export written", "path", path)
	return nil
}

func runImport(ctx context.Context, importer *transfer.Importer, path string, dryRun bool) error {
	opts := transfer.ImportOptions{DryRun: dryRun}

	var (
		result *transfer.ImportResult
		err    error
	)
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		var raw []byte
		raw, err = os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		result, err = importer.ImportFromZipBytes(ctx, raw, opts)
	} else {
		var f *os.File
		f, err = os.Open(path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}
		defer func() { _ = f.Close() }()
		result, err = importer.ImportFromReader(ctx, f, opts)
	}

	if result != nil {
		for _, e := range result.Errors {
			slog.Error("import rejected entity", "entity", e.Entity, "id", e.ID, "message", e.Message)
		}
		slog.Info("import result", "dry_run", result.DryRun, "created", result.Created, "skipped", result.Skipped)
	}
	return err
}
