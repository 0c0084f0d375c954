package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	httpadapter "svw.info/meldsolver/internal/adapters/http"
	"svw.info/meldsolver/internal/config"
	"svw.info/meldsolver/internal/generator"
	"svw.info/meldsolver/internal/hint"
	"svw.info/meldsolver/internal/infrastructure/bus"
	"svw.info/meldsolver/internal/infrastructure/cache"
	"svw.info/meldsolver/internal/infrastructure/storage"
	"svw.info/meldsolver/internal/ports"
	"svw.info/meldsolver/internal/solver"
	"svw.info/meldsolver/internal/usecase"
	"svw.info/meldsolver/internal/validator"
	"svw.info/meldsolver/internal/workerpool"
)

// statusWriter captures HTTP status and bytes written.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// requestLogger logs method, path, status, bytes and duration. Websocket
// upgrades bypass the statusWriter, which cannot be hijacked.
func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/ws/") {
			next.ServeHTTP(w, r)
			logger.Info("ws closed", "path", r.URL.Path, "remote", r.RemoteAddr)
			return
		}
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		logger.Info("http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"bytes", sw.bytes,
			"dur", time.Since(start).Round(time.Millisecond),
		)
	})
}

func newLogger(out io.Writer, cfg config.LoggingConfig) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(out, opts))
	}
	return slog.New(slog.NewTextHandler(out, opts))
}

func newSolver(cfg config.SolverConfig) ports.Solver {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "backtrack", "backtracking":
		return solver.NewBacktrackingSolver()
	default:
		return solver.NewDLXSolver(cfg.MaxNodes)
	}
}

func main() {
	configPath := flag.String("config", "", "YAML config file")
	addr := flag.String("addr", "", "listen address (overrides server.addr)")
	levelStr := flag.String("log-level", "", "debug|info|warn|error (overrides logging.level)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *levelStr != "" {
		cfg.Logging.Level = *levelStr
	}
	logger := newLogger(os.Stdout, cfg.Logging)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st ports.Storage
	switch strings.ToLower(cfg.Storage.Driver) {
	case "postgres":
		pg, err := storage.Connect(ctx, cfg.Storage.DSN, cfg.Storage.MaxConns)
		if err != nil {
			logger.Error("postgres connect", "err", err)
			os.Exit(1)
		}
		defer pg.Close()
		st = pg
	default:
		_ = os.MkdirAll(cfg.Storage.Path, 0o755)
		st = storage.NewFS(cfg.Storage.Path)
	}

	// Wire providers → use cases → adapters
	s := newSolver(cfg.Solver)
	uc := usecase.NewService(s, generator.NewPoolGenerator(false), validator.New(), hint.NewForced(), st)
	uc.Timeout = cfg.Solver.Timeout
	uc.Logger = logger
	uc.Workers = workerpool.New(cfg.Solver.Workers, cfg.Solver.Queue, logger)
	defer uc.Workers.Shutdown()

	if cfg.Redis.Enabled {
		rc := cache.NewRedis(cfg.Redis)
		if err := rc.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, solving without cache", "addr", cfg.Redis.Addr, "err", err)
			_ = rc.Close()
		} else {
			uc.Cache = rc
			defer rc.Close()
		}
	}

	if cfg.NATS.Enabled {
		nc, err := bus.Connect(cfg.NATS)
		if err != nil {
			logger.Error("nats connect", "url", cfg.NATS.URL, "err", err)
			os.Exit(1)
		}
		defer nc.Close()
		wk := bus.NewWorker(uc, cfg.NATS.Subject, cfg.NATS.Queue, logger)
		wk.Pool = uc.Workers
		if err := wk.Start(ctx, nc); err != nil {
			logger.Error("nats subscribe", "err", err)
			os.Exit(1)
		}
		defer func() { _ = wk.Stop() }()
	}

	mux := http.NewServeMux()
	httpadapter.New(uc).Register(mux)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           requestLogger(logger, mux),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	logger.Info("listening",
		"addr", cfg.Server.Addr,
		"solver", cfg.Solver.Kind,
		"workers", uc.Workers.Workers(),
		"storage", cfg.Storage.Driver,
		"redis", cfg.Redis.Enabled,
		"nats", cfg.NATS.Enabled,
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
	logger.Info("shut down")
}
