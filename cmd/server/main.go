package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/b25/orderbook/internal/book"
	"github.com/b25/orderbook/internal/config"
	"github.com/b25/orderbook/internal/metrics"
	"github.com/b25/orderbook/internal/notify"
	"github.com/b25/orderbook/internal/registry"
)

const version = "1.0.0"

func main() {
	logger, err := initLogger("info", "json")
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("starting order book service", zap.String("version", version))

	cfg, err := config.Load("config.yaml")
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	logger, err = initLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		logger.Fatal("failed to reinitialize logger", zap.Error(err))
	}

	m := metrics.New()

	notifyCfg := notify.Config{
		URL:               cfg.NATS.URL,
		RequestsPerSecond: cfg.NATS.RequestsPerSecond,
		Burst:             cfg.NATS.Burst,
		FailureThreshold:  cfg.NATS.FailureThreshold,
		OpenTimeout:       cfg.NATS.OpenTimeout,
	}
	notifier, err := notify.Connect(notifyCfg, logger)
	if err != nil {
		// NATS is an ambient notification path, not required for the book
		// to function: log and continue without it rather than fail
		// startup.
		logger.Warn("notify: continuing without NATS connectivity", zap.Error(err))
		notifier = nil
	} else {
		defer notifier.Close()
	}

	reg := registry.New(logger, notifier, m)
	reg.SetBookConfig(book.Config{
		GroupSize:       cfg.Book.DefaultGroupSize,
		BucketCacheSize: cfg.Book.BucketCacheSize,
	})

	httpServer := startHTTPServer(cfg, reg, m, logger)

	waitForShutdown(logger, httpServer)
	logger.Info("service stopped")
}

func initLogger(level, format string) (*zap.Logger, error) {
	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	switch level {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	return cfg.Build()
}

// startHTTPServer wires the host-facing JSON operation surface mirroring
// the façade described for the book registry, alongside health and metrics
// endpoints.
func startHTTPServer(cfg *config.Config, reg *registry.Registry, m *metrics.Metrics, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", healthzHandler(reg))
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/books/", bookOperationHandler(reg, m, logger, cfg.Book.DefaultDepth))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("starting HTTP server", zap.String("address", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to serve HTTP", zap.Error(err))
		}
	}()

	return server
}

func healthzHandler(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "healthy",
			"books":  reg.Count(),
		})
	}
}

// bookOperationHandler implements the subset of the façade operation
// surface that maps naturally onto HTTP: a book's raw snapshot and grouped
// snapshot bytes are content types this layer can encode for an external
// caller; update_snapshot/update_book_level remain raw-bytes operations
// consumed via POST body.
//
// Routes:
//   GET    /books/{id}/snapshot
//   POST   /books/{id}/snapshot        (body: encoded SnapshotMessage)
//   POST   /books/{id}/level           (body: encoded LevelUpdate)
//   GET    /books/{id}/grouped?n=<defaultDepth>
//   POST   /books/{id}/group-size?g=0.5
func bookOperationHandler(reg *registry.Registry, m *metrics.Metrics, logger *zap.Logger, defaultDepth int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookID, op, ok := parseBookPath(r.URL.Path)
		if !ok {
			http.NotFound(w, r)
			return
		}

		switch {
		case op == "snapshot" && r.Method == http.MethodGet:
			data := reg.GetSnapshot(bookID, "")
			if data == nil {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Write(data)

		case op == "snapshot" && r.Method == http.MethodPost:
			data, err := io.ReadAll(r.Body)
			if err != nil {
				http.Error(w, "read body", http.StatusBadRequest)
				return
			}
			reg.UpdateSnapshot(bookID, data)
			w.WriteHeader(http.StatusNoContent)

		case op == "level" && r.Method == http.MethodPost:
			data, err := io.ReadAll(r.Body)
			if err != nil {
				http.Error(w, "read body", http.StatusBadRequest)
				return
			}
			start := time.Now()
			applied := reg.UpdateBookLevel(bookID, data)
			m.MutationLatency.WithLabelValues("update_book_level").Observe(time.Since(start).Seconds())
			if !applied {
				http.Error(w, "unknown book or malformed update", http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		case op == "grouped" && r.Method == http.MethodGet:
			n := defaultDepth
			if v := r.URL.Query().Get("n"); v != "" {
				if parsed, err := strconv.Atoi(v); err == nil {
					n = parsed
				}
			}
			out := reg.GetGroupedSnapshot(bookID, n)
			if out == nil {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(out)

		case op == "group-size" && r.Method == http.MethodPost:
			g, err := strconv.ParseFloat(r.URL.Query().Get("g"), 64)
			if err != nil {
				http.Error(w, "invalid g", http.StatusBadRequest)
				return
			}
			reg.SetGroupSize(bookID, g)
			w.WriteHeader(http.StatusNoContent)

		default:
			http.NotFound(w, r)
		}
	}
}

// parseBookPath extracts the book-id and operation name from
// /books/{id}/{op}.
func parseBookPath(path string) (bookID uint32, op string, ok bool) {
	const prefix = "/books/"
	if len(path) <= len(prefix) || path[:len(prefix)] != prefix {
		return 0, "", false
	}
	rest := path[len(prefix):]
	slash := -1
	for i, c := range rest {
		if c == '/' {
			slash = i
			break
		}
	}
	if slash < 0 {
		return 0, "", false
	}
	id, err := strconv.ParseUint(rest[:slash], 10, 32)
	if err != nil {
		return 0, "", false
	}
	return uint32(id), rest[slash+1:], true
}

func waitForShutdown(logger *zap.Logger, httpServer *http.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("shutting down HTTP server")
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}
}
