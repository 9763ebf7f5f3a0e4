package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/splitfriends/internal/auth"
	"github.com/mmynk/splitfriends/internal/config"
	"github.com/mmynk/splitfriends/internal/feed"
	"github.com/mmynk/splitfriends/internal/ledger"
	"github.com/mmynk/splitfriends/internal/middleware"
	"github.com/mmynk/splitfriends/internal/service"
	"github.com/mmynk/splitfriends/internal/storage"
	"github.com/mmynk/splitfriends/internal/storage/postgres"
	"github.com/mmynk/splitfriends/internal/storage/sqlite"
	"github.com/mmynk/splitfriends/pkg/api/apiconnect"
	"github.com/mmynk/splitfriends/pkg/logging"
	"github.com/mmynk/splitfriends/pkg/obs"
)

const serviceName = "splitfriends"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Setup("info")
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel)

	if err := run(cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := obs.InitTracer(ctx, serviceName, cfg.OTLPEndpoint, cfg.Environment)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(sctx); err != nil {
			slog.Warn("Tracer shutdown failed", "error", err)
		}
	}()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	// Expense events fan out in process; with RabbitMQ configured they
	// round-trip through the exchange so every instance sees them.
	broker := feed.NewBroker()
	var notifier ledger.Notifier = broker
	if cfg.RabbitURL != "" {
		relay, err := feed.NewRabbitRelay(cfg.RabbitURL, cfg.RabbitExchange, broker)
		if err != nil {
			return err
		}
		defer relay.Close()
		go func() {
			if err := relay.Run(ctx); err != nil {
				slog.Error("Expense relay stopped, expense events now reach this instance only", "error", err)
			}
		}()
		notifier = relay
		slog.Info("Expense events relayed through RabbitMQ", "exchange", cfg.RabbitExchange)
	}

	l := ledger.New(store, notifier, broker)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	authenticator := auth.NewPasswordAuthenticator(store)
	logger := slog.Default()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middleware.NewMetrics(registry)

	// outermost first
	interceptors := connect.WithInterceptors(
		middleware.TracingInterceptor(),
		metrics.Interceptor(),
		middleware.NewAuthInterceptor(jwtManager, apiconnect.PublicProcedures...),
		middleware.LoggingInterceptor(),
	)

	mux := http.NewServeMux()
	mux.Handle(apiconnect.NewAccountServiceHandler(service.NewAccountService(authenticator, jwtManager, store, logger), interceptors))
	mux.Handle(apiconnect.NewFriendServiceHandler(service.NewFriendService(l, logger), interceptors))
	mux.Handle(apiconnect.NewExpenseServiceHandler(service.NewExpenseService(l, store, logger), interceptors))
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		// h2c for HTTP/2 without TLS, so Connect streams work over plain HTTP
		Handler:           h2c.NewHandler(corsMiddleware(mux), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting", "address", cfg.HTTPAddr, "storage", cfg.StorageDriver, "env", cfg.Environment)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}

func openStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		store, err := postgres.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		slog.Info("Storage initialized", "driver", cfg.StorageDriver)
		return store, nil
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, err
		}
		store, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		slog.Info("Storage initialized", "driver", cfg.StorageDriver, "database", cfg.DBPath)
		return store, nil
	}
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
