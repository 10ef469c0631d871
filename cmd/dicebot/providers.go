package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/cory-johannsen/dicebot/internal/config"
	"github.com/cory-johannsen/dicebot/internal/dice"
	"github.com/cory-johannsen/dicebot/internal/frontend/telnet"
	"github.com/cory-johannsen/dicebot/internal/history"
	"github.com/cory-johannsen/dicebot/internal/macro"
	"github.com/cory-johannsen/dicebot/internal/observability"
	"github.com/cory-johannsen/dicebot/internal/rollserver"
	"github.com/cory-johannsen/dicebot/internal/scripting"
	"github.com/cory-johannsen/dicebot/internal/server"
	"github.com/cory-johannsen/dicebot/internal/storage/postgres"
)

// app is the fully wired server.
type app struct {
	logger    *zap.Logger
	lifecycle *server.Lifecycle
}

func provideLogger(cfg config.LoggingConfig) (*zap.Logger, func(), error) {
	logger, err := observability.NewLogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing logger: %w", err)
	}
	return logger, func() { _ = logger.Sync() }, nil
}

func provideSource(cfg config.DiceConfig) dice.Source {
	if cfg.Source == config.SourceSeeded {
		return dice.NewSeededSource(cfg.Seed)
	}
	return dice.NewCryptoSource()
}

func provideMacros(cfg config.ContentConfig, logger *zap.Logger) (*macro.Library, error) {
	lib, err := macro.LoadDir(cfg.MacrosDir)
	if err != nil {
		return nil, fmt.Errorf("loading macros: %w", err)
	}
	logger.Info("macros loaded", zap.Int("count", lib.Len()), zap.String("dir", cfg.MacrosDir))
	return lib, nil
}

// healthInterval is how often an enabled database is pinged.
const healthInterval = 30 * time.Second

// provideDatabase connects to PostgreSQL when enabled; it returns a nil Pool otherwise.
func provideDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*postgres.Pool, func(), error) {
	if !cfg.Enabled {
		return nil, func() {}, nil
	}
	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	logger.Info("database connected",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Name),
		zap.Duration("elapsed", time.Since(dbStart)),
	)
	return pool, pool.Close, nil
}

// provideHistoryStore returns the PostgreSQL repository when a pool is
// available, otherwise an in-memory store.
func provideHistoryStore(pool *postgres.Pool, logger *zap.Logger) history.Store {
	if pool == nil {
		logger.Info("roll history kept in memory")
		return history.NewMemoryStore(history.DefaultCapacity)
	}
	return postgres.NewRollRepository(pool.DB())
}

func provideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func provideScripts(cfg config.ContentConfig, roller *dice.Roller, metrics *observability.Metrics, logger *zap.Logger) (*scripting.Manager, func(), error) {
	mgr := scripting.NewManager(roller, logger)
	mgr.OnRoll = func(r dice.RollResult, elapsed time.Duration) {
		metrics.RecordRoll(observability.OriginScript, dice.DiceRolled(r.Tree), elapsed)
	}
	if err := mgr.Load(cfg.ScriptsDir, cfg.ScriptInstructionLimit); err != nil {
		mgr.Close()
		return nil, nil, fmt.Errorf("loading scripts: %w", err)
	}
	return mgr, mgr.Close, nil
}

func provideGRPCServer(svc *rollserver.Service, logger *zap.Logger) *grpc.Server {
	s := grpc.NewServer()
	rollserver.RegisterRollService(s, svc, logger)
	return s
}

// metricsServer is the optional Prometheus scrape endpoint.
type metricsServer struct {
	srv *http.Server
}

func provideMetricsServer(cfg config.MetricsConfig, metrics *observability.Metrics) metricsServer {
	if !cfg.Enabled {
		return metricsServer{}
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return metricsServer{srv: &http.Server{
		Addr:              cfg.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

func provideLifecycle(
	rpc config.RPCConfig,
	logger *zap.Logger,
	acceptor *telnet.Acceptor,
	grpcServer *grpc.Server,
	metrics metricsServer,
	pool *postgres.Pool,
) *server.Lifecycle {
	lifecycle := server.NewLifecycle(logger)

	if pool != nil {
		lifecycle.Add("postgres", &server.FuncService{
			StartFn: func() error { return pool.Watch(healthInterval, logger) },
			StopFn:  pool.Close,
		})
	}

	if metrics.srv != nil {
		lifecycle.Add("metrics", &server.FuncService{
			StartFn: func() error {
				if err := metrics.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			},
			StopFn: func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = metrics.srv.Shutdown(ctx)
			},
		})
	}

	lifecycle.Add("grpc", &server.FuncService{
		StartFn: func() error {
			lis, err := net.Listen("tcp", rpc.Addr())
			if err != nil {
				return fmt.Errorf("listening on %s: %w", rpc.Addr(), err)
			}
			logger.Info("grpc server listening", zap.String("addr", lis.Addr().String()))
			if err := grpcServer.Serve(lis); !errors.Is(err, grpc.ErrServerStopped) {
				return err
			}
			return nil
		},
		StopFn: grpcServer.GracefulStop,
	})

	lifecycle.Add("telnet", &server.FuncService{
		StartFn: acceptor.ListenAndServe,
		StopFn:  acceptor.Stop,
	})

	return lifecycle
}

func newApp(logger *zap.Logger, lifecycle *server.Lifecycle) *app {
	return &app{logger: logger, lifecycle: lifecycle}
}
