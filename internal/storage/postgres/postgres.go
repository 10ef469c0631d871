// Package postgres persists roll history in PostgreSQL using pgx v5.
package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dicebot/internal/config"
)

// Pool wraps a pgx connection pool with health-check and lifecycle methods.
type Pool struct {
	pool *pgxpool.Pool
	done chan struct{}
	once sync.Once
}

// NewPool creates a new PostgreSQL connection pool from the given configuration.
//
// Precondition: cfg must contain valid database connection parameters.
// Postcondition: Returns a connected Pool or a non-nil error. The pool is ready
// for queries upon successful return.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &Pool{pool: pool, done: make(chan struct{})}, nil
}

// Health checks that the database is reachable within the given timeout.
//
// Precondition: The pool must not be closed.
// Postcondition: Returns nil if the database responds within the timeout.
func (p *Pool) Health(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.pool.Ping(ctx)
}

// Watch pings the database every interval until Close is called, logging a
// warning for each failed check and an info line when the database recovers.
//
// Precondition: interval > 0.
// Postcondition: Returns nil once the pool is closed.
func (p *Pool) Watch(interval time.Duration, logger *zap.Logger) error {
	if interval <= 0 {
		panic("postgres: Watch precondition violated: interval must be > 0")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	healthy := true
	for {
		select {
		case <-p.done:
			return nil
		case <-ticker.C:
		}
		err := p.Health(context.Background(), interval/2)
		switch {
		case err != nil:
			logger.Warn("database health check failed", zap.Error(err))
			healthy = false
		case !healthy:
			stat := p.pool.Stat()
			logger.Info("database reachable again",
				zap.Int32("total_conns", stat.TotalConns()),
				zap.Int32("idle_conns", stat.IdleConns()),
			)
			healthy = true
		}
	}
}

// Close stops Watch and releases all pool resources. Close is idempotent.
//
// Postcondition: The pool is no longer usable after calling Close.
func (p *Pool) Close() {
	p.once.Do(func() {
		close(p.done)
		p.pool.Close()
	})
}

// DB returns the underlying pgxpool.Pool for use by repositories.
func (p *Pool) DB() *pgxpool.Pool {
	return p.pool
}
