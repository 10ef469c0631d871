package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/dicebot/internal/history"
)

// RollRepository stores history.Records in the rolls table.
type RollRepository struct {
	db *pgxpool.Pool
}

// NewRollRepository creates a RollRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewRollRepository(db *pgxpool.Pool) *RollRepository {
	return &RollRepository{db: db}
}

// Append inserts rec. A zero CreatedAt is filled in by the database.
//
// Precondition: rec.ID must be non-nil and rec.Roller non-empty.
// Postcondition: the row is durable or a non-nil error is returned.
func (r *RollRepository) Append(ctx context.Context, rec history.Record) error {
	var createdAt any
	if !rec.CreatedAt.IsZero() {
		createdAt = rec.CreatedAt
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO rolls (id, roller, formula, canonical, results, total, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()))`,
		rec.ID, rec.Roller, rec.Formula, rec.Canonical, rec.Results, rec.Total, createdAt,
	)
	if err != nil {
		return fmt.Errorf("inserting roll: %w", err)
	}
	return nil
}

// Recent returns up to limit rolls by roller, newest first.
//
// Precondition: limit > 0.
func (r *RollRepository) Recent(ctx context.Context, roller string, limit int) ([]history.Record, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, roller, formula, canonical, results, total, created_at
		 FROM rolls WHERE roller = $1
		 ORDER BY created_at DESC, seq DESC
		 LIMIT $2`,
		roller, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying rolls: %w", err)
	}
	recs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (history.Record, error) {
		var rec history.Record
		err := row.Scan(&rec.ID, &rec.Roller, &rec.Formula, &rec.Canonical, &rec.Results, &rec.Total, &rec.CreatedAt)
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning rolls: %w", err)
	}
	return recs, nil
}

var _ history.Store = (*RollRepository)(nil)
