package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kjannette/valuator-backend/internal/models"
)

type WatchlistRepo struct {
	pool *pgxpool.Pool
}

func NewWatchlistRepo(pool *pgxpool.Pool) *WatchlistRepo {
	return &WatchlistRepo{pool: pool}
}

// Add inserts symbol, or updates its note when it is already listed.
func (r *WatchlistRepo) Add(ctx context.Context, symbol, note string) (*models.WatchlistEntry, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO watchlist (symbol, note)
		 VALUES ($1, $2)
		 ON CONFLICT (symbol) DO UPDATE SET note = EXCLUDED.note
		 RETURNING id, symbol, note, added_at`,
		symbol, note,
	)
	return scanEntry(row)
}

// Remove reports whether a row was deleted.
func (r *WatchlistRepo) Remove(ctx context.Context, symbol string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM watchlist WHERE symbol = $1`, symbol)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *WatchlistRepo) Get(ctx context.Context, symbol string) (*models.WatchlistEntry, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, symbol, note, added_at FROM watchlist WHERE symbol = $1`,
		symbol,
	)
	e, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func (r *WatchlistRepo) List(ctx context.Context) ([]models.WatchlistEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, symbol, note, added_at FROM watchlist ORDER BY added_at ASC, id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

func (r *WatchlistRepo) Symbols(ctx context.Context) ([]string, error) {
	entries, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Symbol
	}
	return out, nil
}

// --- scan helpers ---

type scannable interface {
	Scan(dest ...any) error
}

func scanEntry(row scannable) (*models.WatchlistEntry, error) {
	var e models.WatchlistEntry
	if err := row.Scan(&e.ID, &e.Symbol, &e.Note, &e.AddedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

type rowsIter interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func collectEntries(rows rowsIter) ([]models.WatchlistEntry, error) {
	out := []models.WatchlistEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}
