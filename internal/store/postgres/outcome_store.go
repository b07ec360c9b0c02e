package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/spotarb/internal/domain"
)

// OutcomeStore implements domain.OutcomeStore using PostgreSQL.
type OutcomeStore struct {
	pool *pgxpool.Pool
}

// NewOutcomeStore creates an OutcomeStore backed by the given connection pool.
func NewOutcomeStore(pool *pgxpool.Pool) *OutcomeStore {
	return &OutcomeStore{pool: pool}
}

const outcomeSelectCols = `id, kind, asset, buy_venue, sell_venue,
	quantity, buy_price, sell_price, fees, profit, status, reason, created_at`

func scanOutcomeRow(row pgx.Row) (domain.TradeOutcome, error) {
	var o domain.TradeOutcome
	err := row.Scan(
		&o.ID, &o.Kind, &o.Asset, &o.BuyVenue, &o.SellVenue,
		&o.Quantity, &o.BuyPrice, &o.SellPrice, &o.Fees, &o.Profit,
		&o.Status, &o.Reason, &o.CreatedAt,
	)
	return o, err
}

func scanOutcomeRows(rows pgx.Rows) ([]domain.TradeOutcome, error) {
	var outcomes []domain.TradeOutcome
	for rows.Next() {
		o, err := scanOutcomeRow(rows)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// Insert stores one outcome. Re-inserting the same ID is a no-op, so the
// engine may safely republish after a partial failure.
func (s *OutcomeStore) Insert(ctx context.Context, o domain.TradeOutcome) error {
	const query = `
		INSERT INTO outcomes (
			id, kind, asset, buy_venue, sell_venue,
			quantity, buy_price, sell_price, fees, profit,
			status, reason, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13
		) ON CONFLICT (id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		o.ID, string(o.Kind), o.Asset, o.BuyVenue, o.SellVenue,
		o.Quantity, o.BuyPrice, o.SellPrice, o.Fees, o.Profit,
		string(o.Status), o.Reason, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert outcome %s: %w", o.ID, err)
	}
	return nil
}

// GetByID returns one outcome, or domain.ErrOutcomeNotFound.
func (s *OutcomeStore) GetByID(ctx context.Context, id string) (domain.TradeOutcome, error) {
	query := `SELECT ` + outcomeSelectCols + ` FROM outcomes WHERE id = $1`
	o, err := scanOutcomeRow(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TradeOutcome{}, domain.ErrOutcomeNotFound
		}
		return domain.TradeOutcome{}, fmt.Errorf("postgres: get outcome %s: %w", id, err)
	}
	return o, nil
}

// ListRecent returns the newest outcomes, newest first.
func (s *OutcomeStore) ListRecent(ctx context.Context, limit int) ([]domain.TradeOutcome, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + outcomeSelectCols + ` FROM outcomes ORDER BY created_at DESC LIMIT $1`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent outcomes: %w", err)
	}
	defer rows.Close()

	outcomes, err := scanOutcomeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan recent outcomes: %w", err)
	}
	return outcomes, nil
}

// ListByAsset returns outcomes for one asset with pagination and optional
// time filtering, newest first.
func (s *OutcomeStore) ListByAsset(ctx context.Context, asset string, opts domain.ListOpts) ([]domain.TradeOutcome, error) {
	query := `SELECT ` + outcomeSelectCols + ` FROM outcomes WHERE asset = $1`
	args := []any{asset}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list outcomes by asset: %w", err)
	}
	defer rows.Close()

	outcomes, err := scanOutcomeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan outcomes by asset: %w", err)
	}
	return outcomes, nil
}

// ListBefore returns outcomes recorded strictly before the given time,
// oldest first, capped at limit when positive. The archiver drains with it.
func (s *OutcomeStore) ListBefore(ctx context.Context, before time.Time, limit int) ([]domain.TradeOutcome, error) {
	query := `SELECT ` + outcomeSelectCols + ` FROM outcomes WHERE created_at < $1 ORDER BY created_at ASC`
	args := []any{before}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list outcomes before: %w", err)
	}
	defer rows.Close()

	outcomes, err := scanOutcomeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan outcomes before: %w", err)
	}
	return outcomes, nil
}

// DeleteBefore deletes outcomes recorded strictly before the given time and
// returns the number deleted.
func (s *OutcomeStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM outcomes WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete outcomes before: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Count returns the total number of stored outcomes.
func (s *OutcomeStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM outcomes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count outcomes: %w", err)
	}
	return n, nil
}

// Compile-time interface check.
var _ domain.OutcomeStore = (*OutcomeStore)(nil)
