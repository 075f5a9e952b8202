package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/blueteamacademy/sim-server-go/internal/xp"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the Postgres error code for unique constraint breaches.
const uniqueViolation = "23505"

// LedgerRepository persists XP ledger entries. It implements xp.Ledger.
type LedgerRepository struct {
	db *DB
}

// NewLedgerRepository creates a repository over the shared pool.
func NewLedgerRepository(db *DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Append inserts one ledger entry. The unique constraint on session_id maps
// to xp.ErrDuplicateSettlement so settlement stays exactly-once per session.
func (r *LedgerRepository) Append(ctx context.Context, e *xp.LedgerEntry) error {
	var sessionID *string
	if e.SessionID != "" {
		sessionID = &e.SessionID
	}

	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO xp_ledger (user_id, xp_change, balance_before, balance_after, reason, session_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING id, created_at
	`, e.UserID, e.XPChange, e.BalanceBefore, e.BalanceAfter, e.Reason, sessionID).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return xp.ErrDuplicateSettlement
		}
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// SumForUser recomputes the user's total XP from the full ledger.
func (r *LedgerRepository) SumForUser(ctx context.Context, userID string) (int, error) {
	var sum int
	err := r.db.Pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(xp_change), 0)
		FROM xp_ledger
		WHERE user_id = $1
	`, userID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum ledger: %w", err)
	}
	return sum, nil
}

// RecentForUser returns the newest entries for a user, newest first.
func (r *LedgerRepository) RecentForUser(ctx context.Context, userID string, limit int) ([]xp.LedgerEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, user_id, xp_change, balance_before, balance_after, reason, COALESCE(session_id::text, ''), created_at
		FROM xp_ledger
		WHERE user_id = $1
		ORDER BY id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var entries []xp.LedgerEntry
	for rows.Next() {
		var e xp.LedgerEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.XPChange, &e.BalanceBefore, &e.BalanceAfter, &e.Reason, &e.SessionID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// UserXPRepository maintains the cached per-user XP totals. It implements
// xp.Balances.
type UserXPRepository struct {
	db *DB
}

// NewUserXPRepository creates a repository over the shared pool.
func NewUserXPRepository(db *DB) *UserXPRepository {
	return &UserXPRepository{db: db}
}

// Total returns the cached total for a user; users without a row have 0.
func (r *UserXPRepository) Total(ctx context.Context, userID string) (int, error) {
	var total int
	err := r.db.Pool.QueryRow(ctx, `
		SELECT total_xp FROM user_xp WHERE user_id = $1
	`, userID).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read user xp: %w", err)
	}
	return total, nil
}

// CompareAndSet updates the cached total only when it still equals old.
// Users without a row count as total 0.
func (r *UserXPRepository) CompareAndSet(ctx context.Context, userID string, old, new int) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE user_xp SET total_xp = $3 WHERE user_id = $1 AND total_xp = $2
	`, userID, old, new)
	if err != nil {
		return false, fmt.Errorf("update user xp: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	if old != 0 {
		return false, nil
	}
	tag, err = r.db.Pool.Exec(ctx, `
		INSERT INTO user_xp (user_id, total_xp) VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, new)
	if err != nil {
		return false, fmt.Errorf("insert user xp: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Set overwrites the cached total unconditionally.
func (r *UserXPRepository) Set(ctx context.Context, userID string, total int) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO user_xp (user_id, total_xp) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET total_xp = EXCLUDED.total_xp
	`, userID, total)
	if err != nil {
		return fmt.Errorf("set user xp: %w", err)
	}
	return nil
}
