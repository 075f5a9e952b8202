package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrSessionFinalized is returned when ending a session that was already
// finalized or does not exist. Finalization happens at most once.
var ErrSessionFinalized = errors.New("game session already finalized")

// GameSessionRepository persists GameSession rows.
type GameSessionRepository struct {
	db *DB
}

// NewGameSessionRepository creates a repository over the shared pool.
func NewGameSessionRepository(db *DB) *GameSessionRepository {
	return &GameSessionRepository{db: db}
}

// Create inserts a new session row and returns its id.
func (r *GameSessionRepository) Create(ctx context.Context, userID, sessionName string) (string, error) {
	id := uuid.NewString()
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO game_sessions (id, user_id, session_name, start_time)
		VALUES ($1, $2, $3, now())
	`, id, userID, sessionName)
	if err != nil {
		return "", fmt.Errorf("insert game session: %w", err)
	}
	return id, nil
}

// End finalizes a session with its score. The end_time guard makes
// finalization idempotent-safe: a second call affects no rows and fails.
func (r *GameSessionRepository) End(ctx context.Context, sessionID string, score int) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE game_sessions
		SET end_time = now(), score = $2
		WHERE id = $1 AND end_time IS NULL
	`, sessionID, score)
	if err != nil {
		return fmt.Errorf("finalize game session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionFinalized
	}
	return nil
}
