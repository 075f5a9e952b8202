package xp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrDuplicateSettlement is returned by Ledger.Append when an entry for the
// same session already exists. Settlement is exactly-once per session.
var ErrDuplicateSettlement = errors.New("settlement already recorded for session")

// levelCompletionNamespace derives deterministic settlement keys for
// first-time level completions so a replayed request cannot double-award.
var levelCompletionNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// LedgerEntry is one append-only row of the reward ledger. The ledger is the
// source of truth for a user's XP; the cached total is derived from it.
type LedgerEntry struct {
	ID            int64     `json:"id"`
	UserID        string    `json:"userId"`
	XPChange      int       `json:"xpChange"`
	BalanceBefore int       `json:"balanceBefore"`
	BalanceAfter  int       `json:"balanceAfter"`
	Reason        string    `json:"reason"`
	SessionID     string    `json:"sessionId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Ledger is the append-only store of XP changes.
type Ledger interface {
	// Append writes one entry, filling ID and CreatedAt. Returns
	// ErrDuplicateSettlement when the entry's session already settled.
	Append(ctx context.Context, e *LedgerEntry) error
	// SumForUser returns the sum of all xp_change values for the user.
	SumForUser(ctx context.Context, userID string) (int, error)
	// RecentForUser returns the newest entries for the user, newest first.
	RecentForUser(ctx context.Context, userID string, limit int) ([]LedgerEntry, error)
}

// Balances is the cached per-user total XP, derived from the ledger.
type Balances interface {
	Total(ctx context.Context, userID string) (int, error)
	// CompareAndSet updates the total only if it still equals old.
	CompareAndSet(ctx context.Context, userID string, old, new int) (bool, error)
	Set(ctx context.Context, userID string, total int) error
}

// Manager settles XP deltas against the ledger and keeps the cached totals
// consistent with it.
type Manager struct {
	ledger   Ledger
	balances Balances
	logger   *zap.Logger
}

// NewManager creates a settlement manager.
func NewManager(ledger Ledger, balances Balances, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{ledger: ledger, balances: balances, logger: logger}
}

// Settle records a single XP delta for the user. sessionID may be empty for
// settlements not tied to a simulation session; when set, at most one entry
// per session is ever written. The ledger append is authoritative; the
// cached total is updated afterwards and repaired from the ledger if a
// concurrent settlement raced the update.
func (m *Manager) Settle(ctx context.Context, userID, sessionID string, delta int, reason string) (*LedgerEntry, error) {
	before, err := m.balances.Total(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read balance: %w", err)
	}

	entry := &LedgerEntry{
		UserID:        userID,
		XPChange:      delta,
		BalanceBefore: before,
		BalanceAfter:  before + delta,
		Reason:        reason,
		SessionID:     sessionID,
	}

	if err := m.ledger.Append(ctx, entry); err != nil {
		if errors.Is(err, ErrDuplicateSettlement) {
			return nil, ErrDuplicateSettlement
		}
		return nil, fmt.Errorf("append ledger entry: %w", err)
	}

	ok, err := m.balances.CompareAndSet(ctx, userID, before, entry.BalanceAfter)
	if err != nil {
		m.logger.Error("failed to update cached XP total; ledger remains authoritative",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return entry, nil
	}
	if !ok {
		// Lost a race with another settlement for this user; repair the
		// cache from the ledger.
		if sum, sumErr := m.ledger.SumForUser(ctx, userID); sumErr == nil {
			if setErr := m.balances.Set(ctx, userID, sum); setErr != nil {
				m.logger.Error("failed to repair cached XP total",
					zap.String("user_id", userID),
					zap.Error(setErr),
				)
			}
		} else {
			m.logger.Error("failed to recompute XP total from ledger",
				zap.String("user_id", userID),
				zap.Error(sumErr),
			)
		}
	}

	m.logger.Info("xp settled",
		zap.String("user_id", userID),
		zap.String("session_id", sessionID),
		zap.Int("xp_change", delta),
		zap.Int("balance_after", entry.BalanceAfter),
		zap.String("reason", reason),
	)

	return entry, nil
}

// Total returns the user's cached total XP.
func (m *Manager) Total(ctx context.Context, userID string) (int, error) {
	return m.balances.Total(ctx, userID)
}

// Recent returns the user's newest ledger entries.
func (m *Manager) Recent(ctx context.Context, userID string, limit int) ([]LedgerEntry, error) {
	return m.ledger.RecentForUser(ctx, userID, limit)
}

// Recalc recomputes the user's total from the full ledger and repairs the
// cache when it disagrees. Returns the cached and recomputed totals and
// whether a repair was applied.
func (m *Manager) Recalc(ctx context.Context, userID string) (cached, recomputed int, repaired bool, err error) {
	cached, err = m.balances.Total(ctx, userID)
	if err != nil {
		return 0, 0, false, fmt.Errorf("read balance: %w", err)
	}
	recomputed, err = m.ledger.SumForUser(ctx, userID)
	if err != nil {
		return cached, 0, false, fmt.Errorf("sum ledger: %w", err)
	}
	if cached == recomputed {
		return cached, recomputed, false, nil
	}
	if err := m.balances.Set(ctx, userID, recomputed); err != nil {
		return cached, recomputed, false, fmt.Errorf("repair balance: %w", err)
	}
	m.logger.Warn("repaired cached XP total from ledger",
		zap.String("user_id", userID),
		zap.Int("cached", cached),
		zap.Int("recomputed", recomputed),
	)
	return cached, recomputed, true, nil
}

// AwardLevelCompletion calculates XP for a completed level and settles it.
// First-time completions settle under a deterministic key derived from the
// user and level so retries cannot double-award; repeat completions are
// always allowed and settle unkeyed.
func (m *Manager) AwardLevelCompletion(ctx context.Context, userID, levelID string, difficulty Difficulty, score, timeSpent *int, expectedTime int, firstTime bool) (*LedgerEntry, Result, error) {
	result := Calculate(difficulty, score, timeSpent, expectedTime, firstTime)

	sessionKey := ""
	if firstTime {
		sessionKey = uuid.NewSHA1(levelCompletionNamespace, []byte(userID+"/"+levelID)).String()
	}

	entry, err := m.Settle(ctx, userID, sessionKey, result.XPEarned, "level_completion:"+levelID)
	if err != nil {
		return nil, result, err
	}
	return entry, result, nil
}
