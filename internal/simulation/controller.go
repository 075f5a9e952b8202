// Package simulation implements the Blue Team vs Red Team adversarial
// simulation: the asset/control model, action resolution, scoring, and the
// per-user session state machine.
package simulation

import (
	"context"
	"sync"
	"time"

	"github.com/blueteamacademy/sim-server-go/internal/observability"
	"github.com/blueteamacademy/sim-server-go/internal/xp"
	"go.uber.org/zap"
)

// sessionName labels persisted GameSession rows created by this mode.
const sessionName = "Blue Team vs Red Team"

// GameSessions persists the lifecycle of a simulation session.
type GameSessions interface {
	Create(ctx context.Context, userID, sessionName string) (string, error)
	// End finalizes a session exactly once; later calls are rejected.
	End(ctx context.Context, sessionID string, score int) error
}

// Settler writes XP deltas to the reward ledger, exactly once per session.
type Settler interface {
	Settle(ctx context.Context, userID, sessionID string, delta int, reason string) (*xp.LedgerEntry, error)
}

// Controller owns the per-user simulation lifecycle. Every operation for a
// user runs under that user's lock, so concurrent requests for the same
// user serialize instead of racing on the state blob.
type Controller struct {
	store    StateStore
	sessions GameSessions
	settler  Settler
	metrics  *observability.Collector
	logger   *zap.Logger

	budgetSeconds int

	// userLocks holds one *sync.Mutex per user id. Entries are tiny and
	// never evicted; evicting while a goroutine holds the pointer would
	// reintroduce the race the lock exists to prevent.
	userLocks sync.Map
}

// NewController creates a simulation controller. metrics may be nil.
func NewController(store StateStore, sessions GameSessions, settler Settler, metrics *observability.Collector, budgetSeconds int, logger *zap.Logger) *Controller {
	if budgetSeconds <= 0 {
		budgetSeconds = SessionBudgetSeconds
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		store:         store,
		sessions:      sessions,
		settler:       settler,
		metrics:       metrics,
		logger:        logger,
		budgetSeconds: budgetSeconds,
	}
}

func (c *Controller) lockUser(userID string) *sync.Mutex {
	mu, _ := c.userLocks.LoadOrStore(userID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Start creates a new session for the user, overwriting any prior ephemeral
// state. A failure to persist the GameSession row is logged and the session
// proceeds without one; settlement is then skipped at termination.
func (c *Controller) Start(ctx context.Context, userID string) (Snapshot, error) {
	mu := c.lockUser(userID)
	mu.Lock()
	defer mu.Unlock()

	prior, hadPrior := c.store.Get(userID)

	st := NewState(c.budgetSeconds)
	st.IsRunning = true
	st.StartTime = time.Now()

	sessionID, err := c.sessions.Create(ctx, userID, sessionName)
	if err != nil {
		c.logger.Error("failed to create game session row",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	} else {
		st.SessionID = sessionID
	}

	c.store.Put(userID, st)
	if !hadPrior || !prior.IsRunning {
		c.metrics.SimulationStarted()
	}

	c.logger.Info("simulation started",
		zap.String("user_id", userID),
		zap.String("session_id", st.SessionID),
		zap.Int("time_budget_seconds", c.budgetSeconds),
	)

	return st.Snapshot(), nil
}

// PlayerOutcome reports a resolved defender action plus the session totals.
type PlayerOutcome struct {
	Result        PlayerActionResult
	AccumulatedXP int
	SessionXP     int
}

// PlayerAction resolves a defender action for the user. timeRemaining, when
// non-nil, is the client-reported clock and is clamped before use.
func (c *Controller) PlayerAction(ctx context.Context, userID string, act Action, timeRemaining *int) (PlayerOutcome, error) {
	mu := c.lockUser(userID)
	mu.Lock()
	defer mu.Unlock()

	st, ok := c.store.Get(userID)
	if !ok || !st.IsRunning {
		return PlayerOutcome{}, ErrNotRunning
	}
	if timeRemaining != nil {
		st.SetTimeRemaining(*timeRemaining)
	}
	act.Timestamp = time.Now()

	result, err := ResolvePlayerAction(st, act)
	if err != nil {
		return PlayerOutcome{}, err
	}

	c.store.Put(userID, st)
	c.metrics.RecordAction("player", act.Type)

	return PlayerOutcome{
		Result:        result,
		AccumulatedXP: st.AccumulatedXP,
		SessionXP:     st.SessionXP,
	}, nil
}

// AIOutcome reports a resolved adversary action plus the session total.
type AIOutcome struct {
	Result        AIActionResult
	AccumulatedXP int
}

// AIAction resolves an adversary action for the user.
func (c *Controller) AIAction(ctx context.Context, userID string, act Action, timeRemaining *int) (AIOutcome, error) {
	mu := c.lockUser(userID)
	mu.Lock()
	defer mu.Unlock()

	st, ok := c.store.Get(userID)
	if !ok || !st.IsRunning {
		return AIOutcome{}, ErrNotRunning
	}
	if timeRemaining != nil {
		st.SetTimeRemaining(*timeRemaining)
	}
	act.Timestamp = time.Now()

	result, err := ResolveAIAction(st, act)
	if err != nil {
		return AIOutcome{}, err
	}

	c.store.Put(userID, st)
	c.metrics.RecordAction("ai", act.Type)

	return AIOutcome{
		Result:        result,
		AccumulatedXP: st.AccumulatedXP,
	}, nil
}

// TerminationResult reports the outcome of a stop or exit transition.
type TerminationResult struct {
	FinalScore       int
	CompletionBonus  int
	XPAwarded        int
	SessionCompleted bool
	State            Snapshot
}

// Stop ends a running session normally: final score and full completion
// bonus are computed, the GameSession row is finalized, and the earned XP is
// settled to the ledger. State is retained for a subsequent results read.
func (c *Controller) Stop(ctx context.Context, userID string, timeRemaining *int) (*TerminationResult, error) {
	return c.terminate(ctx, userID, timeRemaining, false)
}

// Exit ends a running session early. Identical to Stop except the completion
// bonus is halved.
func (c *Controller) Exit(ctx context.Context, userID string, timeRemaining *int) (*TerminationResult, error) {
	return c.terminate(ctx, userID, timeRemaining, true)
}

func (c *Controller) terminate(ctx context.Context, userID string, timeRemaining *int, early bool) (*TerminationResult, error) {
	mu := c.lockUser(userID)
	mu.Lock()
	defer mu.Unlock()

	st, ok := c.store.Get(userID)
	if !ok || !st.IsRunning {
		return nil, ErrNotRunning
	}
	if timeRemaining != nil {
		st.SetTimeRemaining(*timeRemaining)
	}

	now := time.Now()
	st.IsRunning = false
	st.EndTime = &now

	score := FinalScore(st)
	bonus := CompletionBonus(st)
	if early {
		bonus /= 2
	}

	sessionCompleted := false
	if st.SessionID != "" {
		if err := c.sessions.End(ctx, st.SessionID, score); err != nil {
			c.logger.Error("failed to finalize game session row",
				zap.String("user_id", userID),
				zap.String("session_id", st.SessionID),
				zap.Error(err),
			)
		} else {
			sessionCompleted = true
		}
	}

	// The user-visible transition proceeds even when settlement fails; the
	// failure is reported as xp_awarded=0 and surfaced via log and metric.
	xpAwarded := 0
	delta := st.AccumulatedXP + bonus
	reason := "simulation_complete"
	if early {
		reason = "simulation_exit"
	}
	switch {
	case st.SessionID == "":
		c.metrics.RecordSettlement("skipped")
		c.logger.Warn("skipping XP settlement: session row was never created",
			zap.String("user_id", userID),
		)
	default:
		if _, err := c.settler.Settle(ctx, userID, st.SessionID, delta, reason); err != nil {
			c.metrics.RecordSettlement("failed")
			c.logger.Error("xp settlement failed; transition proceeds without award",
				zap.String("user_id", userID),
				zap.String("session_id", st.SessionID),
				zap.Int("xp_delta", delta),
				zap.Error(err),
			)
		} else {
			c.metrics.RecordSettlement("settled")
			xpAwarded = delta
		}
	}

	c.store.Put(userID, st)
	c.metrics.SimulationEnded()

	c.logger.Info("simulation terminated",
		zap.String("user_id", userID),
		zap.String("session_id", st.SessionID),
		zap.Bool("early_exit", early),
		zap.Int("final_score", score),
		zap.Int("completion_bonus", bonus),
		zap.Int("xp_awarded", xpAwarded),
	)

	return &TerminationResult{
		FinalScore:       score,
		CompletionBonus:  bonus,
		XPAwarded:        xpAwarded,
		SessionCompleted: sessionCompleted,
		State:            st.Snapshot(),
	}, nil
}

// Reset abandons the user's session: a running GameSession row is finalized
// with score 0, no XP is settled, and the ephemeral state is discarded.
// Resetting with no session is a no-op.
func (c *Controller) Reset(ctx context.Context, userID string) error {
	mu := c.lockUser(userID)
	mu.Lock()
	defer mu.Unlock()

	st, ok := c.store.Get(userID)
	if !ok {
		return nil
	}

	if st.IsRunning {
		if st.SessionID != "" {
			if err := c.sessions.End(ctx, st.SessionID, 0); err != nil {
				c.logger.Error("failed to finalize game session row on reset",
					zap.String("user_id", userID),
					zap.String("session_id", st.SessionID),
					zap.Error(err),
				)
			}
		}
		c.metrics.SimulationEnded()
	}

	c.store.Delete(userID)

	c.logger.Info("simulation reset",
		zap.String("user_id", userID),
		zap.String("session_id", st.SessionID),
	)

	return nil
}

// GetState returns the user's current state, or defaults when none exists.
func (c *Controller) GetState(userID string) Snapshot {
	mu := c.lockUser(userID)
	mu.Lock()
	defer mu.Unlock()

	st, ok := c.store.Get(userID)
	if !ok {
		return DefaultSnapshot(c.budgetSeconds)
	}
	return st.Snapshot()
}

// Statistics summarizes a session for the results view.
type Statistics struct {
	DurationSeconds   int     `json:"durationSeconds"`
	PlayerActionCount int     `json:"playerActionCount"`
	AIActionCount     int     `json:"aiActionCount"`
	AttacksMitigated  int     `json:"attacksMitigated"`
	AttacksSuccessful int     `json:"attacksSuccessful"`
	DetectionRate     float64 `json:"detectionRate"`
	FinalScore        int     `json:"finalScore"`
	AccumulatedXP     int     `json:"accumulatedXP"`
	XPPerAction       float64 `json:"xpPerAction"`
}

// Results returns the state snapshot and derived statistics. Defaults are
// returned when no session exists; the read never fails.
func (c *Controller) Results(userID string) (Snapshot, Statistics) {
	mu := c.lockUser(userID)
	mu.Lock()
	defer mu.Unlock()

	st, ok := c.store.Get(userID)
	if !ok {
		return DefaultSnapshot(c.budgetSeconds), Statistics{}
	}

	duration := 0
	if !st.StartTime.IsZero() {
		end := time.Now()
		if st.EndTime != nil {
			end = *st.EndTime
		}
		duration = int(end.Sub(st.StartTime).Seconds())
	}

	playerCount := len(st.PlayerActions)
	xpPerAction := 0.0
	if playerCount > 0 {
		xpPerAction = float64(st.AccumulatedXP) / float64(playerCount)
	}

	return st.Snapshot(), Statistics{
		DurationSeconds:   duration,
		PlayerActionCount: playerCount,
		AIActionCount:     len(st.AIActions),
		AttacksMitigated:  st.AttacksMitigated,
		AttacksSuccessful: st.AttacksSuccessful,
		DetectionRate:     DetectionRate(st.AIActions),
		FinalScore:        FinalScore(st),
		AccumulatedXP:     st.AccumulatedXP,
		XPPerAction:       xpPerAction,
	}
}

// Status is the defender's XP dashboard view.
type Status struct {
	CurrentXP         int `json:"currentXP"`
	SessionXP         int `json:"sessionXP"`
	AccumulatedXP     int `json:"accumulatedXP"`
	AttacksMitigated  int `json:"attacksMitigated"`
	AttacksSuccessful int `json:"attacksSuccessful"`
	BlockedIPs        int `json:"blockedIPs"`
}

// XPStatus returns the in-session XP counters. currentXP (the ledger total)
// is filled in by the caller, which owns the economy.
func (c *Controller) XPStatus(userID string) Status {
	mu := c.lockUser(userID)
	mu.Lock()
	defer mu.Unlock()

	st, ok := c.store.Get(userID)
	if !ok {
		return Status{}
	}
	return Status{
		SessionXP:         st.SessionXP,
		AccumulatedXP:     st.AccumulatedXP,
		AttacksMitigated:  st.AttacksMitigated,
		AttacksSuccessful: st.AttacksSuccessful,
		BlockedIPs:        len(st.BlockedIPs),
	}
}
