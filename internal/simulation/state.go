package simulation

import (
	"sort"
	"time"
)

// Phase describes the advisory stage of the adversary's campaign. It is
// reported to clients for presentation but does not gate any action.
type Phase string

const (
	PhaseReconnaissance  Phase = "reconnaissance"
	PhaseIntrusion       Phase = "intrusion"
	PhaseLateralMovement Phase = "lateral-movement"
	PhaseExfiltration    Phase = "exfiltration"
)

// Severity classifies adversary actions. Only critical and high severity
// actions damage assets.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// SessionBudgetSeconds is the default defensive time budget for one session.
const SessionBudgetSeconds = 900

// Action is a single recorded move by either the defender or the adversary.
// Records are immutable once appended to a log.
type Action struct {
	Timestamp     time.Time `json:"timestamp"`
	Type          string    `json:"type"`
	Target        string    `json:"target,omitempty"`
	Technique     string    `json:"technique,omitempty"`
	Severity      Severity  `json:"severity,omitempty"`
	Effectiveness int       `json:"effectiveness"`
	Successful    bool      `json:"successful"`
	Detected      bool      `json:"detected"`
	Blocked       bool      `json:"blocked,omitempty"`
	SourceIP      string    `json:"sourceIP,omitempty"`
}

// State is the mutable per-user simulation state. It lives in the ephemeral
// state store for the duration of a session and is discarded on reset or
// swept by the TTL janitor.
type State struct {
	IsRunning     bool
	StartTime     time.Time
	EndTime       *time.Time
	TimeRemaining int
	CurrentPhase  Phase

	Assets           map[string]*Asset
	SecurityControls map[string]*SecurityControl
	BlockedIPs       map[string]bool

	PlayerActions []Action
	AIActions     []Action

	AccumulatedXP     int
	SessionXP         int
	AttacksMitigated  int
	AttacksSuccessful int

	// SessionID references the persisted GameSession row. Empty when the
	// row could not be created; settlement is then skipped.
	SessionID string
}

// NewState returns a fresh state with the default asset and control sets
// and a full time budget.
func NewState(budgetSeconds int) *State {
	if budgetSeconds <= 0 {
		budgetSeconds = SessionBudgetSeconds
	}
	return &State{
		TimeRemaining:    budgetSeconds,
		CurrentPhase:     PhaseReconnaissance,
		Assets:           DefaultAssets(),
		SecurityControls: DefaultControls(),
		BlockedIPs:       make(map[string]bool),
	}
}

// SetTimeRemaining applies a client-reported time value, clamped to the
// session budget. The server never counts down on its own.
func (s *State) SetTimeRemaining(seconds int) {
	if seconds < 0 {
		seconds = 0
	}
	if seconds > SessionBudgetSeconds {
		seconds = SessionBudgetSeconds
	}
	s.TimeRemaining = seconds
}

// Snapshot is a JSON-friendly, immutable view of a State.
type Snapshot struct {
	IsRunning         bool                       `json:"isRunning"`
	StartTime         *time.Time                 `json:"startTime,omitempty"`
	EndTime           *time.Time                 `json:"endTime,omitempty"`
	TimeRemaining     int                        `json:"timeRemaining"`
	CurrentPhase      Phase                      `json:"currentPhase"`
	Assets            map[string]Asset           `json:"assets"`
	SecurityControls  map[string]SecurityControl `json:"securityControls"`
	BlockedIPs        []string                   `json:"blockedIPs"`
	PlayerActions     []Action                   `json:"playerActions"`
	AIActions         []Action                   `json:"aiActions"`
	AccumulatedXP     int                        `json:"accumulatedXP"`
	SessionXP         int                        `json:"sessionXP"`
	AttacksMitigated  int                        `json:"attacksMitigated"`
	AttacksSuccessful int                        `json:"attacksSuccessful"`
	SessionID         string                     `json:"sessionId,omitempty"`
}

// Snapshot captures a consistent copy of the state for external use.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		IsRunning:         s.IsRunning,
		EndTime:           s.EndTime,
		TimeRemaining:     s.TimeRemaining,
		CurrentPhase:      s.CurrentPhase,
		Assets:            make(map[string]Asset, len(s.Assets)),
		SecurityControls:  make(map[string]SecurityControl, len(s.SecurityControls)),
		BlockedIPs:        make([]string, 0, len(s.BlockedIPs)),
		PlayerActions:     append([]Action(nil), s.PlayerActions...),
		AIActions:         append([]Action(nil), s.AIActions...),
		AccumulatedXP:     s.AccumulatedXP,
		SessionXP:         s.SessionXP,
		AttacksMitigated:  s.AttacksMitigated,
		AttacksSuccessful: s.AttacksSuccessful,
		SessionID:         s.SessionID,
	}
	if !s.StartTime.IsZero() {
		start := s.StartTime
		snap.StartTime = &start
	}
	for id, a := range s.Assets {
		snap.Assets[id] = *a
	}
	for id, c := range s.SecurityControls {
		snap.SecurityControls[id] = *c
	}
	for ip := range s.BlockedIPs {
		snap.BlockedIPs = append(snap.BlockedIPs, ip)
	}
	sort.Strings(snap.BlockedIPs)
	return snap
}

// DefaultSnapshot is returned for users with no active or retained session.
func DefaultSnapshot(budgetSeconds int) Snapshot {
	return NewState(budgetSeconds).Snapshot()
}
