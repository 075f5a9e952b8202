package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runningState() *State {
	st := NewState(SessionBudgetSeconds)
	st.IsRunning = true
	return st
}

func TestResolvePlayerAction_NotRunning(t *testing.T) {
	st := NewState(SessionBudgetSeconds)

	_, err := ResolvePlayerAction(st, Action{Type: "block-ip", Successful: true})
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestResolvePlayerAction_XPAward(t *testing.T) {
	st := runningState()

	// Three successful block-ip actions at effectiveness 100: each worth
	// floor(10 * (0.5 + 1.0)) = 15.
	for i := 0; i < 3; i++ {
		result, err := ResolvePlayerAction(st, Action{
			Type:          "block-ip",
			Target:        "10.0.0.1",
			Effectiveness: 100,
			Successful:    true,
		})
		require.NoError(t, err)
		assert.Equal(t, 15, result.XPAwarded)
	}

	assert.Equal(t, 45, st.AccumulatedXP)
	assert.Equal(t, 45, st.SessionXP)
	assert.Equal(t, 3, st.AttacksMitigated)
	assert.Len(t, st.PlayerActions, 3)
}

func TestResolvePlayerAction_BaseXPTable(t *testing.T) {
	cases := map[string]int{
		"block-ip":            10,
		"isolate-asset":       15,
		"increase-monitoring": 5,
		"patch-vulnerability": 20,
		"reset-credentials":   8,
		"firewall-rule":       12,
		"endpoint-quarantine": 18,
		"access-revoke":       10,
		"something-else":      5,
	}
	for actionType, base := range cases {
		assert.Equal(t, base, BaseXPForActionType(actionType), actionType)
	}
}

func TestResolvePlayerAction_EffectivenessScaling(t *testing.T) {
	st := runningState()

	// patch-vulnerability base 20 at effectiveness 0: floor(20 * 0.5) = 10.
	result, err := ResolvePlayerAction(st, Action{
		Type:       "patch-vulnerability",
		Successful: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, result.XPAwarded)

	// effectiveness 75: floor(20 * 1.25) = 25.
	result, err = ResolvePlayerAction(st, Action{
		Type:          "patch-vulnerability",
		Effectiveness: 75,
		Successful:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, 25, result.XPAwarded)
}

func TestResolvePlayerAction_FailedActionNoAward(t *testing.T) {
	st := runningState()

	result, err := ResolvePlayerAction(st, Action{
		Type:          "block-ip",
		Target:        "10.0.0.9",
		Effectiveness: 100,
		Successful:    false,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.XPAwarded)
	assert.Equal(t, 0, st.AccumulatedXP)
	assert.Equal(t, 0, st.AttacksMitigated)
	assert.False(t, st.BlockedIPs["10.0.0.9"], "failed block-ip must not block")
	assert.Len(t, st.PlayerActions, 1, "failed actions are still recorded")
}

func TestResolvePlayerAction_BlockIPIdempotent(t *testing.T) {
	st := runningState()

	for i := 0; i < 2; i++ {
		_, err := ResolvePlayerAction(st, Action{
			Type:       "block-ip",
			Target:     "192.168.1.50",
			Successful: true,
		})
		require.NoError(t, err)
	}

	assert.True(t, st.BlockedIPs["192.168.1.50"])
	assert.Len(t, st.BlockedIPs, 1)
}

func TestResolveAIAction_CriticalDamage(t *testing.T) {
	st := runningState()
	st.AccumulatedXP = 45
	st.SessionXP = 45

	result, err := ResolveAIAction(st, Action{
		Type:       "exploit",
		Target:     "academy-server",
		Severity:   SeverityCritical,
		Successful: true,
		Detected:   true,
		SourceIP:   "203.0.113.7",
	})
	require.NoError(t, err)

	assert.Equal(t, 15, result.IntegrityImpact)
	assert.Equal(t, 5, result.XPPenalty)
	assert.False(t, result.IPBlocked)
	assert.Equal(t, 85, st.Assets["academy-server"].Integrity)
	assert.Equal(t, AssetSecure, st.Assets["academy-server"].Status)
	assert.Equal(t, 40, st.AccumulatedXP)
	assert.Equal(t, 40, st.SessionXP)
	assert.Equal(t, 1, st.AttacksSuccessful)
}

func TestResolveAIAction_PenaltyClampsAtZero(t *testing.T) {
	st := runningState()

	// All-penalty sequence starting from zero XP.
	for i := 0; i < 5; i++ {
		_, err := ResolveAIAction(st, Action{
			Type:       "exploit",
			Target:     "student-database",
			Severity:   SeverityCritical,
			Successful: true,
		})
		require.NoError(t, err)
	}

	assert.Equal(t, 0, st.AccumulatedXP)
	assert.Equal(t, 0, st.SessionXP)
	assert.GreaterOrEqual(t, st.Assets["student-database"].Integrity, 0)
}

func TestResolveAIAction_BlockedIPOverride(t *testing.T) {
	st := runningState()

	_, err := ResolvePlayerAction(st, Action{
		Type:       "block-ip",
		Target:     "198.51.100.4",
		Successful: true,
	})
	require.NoError(t, err)

	result, err := ResolveAIAction(st, Action{
		Type:       "exploit",
		Target:     "academy-server",
		Severity:   SeverityCritical,
		Successful: true,
		SourceIP:   "198.51.100.4",
	})
	require.NoError(t, err)

	assert.True(t, result.IPBlocked)
	assert.False(t, result.Action.Successful, "blocked source can never succeed")
	assert.True(t, result.Action.Blocked)
	assert.Equal(t, 0, result.IntegrityImpact)
	assert.Equal(t, 0, result.XPPenalty)
	assert.Equal(t, 100, st.Assets["academy-server"].Integrity)
	assert.Equal(t, 0, st.AttacksSuccessful)
	require.Len(t, st.AIActions, 1)
	assert.False(t, st.AIActions[0].Successful)
}

func TestResolveAIAction_UnknownTarget(t *testing.T) {
	st := runningState()
	st.AccumulatedXP = 10

	result, err := ResolveAIAction(st, Action{
		Type:       "exploit",
		Target:     "does-not-exist",
		Severity:   SeverityCritical,
		Successful: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.IntegrityImpact)
	assert.Equal(t, 0, result.XPPenalty)
	assert.Equal(t, 10, st.AccumulatedXP)
	assert.Equal(t, 0, st.AttacksSuccessful)
}

func TestResolveAIAction_MediumSeverityNoDamage(t *testing.T) {
	st := runningState()

	result, err := ResolveAIAction(st, Action{
		Type:       "scan",
		Target:     "academy-server",
		Severity:   SeverityMedium,
		Successful: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.IntegrityImpact)
	assert.Equal(t, 0, result.XPPenalty)
	assert.Equal(t, 100, st.Assets["academy-server"].Integrity)
}

// Integrity must stay within [0,100] and status must match the derivation
// rule after any action sequence.
func TestInvariants_MixedSequence(t *testing.T) {
	st := runningState()

	sequence := []func() error{
		func() error {
			_, err := ResolvePlayerAction(st, Action{Type: "block-ip", Target: "10.1.1.1", Effectiveness: 80, Successful: true})
			return err
		},
		func() error {
			_, err := ResolveAIAction(st, Action{Type: "exploit", Target: "academy-server", Severity: SeverityCritical, Successful: true, SourceIP: "10.2.2.2"})
			return err
		},
		func() error {
			_, err := ResolveAIAction(st, Action{Type: "exploit", Target: "mail-gateway", Severity: SeverityHigh, Successful: true, SourceIP: "10.1.1.1"})
			return err
		},
		func() error {
			_, err := ResolvePlayerAction(st, Action{Type: "unknown-type", Effectiveness: 100, Successful: true})
			return err
		},
	}

	for i := 0; i < 20; i++ {
		require.NoError(t, sequence[i%len(sequence)]())

		for id, a := range st.Assets {
			assert.GreaterOrEqual(t, a.Integrity, 0, id)
			assert.LessOrEqual(t, a.Integrity, 100, id)
			assert.Equal(t, deriveStatus(a.Integrity), a.Status, id)
		}
		assert.GreaterOrEqual(t, st.AccumulatedXP, 0)
		assert.GreaterOrEqual(t, st.SessionXP, 0)
	}
}
