package simulation

// baseActionXP is the flat per-type XP table for successful defender actions.
var baseActionXP = map[string]int{
	"block-ip":            10,
	"isolate-asset":       15,
	"increase-monitoring": 5,
	"patch-vulnerability": 20,
	"reset-credentials":   8,
	"firewall-rule":       12,
	"endpoint-quarantine": 18,
	"access-revoke":       10,
}

// defaultActionXP is awarded for successful defender actions of unknown type.
const defaultActionXP = 5

// XP penalties for successful adversary actions by severity.
const (
	penaltyCritical = 5
	penaltyHigh     = 3
)

// BaseXPForActionType returns the base XP for a defender action type.
func BaseXPForActionType(actionType string) int {
	if xp, ok := baseActionXP[actionType]; ok {
		return xp
	}
	return defaultActionXP
}

// PlayerActionResult reports the outcome of a resolved defender action.
type PlayerActionResult struct {
	Action    Action
	XPAwarded int
}

// AIActionResult reports the outcome of a resolved adversary action.
type AIActionResult struct {
	Action          Action
	IntegrityImpact int
	XPPenalty       int
	IPBlocked       bool
}

// ResolvePlayerAction applies a defender action to the state. The caller
// owns the state and its lock; the resolver performs no I/O and is
// deterministic for a given (state, action) pair.
func ResolvePlayerAction(st *State, act Action) (PlayerActionResult, error) {
	if !st.IsRunning {
		return PlayerActionResult{}, ErrNotRunning
	}

	var awarded int
	if act.Successful {
		if act.Type == "block-ip" && act.Target != "" {
			st.BlockedIPs[act.Target] = true
		}
		base := BaseXPForActionType(act.Type)
		awarded = int(float64(base) * (0.5 + float64(act.Effectiveness)/100))
		st.AccumulatedXP += awarded
		st.SessionXP += awarded
		st.AttacksMitigated++
	}

	st.PlayerActions = append(st.PlayerActions, act)

	return PlayerActionResult{Action: act, XPAwarded: awarded}, nil
}

// ResolveAIAction applies an adversary action to the state. A source address
// on the blocked list forces the action to fail regardless of the supplied
// success flag.
func ResolveAIAction(st *State, act Action) (AIActionResult, error) {
	if !st.IsRunning {
		return AIActionResult{}, ErrNotRunning
	}

	ipBlocked := act.SourceIP != "" && st.BlockedIPs[act.SourceIP]
	act.Successful = act.Successful && !ipBlocked
	act.Blocked = ipBlocked

	var impact, penalty int
	if act.Successful {
		switch act.Severity {
		case SeverityCritical:
			penalty = penaltyCritical
		case SeverityHigh:
			penalty = penaltyHigh
		}
		if penalty > 0 {
			if asset, ok := st.Assets[act.Target]; ok {
				before := asset.Integrity
				asset.ApplyDamage(act.Severity)
				impact = before - asset.Integrity
				st.AttacksSuccessful++
				st.AccumulatedXP = clampMin0(st.AccumulatedXP - penalty)
				st.SessionXP = clampMin0(st.SessionXP - penalty)
			} else {
				// No known target asset: nothing to damage, no penalty.
				penalty = 0
			}
		}
	}

	st.AIActions = append(st.AIActions, act)

	return AIActionResult{
		Action:          act,
		IntegrityImpact: impact,
		XPPenalty:       penalty,
		IPBlocked:       ipBlocked,
	}, nil
}

func clampMin0(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
