package simulation

import "math"

// DetectionRate returns the percentage of adversary actions that were
// detected, or 0 when no adversary actions occurred.
func DetectionRate(aiActions []Action) float64 {
	if len(aiActions) == 0 {
		return 0
	}
	detected := 0
	for _, a := range aiActions {
		if a.Detected {
			detected++
		}
	}
	return 100 * float64(detected) / float64(len(aiActions))
}

// FinalScore computes the session score from a state snapshot. Weights:
// 40% asset integrity, 30% remaining time (900s budget caps the term at
// 100), 30% detection rate.
func FinalScore(st *State) int {
	integrity := AverageIntegrity(st.Assets)
	timeScore := math.Min(float64(st.TimeRemaining)/9, 100)
	detection := DetectionRate(st.AIActions)
	return int(math.Round(0.4*integrity + 0.3*timeScore + 0.3*detection))
}

// CompletionBonus computes the termination XP top-up: base 25, up to 20 for
// integrity, up to 15 for remaining time, up to 10 for the defense ratio.
// The denominator guard gives ties to the defender and avoids division by
// zero when no attacks resolved either way.
func CompletionBonus(st *State) int {
	integrity := AverageIntegrity(st.Assets)
	timeFrac := math.Min(float64(st.TimeRemaining)/float64(SessionBudgetSeconds), 1)
	total := st.AttacksMitigated + st.AttacksSuccessful
	if total < 1 {
		total = 1
	}
	ratio := float64(st.AttacksMitigated) / float64(total)
	return int(math.Round(25 + integrity/100*20 + timeFrac*15 + ratio*10))
}
