// Package xp implements the reward economy: XP calculation for completed
// content and settlement of earned XP against the append-only ledger.
package xp

import "math"

// Difficulty selects the base XP for a completion.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	DifficultyExpert Difficulty = "expert"
)

// FirstTimeBonus is the flat XP bonus for a first-time completion.
const FirstTimeBonus = 25

var baseXPByDifficulty = map[Difficulty]int{
	DifficultyEasy:   50,
	DifficultyMedium: 100,
	DifficultyHard:   200,
	DifficultyExpert: 300,
}

// Breakdown explains how an XP amount was computed.
type Breakdown struct {
	BaseXP          int     `json:"baseXP"`
	ScoreMultiplier float64 `json:"scoreMultiplier"`
	ScoreRating     string  `json:"scoreRating"`
	TimeMultiplier  float64 `json:"timeMultiplier"`
	TimeRating      string  `json:"timeRating"`
	FirstTimeBonus  int     `json:"firstTimeBonus"`
}

// Result is the outcome of an XP calculation.
type Result struct {
	XPEarned  int       `json:"xpEarned"`
	Breakdown Breakdown `json:"breakdown"`
}

// Calculate computes the XP earned for a completion. score and timeSpent are
// optional; absent values contribute a neutral 1.0 multiplier. expectedTime
// is in the same unit as timeSpent (seconds).
func Calculate(difficulty Difficulty, score *int, timeSpent *int, expectedTime int, firstTime bool) Result {
	base, ok := baseXPByDifficulty[difficulty]
	if !ok {
		base = baseXPByDifficulty[DifficultyEasy]
	}

	scoreMult, scoreRating := scoreMultiplier(score)
	timeMult, timeRating := timeMultiplier(timeSpent, expectedTime)

	earned := int(math.Floor(float64(base) * scoreMult * timeMult))
	bonus := 0
	if firstTime {
		bonus = FirstTimeBonus
	}

	return Result{
		XPEarned: earned + bonus,
		Breakdown: Breakdown{
			BaseXP:          base,
			ScoreMultiplier: scoreMult,
			ScoreRating:     scoreRating,
			TimeMultiplier:  timeMult,
			TimeRating:      timeRating,
			FirstTimeBonus:  bonus,
		},
	}
}

func scoreMultiplier(score *int) (float64, string) {
	if score == nil {
		return 1.0, "unscored"
	}
	switch s := *score; {
	case s >= 100:
		return 2.0, "perfect"
	case s >= 90:
		return 1.5, "excellent"
	case s >= 80:
		return 1.2, "good"
	case s >= 70:
		return 1.0, "average"
	default:
		return 0.8, "below_average"
	}
}

func timeMultiplier(timeSpent *int, expectedTime int) (float64, string) {
	if timeSpent == nil || expectedTime <= 0 {
		return 1.0, "untimed"
	}
	ratio := float64(*timeSpent) / float64(expectedTime)
	switch {
	case ratio <= 0.5:
		return 1.5, "lightning"
	case ratio <= 0.75:
		return 1.2, "fast"
	case ratio <= 1.5:
		return 1.0, "normal"
	default:
		return 0.9, "slow"
	}
}
