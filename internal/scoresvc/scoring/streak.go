package scoring

// Scorer computes a round score from its ordered answer outcomes. An
// outcome is tri-state: true, false, or nil for an explicit pass.
type Scorer struct {
	CorrectPoints    int
	IncorrectPenalty int
}

// Score folds the outcomes in order. Consecutive same outcomes build a
// streak multiplier: the n-th correct in a row is worth
// CorrectPoints*n, the n-th incorrect in a row costs IncorrectPenalty*n.
// A pass resets both streaks and is worth nothing. The result is not
// clamped; callers clamp for display only.
func (s Scorer) Score(initial int, outcomes []*bool) int {
	total := initial
	consecutiveCorrect := 0
	consecutiveIncorrect := 0

	for _, outcome := range outcomes {
		if outcome == nil {
			consecutiveCorrect = 0
			consecutiveIncorrect = 0
			continue
		}
		if *outcome {
			consecutiveIncorrect = 0
			consecutiveCorrect++
			total += s.CorrectPoints * consecutiveCorrect
		} else {
			consecutiveCorrect = 0
			consecutiveIncorrect++
			total += s.IncorrectPenalty * consecutiveIncorrect
		}
	}

	return total
}
