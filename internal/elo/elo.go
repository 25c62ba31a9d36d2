// Package elo implements the rating math for arena battles: expected score,
// per-battle rating deltas, and K-factor selection.
package elo

import "math"

const (
	// DefaultRating is the Elo assigned to a (agent type, model) pair on
	// its first battle.
	DefaultRating = 800.0

	// DefaultKFactor applies to pairs with fewer than KFactorThreshold
	// battles; EstablishedKFactor applies after that.
	DefaultKFactor     = 32
	EstablishedKFactor = 16
	KFactorThreshold   = 30
)

// Outcome values for Change, from side A's perspective.
const (
	OutcomeAWins = 1.0
	OutcomeTie   = 0.5
	OutcomeBWins = 0.0
)

// Result holds the ratings and deltas produced by one battle.
type Result struct {
	NewA    float64
	NewB    float64
	ChangeA int
	ChangeB int
}

// Change computes both sides' rating deltas for a battle between ratingA and
// ratingB with the given outcome (1 = A wins, 0.5 = tie, 0 = B wins).
//
// Each side's delta is rounded independently with round-half-away-from-zero,
// so the two deltas do not always sum to zero. That asymmetry is part of the
// rating contract; do not rebalance it.
func Change(ratingA, ratingB, outcome float64, kFactor int) Result {
	expectedA := WinProbability(ratingA, ratingB)
	expectedB := WinProbability(ratingB, ratingA)

	changeA := int(math.Round(float64(kFactor) * (outcome - expectedA)))
	changeB := int(math.Round(float64(kFactor) * ((1 - outcome) - expectedB)))

	return Result{
		NewA:    ratingA + float64(changeA),
		NewB:    ratingB + float64(changeB),
		ChangeA: changeA,
		ChangeB: changeB,
	}
}

// WinProbability returns the expected score for a player rated ratingA
// against one rated ratingB under the logistic Elo model.
func WinProbability(ratingA, ratingB float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (ratingB-ratingA)/400.0))
}

// KFactor returns the per-battle rating swing cap for a pair with the given
// battle count: DefaultKFactor until KFactorThreshold battles, then
// EstablishedKFactor.
func KFactor(totalBattles int) int {
	return KFactorAt(totalBattles, KFactorThreshold)
}

// KFactorAt is KFactor with an explicit experience threshold.
func KFactorAt(totalBattles, threshold int) int {
	if totalBattles < threshold {
		return DefaultKFactor
	}
	return EstablishedKFactor
}
