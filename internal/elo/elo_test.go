package elo

import (
	"math"
	"testing"
)

func TestChange_EqualRatingsTie(t *testing.T) {
	res := Change(1500, 1500, OutcomeTie, 32)
	if res.ChangeA != 0 || res.ChangeB != 0 {
		t.Errorf("changes = (%d, %d), want (0, 0)", res.ChangeA, res.ChangeB)
	}
	if res.NewA != 1500 || res.NewB != 1500 {
		t.Errorf("new ratings = (%v, %v), want (1500, 1500)", res.NewA, res.NewB)
	}
}

func TestChange_FavoriteWins(t *testing.T) {
	res := Change(1500, 1300, OutcomeAWins, 32)
	if res.ChangeA != 8 {
		t.Errorf("ChangeA = %d, want 8", res.ChangeA)
	}
	if res.ChangeB != -8 {
		t.Errorf("ChangeB = %d, want -8", res.ChangeB)
	}
	if res.NewA != 1508 {
		t.Errorf("NewA = %v, want 1508", res.NewA)
	}
	if res.NewB != 1292 {
		t.Errorf("NewB = %v, want 1292", res.NewB)
	}
}

func TestChange_UpsetWin(t *testing.T) {
	res := Change(1300, 1500, OutcomeAWins, 32)
	if res.ChangeA != 24 {
		t.Errorf("ChangeA = %d, want 24", res.ChangeA)
	}
	if res.ChangeB != -24 {
		t.Errorf("ChangeB = %d, want -24", res.ChangeB)
	}
}

func TestChange_SymmetricRatingsMirror(t *testing.T) {
	for _, outcome := range []float64{OutcomeAWins, OutcomeTie, OutcomeBWins} {
		res := Change(1000, 1000, outcome, 32)
		if res.ChangeA != -res.ChangeB {
			t.Errorf("outcome %v: ChangeA = %d, ChangeB = %d, want mirror image",
				outcome, res.ChangeA, res.ChangeB)
		}
	}
}

// Each side rounds its own delta from its own expected score; pin an
// asymmetric case so the per-side rounding is never consolidated into a
// single shared delta.
func TestChange_PerSideRounding(t *testing.T) {
	res := Change(1000, 1050, OutcomeAWins, 32)
	// E_A ≈ 0.4286: changeA = round(32*0.5714) = 18, changeB = round(-18.29) = -18.
	if res.ChangeA != 18 || res.ChangeB != -18 {
		t.Errorf("changes = (%d, %d), want (18, -18)", res.ChangeA, res.ChangeB)
	}
	if res.NewA != 1018 || res.NewB != 1032 {
		t.Errorf("new ratings = (%v, %v), want (1018, 1032)", res.NewA, res.NewB)
	}
}

func TestWinProbability(t *testing.T) {
	tests := []struct {
		ratingA, ratingB float64
		want             float64
	}{
		{1500, 1500, 0.5},
		{1500, 1300, 0.7597},
		{1300, 1500, 0.2403},
		{800, 800, 0.5},
	}
	for _, tt := range tests {
		got := WinProbability(tt.ratingA, tt.ratingB)
		if math.Abs(got-tt.want) > 0.0001 {
			t.Errorf("WinProbability(%v, %v) = %v, want %v",
				tt.ratingA, tt.ratingB, got, tt.want)
		}
	}
}

func TestWinProbability_Complementary(t *testing.T) {
	pA := WinProbability(1234, 987)
	pB := WinProbability(987, 1234)
	if math.Abs(pA+pB-1.0) > 1e-12 {
		t.Errorf("probabilities sum to %v, want 1", pA+pB)
	}
}

func TestKFactor(t *testing.T) {
	tests := []struct {
		totalBattles int
		want         int
	}{
		{0, 32},
		{29, 32},
		{30, 16},
		{100, 16},
	}
	for _, tt := range tests {
		if got := KFactor(tt.totalBattles); got != tt.want {
			t.Errorf("KFactor(%d) = %d, want %d", tt.totalBattles, got, tt.want)
		}
	}
}

func TestKFactorAt_CustomThreshold(t *testing.T) {
	if got := KFactorAt(5, 5); got != EstablishedKFactor {
		t.Errorf("KFactorAt(5, 5) = %d, want %d", got, EstablishedKFactor)
	}
	if got := KFactorAt(4, 5); got != DefaultKFactor {
		t.Errorf("KFactorAt(4, 5) = %d, want %d", got, DefaultKFactor)
	}
}
