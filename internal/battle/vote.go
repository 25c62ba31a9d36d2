package battle

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/zulandar/arena/internal/elo"
	"github.com/zulandar/arena/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VoteOpts holds parameters for submitting a vote.
type VoteOpts struct {
	BattleID string
	// UserID is the authenticated caller; must match the battle's creator.
	UserID string
	// VoteType is winner, tie or both-bad.
	VoteType string
	// WinnerID names the winning agent run; required iff VoteType is winner.
	WinnerID string
}

// SideResult describes one side's rating movement from a vote.
type SideResult struct {
	AgentType string
	Model     string
	OldRating float64
	NewRating float64
	Change    int
	Won       bool
}

// VoteResult is the payload returned by SubmitVote.
type VoteResult struct {
	Battle *models.Battle
	AgentA SideResult
	AgentB SideResult
}

// SubmitVote records the single human vote for a battle and adjusts both
// ratings, all inside one transaction. A battle can be voted on exactly
// once; a tie credits both sides with a win, and a both-bad vote counts a
// loss for both sides while leaving Elo untouched.
//
// The shared K-factor is the rounded mean of each side's own K-factor at
// its pre-vote battle count, so neither side's experience dominates the
// swing.
func SubmitVote(db *gorm.DB, opts VoteOpts) (*VoteResult, error) {
	if opts.UserID == "" {
		return nil, ErrNoSession
	}
	switch opts.VoteType {
	case VoteWinner:
		if opts.WinnerID == "" {
			return nil, fmt.Errorf("%w: winner vote requires a winner ID", ErrInvalidVote)
		}
	case VoteTie, VoteBothBad:
		if opts.WinnerID != "" {
			return nil, fmt.Errorf("%w: %s vote must not name a winner", ErrInvalidVote, opts.VoteType)
		}
	default:
		return nil, fmt.Errorf("%w: unknown vote type %q", ErrInvalidVote, opts.VoteType)
	}

	var out VoteResult

	err := db.Transaction(func(tx *gorm.DB) error {
		var b models.Battle
		err := lockForUpdate(tx).
			Where("id = ?", opts.BattleID).First(&b).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrBattleNotFound, opts.BattleID)
		}
		if err != nil {
			return fmt.Errorf("battle: load %s: %w", opts.BattleID, err)
		}

		if b.UserID != opts.UserID {
			return fmt.Errorf("%w: battle %s", ErrNotOwner, b.ID)
		}
		if b.Status == StatusVoted || b.VoteType != nil || b.WinnerID != nil {
			return fmt.Errorf("%w: battle %s", ErrAlreadyVoted, b.ID)
		}
		if opts.VoteType == VoteWinner && opts.WinnerID != b.AgentAID && opts.WinnerID != b.AgentBID {
			return fmt.Errorf("%w: %s", ErrUnknownWinner, opts.WinnerID)
		}

		runA, err := loadRun(tx, b.AgentAID)
		if err != nil {
			return err
		}
		runB, err := loadRun(tx, b.AgentBID)
		if err != nil {
			return err
		}
		if runA.Status != StatusCompleted && runB.Status != StatusCompleted {
			return fmt.Errorf("%w: agent A is %s, agent B is %s",
				ErrNotCompleted, runA.Status, runB.Status)
		}

		ratingA, err := getOrCreateRating(tx, effectiveType(runA), runA.Model)
		if err != nil {
			return err
		}
		ratingB, err := getOrCreateRating(tx, effectiveType(runB), runB.Model)
		if err != nil {
			return err
		}

		now := time.Now()

		// A vote on a battle still marked running closes it out first.
		if b.Status != StatusCompleted {
			if err := tx.Model(&models.Battle{}).Where("id = ?", b.ID).Updates(map[string]interface{}{
				"status":       StatusCompleted,
				"completed_at": now,
			}).Error; err != nil {
				return fmt.Errorf("battle: stamp %s completed: %w", b.ID, err)
			}
		}

		var outcome float64
		var aWon, bWon bool
		switch opts.VoteType {
		case VoteWinner:
			aWon = opts.WinnerID == b.AgentAID
			bWon = !aWon
			if aWon {
				outcome = elo.OutcomeAWins
			} else {
				outcome = elo.OutcomeBWins
			}
		case VoteTie:
			aWon, bWon = true, true
			outcome = elo.OutcomeTie
		case VoteBothBad:
			// Neither side is credited; Elo stays frozen.
			outcome = elo.OutcomeTie
		}

		kA := elo.KFactor(ratingA.TotalBattles)
		kB := elo.KFactor(ratingB.TotalBattles)
		k := int(math.Round(float64(kA+kB) / 2))

		changeA, changeB := 0, 0
		newA, newB := ratingA.EloRating, ratingB.EloRating
		if opts.VoteType != VoteBothBad {
			res := elo.Change(ratingA.EloRating, ratingB.EloRating, outcome, k)
			changeA, changeB = res.ChangeA, res.ChangeB
			newA, newB = res.NewA, res.NewB
		}

		voteType := opts.VoteType
		battleUpdates := map[string]interface{}{
			"status":             StatusVoted,
			"vote_type":          voteType,
			"agent_a_elo_change": changeA,
			"agent_b_elo_change": changeB,
			"voted_at":           now,
		}
		if opts.VoteType == VoteWinner {
			battleUpdates["winner_id"] = opts.WinnerID
		}
		if err := tx.Model(&models.Battle{}).Where("id = ?", b.ID).Updates(battleUpdates).Error; err != nil {
			return fmt.Errorf("battle: record vote on %s: %w", b.ID, err)
		}

		if err := applyVote(tx, ratingA, newA, aWon, opts.VoteType, runA.Status == StatusCompleted); err != nil {
			return err
		}
		if err := applyVote(tx, ratingB, newB, bWon, opts.VoteType, runB.Status == StatusCompleted); err != nil {
			return err
		}

		b.Status = StatusVoted
		b.VoteType = &voteType
		if opts.VoteType == VoteWinner {
			winner := opts.WinnerID
			b.WinnerID = &winner
		}
		b.AgentAEloChange = &changeA
		b.AgentBEloChange = &changeB
		b.VotedAt = &now

		out = VoteResult{
			Battle: &b,
			AgentA: SideResult{
				AgentType: ratingA.AgentType,
				Model:     ratingA.Model,
				OldRating: ratingA.EloRating,
				NewRating: newA,
				Change:    changeA,
				Won:       aWon,
			},
			AgentB: SideResult{
				AgentType: ratingB.AgentType,
				Model:     ratingB.Model,
				OldRating: ratingB.EloRating,
				NewRating: newB,
				Change:    changeB,
				Won:       bWon,
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// lockForUpdate applies a FOR UPDATE row lock on dialects that support it.
// SQLite serializes whole write transactions, so the clause is unnecessary
// there and is not valid SQLite SQL.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func loadRun(tx *gorm.DB, runID string) (*models.AgentRun, error) {
	var run models.AgentRun
	err := tx.Where("id = ?", runID).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("battle: load agent run %s: %w", runID, err)
	}
	return &run, nil
}

// getOrCreateRating fetches the rating row for (agentType, model), creating
// it at the default Elo when absent. The insert uses ON CONFLICT DO NOTHING
// against the unique (agent_type, model) index, then re-reads under the row
// lock, so two votes racing on a fresh key both land on the single row that
// won the insert.
func getOrCreateRating(tx *gorm.DB, agentType, model string) (*models.Rating, error) {
	locked := lockForUpdate(tx)

	var r models.Rating
	err := locked.Where("agent_type = ? AND model = ?", agentType, model).First(&r).Error
	if err == nil {
		return &r, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("battle: load rating (%s, %s): %w", agentType, model, err)
	}

	fresh := models.Rating{
		AgentType: agentType,
		Model:     model,
		EloRating: elo.DefaultRating,
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&fresh).Error; err != nil {
		return nil, fmt.Errorf("battle: init rating (%s, %s): %w", agentType, model, err)
	}

	if err := locked.Where("agent_type = ? AND model = ?", agentType, model).First(&r).Error; err != nil {
		return nil, fmt.Errorf("battle: reload rating (%s, %s): %w", agentType, model, err)
	}
	return &r, nil
}

// applyVote patches one rating with the outcome of a vote. Counters always
// advance; the Elo column only moves when newElo differs (both-bad votes
// freeze it).
func applyVote(tx *gorm.DB, r *models.Rating, newElo float64, won bool, voteType string, runCompleted bool) error {
	wins, losses := r.Wins, r.Losses
	switch voteType {
	case VoteTie:
		wins++
	case VoteBothBad:
		losses++
	default:
		if won {
			wins++
		} else {
			losses++
		}
	}

	newTotal := r.TotalBattles + 1
	successes := math.Round(r.SuccessRate * float64(r.TotalBattles))
	if runCompleted {
		successes++
	}

	updates := map[string]interface{}{
		"elo_rating":    newElo,
		"total_battles": newTotal,
		"wins":          wins,
		"losses":        losses,
		"success_rate":  successes / float64(newTotal),
	}
	if err := tx.Model(&models.Rating{}).Where("id = ?", r.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("battle: update rating (%s, %s): %w", r.AgentType, r.Model, err)
	}
	return nil
}
