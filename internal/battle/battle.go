// Package battle implements the contest lifecycle: creation, status
// reporting from the external runner, and the single vote transaction that
// finalizes a battle and adjusts both Elo ratings.
package battle

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zulandar/arena/internal/models"
	"gorm.io/gorm"
)

// Battle and agent-run statuses. A battle additionally reaches voted;
// failed is absorbing for both.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusVoted     = "voted"
	StatusFailed    = "failed"
)

// Vote types.
const (
	VoteWinner  = "winner"
	VoteTie     = "tie"
	VoteBothBad = "both-bad"
)

// Error taxonomy, checked by callers with errors.Is.
var (
	ErrNoSession      = errors.New("battle: no authenticated session")
	ErrNotOwner       = errors.New("battle: caller does not own this battle")
	ErrBattleNotFound = errors.New("battle: battle not found")
	ErrAgentNotFound  = errors.New("battle: agent run not found")
	ErrAlreadyVoted   = errors.New("battle: already voted")
	ErrNotCompleted   = errors.New("battle: neither agent completed")
	ErrUnknownWinner  = errors.New("battle: winner is not part of this battle")
	ErrInvalidVote    = errors.New("battle: invalid vote arguments")
)

// CreateOpts holds parameters for creating a battle.
type CreateOpts struct {
	UserID        string
	Instruction   string
	AgentAID      string
	AgentBID      string
	SameFramework bool
}

// Create inserts a new pending battle and returns it. Beyond required
// fields there is no validation; agent runs are created separately through
// CreateAgentRun.
func Create(db *gorm.DB, opts CreateOpts) (*models.Battle, error) {
	if opts.Instruction == "" {
		return nil, fmt.Errorf("battle: instruction is required")
	}
	if opts.AgentAID == "" || opts.AgentBID == "" {
		return nil, fmt.Errorf("battle: both agent run IDs are required")
	}

	b := models.Battle{
		ID:            uuid.NewString(),
		UserID:        opts.UserID,
		Instruction:   opts.Instruction,
		AgentAID:      opts.AgentAID,
		AgentBID:      opts.AgentBID,
		SameFramework: opts.SameFramework,
		Status:        StatusPending,
	}
	if err := db.Create(&b).Error; err != nil {
		return nil, fmt.Errorf("battle: create: %w", err)
	}
	return &b, nil
}

// Get loads a battle by ID.
func Get(db *gorm.DB, battleID string) (*models.Battle, error) {
	var b models.Battle
	err := db.Where("id = ?", battleID).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrBattleNotFound, battleID)
	}
	if err != nil {
		return nil, fmt.Errorf("battle: load %s: %w", battleID, err)
	}
	return &b, nil
}

// UpdateStatus patches a battle's status, and completion timestamp when
// given. The runner integration owns transition ordering; backward
// transitions are not rejected here.
func UpdateStatus(db *gorm.DB, battleID, status string, completedAt *time.Time) error {
	if battleID == "" {
		return fmt.Errorf("battle: battleID is required")
	}
	if status == "" {
		return fmt.Errorf("battle: status is required")
	}

	updates := map[string]interface{}{"status": status}
	if completedAt != nil {
		updates["completed_at"] = *completedAt
	}

	result := db.Model(&models.Battle{}).Where("id = ?", battleID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("battle: update status of %s: %w", battleID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrBattleNotFound, battleID)
	}
	return nil
}
