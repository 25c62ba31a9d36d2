package models

import "time"

// Battle is one head-to-head contest between two agent runs.
//
// Status moves pending → running → completed → voted, with failed reachable
// from any non-voted state and absorbing. The vote fields (VoteType,
// WinnerID, the Elo deltas, VotedAt) are written exactly once, by the vote
// transaction.
type Battle struct {
	ID            string `gorm:"primaryKey;size:36"`
	UserID        string `gorm:"size:64;index"`
	Instruction   string `gorm:"type:text;not null"`
	AgentAID      string `gorm:"size:36;not null"`
	AgentBID      string `gorm:"size:36;not null"`
	SameFramework bool   `gorm:"default:false"`
	Status        string `gorm:"size:16;default:pending;index"`

	VoteType        *string `gorm:"size:16"`
	WinnerID        *string `gorm:"size:36"`
	AgentAEloChange *int
	AgentBEloChange *int
	VotedAt         *time.Time

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time

	AgentA *AgentRun `gorm:"foreignKey:AgentAID"`
	AgentB *AgentRun `gorm:"foreignKey:AgentBID"`
}
