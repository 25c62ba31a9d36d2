package models

import "time"

// Rating holds the Elo standing for one (agent type, model) pair. Rows are
// created lazily by the first vote that involves the pair and are never
// deleted. Model is stored as "" when the agent has no pinned model so the
// composite unique index behaves the same on MySQL and SQLite.
type Rating struct {
	ID           uint    `gorm:"primaryKey;autoIncrement"`
	AgentType    string  `gorm:"size:128;not null;uniqueIndex:idx_ratings_agent_model"`
	Model        string  `gorm:"size:128;default:'';uniqueIndex:idx_ratings_agent_model"`
	EloRating    float64 `gorm:"not null;default:800"`
	TotalBattles int     `gorm:"not null;default:0"`
	Wins         int     `gorm:"not null;default:0"`
	Losses       int     `gorm:"not null;default:0"`
	SuccessRate  float64 `gorm:"not null;default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
