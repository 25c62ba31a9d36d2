package models

import "time"

// AgentRun is the core's record of one agent execution, written by the
// external runner through the backend endpoints. The vote transaction reads
// only Status, ResultAgent, Name and Model; everything else is bookkeeping.
//
// ResultAgent is the effective agent type reported in the runner's result
// payload. When present it overrides Name for rating-key derivation, which
// lets a generic run record resolve to the concrete framework that actually
// executed. "" means not reported.
type AgentRun struct {
	ID          string `gorm:"primaryKey;size:36"`
	Name        string `gorm:"size:128;not null"`
	Model       string `gorm:"size:128;default:''"`
	Status      string `gorm:"size:16;default:pending;index"`
	ResultAgent string `gorm:"size:128;default:''"`
	Error       string `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}
