package battle

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zulandar/arena/internal/models"
	"gorm.io/gorm"
)

// CreateAgentRun inserts a pending agent run record for the external runner
// to report against. model may be empty when the agent has no pinned model.
func CreateAgentRun(db *gorm.DB, name, model string) (*models.AgentRun, error) {
	if name == "" {
		return nil, fmt.Errorf("battle: agent name is required")
	}
	run := models.AgentRun{
		ID:     uuid.NewString(),
		Name:   name,
		Model:  model,
		Status: StatusPending,
	}
	if err := db.Create(&run).Error; err != nil {
		return nil, fmt.Errorf("battle: create agent run: %w", err)
	}
	return &run, nil
}

// GetAgentRun loads an agent run by ID.
func GetAgentRun(db *gorm.DB, runID string) (*models.AgentRun, error) {
	var run models.AgentRun
	err := db.Where("id = ?", runID).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("battle: load agent run %s: %w", runID, err)
	}
	return &run, nil
}

// UpdateAgentRunStatus patches an agent run's status. A completed or failed
// status stamps CompletedAt; a failed status records errMsg.
func UpdateAgentRunStatus(db *gorm.DB, runID, status, errMsg string) error {
	if runID == "" {
		return fmt.Errorf("battle: runID is required")
	}
	if status == "" {
		return fmt.Errorf("battle: status is required")
	}

	updates := map[string]interface{}{"status": status}
	if status == StatusCompleted || status == StatusFailed {
		updates["completed_at"] = time.Now()
	}
	if status == StatusFailed && errMsg != "" {
		updates["error"] = errMsg
	}

	result := db.Model(&models.AgentRun{}).Where("id = ?", runID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("battle: update agent run %s: %w", runID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrAgentNotFound, runID)
	}
	return nil
}

// SetAgentRunResult records the effective agent type reported in the
// runner's result payload. It overrides the stored name when deriving the
// rating key at vote time.
func SetAgentRunResult(db *gorm.DB, runID, resultAgent string) error {
	if runID == "" {
		return fmt.Errorf("battle: runID is required")
	}

	result := db.Model(&models.AgentRun{}).Where("id = ?", runID).
		Update("result_agent", resultAgent)
	if result.Error != nil {
		return fmt.Errorf("battle: set result of agent run %s: %w", runID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrAgentNotFound, runID)
	}
	return nil
}

// effectiveType returns the agent type used for rating-key derivation:
// the reported result agent when present, else the stored name.
func effectiveType(run *models.AgentRun) string {
	if run.ResultAgent != "" {
		return run.ResultAgent
	}
	return run.Name
}
