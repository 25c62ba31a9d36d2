// Package quota guards anonymous demo usage: one battle per device
// fingerprint, with an IP-wide backstop against fingerprint spoofing. The
// whole claim runs as a single transaction so concurrent claims never
// oversubscribe the last slot.
package quota

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zulandar/arena/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultMaxQueries is the number of anonymous battles allowed per
// fingerprint before authentication is required.
const DefaultMaxQueries = 1

// UnknownIP is the sentinel the host passes when it cannot resolve a client
// address. It deliberately bypasses the IP-wide check; only the fingerprint
// bound applies then.
const UnknownIP = "unknown"

// ErrQuotaExceeded marks a claim denied on the battle-creation path.
var ErrQuotaExceeded = errors.New("quota: demo quota exhausted")

// ErrUsageNotFound is returned when session association targets a missing
// usage record.
var ErrUsageNotFound = errors.New("quota: usage record not found")

// ClaimResult reports the outcome of a slot claim. Denial is a normal
// outcome, not an error.
type ClaimResult struct {
	Allowed     bool
	QueriesUsed int
	MaxQueries  int
	// UsageID identifies the record for later session association; set
	// whenever a record exists for the fingerprint.
	UsageID string
}

// Claim atomically takes one demo slot for the fingerprint. A known IP
// shared with any exhausted record is also denied, even for a fresh
// fingerprint.
func Claim(db *gorm.DB, fingerprint, ip string) (*ClaimResult, error) {
	return ClaimN(db, fingerprint, ip, DefaultMaxQueries)
}

// ClaimN is Claim with an explicit per-fingerprint maximum.
func ClaimN(db *gorm.DB, fingerprint, ip string, maxQueries int) (*ClaimResult, error) {
	if fingerprint == "" {
		return nil, fmt.Errorf("quota: fingerprint is required")
	}
	if maxQueries <= 0 {
		maxQueries = DefaultMaxQueries
	}

	var out ClaimResult

	err := db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		var usage models.DemoUsage
		err := lockForUpdate(tx).
			Where("device_fingerprint = ?", fingerprint).First(&usage).Error
		switch {
		case err == nil:
			out.UsageID = usage.ID
			out.MaxQueries = maxQueries
			if usage.QueriesUsed >= maxQueries {
				out.Allowed = false
				out.QueriesUsed = usage.QueriesUsed
				return nil
			}
			if err := tx.Model(&models.DemoUsage{}).Where("id = ?", usage.ID).Updates(map[string]interface{}{
				"queries_used": usage.QueriesUsed + 1,
				"last_used_at": now,
			}).Error; err != nil {
				return fmt.Errorf("quota: increment usage %s: %w", usage.ID, err)
			}
			out.Allowed = true
			out.QueriesUsed = usage.QueriesUsed + 1
			return nil

		case errors.Is(err, gorm.ErrRecordNotFound):
			// Fall through to the IP backstop and fresh-record path.
		default:
			return fmt.Errorf("quota: look up fingerprint: %w", err)
		}

		if ip != UnknownIP {
			var exhausted models.DemoUsage
			err := lockForUpdate(tx).
				Where("ip_address = ? AND queries_used >= ?", ip, maxQueries).
				First(&exhausted).Error
			if err == nil {
				out.Allowed = false
				out.QueriesUsed = exhausted.QueriesUsed
				out.MaxQueries = maxQueries
				out.UsageID = exhausted.ID
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("quota: look up IP %s: %w", ip, err)
			}
		}

		usage = models.DemoUsage{
			ID:                uuid.NewString(),
			DeviceFingerprint: fingerprint,
			IPAddress:         ip,
			QueriesUsed:       1,
			SessionIDs:        "[]",
			FirstUsedAt:       now,
			LastUsedAt:        now,
		}
		if err := tx.Create(&usage).Error; err != nil {
			return fmt.Errorf("quota: create usage record: %w", err)
		}
		out = ClaimResult{
			Allowed:     true,
			QueriesUsed: 1,
			MaxQueries:  maxQueries,
			UsageID:     usage.ID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AssociateSession appends a session ID to the usage record's list. The
// caller is trusted to pass distinct sessions; duplicates are kept as-is.
func AssociateSession(db *gorm.DB, usageID, sessionID string) error {
	if usageID == "" || sessionID == "" {
		return fmt.Errorf("quota: usageID and sessionID are required")
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var usage models.DemoUsage
		err := lockForUpdate(tx).Where("id = ?", usageID).First(&usage).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrUsageNotFound, usageID)
		}
		if err != nil {
			return fmt.Errorf("quota: load usage %s: %w", usageID, err)
		}

		var sessions []string
		if usage.SessionIDs != "" {
			if err := json.Unmarshal([]byte(usage.SessionIDs), &sessions); err != nil {
				return fmt.Errorf("quota: decode sessions of %s: %w", usageID, err)
			}
		}
		sessions = append(sessions, sessionID)
		encoded, err := json.Marshal(sessions)
		if err != nil {
			return fmt.Errorf("quota: encode sessions of %s: %w", usageID, err)
		}

		if err := tx.Model(&models.DemoUsage{}).Where("id = ?", usageID).
			Update("session_ids", string(encoded)).Error; err != nil {
			return fmt.Errorf("quota: store sessions of %s: %w", usageID, err)
		}
		return nil
	})
}

// Sessions decodes the usage record's session ID list.
func Sessions(usage *models.DemoUsage) ([]string, error) {
	if usage.SessionIDs == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(usage.SessionIDs), &out); err != nil {
		return nil, fmt.Errorf("quota: decode sessions of %s: %w", usage.ID, err)
	}
	return out, nil
}

// lockForUpdate applies a FOR UPDATE row lock on dialects that support it.
// SQLite serializes whole write transactions instead.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
