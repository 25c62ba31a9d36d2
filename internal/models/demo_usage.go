package models

import "time"

// DemoUsage tracks anonymous demo consumption for one device fingerprint.
// QueriesUsed never exceeds the configured maximum; the unique fingerprint
// index backs the atomic claim. SessionIDs is a JSON-encoded string list.
// Rows are never deleted.
type DemoUsage struct {
	ID                string `gorm:"primaryKey;size:36"`
	DeviceFingerprint string `gorm:"size:128;not null;uniqueIndex"`
	IPAddress         string `gorm:"size:64;index"`
	QueriesUsed       int    `gorm:"not null;default:0"`
	SessionIDs        string `gorm:"type:json"`
	FirstUsedAt       time.Time
	LastUsedAt        time.Time
}
