// Package sweeper fails battles and agent runs abandoned by their runner:
// anything still pending or running past the staleness deadline. It runs on
// a cron schedule inside the serve process.
package sweeper

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zulandar/arena/internal/battle"
	"github.com/zulandar/arena/internal/models"
	"gorm.io/gorm"
)

// DefaultMaxAge is how long a battle may sit in pending/running before the
// sweep fails it.
const DefaultMaxAge = 30 * time.Minute

// DefaultSchedule sweeps every five minutes.
const DefaultSchedule = "*/5 * * * *"

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Sweep fails every battle stuck in pending or running whose last update is
// older than maxAge, along with their non-terminal agent runs. It returns
// the number of battles failed.
func Sweep(db *gorm.DB, now time.Time, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	cutoff := now.Add(-maxAge)

	var failed int
	err := db.Transaction(func(tx *gorm.DB) error {
		var stale []models.Battle
		if err := tx.Where("status IN ? AND updated_at < ?",
			[]string{battle.StatusPending, battle.StatusRunning}, cutoff).
			Find(&stale).Error; err != nil {
			return fmt.Errorf("sweeper: find stale battles: %w", err)
		}
		if len(stale) == 0 {
			return nil
		}

		ids := make([]string, 0, len(stale))
		runIDs := make([]string, 0, 2*len(stale))
		for _, b := range stale {
			ids = append(ids, b.ID)
			runIDs = append(runIDs, b.AgentAID, b.AgentBID)
		}

		if err := tx.Model(&models.Battle{}).Where("id IN ?", ids).Updates(map[string]interface{}{
			"status":       battle.StatusFailed,
			"completed_at": now,
		}).Error; err != nil {
			return fmt.Errorf("sweeper: fail battles: %w", err)
		}

		if err := tx.Model(&models.AgentRun{}).
			Where("id IN ? AND status IN ?", runIDs,
				[]string{battle.StatusPending, battle.StatusRunning}).
			Updates(map[string]interface{}{
				"status":       battle.StatusFailed,
				"error":        "abandoned by runner",
				"completed_at": now,
			}).Error; err != nil {
			return fmt.Errorf("sweeper: fail agent runs: %w", err)
		}

		failed = len(stale)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return failed, nil
}

// Run sweeps on the given 5-field cron schedule until ctx is cancelled.
func Run(ctx context.Context, db *gorm.DB, schedule string, maxAge time.Duration) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	sched, err := cronParser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("sweeper: parse schedule %q: %w", schedule, err)
	}

	for {
		next := sched.Next(time.Now())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Until(next)):
		}

		n, err := Sweep(db, time.Now(), maxAge)
		if err != nil {
			log.Printf("sweeper: sweep error: %v", err)
			continue
		}
		if n > 0 {
			log.Printf("sweeper: failed %d stale battles", n)
		}
	}
}
