package logging

import (
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/clinicorp/n0-error-tracker/internal/models"
)

// StartCleanup runs a daily goroutine that deletes system_logs older than
// retentionDays.
func StartCleanup(db *gorm.DB, retentionDays int, done chan struct{}) {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				PurgeOlderThan(db, time.Now().UTC().AddDate(0, 0, -retentionDays))
			case <-done:
				return
			}
		}
	}()
}

// PurgeOlderThan removes system_logs rows with a timestamp before cutoff.
func PurgeOlderThan(db *gorm.DB, cutoff time.Time) int64 {
	result := db.Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
	if result.Error != nil {
		slog.Warn("log cleanup failed", "error", result.Error)
		return 0
	}
	if result.RowsAffected > 0 {
		slog.Info("log cleanup completed", "deleted", result.RowsAffected)
	}
	return result.RowsAffected
}
