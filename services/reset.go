package services

import (
	"time"

	"github.com/Sadiakamal27/one-rupee-game/models"
	"github.com/Sadiakamal27/one-rupee-game/utils"
	log "github.com/sirupsen/logrus"
)

// CheckAndResetExpiredPlans rolls every plan whose persisted end date has
// elapsed into a new cycle: end date advanced one cycle length from now,
// accumulated amount zeroed, and a fresh cycle-start marker stamped.
// Returns the ids of the plans that were actually reset.
//
// The mutation is a single guarded UPDATE per plan, so concurrent
// invocations from multiple clients are safe: whichever lands first wins
// and the rest match zero rows. Calling with nothing expired returns an
// empty list and performs no writes.
func CheckAndResetExpiredPlans(now time.Time) ([]uint, error) {
	var expired []models.GamePlan
	if err := utils.DB.
		Where("end_date IS NOT NULL AND end_date <= ?", now).
		Find(&expired).Error; err != nil {
		return nil, err
	}

	resetIDs := make([]uint, 0, len(expired))
	for _, plan := range expired {
		newEnd := now.Add(CycleLength)
		res := utils.DB.Model(&models.GamePlan{}).
			Where("id = ? AND end_date <= ?", plan.ID, now).
			Updates(map[string]interface{}{
				"end_date":        newEnd,
				"current_amount":  0,
				"last_reset_date": now,
			})
		if res.Error != nil {
			log.Errorf("Failed to reset plan %d: %v", plan.ID, res.Error)
			return resetIDs, res.Error
		}
		if res.RowsAffected == 0 {
			// Another client reset this plan between our read and write
			continue
		}
		log.Infof("Plan %d reset: new cycle ends %s", plan.ID, newEnd.Format(time.RFC3339))
		resetIDs = append(resetIDs, plan.ID)
	}

	return resetIDs, nil
}

// RunResetSweeper periodically runs the expiry check so cycles roll over
// even when no client has loaded a page for a while. The check is
// idempotent, so overlapping with client-triggered resets is harmless.
func RunResetSweeper(interval time.Duration, stop <-chan struct{}) {
	log.Infof("Reset sweeper started (interval=%s)", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if ids, err := CheckAndResetExpiredPlans(time.Now()); err != nil {
				log.Errorf("Reset sweep failed: %v", err)
			} else if len(ids) > 0 {
				log.Infof("Reset sweep rolled %d plan(s): %v", len(ids), ids)
			}
		case <-stop:
			log.Info("Reset sweeper stopped")
			return
		}
	}
}
