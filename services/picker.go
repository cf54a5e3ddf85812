package services

import (
	"math/rand"
	"time"

	"github.com/Sadiakamal27/one-rupee-game/models"
	"github.com/Sadiakamal27/one-rupee-game/utils"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// currentCycleOrders scopes a query to the plan's current cycle using the
// marker rule from BelongsToCurrentCycle.
func currentCycleOrders(db *gorm.DB, plan *models.GamePlan) *gorm.DB {
	q := db.Model(&models.Order{}).
		Where("plan_id = ? AND payment_status = ?", plan.ID, models.StatusCompleted)
	if plan.LastResetDate == nil {
		return q.Where("cycle_start_date IS NULL")
	}
	return q.Where("cycle_start_date = ?", plan.LastResetDate)
}

// EligibleOrders returns the winner pool for a plan: completed orders
// belonging to its current cycle, oldest first.
func EligibleOrders(plan *models.GamePlan) ([]models.Order, error) {
	var pool []models.Order
	err := currentCycleOrders(utils.DB, plan).
		Order("created_at asc").
		Find(&pool).Error
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// PickWinner draws one order uniformly at random from the plan's eligible
// pool and records it. The pool is the plan-scoped set of completed,
// current-cycle orders at call time; every entry has the same 1/k chance
// regardless of any participant numbering. An empty pool yields (nil, nil),
// not an error - the caller renders a neutral empty state.
//
// The winner row is written inside the draw transaction, so a second call
// for the same cycle returns the already recorded winner instead of
// re-rolling.
func PickWinner(planID uint, now time.Time) (*models.Winner, error) {
	var plan models.GamePlan
	if err := utils.DB.First(&plan, planID).Error; err != nil {
		return nil, err
	}

	// A cycle is drawn at most once
	if existing, err := winnerForCycle(utils.DB, &plan); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	pool, err := EligibleOrders(&plan)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, nil
	}

	picked := pickFromPool(pool)

	var winner *models.Winner
	err = utils.DB.Transaction(func(tx *gorm.DB) error {
		// Re-check under the transaction in case a concurrent draw landed
		if existing, errTx := winnerForCycle(tx, &plan); errTx != nil {
			return errTx
		} else if existing != nil {
			winner = existing
			return nil
		}

		winner = &models.Winner{
			PlanID:         plan.ID,
			OrderID:        picked.ID,
			CycleStartDate: plan.LastResetDate,
			CycleKey:       models.CycleKey(plan.LastResetDate),
			SelectedAt:     now,
		}
		return tx.Create(winner).Error
	})
	if err != nil {
		// A concurrent draw can land between the re-check and our insert;
		// the unique index on (plan_id, cycle_key) rejects ours. Whatever
		// was recorded for this cycle is the winner.
		if existing, errLoad := winnerForCycle(utils.DB, &plan); errLoad == nil && existing != nil {
			return existing, nil
		}
		return nil, err
	}

	if winner.Order == nil {
		winner.Order = &picked
	}

	log.Infof("Winner drawn for plan %d: order %s (%s), pool size %d",
		plan.ID, picked.OrderID, picked.Name, len(pool))
	return winner, nil
}

// pickFromPool draws one order with uniform probability over the pool.
// Fairness is over pool membership at call time, never over a
// caller-supplied participant-number range.
func pickFromPool(pool []models.Order) models.Order {
	return pool[rand.Intn(len(pool))]
}

// winnerForCycle loads the recorded winner for the plan's current cycle,
// if any.
func winnerForCycle(db *gorm.DB, plan *models.GamePlan) (*models.Winner, error) {
	q := db.Preload("Order").Where("plan_id = ?", plan.ID)
	if plan.LastResetDate == nil {
		q = q.Where("cycle_start_date IS NULL")
	} else {
		q = q.Where("cycle_start_date = ?", plan.LastResetDate)
	}

	var winner models.Winner
	if err := q.First(&winner).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &winner, nil
}
