package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/Sadiakamal27/one-rupee-game/models"
	"github.com/Sadiakamal27/one-rupee-game/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickWinnerEmptyPool(t *testing.T) {
	setupTestDB(t)

	plan := models.GamePlan{RewardTitle: "iPhone 17 Pro Max", Price: 1, GoalAmount: 50000}
	mustCreate(t, &plan)

	winner, err := PickWinner(plan.ID, time.Now())
	require.NoError(t, err)
	assert.Nil(t, winner, "empty pool must yield no winner, not an error")
}

func TestPickWinnerScopedToCurrentCycle(t *testing.T) {
	setupTestDB(t)

	cycleStart := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	staleStart := cycleStart.Add(-CycleLength)

	plan := models.GamePlan{RewardTitle: "Trip", Price: 1, GoalAmount: 20000, LastResetDate: &cycleStart}
	mustCreate(t, &plan)

	eligible := map[string]bool{}
	for i := 0; i < 3; i++ {
		order := models.Order{
			OrderID:        fmt.Sprintf("000010%d", i),
			Name:           fmt.Sprintf("player-%d", i),
			PlanID:         plan.ID,
			Amount:         1,
			PaymentStatus:  models.StatusCompleted,
			CycleStartDate: &cycleStart,
		}
		mustCreate(t, &order)
		eligible[order.OrderID] = true
	}
	// Stale cycle, pending and failed entries must never win
	mustCreate(t, &models.Order{
		OrderID: "0000200", PlanID: plan.ID, Amount: 1,
		PaymentStatus: models.StatusCompleted, CycleStartDate: &staleStart,
	})
	mustCreate(t, &models.Order{
		OrderID: "0000201", PlanID: plan.ID, Amount: 1,
		PaymentStatus: models.StatusPending, CycleStartDate: &cycleStart,
	})
	mustCreate(t, &models.Order{
		OrderID: "0000202", PlanID: plan.ID, Amount: 1,
		PaymentStatus: models.StatusFailed, CycleStartDate: &cycleStart,
	})

	winner, err := PickWinner(plan.ID, time.Now())
	require.NoError(t, err)
	require.NotNil(t, winner)
	require.NotNil(t, winner.Order)
	assert.True(t, eligible[winner.Order.OrderID],
		"winner %s must come from the current-cycle completed pool", winner.Order.OrderID)
}

func TestPickWinnerDoesNotReroll(t *testing.T) {
	setupTestDB(t)

	cycleStart := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	plan := models.GamePlan{RewardTitle: "Cash", Price: 1, GoalAmount: 10000, LastResetDate: &cycleStart}
	mustCreate(t, &plan)

	for i := 0; i < 5; i++ {
		mustCreate(t, &models.Order{
			OrderID: fmt.Sprintf("000030%d", i), PlanID: plan.ID, Amount: 1,
			PaymentStatus: models.StatusCompleted, CycleStartDate: &cycleStart,
		})
	}

	first, err := PickWinner(plan.ID, time.Now())
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := PickWinner(plan.ID, time.Now())
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, first.OrderID, second.OrderID, "a cycle is drawn at most once")

	var count int64
	require.NoError(t, utils.DB.Model(&models.Winner{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestPickWinnerNewCycleAllowsNewDraw(t *testing.T) {
	setupTestDB(t)

	oldStart := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	plan := models.GamePlan{RewardTitle: "Bike", Price: 1, GoalAmount: 30000, LastResetDate: &oldStart}
	mustCreate(t, &plan)
	mustCreate(t, &models.Order{
		OrderID: "0000400", PlanID: plan.ID, Amount: 1,
		PaymentStatus: models.StatusCompleted, CycleStartDate: &oldStart,
	})

	first, err := PickWinner(plan.ID, time.Now())
	require.NoError(t, err)
	require.NotNil(t, first)

	// Reset lands: fresh marker, fresh pool
	newStart := oldStart.Add(CycleLength)
	require.NoError(t, utils.DB.Model(&models.GamePlan{}).
		Where("id = ?", plan.ID).
		Update("last_reset_date", newStart).Error)
	mustCreate(t, &models.Order{
		OrderID: "0000401", PlanID: plan.ID, Amount: 1,
		PaymentStatus: models.StatusCompleted, CycleStartDate: &newStart,
	})

	second, err := PickWinner(plan.ID, time.Now())
	require.NoError(t, err)
	require.NotNil(t, second)
	require.NotNil(t, second.Order)
	assert.Equal(t, "0000401", second.Order.OrderID)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestPickFromPoolUniformity(t *testing.T) {
	const poolSize = 5
	const draws = 20000

	pool := make([]models.Order, poolSize)
	for i := range pool {
		pool[i] = models.Order{ID: uint(i + 1)}
	}

	counts := make(map[uint]int, poolSize)
	for i := 0; i < draws; i++ {
		counts[pickFromPool(pool).ID]++
	}

	// Each order should land near draws/poolSize; allow a generous
	// statistical margin so the test stays deterministic in practice.
	expected := float64(draws) / poolSize
	for id, n := range counts {
		assert.InDeltaf(t, expected, float64(n), expected*0.15,
			"order %d frequency drifted from uniform", id)
	}
	assert.Len(t, counts, poolSize, "every order must be drawable")
}

func TestWinnerUniquePerPlanCycle(t *testing.T) {
	setupTestDB(t)

	cycleStart := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	plan := models.GamePlan{RewardTitle: "Cash", Price: 1, GoalAmount: 10000, LastResetDate: &cycleStart}
	mustCreate(t, &plan)

	first := models.Winner{
		PlanID:         plan.ID,
		OrderID:        1,
		CycleStartDate: &cycleStart,
		CycleKey:       models.CycleKey(&cycleStart),
		SelectedAt:     time.Now(),
	}
	mustCreate(t, &first)

	// A second row for the same plan cycle must be rejected by the index,
	// not just the application-level check
	dup := models.Winner{
		PlanID:         plan.ID,
		OrderID:        2,
		CycleStartDate: &cycleStart,
		CycleKey:       models.CycleKey(&cycleStart),
		SelectedAt:     time.Now(),
	}
	assert.Error(t, utils.DB.Create(&dup).Error)

	var count int64
	require.NoError(t, utils.DB.Model(&models.Winner{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// A different cycle for the same plan is fine
	nextStart := cycleStart.Add(CycleLength)
	next := models.Winner{
		PlanID:         plan.ID,
		OrderID:        3,
		CycleStartDate: &nextStart,
		CycleKey:       models.CycleKey(&nextStart),
		SelectedAt:     time.Now(),
	}
	assert.NoError(t, utils.DB.Create(&next).Error)
}

func TestWinnerUniqueForNeverResetPlan(t *testing.T) {
	setupTestDB(t)

	plan := models.GamePlan{RewardTitle: "Bike", Price: 1, GoalAmount: 30000}
	mustCreate(t, &plan)

	// Nil markers flatten to a sentinel key, so the first cycle is still
	// covered: NULL values would compare distinct under the unique index
	mustCreate(t, &models.Winner{
		PlanID:   plan.ID,
		OrderID:  1,
		CycleKey: models.CycleKey(nil),
	})
	dup := models.Winner{
		PlanID:   plan.ID,
		OrderID:  2,
		CycleKey: models.CycleKey(nil),
	}
	assert.Error(t, utils.DB.Create(&dup).Error)
}

func TestCycleKey(t *testing.T) {
	assert.Equal(t, "initial", models.CycleKey(nil))

	marker := time.Date(2026, 3, 1, 5, 0, 0, 0, time.FixedZone("PKT", 5*3600))
	key := models.CycleKey(&marker)
	assert.Equal(t, "2026-03-01T00:00:00Z", key)

	same := marker.UTC()
	assert.Equal(t, key, models.CycleKey(&same), "equal instants must share a key")
}
