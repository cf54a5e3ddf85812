package services

import (
	"testing"
	"time"

	"github.com/Sadiakamal27/one-rupee-game/models"
	"github.com/stretchr/testify/assert"
)

func TestResolveEffectiveEndDate(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		end     *time.Time
		reset   *time.Time
		want    time.Time
		virtual bool
	}{
		{
			name: "future end date is authoritative",
			end:  timePtr(now.Add(72 * time.Hour)),
			want: now.Add(72 * time.Hour),
		},
		{
			name:    "missing end date synthesizes a full cycle",
			end:     nil,
			want:    now.Add(CycleLength),
			virtual: true,
		},
		{
			name:    "elapsed end date synthesizes a full cycle",
			end:     timePtr(now.Add(-24 * time.Hour)),
			want:    now.Add(CycleLength),
			virtual: true,
		},
		{
			name:    "end date exactly now counts as elapsed",
			end:     timePtr(now),
			want:    now.Add(CycleLength),
			virtual: true,
		},
		{
			name:    "end date before the cycle start is stale",
			end:     timePtr(now.Add(48 * time.Hour)),
			reset:   timePtr(now.Add(60 * time.Hour)),
			want:    now.Add(CycleLength),
			virtual: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := &models.GamePlan{EndDate: tt.end, LastResetDate: tt.reset}
			got := ResolveEffectiveEndDate(plan, now)
			assert.Equal(t, tt.want, got)
			if tt.virtual {
				assert.False(t, got.Before(now), "virtual end date must never be in the past")
			}
		})
	}
}

func TestRemainingTimeClampsAtZero(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	expired := &models.GamePlan{EndDate: timePtr(now.Add(-time.Hour))}
	assert.Equal(t, time.Duration(0), RemainingTime(expired, now))
	assert.True(t, PlanEnded(expired, now))

	running := &models.GamePlan{EndDate: timePtr(now.Add(time.Hour))}
	assert.Equal(t, time.Hour, RemainingTime(running, now))
	assert.False(t, PlanEnded(running, now))

	unset := &models.GamePlan{}
	assert.Equal(t, time.Duration(0), RemainingTime(unset, now))
	assert.False(t, PlanEnded(unset, now))
}

func TestBelongsToCurrentCycle(t *testing.T) {
	cycleStart := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	older := cycleStart.Add(-CycleLength)

	tests := []struct {
		name       string
		orderStart *time.Time
		planStart  *time.Time
		want       bool
	}{
		{"matching markers", timePtr(cycleStart), timePtr(cycleStart), true},
		{"stale order marker", timePtr(older), timePtr(cycleStart), false},
		{"never-reset plan, unmarked order", nil, nil, true},
		{"order missing marker under reset plan", nil, timePtr(cycleStart), false},
		{"marked order under never-reset plan", timePtr(cycleStart), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := &models.Order{CycleStartDate: tt.orderStart}
			plan := &models.GamePlan{LastResetDate: tt.planStart}
			assert.Equal(t, tt.want, BelongsToCurrentCycle(order, plan))
		})
	}
}

func TestClassifyLegacyOrderExpiredPlan(t *testing.T) {
	// Plan expired yesterday; one order placed well inside the old cycle,
	// one placed after expiry.
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	end := now.Add(-24 * time.Hour)
	plan := &models.GamePlan{EndDate: &end}

	old := &models.Order{CreatedAt: now.Add(-20 * 24 * time.Hour)}
	cycle, expiry := ClassifyLegacyOrder(old, plan, now)
	assert.Equal(t, CyclePrevious, cycle)
	assert.Equal(t, end, expiry)

	fresh := &models.Order{CreatedAt: now.Add(-12 * time.Hour)}
	cycle, expiry = ClassifyLegacyOrder(fresh, plan, now)
	assert.Equal(t, CycleVirtual, cycle)
	assert.Equal(t, fresh.CreatedAt.Add(CycleLength), expiry)
}

func TestClassifyLegacyOrderRunningPlan(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	end := now.Add(5 * 24 * time.Hour)
	plan := &models.GamePlan{EndDate: &end}

	// Recent order: the running end date is authoritative
	recent := &models.Order{CreatedAt: now.Add(-3 * 24 * time.Hour)}
	cycle, expiry := ClassifyLegacyOrder(recent, plan, now)
	assert.Equal(t, CycleCurrent, cycle)
	assert.Equal(t, end, expiry)

	// An order more than 25 days older than the end date cannot belong
	// to a 15-day cycle; it is a leftover from a previous one.
	ancient := &models.Order{CreatedAt: end.Add(-26 * 24 * time.Hour)}
	cycle, expiry = ClassifyLegacyOrder(ancient, plan, now)
	assert.Equal(t, CyclePrevious, cycle)
	assert.Equal(t, ancient.CreatedAt.Add(CycleLength), expiry)
}

func TestClassifyLegacyOrderNoEndDate(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	plan := &models.GamePlan{}

	order := &models.Order{CreatedAt: now.Add(-2 * 24 * time.Hour)}
	cycle, expiry := ClassifyLegacyOrder(order, plan, now)
	assert.Equal(t, CycleVirtual, cycle)
	assert.Equal(t, order.CreatedAt.Add(CycleLength), expiry)
}

func TestOrderCycleString(t *testing.T) {
	assert.Equal(t, "current", CycleCurrent.String())
	assert.Equal(t, "previous", CyclePrevious.String())
	assert.Equal(t, "virtual", CycleVirtual.String())
}
