package services

import (
	"time"

	"github.com/Sadiakamal27/one-rupee-game/models"
)

// CycleLength is the nominal duration of one plan cycle.
const CycleLength = 15 * 24 * time.Hour

// legacyCycleCutoff is the maximum age an order may have relative to a
// still-running plan end date before the legacy classifier assigns it to a
// previous cycle. Roughly 1.67x the nominal cycle length.
const legacyCycleCutoff = 25 * 24 * time.Hour

// ResolveEffectiveEndDate returns the end date used for display for the
// plan's current cycle. A persisted end date in the future is authoritative.
// When the end date is absent, earlier than the cycle start, or already
// elapsed, a virtual end date of now + CycleLength is synthesized instead.
// The virtual date is display-only and is never written back; persistence
// only happens through the reset trigger.
func ResolveEffectiveEndDate(plan *models.GamePlan, now time.Time) time.Time {
	end := plan.EndDate
	if end == nil {
		return now.Add(CycleLength)
	}
	if plan.LastResetDate != nil && end.Before(*plan.LastResetDate) {
		// Stale end date from before the current cycle started
		return now.Add(CycleLength)
	}
	if !end.After(now) {
		return now.Add(CycleLength)
	}
	return *end
}

// RemainingTime returns how long the plan's persisted cycle has left,
// clamped at zero. An expired plan whose reset has not landed yet must
// show "ended", never a negative countdown.
func RemainingTime(plan *models.GamePlan, now time.Time) time.Duration {
	if plan.EndDate == nil {
		return 0
	}
	left := plan.EndDate.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// PlanEnded reports whether the plan's persisted cycle has elapsed.
func PlanEnded(plan *models.GamePlan, now time.Time) bool {
	return plan.EndDate != nil && !plan.EndDate.After(now)
}

// BelongsToCurrentCycle reports whether the order belongs to the plan's
// current cycle. The sole correct test is marker equality: the order's
// CycleStartDate must match the plan's LastResetDate. A plan that has
// never been reset carries no marker, and neither do its orders; two
// absent markers still compare equal (the plan's first cycle). An order
// missing the marker under a reset plan is stale legacy data; comparing
// raw dates for it is ambiguous, use ClassifyLegacyOrder instead.
func BelongsToCurrentCycle(order *models.Order, plan *models.GamePlan) bool {
	if order.CycleStartDate == nil || plan.LastResetDate == nil {
		return order.CycleStartDate == nil && plan.LastResetDate == nil
	}
	return order.CycleStartDate.Equal(*plan.LastResetDate)
}

// OrderCycle classifies which cycle an order belongs to.
type OrderCycle int

const (
	// CycleCurrent - the order counts toward the plan's running cycle.
	CycleCurrent OrderCycle = iota
	// CyclePrevious - the order belongs to an earlier, already settled cycle.
	CyclePrevious
	// CycleVirtual - the order was placed after the plan's persisted end
	// date but before a reset landed; it is treated as an entry into a
	// client-visible extension with its own expiry.
	CycleVirtual
)

func (c OrderCycle) String() string {
	switch c {
	case CyclePrevious:
		return "previous"
	case CycleVirtual:
		return "virtual"
	default:
		return "current"
	}
}

// ClassifyLegacyOrder buckets an order that predates cycle-start markers.
// This is a heuristic for old rows only; new data always carries the marker
// and goes through BelongsToCurrentCycle. It returns the bucket and the
// estimated expiry of the cycle the order entered.
func ClassifyLegacyOrder(order *models.Order, plan *models.GamePlan, now time.Time) (OrderCycle, time.Time) {
	end := plan.EndDate

	if end != nil && end.After(now) {
		// Running cycle: the plan end date is authoritative unless the
		// order is too old to plausibly belong to it.
		if end.Sub(order.CreatedAt) > legacyCycleCutoff {
			return CyclePrevious, order.CreatedAt.Add(CycleLength)
		}
		return CycleCurrent, *end
	}

	if end != nil && order.CreatedAt.Before(*end) {
		// Placed before the cycle expired, settled with it.
		return CyclePrevious, *end
	}

	// Placed after expiry (or the plan never had an end date): the order
	// opens a virtual extension measured from its own creation time.
	return CycleVirtual, order.CreatedAt.Add(CycleLength)
}
