package services

import (
	"fmt"
	"math"
	"time"

	"github.com/Sadiakamal27/one-rupee-game/models"
	"github.com/Sadiakamal27/one-rupee-game/utils"
)

// endingSoonWindow is how far ahead the results page looks for plans
// worth showing a countdown for.
const endingSoonWindow = 2 * 24 * time.Hour

// PlanView is a plan decorated with everything the game page renders:
// the effective (possibly virtual) end date, progress toward the goal,
// milestone tiers, and the current cycle's completed participants.
type PlanView struct {
	models.GamePlan

	EffectiveEndDate time.Time      `json:"effective_end_date"`
	DaysLeft         int            `json:"days_left"`
	Ended            bool           `json:"ended"`
	ProgressPercent  float64        `json:"progress_percent"`
	Milestones       []PlanTier     `json:"milestones"`
	Participants     []models.Order `json:"participants"`
}

// PlanTier is one milestone tier prepared for display.
type PlanTier struct {
	Amount     float64 `json:"amount"`
	RewardName string  `json:"reward_name"`
	ImageURL   string  `json:"image_url"`
	Percent    float64 `json:"percent"` // position within the goal, 0-100
}

// ProgressPercentage maps accumulated amount onto a 0-100 scale, capped
// at 100. Zero goal or zero progress both render as 0.
func ProgressPercentage(current, goal float64) float64 {
	if goal <= 0 || current <= 0 {
		return 0
	}
	return math.Min(current/goal*100, 100)
}

// defaultTiers are the milestone tiers shown when an admin has not
// authored any for a plan.
func defaultTiers(goal float64) []PlanTier {
	return []PlanTier{
		{Amount: goal * 0.1, RewardName: "cash", ImageURL: "/static/cash.png", Percent: 10},
		{Amount: goal * 0.3, RewardName: "small camera", ImageURL: "/static/smallcamera.jpg", Percent: 30},
		{Amount: goal * 0.6, RewardName: "phone", ImageURL: "/static/phone.png", Percent: 60},
		{Amount: goal, RewardName: "17 Pro Max", ImageURL: "/static/iphone17.webp", Percent: 100},
	}
}

// planTiers converts stored milestones into display tiers, deduplicating
// by reward name (the milestones table has accumulated duplicates), and
// falls back to the default tiers when a plan has none.
func planTiers(plan *models.GamePlan, stored []models.Milestone) []PlanTier {
	if len(stored) == 0 {
		return defaultTiers(plan.GoalAmount)
	}

	seen := make(map[string]bool, len(stored))
	tiers := make([]PlanTier, 0, len(stored))
	for _, m := range stored {
		if seen[m.RewardName] {
			continue
		}
		seen[m.RewardName] = true
		tiers = append(tiers, PlanTier{
			Amount:     m.Amount,
			RewardName: m.RewardName,
			ImageURL:   m.ImageURL,
			Percent:    ProgressPercentage(m.Amount, plan.GoalAmount),
		})
	}
	return tiers
}

// ListPlanViews assembles the home page payload: all plans ordered by
// entry price, each with milestones and its current-cycle participants.
func ListPlanViews(now time.Time) ([]PlanView, error) {
	var plans []models.GamePlan
	if err := utils.DB.Order("price asc").Find(&plans).Error; err != nil {
		return nil, err
	}

	var milestones []models.Milestone
	if err := utils.DB.Order("amount desc").Find(&milestones).Error; err != nil {
		return nil, err
	}
	byPlan := make(map[uint][]models.Milestone)
	for _, m := range milestones {
		byPlan[m.PlanID] = append(byPlan[m.PlanID], m)
	}

	views := make([]PlanView, 0, len(plans))
	for i := range plans {
		plan := &plans[i]

		participants, err := currentCycleParticipants(plan)
		if err != nil {
			return nil, err
		}

		effective := ResolveEffectiveEndDate(plan, now)
		daysLeft := int(math.Ceil(effective.Sub(now).Hours() / 24))

		views = append(views, PlanView{
			GamePlan:         *plan,
			EffectiveEndDate: effective,
			DaysLeft:         daysLeft,
			Ended:            PlanEnded(plan, now),
			ProgressPercent:  ProgressPercentage(plan.CurrentAmount, plan.GoalAmount),
			Milestones:       planTiers(plan, byPlan[plan.ID]),
			Participants:     participants,
		})
	}
	return views, nil
}

// currentCycleParticipants lists the plan's completed current-cycle
// orders, newest first, for the live participants panel.
func currentCycleParticipants(plan *models.GamePlan) ([]models.Order, error) {
	var orders []models.Order
	err := currentCycleOrders(utils.DB, plan).
		Order("created_at desc").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// PlanResult is one row of the results page: a plan ending soon with its
// server-computed countdown. Clients re-request or tick locally every
// second; the countdown string mirrors the on-air format.
type PlanResult struct {
	PlanID           uint    `json:"plan_id"`
	RewardTitle      string  `json:"reward_title"`
	RemainingSeconds int64   `json:"remaining_seconds"`
	Countdown        string  `json:"countdown"`
	GoalAmount       float64 `json:"goal_amount"`
	CurrentAmount    float64 `json:"current_amount"`
}

// ListEndingSoon returns plans whose persisted end date falls within the
// next two days. Already-ended and far-future plans are excluded; an
// empty list is a normal outcome, not an error.
func ListEndingSoon(now time.Time) ([]PlanResult, error) {
	var plans []models.GamePlan
	if err := utils.DB.
		Where("end_date IS NOT NULL AND end_date > ? AND end_date <= ?", now, now.Add(endingSoonWindow)).
		Order("end_date asc").
		Find(&plans).Error; err != nil {
		return nil, err
	}

	results := make([]PlanResult, 0, len(plans))
	for i := range plans {
		plan := &plans[i]
		left := RemainingTime(plan, now)
		results = append(results, PlanResult{
			PlanID:           plan.ID,
			RewardTitle:      plan.RewardTitle,
			RemainingSeconds: int64(left.Seconds()),
			Countdown:        FormatCountdown(left),
			GoalAmount:       plan.GoalAmount,
			CurrentAmount:    plan.CurrentAmount,
		})
	}
	return results, nil
}

// FormatCountdown renders a remaining duration as -DD:HH:MM:SS, dropping
// the day field when under a day.
func FormatCountdown(left time.Duration) string {
	if left < 0 {
		left = 0
	}
	total := int64(left.Seconds())
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	if days > 0 {
		return fmt.Sprintf("-%02d:%02d:%02d:%02d", days, hours, minutes, seconds)
	}
	return fmt.Sprintf("-%02d:%02d:%02d", hours, minutes, seconds)
}

// OrderView is an order annotated with the cycle it belongs to. Orders
// carrying the cycle-start marker use the canonical test; marker-less
// legacy rows fall back to the heuristic classifier.
type OrderView struct {
	models.Order

	Cycle     string    `json:"cycle"` // current, previous or virtual
	ExpiresAt time.Time `json:"expires_at"`
}

// ListOrders returns all orders newest first, each with its plan embedded
// and its cycle classification resolved.
func ListOrders(now time.Time) ([]OrderView, error) {
	var orders []models.Order
	if err := utils.DB.Preload("Plan").
		Order("created_at desc").
		Find(&orders).Error; err != nil {
		return nil, err
	}

	views := make([]OrderView, 0, len(orders))
	for i := range orders {
		order := &orders[i]
		view := OrderView{Order: *order}

		if order.Plan == nil {
			view.Cycle = CyclePrevious.String()
			view.ExpiresAt = order.CreatedAt.Add(CycleLength)
		} else if order.CycleStartDate != nil || order.Plan.LastResetDate == nil {
			if BelongsToCurrentCycle(order, order.Plan) {
				view.Cycle = CycleCurrent.String()
				view.ExpiresAt = ResolveEffectiveEndDate(order.Plan, now)
			} else {
				view.Cycle = CyclePrevious.String()
				view.ExpiresAt = orderCycleExpiry(order)
			}
		} else {
			cycle, expiry := ClassifyLegacyOrder(order, order.Plan, now)
			view.Cycle = cycle.String()
			view.ExpiresAt = expiry
		}

		views = append(views, view)
	}
	return views, nil
}

// orderCycleExpiry estimates when a settled order's own cycle ended.
func orderCycleExpiry(order *models.Order) time.Time {
	if order.CycleStartDate != nil {
		return order.CycleStartDate.Add(CycleLength)
	}
	return order.CreatedAt.Add(CycleLength)
}
