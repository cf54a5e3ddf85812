package models

import (
	"time"
)

// Payment status values for an Order.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Order is one purchased entry into a plan's prize pool.
// CycleStartDate is copied from the plan's LastResetDate at creation time;
// an order belongs to the plan's current cycle iff the two markers are equal.
type Order struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	OrderID          string     `gorm:"size:20;uniqueIndex" json:"order_id"` // 7-digit zero-padded code
	Name             string     `gorm:"size:100" json:"name"`
	EasypaisaAccount string     `gorm:"size:50" json:"easypaisa_account"`
	PlanID           uint       `gorm:"index" json:"plan_id"`
	Amount           float64    `gorm:"type:decimal(12,2)" json:"amount"`
	PaymentStatus    string     `gorm:"size:20;index" json:"payment_status"` // pending, completed, failed
	CycleStartDate   *time.Time `json:"cycle_start_date"`
	CreatedAt        time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	Plan *GamePlan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
}
