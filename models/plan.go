package models

import (
	"time"
)

// GamePlan is one prize offer and its current funding cycle.
// CurrentAmount is only meaningful inside the cycle delimited by
// LastResetDate -> EndDate; a reset zeroes it and stamps a new marker.
type GamePlan struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Name          string     `gorm:"size:100" json:"name"`
	Price         int        `json:"price"` // entry price in rupees
	RewardTitle   string     `gorm:"size:100" json:"reward_title"`
	GoalAmount    float64    `gorm:"type:decimal(12,2)" json:"goal_amount"`
	CurrentAmount float64    `gorm:"type:decimal(12,2)" json:"current_amount"`
	EndDate       *time.Time `gorm:"index" json:"end_date"`
	LastResetDate *time.Time `json:"last_reset_date"` // start of the current cycle
	ImageURL      string     `gorm:"size:255" json:"image_url"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Milestone is a reward tier inside a plan's funding goal, used for the
// progress tube display only. Admin-authored, read-only from the game side.
type Milestone struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PlanID     uint      `gorm:"index" json:"plan_id"`
	Amount     float64   `gorm:"type:decimal(12,2)" json:"amount"`
	RewardName string    `gorm:"size:100" json:"reward_name"`
	ImageURL   string    `gorm:"size:255" json:"image_url"`
	CreatedAt  time.Time `json:"created_at"`
}
