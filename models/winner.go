package models

import (
	"time"
)

// Winner records a drawn winner for one plan cycle. Written in the same
// transaction as the draw so a cycle can never be re-rolled: the unique
// index on (plan_id, cycle_key) rejects a second row for the same cycle
// even when two draws race.
type Winner struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	PlanID         uint       `gorm:"uniqueIndex:idx_winners_plan_cycle" json:"plan_id"`
	OrderID        uint       `json:"order_id"`
	CycleStartDate *time.Time `json:"cycle_start_date"`
	CycleKey       string     `gorm:"size:40;uniqueIndex:idx_winners_plan_cycle" json:"-"`
	SelectedAt     time.Time  `json:"selected_at"`
	CreatedAt      time.Time  `json:"created_at"`

	Order *Order `gorm:"foreignKey:OrderID" json:"order,omitempty"`
}

// CycleKey flattens a cycle-start marker into a non-null index key.
// NULL columns compare distinct under unique indexes in both MySQL and
// SQLite, so a never-reset plan's first cycle gets a sentinel instead.
func CycleKey(marker *time.Time) string {
	if marker == nil {
		return "initial"
	}
	return marker.UTC().Format(time.RFC3339Nano)
}
