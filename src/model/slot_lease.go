package model

import "time"

const (
	LeaseStateOpen   = "open"
	LeaseStateClosed = "closed"
)

const (
	LeaseModeManual = "manual"
	LeaseModeAuto   = "auto"
)

// SlotLease reserves one unit of a user's trading capacity for a mission.
// A (user_id, mission_id) pair is unique, so a mission can never hold more
// than one lease. Closed leases are kept for audit and excluded from
// capacity accounting.
type SlotLease struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index:idx_lease_user_mission,unique" json:"user_id"`
	MissionID string     `gorm:"size:64;not null;index:idx_lease_user_mission,unique" json:"mission_id"`
	Mode      string     `gorm:"size:10;not null" json:"mode"`
	Symbol    string     `gorm:"size:20;not null" json:"symbol"`
	Lots      float64    `json:"lots"`
	State     string     `gorm:"size:10;not null;default:open" json:"state"`
	OpenedAt  time.Time  `json:"opened_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName allows you to control the exact table name for leases.
func (SlotLease) TableName() string {
	return "slot_leases"
}
