package model

import "time"

// Exception persists a system-level failure for auditing and operator
// review. Dispatch failures and ambiguous reconciliation outcomes land
// here so they are never lost to log rotation.
type Exception struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// Where the failure happened
	Service string `gorm:"size:100;index" json:"service"` // e.g. "firecontrol"
	Module  string `gorm:"size:100;index" json:"module"`  // e.g. "dispatch"
	Method  string `gorm:"size:100" json:"method"`        // e.g. "Enqueue"

	// Failure information
	Message string `gorm:"type:text" json:"message"`

	// Severity level
	Level string `gorm:"size:20;index" json:"level"` // debug | info | warn | error | fatal

	// Related identifiers, zero when not applicable
	UserID    uint   `gorm:"index" json:"user_id,omitempty"`
	MissionID string `gorm:"size:64;index" json:"mission_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (Exception) TableName() string {
	return "exceptions"
}
