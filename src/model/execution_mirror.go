package model

import "time"

// Markers written to the local execution mirror. The mirror is this
// service's audit trail for lease terminations; the agent's own reporting
// table is never written by us.
const (
	MirrorReclaimedOrphan       = "reclaimed_orphan"
	MirrorReclaimedTerminal     = "reclaimed_terminal"
	MirrorReclaimedStaleFill    = "reclaimed_stale_fill"
	MirrorReclaimedExpired      = "reclaimed_expired"
	MirrorClosedByCaller        = "closed_by_caller"
	MirrorAdvisoryBalanceDelta  = "advisory_balance_delta"
	MirrorForceReleasedOperator = "force_released_operator"
)

// ExecutionMirror is the local, write-side mirror of an execution status.
// One row per mission; reconciliation upserts a terminal marker here when
// it reclaims the lease.
type ExecutionMirror struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MissionID string    `gorm:"size:64;not null;uniqueIndex" json:"mission_id"`
	UserID    uint      `gorm:"index" json:"user_id"`
	Ticket    uint      `gorm:"index" json:"ticket"`
	Marker    string    `gorm:"size:40;not null" json:"marker"`
	Detail    string    `gorm:"type:text" json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ExecutionMirror) TableName() string {
	return "execution_mirrors"
}
