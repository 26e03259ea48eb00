package externalmodel

import "time"

// Status values reported by the execution agent. The agent pushes SENT when
// a command is accepted, FILLED once the order is live, and a terminal
// status when it notices the position is gone. Close events are not pushed
// reliably, which is why reconciliation exists.
const (
	StatusSent      = "sent"
	StatusFilled    = "filled"
	StatusClosed    = "closed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// IsTerminal reports whether a status ends the trade's lifecycle.
func IsTerminal(status string) bool {
	switch status {
	case StatusClosed, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// ExecutionStatusRecord is the agent's own view of a fired command, read
// from the reporting database. This service never writes this table; the
// database user for the connection should have SELECT-only permissions.
type ExecutionStatusRecord struct {
	ID        uint       `gorm:"primaryKey;column:id" json:"id"`
	Ticket    uint       `gorm:"column:ticket" json:"ticket"`
	MissionID string     `gorm:"column:mission_id" json:"mission_id"`
	AgentID   string     `gorm:"column:agent_id" json:"agent_id"`
	UserID    uint       `gorm:"column:user_id" json:"user_id"`
	Symbol    string     `gorm:"column:symbol" json:"symbol"`
	Direction string     `gorm:"column:direction" json:"direction"`
	Lots      float64    `gorm:"column:lots" json:"lots"`
	Status    string     `gorm:"column:status" json:"status"`
	Price     *float64   `gorm:"column:price" json:"price,omitempty"`
	CreatedAt time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt *time.Time `gorm:"column:updated_at" json:"updated_at,omitempty"`
}

// TableName Ensures that GORM uses the exact table name from the agent's
// reporting schema.
func (ExecutionStatusRecord) TableName() string {
	return "agent_execution_status"
}

// AgentBalanceSnapshot is a periodic balance reading pushed by the agent.
// Only the reconciliation sweep reads it, for the advisory balance-delta
// heuristic.
type AgentBalanceSnapshot struct {
	ID        uint      `gorm:"primaryKey;column:id" json:"id"`
	AgentID   string    `gorm:"column:agent_id" json:"agent_id"`
	Balance   float64   `gorm:"column:balance" json:"balance"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (AgentBalanceSnapshot) TableName() string {
	return "agent_balance_snapshots"
}
