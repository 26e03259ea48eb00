package model

import "time"

// User is the owning account for leases and fire commands. Tier determines
// slot capacity; AgentID is the remote execution agent that receives this
// user's commands.
type User struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Username          string    `gorm:"size:60;uniqueIndex" json:"username"`
	Tier              string    `gorm:"size:20;not null;default:recruit" json:"tier"`
	AgentID           string    `gorm:"size:60;index" json:"agent_id"`
	RiskFraction      float64   `json:"risk_fraction"`
	AgentKeyHash      string    `gorm:"column:agent_key;type:text" json:"-"`
	AgentSecretHash   string    `gorm:"column:agent_secret;type:text" json:"-"`
	OperatorTokenHash string    `gorm:"type:text" json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
