package model

import "time"

// UserSlotState tracks how many execution slots a user currently occupies
// in one mode. The row is created lazily from the user's tier default and
// is only ever mutated inside the same transaction that creates or closes
// a SlotLease, so 0 <= slots_in_use <= max_slots holds at all times.
type UserSlotState struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index:idx_slot_state_user_mode,unique" json:"user_id"`
	Mode       string    `gorm:"size:10;not null;index:idx_slot_state_user_mode,unique" json:"mode"`
	Tier       string    `gorm:"size:20;not null" json:"tier"`
	MaxSlots   int       `gorm:"not null" json:"max_slots"`
	SlotsInUse int       `gorm:"not null;default:0" json:"slots_in_use"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (UserSlotState) TableName() string {
	return "user_slot_states"
}
