package models

import "time"

// User is a worker (or admin) account carrying its balance ledger.
// TotalEarned only ever grows; PendingPayout is the spendable balance and is
// kept >= 0 by conditional updates in the ledger.
type User struct {
	ID            string  `gorm:"primaryKey;type:uuid" json:"id"`
	Username      string  `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash  string  `gorm:"not null" json:"-"`
	IsAdmin       bool    `gorm:"default:false" json:"is_admin"`
	TotalEarned   float64 `gorm:"not null;default:0" json:"total_earned"`
	PendingPayout float64 `gorm:"not null;default:0" json:"pending_payout"`

	// Telegram link + one-time login token for bot-initiated logins
	TelegramID          *int64     `gorm:"uniqueIndex" json:"telegram_id,omitempty"`
	LoginToken          *string    `gorm:"index" json:"-"`
	LoginTokenExpiresAt *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
