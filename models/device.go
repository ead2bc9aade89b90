package models

import "time"

// Device binds a fingerprint (hash of client IP + user agent) to the first
// user seen with it. The same fingerprint showing up under a different user
// flags multi-accounting. One user with several devices is fine — each just
// registers its own row.
type Device struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	Fingerprint string    `gorm:"uniqueIndex;not null" json:"fingerprint"`
	UserID      string    `gorm:"not null;index" json:"user_id"`
	IPAddress   string    `json:"ip_address"`
	UserAgent   string    `gorm:"type:text" json:"user_agent"`
	FirstSeenAt time.Time `gorm:"autoCreateTime" json:"first_seen_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}
