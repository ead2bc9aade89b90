package models

import "time"

// DailyCheckIn is the once-per-calendar-day reward grant. Uniqueness on
// (user_id, day) is the guard; the day is the server's local date.
type DailyCheckIn struct {
	ID           string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID       string    `gorm:"not null;uniqueIndex:idx_checkins_user_day" json:"user_id"`
	Day          string    `gorm:"not null;uniqueIndex:idx_checkins_user_day" json:"day"`
	RewardAmount float64   `gorm:"not null" json:"reward_amount"`
	CreatedAt    time.Time `json:"created_at"`
}
