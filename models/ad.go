package models

import "time"

// Ad is admin-managed reward content a worker watches for a micro-reward.
type Ad struct {
	ID           string    `gorm:"primaryKey;type:uuid" json:"id"`
	Title        string    `gorm:"not null" json:"title"`
	Slug         string    `gorm:"uniqueIndex;not null" json:"slug"`
	EmbedRef     string    `gorm:"type:text" json:"embed_ref"`
	RewardAmount float64   `gorm:"not null" json:"reward_amount"`
	ViewSeconds  int       `gorm:"not null;default:30" json:"view_seconds"`
	Active       bool      `gorm:"default:true;index" json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AdView records one reward grant. The unique index on (user_id, ad_id, day)
// makes the per-day grant insert-or-fail; a duplicate key is the idempotent
// "already rewarded today" outcome.
type AdView struct {
	ID           string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID       string    `gorm:"not null;uniqueIndex:idx_ad_views_user_ad_day" json:"user_id"`
	AdID         string    `gorm:"not null;uniqueIndex:idx_ad_views_user_ad_day" json:"ad_id"`
	Day          string    `gorm:"not null;uniqueIndex:idx_ad_views_user_ad_day" json:"day"`
	RewardAmount float64   `gorm:"not null" json:"reward_amount"`
	CreatedAt    time.Time `json:"created_at"`
}
