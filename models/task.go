package models

import "time"

// TaskStatus is the task state machine:
//
//	PENDING --submit--> SUBMITTED --verify--> VERIFIED
//	                              --reject--> REJECTED
//
// VERIFIED and REJECTED are terminal.
type TaskStatus string

const (
	TaskPending   TaskStatus = "PENDING"
	TaskSubmitted TaskStatus = "SUBMITTED"
	TaskVerified  TaskStatus = "VERIFIED"
	TaskRejected  TaskStatus = "REJECTED"
)

// Task is one worker's attempt at one inventory item.
//
// Active is non-NULL only while the task is open (PENDING/SUBMITTED) and is
// cleared on terminal transitions. The composite unique indexes on
// (user_id, active) and (inventory_id, active) make a second open task per
// worker, or per item, a duplicate-key failure instead of a race — unique
// indexes ignore NULLs, so terminal tasks never collide.
type Task struct {
	ID          string     `gorm:"primaryKey;type:uuid" json:"id"`
	InventoryID string     `gorm:"not null;index;uniqueIndex:idx_tasks_item_open" json:"inventory_id"`
	UserID      string     `gorm:"not null;index;uniqueIndex:idx_tasks_user_open" json:"user_id"`
	Status      TaskStatus `gorm:"not null;default:'PENDING';index" json:"status"`
	Active      *bool      `gorm:"uniqueIndex:idx_tasks_user_open;uniqueIndex:idx_tasks_item_open" json:"-"`
	ProofRef    string     `json:"proof_ref,omitempty"`
	AssignedAt  time.Time  `gorm:"autoCreateTime" json:"assigned_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Inventory InventoryItem `gorm:"foreignKey:InventoryID" json:"inventory,omitempty"`
	User      User          `gorm:"foreignKey:UserID" json:"-"`
}
