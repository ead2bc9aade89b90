package models

import "time"

// InventoryStatus is the lifecycle of a claimable credential pair
type InventoryStatus string

const (
	InventoryAvailable InventoryStatus = "AVAILABLE"
	InventoryAssigned  InventoryStatus = "ASSIGNED"
	InventoryCompleted InventoryStatus = "COMPLETED"
)

// InventoryItem is one unit of outsourced work: a credential pair a worker
// claims, works on externally, and submits proof for. Status moves only
// through the task state machine.
type InventoryItem struct {
	ID              string          `gorm:"primaryKey;type:uuid" json:"id"`
	AccountUsername string          `gorm:"uniqueIndex;not null" json:"account_username"`
	AccountPassword string          `gorm:"not null" json:"account_password"`
	Status          InventoryStatus `gorm:"not null;default:'AVAILABLE';index" json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
}
