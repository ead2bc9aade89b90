package models

import "time"

// PayoutStatus: REQUESTED --paid--> PAID, REQUESTED --reject--> REJECTED.
// The balance is debited when the request is created; PAID never touches it
// and REJECTED refunds the exact requested amount.
type PayoutStatus string

const (
	PayoutRequested PayoutStatus = "REQUESTED"
	PayoutPaid      PayoutStatus = "PAID"
	PayoutRejected  PayoutStatus = "REJECTED"
)

// Payout is a withdrawal request against a worker's pending balance.
type Payout struct {
	ID            string       `gorm:"primaryKey;type:uuid" json:"id"`
	UserID        string       `gorm:"not null;index" json:"user_id"`
	Amount        float64      `gorm:"not null" json:"amount"`
	RecipientName string       `gorm:"not null" json:"recipient_name"`
	Method        string       `gorm:"not null" json:"method"`
	MethodDetail  string       `gorm:"not null" json:"method_detail"`
	Status        PayoutStatus `gorm:"not null;default:'REQUESTED';index" json:"status"`
	RequestedAt   time.Time    `gorm:"autoCreateTime" json:"requested_at"`
	PaidAt        *time.Time   `json:"paid_at,omitempty"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}
