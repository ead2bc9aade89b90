package services

import (
	"fmt"

	"task-payout-system/models"

	"gorm.io/gorm"
)

// Ledger helpers. Every mutation runs inside the caller's transaction so the
// balance change commits or rolls back with the state change that triggered
// it. Debits are guarded in the WHERE clause: pending_payout can never go
// negative regardless of concurrent requests.

// creditBalance adds a reward to both the lifetime counter and the spendable
// balance. Credits are strictly positive; a zero or negative amount would let
// total_earned shrink, so it is refused outright.
func creditBalance(tx *gorm.DB, userID string, amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("refusing credit of %.2f: amount must be positive", amount)
	}
	res := tx.Model(&models.User{}).Where("id = ?", userID).
		Updates(map[string]interface{}{
			"total_earned":   gorm.Expr("total_earned + ?", amount),
			"pending_payout": gorm.Expr("pending_payout + ?", amount),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// refundPending returns a previously debited amount to the spendable balance
// only. The lifetime counter is untouched — it was credited when the reward
// was earned, not when the payout was requested.
func refundPending(tx *gorm.DB, userID string, amount float64) error {
	res := tx.Model(&models.User{}).Where("id = ?", userID).
		Update("pending_payout", gorm.Expr("pending_payout + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// debitPending atomically reserves amount from the spendable balance. The
// balance check and the decrement are one statement, so two concurrent
// requests can never jointly overdraw.
func debitPending(tx *gorm.DB, userID string, amount float64) error {
	res := tx.Model(&models.User{}).
		Where("id = ? AND pending_payout >= ?", userID, amount).
		Update("pending_payout", gorm.Expr("pending_payout - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientBalance
	}
	return nil
}
