package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"task-payout-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PayoutService struct {
	DB        *gorm.DB
	MinPayout float64
	Notifier  Notifier
}

func NewPayoutService(db *gorm.DB, minPayout float64) *PayoutService {
	return &PayoutService{DB: db, MinPayout: minPayout}
}

// Request validates and reserves a withdrawal: the debit and the REQUESTED
// row are one transaction, so either both happen or neither does.
func (s *PayoutService) Request(userID string, amount float64, name, method, detail string) (*models.Payout, error) {
	if amount < s.MinPayout {
		return nil, ErrBelowMinimum
	}
	if strings.TrimSpace(name) == "" || strings.TrimSpace(method) == "" || strings.TrimSpace(detail) == "" {
		return nil, errors.New("recipient name, method and detail are all required")
	}

	payout := models.Payout{
		ID:            uuid.NewString(),
		UserID:        userID,
		Amount:        amount,
		RecipientName: strings.TrimSpace(name),
		Method:        strings.TrimSpace(method),
		MethodDetail:  strings.TrimSpace(detail),
		Status:        models.PayoutRequested,
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := debitPending(tx, userID, amount); err != nil {
			return err
		}
		return tx.Create(&payout).Error
	})
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

// MarkPaid settles a REQUESTED payout. The balance was debited when the
// request was created, so this only flips status and stamps the time.
func (s *PayoutService) MarkPaid(payoutID string) (*models.Payout, error) {
	var payout models.Payout
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&payout, "id = ?", payoutID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotEligible
			}
			return err
		}
		now := time.Now()
		res := tx.Model(&models.Payout{}).
			Where("id = ? AND status = ?", payoutID, models.PayoutRequested).
			Updates(map[string]interface{}{
				"status":  models.PayoutPaid,
				"paid_at": &now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotEligible
		}
		payout.Status = models.PayoutPaid
		payout.PaidAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.Notifier != nil {
		s.Notifier.NotifyUser(payout.UserID, fmt.Sprintf("Your payout of $%.2f has been paid.", payout.Amount))
	}
	return &payout, nil
}

// RejectRequest refuses a REQUESTED payout and refunds the exact requested
// amount to the worker's spendable balance.
func (s *PayoutService) RejectRequest(payoutID string) (*models.Payout, error) {
	var payout models.Payout
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&payout, "id = ?", payoutID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotEligible
			}
			return err
		}
		res := tx.Model(&models.Payout{}).
			Where("id = ? AND status = ?", payoutID, models.PayoutRequested).
			Update("status", models.PayoutRejected)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotEligible
		}
		if err := refundPending(tx, payout.UserID, payout.Amount); err != nil {
			return err
		}
		payout.Status = models.PayoutRejected
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

// --- Worker handlers ---

// RequestPayout handles the withdrawal form
func (s *PayoutService) RequestPayout(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		Amount        float64 `json:"amount"`
		RecipientName string  `json:"recipient_name"`
		Method        string  `json:"method"`
		MethodDetail  string  `json:"method_detail"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	payout, err := s.Request(userID, req.Amount, req.RecipientName, req.Method, req.MethodDetail)
	switch {
	case errors.Is(err, ErrBelowMinimum):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("minimum payout is $%.2f", s.MinPayout),
		})
	case errors.Is(err, ErrInsufficientBalance):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		if strings.Contains(err.Error(), "required") {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		log.Printf("DB error creating payout for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create the payout request"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": fmt.Sprintf("payout of $%.2f requested", payout.Amount),
		"payout":  payout,
	})
}

// ListMine returns the worker's own payout history
func (s *PayoutService) ListMine(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var payouts []models.Payout
	if err := s.DB.Where("user_id = ?", userID).
		Order("requested_at DESC").
		Find(&payouts).Error; err != nil {
		log.Printf("DB error listing payouts for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list payouts"})
	}
	return c.JSON(payouts)
}

// --- Admin handlers ---

// ListRequested returns the open payout queue, oldest first
func (s *PayoutService) ListRequested(c *fiber.Ctx) error {
	var payouts []models.Payout
	if err := s.DB.Preload("User").
		Where("status = ?", models.PayoutRequested).
		Order("requested_at asc").
		Find(&payouts).Error; err != nil {
		log.Printf("DB error listing requested payouts: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list payout requests"})
	}

	out := make([]fiber.Map, len(payouts))
	for i, p := range payouts {
		out[i] = fiber.Map{
			"payout_id":       p.ID,
			"worker_username": p.User.Username,
			"amount":          p.Amount,
			"recipient_name":  p.RecipientName,
			"method":          p.Method,
			"method_detail":   p.MethodDetail,
			"requested_at":    p.RequestedAt,
		}
	}
	return c.JSON(out)
}

// MarkPaidHandler marks a payout as settled
func (s *PayoutService) MarkPaidHandler(c *fiber.Ctx) error {
	payoutID := c.Params("id")
	payout, err := s.MarkPaid(payoutID)
	if err != nil {
		if errors.Is(err, ErrNotEligible) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "payout not found or already handled"})
		}
		log.Printf("DB error marking payout %s paid: %v", payoutID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to mark the payout paid"})
	}
	return c.JSON(fiber.Map{"message": fmt.Sprintf("payout of $%.2f marked as paid", payout.Amount)})
}

// RejectHandler refuses a payout and refunds the balance
func (s *PayoutService) RejectHandler(c *fiber.Ctx) error {
	payoutID := c.Params("id")
	payout, err := s.RejectRequest(payoutID)
	if err != nil {
		if errors.Is(err, ErrNotEligible) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "payout not found or already handled"})
		}
		log.Printf("DB error rejecting payout %s: %v", payoutID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to reject the payout"})
	}
	return c.JSON(fiber.Map{"message": fmt.Sprintf("payout rejected, $%.2f returned to the worker's balance", payout.Amount)})
}
