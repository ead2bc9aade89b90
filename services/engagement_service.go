package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"task-payout-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// EngagementService covers the micro-reward side channels: watching ads and
// the daily check-in. Both are insert-or-fail day grants — the unique index
// is the idempotency guard, never a read-then-insert.
type EngagementService struct {
	DB            *gorm.DB
	CheckinReward float64
	Devices       *DeviceService
}

func NewEngagementService(db *gorm.DB, checkinReward float64, devices *DeviceService) *EngagementService {
	return &EngagementService{DB: db, CheckinReward: checkinReward, Devices: devices}
}

func localDay() string {
	return time.Now().Format("2006-01-02")
}

// RedeemAd grants the ad's reward at most once per (user, ad, local day).
func (s *EngagementService) RedeemAd(userID, adID string) (float64, error) {
	var ad models.Ad
	if err := s.DB.First(&ad, "id = ?", adID).Error; err != nil {
		return 0, err
	}
	if !ad.Active {
		return 0, ErrNotEligible
	}

	view := models.AdView{
		ID:           uuid.NewString(),
		UserID:       userID,
		AdID:         ad.ID,
		Day:          localDay(),
		RewardAmount: ad.RewardAmount,
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&view).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyGranted
			}
			return err
		}
		return creditBalance(tx, userID, ad.RewardAmount)
	})
	if err != nil {
		return 0, err
	}
	return ad.RewardAmount, nil
}

// CheckIn grants the fixed daily reward at most once per (user, local day).
// The device heuristic runs first: a fingerprint bound to another account
// refuses the check-in before anything is written.
func (s *EngagementService) CheckIn(userID, ip, userAgent string) (float64, error) {
	if err := s.Devices.RegisterOrFlag(userID, ip, userAgent); err != nil {
		return 0, err
	}

	checkin := models.DailyCheckIn{
		ID:           uuid.NewString(),
		UserID:       userID,
		Day:          localDay(),
		RewardAmount: s.CheckinReward,
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&checkin).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyGranted
			}
			return err
		}
		return creditBalance(tx, userID, s.CheckinReward)
	})
	if err != nil {
		return 0, err
	}
	return s.CheckinReward, nil
}

// --- Worker handlers ---

// ListActiveAds returns ads a worker can currently watch
func (s *EngagementService) ListActiveAds(c *fiber.Ctx) error {
	var ads []models.Ad
	if err := s.DB.Where("active = ?", true).
		Order("created_at DESC").
		Find(&ads).Error; err != nil {
		log.Printf("DB error listing active ads: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list ads"})
	}
	return c.JSON(ads)
}

// RedeemAdHandler credits the ad reward once per day
func (s *EngagementService) RedeemAdHandler(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	adID := c.Params("id")
	if _, err := uuid.Parse(adID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid ad ID"})
	}

	amount, err := s.RedeemAd(userID, adID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "ad not found"})
	case errors.Is(err, ErrNotEligible):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "this ad is no longer active"})
	case errors.Is(err, ErrAlreadyGranted):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		log.Printf("DB error redeeming ad %s for %s: %v", adID, userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to redeem the ad reward"})
	}

	return c.JSON(fiber.Map{"message": fmt.Sprintf("$%.2f credited", amount), "amount": amount})
}

// CheckInHandler grants the daily check-in reward
func (s *EngagementService) CheckInHandler(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	amount, err := s.CheckIn(userID, c.IP(), c.Get("User-Agent"))
	switch {
	case errors.Is(err, ErrDeviceReused), errors.Is(err, ErrAlreadyGranted):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		log.Printf("DB error on check-in for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to check in"})
	}

	return c.JSON(fiber.Map{"message": fmt.Sprintf("checked in, $%.2f credited", amount), "amount": amount})
}

// --- Admin handlers ---

// CreateAd creates reward content (Admin only)
func (s *EngagementService) CreateAd(c *fiber.Ctx) error {
	var req struct {
		Title        string  `json:"title"`
		EmbedRef     string  `json:"embed_ref"`
		RewardAmount float64 `json:"reward_amount"`
		ViewSeconds  int     `json:"view_seconds"`
		Active       *bool   `json:"active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Title == "" || req.RewardAmount <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "title and a positive reward amount are required"})
	}
	if req.ViewSeconds <= 0 {
		req.ViewSeconds = 30
	}

	ad := models.Ad{
		ID:           uuid.NewString(),
		Title:        req.Title,
		Slug:         slug.Make(req.Title),
		EmbedRef:     req.EmbedRef,
		RewardAmount: req.RewardAmount,
		ViewSeconds:  req.ViewSeconds,
		Active:       true,
	}
	if req.Active != nil {
		ad.Active = *req.Active
	}

	if err := s.DB.Create(&ad).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "an ad with this title already exists"})
		}
		log.Printf("DB error creating ad: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create the ad"})
	}
	return c.Status(fiber.StatusCreated).JSON(ad)
}

// UpdateAd edits reward content (Admin only)
func (s *EngagementService) UpdateAd(c *fiber.Ctx) error {
	adID := c.Params("id")

	var ad models.Ad
	if err := s.DB.First(&ad, "id = ?", adID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "ad not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var req struct {
		Title        *string  `json:"title"`
		EmbedRef     *string  `json:"embed_ref"`
		RewardAmount *float64 `json:"reward_amount"`
		ViewSeconds  *int     `json:"view_seconds"`
		Active       *bool    `json:"active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.RewardAmount != nil && *req.RewardAmount <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "reward amount must be positive"})
	}
	if req.ViewSeconds != nil && *req.ViewSeconds <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "view seconds must be positive"})
	}

	if req.Title != nil {
		ad.Title = *req.Title
		ad.Slug = slug.Make(*req.Title)
	}
	if req.EmbedRef != nil {
		ad.EmbedRef = *req.EmbedRef
	}
	if req.RewardAmount != nil {
		ad.RewardAmount = *req.RewardAmount
	}
	if req.ViewSeconds != nil {
		ad.ViewSeconds = *req.ViewSeconds
	}
	if req.Active != nil {
		ad.Active = *req.Active
	}

	if err := s.DB.Save(&ad).Error; err != nil {
		log.Printf("DB error updating ad %s: %v", adID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update the ad"})
	}
	return c.JSON(ad)
}

// DeleteAd removes reward content (Admin only)
func (s *EngagementService) DeleteAd(c *fiber.Ctx) error {
	adID := c.Params("id")
	res := s.DB.Delete(&models.Ad{}, "id = ?", adID)
	if res.Error != nil {
		log.Printf("DB error deleting ad %s: %v", adID, res.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete the ad"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "ad not found"})
	}
	return c.JSON(fiber.Map{"message": "ad deleted"})
}

// ListAllAds returns every ad including inactive ones (Admin only)
func (s *EngagementService) ListAllAds(c *fiber.Ctx) error {
	var ads []models.Ad
	if err := s.DB.Order("created_at DESC").Find(&ads).Error; err != nil {
		log.Printf("DB error listing ads: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list ads"})
	}
	return c.JSON(ads)
}
