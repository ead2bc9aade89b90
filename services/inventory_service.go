package services

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"task-payout-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InventoryService struct {
	DB       *gorm.DB
	Notifier Notifier
}

func NewInventoryService(db *gorm.DB) *InventoryService {
	return &InventoryService{DB: db}
}

// BulkImport parses colon-delimited "username:password" lines and inserts
// each as an AVAILABLE inventory item. Failures are collected per line so a
// bad row never blocks the rest of the batch.
func (s *InventoryService) BulkImport(data string) (int, []string) {
	added := 0
	var failures []string

	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			failures = append(failures, "missing separator: "+line)
			continue
		}
		username := strings.TrimSpace(parts[0])
		password := strings.TrimSpace(parts[1])
		if username == "" || password == "" {
			failures = append(failures, "invalid format: "+line)
			continue
		}

		item := models.InventoryItem{
			ID:              uuid.NewString(),
			AccountUsername: username,
			AccountPassword: password,
			Status:          models.InventoryAvailable,
		}
		if err := s.DB.Create(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				failures = append(failures, "duplicate: "+username)
			} else {
				log.Printf("DB error importing inventory line %q: %v", username, err)
				failures = append(failures, "error: "+username)
			}
			continue
		}
		added++
	}
	return added, failures
}

// AddInventory is the admin bulk-import endpoint. New work is announced to
// linked Telegram accounts, best effort.
func (s *InventoryService) AddInventory(c *fiber.Ctx) error {
	var req struct {
		Lines string `json:"lines"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if strings.TrimSpace(req.Lines) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "no inventory lines provided"})
	}

	added, failures := s.BulkImport(req.Lines)

	if added > 0 && s.Notifier != nil {
		s.Notifier.Broadcast(fmt.Sprintf("%d new task(s) just landed — claim yours from the dashboard!", added))
	}

	resp := fiber.Map{"added": added, "failed": len(failures)}
	if len(failures) > 0 {
		// cap the echoed failures like the import report always has
		sample := failures
		if len(sample) > 5 {
			sample = sample[:5]
		}
		resp["failures"] = sample
	}
	return c.JSON(resp)
}

// AdminDashboard returns the queue counts the admin landing page shows
func (s *InventoryService) AdminDashboard(c *fiber.Ctx) error {
	var submittedTasks, availableItems, workers int64

	if err := s.DB.Model(&models.Task{}).
		Where("status = ?", models.TaskSubmitted).
		Count(&submittedTasks).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to count submitted tasks"})
	}
	if err := s.DB.Model(&models.InventoryItem{}).
		Where("status = ?", models.InventoryAvailable).
		Count(&availableItems).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to count inventory"})
	}
	if err := s.DB.Model(&models.User{}).
		Where("is_admin = ?", false).
		Count(&workers).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to count workers"})
	}

	return c.JSON(fiber.Map{
		"submitted_tasks":     submittedTasks,
		"available_inventory": availableItems,
		"workers":             workers,
	})
}
