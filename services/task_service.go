package services

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"task-payout-system/models"
	"task-payout-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskService struct {
	DB       *gorm.DB
	Reward   float64 // credited per verified task
	Notifier Notifier
}

func NewTaskService(db *gorm.DB, reward float64) *TaskService {
	return &TaskService{DB: db, Reward: reward}
}

// Claim atomically assigns one AVAILABLE inventory item to the worker and
// opens a PENDING task. Two guards back the invariants: the status flip is a
// conditional update (two workers racing for the last item resolve to one
// winner), and the task insert hits the (user_id, active) unique index (two
// claims from the same worker resolve to one open task).
func (s *TaskService) Claim(userID string) (*models.Task, error) {
	var claimed *models.Task
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var open int64
		if err := tx.Model(&models.Task{}).
			Where("user_id = ? AND active = ?", userID, true).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return ErrTaskInProgress
		}

		var item models.InventoryItem
		if err := tx.Where("status = ?", models.InventoryAvailable).
			Order("created_at asc").First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoWork
			}
			return err
		}

		res := tx.Model(&models.InventoryItem{}).
			Where("id = ? AND status = ?", item.ID, models.InventoryAvailable).
			Update("status", models.InventoryAssigned)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// someone else took it between the select and the flip
			return ErrNoWork
		}

		active := true
		task := models.Task{
			ID:          uuid.NewString(),
			InventoryID: item.ID,
			UserID:      userID,
			Status:      models.TaskPending,
			Active:      &active,
		}
		if err := tx.Create(&task).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrTaskInProgress
			}
			return err
		}
		item.Status = models.InventoryAssigned
		task.Inventory = item
		claimed = &task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// Submit attaches the proof reference to the worker's own PENDING task and
// flips it to SUBMITTED.
func (s *TaskService) Submit(userID, taskID, proofRef string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.First(&task, "id = ?", taskID).Error; err != nil {
			return err
		}
		if task.UserID != userID {
			return gorm.ErrRecordNotFound
		}

		now := time.Now()
		res := tx.Model(&models.Task{}).
			Where("id = ? AND status = ?", taskID, models.TaskPending).
			Updates(map[string]interface{}{
				"status":       models.TaskSubmitted,
				"proof_ref":    proofRef,
				"completed_at": &now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotEligible
		}
		return nil
	})
}

// Verify credits the per-task reward, completes the inventory item and closes
// the task. Only a SUBMITTED task transitions; re-invoking on a VERIFIED task
// is refused by the conditional update, so the reward is applied exactly once.
func (s *TaskService) Verify(taskID string) error {
	var workerID string
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.First(&task, "id = ?", taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotEligible
			}
			return err
		}

		res := tx.Model(&models.Task{}).
			Where("id = ? AND status = ?", taskID, models.TaskSubmitted).
			Updates(map[string]interface{}{
				"status": models.TaskVerified,
				"active": nil,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotEligible
		}

		if err := tx.Model(&models.InventoryItem{}).
			Where("id = ?", task.InventoryID).
			Update("status", models.InventoryCompleted).Error; err != nil {
			return err
		}
		if err := creditBalance(tx, task.UserID, s.Reward); err != nil {
			return err
		}
		workerID = task.UserID
		return nil
	})
	if err != nil {
		return err
	}
	if s.Notifier != nil {
		s.Notifier.NotifyUser(workerID, fmt.Sprintf("Your task was verified — $%.2f credited to your balance.", s.Reward))
	}
	return nil
}

// Reject closes the task and returns the inventory item to AVAILABLE so it
// can be claimed again. No balance change.
func (s *TaskService) Reject(taskID string) error {
	var workerID string
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.First(&task, "id = ?", taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotEligible
			}
			return err
		}

		res := tx.Model(&models.Task{}).
			Where("id = ? AND status = ?", taskID, models.TaskSubmitted).
			Updates(map[string]interface{}{
				"status": models.TaskRejected,
				"active": nil,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotEligible
		}

		if err := tx.Model(&models.InventoryItem{}).
			Where("id = ?", task.InventoryID).
			Update("status", models.InventoryAvailable).Error; err != nil {
			return err
		}
		workerID = task.UserID
		return nil
	})
	if err != nil {
		return err
	}
	if s.Notifier != nil {
		s.Notifier.NotifyUser(workerID, "Your submission was rejected. The task went back to the pool.")
	}
	return nil
}

// CurrentTask returns the worker's open task with credentials, if any.
func (s *TaskService) CurrentTask(userID string) (*models.Task, error) {
	var task models.Task
	err := s.DB.Preload("Inventory").
		Where("user_id = ? AND active = ?", userID, true).
		First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

// --- Worker handlers ---

// Dashboard returns the worker's balances, current task, work availability
// and task history.
func (s *TaskService) Dashboard(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var user models.User
	if err := s.DB.First(&user, "id = ?", userID).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load account"})
	}

	current, err := s.CurrentTask(userID)
	if err != nil {
		log.Printf("DB error loading current task for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load current task"})
	}

	var availableCount int64
	if err := s.DB.Model(&models.InventoryItem{}).
		Where("status = ?", models.InventoryAvailable).
		Count(&availableCount).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to count available work"})
	}

	var history []models.Task
	if err := s.DB.Preload("Inventory").
		Where("user_id = ?", userID).
		Order("assigned_at DESC").
		Find(&history).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load task history"})
	}

	historyOut := make([]fiber.Map, len(history))
	for i, t := range history {
		historyOut[i] = fiber.Map{
			"id":               t.ID,
			"account_username": t.Inventory.AccountUsername,
			"status":           t.Status,
			"assigned_at":      t.AssignedAt,
		}
	}

	resp := fiber.Map{
		"user":           user,
		"work_available": availableCount > 0,
		"my_tasks":       historyOut,
	}
	if current != nil {
		resp["current_task"] = fiber.Map{
			"id":               current.ID,
			"status":           current.Status,
			"account_username": current.Inventory.AccountUsername,
			"account_password": current.Inventory.AccountPassword,
			"assigned_at":      current.AssignedAt,
		}
	}
	return c.JSON(resp)
}

// ClaimTask hands the worker one available item
func (s *TaskService) ClaimTask(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	task, err := s.Claim(userID)
	switch {
	case errors.Is(err, ErrTaskInProgress), errors.Is(err, ErrNoWork):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		log.Printf("DB error claiming task for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to claim a task"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "task assigned",
		"task": fiber.Map{
			"id":               task.ID,
			"status":           task.Status,
			"account_username": task.Inventory.AccountUsername,
			"account_password": task.Inventory.AccountPassword,
		},
	})
}

// SubmitTask stores the uploaded proof screenshot and marks the task
// SUBMITTED. The object key carries task, worker and timestamp so uploads
// never collide.
func (s *TaskService) SubmitTask(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	taskID := c.Params("id")
	if _, err := uuid.Parse(taskID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid task ID"})
	}

	// nothing is stored until the task is known to be the caller's open one;
	// Submit re-checks the state inside its transaction
	var task models.Task
	if err := s.DB.First(&task, "id = ?", taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "task not found or not yours"})
		}
		log.Printf("DB error loading task %s: %v", taskID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to submit the task"})
	}
	if task.UserID != userID {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "task not found or not yours"})
	}
	if task.Status != models.TaskPending {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "task was already submitted or closed"})
	}

	fileHeader, err := c.FormFile("screenshot")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "a proof screenshot is required"})
	}

	ext := filepath.Ext(fileHeader.Filename)
	if ext == "" {
		ext = ".png"
	}
	key := fmt.Sprintf("proofs/task_%s_%s_%d%s", taskID, userID, time.Now().Unix(), ext)

	proofRef, err := utils.StoreProof(fileHeader, key)
	if err != nil {
		log.Printf("Failed to store proof for task %s: %v", taskID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to store the screenshot"})
	}

	if err := s.Submit(userID, taskID, proofRef); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "task not found or not yours"})
		case errors.Is(err, ErrNotEligible):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "task was already submitted or closed"})
		default:
			log.Printf("DB error submitting task %s: %v", taskID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to submit the task"})
		}
	}

	return c.JSON(fiber.Map{"message": "submitted — waiting for admin verification", "proof_ref": proofRef})
}

// --- Admin handlers ---

// ListSubmitted returns the verification queue, oldest submission first
func (s *TaskService) ListSubmitted(c *fiber.Ctx) error {
	var tasks []models.Task
	if err := s.DB.Preload("Inventory").Preload("User").
		Where("status = ?", models.TaskSubmitted).
		Order("completed_at asc").
		Find(&tasks).Error; err != nil {
		log.Printf("DB error listing submitted tasks: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list submitted tasks"})
	}

	out := make([]fiber.Map, len(tasks))
	for i, t := range tasks {
		out[i] = fiber.Map{
			"task_id":          t.ID,
			"worker_username":  t.User.Username,
			"account_username": t.Inventory.AccountUsername,
			"proof_ref":        t.ProofRef,
			"completed_at":     t.CompletedAt,
		}
	}
	return c.JSON(out)
}

// VerifyTask approves a submission and credits the worker
func (s *TaskService) VerifyTask(c *fiber.Ctx) error {
	taskID := c.Params("id")
	if err := s.Verify(taskID); err != nil {
		if errors.Is(err, ErrNotEligible) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "task not found or not ready for verification"})
		}
		log.Printf("DB error verifying task %s: %v", taskID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to verify the task"})
	}
	return c.JSON(fiber.Map{"message": fmt.Sprintf("task verified, $%.2f credited", s.Reward)})
}

// RejectTask refuses a submission and frees the inventory item
func (s *TaskService) RejectTask(c *fiber.Ctx) error {
	taskID := c.Params("id")
	if err := s.Reject(taskID); err != nil {
		if errors.Is(err, ErrNotEligible) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "task not found or not ready for verification"})
		}
		log.Printf("DB error rejecting task %s: %v", taskID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to reject the task"})
	}
	return c.JSON(fiber.Map{"message": "task rejected, item returned to the pool"})
}
