package services

import (
	"fmt"
	"testing"

	"task-payout-system/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.InventoryItem{},
		&models.Task{},
		&models.Payout{},
		&models.Ad{},
		&models.AdView{},
		&models.DailyCheckIn{},
		&models.Device{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func newWorker(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: "irrelevant",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create worker %s: %v", username, err)
	}
	return &user
}

func addItem(t *testing.T, db *gorm.DB, accountUsername string) *models.InventoryItem {
	t.Helper()
	item := models.InventoryItem{
		ID:              uuid.NewString(),
		AccountUsername: accountUsername,
		AccountPassword: "pw1",
		Status:          models.InventoryAvailable,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("failed to create inventory item %s: %v", accountUsername, err)
	}
	return &item
}

func reloadUser(t *testing.T, db *gorm.DB, id string) *models.User {
	t.Helper()
	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		t.Fatalf("failed to reload user %s: %v", id, err)
	}
	return &user
}
