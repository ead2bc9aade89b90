package main

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"task-payout-system/handlers"
	"task-payout-system/models"
	"task-payout-system/notifier"
	"task-payout-system/services"
	"task-payout-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/encryptcookie"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}
	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		log.Fatal("SESSION_SECRET environment variable not set")
	}

	minPayout := envFloat("MIN_PAYOUT", 0.10)
	taskReward := envFloat("TASK_REWARD", 0.10)
	checkinReward := envFloat("CHECKIN_REWARD", 0.01)

	app := fiber.New(fiber.Config{
		BodyLimit: 16 * 1024 * 1024, // screenshots only
	})

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOrigins = "http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, User-Agent",
		AllowCredentials: true,
	}))

	// cookie payloads are encrypted with a key derived from the session secret
	keySum := sha256.Sum256([]byte(sessionSecret))
	app.Use(encryptcookie.New(encryptcookie.Config{
		Key: base64.StdEncoding.EncodeToString(keySum[:]),
	}))

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
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
		log.Fatal("failed to migrate database:", err)
	}

	seedAdmin(db)

	if err := utils.InitStorage(); err != nil {
		log.Fatal("failed to initialize proof storage:", err)
	}

	store := session.New(session.Config{
		CookieHTTPOnly: true,
		Expiration:     7 * 24 * time.Hour,
	})

	deviceService := services.NewDeviceService(db)
	authService := services.NewAuthService(db, deviceService, store)
	taskService := services.NewTaskService(db, taskReward)
	payoutService := services.NewPayoutService(db, minPayout)
	engagementService := services.NewEngagementService(db, checkinReward, deviceService)
	inventoryService := services.NewInventoryService(db)

	botToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	webhookBase := os.Getenv("WEBHOOK_BASE_URL")
	if botToken != "" && webhookBase != "" {
		bot, err := notifier.New(botToken, strings.TrimRight(webhookBase, "/"), db, authService)
		if err != nil {
			log.Fatal("failed to start Telegram bot:", err)
		}
		taskService.Notifier = bot
		payoutService.Notifier = bot
		inventoryService.Notifier = bot
		handlers.SetupBotRoutes(app, bot)
	} else {
		log.Println("⚠️  TELEGRAM_BOT_TOKEN/WEBHOOK_BASE_URL not set — Telegram channel disabled")
	}

	authService.StartTokenSweeper()

	handlers.SetupWorkerRoutes(app, store, authService, taskService, payoutService, engagementService)
	handlers.SetupAdminRoutes(app, store, db, taskService, payoutService, inventoryService, engagementService)

	app.Static("/uploads", "./uploads")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}
	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Printf("✅ Per-task reward $%.2f, minimum payout $%.2f", taskReward, minPayout)

	<-ctx.Done()
	log.Println("Shutting down server...")
	_ = app.ShutdownWithTimeout(10 * time.Second)
}

// seedAdmin creates the bootstrap admin account once; reruns are no-ops
func seedAdmin(db *gorm.DB) {
	username := os.Getenv("ADMIN_USERNAME")
	password := os.Getenv("ADMIN_PASSWORD")
	if username == "" || password == "" {
		log.Println("⚠️  ADMIN_USERNAME/ADMIN_PASSWORD not set — skipping admin bootstrap")
		return
	}

	var existing models.User
	err := db.Where("username = ?", username).First(&existing).Error
	if err == nil {
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Fatal("failed to check for admin account:", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("failed to hash admin password:", err)
	}
	admin := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		IsAdmin:      true,
	}
	if err := db.Create(&admin).Error; err != nil {
		log.Fatal("failed to create admin account:", err)
	}
	log.Printf("Admin account created: %s", username)
}

func envFloat(name string, fallback float64) float64 {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Fatalf("invalid %s value %q: %v", name, raw, err)
	}
	return v
}
