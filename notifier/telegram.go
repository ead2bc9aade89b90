package notifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"task-payout-system/models"
	"task-payout-system/services"
	"task-payout-system/utils"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Bot is the Telegram side channel: login-link delivery, balance/task
// queries over commands, and broadcasts. Every outbound send runs in its own
// goroutine and only logs failures — a dead Telegram API must never touch a
// business transaction.
type Bot struct {
	api     *tgbotapi.BotAPI
	db      *gorm.DB
	auth    *services.AuthService
	baseURL string
}

// New connects the bot and registers the webhook at
// {webhookBase}/telegram/webhook.
func New(token, webhookBase string, db *gorm.DB, auth *services.AuthService) (*Bot, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, utils.HTTPClient)
	if err != nil {
		return nil, fmt.Errorf("failed to connect bot: %w", err)
	}

	wh, err := tgbotapi.NewWebhook(webhookBase + "/telegram/webhook")
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook config: %w", err)
	}
	if _, err := api.Request(wh); err != nil {
		return nil, fmt.Errorf("failed to register webhook: %w", err)
	}

	log.Printf("Telegram bot connected as @%s", api.Self.UserName)
	return &Bot{api: api, db: db, auth: auth, baseURL: webhookBase}, nil
}

// WebhookHandler receives updates pushed by the Telegram API
func (b *Bot) WebhookHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var update tgbotapi.Update
		if err := json.Unmarshal(c.Body(), &update); err != nil {
			log.Printf("Telegram webhook: bad update payload: %v", err)
			return c.SendStatus(fiber.StatusBadRequest)
		}
		b.handleUpdate(update)
		return c.SendStatus(fiber.StatusOK)
	}
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	if update.Message == nil || !update.Message.IsCommand() {
		return
	}
	msg := update.Message
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		tgUsername := ""
		if msg.From != nil {
			tgUsername = msg.From.UserName
		}
		token, err := b.auth.IssueLoginToken(chatID, tgUsername)
		if err != nil {
			log.Printf("Telegram /start failed for chat %d: %v", chatID, err)
			b.send(chatID, "Something went wrong, please try again.")
			return
		}
		b.send(chatID, fmt.Sprintf("Welcome! Log in here (link valid 10 minutes):\n%s/login/telegram?token=%s", b.baseURL, token))

	case "balance":
		user, err := b.userByChat(chatID)
		if err != nil {
			b.send(chatID, "No account linked yet — send /start first.")
			return
		}
		b.send(chatID, fmt.Sprintf("Balance: $%.2f withdrawable, $%.2f earned in total.", user.PendingPayout, user.TotalEarned))

	case "task":
		user, err := b.userByChat(chatID)
		if err != nil {
			b.send(chatID, "No account linked yet — send /start first.")
			return
		}
		var task models.Task
		err = b.db.Preload("Inventory").
			Where("user_id = ? AND active = ?", user.ID, true).
			First(&task).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			b.send(chatID, "You have no open task. Claim one from the dashboard.")
			return
		}
		if err != nil {
			log.Printf("Telegram /task DB error for chat %d: %v", chatID, err)
			b.send(chatID, "Something went wrong, please try again.")
			return
		}
		b.send(chatID, fmt.Sprintf("Current task: %s (%s), assigned %s.",
			task.Inventory.AccountUsername, task.Status, task.AssignedAt.Format("2006-01-02 15:04")))

	default:
		b.send(chatID, "Commands: /start, /balance, /task")
	}
}

func (b *Bot) userByChat(chatID int64) (*models.User, error) {
	var user models.User
	if err := b.db.Where("telegram_id = ?", chatID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (b *Bot) send(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Printf("Telegram send to %d failed: %v", chatID, err)
	}
}

// NotifyUser delivers a message to a single linked account, best effort
func (b *Bot) NotifyUser(userID, message string) {
	go func() {
		var user models.User
		if err := b.db.Select("telegram_id").First(&user, "id = ?", userID).Error; err != nil {
			log.Printf("Telegram notify: user %s not found: %v", userID, err)
			return
		}
		if user.TelegramID == nil {
			return
		}
		b.send(*user.TelegramID, message)
	}()
}

// Broadcast fans a message out to every linked account, best effort
func (b *Bot) Broadcast(message string) {
	go func() {
		var users []models.User
		if err := b.db.Select("telegram_id").
			Where("telegram_id IS NOT NULL").
			Find(&users).Error; err != nil {
			log.Printf("Telegram broadcast: failed to list recipients: %v", err)
			return
		}
		for _, u := range users {
			if u.TelegramID != nil {
				b.send(*u.TelegramID, message)
			}
		}
	}()
}
