package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"task-payout-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const loginTokenTTL = 10 * time.Minute

type AuthService struct {
	DB       *gorm.DB
	Devices  *DeviceService
	Sessions *session.Store
}

func NewAuthService(db *gorm.DB, devices *DeviceService, sessions *session.Store) *AuthService {
	return &AuthService{DB: db, Devices: devices, Sessions: sessions}
}

// Register creates a worker account. Passwords are bcrypt-hashed; the unique
// index on username decides duplicates.
func (s *AuthService) Register(username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, errors.New("username and password are required")
	}
	if len(password) < 6 {
		return nil, errors.New("password must be at least 6 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
	}
	if err := s.DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return &user, nil
}

// Authenticate checks the password and runs the device heuristic. A
// fingerprint bound to another account refuses the login.
func (s *AuthService) Authenticate(username, password, ip, userAgent string) (*models.User, error) {
	var user models.User
	if err := s.DB.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := s.Devices.RegisterOrFlag(user.ID, ip, userAgent); err != nil {
		return nil, err
	}
	return &user, nil
}

// IssueLoginToken creates (on first contact) or finds the account linked to
// a Telegram identity and stamps a fresh one-time login token on it.
func (s *AuthService) IssueLoginToken(telegramID int64, tgUsername string) (string, error) {
	var user models.User
	err := s.DB.Where("telegram_id = ?", telegramID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		username := strings.TrimSpace(tgUsername)
		if username == "" {
			username = fmt.Sprintf("tg_%d", telegramID)
		}
		// password logins stay disabled until the user sets one; the hash of
		// a throwaway random secret can never be matched
		hash, hashErr := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
		if hashErr != nil {
			return "", hashErr
		}
		user = models.User{
			ID:           uuid.NewString(),
			Username:     username,
			PasswordHash: string(hash),
			TelegramID:   &telegramID,
		}
		if createErr := s.DB.Create(&user).Error; createErr != nil {
			if errors.Is(createErr, gorm.ErrDuplicatedKey) {
				// telegram username collides with an existing handle
				user.ID = uuid.NewString()
				user.Username = fmt.Sprintf("tg_%d", telegramID)
				if retryErr := s.DB.Create(&user).Error; retryErr != nil {
					return "", retryErr
				}
			} else {
				return "", createErr
			}
		}
	} else if err != nil {
		return "", err
	}

	token := uuid.NewString()
	expiry := time.Now().Add(loginTokenTTL)
	if err := s.DB.Model(&user).Updates(map[string]interface{}{
		"login_token":            token,
		"login_token_expires_at": expiry,
	}).Error; err != nil {
		return "", err
	}
	return token, nil
}

// ConsumeLoginToken trades a valid, unexpired token for the user and clears
// it so the link works exactly once.
func (s *AuthService) ConsumeLoginToken(token, ip, userAgent string) (*models.User, error) {
	var user models.User
	if err := s.DB.Where("login_token = ? AND login_token_expires_at > ?", token, time.Now()).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.Devices.RegisterOrFlag(user.ID, ip, userAgent); err != nil {
		return nil, err
	}
	// the clear is conditional on the token still being set, so two
	// concurrent consumes resolve to one winner
	res := s.DB.Model(&models.User{}).
		Where("id = ? AND login_token = ?", user.ID, token).
		Updates(map[string]interface{}{
			"login_token":            nil,
			"login_token_expires_at": nil,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

func (s *AuthService) startSession(c *fiber.Ctx, user *models.User) error {
	sess, err := s.Sessions.Get(c)
	if err != nil {
		return err
	}
	sess.Set("user_id", user.ID)
	return sess.Save()
}

// --- Handlers ---

// SignUp registers a new worker
func (s *AuthService) SignUp(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	user, err := s.Register(req.Username, req.Password)
	switch {
	case errors.Is(err, ErrUsernameTaken):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		if strings.Contains(err.Error(), "required") || strings.Contains(err.Error(), "password must") {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		log.Printf("DB error on signup: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create the account"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "account created, you can log in now", "user_id": user.ID})
}

// Login starts a session for a password login
func (s *AuthService) Login(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	user, err := s.Authenticate(req.Username, req.Password, c.IP(), c.Get("User-Agent"))
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrDeviceReused):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		log.Printf("DB error on login: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "login failed"})
	}

	if err := s.startSession(c, user); err != nil {
		log.Printf("Session error on login: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "login failed"})
	}
	return c.JSON(fiber.Map{"message": "logged in", "user": user})
}

// TelegramLogin starts a session from a one-time bot-issued token
func (s *AuthService) TelegramLogin(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "token is required"})
	}

	user, err := s.ConsumeLoginToken(token, c.IP(), c.Get("User-Agent"))
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "login link is invalid or expired"})
	case errors.Is(err, ErrDeviceReused):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		log.Printf("DB error on telegram login: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "login failed"})
	}

	if err := s.startSession(c, user); err != nil {
		log.Printf("Session error on telegram login: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "login failed"})
	}
	return c.JSON(fiber.Map{"message": "logged in via Telegram", "user": user})
}

// Logout destroys the session
func (s *AuthService) Logout(c *fiber.Ctx) error {
	sess, err := s.Sessions.Get(c)
	if err == nil {
		_ = sess.Destroy()
	}
	return c.JSON(fiber.Map{"message": "logged out"})
}
