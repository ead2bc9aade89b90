package services

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"task-payout-system/models"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, NewDeviceService(db), nil)

	user, err := svc.Register("alice", "hunter22")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if user.PasswordHash == "hunter22" {
		t.Fatal("password stored in the clear")
	}

	got, err := svc.Authenticate("alice", "hunter22", "10.0.0.1", "Mozilla/5.0")
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("authenticated user = %s, want %s", got.ID, user.ID)
	}

	if _, err := svc.Authenticate("alice", "wrong", "10.0.0.1", "Mozilla/5.0"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("bad password err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Authenticate("nobody", "hunter22", "10.0.0.1", "Mozilla/5.0"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user err = %v, want ErrInvalidCredentials", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, NewDeviceService(db), nil)

	if _, err := svc.Register("alice", "short"); err == nil {
		t.Error("five-character password accepted")
	}
	if _, err := svc.Register("", "hunter22"); err == nil {
		t.Error("empty username accepted")
	}

	if _, err := svc.Register("alice", "hunter22"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := svc.Register("alice", "hunter23"); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("duplicate username err = %v, want ErrUsernameTaken", err)
	}
}

func TestLoginRefusedOnSharedDevice(t *testing.T) {
	db := newTestDB(t)
	devices := NewDeviceService(db)
	svc := NewAuthService(db, devices, nil)

	if _, err := svc.Register("alice", "hunter22"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := svc.Register("bob", "hunter22"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, err := svc.Authenticate("alice", "hunter22", "10.0.0.1", "Mozilla/5.0"); err != nil {
		t.Fatalf("alice's login failed: %v", err)
	}
	if _, err := svc.Authenticate("bob", "hunter22", "10.0.0.1", "Mozilla/5.0"); !errors.Is(err, ErrDeviceReused) {
		t.Fatalf("bob's login err = %v, want ErrDeviceReused", err)
	}
}

func TestTelegramLoginTokenFlow(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, NewDeviceService(db), nil)

	token, err := svc.IssueLoginToken(42, "alice_tg")
	if err != nil {
		t.Fatalf("issue token failed: %v", err)
	}

	// first contact created the linked account
	var user models.User
	if err := db.Where("telegram_id = ?", int64(42)).First(&user).Error; err != nil {
		t.Fatalf("linked account missing: %v", err)
	}
	if user.Username != "alice_tg" {
		t.Errorf("username = %s, want alice_tg", user.Username)
	}

	got, err := svc.ConsumeLoginToken(token, "10.0.0.1", "Mozilla/5.0")
	if err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("consumed user = %s, want %s", got.ID, user.ID)
	}

	// tokens are single use
	if _, err := svc.ConsumeLoginToken(token, "10.0.0.1", "Mozilla/5.0"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("reused token err = %v, want ErrInvalidCredentials", err)
	}

	// a second /start issues a fresh token for the same account, not a new account
	if _, err := svc.IssueLoginToken(42, "alice_tg"); err != nil {
		t.Fatalf("reissue failed: %v", err)
	}
	var count int64
	db.Model(&models.User{}).Where("telegram_id = ?", int64(42)).Count(&count)
	if count != 1 {
		t.Errorf("linked accounts = %d, want 1", count)
	}
}

func TestLoginTokenConsumedByExactlyOneSession(t *testing.T) {
	db := newTestDB(t)
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	svc := NewAuthService(db, NewDeviceService(db), nil)
	token, err := svc.IssueLoginToken(42, "alice_tg")
	if err != nil {
		t.Fatalf("issue token failed: %v", err)
	}

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.ConsumeLoginToken(token, "10.0.0.1", "Mozilla/5.0"); err == nil {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("token consumed %d times, want exactly once", wins)
	}
}

func TestExpiredLoginTokenRefused(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, NewDeviceService(db), nil)

	token, err := svc.IssueLoginToken(42, "alice_tg")
	if err != nil {
		t.Fatalf("issue token failed: %v", err)
	}

	past := time.Now().Add(-time.Minute)
	if err := db.Model(&models.User{}).
		Where("login_token = ?", token).
		Update("login_token_expires_at", past).Error; err != nil {
		t.Fatalf("failed to age token: %v", err)
	}

	if _, err := svc.ConsumeLoginToken(token, "10.0.0.1", "Mozilla/5.0"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expired token err = %v, want ErrInvalidCredentials", err)
	}
}
