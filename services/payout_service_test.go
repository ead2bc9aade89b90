package services

import (
	"errors"
	"testing"

	"task-payout-system/models"

	"gorm.io/gorm"
)

func fundWorker(t *testing.T, db *gorm.DB, userID string, amount float64) {
	t.Helper()
	err := db.Transaction(func(tx *gorm.DB) error {
		return creditBalance(tx, userID, amount)
	})
	if err != nil {
		t.Fatalf("failed to fund worker: %v", err)
	}
}

func TestRequestDebitsAtRequestTime(t *testing.T) {
	db := newTestDB(t)
	svc := NewPayoutService(db, 40.00)
	worker := newWorker(t, db, "alice")
	fundWorker(t, db, worker.ID, 40.00)

	payout, err := svc.Request(worker.ID, 40.00, "Alice W", "usdt", "TRX9xy")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if payout.Status != models.PayoutRequested {
		t.Errorf("payout status = %s, want REQUESTED", payout.Status)
	}

	user := reloadUser(t, db, worker.ID)
	if user.PendingPayout != 0 {
		t.Errorf("pending_payout = %.2f, want 0", user.PendingPayout)
	}
	if user.TotalEarned != 40.00 {
		t.Errorf("total_earned = %.2f, want 40.00 (must not change on request)", user.TotalEarned)
	}
}

func TestRequestBelowMinimum(t *testing.T) {
	db := newTestDB(t)
	svc := NewPayoutService(db, 40.00)
	worker := newWorker(t, db, "alice")
	fundWorker(t, db, worker.ID, 100.00)

	if _, err := svc.Request(worker.ID, 10.00, "Alice W", "usdt", "TRX9xy"); !errors.Is(err, ErrBelowMinimum) {
		t.Fatalf("err = %v, want ErrBelowMinimum", err)
	}
	if user := reloadUser(t, db, worker.ID); user.PendingPayout != 100.00 {
		t.Errorf("pending_payout = %.2f, want 100.00", user.PendingPayout)
	}
}

func TestRequestOverBalanceLeavesNoState(t *testing.T) {
	db := newTestDB(t)
	svc := NewPayoutService(db, 10.00)
	worker := newWorker(t, db, "alice")
	fundWorker(t, db, worker.ID, 40.00)

	if _, err := svc.Request(worker.ID, 50.00, "Alice W", "usdt", "TRX9xy"); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}

	if user := reloadUser(t, db, worker.ID); user.PendingPayout != 40.00 {
		t.Errorf("pending_payout = %.2f, want 40.00", user.PendingPayout)
	}
	var count int64
	db.Model(&models.Payout{}).Count(&count)
	if count != 0 {
		t.Errorf("payout rows = %d, want 0", count)
	}
}

func TestRequestRequiresRecipientMetadata(t *testing.T) {
	db := newTestDB(t)
	svc := NewPayoutService(db, 10.00)
	worker := newWorker(t, db, "alice")
	fundWorker(t, db, worker.ID, 40.00)

	if _, err := svc.Request(worker.ID, 20.00, "", "usdt", "TRX9xy"); err == nil {
		t.Fatal("request with empty recipient name succeeded")
	}
	if _, err := svc.Request(worker.ID, 20.00, "Alice W", "usdt", "  "); err == nil {
		t.Fatal("request with blank method detail succeeded")
	}
	if user := reloadUser(t, db, worker.ID); user.PendingPayout != 40.00 {
		t.Errorf("pending_payout = %.2f, want 40.00", user.PendingPayout)
	}
}

func TestSequentialRequestsCannotOverdraw(t *testing.T) {
	db := newTestDB(t)
	svc := NewPayoutService(db, 10.00)
	worker := newWorker(t, db, "alice")
	fundWorker(t, db, worker.ID, 50.00)

	if _, err := svc.Request(worker.ID, 30.00, "Alice W", "usdt", "TRX9xy"); err != nil {
		t.Fatalf("first request failed: %v", err)
	}
	if _, err := svc.Request(worker.ID, 30.00, "Alice W", "usdt", "TRX9xy"); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("second request err = %v, want ErrInsufficientBalance", err)
	}
	if user := reloadUser(t, db, worker.ID); user.PendingPayout != 20.00 {
		t.Errorf("pending_payout = %.2f, want 20.00", user.PendingPayout)
	}
}

func TestRejectRefundsExactAmount(t *testing.T) {
	db := newTestDB(t)
	svc := NewPayoutService(db, 40.00)
	worker := newWorker(t, db, "alice")
	fundWorker(t, db, worker.ID, 40.00)

	payout, err := svc.Request(worker.ID, 40.00, "Alice W", "usdt", "TRX9xy")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if _, err := svc.RejectRequest(payout.ID); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	user := reloadUser(t, db, worker.ID)
	if user.PendingPayout != 40.00 {
		t.Errorf("pending_payout = %.2f, want 40.00 after refund", user.PendingPayout)
	}
	if user.TotalEarned != 40.00 {
		t.Errorf("total_earned = %.2f, want 40.00 (refund must not touch it)", user.TotalEarned)
	}

	// already handled — no double refund
	if _, err := svc.RejectRequest(payout.ID); !errors.Is(err, ErrNotEligible) {
		t.Fatalf("second reject err = %v, want ErrNotEligible", err)
	}
	if user := reloadUser(t, db, worker.ID); user.PendingPayout != 40.00 {
		t.Errorf("pending_payout = %.2f after double reject, want 40.00", user.PendingPayout)
	}
}

func TestMarkPaidLeavesBalanceAlone(t *testing.T) {
	db := newTestDB(t)
	svc := NewPayoutService(db, 10.00)
	worker := newWorker(t, db, "alice")
	fundWorker(t, db, worker.ID, 25.00)

	payout, err := svc.Request(worker.ID, 25.00, "Alice W", "bank", "DE44...")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	paid, err := svc.MarkPaid(payout.ID)
	if err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}
	if paid.Status != models.PayoutPaid || paid.PaidAt == nil {
		t.Errorf("paid payout = %s / paid_at %v", paid.Status, paid.PaidAt)
	}

	if user := reloadUser(t, db, worker.ID); user.PendingPayout != 0 {
		t.Errorf("pending_payout = %.2f, want 0 (paid is a no-op on balance)", user.PendingPayout)
	}

	if _, err := svc.MarkPaid(payout.ID); !errors.Is(err, ErrNotEligible) {
		t.Fatalf("second mark paid err = %v, want ErrNotEligible", err)
	}
	// a handled payout cannot be rejected either
	if _, err := svc.RejectRequest(payout.ID); !errors.Is(err, ErrNotEligible) {
		t.Fatalf("reject after paid err = %v, want ErrNotEligible", err)
	}
}
