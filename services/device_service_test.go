package services

import (
	"errors"
	"testing"

	"task-payout-system/models"
)

func TestFingerprintIsStable(t *testing.T) {
	a := Fingerprint("10.0.0.1", "Mozilla/5.0")
	b := Fingerprint("10.0.0.1", "Mozilla/5.0")
	if a != b {
		t.Fatalf("same inputs produced different fingerprints: %s vs %s", a, b)
	}
	if a == Fingerprint("10.0.0.2", "Mozilla/5.0") {
		t.Error("different IPs produced the same fingerprint")
	}
	if a == Fingerprint("10.0.0.1", "curl/8.0") {
		t.Error("different user agents produced the same fingerprint")
	}
}

func TestRegisterBindsFirstUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewDeviceService(db)
	alice := newWorker(t, db, "alice")
	bob := newWorker(t, db, "bob")

	if err := svc.RegisterOrFlag(alice.ID, "10.0.0.1", "Mozilla/5.0"); err != nil {
		t.Fatalf("first sight failed: %v", err)
	}
	// repeat sight by the owner is fine
	if err := svc.RegisterOrFlag(alice.ID, "10.0.0.1", "Mozilla/5.0"); err != nil {
		t.Fatalf("owner repeat failed: %v", err)
	}
	// the same fingerprint under another account is flagged
	if err := svc.RegisterOrFlag(bob.ID, "10.0.0.1", "Mozilla/5.0"); !errors.Is(err, ErrDeviceReused) {
		t.Fatalf("reuse err = %v, want ErrDeviceReused", err)
	}

	var count int64
	db.Model(&models.Device{}).Count(&count)
	if count != 1 {
		t.Errorf("device rows = %d, want 1", count)
	}
}

func TestSecondDeviceOfSameUserAllowed(t *testing.T) {
	db := newTestDB(t)
	svc := NewDeviceService(db)
	alice := newWorker(t, db, "alice")

	if err := svc.RegisterOrFlag(alice.ID, "10.0.0.1", "Mozilla/5.0"); err != nil {
		t.Fatalf("first device failed: %v", err)
	}
	if err := svc.RegisterOrFlag(alice.ID, "192.168.1.7", "Mobile Safari"); err != nil {
		t.Fatalf("second device failed: %v", err)
	}

	var count int64
	db.Model(&models.Device{}).Where("user_id = ?", alice.ID).Count(&count)
	if count != 2 {
		t.Errorf("device rows = %d, want 2", count)
	}
}
