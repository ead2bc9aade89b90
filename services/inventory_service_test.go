package services

import (
	"testing"

	"task-payout-system/models"
)

func TestBulkImportParsesLines(t *testing.T) {
	db := newTestDB(t)
	svc := NewInventoryService(db)

	added, failures := svc.BulkImport("a@x:pw1\nb@x:pw2\n\nbroken-line\n:nouser\n")
	if added != 2 {
		t.Errorf("added = %d, want 2", added)
	}
	if len(failures) != 2 {
		t.Fatalf("failures = %v, want 2 entries", failures)
	}

	var count int64
	db.Model(&models.InventoryItem{}).Where("status = ?", models.InventoryAvailable).Count(&count)
	if count != 2 {
		t.Errorf("available items = %d, want 2", count)
	}
}

func TestBulkImportRejectsDuplicates(t *testing.T) {
	db := newTestDB(t)
	svc := NewInventoryService(db)

	added, failures := svc.BulkImport("a@x:pw1")
	if added != 1 || len(failures) != 0 {
		t.Fatalf("first import: added=%d failures=%v", added, failures)
	}

	added, failures = svc.BulkImport("a@x:pw1\nc@x:pw3")
	if added != 1 {
		t.Errorf("added = %d, want 1", added)
	}
	if len(failures) != 1 {
		t.Fatalf("failures = %v, want the duplicate flagged", failures)
	}
}
