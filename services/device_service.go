package services

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"task-payout-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DeviceService struct {
	DB *gorm.DB
}

func NewDeviceService(db *gorm.DB) *DeviceService {
	return &DeviceService{DB: db}
}

// Fingerprint hashes the caller's network origin and client signature.
// Heuristic only — shared NATs and proxies will collide.
func Fingerprint(ip, userAgent string) string {
	sum := sha256.Sum256([]byte(ip + "|" + userAgent))
	return hex.EncodeToString(sum[:])
}

// RegisterOrFlag binds a fingerprint to the acting user on first sight and
// refuses the action when the same fingerprint is already bound to somebody
// else. The insert relies on the unique index, so a concurrent first-sight
// race resolves to one winner and a re-check.
func (s *DeviceService) RegisterOrFlag(userID, ip, userAgent string) error {
	fp := Fingerprint(ip, userAgent)

	var dev models.Device
	err := s.DB.Where("fingerprint = ?", fp).First(&dev).Error
	if err == nil {
		if dev.UserID != userID {
			return ErrDeviceReused
		}
		s.DB.Model(&dev).Update("last_seen_at", time.Now())
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	dev = models.Device{
		ID:          uuid.NewString(),
		Fingerprint: fp,
		UserID:      userID,
		IPAddress:   ip,
		UserAgent:   userAgent,
		LastSeenAt:  time.Now(),
	}
	if err := s.DB.Create(&dev).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the first-sight race — check who won it.
			if err := s.DB.Where("fingerprint = ?", fp).First(&dev).Error; err != nil {
				return err
			}
			if dev.UserID != userID {
				return ErrDeviceReused
			}
			return nil
		}
		return err
	}
	return nil
}
