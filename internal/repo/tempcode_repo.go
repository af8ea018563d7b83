// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the TempCode
// model (emailed one-day login codes).
package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/liftpisa/go-booking-backend/internal/domain"
)

// CreateTempCode persists a freshly issued temporary code. Email is stored
// lowercase and the code uppercase so lookups never depend on input casing.
func CreateTempCode(ctx context.Context, db *gorm.DB, email, originalCode, code string, ttl time.Duration) (*domain.TempCode, error) {
	now := time.Now().UTC()
	t := &domain.TempCode{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		OriginalCode: strings.TrimSpace(originalCode),
		Code:         strings.ToUpper(strings.TrimSpace(code)),
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

// FindTempCode returns the most recent code row matching (email, code),
// regardless of its used/expired state — the service layer owns that policy.
// Returns ErrNotFound when no such pair was ever issued.
func FindTempCode(ctx context.Context, db *gorm.DB, email, code string) (*domain.TempCode, error) {
	var t domain.TempCode
	err := db.WithContext(ctx).
		Where("email = ? AND code = ?",
			strings.ToLower(strings.TrimSpace(email)),
			strings.ToUpper(strings.TrimSpace(code))).
		Order("created_at desc").
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// MarkTempCodeUsed flips the used flag for (email, code). Returns ErrNotFound
// when no matching row exists; marking an already-used code is a no-op that
// still succeeds.
func MarkTempCodeUsed(ctx context.Context, db *gorm.DB, email, code string) error {
	res := db.WithContext(ctx).
		Model(&domain.TempCode{}).
		Where("email = ? AND code = ?",
			strings.ToLower(strings.TrimSpace(email)),
			strings.ToUpper(strings.TrimSpace(code))).
		Update("used", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteExpiredTempCodes removes codes whose expiry has passed and returns
// how many were removed. Housekeeping only.
func DeleteExpiredTempCodes(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&domain.TempCode{})
	return res.RowsAffected, res.Error
}
