// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Communication model (home-screen announcements).
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/liftpisa/go-booking-backend/internal/domain"
)

// ListActiveCommunications returns announcements that are flagged active and
// whose optional date range contains `now`, newest first.
func ListActiveCommunications(ctx context.Context, db *gorm.DB, now time.Time) ([]domain.Communication, error) {
	var out []domain.Communication
	err := db.WithContext(ctx).
		Where("active = ?", true).
		Where("starts_at IS NULL OR starts_at <= ?", now).
		Where("ends_at IS NULL OR ends_at >= ?", now).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}
