// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Slot
// model (recurring weekly class windows).
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/liftpisa/go-booking-backend/internal/domain"
)

// ListSlots returns every slot definition ordered by id, matching the sheet
// row order the gym curates by hand.
func ListSlots(ctx context.Context, db *gorm.DB) ([]domain.Slot, error) {
	var out []domain.Slot
	err := db.WithContext(ctx).Order("id asc").Find(&out).Error
	return out, err
}

// FindSlot fetches a single slot by id, or ErrNotFound.
func FindSlot(ctx context.Context, db *gorm.DB, id int) (*domain.Slot, error) {
	var s domain.Slot
	if err := db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}
