// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Client
// model.
//
// Clients are written by the reception software, never by this service, so
// only lookups live here. Error semantics follow the package convention:
// missing rows yield ErrNotFound, raw GORM errors propagate otherwise.
package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/liftpisa/go-booking-backend/internal/domain"
)

// FindClientByEmail returns the client whose email matches case-insensitively.
// When the sheet carries duplicate emails the oldest row wins, matching the
// first-match-wins behavior the gym has always had. Returns ErrNotFound when
// no row matches.
func FindClientByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Client, error) {
	var c domain.Client
	err := db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		Order("created_at asc").
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}
