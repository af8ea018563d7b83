// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the audit log.
//
// Audit writes are telemetry: callers treat failures as non-fatal. The one
// read path, CountAuditSince, backs the persistent half of the code-request
// throttle and runs over the (email, action, timestamp) indexes so its cost
// stays bounded as history grows.
package repo

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/liftpisa/go-booking-backend/internal/domain"
)

// AppendAudit inserts one audit row. The timestamp defaults to now when the
// caller left it zero.
func AppendAudit(ctx context.Context, db *gorm.DB, e *domain.AuditEntry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	e.Email = strings.ToLower(strings.TrimSpace(e.Email))
	return db.WithContext(ctx).Create(e).Error
}

// CountAuditSince counts entries for (email, action, outcome) with timestamp
// at or after `since`.
func CountAuditSince(ctx context.Context, db *gorm.DB, email, action, outcome string, since time.Time) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.AuditEntry{}).
		Where("email = ? AND action = ? AND outcome = ? AND timestamp >= ?",
			strings.ToLower(strings.TrimSpace(email)), action, outcome, since).
		Count(&n).Error
	return n, err
}
