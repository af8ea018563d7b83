// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Booking
// model.
//
// The eligibility checks the services perform (capacity, weekly quota,
// duplicate detection) are expressed here as indexed counting queries over
// (slot_id, occurrence_date) and (email, occurrence_date) rather than the
// full-table scans the sheet-backed predecessor did.
//
// Error semantics:
//   - When a booking is not found, functions return ErrNotFound.
//   - On DB errors the raw gorm error is propagated.
package repo

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/liftpisa/go-booking-backend/internal/domain"
)

// CreateBooking inserts the booking row. Callers generate the UUID id and
// normalize OccurrenceDate to midnight before calling. A unique-constraint
// violation on (email, slot_id, occurrence_date) propagates for the caller
// to classify via IsDuplicate.
func CreateBooking(ctx context.Context, db *gorm.DB, b *domain.Booking) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	b.Email = strings.ToLower(strings.TrimSpace(b.Email))
	return db.WithContext(ctx).Create(b).Error
}

// GetBookingForOwner fetches a booking by id only when it belongs to email
// (case-insensitive), or ErrNotFound. The ownership predicate keeps one
// client from cancelling another's booking by guessing ids.
func GetBookingForOwner(ctx context.Context, db *gorm.DB, id, email string) (*domain.Booking, error) {
	var b domain.Booking
	err := db.WithContext(ctx).
		Where("id = ? AND LOWER(email) = ?", id, strings.ToLower(strings.TrimSpace(email))).
		First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// DeleteBooking removes a booking row by id. Returns ErrNotFound when no row
// was deleted.
func DeleteBooking(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Delete(&domain.Booking{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListBookingsByEmailFrom returns a client's bookings with occurrence date
// on or after `from`, ordered ascending by date then start time.
func ListBookingsByEmailFrom(ctx context.Context, db *gorm.DB, email string, from time.Time) ([]domain.Booking, error) {
	var out []domain.Booking
	err := db.WithContext(ctx).
		Where("LOWER(email) = ? AND occurrence_date >= ?", strings.ToLower(strings.TrimSpace(email)), from).
		Order("occurrence_date asc, start_time asc").
		Find(&out).Error
	return out, err
}

// CountBookingsForSlotDate returns the occupancy of one slot occurrence.
func CountBookingsForSlotDate(ctx context.Context, db *gorm.DB, slotID int, date time.Time) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("slot_id = ? AND occurrence_date = ?", slotID, date).
		Count(&n).Error
	return n, err
}

// HasBooking reports whether email already holds a booking for the given
// slot occurrence (the duplicate-booking check).
func HasBooking(ctx context.Context, db *gorm.DB, email string, slotID int, date time.Time) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("LOWER(email) = ? AND slot_id = ? AND occurrence_date = ?",
			strings.ToLower(strings.TrimSpace(email)), slotID, date).
		Count(&n).Error
	return n > 0, err
}

// CountBookingsBetween counts a client's bookings whose occurrence date
// falls within [from, to). The weekly quota check calls this with the ISO
// week bounds of the target occurrence.
func CountBookingsBetween(ctx context.Context, db *gorm.DB, email string, from, to time.Time) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("LOWER(email) = ? AND occurrence_date >= ? AND occurrence_date < ?",
			strings.ToLower(strings.TrimSpace(email)), from, to).
		Count(&n).Error
	return n, err
}

// DeleteBookingsBefore removes bookings with occurrence date strictly before
// cutoff and returns how many were removed. Housekeeping only; never part of
// the request path.
func DeleteBookingsBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("occurrence_date < ?", cutoff).
		Delete(&domain.Booking{})
	return res.RowsAffected, res.Error
}
