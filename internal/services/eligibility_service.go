// Package services – EligibilityService
//
// This file implements the ordered rule chain deciding whether a client may
// book a given slot occurrence. Checks run cheapest-first and short-circuit
// on the first violated rule, returning a *Rejection whose Reason is shown
// to the member verbatim.
//
// Rule order: payment, subscription, medical certificate, slot closure,
// offerable window, booking cutoff, weekly quota, duplicate booking,
// capacity. Identity checks (email exists, code valid) happen upstream in
// AccessService.

package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/liftpisa/go-booking-backend/internal/domain"
	"github.com/liftpisa/go-booking-backend/internal/repo"
	"github.com/liftpisa/go-booking-backend/internal/schedule"
)

// EligibilityStore is the persistence surface the rule chain reads from.
type EligibilityStore interface {
	CountBookingsBetween(ctx context.Context, db *gorm.DB, email string, from, to time.Time) (int64, error)
	HasBooking(ctx context.Context, db *gorm.DB, email string, slotID int, date time.Time) (bool, error)
	CountBookingsForSlotDate(ctx context.Context, db *gorm.DB, slotID int, date time.Time) (int64, error)
}

// GormEligibilityStore implements EligibilityStore over the repo package.
type GormEligibilityStore struct{}

func (GormEligibilityStore) CountBookingsBetween(ctx context.Context, db *gorm.DB, email string, from, to time.Time) (int64, error) {
	return repo.CountBookingsBetween(ctx, db, email, from, to)
}

func (GormEligibilityStore) HasBooking(ctx context.Context, db *gorm.DB, email string, slotID int, date time.Time) (bool, error) {
	return repo.HasBooking(ctx, db, email, slotID, date)
}

func (GormEligibilityStore) CountBookingsForSlotDate(ctx context.Context, db *gorm.DB, slotID int, date time.Time) (int64, error) {
	return repo.CountBookingsForSlotDate(ctx, db, slotID, date)
}

// EligibilityService evaluates booking rules for one (client, slot,
// occurrence) triple.
type EligibilityService struct {
	DB       *gorm.DB
	Store    EligibilityStore
	Capacity int // max bookings per slot occurrence
}

// IsPaid reports whether the client's subscription payment is settled.
// Only the literal status "pagato" (any casing) counts.
func IsPaid(c *domain.Client) bool {
	return strings.EqualFold(strings.TrimSpace(c.PaymentStatus), "pagato")
}

// CertificateExpired reports whether the medical certificate is missing or
// expired as of now. The certificate stays valid on its expiry day.
func CertificateExpired(c *domain.Client, now time.Time) bool {
	if c.CertificateExpiry == nil {
		return true
	}
	return schedule.Midnight(*c.CertificateExpiry).Before(schedule.Midnight(now))
}

// SubscriptionExpired reports whether the ASI subscription is missing or
// expired as of now.
func SubscriptionExpired(c *domain.Client, now time.Time) bool {
	if c.SubscriptionExpiry == nil {
		return true
	}
	return schedule.Midnight(*c.SubscriptionExpiry).Before(schedule.Midnight(now))
}

// ParseFrequencyLimit interprets the weekly frequency column. "Open", empty,
// and unparseable values mean unlimited (limited == false); otherwise the
// returned limit is the max bookings per ISO week.
func ParseFrequencyLimit(s string) (limit int, limited bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "open") {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Evaluate runs the rule chain. It returns nil when the booking may proceed
// and a *Rejection describing the first violated rule otherwise. Non-rule
// failures (DB errors) come back as plain errors.
//
// The capacity verdict here is advisory: BookingService re-checks it inside
// the per-occurrence critical section before inserting.
func (s *EligibilityService) Evaluate(ctx context.Context, client *domain.Client, slot *domain.Slot, occurrence, now time.Time) error {
	if !IsPaid(client) {
		return reject(RejectNotPaid,
			"Non puoi prenotare: quota non pagata. Contatta la reception.")
	}

	if SubscriptionExpired(client, now) {
		if client.SubscriptionExpiry == nil {
			return reject(RejectSubscriptionExpired,
				"Tesseramento ASI mancante. Contatta la reception.")
		}
		return reject(RejectSubscriptionExpired, fmt.Sprintf(
			"Tesseramento ASI scaduto il %s. Contatta la reception.",
			schedule.FormatDate(*client.SubscriptionExpiry)))
	}

	if CertificateExpired(client, now) {
		if client.CertificateExpiry == nil {
			return reject(RejectCertificateExpired,
				"Certificato medico scaduto o mancante. Contatta la reception.")
		}
		return reject(RejectCertificateExpired, fmt.Sprintf(
			"Certificato medico scaduto il %s. Contatta la reception.",
			schedule.FormatDate(*client.CertificateExpiry)))
	}

	if slot.ClosureDate != nil && schedule.DateKey(*slot.ClosureDate) == schedule.DateKey(occurrence) {
		return reject(RejectSlotClosed, fmt.Sprintf(
			"La palestra è chiusa %s per questo orario.",
			schedule.FormatShortDate(occurrence)))
	}

	if !schedule.Offerable(slot.StartTime) {
		return reject(RejectNotOfferable, "Questo orario non è prenotabile.")
	}

	if !schedule.WithinCutoff(occurrence, slot.StartTime, now) {
		return reject(RejectTooLate,
			"Devi prenotare con almeno 2 ore di anticipo.")
	}

	if limit, limited := ParseFrequencyLimit(client.WeeklyFrequencyLimit); limited {
		from, to := schedule.WeekBounds(occurrence)
		n, err := s.Store.CountBookingsBetween(ctx, s.DB, client.Email, from, to)
		if err != nil {
			return err
		}
		if n >= int64(limit) {
			return reject(RejectQuotaExceeded, fmt.Sprintf(
				"Limite settimanale raggiunto: %d/%d prenotazioni.", n, limit))
		}
	}

	dup, err := s.Store.HasBooking(ctx, s.DB, client.Email, slot.ID, occurrence)
	if err != nil {
		return err
	}
	if dup {
		return reject(RejectDuplicate, fmt.Sprintf(
			"Hai già prenotato questo orario per %s.",
			schedule.FormatShortDate(occurrence)))
	}

	n, err := s.Store.CountBookingsForSlotDate(ctx, s.DB, slot.ID, occurrence)
	if err != nil {
		return err
	}
	if s.Capacity > 0 && n >= int64(s.Capacity) {
		return reject(RejectSlotFull,
			"Orario al completo. Scegli un'altra fascia oraria.")
	}

	return nil
}
