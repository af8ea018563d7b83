// Package services – BookingService
//
// This file implements BookingService, which owns the booking lifecycle:
// creating a booking for a slot occurrence, cancelling one, listing a
// client's upcoming bookings, and purging stale history.
//
// Concurrency: the capacity rule is check-then-act, so Book serializes the
// final capacity check and insert per (slot, occurrence date) through a
// striped mutex. Two members racing for the last place resolve
// deterministically; the duplicate rule is additionally backed by a unique
// index so even a missed race degrades into a clean refusal.
//
// Observability: public methods are OpenTelemetry-instrumented and booking
// attempts feed a Prometheus counter labelled by outcome.

package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/liftpisa/go-booking-backend/internal/domain"
	"github.com/liftpisa/go-booking-backend/internal/repo"
	"github.com/liftpisa/go-booking-backend/internal/schedule"
)

const (
	auditActionBooking = "PRENOTAZIONE"
	auditActionCancel  = "CANCELLAZIONE"
)

var bookingAttempts = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "booking_attempts_total",
		Help: "Booking attempts by outcome (success, rejection code, error).",
	},
	[]string{"outcome"},
)

// lockStripes bounds memory for the per-occurrence serialization. Collisions
// only cost a little extra serialization, never correctness.
const lockStripes = 64

// BookingService creates and cancels bookings.
type BookingService struct {
	DB          *gorm.DB
	Access      *AccessService
	Eligibility *EligibilityService

	CancelCutoff   time.Duration // minimum lead time to cancel
	PurgeKeepWeeks int           // trailing weeks of history PurgeStale retains
	Location       *time.Location

	// Now is the clock; tests override it. Nil means time.Now in Location.
	Now func() time.Time

	locks [lockStripes]sync.Mutex
}

func (s *BookingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	if s.Location != nil {
		return time.Now().In(s.Location)
	}
	return time.Now()
}

func (s *BookingService) lockFor(slotID int, date time.Time) *sync.Mutex {
	h := fnv.New32a()
	fmt.Fprintf(h, "%d|%s", slotID, schedule.DateKey(date))
	return &s.locks[h.Sum32()%lockStripes]
}

// SlotLabel renders the human-readable slot window, e.g. "Sabato 07:00-08:00".
func SlotLabel(slot *domain.Slot) string {
	return fmt.Sprintf("%s %s-%s", slot.Weekday, slot.StartTime, slot.EndTime)
}

// BookResult is the outcome of a successful booking.
type BookResult struct {
	Booking *domain.Booking
	Message string
}

// Book authenticates the client, resolves the target occurrence, runs the
// eligibility chain, and inserts the booking. targetDate selects a specific
// occurrence within its week; empty means the soonest bookable one.
func (s *BookingService) Book(ctx context.Context, email, code string, slotID int, targetDate string) (*BookResult, error) {
	tr := otel.Tracer("services/BookingService")
	ctx, span := tr.Start(ctx, "Book", trace.WithAttributes(
		attribute.Int("slot.id", slotID),
	))
	defer span.End()

	res, err := s.book(ctx, email, code, slotID, targetDate)
	switch {
	case err == nil:
		bookingAttempts.WithLabelValues("success").Inc()
	default:
		if r, ok := AsRejection(err); ok {
			bookingAttempts.WithLabelValues(r.Code).Inc()
		} else {
			bookingAttempts.WithLabelValues("error").Inc()
		}
	}
	return res, err
}

func (s *BookingService) book(ctx context.Context, email, code string, slotID int, targetDate string) (*BookResult, error) {
	client, _, err := s.Access.ResolveLogin(ctx, email, code)
	if err != nil {
		return nil, err
	}

	slot, err := repo.FindSlot(ctx, s.DB, slotID)
	if err != nil {
		if err == repo.ErrNotFound {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	weekday, err := schedule.ParseWeekday(slot.Weekday)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var occurrence time.Time
	if strings.TrimSpace(targetDate) != "" {
		picked, perr := schedule.ParseDate(targetDate, s.location())
		if perr != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, perr)
		}
		occurrence = schedule.SpecificOccurrence(weekday, picked)
	} else {
		occurrence = schedule.NextOccurrence(weekday, slot.StartTime, now)
	}

	if err := s.Eligibility.Evaluate(ctx, client, slot, occurrence, now); err != nil {
		s.auditBooking(ctx, client.Email, auditActionBooking, err)
		return nil, err
	}

	b := &domain.Booking{
		ID:             uuid.NewString(),
		Email:          client.Email,
		FirstName:      client.FirstName,
		LastName:       client.LastName,
		SlotID:         slot.ID,
		Weekday:        slot.Weekday,
		StartTime:      slot.StartTime,
		EndTime:        slot.EndTime,
		OccurrenceDate: occurrence,
	}

	// Serialize the capacity re-check and insert per occurrence so two
	// members cannot both take the last place.
	mu := s.lockFor(slot.ID, occurrence)
	mu.Lock()
	err = func() error {
		n, cerr := repo.CountBookingsForSlotDate(ctx, s.DB, slot.ID, occurrence)
		if cerr != nil {
			return cerr
		}
		if limit := s.Eligibility.Capacity; limit > 0 && n >= int64(limit) {
			return reject(RejectSlotFull,
				"Orario al completo. Scegli un'altra fascia oraria.")
		}
		return repo.CreateBooking(ctx, s.DB, b)
	}()
	mu.Unlock()
	if err != nil {
		if repo.IsDuplicate(err) {
			err = reject(RejectDuplicate, fmt.Sprintf(
				"Hai già prenotato questo orario per %s.",
				schedule.FormatShortDate(occurrence)))
		}
		s.auditBooking(ctx, client.Email, auditActionBooking, err)
		return nil, err
	}

	msg := fmt.Sprintf("Prenotazione completata: %s (%s).",
		SlotLabel(slot), schedule.FormatShortDate(occurrence))
	if limit, limited := ParseFrequencyLimit(client.WeeklyFrequencyLimit); limited {
		from, to := schedule.WeekBounds(occurrence)
		if n, cerr := repo.CountBookingsBetween(ctx, s.DB, client.Email, from, to); cerr == nil {
			switch left := int64(limit) - n; {
			case left == 1:
				msg += " Ti resta 1 prenotazione questa settimana."
			case left > 1:
				msg += fmt.Sprintf(" Ti restano %d prenotazioni questa settimana.", left)
			default:
				msg += " Hai esaurito le prenotazioni per questa settimana."
			}
		}
	}

	s.auditBooking(ctx, client.Email, auditActionBooking, nil)
	return &BookResult{Booking: b, Message: msg}, nil
}

// Cancel removes one of the client's bookings. Authorization is the
// ownership predicate alone: the booking id must belong to the given email.
// Past occurrences cannot be cancelled, and neither can bookings starting in
// less than CancelCutoff.
func (s *BookingService) Cancel(ctx context.Context, email, bookingID string) (string, error) {
	tr := otel.Tracer("services/BookingService")
	ctx, span := tr.Start(ctx, "Cancel", trace.WithAttributes(
		attribute.String("booking.id", bookingID),
	))
	defer span.End()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.TrimSpace(bookingID) == "" {
		return "", ErrInvalidInput
	}

	b, err := repo.GetBookingForOwner(ctx, s.DB, bookingID, email)
	if err != nil {
		if err == repo.ErrNotFound {
			return "", ErrBookingNotFound
		}
		return "", err
	}

	now := s.now()
	start := schedule.StartInstant(b.OccurrenceDate, b.StartTime)
	if !start.After(now) {
		return "", reject(RejectPastBooking,
			"Non puoi cancellare una prenotazione già iniziata o passata.")
	}
	if remaining := start.Sub(now); remaining < s.CancelCutoff {
		hours := int(remaining / time.Hour)
		minutes := int(remaining/time.Minute) % 60
		return "", reject(RejectCancelTooLate, fmt.Sprintf(
			"Puoi cancellare solo fino a %d ore prima dell'inizio. Mancano %dh %dmin.",
			int(s.CancelCutoff.Hours()), hours, minutes))
	}

	if err := repo.DeleteBooking(ctx, s.DB, b.ID); err != nil {
		if err == repo.ErrNotFound {
			return "", ErrBookingNotFound
		}
		return "", err
	}

	s.auditBooking(ctx, email, auditActionCancel, nil)
	return fmt.Sprintf("Prenotazione cancellata: %s %s-%s (%s).",
		b.Weekday, b.StartTime, b.EndTime,
		schedule.FormatShortDate(b.OccurrenceDate)), nil
}

// BookingView is one row in a client's booking list as the app renders it.
type BookingView struct {
	ID            string `json:"id"`
	SlotID        int    `json:"idSpazio"`
	Weekday       string `json:"giorno"`
	StartTime     string `json:"oraInizio"`
	EndTime       string `json:"oraFine"`
	Date          string `json:"data"`
	DateFormatted string `json:"dataFormatted"`
	Description   string `json:"descrizione"`
	Started       bool   `json:"started"`
}

// ListForClient returns the client's bookings with occurrence date on or
// after `from`, annotated for display. Started flags occurrences whose start
// instant has already passed (possible only for same-day rows).
func (s *BookingService) ListForClient(ctx context.Context, email string, from time.Time) ([]BookingView, error) {
	rows, err := repo.ListBookingsByEmailFrom(ctx, s.DB, email, from)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]BookingView, 0, len(rows))
	for _, b := range rows {
		out = append(out, BookingView{
			ID:            b.ID,
			SlotID:        b.SlotID,
			Weekday:       b.Weekday,
			StartTime:     b.StartTime,
			EndTime:       b.EndTime,
			Date:          schedule.DateKey(b.OccurrenceDate),
			DateFormatted: schedule.FormatShortDate(b.OccurrenceDate),
			Description: fmt.Sprintf("%s %s-%s (%s)",
				b.Weekday, b.StartTime, b.EndTime,
				schedule.FormatShortDate(b.OccurrenceDate)),
			Started: !schedule.StartInstant(b.OccurrenceDate, b.StartTime).After(now),
		})
	}
	return out, nil
}

// PurgeStale deletes bookings older than the retention horizon: everything
// before the Monday opening the ISO week PurgeKeepWeeks before the current
// one. Runs from the housekeeping loop, never from the request path.
func (s *BookingService) PurgeStale(ctx context.Context) (int64, error) {
	now := s.now()
	monday, _ := schedule.WeekBounds(now)
	cutoff := monday.AddDate(0, 0, -7*s.PurgeKeepWeeks)
	n, err := repo.DeleteBookingsBefore(ctx, s.DB, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Info().Int64("removed", n).Time("cutoff", cutoff).Msg("purged stale bookings")
	}
	return n, nil
}

func (s *BookingService) location() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.Local
}

// auditBooking records one booking/cancel decision, best-effort.
func (s *BookingService) auditBooking(ctx context.Context, email, action string, verdict error) {
	e := &domain.AuditEntry{
		Timestamp: s.now().UTC(),
		Email:     email,
		Action:    action,
		Outcome:   "SUCCESSO",
	}
	if verdict != nil {
		e.Outcome = "RIFIUTATO"
		e.Details = verdict.Error()
		if r, ok := AsRejection(verdict); ok {
			e.Outcome = r.Code
		}
	}
	if err := repo.AppendAudit(ctx, s.DB, e); err != nil {
		log.Warn().Err(err).Str("action", action).Msg("audit append failed")
	}
}
