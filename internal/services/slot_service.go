// Package services – SlotService
//
// This file implements SlotService, which renders the availability list the
// app shows when a member picks a class: every offerable slot with its next
// (or explicitly chosen) occurrence date, live occupancy, and the localized
// description line.
//
// Slot definitions change rarely, so reads go through a short-TTL cache
// that bounds table hits during request bursts. Occupancy counts are always
// live; only the definitions are cached.

package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/liftpisa/go-booking-backend/internal/cache"
	"github.com/liftpisa/go-booking-backend/internal/domain"
	"github.com/liftpisa/go-booking-backend/internal/repo"
	"github.com/liftpisa/go-booking-backend/internal/schedule"
)

// SlotView is one availability row as the app consumes it. Field names
// mirror the sheet columns the client was originally built against.
type SlotView struct {
	ID          int    `json:"ID_Spazio"`
	Weekday     string `json:"Giorno"`
	StartTime   string `json:"Ora_Inizio"`
	EndTime     string `json:"Ora_Fine"`
	Date        string `json:"Data"`
	Description string `json:"Descrizione"`
}

// SlotService lists bookable slot occurrences.
type SlotService struct {
	DB       *gorm.DB
	Capacity int
	Location *time.Location

	// Cache fronts the slot-definitions table. Nil disables caching.
	Cache *cache.Value[[]domain.Slot]

	// Now is the clock; tests override it. Nil means time.Now in Location.
	Now func() time.Time
}

func (s *SlotService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	if s.Location != nil {
		return time.Now().In(s.Location)
	}
	return time.Now()
}

func (s *SlotService) slots(ctx context.Context, now time.Time) ([]domain.Slot, error) {
	if s.Cache != nil {
		if v, ok := s.Cache.Get(now); ok {
			return v, nil
		}
	}
	v, err := repo.ListSlots(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	if s.Cache != nil {
		s.Cache.Put(v, now)
	}
	return v, nil
}

// Available returns the bookable occurrences. With an empty targetDate each
// slot resolves to its soonest bookable occurrence; with a date it resolves
// to the occurrence inside that date's week. Rows past the booking cutoff,
// closed on their occurrence date, outside the offerable window, or already
// at capacity are dropped: the app only shows occurrences a member can
// actually take.
func (s *SlotService) Available(ctx context.Context, targetDate string) ([]SlotView, error) {
	tr := otel.Tracer("services/SlotService")
	ctx, span := tr.Start(ctx, "Available", trace.WithAttributes(
		attribute.String("target_date", targetDate),
	))
	defer span.End()

	now := s.now()
	defs, err := s.slots(ctx, now)
	if err != nil {
		return nil, err
	}

	var picked time.Time
	if strings.TrimSpace(targetDate) != "" {
		picked, err = schedule.ParseDate(targetDate, s.location())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	out := make([]SlotView, 0, len(defs))
	for _, slot := range defs {
		if !schedule.Offerable(slot.StartTime) {
			continue
		}
		weekday, werr := schedule.ParseWeekday(slot.Weekday)
		if werr != nil {
			continue
		}

		var occurrence time.Time
		if picked.IsZero() {
			occurrence = schedule.NextOccurrence(weekday, slot.StartTime, now)
		} else {
			occurrence = schedule.SpecificOccurrence(weekday, picked)
		}

		if slot.ClosureDate != nil && schedule.DateKey(*slot.ClosureDate) == schedule.DateKey(occurrence) {
			continue
		}
		if !schedule.WithinCutoff(occurrence, slot.StartTime, now) {
			continue
		}

		n, cerr := repo.CountBookingsForSlotDate(ctx, s.DB, slot.ID, occurrence)
		if cerr != nil {
			return nil, cerr
		}
		if s.Capacity > 0 && n >= int64(s.Capacity) {
			continue
		}

		out = append(out, SlotView{
			ID:        slot.ID,
			Weekday:   slot.Weekday,
			StartTime: slot.StartTime,
			EndTime:   slot.EndTime,
			Date:      schedule.DateKey(occurrence),
			Description: fmt.Sprintf("%s %s-%s (%d/%d - disponibile - %s)",
				slot.Weekday, slot.StartTime, slot.EndTime,
				n, s.Capacity, schedule.FormatShortDate(occurrence)),
		})
	}
	return out, nil
}

func (s *SlotService) location() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.Local
}
