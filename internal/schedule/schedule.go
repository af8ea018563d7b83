// Package schedule implements the calendar rules the booking logic is built
// on: week numbering for quota buckets, occurrence resolution for recurring
// weekly slots, booking/cancellation cutoffs, and the Italian date formats
// used across the wire contract.
//
// Everything here is a pure function of its arguments — the current instant
// is always passed in as `now`, never read from the clock — so the rules are
// trivially testable and the services own all side effects.
//
// Conventions:
//   - Weekdays carry the Italian names the slot sheet uses
//     ("Domenica" … "Sabato", Sunday first).
//   - Occurrence dates are normalized to midnight local time; date equality
//     goes through DateKey (YYYY-MM-DD) so time-of-day can never leak into a
//     date comparison.
//   - Cutoffs compare instants, not dates: a slot occurring today is
//     bookable only while at least BookingCutoff remains before its start.
package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// BookingCutoff is the minimum lead time required to book a slot
	// occurring today.
	BookingCutoff = 120 * time.Minute

	// lateEveningHour starts the tighter evening rule: from 21:00, slots on
	// the following morning earlier than earliestNextMorningHour cannot be
	// booked anymore.
	lateEveningHour        = 21
	earliestNextMorningHour = 7

	// Offerable slots start within [minOfferableHour, maxOfferableHour).
	minOfferableHour = 6
	maxOfferableHour = 21
)

// ErrUnknownWeekday is returned when a weekday name is not one of the seven
// Italian day names.
var ErrUnknownWeekday = errors.New("unknown weekday name")

// weekdayNames maps time.Weekday to the Italian names used on the sheet.
var weekdayNames = [7]string{
	"Domenica", "Lunedì", "Martedì", "Mercoledì", "Giovedì", "Venerdì", "Sabato",
}

var (
	shortDayNames   = [7]string{"Dom", "Lun", "Mar", "Mer", "Gio", "Ven", "Sab"}
	shortMonthNames = [12]string{
		"Gen", "Feb", "Mar", "Apr", "Mag", "Giu",
		"Lug", "Ago", "Set", "Ott", "Nov", "Dic",
	}
)

// titleIT normalizes weekday spellings coming from the sheet or from query
// parameters ("lunedì", "LUNEDÌ" → "Lunedì").
var titleIT = cases.Title(language.Italian)

// ParseWeekday resolves an Italian weekday name (any casing) to its
// time.Weekday. Returns ErrUnknownWeekday for anything else.
func ParseWeekday(name string) (time.Weekday, error) {
	n := titleIT.String(strings.TrimSpace(name))
	for i, wn := range weekdayNames {
		if wn == n {
			return time.Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownWeekday, name)
}

// WeekdayName returns the Italian name for d.
func WeekdayName(d time.Weekday) string { return weekdayNames[d] }

// Midnight returns t with the time-of-day zeroed, keeping its location.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// WeekNumber returns the ISO-8601 week (Monday-start, week 1 contains the
// year's first Thursday) and its ISO year. Bookings are bucketed by this
// pair for the weekly frequency quota.
func WeekNumber(t time.Time) (year, week int) {
	return t.ISOWeek()
}

// SameWeek reports whether a and b fall into the same ISO week.
func SameWeek(a, b time.Time) bool {
	ay, aw := a.ISOWeek()
	by, bw := b.ISOWeek()
	return ay == by && aw == bw
}

// WeekBounds returns the Monday midnight opening t's ISO week and the
// following Monday midnight (half-open interval [from, to)).
func WeekBounds(t time.Time) (from, to time.Time) {
	d := Midnight(t)
	// Monday-start offset: Sunday counts as the 7th day of the week.
	offset := int(d.Weekday()+6) % 7
	from = d.AddDate(0, 0, -offset)
	return from, from.AddDate(0, 0, 7)
}

// ParseClock splits an "HH:MM" string. The minute part is optional ("7"
// parses as 07:00) because older sheet rows carry bare hours.
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	hour, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid clock value %q", s)
	}
	if len(parts) == 2 {
		minute, err = strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || minute < 0 || minute > 59 {
			return 0, 0, fmt.Errorf("invalid clock value %q", s)
		}
	}
	return hour, minute, nil
}

// Offerable reports whether a slot starting at startTime may be offered at
// all (start hour within [6,21)).
func Offerable(startTime string) bool {
	h, _, err := ParseClock(startTime)
	if err != nil {
		return false
	}
	return h >= minOfferableHour && h < maxOfferableHour
}

// StartInstant combines an occurrence date with a slot start time into the
// concrete instant the class begins.
func StartInstant(occurrence time.Time, startTime string) time.Time {
	h, m, err := ParseClock(startTime)
	if err != nil {
		return Midnight(occurrence)
	}
	d := Midnight(occurrence)
	return time.Date(d.Year(), d.Month(), d.Day(), h, m, 0, 0, d.Location())
}

// WithinCutoff reports whether the occurrence of a slot starting at
// startTime may still be booked at `now`.
//
// Rules, in order:
//   - occurrences on a past date are never bookable;
//   - less than BookingCutoff before the start instant is too late
//     (exactly BookingCutoff remaining is still allowed);
//   - from 21:00 onward, next-morning slots before 07:00 are blocked even
//     though more than two hours remain.
func WithinCutoff(occurrence time.Time, startTime string, now time.Time) bool {
	day := Midnight(occurrence)
	if day.Before(Midnight(now)) {
		return false
	}
	if StartInstant(occurrence, startTime).Sub(now) < BookingCutoff {
		return false
	}
	if now.Hour() >= lateEveningHour {
		tomorrow := Midnight(now).AddDate(0, 0, 1)
		h, _, err := ParseClock(startTime)
		if err == nil && day.Equal(tomorrow) && h < earliestNextMorningHour {
			return false
		}
	}
	return true
}

// NextOccurrence returns the soonest occurrence date of the given weekday
// whose startTime is still bookable at `now` — today when the cutoff has not
// passed yet, otherwise the same weekday next week. The result is a
// midnight-normalized date.
func NextOccurrence(weekday time.Weekday, startTime string, now time.Time) time.Time {
	diff := (int(weekday) - int(now.Weekday()) + 7) % 7
	candidate := Midnight(now).AddDate(0, 0, diff)
	if !WithinCutoff(candidate, startTime, now) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate
}

// SpecificOccurrence returns the occurrence of the given weekday within the
// calendar week (Monday-start) containing reference. Used when the client
// picked an explicit date instead of "soonest".
func SpecificOccurrence(weekday time.Weekday, reference time.Time) time.Time {
	monday, _ := WeekBounds(reference)
	// Monday-start position: Sunday closes the week.
	pos := (int(weekday) + 6) % 7
	return monday.AddDate(0, 0, pos)
}

// DateKey formats a date as YYYY-MM-DD for equality comparisons. Zero time
// yields "".
func DateKey(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// FormatDate renders DD/MM/YYYY, the format clients see for expiry dates.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}

// FormatShortDate renders the localized short form used in slot
// descriptions and booking lists, e.g. "Sab 8 Mar".
func FormatShortDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s %d %s",
		shortDayNames[t.Weekday()], t.Day(), shortMonthNames[t.Month()-1])
}

// ParseDate accepts the two date spellings that reach the backend —
// DD/MM/YYYY from the sheet and YYYY-MM-DD (or RFC 3339) from the app — and
// returns the midnight-normalized date in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	for _, layout := range []string{"02/01/2006", "2/1/2006", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return Midnight(t), nil
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Midnight(t.In(loc)), nil
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}
