package schedule

import (
	"testing"
	"time"
)

// Anchors: 2026-03-02 is a Monday, 2026-03-07 a Saturday, 2026-03-08 a Sunday.
func date(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func TestParseWeekday(t *testing.T) {
	cases := []struct {
		in   string
		want time.Weekday
	}{
		{"Sabato", time.Saturday},
		{"sabato", time.Saturday},
		{"LUNEDÌ", time.Monday},
		{" Domenica ", time.Sunday},
		{"Mercoledì", time.Wednesday},
	}
	for _, tc := range cases {
		got, err := ParseWeekday(tc.in)
		if err != nil {
			t.Fatalf("ParseWeekday(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseWeekday(%q) = %v; want %v", tc.in, got, tc.want)
		}
	}
	if _, err := ParseWeekday("Saturday"); err == nil {
		t.Fatalf("expected error for non-Italian name")
	}
	if _, err := ParseWeekday(""); err == nil {
		t.Fatalf("expected error for empty name")
	}
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("07:30")
	if err != nil || h != 7 || m != 30 {
		t.Fatalf("ParseClock(07:30) = %d,%d,%v", h, m, err)
	}
	// Bare hours occur on old sheet rows.
	h, m, err = ParseClock("7")
	if err != nil || h != 7 || m != 0 {
		t.Fatalf("ParseClock(7) = %d,%d,%v", h, m, err)
	}
	for _, bad := range []string{"", "25:00", "aa:10", "10:61"} {
		if _, _, err := ParseClock(bad); err == nil {
			t.Fatalf("ParseClock(%q): expected error", bad)
		}
	}
}

func TestOfferable(t *testing.T) {
	cases := []struct {
		start string
		want  bool
	}{
		{"06:00", true},
		{"20:30", true},
		{"05:59", false},
		{"21:00", false},
		{"22:00", false},
		{"bogus", false},
	}
	for _, tc := range cases {
		if got := Offerable(tc.start); got != tc.want {
			t.Fatalf("Offerable(%q) = %v; want %v", tc.start, got, tc.want)
		}
	}
}

func TestWithinCutoff_MinuteGranularity(t *testing.T) {
	monday := date(2026, time.March, 2, 0, 0)

	// Exactly 120 minutes remaining is still allowed.
	if !WithinCutoff(monday, "07:00", date(2026, time.March, 2, 5, 0)) {
		t.Fatalf("exactly 2h before start should be bookable")
	}
	// 90 minutes remaining is too late.
	if WithinCutoff(monday, "07:00", date(2026, time.March, 2, 5, 30)) {
		t.Fatalf("90min before start should not be bookable")
	}
	// Past dates are never bookable.
	if WithinCutoff(monday, "07:00", date(2026, time.March, 3, 5, 0)) {
		t.Fatalf("past occurrence should not be bookable")
	}
}

func TestWithinCutoff_LateEveningRule(t *testing.T) {
	lateMonday := date(2026, time.March, 2, 21, 30)
	tuesday := date(2026, time.March, 3, 0, 0)

	// From 21:00 next-morning slots before 07:00 are blocked even with >2h margin.
	if WithinCutoff(tuesday, "06:30", lateMonday) {
		t.Fatalf("06:30 next morning should be blocked after 21:00")
	}
	// 07:00 next morning stays bookable.
	if !WithinCutoff(tuesday, "07:00", lateMonday) {
		t.Fatalf("07:00 next morning should remain bookable after 21:00")
	}
	// Before 21:00 the same slot is fine.
	if !WithinCutoff(tuesday, "06:30", date(2026, time.March, 2, 20, 59)) {
		t.Fatalf("06:30 next morning should be bookable before 21:00")
	}
}

func TestNextOccurrence(t *testing.T) {
	// Monday 05:00 booking a Monday 07:00 slot: today still works.
	now := date(2026, time.March, 2, 5, 0)
	got := NextOccurrence(time.Monday, "07:00", now)
	if DateKey(got) != "2026-03-02" {
		t.Fatalf("NextOccurrence same-day = %s; want 2026-03-02", DateKey(got))
	}

	// Monday 05:30: cutoff passed, rolls to next Monday.
	now = date(2026, time.March, 2, 5, 30)
	got = NextOccurrence(time.Monday, "07:00", now)
	if DateKey(got) != "2026-03-09" {
		t.Fatalf("NextOccurrence rolled = %s; want 2026-03-09", DateKey(got))
	}

	// Wednesday asking for Saturday: this week's Saturday.
	now = date(2026, time.March, 4, 12, 0)
	got = NextOccurrence(time.Saturday, "09:00", now)
	if DateKey(got) != "2026-03-07" {
		t.Fatalf("NextOccurrence forward = %s; want 2026-03-07", DateKey(got))
	}
}

func TestSpecificOccurrence(t *testing.T) {
	ref := date(2026, time.March, 4, 15, 0) // Wednesday
	if got := SpecificOccurrence(time.Saturday, ref); DateKey(got) != "2026-03-07" {
		t.Fatalf("Saturday of ref week = %s; want 2026-03-07", DateKey(got))
	}
	// Sunday closes the Monday-start week.
	if got := SpecificOccurrence(time.Sunday, ref); DateKey(got) != "2026-03-08" {
		t.Fatalf("Sunday of ref week = %s; want 2026-03-08", DateKey(got))
	}
	if got := SpecificOccurrence(time.Monday, ref); DateKey(got) != "2026-03-02" {
		t.Fatalf("Monday of ref week = %s; want 2026-03-02", DateKey(got))
	}
}

func TestWeekBoundsAndSameWeek(t *testing.T) {
	sunday := date(2026, time.March, 8, 18, 0)
	from, to := WeekBounds(sunday)
	if DateKey(from) != "2026-03-02" || DateKey(to) != "2026-03-09" {
		t.Fatalf("WeekBounds = [%s, %s)", DateKey(from), DateKey(to))
	}
	if !SameWeek(sunday, date(2026, time.March, 2, 7, 0)) {
		t.Fatalf("Sunday and Monday of the same ISO week should match")
	}
	if SameWeek(sunday, date(2026, time.March, 9, 7, 0)) {
		t.Fatalf("next Monday starts a new week")
	}
}

func TestFormatting(t *testing.T) {
	sab := date(2025, time.March, 8, 0, 0) // Saturday
	if got := FormatShortDate(sab); got != "Sab 8 Mar" {
		t.Fatalf("FormatShortDate = %q; want \"Sab 8 Mar\"", got)
	}
	if got := FormatDate(sab); got != "08/03/2025" {
		t.Fatalf("FormatDate = %q", got)
	}
	if FormatDate(time.Time{}) != "" || FormatShortDate(time.Time{}) != "" || DateKey(time.Time{}) != "" {
		t.Fatalf("zero time should format empty")
	}
	if WeekdayName(time.Sunday) != "Domenica" || WeekdayName(time.Saturday) != "Sabato" {
		t.Fatalf("unexpected weekday names")
	}
}

func TestParseDate(t *testing.T) {
	for _, in := range []string{"08/03/2025", "8/3/2025", "2025-03-08", "2025-03-08T10:30:00Z"} {
		got, err := ParseDate(in, time.UTC)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", in, err)
		}
		if DateKey(got) != "2025-03-08" {
			t.Fatalf("ParseDate(%q) = %s", in, DateKey(got))
		}
		if got.Hour() != 0 || got.Minute() != 0 {
			t.Fatalf("ParseDate(%q) not midnight-normalized", in)
		}
	}
	for _, bad := range []string{"", "March 8", "2025/03/08"} {
		if _, err := ParseDate(bad, time.UTC); err == nil {
			t.Fatalf("ParseDate(%q): expected error", bad)
		}
	}
}

func TestStartInstant(t *testing.T) {
	day := date(2026, time.March, 7, 13, 45) // time-of-day must be ignored
	got := StartInstant(day, "07:30")
	want := date(2026, time.March, 7, 7, 30)
	if !got.Equal(want) {
		t.Fatalf("StartInstant = %v; want %v", got, want)
	}
}
