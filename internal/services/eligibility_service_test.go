package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/liftpisa/go-booking-backend/internal/domain"
)

// fakeEligibilityStore returns canned counts. The db argument is ignored.
type fakeEligibilityStore struct {
	weekCount int64
	occupancy int64
	duplicate bool
}

func (f *fakeEligibilityStore) CountBookingsBetween(context.Context, *gorm.DB, string, time.Time, time.Time) (int64, error) {
	return f.weekCount, nil
}

func (f *fakeEligibilityStore) HasBooking(context.Context, *gorm.DB, string, int, time.Time) (bool, error) {
	return f.duplicate, nil
}

func (f *fakeEligibilityStore) CountBookingsForSlotDate(context.Context, *gorm.DB, int, time.Time) (int64, error) {
	return f.occupancy, nil
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// now is Wednesday 2026-03-04 10:00; occurrence Saturday 2026-03-07.
var (
	eligNow        = time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)
	eligOccurrence = time.Date(2026, time.March, 7, 0, 0, 0, 0, time.UTC)
)

func eligClient() *domain.Client {
	return &domain.Client{
		ID:                   "LIFT001",
		Email:                "anna@example.com",
		PaymentStatus:        "Pagato",
		CertificateExpiry:    datePtr(2027, time.January, 1),
		SubscriptionExpiry:   datePtr(2027, time.January, 1),
		WeeklyFrequencyLimit: "Open",
	}
}

func eligSlot() *domain.Slot {
	return &domain.Slot{ID: 1, Weekday: "Sabato", StartTime: "07:00", EndTime: "08:00"}
}

func evaluate(t *testing.T, c *domain.Client, s *domain.Slot, store *fakeEligibilityStore) error {
	t.Helper()
	svc := &EligibilityService{Store: store, Capacity: 8}
	return svc.Evaluate(context.Background(), c, s, eligOccurrence, eligNow)
}

func wantRejection(t *testing.T, err error, code, fragment string) {
	t.Helper()
	r, isRejection := AsRejection(err)
	if !isRejection {
		t.Fatalf("err = %v; want Rejection %s", err, code)
	}
	if r.Code != code {
		t.Fatalf("code = %s; want %s (reason %q)", r.Code, code, r.Reason)
	}
	if fragment != "" && !strings.Contains(r.Reason, fragment) {
		t.Fatalf("reason %q missing %q", r.Reason, fragment)
	}
}

func TestEvaluate_Eligible(t *testing.T) {
	if err := evaluate(t, eligClient(), eligSlot(), &fakeEligibilityStore{}); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
}

func TestEvaluate_NotPaid(t *testing.T) {
	c := eligClient()
	c.PaymentStatus = "in sospeso"
	wantRejection(t, evaluate(t, c, eligSlot(), &fakeEligibilityStore{}), RejectNotPaid, "quota non pagata")
}

func TestEvaluate_SubscriptionExpired(t *testing.T) {
	c := eligClient()
	c.SubscriptionExpiry = datePtr(2026, time.February, 1)
	wantRejection(t, evaluate(t, c, eligSlot(), &fakeEligibilityStore{}),
		RejectSubscriptionExpired, "01/02/2026")

	c.SubscriptionExpiry = nil
	wantRejection(t, evaluate(t, c, eligSlot(), &fakeEligibilityStore{}),
		RejectSubscriptionExpired, "mancante")
}

func TestEvaluate_CertificateExpired(t *testing.T) {
	c := eligClient()
	c.CertificateExpiry = datePtr(2026, time.January, 15)
	wantRejection(t, evaluate(t, c, eligSlot(), &fakeEligibilityStore{}),
		RejectCertificateExpired, "Certificato medico scaduto")

	// Missing certificate blocks just like an expired one.
	c.CertificateExpiry = nil
	wantRejection(t, evaluate(t, c, eligSlot(), &fakeEligibilityStore{}),
		RejectCertificateExpired, "Certificato medico scaduto")
}

func TestEvaluate_CertificateValidOnExpiryDay(t *testing.T) {
	c := eligClient()
	c.CertificateExpiry = datePtr(2026, time.March, 4) // today
	if err := evaluate(t, c, eligSlot(), &fakeEligibilityStore{}); err != nil {
		t.Fatalf("certificate should be valid on its expiry day: %v", err)
	}
}

func TestEvaluate_SlotClosed(t *testing.T) {
	s := eligSlot()
	s.ClosureDate = datePtr(2026, time.March, 7)
	wantRejection(t, evaluate(t, eligClient(), s, &fakeEligibilityStore{}), RejectSlotClosed, "chiusa")

	// A closure on a different date does not block this occurrence.
	s.ClosureDate = datePtr(2026, time.March, 14)
	if err := evaluate(t, eligClient(), s, &fakeEligibilityStore{}); err != nil {
		t.Fatalf("closure on another date blocked: %v", err)
	}
}

func TestEvaluate_NotOfferable(t *testing.T) {
	s := eligSlot()
	s.StartTime = "22:00"
	wantRejection(t, evaluate(t, eligClient(), s, &fakeEligibilityStore{}), RejectNotOfferable, "")
}

func TestEvaluate_PastCutoff(t *testing.T) {
	svc := &EligibilityService{Store: &fakeEligibilityStore{}, Capacity: 8}
	// 90 minutes before start on the occurrence day.
	now := time.Date(2026, time.March, 7, 5, 30, 0, 0, time.UTC)
	err := svc.Evaluate(context.Background(), eligClient(), eligSlot(), eligOccurrence, now)
	wantRejection(t, err, RejectTooLate, "2 ore")
}

func TestEvaluate_QuotaExceeded(t *testing.T) {
	c := eligClient()
	c.WeeklyFrequencyLimit = "2"
	err := evaluate(t, c, eligSlot(), &fakeEligibilityStore{weekCount: 2})
	wantRejection(t, err, RejectQuotaExceeded, "2/2")
}

func TestEvaluate_QuotaOpenIsUnlimited(t *testing.T) {
	c := eligClient()
	c.WeeklyFrequencyLimit = "Open"
	if err := evaluate(t, c, eligSlot(), &fakeEligibilityStore{weekCount: 99}); err != nil {
		t.Fatalf("Open quota rejected: %v", err)
	}
}

func TestEvaluate_Duplicate(t *testing.T) {
	err := evaluate(t, eligClient(), eligSlot(), &fakeEligibilityStore{duplicate: true})
	wantRejection(t, err, RejectDuplicate, "già prenotato")
}

func TestEvaluate_SlotFull(t *testing.T) {
	err := evaluate(t, eligClient(), eligSlot(), &fakeEligibilityStore{occupancy: 8})
	wantRejection(t, err, RejectSlotFull, "completo")
}

func TestEvaluate_OrderShortCircuits(t *testing.T) {
	// An unpaid client with a full slot must hear about payment first.
	c := eligClient()
	c.PaymentStatus = ""
	err := evaluate(t, c, eligSlot(), &fakeEligibilityStore{occupancy: 8, duplicate: true})
	wantRejection(t, err, RejectNotPaid, "")
}

func TestParseFrequencyLimit(t *testing.T) {
	cases := []struct {
		in      string
		limit   int
		limited bool
	}{
		{"Open", 0, false},
		{"open", 0, false},
		{"", 0, false},
		{"garbage", 0, false},
		{"0", 0, false},
		{"-2", 0, false},
		{"2", 2, true},
		{" 3 ", 3, true},
	}
	for _, tc := range cases {
		limit, limited := ParseFrequencyLimit(tc.in)
		if limit != tc.limit || limited != tc.limited {
			t.Fatalf("ParseFrequencyLimit(%q) = %d,%v; want %d,%v",
				tc.in, limit, limited, tc.limit, tc.limited)
		}
	}
}
