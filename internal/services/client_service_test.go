package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/liftpisa/go-booking-backend/internal/domain"
)

func newClientService(t *testing.T, db *gorm.DB) (*ClientService, *fakeMailer) {
	t.Helper()
	booking := newBookingService(t, db)
	mailer := &fakeMailer{}
	booking.Access.Mailer = mailer
	return &ClientService{DB: db, Access: booking.Access, Booking: booking}, mailer
}

func TestStatus_Profile(t *testing.T) {
	db := testDB(t)
	seedBookingWorld(t, db)
	svc, _ := newClientService(t, db)
	ctx := context.Background()

	if _, err := svc.Booking.Book(ctx, "anna@example.com", "LIFT001", 1, ""); err != nil {
		t.Fatalf("Book: %v", err)
	}

	st, err := svc.Status(ctx, "Anna@Example.com", "lift001")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.Found || st.ClientID != "LIFT001" || st.FirstName != "Anna" {
		t.Fatalf("identity = %+v", st)
	}
	if !st.IsPaid || st.CertificateExpired || st.ASIExpired {
		t.Fatalf("state flags = %+v", st)
	}
	if st.CertificateExpiryString != "01/01/2027" || st.ASIExpiryString != "01/01/2027" {
		t.Fatalf("expiry strings = %q / %q", st.CertificateExpiryString, st.ASIExpiryString)
	}
	if st.WeeklyBookings != 1 || st.TotalBookings != 1 || len(st.Bookings) != 1 {
		t.Fatalf("booking counts = %+v", st)
	}
	if st.Bookings[0].DateFormatted != "Sab 7 Mar" {
		t.Fatalf("booking row = %+v", st.Bookings[0])
	}
	if st.Message != "" {
		t.Fatalf("healthy profile carries message %q", st.Message)
	}
}

func TestStatus_WarningMessages(t *testing.T) {
	db := testDB(t)
	seedBookingWorld(t, db)
	svc, _ := newClientService(t, db)
	ctx := context.Background()

	update := func(col string, val any) {
		t.Helper()
		if err := db.Table("clients").Where("id = ?", "LIFT001").Update(col, val).Error; err != nil {
			t.Fatalf("update %s: %v", col, err)
		}
	}

	update("payment_status", "in sospeso")
	st, err := svc.Status(ctx, "anna@example.com", "LIFT001")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.IsPaid || st.Message != "Quota non pagata" {
		t.Fatalf("unpaid profile = %+v", st)
	}

	update("subscription_expiry", time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC))
	st, err = svc.Status(ctx, "anna@example.com", "LIFT001")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.ASIExpired || st.Message != "Tesseramento ASI scaduto" {
		t.Fatalf("expired subscription = %+v", st)
	}

	// Certificate outranks the other warnings.
	update("certificate_expiry", time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC))
	st, err = svc.Status(ctx, "anna@example.com", "LIFT001")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.CertificateExpired || st.Message != "Certificato medico scaduto" {
		t.Fatalf("expired certificate = %+v", st)
	}
}

func TestStatus_ConsumesTempCode(t *testing.T) {
	db := testDB(t)
	seedBookingWorld(t, db)
	svc, mailer := newClientService(t, db)
	ctx := context.Background()

	if err := svc.Access.RequestTemporaryCode(ctx, "anna@example.com"); err != nil {
		t.Fatalf("issue code: %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("sent = %d mails", len(mailer.sent))
	}
	var issued domain.TempCode
	if err := db.First(&issued).Error; err != nil {
		t.Fatalf("load issued code: %v", err)
	}
	code := issued.Code
	if !strings.Contains(mailer.sent[0].body, code) {
		t.Fatalf("mail body misses the code")
	}

	if _, err := svc.Status(ctx, "anna@example.com", code); err != nil {
		t.Fatalf("first Status: %v", err)
	}
	// The code is single-session: the successful fetch consumed it.
	if _, err := svc.Status(ctx, "anna@example.com", code); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("second Status err = %v", err)
	}
	// The permanent code still works.
	if _, err := svc.Status(ctx, "anna@example.com", "LIFT001"); err != nil {
		t.Fatalf("permanent login: %v", err)
	}
}

func TestPaymentLink(t *testing.T) {
	db := testDB(t)
	seedBookingWorld(t, db)
	svc, _ := newClientService(t, db)
	ctx := context.Background()

	// Email alone resolves the member; the payment screen loads pre-login.
	info, err := svc.PaymentLink(ctx, "Anna@Example.com")
	if err != nil {
		t.Fatalf("PaymentLink: %v", err)
	}
	if info.HasPayment || info.Message != "Nessun pagamento in sospeso." {
		t.Fatalf("info = %+v", info)
	}

	if err := db.Table("clients").Where("id = ?", "LIFT001").
		Update("payment_link", " https://pay.example.com/anna ").Error; err != nil {
		t.Fatalf("update: %v", err)
	}
	info, err = svc.PaymentLink(ctx, "anna@example.com")
	if err != nil {
		t.Fatalf("PaymentLink: %v", err)
	}
	if !info.HasPayment || info.PaymentLink != "https://pay.example.com/anna" {
		t.Fatalf("info = %+v", info)
	}

	if _, err := svc.PaymentLink(ctx, "nobody@example.com"); !errors.Is(err, ErrClientNotFound) {
		t.Fatalf("unknown email err = %v", err)
	}
	if _, err := svc.PaymentLink(ctx, "  "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty email err = %v", err)
	}
}
