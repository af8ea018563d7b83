// Package services – ClientService
//
// This file implements ClientService, which assembles the authenticated
// member profile the app loads right after login: identity fields,
// certificate/subscription/payment state with display strings, the weekly
// booking count, and the upcoming-bookings list.
//
// A successful Status call is what establishes the session: when the login
// used a temporary code, the code is consumed here, not at verification
// time, so a member whose first fetch fails can retry with the same code.

package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"

	"github.com/liftpisa/go-booking-backend/internal/repo"
	"github.com/liftpisa/go-booking-backend/internal/schedule"
)

// ClientStatus is the full profile payload. Field names follow the wire
// contract the mobile app was built against.
type ClientStatus struct {
	Found                   bool          `json:"found"`
	ClientID                string        `json:"clientId"`
	FirstName               string        `json:"nome"`
	LastName                string        `json:"cognome"`
	Email                   string        `json:"email"`
	FiscalCode              string        `json:"codiceFiscale"`
	CertificateExpired      bool          `json:"certificateExpired"`
	CertificateExpiryString string        `json:"certificateExpiryString"`
	ASIExpired              bool          `json:"asiExpired"`
	ASIExpiryString         string        `json:"asiExpiryString"`
	PaymentStatus           string        `json:"paymentStatus"`
	IsPaid                  bool          `json:"isPaid"`
	Frequency               string        `json:"frequenza"`
	WeeklyBookings          int64         `json:"weeklyBookings"`
	TotalBookings           int           `json:"totalBookings"`
	Bookings                []BookingView `json:"bookings"`
	Message                 string        `json:"message,omitempty"`
}

// ClientService builds authenticated member profiles.
type ClientService struct {
	DB      *gorm.DB
	Access  *AccessService
	Booking *BookingService
}

// Status authenticates (email, code) and returns the member profile with
// bookings from the start of the current ISO week onward. On success a
// temporary-code login is consumed.
func (s *ClientService) Status(ctx context.Context, email, code string) (*ClientStatus, error) {
	tr := otel.Tracer("services/ClientService")
	ctx, span := tr.Start(ctx, "Status")
	defer span.End()

	client, tempCode, err := s.Access.ResolveLogin(ctx, email, code)
	if err != nil {
		return nil, err
	}

	now := s.Booking.now()
	weekFrom, weekTo := schedule.WeekBounds(now)

	weekly, err := repo.CountBookingsBetween(ctx, s.DB, client.Email, weekFrom, weekTo)
	if err != nil {
		return nil, err
	}
	bookings, err := s.Booking.ListForClient(ctx, client.Email, weekFrom)
	if err != nil {
		return nil, err
	}

	st := &ClientStatus{
		Found:              true,
		ClientID:           client.ID,
		FirstName:          client.FirstName,
		LastName:           client.LastName,
		Email:              client.Email,
		FiscalCode:         client.FiscalCode,
		CertificateExpired: CertificateExpired(client, now),
		ASIExpired:         SubscriptionExpired(client, now),
		PaymentStatus:      client.PaymentStatus,
		IsPaid:             IsPaid(client),
		Frequency:          client.WeeklyFrequencyLimit,
		WeeklyBookings:     weekly,
		TotalBookings:      len(bookings),
		Bookings:           bookings,
	}
	if client.CertificateExpiry != nil {
		st.CertificateExpiryString = schedule.FormatDate(*client.CertificateExpiry)
	}
	if client.SubscriptionExpiry != nil {
		st.ASIExpiryString = schedule.FormatDate(*client.SubscriptionExpiry)
	}
	switch {
	case st.CertificateExpired:
		st.Message = "Certificato medico scaduto"
	case st.ASIExpired:
		st.Message = "Tesseramento ASI scaduto"
	case !st.IsPaid:
		st.Message = "Quota non pagata"
	}

	if err := s.Access.MarkSessionEstablished(ctx, client.Email, tempCode); err != nil {
		return nil, err
	}
	return st, nil
}

// PaymentLinkInfo is the getPaymentLink payload.
type PaymentLinkInfo struct {
	HasPayment  bool   `json:"hasPayment"`
	PaymentLink string `json:"paymentLink,omitempty"`
	Message     string `json:"message,omitempty"`
}

// PaymentLink returns the member's outstanding-payment link, if any. The
// lookup is by email alone: the app requests this before a code login has
// completed, and the link itself carries no member data.
func (s *ClientService) PaymentLink(ctx context.Context, email string) (*PaymentLinkInfo, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrInvalidInput
	}
	client, err := repo.FindClientByEmail(ctx, s.DB, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	link := strings.TrimSpace(client.PaymentLink)
	if link == "" {
		return &PaymentLinkInfo{Message: "Nessun pagamento in sospeso."}, nil
	}
	return &PaymentLinkInfo{HasPayment: true, PaymentLink: link}, nil
}
