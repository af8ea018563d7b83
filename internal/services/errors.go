// Package services – error taxonomy
//
// This file defines the sentinel errors the service layer returns and the
// Rejection type carrying user-facing refusal reasons. Handlers translate
// sentinels into stable machine-readable codes and Italian messages; a
// Rejection already carries its message because the text depends on runtime
// data (expiry dates, quota counts, time remaining).

package services

import "errors"

// Sentinel errors shared across services. Handlers map these to wire codes.
var (
	// ErrClientNotFound indicates the email does not match any client record.
	ErrClientNotFound = errors.New("client not found")

	// ErrMissingClientID indicates the client record exists but carries no
	// permanent access code, so no login can ever succeed for it.
	ErrMissingClientID = errors.New("client record has no access code")

	// ErrUnauthorized indicates the presented access code is wrong, expired,
	// or already consumed.
	ErrUnauthorized = errors.New("invalid or expired access code")

	// ErrRateLimited indicates the per-email code-request throttle tripped.
	ErrRateLimited = errors.New("too many code requests")

	// ErrMailDelivery indicates the temporary code was issued but the email
	// could not be sent. Transient: the client may simply retry.
	ErrMailDelivery = errors.New("email delivery failed")

	// ErrSlotNotFound indicates the referenced slot id does not exist.
	ErrSlotNotFound = errors.New("slot not found")

	// ErrBookingNotFound indicates the booking does not exist or does not
	// belong to the requesting client.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrInvalidInput indicates a malformed request parameter (bad date,
	// non-numeric slot id, empty email).
	ErrInvalidInput = errors.New("invalid input")
)

// Rejection is a business-rule refusal: the request was well-formed and
// authenticated, but a booking rule says no. Code is a stable snake_case
// identifier; Reason is the Italian message shown to the member as-is.
type Rejection struct {
	Code   string
	Reason string
}

// Error implements the error interface.
func (r *Rejection) Error() string { return r.Reason }

// Rejection codes. One per refusal rule so clients and tests can branch
// without string-matching Italian text.
const (
	RejectNotPaid             = "not_paid"
	RejectSubscriptionExpired = "subscription_expired"
	RejectCertificateExpired  = "certificate_expired"
	RejectSlotClosed          = "slot_closed"
	RejectNotOfferable        = "slot_not_offerable"
	RejectTooLate             = "too_late"
	RejectQuotaExceeded       = "quota_exceeded"
	RejectDuplicate           = "duplicate_booking"
	RejectSlotFull            = "slot_full"
	RejectPastBooking         = "past_booking"
	RejectCancelTooLate       = "cancel_too_late"
)

// reject builds a *Rejection. Small helper to keep rule sites terse.
func reject(code, reason string) *Rejection {
	return &Rejection{Code: code, Reason: reason}
}

// AsRejection unwraps err into a *Rejection when it is one.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}
