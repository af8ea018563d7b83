// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP responses
// (via the `fail()` helper in this package). These codes provide clients with a stable,
// machine-readable error taxonomy that supplements the Italian human-readable messages.
//
// Conventions:
//   - Codes are lowercase, snake_case, and domain-agnostic unless explicitly noted.
//   - Generic codes (e.g., bad_request, unauthorized, conflict) mirror common HTTP
//     status semantics to aid interoperability.
//   - Booking-rule refusals reuse the Rejection codes from the services package
//     verbatim (e.g. slot_full, quota_exceeded), so the client can branch on them
//     without parsing message text.
//   - All error responses must include both an HTTP status and a code.
//
// Example response:
//
//	{
//	  "success": false,
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "slot_full",
//	  "message": "Orario al completo. Scegli un'altra fascia oraria."
//	}
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeNotFound     = "not_found"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeInvalidAction   = "invalid_action"
	ErrCodeEmailFailed     = "email_failed"
	ErrCodeMissingClientID = "missing_client_id"

	ErrCodeMethodNotAllowed = "method_not_allowed"
)
