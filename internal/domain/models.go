// Package domain defines the persistence models for gym clients, recurring
// slots, bookings, temporary access codes, audit entries, and announcements.
// These types are mapped with GORM and form the core data layer of the
// booking backend.
//
// The schema mirrors the sheet layout the gym has operated on for years
// (Clienti, SpaziOrari, Prenotazioni, CodiciTemporanei, DebugLogs,
// Comunicazioni), but columns are addressed by name here — positional access
// stops at the store boundary.
package domain

import "time"

// Client is one gym member row. Client records are created and edited by the
// reception software, never by this service: booking flows treat them as
// read-only.
//
// Fields:
//   - ID: the permanent access code handed out at sign-up. Non-empty ID is a
//     precondition for any login to succeed.
//   - Email: case-insensitive lookup key; first match wins on duplicates.
//   - CertificateExpiry: medical certificate expiry; nil means missing,
//     which blocks booking just like an expired one.
//   - SubscriptionExpiry: ASI subscription expiry; nil means missing.
//   - PaymentStatus: raw status string; only "pagato" (case-insensitive)
//     counts as active.
//   - WeeklyFrequencyLimit: "Open" for unlimited, otherwise a small positive
//     integer as a string (subscription tier).
//   - FiscalCode, PaymentLink: opaque passthrough values for the client app.
type Client struct {
	ID                   string     `json:"clientId"  gorm:"type:varchar(32);primaryKey"`
	FirstName            string     `json:"nome"      gorm:"type:varchar(128)"`
	LastName             string     `json:"cognome"   gorm:"type:varchar(128)"`
	Email                string     `json:"email"     gorm:"type:varchar(255);not null;index:idx_client_email"`
	CertificateExpiry    *time.Time `json:"certificateExpiryDate,omitempty"`
	SubscriptionExpiry   *time.Time `json:"asiExpiryDate,omitempty"`
	PaymentStatus        string     `json:"paymentStatus" gorm:"type:varchar(32)"`
	WeeklyFrequencyLimit string     `json:"frequenza"     gorm:"type:varchar(16);not null;default:'Open'"`
	FiscalCode           string     `json:"codiceFiscale" gorm:"type:varchar(32)"`
	PaymentLink          string     `json:"paymentLink"   gorm:"type:varchar(512)"`
	CreatedAt            time.Time  `json:"-"`
	UpdatedAt            time.Time  `json:"-"`
}

// TableName returns the database table name for Client.
func (Client) TableName() string { return "clients" }

// Slot is a recurring weekly class window, e.g. "Sabato 07:00-08:00".
// Slots are managed externally and read-only to the core.
//
// StartTime/EndTime are "HH:MM" strings as they appear on the sheet; the
// schedule package parses and validates them. A slot is offerable only when
// its start hour falls in [6,21).
//
// ClosureDate suspends this recurring slot on one specific calendar date
// (gym closed, maintenance, holiday).
type Slot struct {
	ID          int        `json:"ID_Spazio"  gorm:"primaryKey;autoIncrement:false"`
	Weekday     string     `json:"Giorno"     gorm:"type:varchar(16);not null"`
	StartTime   string     `json:"Ora_Inizio" gorm:"type:varchar(5);not null"`
	EndTime     string     `json:"Ora_Fine"   gorm:"type:varchar(5);not null"`
	ClosureDate *time.Time `json:"-"`
	CreatedAt   time.Time  `json:"-"`
	UpdatedAt   time.Time  `json:"-"`
}

// TableName returns the database table name for Slot.
func (Slot) TableName() string { return "slots" }

// Booking commits one client to one slot occurrence on a concrete date.
//
// Invariants enforced by the service layer (and, for duplicates, by the
// unique index below):
//   - at most Capacity bookings share (SlotID, OccurrenceDate);
//   - at most one booking shares (Email, SlotID, OccurrenceDate);
//   - a client's bookings within one ISO week never exceed their weekly
//     frequency limit at booking time.
//
// OccurrenceDate is stored at midnight local time; date-only comparisons go
// through schedule.DateKey.
type Booking struct {
	ID             string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Email          string    `json:"email"      gorm:"type:varchar(255);not null;index:idx_booking_email;uniqueIndex:ux_booking_email_slot_date"`
	FirstName      string    `json:"nome"       gorm:"type:varchar(128)"`
	LastName       string    `json:"cognome"    gorm:"type:varchar(128)"`
	SlotID         int       `json:"idSpazio"   gorm:"not null;index:idx_booking_slot_date,priority:1;uniqueIndex:ux_booking_email_slot_date"`
	Weekday        string    `json:"giorno"     gorm:"type:varchar(16)"`
	StartTime      string    `json:"oraInizio"  gorm:"type:varchar(5)"`
	EndTime        string    `json:"oraFine"    gorm:"type:varchar(5)"`
	OccurrenceDate time.Time `json:"dataPrenotazione" gorm:"not null;index:idx_booking_slot_date,priority:2;uniqueIndex:ux_booking_email_slot_date"`
	CreatedAt      time.Time `json:"-"`
}

// TableName returns the database table name for Booking.
func (Booking) TableName() string { return "bookings" }

// TempCode is an ephemeral login credential emailed to a client as an
// alternative to their permanent code.
//
// A code stays reusable across login attempts until a full session is
// established (Used flips true on the first authenticated data fetch, not on
// code verification), and becomes unusable 24h after creation regardless.
// Multiple live codes per client may coexist.
type TempCode struct {
	ID           string    `json:"-"          gorm:"type:char(36);primaryKey"`
	Email        string    `json:"email"      gorm:"type:varchar(255);not null;index:idx_tempcode_email_code,priority:1"`
	OriginalCode string    `json:"-"          gorm:"type:varchar(32);not null"`
	Code         string    `json:"-"          gorm:"type:varchar(8);not null;index:idx_tempcode_email_code,priority:2"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"  gorm:"not null;index"`
	Used         bool      `json:"used"       gorm:"not null;default:false"`
}

// TableName returns the database table name for TempCode.
func (TempCode) TableName() string { return "temp_codes" }

// AuditEntry records a significant decision: login attempt, code request,
// booking attempt and its outcome. Writes are best-effort and must never
// fail the primary operation.
//
// The composite index supports the code-request throttle lookup
// (email, action, timestamp >= window start) without scanning history.
type AuditEntry struct {
	ID        uint      `json:"-"        gorm:"primaryKey"`
	Timestamp time.Time `json:"timestamp" gorm:"not null;index:idx_audit_email_action_ts,priority:3"`
	Email     string    `json:"email"    gorm:"type:varchar(255);index:idx_audit_email_action_ts,priority:1"`
	Action    string    `json:"action"   gorm:"type:varchar(64);index:idx_audit_email_action_ts,priority:2"`
	Outcome   string    `json:"outcome"  gorm:"type:varchar(64)"`
	Details   string    `json:"details"  gorm:"type:text"`
}

// TableName returns the database table name for AuditEntry.
func (AuditEntry) TableName() string { return "audit_log" }

// Communication is an announcement shown on the app home screen. Only
// active entries within their optional date range are served.
type Communication struct {
	ID        string     `json:"id"        gorm:"type:char(36);primaryKey"`
	Kind      string     `json:"tipo"      gorm:"type:varchar(32)"`
	Title     string     `json:"titolo"    gorm:"type:varchar(255);not null"`
	Message   string     `json:"messaggio" gorm:"type:text;not null"`
	Active    bool       `json:"-"         gorm:"not null;default:true;index"`
	StartsAt  *time.Time `json:"-"`
	EndsAt    *time.Time `json:"-"`
	CreatedAt time.Time  `json:"-"`
}

// TableName returns the database table name for Communication.
func (Communication) TableName() string { return "communications" }
