// Package services – AccessService
//
// This file implements AccessService, which owns client authentication:
// issuing temporary login codes over email and resolving a presented code
// (permanent or temporary) into a client record.
//
// Temporary-code lifecycle: a code verifies successfully any number of times
// until a full session is established; MarkSessionEstablished flips it to
// used once the first authenticated data fetch completes. Expiry applies
// regardless (TTL from config, 24h by default).
//
// Code requests are throttled per email with a token-bucket limiter, backed
// by a count over the audit log so the limit holds across restarts. Every
// decision is appended to the audit log best-effort.

package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/liftpisa/go-booking-backend/internal/domain"
	"github.com/liftpisa/go-booking-backend/internal/mail"
	"github.com/liftpisa/go-booking-backend/internal/repo"
)

// codeAlphabet excludes visually ambiguous characters (I, L, O, 0, 1).
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// codeLength is the number of characters in an emailed temporary code.
const codeLength = 8

// Audit actions and outcomes recorded by this service.
const (
	auditActionCodeRequest = "RICHIESTA_CODICE"
	auditActionLogin       = "LOGIN"

	auditOutcomeOK          = "SUCCESSO"
	auditOutcomeNotFound    = "NON_TROVATO"
	auditOutcomeThrottled   = "LIMITE_RAGGIUNTO"
	auditOutcomeMailFailure = "ERRORE_EMAIL"
	auditOutcomeBadCode     = "CODICE_ERRATO"
)

// AccessStore is the persistence surface AccessService depends on.
type AccessStore interface {
	FindClientByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Client, error)
	CreateTempCode(ctx context.Context, db *gorm.DB, email, originalCode, code string, ttl time.Duration) (*domain.TempCode, error)
	FindTempCode(ctx context.Context, db *gorm.DB, email, code string) (*domain.TempCode, error)
	MarkTempCodeUsed(ctx context.Context, db *gorm.DB, email, code string) error
	AppendAudit(ctx context.Context, db *gorm.DB, e *domain.AuditEntry) error
	CountAuditSince(ctx context.Context, db *gorm.DB, email, action, outcome string, since time.Time) (int64, error)
}

// GormAccessStore implements AccessStore over the repo package.
type GormAccessStore struct{}

func (GormAccessStore) FindClientByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Client, error) {
	return repo.FindClientByEmail(ctx, db, email)
}

func (GormAccessStore) CreateTempCode(ctx context.Context, db *gorm.DB, email, originalCode, code string, ttl time.Duration) (*domain.TempCode, error) {
	return repo.CreateTempCode(ctx, db, email, originalCode, code, ttl)
}

func (GormAccessStore) FindTempCode(ctx context.Context, db *gorm.DB, email, code string) (*domain.TempCode, error) {
	return repo.FindTempCode(ctx, db, email, code)
}

func (GormAccessStore) MarkTempCodeUsed(ctx context.Context, db *gorm.DB, email, code string) error {
	return repo.MarkTempCodeUsed(ctx, db, email, code)
}

func (GormAccessStore) AppendAudit(ctx context.Context, db *gorm.DB, e *domain.AuditEntry) error {
	return repo.AppendAudit(ctx, db, e)
}

func (GormAccessStore) CountAuditSince(ctx context.Context, db *gorm.DB, email, action, outcome string, since time.Time) (int64, error) {
	return repo.CountAuditSince(ctx, db, email, action, outcome, since)
}

// AccessService authenticates clients and issues temporary codes.
type AccessService struct {
	DB     *gorm.DB
	Store  AccessStore
	Mailer mail.Mailer

	TempCodeTTL   time.Duration // validity of an issued code
	RequestLimit  int           // max code requests per window per email
	RequestWindow time.Duration // throttle window

	// Now is the clock; tests override it. Nil means time.Now.
	Now func() time.Time

	mu       sync.Mutex
	limiters map[string]*limiterEntry
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func (s *AccessService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// allowRequest consumes one token from the per-email bucket. Stale buckets
// are swept opportunistically so the map stays proportional to active users.
func (s *AccessService) allowRequest(email string, now time.Time) bool {
	limit := s.RequestLimit
	window := s.RequestWindow
	if limit <= 0 || window <= 0 {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.limiters == nil {
		s.limiters = make(map[string]*limiterEntry)
	}
	e, ok := s.limiters[email]
	if !ok {
		if len(s.limiters) > 1024 {
			for k, v := range s.limiters {
				if now.Sub(v.lastSeen) > 3*window {
					delete(s.limiters, k)
				}
			}
		}
		e = &limiterEntry{
			lim: rate.NewLimiter(rate.Limit(float64(limit)/window.Seconds()), limit),
		}
		s.limiters[email] = e
	}
	e.lastSeen = now
	return e.lim.AllowN(now, 1)
}

// generateCode draws codeLength characters from codeAlphabet using crypto
// randomness. Codes are guessable only at ~1 in 31^8.
func generateCode() (string, error) {
	b := make([]byte, codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b), nil
}

// RequestTemporaryCode issues a fresh temporary code for email and sends it.
// Returns ErrRateLimited, ErrClientNotFound, ErrMissingClientID, or
// ErrMailDelivery; nil means the code is in the member's inbox.
func (s *AccessService) RequestTemporaryCode(ctx context.Context, email string) error {
	tr := otel.Tracer("services/AccessService")
	ctx, span := tr.Start(ctx, "RequestTemporaryCode")
	defer span.End()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ErrInvalidInput
	}
	now := s.now()

	if !s.allowRequest(email, now) {
		s.audit(ctx, email, auditActionCodeRequest, auditOutcomeThrottled, "")
		return ErrRateLimited
	}
	// The in-memory bucket resets on restart; the audit log does not. Count
	// the successful requests inside the window as a persistent backstop.
	if s.RequestLimit > 0 && s.RequestWindow > 0 {
		n, cErr := s.Store.CountAuditSince(ctx, s.DB, email, auditActionCodeRequest, auditOutcomeOK, now.Add(-s.RequestWindow))
		if cErr != nil {
			return cErr
		}
		if n >= int64(s.RequestLimit) {
			s.audit(ctx, email, auditActionCodeRequest, auditOutcomeThrottled, "limite persistente")
			return ErrRateLimited
		}
	}

	client, err := s.Store.FindClientByEmail(ctx, s.DB, email)
	if err != nil {
		if err == repo.ErrNotFound {
			s.audit(ctx, email, auditActionCodeRequest, auditOutcomeNotFound, "")
			return ErrClientNotFound
		}
		return err
	}
	if strings.TrimSpace(client.ID) == "" {
		s.audit(ctx, email, auditActionCodeRequest, auditOutcomeNotFound, "record senza codice di accesso")
		return ErrMissingClientID
	}

	code, err := generateCode()
	if err != nil {
		return err
	}
	if _, err := s.Store.CreateTempCode(ctx, s.DB, email, client.ID, code, s.TempCodeTTL); err != nil {
		return err
	}

	subject := "Il tuo codice temporaneo LIFT"
	body := fmt.Sprintf(
		"Ciao %s,\n\n"+
			"il tuo codice temporaneo per accedere all'app LIFT è:\n\n"+
			"    %s\n\n"+
			"Il codice è valido per 24 ore e può essere usato al posto del tuo codice personale.\n\n"+
			"Se non hai richiesto tu questo codice puoi ignorare questa email.\n\n"+
			"LIFT Pisa",
		client.FirstName, code)

	if err := s.Mailer.Send(ctx, email, subject, body); err != nil {
		s.audit(ctx, email, auditActionCodeRequest, auditOutcomeMailFailure, err.Error())
		return ErrMailDelivery
	}

	span.SetAttributes(attribute.String("client.id", client.ID))
	s.audit(ctx, email, auditActionCodeRequest, auditOutcomeOK, "")
	return nil
}

// ResolveLogin verifies (email, code) and returns the client. tempCode is
// the temporary code that granted access, or "" when the permanent code was
// used; the caller passes it to MarkSessionEstablished once the session is
// fully set up.
//
// A temporary code is accepted only while unexpired, not yet consumed, and
// issued against the client's current permanent code.
func (s *AccessService) ResolveLogin(ctx context.Context, email, code string) (client *domain.Client, tempCode string, err error) {
	tr := otel.Tracer("services/AccessService")
	ctx, span := tr.Start(ctx, "ResolveLogin", trace.WithAttributes(
		attribute.String("login.email", email),
	))
	defer span.End()

	email = strings.ToLower(strings.TrimSpace(email))
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return nil, "", ErrInvalidInput
	}

	client, err = s.Store.FindClientByEmail(ctx, s.DB, email)
	if err != nil {
		if err == repo.ErrNotFound {
			s.audit(ctx, email, auditActionLogin, auditOutcomeNotFound, "")
			return nil, "", ErrClientNotFound
		}
		return nil, "", err
	}
	if strings.TrimSpace(client.ID) == "" {
		s.audit(ctx, email, auditActionLogin, auditOutcomeNotFound, "record senza codice di accesso")
		return nil, "", ErrMissingClientID
	}

	if strings.EqualFold(code, client.ID) {
		s.audit(ctx, email, auditActionLogin, auditOutcomeOK, "codice permanente")
		return client, "", nil
	}

	t, err := s.Store.FindTempCode(ctx, s.DB, email, code)
	if err != nil {
		if err == repo.ErrNotFound {
			s.audit(ctx, email, auditActionLogin, auditOutcomeBadCode, "")
			return nil, "", ErrUnauthorized
		}
		return nil, "", err
	}
	now := s.now()
	switch {
	case t.Used:
		s.audit(ctx, email, auditActionLogin, auditOutcomeBadCode, "codice già utilizzato")
		return nil, "", ErrUnauthorized
	case !t.ExpiresAt.After(now):
		s.audit(ctx, email, auditActionLogin, auditOutcomeBadCode, "codice scaduto")
		return nil, "", ErrUnauthorized
	case !strings.EqualFold(t.OriginalCode, client.ID):
		// Issued before the permanent code was rotated at reception.
		s.audit(ctx, email, auditActionLogin, auditOutcomeBadCode, "codice permanente ruotato")
		return nil, "", ErrUnauthorized
	}

	s.audit(ctx, email, auditActionLogin, auditOutcomeOK, "codice temporaneo")
	return client, t.Code, nil
}

// MarkSessionEstablished consumes the temporary code after the first
// authenticated data fetch succeeded. A no-op when the login used the
// permanent code.
func (s *AccessService) MarkSessionEstablished(ctx context.Context, email, tempCode string) error {
	if strings.TrimSpace(tempCode) == "" {
		return nil
	}
	if err := s.Store.MarkTempCodeUsed(ctx, s.DB, email, tempCode); err != nil && err != repo.ErrNotFound {
		return err
	}
	return nil
}

// audit appends one log row; failures are logged and swallowed so telemetry
// can never fail the primary operation.
func (s *AccessService) audit(ctx context.Context, email, action, outcome, details string) {
	e := &domain.AuditEntry{
		Timestamp: s.now().UTC(),
		Email:     email,
		Action:    action,
		Outcome:   outcome,
		Details:   details,
	}
	if err := s.Store.AppendAudit(ctx, s.DB, e); err != nil {
		log.Warn().Err(err).Str("action", action).Msg("audit append failed")
	}
}
