package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// captureLogs swaps the global logger for a buffer for the duration of fn.
func captureLogs(t *testing.T, fn func()) string {
	t.Helper()
	var buf bytes.Buffer
	orig := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = orig }()
	fn()
	return buf.String()
}

func serveRedacted(t *testing.T, target string, header http.Header) string {
	t.Helper()
	r := gin.New()
	r.Use(RedactingLogger(RedactOptions{MaskHeaders: []string{"X-Api-Key"}}))
	r.GET("/exec", func(c *gin.Context) { c.Status(http.StatusOK) })

	return captureLogs(t, func() {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		for k, vv := range header {
			for _, v := range vv {
				req.Header.Add(k, v)
			}
		}
		r.ServeHTTP(httptest.NewRecorder(), req)
	})
}

func TestRedactingLogger_MasksAccessCodes(t *testing.T) {
	out := serveRedacted(t, "/exec?action=getClientDataWithBookings&email=anna@example.com&code=AB2CD3EF", nil)

	if strings.Contains(out, "AB2CD3EF") {
		t.Fatalf("temporary code leaked: %s", out)
	}
	if strings.Contains(out, "anna@example.com") {
		t.Fatalf("email leaked: %s", out)
	}
	if !strings.Contains(out, "[REDACTED:code]") || !strings.Contains(out, "[REDACTED:email]") {
		t.Fatalf("redaction markers missing: %s", out)
	}
}

func TestRedactingLogger_MasksCodiceParam(t *testing.T) {
	out := serveRedacted(t, "/exec?codice=SEGRETO9", nil)
	if strings.Contains(out, "SEGRETO9") || !strings.Contains(out, "[REDACTED:code]") {
		t.Fatalf("codice param leaked: %s", out)
	}
}

func TestRedactingLogger_MasksHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer secret-token")
	h.Set("X-Api-Key", "key-12345")
	h.Set("X-Contact", "mario.rossi@example.com")
	out := serveRedacted(t, "/exec", h)

	if strings.Contains(out, "secret-token") || strings.Contains(out, "key-12345") {
		t.Fatalf("masked header leaked: %s", out)
	}
	if strings.Contains(out, "mario.rossi@example.com") {
		t.Fatalf("header email leaked: %s", out)
	}
}

func TestRedactingLogger_MasksUUIDs(t *testing.T) {
	out := serveRedacted(t, "/exec?action=cancelBooking&bookingId=123e4567-e89b-12d3-a456-426614174000", nil)
	if strings.Contains(out, "123e4567-e89b-12d3-a456-426614174000") {
		t.Fatalf("booking id leaked: %s", out)
	}
	if !strings.Contains(out, "[REDACTED:id]") {
		t.Fatalf("uuid marker missing: %s", out)
	}
}
