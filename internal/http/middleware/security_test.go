package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func serveSecured(t *testing.T, opt SecurityOptions, mutate func(*http.Request)) http.Header {
	t.Helper()
	r := gin.New()
	r.Use(RequestID(), SecurityHeaders(opt))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if mutate != nil {
		mutate(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Header()
}

func TestSecurityHeaders_Baseline(t *testing.T) {
	h := serveSecured(t, SecurityOptions{NoStore: true, EnablePolicy: true}, nil)

	if h.Get("X-Content-Type-Options") != "nosniff" || h.Get("X-Frame-Options") != "DENY" {
		t.Fatalf("baseline headers = %v", h)
	}
	if h.Get("Cache-Control") != "no-store" || h.Get("Pragma") != "no-cache" {
		t.Fatalf("cache headers = %v", h)
	}
	if !strings.Contains(h.Get("Permissions-Policy"), "geolocation=()") {
		t.Fatalf("Permissions-Policy = %q", h.Get("Permissions-Policy"))
	}
	if !strings.Contains(h.Get("Access-Control-Expose-Headers"), "X-Request-ID") {
		t.Fatalf("expose headers = %q", h.Get("Access-Control-Expose-Headers"))
	}
}

func TestSecurityHeaders_HSTSOnlyOnHTTPS(t *testing.T) {
	h := serveSecured(t, SecurityOptions{EnableHSTS: true}, nil)
	if h.Get("Strict-Transport-Security") != "" {
		t.Fatalf("HSTS emitted on plain HTTP")
	}

	h = serveSecured(t, SecurityOptions{EnableHSTS: true}, func(req *http.Request) {
		req.Header.Set("X-Forwarded-Proto", "https")
	})
	if !strings.Contains(h.Get("Strict-Transport-Security"), "max-age=") {
		t.Fatalf("HSTS missing behind HTTPS proxy: %q", h.Get("Strict-Transport-Security"))
	}
}
