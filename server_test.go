package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/mmdatafocus/brokerage_backend/config"
	"github.com/mmdatafocus/brokerage_backend/middlewares"
)

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"  ", nil},
		{"https://a.example, https://b.example ,,", []string{"https://a.example", "https://b.example"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, splitAndTrim(tt.in)); diff != "" {
			t.Fatalf("splitAndTrim(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func preflight(r *gin.Engine, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/escrows", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_CORS(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("any origin outside production", func(t *testing.T) {
		t.Setenv("GO_ENV", "")
		t.Setenv("CORS_ORIGINS", "")
		w := preflight(newRouter(config.GetLogger()), "https://crm.example")
		if w.Header().Get("Access-Control-Allow-Origin") != "*" {
			t.Fatalf("expected wildcard origin, got %q", w.Header().Get("Access-Control-Allow-Origin"))
		}
	})

	t.Run("allowlist in production", func(t *testing.T) {
		t.Setenv("GO_ENV", "production")
		t.Setenv("CORS_ORIGINS", "https://crm.example")
		r := newRouter(config.GetLogger())

		if got := preflight(r, "https://crm.example").Header().Get("Access-Control-Allow-Origin"); got != "https://crm.example" {
			t.Fatalf("expected allowlisted origin, got %q", got)
		}
		if w := preflight(r, "https://evil.example"); w.Code != http.StatusForbidden {
			t.Fatalf("expected 403 for unlisted origin, got %d", w.Code)
		}
	})
}

func TestRouter_RequestIdOnEveryResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := newRouter(config.GetLogger())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/does-not-exist", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if w.Header().Get(middlewares.RequestIdHeader) == "" {
		t.Fatalf("expected %s header", middlewares.RequestIdHeader)
	}
}
