package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func run(mw echo.MiddlewareFunc, req *http.Request, handler echo.HandlerFunc) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	err := mw(handler)(c)
	return rec, err
}

func okHandler(c echo.Context) error { return c.NoContent(http.StatusOK) }

func TestRequestID_GeneratesNew(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec, err := run(RequestID(), req, okHandler)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("expected generated request id")
	}
}

func TestRequestID_PreservesExisting(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-abc")
	rec, _ := run(RequestID(), req, okHandler)
	if rec.Header().Get(RequestIDHeader) != "req-abc" {
		t.Errorf("expected caller id preserved, got %q", rec.Header().Get(RequestIDHeader))
	}
}

func TestRecovery_ConvertsPanic(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := run(Recovery(zerolog.Nop()), req, func(echo.Context) error {
		panic("boom")
	})
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 from recovered panic, got %v", err)
	}
}

func TestBodyLimit_RejectsOversized(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 2048)))
	req.ContentLength = 2048
	_, err := run(BodyLimit("1K"), req, okHandler)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %v", err)
	}
}

func TestBodyLimit_AllowsSmall(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small"))
	rec, err := run(BodyLimit("1K"), req, okHandler)
	if err != nil || rec.Code != http.StatusOK {
		t.Errorf("expected pass-through, got %v %d", err, rec.Code)
	}
}

func TestParseLimit(t *testing.T) {
	cases := map[string]int64{
		"1K":   1 << 10,
		"2M":   2 << 20,
		"1G":   1 << 30,
		"4096": 4096,
		"":     1 << 20,
		"junk": 1 << 20,
	}
	for in, want := range cases {
		if got := parseLimit(in); got != want {
			t.Errorf("parseLimit(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestLogger_SkipsHealthProbe(t *testing.T) {
	var buf strings.Builder
	logger := zerolog.New(&buf)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	if _, err := run(Logger(logger), req, okHandler); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("health probe must not be logged, got %q", buf.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/webhook", nil)
	run(Logger(logger), req, okHandler)
	if !strings.Contains(buf.String(), `"path":"/webhook"`) {
		t.Errorf("expected request line, got %q", buf.String())
	}
}

func TestRateLimit_Blocks(t *testing.T) {
	mw := RateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	if err := mw(okHandler)(e.NewContext(req, rec)); err != nil {
		t.Fatalf("first request must pass: %v", err)
	}

	rec = httptest.NewRecorder()
	err := mw(okHandler)(e.NewContext(req, rec))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 on burst exhaustion, got %v", err)
	}
}

func TestRateLimit_EvictsIdleBuckets(t *testing.T) {
	store := newRateLimiterStore(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})

	stale := store.getBucket("10.0.0.1")
	stale.mu.Lock()
	stale.lastRefill = time.Now().Add(-time.Hour)
	stale.mu.Unlock()
	store.mu.Lock()
	store.lastSweep = time.Now().Add(-time.Hour)
	store.mu.Unlock()

	store.getBucket("10.0.0.2")

	store.mu.RLock()
	_, ok := store.buckets["10.0.0.1"]
	store.mu.RUnlock()
	if ok {
		t.Error("idle bucket must be evicted on sweep")
	}
}
