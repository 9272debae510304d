package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"fitflow-backend/internal/checkins"
	"fitflow-backend/internal/shared/config"
	"fitflow-backend/internal/shared/server/middleware"
)

func newTestRouter(limiter *middleware.RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := &checkins.Service{Repo: checkins.NewMemoryRepo()}
	return NewRouter(RouterDeps{
		Config:   config.Config{Env: "dev", LogStore: "memory"},
		CheckIns: checkins.NewHandler(svc),
		Limiter:  limiter,
	})
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	r := newTestRouter(nil)

	for _, path := range []string{"/api/v1/health", "/metrics"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rec.Code)
		}
	}
}

func TestMeRequiresIdentity(t *testing.T) {
	r := newTestRouter(nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("X-Guest-Id", "abc")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		UserID string `json:"userId"`
		Guest  bool   `json:"guest"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.UserID != "guest:abc" || !body.Guest {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestScoreRouteMounted(t *testing.T) {
	r := newTestRouter(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recovery/score",
		strings.NewReader(`{"sleepHours":8,"soreness":3,"energy":"high"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Guest-Id", "abc")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"score":91`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestRouterRateLimitsPerPrincipal(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	r := newTestRouter(middleware.NewRateLimiter(func() time.Time { return now }))

	send := func(guest string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		req.Header.Set("X-Guest-Id", guest)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	burst := DefaultRateLimits[groupDefault].Burst
	for i := 0; i < burst; i++ {
		if code := send("busy"); code != http.StatusOK {
			t.Fatalf("request %d status = %d", i+1, code)
		}
	}
	if code := send("busy"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", code)
	}
	if code := send("quiet"); code != http.StatusOK {
		t.Fatalf("other principal should not be limited, got %d", code)
	}
}

func TestAddr(t *testing.T) {
	tests := map[string]string{"": ":8080", "9000": ":9000", ":7000": ":7000"}
	for in, want := range tests {
		if got := Addr(in); got != want {
			t.Fatalf("Addr(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCheckInStatsRouteIsNotAnID(t *testing.T) {
	r := newTestRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/checkins/stats", nil)
	req.Header.Set("X-Guest-Id", "abc")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"checkIns":0`) {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
}
