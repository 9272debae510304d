package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"fitflow-backend/internal/checkins"
	"fitflow-backend/internal/shared/server/middleware"
)

type latestStub struct{ c checkins.CheckIn }

func (s latestStub) Latest(ctx context.Context, userID string) (checkins.CheckIn, error) {
	if s.c.UserID != userID {
		return checkins.CheckIn{}, checkins.ErrNotFound
	}
	return s.c, nil
}

func newTestRouter(d *Dispatcher, cs LatestCheckIn) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Auth("dev"))
	NewHandler(d, NewHub(), cs).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func do(t *testing.T, r http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("X-Guest-Id", "test-guest")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestNotificationEndpoints(t *testing.T) {
	d := &Dispatcher{
		Repo:    NewMemoryRepo(),
		Now:     fixedNow,
		Builder: Builder{WorkoutHour: 18, Now: at(7, 40), Pick: func(int) int { return 2 }},
	}
	r := newTestRouter(d, latestStub{c: checkins.CheckIn{UserID: "guest:test-guest", BodyWeight: 200}})

	resp := do(t, r, http.MethodPost, "/api/v1/notifications/check")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var checked struct {
		Items []Notification `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&checked); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(checked.Items) != 2 || checked.Items[0].Message != "Time for nutrition! Aim for 40g protein this meal." {
		t.Fatalf("unexpected check result: %+v", checked.Items)
	}

	resp = do(t, r, http.MethodPost, "/api/v1/notifications/"+checked.Items[0].ID+"/read")
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	resp = do(t, r, http.MethodPost, "/api/v1/notifications/missing/read")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}

	resp = do(t, r, http.MethodGet, "/api/v1/notifications?unread=true")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var list struct {
		Items []Notification `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].Kind != KindMotivation {
		t.Fatalf("unexpected unread list: %+v", list.Items)
	}
}
