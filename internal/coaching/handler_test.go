package coaching

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"fitflow-backend/internal/shared/server/middleware"
)

const guestUser = "guest:test-guest"

func newTestRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Auth("dev"))
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Guest-Id", "test-guest")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func decodeRun(t *testing.T, resp *httptest.ResponseRecorder) RunResponse {
	t.Helper()
	var body RunResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body
}

func TestStartRunWithoutCheckIn(t *testing.T) {
	r := newTestRouter(newFixture(nil).svc)
	resp := doJSON(t, r, http.MethodPost, "/api/v1/coaching/runs", `{}`)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestRunLifecycleEndpoints(t *testing.T) {
	f := newFixture(nil)
	f.record(t, guestUser)
	r := newTestRouter(f.svc)

	resp := doJSON(t, r, http.MethodPost, "/api/v1/coaching/runs", "")
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", resp.Code, resp.Body.String())
	}
	started := decodeRun(t, resp)
	if started.RunID == "" || started.Status != StatusQueued {
		t.Fatalf("unexpected start response: %+v", started)
	}
	f.svc.Wait()

	resp = doJSON(t, r, http.MethodGet, "/api/v1/coaching/runs/"+started.RunID, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	got := decodeRun(t, resp)
	if got.Status != StatusCompleted || got.Plan != "plan output" || got.Finalized {
		t.Fatalf("unexpected run: %+v", got)
	}

	resp = doJSON(t, r, http.MethodPost, "/api/v1/coaching/runs/"+started.RunID+"/feedback", `{"message":"too heavy","sentiment":"negative"}`)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202 for re-run, got %d: %s", resp.Code, resp.Body.String())
	}
	f.svc.Wait()

	resp = doJSON(t, r, http.MethodPost, "/api/v1/coaching/runs/"+started.RunID+"/feedback", `{"message":"perfect","sentiment":"positive"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for accepted plan, got %d: %s", resp.Code, resp.Body.String())
	}
	if final := decodeRun(t, resp); !final.Finalized || final.Iteration != 2 || len(final.Feedback) != 2 {
		t.Fatalf("unexpected final run: %+v", final)
	}

	resp = doJSON(t, r, http.MethodPost, "/api/v1/coaching/runs/"+started.RunID+"/feedback", `{"message":"more","sentiment":"negative"}`)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 after finalize, got %d", resp.Code)
	}

	resp = doJSON(t, r, http.MethodGet, "/api/v1/coaching/runs?limit=5", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var list struct {
		Items []RunResponse `json:"items"`
		Limit int           `json:"limit"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Items) != 1 || list.Limit != 5 {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestRunNotFoundAcrossUsers(t *testing.T) {
	f := newFixture(nil)
	f.record(t, "someone-else")
	run := f.startAndWait(t, "someone-else")

	r := newTestRouter(f.svc)
	resp := doJSON(t, r, http.MethodGet, "/api/v1/coaching/runs/"+run.ID, "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestFeedbackValidationEndpoint(t *testing.T) {
	f := newFixture(nil)
	f.record(t, guestUser)
	run := f.startAndWait(t, guestUser)
	r := newTestRouter(f.svc)

	resp := doJSON(t, r, http.MethodPost, "/api/v1/coaching/runs/"+run.ID+"/feedback", `{"message":"ok","sentiment":"meh"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	resp = doJSON(t, r, http.MethodPost, "/api/v1/coaching/runs/"+run.ID+"/feedback", `not json`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad body, got %d", resp.Code)
	}
}

func TestStartQueueUnavailableEndpoint(t *testing.T) {
	f := newFixture(&stubQueue{err: http.ErrServerClosed})
	f.record(t, guestUser)
	r := newTestRouter(f.svc)

	resp := doJSON(t, r, http.MethodPost, "/api/v1/coaching/runs", `{}`)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}

func TestWorkoutPlanEndpoint(t *testing.T) {
	f := newFixture(nil)
	r := newTestRouter(f.svc)

	resp := doJSON(t, r, http.MethodPost, "/api/v1/coaching/workout-plan", `{"workoutType":"legs","availableMinutes":60,"equipment":["barbell"]}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var res Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Insight == "" || res.Plan == "" || res.Motivation == "" {
		t.Fatalf("incomplete result: %+v", res)
	}

	resp = doJSON(t, r, http.MethodPost, "/api/v1/coaching/workout-plan", `{"workoutType":"legs","availableMinutes":0}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
