package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"fitflow-backend/internal/shared/auth"
)

func TestAuthAllowsOptionsWithoutIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth("dev"))
	router.OPTIONS("/api/v1/checkins", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/checkins", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}

func TestAuthIdentities(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "mw-secret")
	t.Setenv("ENV", "dev")

	token, err := auth.SignJWT(auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-42"}})
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}

	router := gin.New()
	router.Use(Auth("dev"))
	router.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, UserIDFromContext(c))
	})

	tests := []struct {
		name   string
		setup  func(*http.Request)
		target string
		code   int
		user   string
	}{
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, "/me", http.StatusOK, "user-42"},
		{"query token", func(r *http.Request) {}, "/me?token=" + token, http.StatusOK, "user-42"},
		{"guest", func(r *http.Request) { r.Header.Set("X-Guest-Id", "g1") }, "/me", http.StatusOK, "guest:g1"},
		{"bad token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, "/me", http.StatusUnauthorized, ""},
		{"basic scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") }, "/me", http.StatusUnauthorized, ""},
		{"anonymous", func(r *http.Request) {}, "/me", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			tt.setup(req)
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)
			if resp.Code != tt.code {
				t.Fatalf("expected %d, got %d (%s)", tt.code, resp.Code, resp.Body.String())
			}
			if tt.user != "" && resp.Body.String() != tt.user {
				t.Fatalf("expected user %q, got %q", tt.user, resp.Body.String())
			}
		})
	}
}
