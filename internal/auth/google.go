package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	sharedauth "fitflow-backend/internal/shared/auth"
	"fitflow-backend/internal/shared/server/respond"
	"fitflow-backend/internal/shared/telemetry"
)

const (
	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	defaultStateTTL    = 5 * time.Minute
)

// GoogleLogin signs athletes in with Google and hands the UI a FitFlow token.
type GoogleLogin struct {
	OAuth       *oauth2.Config
	UIRedirect  string
	UserInfoURL string
	StateTTL    time.Duration
	Now         func() time.Time

	states *stateStore
}

// NewGoogleLogin builds a GoogleLogin against Google's production endpoints.
func NewGoogleLogin(clientID, clientSecret, redirectURL, uiRedirect string) *GoogleLogin {
	return &GoogleLogin{
		OAuth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		UIRedirect: uiRedirect,
	}
}

// Configured reports whether client credentials are present.
func (g *GoogleLogin) Configured() bool {
	return g != nil && g.OAuth != nil &&
		g.OAuth.ClientID != "" && g.OAuth.ClientSecret != "" && g.OAuth.RedirectURL != ""
}

// RegisterRoutes attaches the login routes. They must sit outside the auth middleware.
func (g *GoogleLogin) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/google/start", g.start)
	rg.GET("/auth/google/callback", g.callback)
}

func (g *GoogleLogin) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

func (g *GoogleLogin) store() *stateStore {
	if g.states == nil {
		g.states = newStateStore()
	}
	return g.states
}

func (g *GoogleLogin) start(c *gin.Context) {
	if !g.Configured() {
		respond.Error(c, http.StatusServiceUnavailable, "auth_not_configured", "Google sign-in is not configured", nil)
		return
	}

	ttl := g.StateTTL
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	state := uuid.NewString()
	g.store().put(state, g.now().Add(ttl))

	c.Redirect(http.StatusFound, g.OAuth.AuthCodeURL(state))
}

func (g *GoogleLogin) callback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "missing state or code", nil)
		return
	}
	if !g.store().consume(state, g.now()) {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "invalid or expired state", nil)
		return
	}

	ctx := c.Request.Context()
	token, err := g.OAuth.Exchange(ctx, code)
	if err != nil {
		telemetry.Warn("auth.google.exchange_failed", map[string]any{"error": err.Error()})
		respond.Error(c, http.StatusBadRequest, "invalid_request", "failed to exchange code", nil)
		return
	}

	profile, err := g.fetchProfile(ctx, token)
	if err != nil || profile.Sub == "" {
		if err == nil {
			err = errors.New("profile without subject")
		}
		telemetry.Warn("auth.google.profile_failed", map[string]any{"error": err.Error()})
		respond.Error(c, http.StatusBadGateway, "auth_failed", "failed to fetch user profile", nil)
		return
	}

	signed, err := sharedauth.SignJWT(sharedauth.Claims{
		Email:            profile.Email,
		Name:             profile.Name,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "google:" + profile.Sub},
	})
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to issue token", nil)
		return
	}

	target, err := appendToken(g.UIRedirect, signed)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to redirect", nil)
		return
	}
	telemetry.Info("auth.google.signed_in", map[string]any{"user_id": "google:" + profile.Sub})
	c.Redirect(http.StatusFound, target)
}

type googleProfile struct {
	Sub   string `json:"sub"`
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (g *GoogleLogin) fetchProfile(ctx context.Context, token *oauth2.Token) (googleProfile, error) {
	endpoint := g.UserInfoURL
	if endpoint == "" {
		endpoint = defaultUserInfoURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return googleProfile{}, err
	}
	resp, err := g.OAuth.Client(ctx, token).Do(req)
	if err != nil {
		return googleProfile{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return googleProfile{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var p googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return googleProfile{}, err
	}
	// the v2 endpoint returns "id" rather than "sub"
	if p.Sub == "" {
		p.Sub = p.ID
	}
	return p, nil
}

type stateStore struct {
	mu    sync.Mutex
	items map[string]time.Time
}

func newStateStore() *stateStore {
	return &stateStore{items: make(map[string]time.Time)}
}

func (s *stateStore) put(state string, exp time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[state] = exp
	for k, v := range s.items {
		if v.Before(exp.Add(-defaultStateTTL * 2)) {
			delete(s.items, k)
		}
	}
}

// consume removes state and reports whether it was issued and is still valid at now.
func (s *stateStore) consume(state string, now time.Time) bool {
	s.mu.Lock()
	exp, ok := s.items[state]
	delete(s.items, state)
	s.mu.Unlock()
	return ok && !now.After(exp)
}

func appendToken(rawURL, token string) (string, error) {
	if strings.TrimSpace(rawURL) == "" {
		return "", errors.New("redirect url required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
