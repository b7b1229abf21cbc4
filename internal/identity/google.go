package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"securelink-backend/internal/shared/server/respond"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleHandler runs the Google OAuth sign-in flow and hands the resulting
// session token to the UI redirect URL.
type GoogleHandler struct {
	Svc         *Service
	oauthConfig *oauth2.Config
	uiRedirect  string
	userInfoURL string
	states      *stateStore
}

func NewGoogleHandler(svc *Service, clientID, clientSecret, redirectURL, uiRedirect string) *GoogleHandler {
	return &GoogleHandler{
		Svc: svc,
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		uiRedirect:  uiRedirect,
		userInfoURL: googleUserInfoURL,
		states:      newStateStore(5 * time.Minute),
	}
}

func (h *GoogleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/google/start", h.start)
	rg.GET("/auth/google/callback", h.callback)
}

func (h *GoogleHandler) configured() bool {
	cfg := h.oauthConfig
	return cfg.ClientID != "" && cfg.ClientSecret != "" && cfg.RedirectURL != "" && h.uiRedirect != ""
}

func (h *GoogleHandler) start(c *gin.Context) {
	if !h.configured() {
		respond.Error(c, http.StatusServiceUnavailable, "auth_not_configured", "Google sign-in not configured", nil)
		return
	}
	state := uuid.NewString()
	h.states.put(state)
	c.Redirect(http.StatusFound, h.oauthConfig.AuthCodeURL(state))
}

func (h *GoogleHandler) callback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "missing state or code", nil)
		return
	}
	if !h.states.consume(state) {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "invalid or expired state", nil)
		return
	}

	ctx := c.Request.Context()
	token, err := h.oauthConfig.Exchange(ctx, code)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "failed to exchange code", nil)
		return
	}
	info, err := h.fetchUserInfo(ctx, token)
	if err != nil || info.Sub == "" {
		respond.Error(c, http.StatusBadGateway, "auth_failed", "failed to fetch user profile", nil)
		return
	}

	sess, err := h.Svc.SignInWithGoogle(ctx, GoogleProfile{
		Sub:           info.Sub,
		Email:         info.Email,
		Name:          info.Name,
		EmailVerified: info.VerifiedEmail,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	target, err := appendToken(h.uiRedirect, sess.Token)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to redirect", nil)
		return
	}
	c.Redirect(http.StatusFound, target)
}

type googleUserInfo struct {
	Sub           string `json:"sub"`
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	VerifiedEmail bool   `json:"verified_email"`
	EmailVerified bool   `json:"email_verified"`
}

func (h *GoogleHandler) fetchUserInfo(ctx context.Context, token *oauth2.Token) (googleUserInfo, error) {
	resp, err := h.oauthConfig.Client(ctx, token).Get(h.userInfoURL)
	if err != nil {
		return googleUserInfo{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return googleUserInfo{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return googleUserInfo{}, err
	}
	// The v2 endpoint returns "id" rather than "sub".
	if info.Sub == "" {
		info.Sub = info.ID
	}
	// The OpenID Connect endpoint uses "email_verified" instead.
	info.VerifiedEmail = info.VerifiedEmail || info.EmailVerified
	return info, nil
}

type stateStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string]time.Time
	now   func() time.Time
}

func newStateStore(ttl time.Duration) *stateStore {
	return &stateStore{ttl: ttl, items: make(map[string]time.Time), now: time.Now}
}

func (s *stateStore) put(state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, exp := range s.items {
		if now.After(exp) {
			delete(s.items, k)
		}
	}
	s.items[state] = now.Add(s.ttl)
}

func (s *stateStore) consume(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.items[state]
	delete(s.items, state)
	return ok && !s.now().After(exp)
}

func appendToken(rawURL, token string) (string, error) {
	if rawURL == "" {
		return "", errors.New("redirect url required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	// Fragment keeps the token out of server logs and Referer headers.
	q := url.Values{}
	q.Set("token", token)
	u.Fragment = q.Encode()
	return u.String(), nil
}
