package identity

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"securelink-backend/internal/shared/server/middleware"
)

func newTestRouter(t *testing.T) (*gin.Engine, *Service, *captureMailer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc, mailer := newTestService(t)
	h := NewHandler(svc)

	r := gin.New()
	api := r.Group("/api/v1")
	h.RegisterPublicRoutes(api)
	protected := api.Group("")
	protected.Use(middleware.Auth(svc.Authenticator()))
	h.RegisterRoutes(protected)
	return r, svc, mailer
}

func doJSON(r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestSignupLoginVerifyFlow(t *testing.T) {
	r, _, mailer := newTestRouter(t)

	resp := doJSON(r, http.MethodPost, "/api/v1/auth/signup", "", gin.H{
		"email": "a@example.com", "password": "secret1", "username": "asha", "phone": "999",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	resp = doJSON(r, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "a@example.com", "password": "secret1"})
	require.Equal(t, http.StatusForbidden, resp.Code)
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	assert.Equal(t, "email_not_verified", env.Error.Code)
	assert.Equal(t, "Please verify your email before logging in.", env.Error.Message)

	resp = doJSON(r, http.MethodPost, "/api/v1/auth/verification/confirm", "", gin.H{"token": mailer.token(t, "a@example.com")})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = doJSON(r, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "a@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, resp.Code)
	var login sessionResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &login))
	assert.True(t, login.Session.Verified)

	resp = doJSON(r, http.MethodGet, "/api/v1/me", login.Session.Token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var me map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &me))
	assert.Equal(t, "asha", me["username"])
	assert.Equal(t, true, me["verified"])

	resp = doJSON(r, http.MethodPost, "/api/v1/auth/logout", login.Session.Token, nil)
	require.Equal(t, http.StatusNoContent, resp.Code)

	resp = doJSON(r, http.MethodGet, "/api/v1/me", login.Session.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestSignupErrors(t *testing.T) {
	r, _, _ := newTestRouter(t)

	resp := doJSON(r, http.MethodPost, "/api/v1/auth/signup", "", gin.H{"email": "bad", "password": "secret1"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = doJSON(r, http.MethodPost, "/api/v1/auth/signup", "", gin.H{"email": "a@example.com", "password": "secret1"})
	require.Equal(t, http.StatusCreated, resp.Code)
	resp = doJSON(r, http.MethodPost, "/api/v1/auth/signup", "", gin.H{"email": "a@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestResendVerification(t *testing.T) {
	r, _, _ := newTestRouter(t)

	resp := doJSON(r, http.MethodPost, "/api/v1/auth/signup", "", gin.H{"email": "a@example.com", "password": "secret1"})
	require.Equal(t, http.StatusCreated, resp.Code)
	var signup sessionResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &signup))

	resp = doJSON(r, http.MethodPost, "/api/v1/auth/verification", signup.Session.Token, nil)
	assert.Equal(t, http.StatusAccepted, resp.Code)

	resp = doJSON(r, http.MethodPost, "/api/v1/auth/verification", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}
