package identity

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"securelink-backend/internal/shared/server/middleware"
	"securelink-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterPublicRoutes attaches routes that need no session.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/signup", h.signup)
	rg.POST("/auth/login", h.login)
	rg.POST("/auth/verification/confirm", h.confirm)
}

// RegisterRoutes attaches routes behind the auth middleware.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.me)
	rg.POST("/auth/verification", h.resendVerification)
	rg.POST("/auth/logout", h.logout)
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
	Phone    string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type confirmRequest struct {
	Token string `json:"token"`
}

type sessionResponse struct {
	Session Session `json:"session"`
	Message string  `json:"message,omitempty"`
}

func (h *Handler) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	sess, err := h.Svc.CreateAccount(c.Request.Context(), SignupInput{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
		Phone:    req.Phone,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	respond.Created(c, sessionResponse{
		Session: sess,
		Message: "Signup successful! A verification email has been sent.",
	})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	sess, err := h.Svc.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, sessionResponse{Session: sess})
}

func (h *Handler) confirm(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	sess, err := h.Svc.ConfirmVerification(c.Request.Context(), req.Token)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, sessionResponse{Session: sess, Message: "Email verified."})
}

func (h *Handler) resendVerification(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		writeError(c, ErrUnauthenticated)
		return
	}
	if err := h.Svc.SendVerification(c.Request.Context(), sess); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (h *Handler) logout(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		writeError(c, ErrUnauthenticated)
		return
	}
	if err := h.Svc.SignOut(c.Request.Context(), sess); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) me(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		writeError(c, ErrUnauthenticated)
		return
	}
	acct, err := h.Svc.Account(c.Request.Context(), sess.UID)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{
		"uid":      acct.ID,
		"email":    acct.Email,
		"username": acct.Username,
		"phone":    acct.Phone,
		"verified": acct.EmailVerified,
		"provider": acct.Provider,
	})
}

func sessionFromContext(c *gin.Context) (Session, bool) {
	p, ok := middleware.PrincipalFromContext(c)
	if !ok || p.UID == "" {
		return Session{}, false
	}
	return Session{
		UID:       p.UID,
		Email:     p.Email,
		Verified:  p.Verified,
		TokenID:   p.TokenID,
		ExpiresAt: p.ExpiresAt,
	}, true
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrWeakPassword):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrEmailTaken):
		respond.Error(c, http.StatusConflict, "email_taken", "An account with this email already exists.", nil)
	case errors.Is(err, ErrInvalidCredentials):
		respond.Error(c, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password.", nil)
	case errors.Is(err, ErrEmailNotVerified):
		respond.Error(c, http.StatusForbidden, "email_not_verified", "Please verify your email before logging in.", nil)
	case errors.Is(err, ErrGoogleLinked):
		respond.Error(c, http.StatusConflict, "google_linked", "This Google account is linked to a different email.", nil)
	case errors.Is(err, ErrGoogleEmailUnverified):
		respond.Error(c, http.StatusForbidden, "google_email_unverified", "Your Google account email is not verified.", nil)
	case errors.Is(err, ErrAlreadyVerified):
		respond.Error(c, http.StatusConflict, "already_verified", "Email is already verified.", nil)
	case errors.Is(err, ErrInvalidVerification):
		respond.Error(c, http.StatusBadRequest, "invalid_verification", err.Error(), nil)
	case errors.Is(err, ErrUnauthenticated):
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "User not authenticated. Please login again.", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "account not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "identity service failed", nil)
	}
}

// Authenticator adapts Authenticate for the HTTP auth middleware.
func (s *Service) Authenticator() middleware.Authenticator {
	return func(ctx context.Context, token string) (middleware.Principal, error) {
		sess, err := s.Authenticate(ctx, token)
		if err != nil {
			if errors.Is(err, ErrUnauthenticated) {
				return middleware.Principal{}, middleware.ErrUnauthenticated
			}
			return middleware.Principal{}, err
		}
		return middleware.Principal{
			UID:       sess.UID,
			Email:     sess.Email,
			Verified:  sess.Verified,
			Token:     sess.Token,
			TokenID:   sess.TokenID,
			ExpiresAt: sess.ExpiresAt,
		}, nil
	}
}
