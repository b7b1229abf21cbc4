package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"securelink-backend/internal/shared/auth"
	"securelink-backend/internal/shared/telemetry"
)

const (
	minPasswordLen  = 6
	verificationTTL = 24 * time.Hour
)

// SignupInput carries the signup form.
type SignupInput struct {
	Email    string
	Password string
	Username string
	Phone    string
}

// Service is the identity session provider: accounts, sessions, verification
// and push notification of session changes.
type Service struct {
	Repo          Repo
	Tokens        TokenStore
	Mailer        Mailer
	Issuer        *auth.Issuer
	Hub           *Hub
	VerifyBaseURL string

	hashCost int
	now      func() time.Time
}

func NewService(repo Repo, tokens TokenStore, mailer Mailer, issuer *auth.Issuer, hub *Hub, verifyBaseURL string) *Service {
	if mailer == nil {
		mailer = LogMailer{}
	}
	if hub == nil {
		hub = NewHub()
	}
	return &Service{
		Repo:          repo,
		Tokens:        tokens,
		Mailer:        mailer,
		Issuer:        issuer,
		Hub:           hub,
		VerifyBaseURL: verifyBaseURL,
		hashCost:      bcrypt.DefaultCost,
		now:           time.Now,
	}
}

// CreateAccount registers a password account and sends the first verification link.
// The returned session is unverified.
func (s *Service) CreateAccount(ctx context.Context, in SignupInput) (Session, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return Session{}, err
	}
	if len(in.Password) < minPasswordLen {
		return Session{}, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	acct := Account{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     strings.TrimSpace(in.Username),
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: string(hash),
		Provider:     ProviderPassword,
	}
	if err := s.Repo.Create(ctx, acct); err != nil {
		return Session{}, err
	}

	sess, err := s.issue(acct)
	if err != nil {
		return Session{}, err
	}
	s.emit(EventSignedUp, sess)

	if err := s.SendVerification(ctx, sess); err != nil {
		// The account exists; the user can ask for another link.
		telemetry.Error("identity.verification_send_failed", map[string]any{
			"uid":   acct.ID,
			"error": err,
		})
	}
	return sess, nil
}

// SignIn checks credentials against the stored account. The verified flag is
// always read from the store, never from an earlier session.
func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}
	acct, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if acct.PasswordHash == "" {
		return Session{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	if !acct.EmailVerified {
		return Session{}, ErrEmailNotVerified
	}

	sess, err := s.issue(acct)
	if err != nil {
		return Session{}, err
	}
	s.emit(EventSignedIn, sess)
	return sess, nil
}

// SendVerification issues a single-use link for the session's account.
func (s *Service) SendVerification(ctx context.Context, sess Session) error {
	if sess.UID == "" {
		return ErrUnauthenticated
	}
	acct, err := s.Repo.GetByID(ctx, sess.UID)
	if err != nil {
		return err
	}
	if acct.EmailVerified {
		return ErrAlreadyVerified
	}

	token := uuid.NewString()
	if err := s.Tokens.PutVerification(ctx, token, acct.ID, verificationTTL); err != nil {
		return fmt.Errorf("store verification token: %w", err)
	}
	link, err := verificationLink(s.VerifyBaseURL, token)
	if err != nil {
		return err
	}
	return s.Mailer.SendVerification(ctx, acct.Email, link)
}

// ConfirmVerification consumes a verification token and marks the account verified.
func (s *Service) ConfirmVerification(ctx context.Context, token string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, ErrInvalidVerification
	}
	uid, err := s.Tokens.ConsumeVerification(ctx, token)
	if err != nil {
		return Session{}, err
	}
	if err := s.Repo.MarkVerified(ctx, uid); err != nil {
		return Session{}, err
	}
	acct, err := s.Repo.GetByID(ctx, uid)
	if err != nil {
		return Session{}, err
	}
	sess, err := s.issue(acct)
	if err != nil {
		return Session{}, err
	}
	s.emit(EventVerified, sess)
	return sess, nil
}

// SignOut revokes the session token for the rest of its lifetime.
func (s *Service) SignOut(ctx context.Context, sess Session) error {
	if sess.TokenID == "" {
		return ErrUnauthenticated
	}
	remaining := sess.ExpiresAt.Sub(s.now())
	if remaining > 0 {
		if err := s.Tokens.Revoke(ctx, sess.TokenID, remaining); err != nil {
			return fmt.Errorf("revoke session: %w", err)
		}
	}
	s.emit(EventSignedOut, sess)
	return nil
}

// Authenticate validates a bearer token and rejects revoked sessions.
func (s *Service) Authenticate(ctx context.Context, token string) (Session, error) {
	claims, err := s.Issuer.Verify(token)
	if err != nil {
		return Session{}, ErrUnauthenticated
	}
	revoked, err := s.Tokens.IsRevoked(ctx, claims.ID)
	if err != nil {
		return Session{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return Session{}, ErrUnauthenticated
	}
	return Session{
		UID:       claims.Subject,
		Email:     claims.Email,
		Verified:  claims.Verified,
		Token:     token,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// GoogleProfile is the subset of the Google userinfo response used for sign-in.
type GoogleProfile struct {
	Sub           string
	Email         string
	Name          string
	EmailVerified bool
}

// SignInWithGoogle upserts a Google account as verified and opens a session.
// Linking onto an unverified password account drops that password.
func (s *Service) SignInWithGoogle(ctx context.Context, p GoogleProfile) (Session, error) {
	email, err := normalizeEmail(p.Email)
	if err != nil {
		return Session{}, err
	}
	if strings.TrimSpace(p.Sub) == "" {
		return Session{}, ErrInvalidCredentials
	}
	if !p.EmailVerified {
		return Session{}, ErrGoogleEmailUnverified
	}
	acct, err := s.Repo.UpsertGoogle(ctx, Account{
		ID:        uuid.NewString(),
		Email:     email,
		Username:  strings.TrimSpace(p.Name),
		GoogleSub: p.Sub,
		Provider:  ProviderGoogle,
	})
	if err != nil {
		return Session{}, err
	}
	sess, err := s.issue(acct)
	if err != nil {
		return Session{}, err
	}
	s.emit(EventSignedIn, sess)
	return sess, nil
}

// Account loads the account behind a session.
func (s *Service) Account(ctx context.Context, uid string) (Account, error) {
	if strings.TrimSpace(uid) == "" {
		return Account{}, ErrUnauthenticated
	}
	return s.Repo.GetByID(ctx, uid)
}

// SubscribeToSessionChanges registers fn for session events and returns its unsubscribe func.
func (s *Service) SubscribeToSessionChanges(fn func(SessionEvent)) func() {
	return s.Hub.Subscribe(fn)
}

func (s *Service) issue(acct Account) (Session, error) {
	token, claims, err := s.Issuer.Sign(acct.ID, acct.Email, acct.EmailVerified)
	if err != nil {
		return Session{}, fmt.Errorf("sign session: %w", err)
	}
	return Session{
		UID:       acct.ID,
		Email:     acct.Email,
		Verified:  acct.EmailVerified,
		Token:     token,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *Service) emit(kind string, sess Session) {
	s.Hub.Publish(SessionEvent{
		Type:     kind,
		UID:      sess.UID,
		Email:    sess.Email,
		Verified: sess.Verified,
		At:       s.now().UTC(),
		TokenID:  sess.TokenID,
	})
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func verificationLink(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("verification base url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
