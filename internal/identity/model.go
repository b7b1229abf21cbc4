package identity

import "time"

// Provider names how an account authenticates.
const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

// Account is a registered vault user. ID is the owner id stamped on documents.
type Account struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Username      string    `json:"username"`
	Phone         string    `json:"phone"`
	PasswordHash  string    `json:"-"`
	GoogleSub     string    `json:"-"`
	EmailVerified bool      `json:"emailVerified"`
	Provider      string    `json:"provider"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Session is an authenticated identity backed by a signed token.
type Session struct {
	UID       string    `json:"uid"`
	Email     string    `json:"email"`
	Verified  bool      `json:"verified"`
	Token     string    `json:"token,omitempty"`
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Session event types.
const (
	EventSignedUp  = "signed_up"
	EventSignedIn  = "signed_in"
	EventSignedOut = "signed_out"
	EventVerified  = "verified"
)

// SessionEvent is pushed to subscribers whenever a session changes state.
type SessionEvent struct {
	Type     string    `json:"type"`
	UID      string    `json:"uid"`
	Email    string    `json:"email"`
	Verified bool      `json:"verified"`
	At       time.Time `json:"at"`
	// TokenID identifies the session the event is about.
	TokenID string `json:"-"`
}
