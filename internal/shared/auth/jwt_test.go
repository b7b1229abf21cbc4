package auth

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

func TestSignAndVerifyRoundTrip(t *testing.T) {
	issuer, err := NewIssuer("secret", "dev", time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}

	token, claims, err := issuer.Sign("user-1", "a@example.com", true)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if claims.ID == "" {
		t.Fatalf("expected token id")
	}

	got, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.Subject != "user-1" || got.Email != "a@example.com" || !got.Verified {
		t.Fatalf("unexpected claims: %+v", got)
	}
	if got.ID != claims.ID {
		t.Fatalf("expected token id %s, got %s", claims.ID, got.ID)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	issuer, err := NewIssuer("secret", "dev", time.Minute)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	start := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return start }

	token, _, err := issuer.Sign("user-1", "", false)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	issuer.now = func() time.Time { return start.Add(2 * time.Minute) }
	if _, err := issuer.Verify(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	a, _ := NewIssuer("secret-a", "dev", time.Hour)
	b, _ := NewIssuer("secret-b", "dev", time.Hour)

	token, _, err := a.Sign("user-1", "", true)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := b.Verify(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := b.Verify("not.a.token"); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}
}

func TestNewIssuerRequiresSecretInProduction(t *testing.T) {
	if _, err := NewIssuer("", "production", time.Hour); err == nil {
		t.Fatalf("expected error without secret in production")
	}
	if _, err := NewIssuer("", "dev", time.Hour); err != nil {
		t.Fatalf("expected dev fallback secret, got %v", err)
	}
}

func TestVerifyRejectsTokenForOtherAudience(t *testing.T) {
	issuer, err := NewIssuer("shared-secret", "dev", time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	now := time.Now()
	for name, aud := range map[string]jwtlib.ClaimStrings{
		"file url": {"securelink-files"},
		"no aud":   nil,
	} {
		token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.RegisteredClaims{
			ID:        "jti-1",
			Subject:   "documents/user-1/1_a.png",
			Audience:  aud,
			ExpiresAt: jwtlib.NewNumericDate(now.Add(time.Minute)),
		}).SignedString([]byte("shared-secret"))
		if err != nil {
			t.Fatalf("%s: sign: %v", name, err)
		}
		if _, err := issuer.Verify(token); err != ErrInvalidToken {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}
