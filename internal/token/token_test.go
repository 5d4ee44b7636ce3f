package token

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager("test-secret", DefaultTTL)
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}
	return m
}

func TestNewManager_RequiresSecret(t *testing.T) {
	if _, err := NewManager("", DefaultTTL); err == nil {
		t.Fatal("expected error for empty secret, got nil")
	}
}

func TestNewManager_NonPositiveTTLUsesDefault(t *testing.T) {
	m, err := NewManager("s", 0)
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}
	if m.TTL() != DefaultTTL {
		t.Errorf("TTL() = %v, want %v", m.TTL(), DefaultTTL)
	}
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	m := newTestManager(t)

	tok, err := m.Issue(42, "t@e.com", "Tutor")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	claims, err := m.Verify(tok)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("UserID = %d, want %d", claims.UserID, 42)
	}
	if claims.Email != "t@e.com" {
		t.Errorf("Email = %q, want %q", claims.Email, "t@e.com")
	}
	if claims.Role != "Tutor" {
		t.Errorf("Role = %q, want %q", claims.Role, "Tutor")
	}
	if claims.ID == "" {
		t.Error("expected non-empty jti")
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		t.Fatal("expected iat and exp to be set")
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != DefaultTTL {
		t.Errorf("exp - iat = %v, want %v", got, DefaultTTL)
	}
}

func TestIssue_UniqueTokenIDs(t *testing.T) {
	m := newTestManager(t)

	a, err := m.Issue(1, "a@b.com", "Tutor")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	b, err := m.Issue(1, "a@b.com", "Tutor")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if a == b {
		t.Error("expected tokens issued for the same user to differ by jti")
	}
}

func TestVerify_TamperedTokenIsInvalid(t *testing.T) {
	m := newTestManager(t)

	tok, err := m.Issue(7, "admin@examexperts.com", "Admin")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	for i := 0; i < len(tok); i++ {
		b := []byte(tok)
		b[i] ^= 0x01
		_, err := m.Verify(string(b))
		if !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("Verify(flipped byte %d) error = %v, want ErrInvalidToken", i, err)
		}
	}
}

func TestVerify_ExpiredToken(t *testing.T) {
	m := newTestManager(t)
	m.nowFunc = func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) }

	tok, err := m.Issue(1, "t@e.com", "Tutor")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	m.nowFunc = time.Now
	_, err = m.Verify(tok)
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("Verify() error = %v, want ErrExpired", err)
	}
}

func TestVerify_NotYetExpiredAfterSixDays(t *testing.T) {
	m := newTestManager(t)
	m.nowFunc = func() time.Time { return time.Now().Add(-6 * 24 * time.Hour) }

	tok, err := m.Issue(1, "t@e.com", "Tutor")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	m.nowFunc = time.Now
	if _, err := m.Verify(tok); err != nil {
		t.Fatalf("Verify() error = %v, want nil", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	m := newTestManager(t)
	other, err := NewManager("another-secret", DefaultTTL)
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}

	tok, err := other.Issue(1, "t@e.com", "Tutor")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	if _, err := m.Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify() error = %v, want ErrInvalidToken", err)
	}
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	m := newTestManager(t)

	claims := &Claims{
		UserID: 1,
		Email:  "t@e.com",
		Role:   "Admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString() error: %v", err)
	}

	if _, err := m.Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify(alg=none) error = %v, want ErrInvalidToken", err)
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("SignedString() error: %v", err)
	}
	if _, err := m.Verify(hs512); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify(alg=HS512) error = %v, want ErrInvalidToken", err)
	}
}

func TestVerify_RequiresExpiration(t *testing.T) {
	m := newTestManager(t)

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{UserID: 1, Role: "Admin"}).
		SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("SignedString() error: %v", err)
	}

	if _, err := m.Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify(no exp) error = %v, want ErrInvalidToken", err)
	}
}

func TestVerify_Malformed(t *testing.T) {
	m := newTestManager(t)

	for _, s := range []string{"", "abc", "a.b.c", "eyJhbGciOiJIUzI1NiJ9..", "Bearer x.y.z"} {
		if _, err := m.Verify(s); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Verify(%q) error = %v, want ErrInvalidToken", s, err)
		}
	}
}
