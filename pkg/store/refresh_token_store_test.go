package store

import (
	"errors"
	"testing"
	"time"
)

func TestMemoryRefreshTokenStoreRotateAndDelete(t *testing.T) {
	s := NewMemoryRefreshTokenStore()

	token, err := s.NewToken("stu-anya", time.Minute)
	if err != nil {
		t.Fatalf("new token: %v", err)
	}
	if token == "" {
		t.Fatalf("expected token")
	}

	userID, nextToken, err := s.RotateToken(token, time.Minute)
	if err != nil {
		t.Fatalf("rotate token: %v", err)
	}
	if userID != "stu-anya" {
		t.Fatalf("rotation must keep the session owner, got %q", userID)
	}
	if nextToken == "" || nextToken == token {
		t.Fatalf("expected rotated token")
	}

	// Logout deletes the current token; the session cannot be refreshed again.
	if err := s.DeleteToken(nextToken); err != nil {
		t.Fatalf("delete token: %v", err)
	}
	if _, _, err := s.RotateToken(nextToken, time.Minute); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected invalid token after logout, got: %v", err)
	}
}

func TestMemoryRefreshTokenStoreDetectsReplay(t *testing.T) {
	s := NewMemoryRefreshTokenStore()

	token, err := s.NewToken("stu-bima", time.Minute)
	if err != nil {
		t.Fatalf("new token: %v", err)
	}
	_, nextToken, err := s.RotateToken(token, time.Minute)
	if err != nil {
		t.Fatalf("first rotate: %v", err)
	}

	// A stale tab presenting the already-rotated token is a replay; the
	// whole login is revoked, including the freshly issued token.
	if _, _, err := s.RotateToken(token, time.Minute); !errors.Is(err, ErrRefreshTokenReplay) {
		t.Fatalf("expected replay detection, got: %v", err)
	}
	if _, _, err := s.RotateToken(nextToken, time.Minute); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected family revoked after replay, got: %v", err)
	}
}

func TestMemoryRefreshTokenStoreRevokeUserRefreshTokens(t *testing.T) {
	s := NewMemoryRefreshTokenStore()

	// Two concurrent logins for the same student, e.g. laptop and phone.
	laptop, err := s.NewToken("stu-citra", time.Minute)
	if err != nil {
		t.Fatalf("new token 1: %v", err)
	}
	phone, err := s.NewToken("stu-citra", time.Minute)
	if err != nil {
		t.Fatalf("new token 2: %v", err)
	}

	// A password change revokes both logins at once.
	if err := s.RevokeUserRefreshTokens("stu-citra"); err != nil {
		t.Fatalf("revoke user tokens: %v", err)
	}
	if _, _, err := s.RotateToken(laptop, time.Minute); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected laptop login invalid after revoke, got: %v", err)
	}
	if _, _, err := s.RotateToken(phone, time.Minute); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected phone login invalid after revoke, got: %v", err)
	}
}
