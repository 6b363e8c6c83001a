package store

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestMemoryTokenRevokerRevokeAndExpire(t *testing.T) {
	r := NewMemoryTokenRevoker()

	if err := r.Revoke("jti-1", time.Minute); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	revoked, err := r.IsRevoked("jti-1")
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if !revoked {
		t.Fatalf("expected token to be revoked")
	}

	revoked, err = r.IsRevoked("jti-unknown")
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if revoked {
		t.Fatalf("unknown token must not be revoked")
	}

	// Zero TTL means the token is already expired and needs no entry.
	if err := r.Revoke("jti-expired", 0); err != nil {
		t.Fatalf("revoke expired: %v", err)
	}
	revoked, err = r.IsRevoked("jti-expired")
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if revoked {
		t.Fatalf("expired token must not stay revoked")
	}
}

func TestMemoryTokenRevokerUserCutoffMonotonic(t *testing.T) {
	r := NewMemoryTokenRevoker()

	newer := time.Now().UTC()
	older := newer.Add(-time.Hour)

	if err := r.RevokeUser("user-1", newer); err != nil {
		t.Fatalf("revoke user: %v", err)
	}
	if err := r.RevokeUser("user-1", older); err != nil {
		t.Fatalf("revoke user with older cutoff: %v", err)
	}

	cutoff, err := r.RevokedAfter("user-1")
	if err != nil {
		t.Fatalf("revoked after: %v", err)
	}
	if !cutoff.Equal(newer) {
		t.Fatalf("older cutoff replaced newer one: got %v, want %v", cutoff, newer)
	}

	cutoff, err = r.RevokedAfter("user-without-cutoff")
	if err != nil {
		t.Fatalf("revoked after: %v", err)
	}
	if !cutoff.IsZero() {
		t.Fatalf("expected zero cutoff, got %v", cutoff)
	}
}

func TestRedisTokenRevokerRoundTrip(t *testing.T) {
	redis := miniredis.RunT(t)
	r := NewRedisTokenRevoker(redis.Addr(), "")

	if err := r.Revoke("jti-1", time.Minute); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	revoked, err := r.IsRevoked("jti-1")
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if !revoked {
		t.Fatalf("expected token to be revoked")
	}
	revoked, err = r.IsRevoked("jti-other")
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if revoked {
		t.Fatalf("unknown token must not be revoked")
	}
}

func TestRedisTokenRevokerUserCutoffMonotonic(t *testing.T) {
	redis := miniredis.RunT(t)
	r := NewRedisTokenRevoker(redis.Addr(), "")

	newer := time.Now().UTC().Truncate(time.Nanosecond)
	older := newer.Add(-time.Hour)

	if err := r.RevokeUser("user-1", newer); err != nil {
		t.Fatalf("revoke user: %v", err)
	}
	if err := r.RevokeUser("user-1", older); err != nil {
		t.Fatalf("revoke user with older cutoff: %v", err)
	}

	cutoff, err := r.RevokedAfter("user-1")
	if err != nil {
		t.Fatalf("revoked after: %v", err)
	}
	if !cutoff.Equal(newer) {
		t.Fatalf("older cutoff replaced newer one: got %v, want %v", cutoff, newer)
	}
}
