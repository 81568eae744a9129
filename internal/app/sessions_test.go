package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/skyrc/skyrc/internal/domain"
	"github.com/skyrc/skyrc/internal/metrics"
)

var testIdentity = domain.Identity{DID: "did:plc:abc", Handle: "alice.test"}

// fakeClock drives the store's injected clock.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func (c *fakeClock) set(base time.Time, d time.Duration) { c.t = base.Add(d) }

func newTestStore(ttl, idle time.Duration) (*SessionStore, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	s := NewSessionStore(ttl, idle, metrics.Nop{})
	s.now = clock.now
	return s, clock
}

type fakeGrant struct {
	revoked chan struct{}
}

func (g *fakeGrant) Revoke(ctx context.Context) error {
	close(g.revoked)
	return nil
}

func TestCreateAndValidate(t *testing.T) {
	s, _ := newTestStore(24*time.Hour, 2*time.Hour)

	id, err := s.Create(testIdentity, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty session id")
	}

	got, err := s.Validate(id)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got.DID != testIdentity.DID {
		t.Fatalf("expected identity %q, got %q", testIdentity.DID, got.DID)
	}
}

func TestValidateNotFound(t *testing.T) {
	s, _ := newTestStore(24*time.Hour, 2*time.Hour)
	if _, err := s.Validate("no-such-session"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

// Absolute expiry fires regardless of how recently the session was active.
func TestAbsoluteExpiryDespiteActivity(t *testing.T) {
	s, clock := newTestStore(24*time.Hour, 2*time.Hour)
	base := clock.t

	id, _ := s.Create(testIdentity, nil)

	// Keep the idle window fresh with hourly activity.
	for h := 1; h <= 23; h++ {
		clock.set(base, time.Duration(h)*time.Hour)
		if _, err := s.Validate(id); err != nil {
			t.Fatalf("validate at +%dh: %v", h, err)
		}
	}

	clock.set(base, 24*time.Hour+time.Millisecond)
	if _, err := s.Validate(id); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	// Lazily deleted: the next access sees nothing.
	if _, err := s.Validate(id); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after eviction, got %v", err)
	}
}

// Idle expiry fires before the absolute ceiling when the session goes quiet.
func TestIdleExpiry(t *testing.T) {
	s, clock := newTestStore(24*time.Hour, 2*time.Hour)

	id, _ := s.Create(testIdentity, nil)
	clock.advance(2*time.Hour + time.Millisecond)

	if _, err := s.Validate(id); !errors.Is(err, ErrSessionIdle) {
		t.Fatalf("expected ErrSessionIdle, got %v", err)
	}
	if s.Count() != 0 {
		t.Fatalf("expected idle session to be deleted, have %d", s.Count())
	}
}

// Refresh returns the smaller of the absolute and idle remainders, measured
// before the activity touch.
func TestRefreshReturnsSmallerBound(t *testing.T) {
	s, clock := newTestStore(24*time.Hour, 2*time.Hour)
	base := clock.t

	id, _ := s.Create(testIdentity, nil)

	// Walk activity forward so the last touch lands at +21h58m.
	for h := 1; h <= 21; h++ {
		clock.set(base, time.Duration(h)*time.Hour)
		if _, err := s.Validate(id); err != nil {
			t.Fatalf("validate at +%dh: %v", h, err)
		}
	}
	clock.set(base, 21*time.Hour+58*time.Minute)
	if _, err := s.Validate(id); err != nil {
		t.Fatalf("validate at +21h58m: %v", err)
	}

	// Now 10 minutes remain on the absolute clock and 8 on the idle window.
	clock.set(base, 23*time.Hour+50*time.Minute)
	remaining, err := s.Refresh(id)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if remaining != 8*time.Minute {
		t.Fatalf("expected 8m remaining, got %v", remaining)
	}

	// The touch happened: idle window restarts at the refresh time.
	last, ok := s.LastActivity(id)
	if !ok || !last.Equal(clock.t) {
		t.Fatalf("expected lastActivity %v, got %v ok=%v", clock.t, last, ok)
	}
}

func TestRefreshDeadSession(t *testing.T) {
	s, clock := newTestStore(24*time.Hour, 2*time.Hour)
	id, _ := s.Create(testIdentity, nil)
	clock.advance(25 * time.Hour)

	if _, err := s.Refresh(id); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if _, err := s.Refresh("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestDeleteRevokesGrant(t *testing.T) {
	s, _ := newTestStore(24*time.Hour, 2*time.Hour)
	grant := &fakeGrant{revoked: make(chan struct{})}
	id, _ := s.Create(testIdentity, grant)

	s.Delete(id)

	select {
	case <-grant.revoked:
	case <-time.After(time.Second):
		t.Fatal("expected grant revocation")
	}
	if _, err := s.Validate(id); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after delete, got %v", err)
	}
	// Idempotent.
	s.Delete(id)
}

func TestSweepDropsDeadSessions(t *testing.T) {
	s, clock := newTestStore(24*time.Hour, 2*time.Hour)
	stale, _ := s.Create(testIdentity, nil)
	clock.advance(time.Hour)
	fresh, _ := s.Create(domain.Identity{DID: "did:plc:def", Handle: "bob.test"}, nil)
	clock.advance(90 * time.Minute)

	s.sweepOnce()

	if s.Count() != 1 {
		t.Fatalf("expected one survivor, got %d", s.Count())
	}
	if _, err := s.Validate(stale); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected stale session gone, got %v", err)
	}
	if _, err := s.Validate(fresh); err != nil {
		t.Fatalf("expected fresh session alive: %v", err)
	}
}
