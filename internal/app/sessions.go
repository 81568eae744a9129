package app

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/skyrc/skyrc/internal/domain"
	"github.com/skyrc/skyrc/internal/metrics"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrSessionIdle     = errors.New("session expired due to inactivity")
)

// AuthGrant is the opaque capability handed over by the external identity
// provider. Revocation is fire-and-forget: a failure never blocks local
// session deletion.
type AuthGrant interface {
	Revoke(ctx context.Context) error
}

const revokeTimeout = 10 * time.Second

type session struct {
	identity     domain.Identity
	grant        AuthGrant
	createdAt    time.Time
	expiresAt    time.Time
	lastActivity time.Time
}

// SessionStore holds authenticated sessions in process memory with a dual
// expiration policy: a hard absolute ceiling fixed at creation and a sliding
// idle window advanced by every successful Validate or Refresh. Expiration
// is evaluated lazily on access; Sweep only bounds memory.
//
// Sessions are independent of each other, so the store runs under its own
// mutex, separate from the presence registry's serialization domain.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session

	absoluteTTL time.Duration
	maxIdle     time.Duration

	rec metrics.Recorder
	now func() time.Time
}

func NewSessionStore(absoluteTTL, maxIdle time.Duration, rec metrics.Recorder) *SessionStore {
	return &SessionStore{
		sessions:    make(map[string]*session),
		absoluteTTL: absoluteTTL,
		maxIdle:     maxIdle,
		rec:         rec,
		now:         time.Now,
	}
}

// Create stores a new session for an externally verified identity and
// returns its unguessable id. grant may be nil for identities with nothing
// to revoke.
func (s *SessionStore) Create(identity domain.Identity, grant AuthGrant) (string, error) {
	id, err := newSessionID()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	now := s.now()
	s.sessions[id] = &session{
		identity:     identity,
		grant:        grant,
		createdAt:    now,
		expiresAt:    now.Add(s.absoluteTTL),
		lastActivity: now,
	}
	s.rec.SetLiveSessions(len(s.sessions))
	s.mu.Unlock()

	log.Info().Str("module", "app.sessions").Str("did", identity.DID).Msg("session created")
	return id, nil
}

// Validate checks the session and, when live, touches its activity window
// and returns the bound identity. Dead sessions are deleted on the spot.
func (s *SessionStore) Validate(id string) (domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.checkLocked(id)
	if err != nil {
		return domain.Identity{}, err
	}
	sess.lastActivity = s.now()
	return sess.identity, nil
}

// Refresh performs the same checks as Validate and additionally returns how
// long the session has left: the smaller of the absolute remainder and the
// idle remainder, measured before the activity touch, so callers can
// schedule a pre-expiry warning.
func (s *SessionStore) Refresh(id string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.checkLocked(id)
	if err != nil {
		return 0, err
	}

	now := s.now()
	remaining := sess.expiresAt.Sub(now)
	if idleLeft := s.maxIdle - now.Sub(sess.lastActivity); idleLeft < remaining {
		remaining = idleLeft
	}
	sess.lastActivity = now
	return remaining, nil
}

// LastActivity reports the session's activity timestamp without touching it.
func (s *SessionStore) LastActivity(id string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return time.Time{}, false
	}
	return sess.lastActivity, true
}

// Delete removes the session if present and asynchronously revokes its
// external grant. Idempotent.
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
		s.rec.SetLiveSessions(len(s.sessions))
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	s.revoke(id, sess.grant)
	log.Info().Str("module", "app.sessions").Str("sid", id).Msg("session deleted")
}

// Count reports the number of physically present sessions, including any
// expired entries not yet accessed or swept.
func (s *SessionStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep periodically drops sessions the lazy checks would already treat as
// dead. Purely a memory bound; observable semantics are unchanged.
func (s *SessionStore) Sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce()
		}
	}
}

func (s *SessionStore) sweepOnce() {
	s.mu.Lock()
	now := s.now()
	swept := 0
	for id, sess := range s.sessions {
		if now.After(sess.expiresAt) || now.Sub(sess.lastActivity) > s.maxIdle {
			delete(s.sessions, id)
			swept++
		}
	}
	s.rec.SetLiveSessions(len(s.sessions))
	s.mu.Unlock()

	if swept > 0 {
		log.Info().Str("module", "app.sessions").Int("swept", swept).Msg("expired sessions swept")
	}
}

// checkLocked looks up and lazily evicts. Caller holds s.mu.
func (s *SessionStore) checkLocked(id string) (*session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	now := s.now()
	if now.After(sess.expiresAt) {
		delete(s.sessions, id)
		s.rec.SetLiveSessions(len(s.sessions))
		return nil, ErrSessionExpired
	}
	if now.Sub(sess.lastActivity) > s.maxIdle {
		delete(s.sessions, id)
		s.rec.SetLiveSessions(len(s.sessions))
		return nil, ErrSessionIdle
	}
	return sess, nil
}

func (s *SessionStore) revoke(id string, grant AuthGrant) {
	if grant == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), revokeTimeout)
		defer cancel()
		if err := grant.Revoke(ctx); err != nil {
			log.Warn().Err(err).Str("module", "app.sessions").Str("sid", id).Msg("grant revocation failed")
		}
	}()
}

// newSessionID returns a 256-bit random id, base64url without padding.
func newSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
