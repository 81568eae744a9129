package core

import "github.com/skyrc/skyrc/internal/domain"

// ConnID identifies one live transport connection. A reconnecting client
// gets a brand-new ConnID and must rejoin explicitly.
type ConnID string

// EventSink is the outbound half of one connection. TrySend must never
// block; a full outbound queue is reported as an error and the event is
// dropped (best-effort at-most-once delivery).
// Owned by the adapter; the adapter must Close() it.
type EventSink interface {
	TrySend(event any) error
	Close()
}

// MemberSession binds a verified identity to its transport endpoint.
// This is what the presence registry stores and fans events out to.
type MemberSession interface {
	Identity() domain.Identity
	Sink() EventSink
}

type memberSession struct {
	identity domain.Identity
	sink     EventSink
}

func NewMemberSession(identity domain.Identity, sink EventSink) MemberSession {
	return &memberSession{identity: identity, sink: sink}
}

func (m *memberSession) Identity() domain.Identity { return m.identity }
func (m *memberSession) Sink() EventSink           { return m.sink }
