// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const MaxHandleLen = 253

var (
	ErrIdentityNoDID    = errors.New("identity missing did")
	ErrIdentityNoHandle = errors.New("identity missing handle")
	ErrHandleTooLong    = errors.New("handle too long")
)

// Identity is the externally verified user identity a session is bound to.
// Immutable for the lifetime of the session that owns it.
type Identity struct {
	DID         string `json:"did"`
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
	Description string `json:"description,omitempty"`
}

// NewIdentity is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewIdentity(did, handle string) (Identity, error) {
	if did == "" {
		return Identity{}, ErrIdentityNoDID
	}
	if handle == "" {
		return Identity{}, ErrIdentityNoHandle
	}
	if len(handle) > MaxHandleLen {
		return Identity{}, ErrHandleTooLong
	}
	return Identity{DID: did, Handle: handle}, nil
}

// IdentityRef is the reduced identity attached to presence-only events
// (user-left, typing). The full profile travels only with join and message
// events.
type IdentityRef struct {
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName,omitempty"`
}

func (i Identity) Ref() IdentityRef {
	return IdentityRef{Handle: i.Handle, DisplayName: i.DisplayName}
}
