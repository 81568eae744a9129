package domain

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Message is one chat message as delivered to every member of a room.
// IDs are ULIDs: time-ordered with a cryptographically random suffix, so
// they are unique and unguessable without any central counter.
type Message struct {
	ID        string    `json:"id"`
	User      Identity  `json:"user"`
	Text      string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Room      RoomName  `json:"room"`
}

// NewMessage trims the raw text and stamps the message. Returns false when
// the text trims to empty, which callers treat as a silent no-op.
func NewMessage(user Identity, rawText string, room RoomName) (Message, bool) {
	text := strings.TrimSpace(rawText)
	if text == "" {
		return Message{}, false
	}
	now := time.Now()
	return Message{
		ID:        ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		User:      user,
		Text:      text,
		Timestamp: now,
		Room:      room,
	}, true
}
