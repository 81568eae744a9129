package core

import "github.com/skyrc/skyrc/internal/domain"

// Outbound event kinds. The transport adapter serializes each event as a
// JSON object whose "type" field carries the kind.
const (
	KindRoomJoined        = "room-joined"
	KindUserJoined        = "user-joined"
	KindUserLeft          = "user-left"
	KindNewMessage        = "new-message"
	KindUserTyping        = "user-typing"
	KindUserStoppedTyping = "user-stopped-typing"
	KindError             = "error"
)

// RoomJoinedEvent is sent to the requester only, after a successful join.
type RoomJoinedEvent struct {
	Type     string          `json:"type"`
	Room     domain.RoomName `json:"room"`
	RoomInfo RoomSnapshot    `json:"roomInfo"`
}

// UserJoinedEvent is broadcast to the other members of the joined room.
type UserJoinedEvent struct {
	Type     string          `json:"type"`
	User     domain.Identity `json:"user"`
	RoomInfo RoomSnapshot    `json:"roomInfo"`
}

// UserLeftEvent is broadcast to the remaining members of the departed room.
type UserLeftEvent struct {
	Type     string             `json:"type"`
	User     domain.IdentityRef `json:"user"`
	RoomInfo RoomSnapshot       `json:"roomInfo"`
}

// NewMessageEvent is broadcast to every member of the room, sender included.
type NewMessageEvent struct {
	Type string `json:"type"`
	domain.Message
}

// TypingEvent covers both user-typing and user-stopped-typing; it carries
// no state and is never deduplicated server-side.
type TypingEvent struct {
	Type string             `json:"type"`
	User domain.IdentityRef `json:"user"`
	Room domain.RoomName    `json:"room"`
}

// ErrorEvent is always connection-scoped, never broadcast.
type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewRoomJoined(room domain.RoomName, info RoomSnapshot) RoomJoinedEvent {
	return RoomJoinedEvent{Type: KindRoomJoined, Room: room, RoomInfo: info}
}

func NewUserJoined(user domain.Identity, info RoomSnapshot) UserJoinedEvent {
	return UserJoinedEvent{Type: KindUserJoined, User: user, RoomInfo: info}
}

func NewUserLeft(user domain.IdentityRef, info RoomSnapshot) UserLeftEvent {
	return UserLeftEvent{Type: KindUserLeft, User: user, RoomInfo: info}
}

func NewNewMessage(msg domain.Message) NewMessageEvent {
	return NewMessageEvent{Type: KindNewMessage, Message: msg}
}

func NewTyping(user domain.IdentityRef, room domain.RoomName, started bool) TypingEvent {
	kind := KindUserStoppedTyping
	if started {
		kind = KindUserTyping
	}
	return TypingEvent{Type: kind, User: user, Room: room}
}

func NewError(message string) ErrorEvent {
	return ErrorEvent{Type: KindError, Message: message}
}
