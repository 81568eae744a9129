package domain

import (
	"errors"
	"strings"
)

type RoomName string

const MaxRoomNameLen = 50

var (
	ErrRoomNameEmpty    = errors.New("room name empty")
	ErrRoomNameTooLong  = errors.New("room name too long")
	ErrRoomNameBadChar  = errors.New("room name contains invalid characters")
	ErrRoomNameBadEdge  = errors.New("room name cannot start or end with dashes or underscores")
	ErrRoomNameBadRun   = errors.New("room name cannot contain consecutive dashes or underscores")
	ErrRoomNameReserved = errors.New("room name is reserved")
)

// reservedRooms are path segments owned by the HTTP surface and therefore
// never joinable as chat rooms.
var reservedRooms = map[string]struct{}{
	"":       {},
	"about":  {},
	"health": {},
	"auth":   {},
	"api":    {},
	"login":  {},
	"home":   {},
}

// CleanRoomName validates and normalizes a user-supplied room identifier.
// It strips a single leading slash and accepts 1..50 characters from
// [A-Za-z0-9_-], with no leading/trailing separators and no separator runs.
// Pure and idempotent: CleanRoomName(string(clean)) returns clean again.
func CleanRoomName(raw string) (RoomName, error) {
	name := strings.TrimPrefix(raw, "/")
	if name == "" {
		return "", ErrRoomNameEmpty
	}
	if len(name) > MaxRoomNameLen {
		return "", ErrRoomNameTooLong
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return "", ErrRoomNameBadChar
		}
	}
	if isSeparator(name[0]) || isSeparator(name[len(name)-1]) {
		return "", ErrRoomNameBadEdge
	}
	for _, run := range []string{"--", "__", "-_", "_-"} {
		if strings.Contains(name, run) {
			return "", ErrRoomNameBadRun
		}
	}
	if _, ok := reservedRooms[name]; ok {
		return "", ErrRoomNameReserved
	}
	return RoomName(name), nil
}

func isSeparator(c byte) bool {
	return c == '-' || c == '_'
}
