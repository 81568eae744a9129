package core

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/skyrc/skyrc/internal/domain"
)

// RoomSnapshot is a point-in-time read of a room's membership.
type RoomSnapshot struct {
	Name      domain.RoomName   `json:"name"`
	UserCount int               `json:"userCount"`
	Users     []domain.Identity `json:"users"`
}

// JoinResult carries everything the coordinator needs to announce a join:
// the post-join snapshot and the members that were already present, copied
// out inside the same critical section as the mutation.
type JoinResult struct {
	Snapshot RoomSnapshot
	Others   []MemberSession
}

// LeaveResult mirrors JoinResult for departures. Remaining holds the members
// still in the room after the leave.
type LeaveResult struct {
	Room      domain.RoomName
	Left      MemberSession
	Snapshot  RoomSnapshot
	Remaining []MemberSession
}

// Presence maps room name to its connected member set. A single mutex
// serializes every mutation and read so broadcasts always observe the exact
// membership the mutation produced. Rooms are derived entities: a room key
// exists iff its member set is non-empty.
type Presence struct {
	mu     sync.Mutex
	rooms  map[domain.RoomName]map[ConnID]MemberSession
	byConn map[ConnID]domain.RoomName
}

func NewPresence() *Presence {
	return &Presence{
		rooms:  make(map[domain.RoomName]map[ConnID]MemberSession),
		byConn: make(map[ConnID]domain.RoomName),
	}
}

// Join inserts the member into room. The caller must have removed any prior
// membership first (the coordinator orchestrates the implicit leave so the
// old room's departure events are emitted before the new room's join events).
// The room name must have passed domain.CleanRoomName.
func (p *Presence) Join(id ConnID, ms MemberSession, room domain.RoomName) JoinResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	members, ok := p.rooms[room]
	if !ok {
		members = make(map[ConnID]MemberSession)
		p.rooms[room] = members
	}

	others := make([]MemberSession, 0, len(members))
	for _, other := range members {
		others = append(others, other)
	}

	members[id] = ms
	p.byConn[id] = room

	log.Debug().Str("module", "core.presence").Str("conn", string(id)).Str("room", string(room)).Int("count", len(members)).Msg("member joined")
	return JoinResult{Snapshot: p.snapshotLocked(room), Others: others}
}

// Leave removes the connection's membership if it has one. When the member
// set empties, the room key is deleted in the same operation; no empty room
// is ever observable between calls.
func (p *Presence) Leave(id ConnID) (LeaveResult, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	room, ok := p.byConn[id]
	if !ok {
		return LeaveResult{}, false
	}
	delete(p.byConn, id)

	members := p.rooms[room]
	left := members[id]
	delete(members, id)
	if len(members) == 0 {
		delete(p.rooms, room)
	}

	remaining := make([]MemberSession, 0, len(members))
	for _, m := range members {
		remaining = append(remaining, m)
	}

	log.Debug().Str("module", "core.presence").Str("conn", string(id)).Str("room", string(room)).Int("count", len(members)).Msg("member left")
	return LeaveResult{
		Room:      room,
		Left:      left,
		Snapshot:  p.snapshotLocked(room),
		Remaining: remaining,
	}, true
}

// MemberOf reports the connection's current room and session, if any.
func (p *Presence) MemberOf(id ConnID) (domain.RoomName, MemberSession, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	room, ok := p.byConn[id]
	if !ok {
		return "", nil, false
	}
	return room, p.rooms[room][id], true
}

// Members returns every member of the connection's current room, sender
// included, plus the sender's own session.
func (p *Presence) Members(id ConnID) (domain.RoomName, MemberSession, []MemberSession, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	room, ok := p.byConn[id]
	if !ok {
		return "", nil, nil, false
	}
	members := p.rooms[room]
	all := make([]MemberSession, 0, len(members))
	for _, m := range members {
		all = append(all, m)
	}
	return room, members[id], all, true
}

// Peers returns the other members of the connection's current room.
func (p *Presence) Peers(id ConnID) (domain.RoomName, MemberSession, []MemberSession, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	room, ok := p.byConn[id]
	if !ok {
		return "", nil, nil, false
	}
	members := p.rooms[room]
	peers := make([]MemberSession, 0, len(members))
	for other, m := range members {
		if other == id {
			continue
		}
		peers = append(peers, m)
	}
	return room, members[id], peers, true
}

// Snapshot returns the room's current state; unknown rooms yield an empty
// snapshot, never an error.
func (p *Presence) Snapshot(room domain.RoomName) RoomSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked(room)
}

// ListActive returns every non-empty room, sorted by member count descending
// with ties broken by name ascending. Computed fresh on each call.
func (p *Presence) ListActive() []RoomSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]RoomSnapshot, 0, len(p.rooms))
	for name := range p.rooms {
		out = append(out, p.snapshotLocked(name))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserCount != out[j].UserCount {
			return out[i].UserCount > out[j].UserCount
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Counts reports the number of active rooms and connected members.
func (p *Presence) Counts() (rooms, members int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rooms = len(p.rooms)
	members = len(p.byConn)
	return rooms, members
}

func (p *Presence) snapshotLocked(room domain.RoomName) RoomSnapshot {
	members := p.rooms[room]
	users := make([]domain.Identity, 0, len(members))
	for _, m := range members {
		users = append(users, m.Identity())
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Handle < users[j].Handle })
	return RoomSnapshot{Name: room, UserCount: len(members), Users: users}
}
