package app

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/skyrc/skyrc/internal/core"
	"github.com/skyrc/skyrc/internal/domain"
	"github.com/skyrc/skyrc/internal/metrics"
)

// Coordinator drives every per-connection transition: join, leave, message,
// typing, disconnect. It is the only writer of the presence registry, and it
// decides which connections each event reaches.
//
// A single mutex serializes each mutation together with its fan-out, so
// every subscriber's outbound queue receives per-room events in the order
// they were issued (join before message before leave). Sinks enqueue without
// blocking; the network write happens later in the transport's write loop,
// never under this lock.
type Coordinator struct {
	mu       sync.Mutex
	presence *core.Presence
	rec      metrics.Recorder
}

func NewCoordinator(presence *core.Presence, rec metrics.Recorder) *Coordinator {
	return &Coordinator{presence: presence, rec: rec}
}

// OnJoinRoom validates the requested room and moves the connection into it.
// A connection is a member of at most one room: joining while joined first
// leaves the old room, announcing the departure to its remaining members.
// Validation failures produce a connection-scoped error event and mutate
// nothing.
func (c *Coordinator) OnJoinRoom(id core.ConnID, identity domain.Identity, sink core.EventSink, rawRoom string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, err := domain.CleanRoomName(rawRoom)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNameReserved) {
			c.trySend(sink, core.NewError("Cannot join reserved route"))
		} else {
			c.trySend(sink, core.NewError("Invalid room name: "+err.Error()))
		}
		return
	}

	if res, ok := c.presence.Leave(id); ok {
		c.announceLeft(res)
	}

	ms := core.NewMemberSession(identity, sink)
	res := c.presence.Join(id, ms, room)

	c.trySend(sink, core.NewRoomJoined(room, res.Snapshot))
	joined := core.NewUserJoined(identity, res.Snapshot)
	for _, other := range res.Others {
		c.trySend(other.Sink(), joined)
	}

	c.updateGauges()
	log.Info().Str("module", "app.coordinator").Str("conn", string(id)).Str("handle", identity.Handle).Str("room", string(room)).Msg("joined room")
}

// OnSendMessage broadcasts a chat message to every member of the sender's
// room, sender included. Unjoined connections and empty texts are silent
// no-ops: they reflect client races, not faults.
func (c *Coordinator) OnSendMessage(id core.ConnID, rawText string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, sender, all, ok := c.presence.Members(id)
	if !ok {
		return
	}
	msg, ok := domain.NewMessage(sender.Identity(), rawText, room)
	if !ok {
		return
	}

	event := core.NewNewMessage(msg)
	for _, m := range all {
		c.trySend(m.Sink(), event)
	}

	c.rec.RecordMessage()
	log.Debug().Str("module", "app.coordinator").Str("room", string(room)).Str("msg_id", msg.ID).Int("recipients", len(all)).Msg("message broadcast")
}

// OnTypingStart notifies the other members of the sender's room.
func (c *Coordinator) OnTypingStart(id core.ConnID) {
	c.notifyTyping(id, true)
}

// OnTypingStop mirrors OnTypingStart.
func (c *Coordinator) OnTypingStop(id core.ConnID) {
	c.notifyTyping(id, false)
}

func (c *Coordinator) notifyTyping(id core.ConnID, started bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, sender, peers, ok := c.presence.Peers(id)
	if !ok {
		return
	}
	event := core.NewTyping(sender.Identity().Ref(), room, started)
	for _, m := range peers {
		c.trySend(m.Sink(), event)
	}
}

// OnDisconnect is an implicit, immediate leave. No grace period: a
// reconnecting client is a brand-new connection and must rejoin.
func (c *Coordinator) OnDisconnect(id core.ConnID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res, ok := c.presence.Leave(id)
	if !ok {
		return
	}
	c.announceLeft(res)
	c.updateGauges()
	log.Info().Str("module", "app.coordinator").Str("conn", string(id)).Str("room", string(res.Room)).Msg("disconnected")
}

func (c *Coordinator) announceLeft(res core.LeaveResult) {
	event := core.NewUserLeft(res.Left.Identity().Ref(), res.Snapshot)
	for _, m := range res.Remaining {
		c.trySend(m.Sink(), event)
	}
}

func (c *Coordinator) updateGauges() {
	rooms, members := c.presence.Counts()
	c.rec.SetActiveRooms(rooms)
	c.rec.SetConnectedMembers(members)
}

// trySend drops the event on backpressure; delivery is best-effort
// at-most-once by contract.
func (c *Coordinator) trySend(sink core.EventSink, event any) {
	if err := sink.TrySend(event); err != nil {
		log.Warn().Err(err).Str("module", "app.coordinator").Msg("event dropped")
	}
}
