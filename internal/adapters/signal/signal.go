// Package signal is the realtime transport adapter: it owns the websocket
// lifecycle and translates inbound frames into coordinator operations. All
// room/session rules live below it.
package signal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/skyrc/skyrc/internal/app"
	"github.com/skyrc/skyrc/internal/core"
	"github.com/skyrc/skyrc/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

const sessionCookie = "skyrc_session_id"

type Controller struct {
	Coord      *app.Coordinator
	Sessions   *app.SessionStore
	ReadLimit  int64
	PingPeriod time.Duration
}

func NewController(coord *app.Coordinator, sessions *app.SessionStore, readLimit int64, pingPeriod time.Duration) *Controller {
	return &Controller{
		Coord:      coord,
		Sessions:   sessions,
		ReadLimit:  readLimit,
		PingPeriod: pingPeriod,
	}
}

// wsConn adapts one websocket to core.EventSink. TrySend marshals and queues
// without blocking; a full queue drops the event and reports backpressure.
type wsConn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(event any) error {
	b, err := json.Marshal(event)
	if err != nil {
		return err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- b:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// chatConn is the per-connection state the adapter keeps: the id minted at
// upgrade time and the identity the session check yielded.
type chatConn struct {
	id       core.ConnID
	identity domain.Identity
	conn     *wsConn
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleChat authenticates the request against the session store, upgrades
// it and starts the pumps. Authentication happens exactly once per
// connection; session freshness afterwards is the refresh endpoint's job.
func (ctl *Controller) HandleChat(ctx context.Context, c *gin.Context) {
	sid := c.Query("session")
	if sid == "" {
		sid, _ = c.Cookie(sessionCookie)
	}

	identity, err := ctl.Sessions.Validate(sid)
	if err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, app.ErrSessionNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	cc := &chatConn{
		id:       core.ConnID(uuid.NewString()),
		identity: identity,
		conn: &wsConn{
			conn: ws,
			send: make(chan []byte, 32),
		},
	}
	log.Info().Str("module", "signal").Str("conn", string(cc.id)).Str("handle", identity.Handle).Msg("new WS connection")

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		defer cancel()
		ctl.writePump(ctx, cc.conn)
	}()
	go func() {
		defer cancel()
		ctl.readPump(ctx, cc)
	}()
}
