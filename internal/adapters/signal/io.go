package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(ctl.PingPeriod)
	defer ticker.Stop()
	// Closing the connection here unblocks the read pump right away; the
	// disconnect must not wait for the read deadline to fire.
	defer c.Close()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping error")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, cc *chatConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(cc.id)).Msg("readPump closing")
		ctl.Coord.OnDisconnect(cc.id)
		cc.conn.Close()
	}()

	pongWait := ctl.PingPeriod * 10 / 9
	cc.conn.conn.SetReadLimit(ctl.ReadLimit)
	_ = cc.conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	cc.conn.conn.SetPongHandler(func(string) error {
		return cc.conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("conn", string(cc.id)).Msg("readPump ctx done")
			return
		default:
			_, data, err := cc.conn.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "signal").Str("conn", string(cc.id)).Msg("readPump read error")
				return
			}
			ctl.dispatch(cc, data)
		}
	}
}

func (ctl *Controller) dispatch(cc *chatConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return
	}

	switch env.Type {
	case "join-room":
		ctl.handleJoinRoom(cc, data)
	case "send-message":
		ctl.handleSendMessage(cc, data)
	case "typing-start":
		ctl.Coord.OnTypingStart(cc.id)
	case "typing-stop":
		ctl.Coord.OnTypingStop(cc.id)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown event kind")
	}
}
