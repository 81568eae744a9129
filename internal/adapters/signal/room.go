package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/skyrc/skyrc/internal/core"
)

func (ctl *Controller) handleJoinRoom(cc *chatConn, data []byte) {
	type joinPayload struct {
		Type string `json:"type"`
		Room string `json:"room"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		_ = cc.conn.TrySend(core.NewError("bad payload"))
		return
	}

	log.Info().Str("module", "signal").Str("conn", string(cc.id)).Str("room", p.Room).Msg("join-room")
	ctl.Coord.OnJoinRoom(cc.id, cc.identity, cc.conn, p.Room)
}
