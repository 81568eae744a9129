package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

func (ctl *Controller) handleSendMessage(cc *chatConn, data []byte) {
	type messagePayload struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	var p messagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad message payload")
		return
	}

	ctl.Coord.OnSendMessage(cc.id, p.Message)
}
