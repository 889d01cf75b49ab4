package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/akopelev/watchparty/internal/domain"
	"github.com/akopelev/watchparty/internal/lobby"
)

// Playback intents are host-gated inside the session and silently dropped for
// anyone else, so these handlers never answer with an error.

type syncTimePayload struct {
	LobbyID string  `json:"lobbyId"`
	Time    float64 `json:"time"`
}

func (ctl *Controller) handleSyncPlay(cid domain.ConnID, data []byte) {
	var p syncTimePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad sync_play payload")
		return
	}
	ctl.relay(cid, p.LobbyID, func(sess *lobby.Session) []lobby.Notice {
		return sess.HostPlay(cid, p.Time)
	})
}

func (ctl *Controller) handleSyncPause(cid domain.ConnID, data []byte) {
	var p syncTimePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad sync_pause payload")
		return
	}
	ctl.relay(cid, p.LobbyID, func(sess *lobby.Session) []lobby.Notice {
		return sess.HostPause(cid, p.Time)
	})
}

func (ctl *Controller) handleSyncEnd(cid domain.ConnID, data []byte) {
	var p lobbyRefPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad sync_end payload")
		return
	}
	ctl.relay(cid, p.LobbyID, func(sess *lobby.Session) []lobby.Notice {
		return sess.HostEnded(cid)
	})
}

func (ctl *Controller) handleRequestSync(cid domain.ConnID, data []byte) {
	var p lobbyRefPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad request_sync payload")
		return
	}
	ctl.relay(cid, p.LobbyID, func(sess *lobby.Session) []lobby.Notice {
		return sess.RequestSync(cid)
	})
}

type hostSyncPayload struct {
	LobbyID   string  `json:"lobbyId"`
	Requester string  `json:"requester"`
	Time      float64 `json:"time"`
	State     string  `json:"state"`
}

func (ctl *Controller) handleHostSync(cid domain.ConnID, data []byte) {
	var p hostSyncPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad host_sync payload")
		return
	}
	ctl.relay(cid, p.LobbyID, func(sess *lobby.Session) []lobby.Notice {
		return sess.HostSyncReply(cid, domain.ConnID(p.Requester), p.Time, p.State)
	})
}

// relay is lobbyOp for the fire-and-forget sync events: an unknown lobby is
// dropped without a reply, matching the original behavior.
func (ctl *Controller) relay(cid domain.ConnID, lobbyID string, op func(*lobby.Session) []lobby.Notice) {
	sess, err := ctl.Lobbies.Get(domain.LobbyID(lobbyID))
	if err != nil {
		return
	}
	sess.Exclusive(func() {
		ctl.deliver(sess, op(sess))
	})
}
