package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/akopelev/watchparty/internal/domain"
	"github.com/akopelev/watchparty/internal/lobby"
)

type targetPayload struct {
	LobbyID      string `json:"lobbyId"`
	UserSocketID string `json:"userSocketId"`
}

func (ctl *Controller) handleKickUser(cid domain.ConnID, data []byte) {
	ctl.handleEvict(cid, data, (*lobby.Session).Kick)
}

func (ctl *Controller) handleBanUser(cid domain.ConnID, data []byte) {
	ctl.handleEvict(cid, data, (*lobby.Session).Ban)
}

func (ctl *Controller) handleEvict(
	cid domain.ConnID,
	data []byte,
	op func(*lobby.Session, domain.ConnID, domain.ConnID) ([]lobby.Notice, error),
) {
	var p targetPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad evict payload")
		return
	}
	target := domain.ConnID(p.UserSocketID)
	ctl.lobbyOp(cid, p.LobbyID, func(sess *lobby.Session) ([]lobby.Notice, error) {
		notices, err := op(sess, cid, target)
		if err != nil {
			return nil, err
		}
		// The target stays connected but no longer belongs to the lobby.
		ctl.Conns.ClearLobby(target)
		return notices, nil
	})
}

type transferHostPayload struct {
	LobbyID         string `json:"lobbyId"`
	NewHostSocketID string `json:"newHostSocketId"`
}

func (ctl *Controller) handleTransferHost(cid domain.ConnID, data []byte) {
	var p transferHostPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad transfer_host payload")
		return
	}
	ctl.lobbyOp(cid, p.LobbyID, func(sess *lobby.Session) ([]lobby.Notice, error) {
		return sess.TransferHost(cid, domain.ConnID(p.NewHostSocketID))
	})
}
