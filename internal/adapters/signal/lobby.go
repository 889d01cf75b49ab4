package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/akopelev/watchparty/internal/domain"
	"github.com/akopelev/watchparty/internal/lobby"
)

type createLobbyPayload struct {
	HostName string `json:"hostName"`
}

type lobbyCreatedPayload struct {
	LobbyID domain.LobbyID `json:"lobbyId"`
}

func (ctl *Controller) handleCreateLobby(cid domain.ConnID, data []byte) {
	var p createLobbyPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad create_lobby payload")
		ctl.sendError(cid, "Bad payload")
		return
	}
	if _, err := domain.NewMember(cid, p.HostName); err != nil {
		ctl.sendError(cid, errMessage(err))
		return
	}

	// Creating while in another lobby implies leaving it first.
	ctl.leaveCurrent(cid)

	sess := ctl.Lobbies.Create(cid, p.HostName)
	ctl.Conns.SetLobby(cid, sess.ID())
	ctl.send(cid, "lobby_created", lobbyCreatedPayload{LobbyID: sess.ID()})
}

type joinLobbyPayload struct {
	LobbyID  string `json:"lobbyId"`
	UserName string `json:"userName"`
}

func (ctl *Controller) handleJoinLobby(cid domain.ConnID, data []byte) {
	var p joinLobbyPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join_lobby payload")
		ctl.sendError(cid, "Bad payload")
		return
	}
	sess, err := ctl.Lobbies.Get(domain.LobbyID(p.LobbyID))
	if err != nil {
		ctl.sendError(cid, errMessage(err))
		return
	}

	// Re-joining the lobby the connection already sits in must not pass
	// through leaveCurrent: for a sole member that would empty the session
	// and garbage-collect it while we ack the join. Just replay the snapshot.
	if cur, ok := ctl.Conns.LobbyOf(cid); ok && cur == sess.ID() {
		ctl.send(cid, "lobby_joined", sess.Snapshot())
		return
	}

	ctl.leaveCurrent(cid)

	sess.Exclusive(func() {
		snap, notices, err := sess.Join(cid, p.UserName)
		if err != nil {
			ctl.sendError(cid, errMessage(err))
			return
		}
		ctl.Conns.SetLobby(cid, sess.ID())
		ctl.send(cid, "lobby_joined", snap)
		ctl.deliver(sess, notices)
	})
}

func (ctl *Controller) handleLeaveLobby(cid domain.ConnID) {
	ctl.leaveCurrent(cid)
}

func (ctl *Controller) onDisconnect(cid domain.ConnID) {
	ctl.leaveCurrent(cid)
	ctl.Chat.Forget(cid)
	ctl.Conns.Unbind(cid)
}

// leaveCurrent removes cid from whatever lobby it sits in and garbage
// collects the session when it emptied out. No-op for idle connections.
func (ctl *Controller) leaveCurrent(cid domain.ConnID) {
	id, ok := ctl.Conns.LobbyOf(cid)
	if !ok {
		return
	}
	ctl.Conns.ClearLobby(cid)
	sess, err := ctl.Lobbies.Get(id)
	if err != nil {
		return
	}
	sess.Exclusive(func() {
		notices, empty := sess.Leave(cid)
		ctl.deliver(sess, notices)
		if empty {
			ctl.Lobbies.DestroyIfEmpty(id)
		}
	})
}

type chatInPayload struct {
	LobbyID string `json:"lobbyId"`
	Message string `json:"message"`
}

func (ctl *Controller) handleSendMessage(cid domain.ConnID, data []byte) {
	var p chatInPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad send_message payload")
		return
	}
	if !ctl.Chat.Allow(cid) {
		ctl.sendError(cid, "You are sending messages too fast")
		return
	}
	ctl.lobbyOp(cid, p.LobbyID, func(sess *lobby.Session) ([]lobby.Notice, error) {
		return sess.Message(cid, p.Message)
	})
}
