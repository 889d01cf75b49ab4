package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/akopelev/watchparty/internal/domain"
	"github.com/akopelev/watchparty/internal/lobby"
	"github.com/akopelev/watchparty/internal/queue"
)

type addVideoPayload struct {
	LobbyID string `json:"lobbyId"`
	URL     string `json:"url"`
}

func (ctl *Controller) handleAddVideo(cid domain.ConnID, data []byte) {
	var p addVideoPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad add_video payload")
		return
	}
	ctl.lobbyOp(cid, p.LobbyID, func(sess *lobby.Session) ([]lobby.Notice, error) {
		return sess.AddVideo(cid, p.URL)
	})
}

type lobbyRefPayload struct {
	LobbyID string `json:"lobbyId"`
}

func (ctl *Controller) handleSkipVideo(cid domain.ConnID, data []byte) {
	var p lobbyRefPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad skip_video payload")
		return
	}
	ctl.lobbyOp(cid, p.LobbyID, func(sess *lobby.Session) ([]lobby.Notice, error) {
		return sess.SkipVideo(cid)
	})
}

type deleteVideoPayload struct {
	LobbyID string `json:"lobbyId"`
	Index   int    `json:"index"`
}

func (ctl *Controller) handleDeleteVideo(cid domain.ConnID, data []byte) {
	var p deleteVideoPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad delete_video payload")
		return
	}
	ctl.lobbyOp(cid, p.LobbyID, func(sess *lobby.Session) ([]lobby.Notice, error) {
		return sess.DeleteVideo(cid, p.Index)
	})
}

type votePayload struct {
	LobbyID string `json:"lobbyId"`
	Undo    bool   `json:"undo"`
}

func (ctl *Controller) handleVote(cid domain.ConnID, data []byte, dir queue.Direction) {
	var p votePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad vote payload")
		return
	}
	ctl.lobbyOp(cid, p.LobbyID, func(sess *lobby.Session) ([]lobby.Notice, error) {
		return sess.Vote(cid, dir, p.Undo)
	})
}
