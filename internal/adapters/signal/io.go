package signal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/akopelev/watchparty/internal/core"
	"github.com/akopelev/watchparty/internal/domain"
	"github.com/akopelev/watchparty/internal/lobby"
	"github.com/akopelev/watchparty/internal/queue"
)

const writeWait = 5 * time.Second

type inMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(ctl.cfg.PingPeriod)
	defer ticker.Stop()
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

func (ctl *Controller) readPump(ctx context.Context, cid domain.ConnID, c *wsConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(cid)).Msg("readPump closing")
		ctl.onDisconnect(cid)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("conn", string(cid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "signal").Str("conn", string(cid)).Msg("readPump read error")
				return
			}
			ctl.handleEvent(cid, data)
		}
	}
}

// handleEvent routes one inbound client event. Events are handled one at a
// time per connection; per-lobby ordering comes from Session.Exclusive.
func (ctl *Controller) handleEvent(cid domain.ConnID, data []byte) {
	var msg inMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return
	}

	switch msg.Type {
	case "create_lobby":
		ctl.handleCreateLobby(cid, msg.Payload)
	case "join_lobby":
		ctl.handleJoinLobby(cid, msg.Payload)
	case "leave_lobby":
		ctl.handleLeaveLobby(cid)
	case "send_message":
		ctl.handleSendMessage(cid, msg.Payload)
	case "add_video":
		ctl.handleAddVideo(cid, msg.Payload)
	case "skip_video":
		ctl.handleSkipVideo(cid, msg.Payload)
	case "delete_video":
		ctl.handleDeleteVideo(cid, msg.Payload)
	case "like_video":
		ctl.handleVote(cid, msg.Payload, queue.Like)
	case "dislike_video":
		ctl.handleVote(cid, msg.Payload, queue.Dislike)
	case "kick_user":
		ctl.handleKickUser(cid, msg.Payload)
	case "ban_user":
		ctl.handleBanUser(cid, msg.Payload)
	case "transfer_host":
		ctl.handleTransferHost(cid, msg.Payload)
	case "request_sync":
		ctl.handleRequestSync(cid, msg.Payload)
	case "host_sync":
		ctl.handleHostSync(cid, msg.Payload)
	case "sync_play":
		ctl.handleSyncPlay(cid, msg.Payload)
	case "sync_pause":
		ctl.handleSyncPause(cid, msg.Payload)
	case "sync_end":
		ctl.handleSyncEnd(cid, msg.Payload)
	case "ping":
		ctl.send(cid, "pong", nil)
	default:
		log.Warn().Str("module", "signal").Str("type", msg.Type).Msg("unknown event")
	}
}

// send marshals and queues one addressed message, dropping it if the
// connection is gone or its send buffer is full.
func (ctl *Controller) send(cid domain.ConnID, event string, payload any) {
	s, ok := ctl.Conns.Sender(cid)
	if !ok {
		return
	}
	b, err := json.Marshal(outMessage{Type: event, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("send marshal")
		return
	}
	if err := s.TrySend(core.Frame(b)); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(cid)).Msg("send dropped")
	}
}

type errorPayload struct {
	Error string `json:"error"`
}

func (ctl *Controller) sendError(cid domain.ConnID, msg string) {
	ctl.send(cid, "error", errorPayload{Error: msg})
}

// deliver fans the notices of one operation out to the room or the addressed
// connection. A member whose connection already vanished is skipped.
func (ctl *Controller) deliver(sess *lobby.Session, notices []lobby.Notice) {
	for _, n := range notices {
		b, err := json.Marshal(outMessage{Type: n.Event, Payload: n.Payload})
		if err != nil {
			log.Error().Err(err).Str("module", "signal").Str("event", n.Event).Msg("deliver marshal")
			continue
		}
		if n.To != "" {
			ctl.sendFrame(n.To, b)
			continue
		}
		for _, cid := range sess.MemberIDs() {
			if cid == n.Except {
				continue
			}
			ctl.sendFrame(cid, b)
		}
	}
}

func (ctl *Controller) sendFrame(cid domain.ConnID, b []byte) {
	s, ok := ctl.Conns.Sender(cid)
	if !ok {
		return
	}
	if err := s.TrySend(core.Frame(b)); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(cid)).Msg("frame dropped")
	}
}

// errMessage maps engine errors to the requester-facing strings. ErrNotMember
// maps to empty: events from a connection outside the lobby are ignored.
func errMessage(err error) string {
	switch {
	case errors.Is(err, lobby.ErrLobbyNotFound):
		return "Lobby not found"
	case errors.Is(err, lobby.ErrBanned):
		return "You are banned from this lobby"
	case errors.Is(err, lobby.ErrUnauthorized):
		return "Only the host can do that"
	case errors.Is(err, lobby.ErrInvalidTarget):
		return "Invalid target user"
	case errors.Is(err, lobby.ErrNotMember):
		return ""
	case errors.Is(err, queue.ErrInvalidURL):
		return "Invalid YouTube URL"
	case errors.Is(err, queue.ErrDuplicateVideo):
		return "Video already in queue"
	case errors.Is(err, queue.ErrInvalidIndex):
		return "Invalid queue position"
	case errors.Is(err, domain.ErrNameEmpty), errors.Is(err, domain.ErrNameTooLong):
		return "Invalid display name"
	default:
		return "Request failed"
	}
}

// lobbyOp is the shared shape of a lobby-scoped event: resolve the session,
// run op and broadcast under the session's event lock, report errors only to
// the requester.
func (ctl *Controller) lobbyOp(cid domain.ConnID, lobbyID string, op func(*lobby.Session) ([]lobby.Notice, error)) {
	sess, err := ctl.Lobbies.Get(domain.LobbyID(lobbyID))
	if err != nil {
		ctl.sendError(cid, errMessage(err))
		return
	}
	sess.Exclusive(func() {
		notices, err := op(sess)
		if err != nil {
			if msg := errMessage(err); msg != "" {
				ctl.sendError(cid, msg)
			}
			return
		}
		ctl.deliver(sess, notices)
	})
}
