// Package signal is the boundary adapter between the websocket transport and
// the lobby engine. It resolves inbound events to a session, runs the
// operation and hands the resulting notices to the connected members.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/akopelev/watchparty/internal/config"
	"github.com/akopelev/watchparty/internal/core"
	"github.com/akopelev/watchparty/internal/domain"
	"github.com/akopelev/watchparty/internal/lobby"
)

type Controller struct {
	Conns   *core.ConnRegistry
	Lobbies *lobby.Registry
	Chat    *RateLimiter

	cfg *config.Config
}

func NewController(cfg *config.Config, conns *core.ConnRegistry, lobbies *lobby.Registry) *Controller {
	return &Controller{
		Conns:   conns,
		Lobbies: lobbies,
		Chat:    NewRateLimiter(cfg.ChatBurst, cfg.ChatWindow),
		cfg:     cfg,
	}
}

type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
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

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWS upgrades the request and starts the read/write pumps. Every
// upgrade gets a fresh connection identifier, reconnects are new identities.
func (ctl *Controller) HandleWS(ctx context.Context, c *gin.Context) {
	cid := domain.ConnID(uuid.NewString())
	log.Info().Str("module", "signal").Str("conn", string(cid)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.cfg.ReadLimit)

	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, ctl.cfg.SendBuffer),
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Conns.Bind(cid, conn, cancel)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cid, conn)
}
