package core

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/akopelev/watchparty/internal/domain"
)

type connEntry struct {
	Sender Sender
	Lobby  domain.LobbyID
	Cancel context.CancelFunc
}

// ConnRegistry binds connection identifiers to their transport endpoint and,
// once joined, to the lobby the connection currently sits in. It is the only
// place the dispatcher resolves a ConnID to something it can send to, so
// delivery to an absent connection degrades to a no-op.
type ConnRegistry struct {
	mu    sync.RWMutex
	conns map[domain.ConnID]*connEntry
}

func NewConnRegistry() *ConnRegistry {
	return &ConnRegistry{conns: make(map[domain.ConnID]*connEntry)}
}

func (r *ConnRegistry) Bind(cid domain.ConnID, s Sender, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[cid] = &connEntry{Sender: s, Cancel: cancel}
	log.Info().Str("module", "core.registry").Str("conn", string(cid)).Msg("bound connection")
}

// Unbind drops the entry and cancels the connection's context, stopping its
// write pump if the read side is already gone.
func (r *ConnRegistry) Unbind(cid domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[cid]
	if !ok {
		return
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	delete(r.conns, cid)
	log.Info().Str("module", "core.registry").Str("conn", string(cid)).Msg("unbound connection")
}

func (r *ConnRegistry) Sender(cid domain.ConnID) (Sender, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.conns[cid]; ok {
		return e.Sender, true
	}
	return nil, false
}

func (r *ConnRegistry) SetLobby(cid domain.ConnID, id domain.LobbyID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[cid]; ok {
		e.Lobby = id
	}
}

func (r *ConnRegistry) ClearLobby(cid domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[cid]; ok {
		e.Lobby = ""
	}
}

func (r *ConnRegistry) LobbyOf(cid domain.ConnID) (domain.LobbyID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[cid]
	if !ok || e.Lobby == "" {
		return "", false
	}
	return e.Lobby, true
}
