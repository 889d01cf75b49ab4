package lobby

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/akopelev/watchparty/internal/domain"
)

var ErrLobbyNotFound = errors.New("lobby not found")

// Registry owns every active session. It is an explicit instance handed to
// the dispatcher, never a package-level global, so tests can run registries
// side by side. DestroyIfEmpty is the sole deletion path.
type Registry struct {
	mu      sync.RWMutex
	lobbies map[domain.LobbyID]*Session
}

func NewRegistry() *Registry {
	return &Registry{lobbies: make(map[domain.LobbyID]*Session)}
}

// Create registers a fresh session with the creating connection as sole
// member and host. Never fails.
func (r *Registry) Create(hostID domain.ConnID, hostName string) *Session {
	id := domain.LobbyID(uuid.NewString())
	s := newSession(id, hostID, hostName)
	r.mu.Lock()
	r.lobbies[id] = s
	r.mu.Unlock()
	log.Info().Str("module", "lobby.registry").Str("lobby", string(id)).Str("host", hostName).Msg("lobby created")
	return s
}

func (r *Registry) Get(id domain.LobbyID) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.lobbies[id]; ok {
		return s, nil
	}
	return nil, ErrLobbyNotFound
}

// DestroyIfEmpty drops the session once its member set reached zero.
// Called after every membership removal.
func (r *Registry) DestroyIfEmpty(id domain.LobbyID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.lobbies[id]
	if !ok || s.MemberCount() > 0 {
		return false
	}
	delete(r.lobbies, id)
	log.Info().Str("module", "lobby.registry").Str("lobby", string(id)).Msg("lobby destroyed")
	return true
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.lobbies)
}
