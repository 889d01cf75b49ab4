// Package lobby implements the per-lobby session engine: membership, host
// authority, the vote-ordered queue and the playback sync relay.
package lobby

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/akopelev/watchparty/internal/domain"
	"github.com/akopelev/watchparty/internal/queue"
)

var (
	ErrBanned        = errors.New("banned from lobby")
	ErrUnauthorized  = errors.New("requester is not the host")
	ErrInvalidTarget = errors.New("invalid target member")
	ErrNotMember     = errors.New("not a member of this lobby")
)

// Session owns one lobby: its members, host, queue and ban list. Every
// operation mutates under mu and returns the notices the dispatcher must
// deliver. Authority is re-checked against live state on every privileged
// call, client-side belief is never trusted.
type Session struct {
	id domain.LobbyID

	mu       sync.Mutex
	host     domain.ConnID
	hostName string
	members  map[domain.ConnID]*domain.Member
	order    []domain.ConnID // join order, drives deterministic host promotion
	queue    *queue.Queue
	banned   map[domain.ConnID]struct{}

	// evMu serializes one inbound event's mutate-then-broadcast sequence,
	// see Exclusive.
	evMu sync.Mutex
}

func newSession(id domain.LobbyID, hostID domain.ConnID, hostName string) *Session {
	host := &domain.Member{ConnID: hostID, Name: hostName, IsHost: true}
	return &Session{
		id:       id,
		host:     hostID,
		hostName: hostName,
		members:  map[domain.ConnID]*domain.Member{hostID: host},
		order:    []domain.ConnID{hostID},
		queue:    queue.New(),
		banned:   make(map[domain.ConnID]struct{}),
	}
}

// Exclusive runs fn under the session's event lock. The dispatcher wraps each
// inbound event in it so the broadcasts of one operation are handed to the
// gateway before the next operation on the same lobby starts. Different
// lobbies stay fully independent.
func (s *Session) Exclusive(fn func()) {
	s.evMu.Lock()
	defer s.evMu.Unlock()
	fn()
}

func (s *Session) ID() domain.LobbyID { return s.id }

func (s *Session) HostID() domain.ConnID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.host
}

func (s *Session) HostName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hostName
}

func (s *Session) MemberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members)
}

func (s *Session) IsMember(cid domain.ConnID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.members[cid]
	return ok
}

// MemberIDs returns the connection ids of current members, in join order.
func (s *Session) MemberIDs() []domain.ConnID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ConnID, len(s.order))
	copy(out, s.order)
	return out
}

// Join admits cid unless its identifier is on the ban list, returning the
// full state snapshot for the joiner plus the room notices.
func (s *Session) Join(cid domain.ConnID, name string) (*Snapshot, []Notice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.banned[cid]; ok {
		return nil, nil, ErrBanned
	}
	m, err := domain.NewMember(cid, name)
	if err != nil {
		return nil, nil, err
	}
	s.members[cid] = m
	s.order = append(s.order, cid)
	// A session is only ever memberless in the window between the last leave
	// and its destruction. Should a join land in that window, the joiner is
	// the host: no session may hold members without one.
	if len(s.members) == 1 {
		m.IsHost = true
		s.host = cid
		s.hostName = name
	}
	log.Info().Str("module", "lobby.session").Str("lobby", string(s.id)).Str("conn", string(cid)).Str("name", name).Msg("member joined")

	notices := []Notice{
		roomExcept(EventUserJoined, cid, NamePayload{Name: name}),
		room(EventUserList, s.memberListLocked()),
	}
	return s.snapshotLocked(), notices, nil
}

// Leave removes cid, promoting the earliest remaining joiner when the host
// left. The second return is true once the lobby is empty, which is the
// registry's cue to destroy it.
func (s *Session) Leave(cid domain.ConnID) ([]Notice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.members[cid]
	if !ok {
		return nil, len(s.members) == 0
	}
	wasHost := m.IsHost
	s.removeLocked(cid)
	log.Info().Str("module", "lobby.session").Str("lobby", string(s.id)).Str("conn", string(cid)).Msg("member left")

	if len(s.members) == 0 {
		return nil, true
	}

	notices := []Notice{
		room(EventUserLeft, NamePayload{Name: m.Name}),
		room(EventUserList, s.memberListLocked()),
	}
	if wasHost {
		next := s.members[s.order[0]]
		next.IsHost = true
		s.host = next.ConnID
		s.hostName = next.Name
		notices = append(notices, room(EventHostChanged, HostChangedPayload{NewHost: next.Name}))
		log.Info().Str("module", "lobby.session").Str("lobby", string(s.id)).Str("new_host", next.Name).Msg("host promoted")
	}
	return notices, false
}

// Kick removes target on the host's request. The kicked notice is addressed
// to the target alone, the room sees a normal departure.
func (s *Session) Kick(requester, target domain.ConnID) ([]Notice, error) {
	return s.evict(requester, target, EventKicked)
}

// Ban is Kick plus a permanent entry on the ban list. The identifier stays
// banned across host transfers for this session's lifetime.
func (s *Session) Ban(requester, target domain.ConnID) ([]Notice, error) {
	return s.evict(requester, target, EventBanned)
}

func (s *Session) evict(requester, target domain.ConnID, event string) ([]Notice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if requester != s.host {
		return nil, ErrUnauthorized
	}
	m, ok := s.members[target]
	if !ok || target == requester {
		return nil, ErrInvalidTarget
	}
	if event == EventBanned {
		s.banned[target] = struct{}{}
	}
	s.removeLocked(target)
	log.Info().Str("module", "lobby.session").Str("lobby", string(s.id)).Str("conn", string(target)).Str("event", event).Msg("member evicted")

	return []Notice{
		addressed(target, event, struct{}{}),
		room(EventUserLeft, NamePayload{Name: m.Name}),
		room(EventUserList, s.memberListLocked()),
	}, nil
}

// TransferHost hands authority to another present member.
func (s *Session) TransferHost(requester, newHost domain.ConnID) ([]Notice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if requester != s.host {
		return nil, ErrUnauthorized
	}
	next, ok := s.members[newHost]
	if !ok || newHost == requester {
		return nil, ErrInvalidTarget
	}
	s.members[requester].IsHost = false
	next.IsHost = true
	s.host = next.ConnID
	s.hostName = next.Name
	log.Info().Str("module", "lobby.session").Str("lobby", string(s.id)).Str("new_host", next.Name).Msg("host transferred")

	return []Notice{
		room(EventHostChanged, HostChangedPayload{NewHost: next.Name}),
		room(EventUserList, s.memberListLocked()),
	}, nil
}

// Message relays a chat line from a member to the whole lobby.
func (s *Session) Message(cid domain.ConnID, text string) ([]Notice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.members[cid]
	if !ok {
		return nil, ErrNotMember
	}
	return []Notice{room(EventReceiveMessage, ChatPayload{
		User:      m.Name,
		Message:   text,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})}, nil
}

// AddVideo appends url to the queue on behalf of any member.
func (s *Session) AddVideo(cid domain.ConnID, url string) ([]Notice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.members[cid]
	if !ok {
		return nil, ErrNotMember
	}
	if _, err := s.queue.Add(url, m.Name); err != nil {
		return nil, err
	}
	return []Notice{room(EventQueueUpdated, s.queueDTOLocked())}, nil
}

// SkipVideo rotates the head to the tail. Host only; an empty queue is a
// benign no-op, not an error.
func (s *Session) SkipVideo(requester domain.ConnID) ([]Notice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if requester != s.host {
		return nil, ErrUnauthorized
	}
	v, ok := s.queue.Skip()
	if !ok {
		return nil, nil
	}
	return []Notice{
		room(EventQueueUpdated, s.queueDTOLocked()),
		room(EventVideoSkipped, s.videoDTOLocked(v)),
	}, nil
}

// DeleteVideo removes the entry at index. Host only.
func (s *Session) DeleteVideo(requester domain.ConnID, index int) ([]Notice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if requester != s.host {
		return nil, ErrUnauthorized
	}
	if _, err := s.queue.RemoveAt(index); err != nil {
		return nil, err
	}
	return []Notice{room(EventQueueUpdated, s.queueDTOLocked())}, nil
}

// Vote applies a like or dislike by cid on the now-playing entry and, when
// the vote state actually changed, reorders the rest of the queue.
func (s *Session) Vote(cid domain.ConnID, dir queue.Direction, undo bool) ([]Notice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[cid]; !ok {
		return nil, ErrNotMember
	}
	if _, changed := s.queue.Vote(cid, dir, undo); !changed {
		return nil, nil
	}
	s.queue.Reorder(s.activeNamesLocked())
	return []Notice{room(EventQueueUpdated, s.queueDTOLocked())}, nil
}

func (s *Session) removeLocked(cid domain.ConnID) {
	delete(s.members, cid)
	for i, id := range s.order {
		if id == cid {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Session) activeNamesLocked() map[string]bool {
	names := make(map[string]bool, len(s.members))
	for _, m := range s.members {
		names[m.Name] = true
	}
	return names
}

func (s *Session) memberListLocked() []MemberDTO {
	out := make([]MemberDTO, 0, len(s.order))
	for _, cid := range s.order {
		m := s.members[cid]
		out = append(out, MemberDTO{SocketID: m.ConnID, Name: m.Name, IsHost: m.IsHost})
	}
	return out
}

func (s *Session) videoDTOLocked(v *domain.Video) VideoDTO {
	return VideoDTO{
		URL:             v.URL,
		AddedBy:         v.AddedBy,
		Likes:           v.Likes,
		Dislikes:        v.Dislikes,
		LikedByNames:    sortedNames(v.LikedBy, s.members),
		DislikedByNames: sortedNames(v.DislikedBy, s.members),
		Played:          v.Played,
	}
}

func (s *Session) queueDTOLocked() []VideoDTO {
	entries := s.queue.Entries()
	out := make([]VideoDTO, 0, len(entries))
	for _, v := range entries {
		out = append(out, s.videoDTOLocked(v))
	}
	return out
}

func (s *Session) snapshotLocked() *Snapshot {
	snap := &Snapshot{
		LobbyID:  s.id,
		HostName: s.hostName,
		Users:    s.memberListLocked(),
		Queue:    s.queueDTOLocked(),
	}
	if len(snap.Queue) > 0 {
		snap.CurrentVideo = &snap.Queue[0]
	}
	return snap
}

// Snapshot returns the state a joining or reconnecting client renders from.
func (s *Session) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// MemberList returns the current user list in join order.
func (s *Session) MemberList() []MemberDTO {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memberListLocked()
}
