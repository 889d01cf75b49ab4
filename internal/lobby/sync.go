package lobby

import "github.com/akopelev/watchparty/internal/domain"

// Playback sync: the host's player is the single source of truth. The session
// never tracks a position itself, it only relays host intents to the room and
// runs the two-hop request/reply relay for late joiners. Intents from a
// non-host connection are dropped silently, matching the play/pause button
// simply doing nothing for members.

// HostPlay relays a play-at-timestamp intent to everyone but the host.
func (s *Session) HostPlay(cid domain.ConnID, t float64) []Notice {
	return s.hostSyncNotice(cid, EventSyncPlay, SyncTimePayload{Time: t})
}

// HostPause relays a pause-at-timestamp intent to everyone but the host.
func (s *Session) HostPause(cid domain.ConnID, t float64) []Notice {
	return s.hostSyncNotice(cid, EventSyncPause, SyncTimePayload{Time: t})
}

// HostEnded tells the room the current video finished on the host's player.
func (s *Session) HostEnded(cid domain.ConnID) []Notice {
	return s.hostSyncNotice(cid, EventSyncEnd, struct{}{})
}

func (s *Session) hostSyncNotice(cid domain.ConnID, event string, payload any) []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cid != s.host {
		return nil
	}
	return []Notice{roomExcept(event, cid, payload)}
}

// RequestSync forwards a member's position request to the host connection.
// If the host is unreachable the request is simply dropped on delivery.
func (s *Session) RequestSync(cid domain.ConnID) []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[cid]; !ok {
		return nil
	}
	return []Notice{addressed(s.host, EventRequestHostSync, SyncRequestPayload{Requester: cid})}
}

// HostSyncReply completes the relay: the host's live position goes back to
// the one requester. A requester that disconnected meanwhile is a no-op.
func (s *Session) HostSyncReply(cid, requester domain.ConnID, t float64, state string) []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cid != s.host {
		return nil
	}
	if _, ok := s.members[requester]; !ok {
		return nil
	}
	return []Notice{addressed(requester, EventHostSync, SyncStatePayload{Time: t, State: state})}
}
