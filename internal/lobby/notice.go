package lobby

import (
	"sort"

	"github.com/akopelev/watchparty/internal/domain"
)

// Outbound event names.
const (
	EventUserList        = "user_list"
	EventUserJoined      = "user_joined"
	EventUserLeft        = "user_left"
	EventReceiveMessage  = "receive_message"
	EventQueueUpdated    = "queue_updated"
	EventVideoSkipped    = "video_skipped"
	EventKicked          = "kicked"
	EventBanned          = "banned"
	EventHostChanged     = "host_changed"
	EventRequestHostSync = "request_host_sync"
	EventHostSync        = "host_sync"
	EventSyncPlay        = "sync_play"
	EventSyncPause       = "sync_pause"
	EventSyncEnd         = "sync_end"
)

// Notice is one outbound notification produced by a session operation.
// Empty To means the whole lobby; Except skips one connection on a room send.
// The dispatcher owns actual delivery.
type Notice struct {
	Event   string
	To      domain.ConnID
	Except  domain.ConnID
	Payload any
}

func room(event string, payload any) Notice {
	return Notice{Event: event, Payload: payload}
}

func roomExcept(event string, except domain.ConnID, payload any) Notice {
	return Notice{Event: event, Except: except, Payload: payload}
}

func addressed(to domain.ConnID, event string, payload any) Notice {
	return Notice{Event: event, To: to, Payload: payload}
}

// MemberDTO mirrors the wire shape of one user list entry.
type MemberDTO struct {
	SocketID domain.ConnID `json:"socketId"`
	Name     string        `json:"name"`
	IsHost   bool          `json:"isHost"`
}

// VideoDTO is a queue entry with votes resolved to display names.
type VideoDTO struct {
	URL             string   `json:"url"`
	AddedBy         string   `json:"addedBy"`
	Likes           int      `json:"likes"`
	Dislikes        int      `json:"dislikes"`
	LikedByNames    []string `json:"likedByNames"`
	DislikedByNames []string `json:"dislikedByNames"`
	Played          bool     `json:"played"`
}

// Snapshot is the full state a joining connection receives.
type Snapshot struct {
	LobbyID      domain.LobbyID `json:"lobbyId"`
	HostName     string         `json:"hostName"`
	Users        []MemberDTO    `json:"users"`
	Queue        []VideoDTO     `json:"queue"`
	CurrentVideo *VideoDTO      `json:"currentVideo"`
}

type NamePayload struct {
	Name string `json:"name"`
}

type ChatPayload struct {
	User      string `json:"user"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type HostChangedPayload struct {
	NewHost string `json:"newHost"`
}

type SyncRequestPayload struct {
	Requester domain.ConnID `json:"requester"`
}

type SyncStatePayload struct {
	Time  float64 `json:"time"`
	State string  `json:"state"`
}

type SyncTimePayload struct {
	Time float64 `json:"time"`
}

// sortedNames resolves vote holders to display names of still-present members.
// Connections that already left are dropped, the list is sorted so broadcasts
// are reproducible.
func sortedNames(ids map[domain.ConnID]struct{}, members map[domain.ConnID]*domain.Member) []string {
	names := make([]string, 0, len(ids))
	for cid := range ids {
		if m, ok := members[cid]; ok {
			names = append(names, m.Name)
		}
	}
	sort.Strings(names)
	return names
}
