package lobby

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akopelev/watchparty/internal/domain"
	"github.com/akopelev/watchparty/internal/queue"
)

const (
	aliceConn = domain.ConnID("conn-alice")
	bobConn   = domain.ConnID("conn-bob")
	carolConn = domain.ConnID("conn-carol")
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s := newSession("lobby-1", aliceConn, "Alice")
	_, _, err := s.Join(bobConn, "Bob")
	require.NoError(t, err)
	_, _, err = s.Join(carolConn, "Carol")
	require.NoError(t, err)
	return s
}

func hostCount(s *Session) int {
	n := 0
	for _, m := range s.MemberList() {
		if m.IsHost {
			n++
		}
	}
	return n
}

func findEvent(notices []Notice, event string) (Notice, bool) {
	for _, n := range notices {
		if n.Event == event {
			return n, true
		}
	}
	return Notice{}, false
}

func TestNewSessionHasExactlyOneHost(t *testing.T) {
	s := newTestSession(t)

	assert.Equal(t, 3, s.MemberCount())
	assert.Equal(t, 1, hostCount(s))
	assert.Equal(t, aliceConn, s.HostID())
	assert.Equal(t, "Alice", s.HostName())
}

func TestJoinNotices(t *testing.T) {
	s := newSession("lobby-1", aliceConn, "Alice")

	snap, notices, err := s.Join(bobConn, "Bob")
	require.NoError(t, err)

	assert.Equal(t, domain.LobbyID("lobby-1"), snap.LobbyID)
	assert.Equal(t, "Alice", snap.HostName)
	assert.Len(t, snap.Users, 2)
	assert.Nil(t, snap.CurrentVideo)

	joined, ok := findEvent(notices, EventUserJoined)
	require.True(t, ok)
	assert.Equal(t, bobConn, joined.Except, "joiner should not hear its own user_joined")

	list, ok := findEvent(notices, EventUserList)
	require.True(t, ok)
	assert.Empty(t, list.To)
	assert.Len(t, list.Payload.([]MemberDTO), 2)
}

func TestJoinIntoDrainedSessionPromotesJoiner(t *testing.T) {
	s := newSession("lobby-1", aliceConn, "Alice")
	_, empty := s.Leave(aliceConn)
	require.True(t, empty)

	snap, _, err := s.Join(bobConn, "Bob")
	require.NoError(t, err)

	assert.Equal(t, bobConn, s.HostID())
	assert.Equal(t, "Bob", s.HostName())
	assert.Equal(t, 1, hostCount(s))
	require.Len(t, snap.Users, 1)
	assert.True(t, snap.Users[0].IsHost)
}

func TestJoinRejectsInvalidName(t *testing.T) {
	s := newSession("lobby-1", aliceConn, "Alice")

	_, _, err := s.Join(bobConn, "")
	assert.ErrorIs(t, err, domain.ErrNameEmpty)
	assert.Equal(t, 1, s.MemberCount())
}

func TestLeavePromotesEarliestRemainingJoiner(t *testing.T) {
	s := newTestSession(t)

	notices, empty := s.Leave(aliceConn)
	assert.False(t, empty)
	assert.Equal(t, 2, s.MemberCount())
	assert.Equal(t, 1, hostCount(s))

	// Bob joined before Carol, so Bob inherits the lobby.
	assert.Equal(t, bobConn, s.HostID())
	assert.Equal(t, "Bob", s.HostName())

	changed, ok := findEvent(notices, EventHostChanged)
	require.True(t, ok)
	assert.Equal(t, HostChangedPayload{NewHost: "Bob"}, changed.Payload)
}

func TestLeaveNonHostKeepsHost(t *testing.T) {
	s := newTestSession(t)

	notices, empty := s.Leave(bobConn)
	assert.False(t, empty)
	assert.Equal(t, aliceConn, s.HostID())
	_, ok := findEvent(notices, EventHostChanged)
	assert.False(t, ok)
}

func TestLeaveLastMemberReportsEmpty(t *testing.T) {
	s := newSession("lobby-1", aliceConn, "Alice")

	notices, empty := s.Leave(aliceConn)
	assert.True(t, empty)
	assert.Empty(t, notices, "nobody is left to notify")
}

func TestKickAddressesTargetOnly(t *testing.T) {
	s := newTestSession(t)

	notices, err := s.Kick(aliceConn, bobConn)
	require.NoError(t, err)
	assert.False(t, s.IsMember(bobConn))

	kicked, ok := findEvent(notices, EventKicked)
	require.True(t, ok)
	assert.Equal(t, bobConn, kicked.To)

	left, ok := findEvent(notices, EventUserLeft)
	require.True(t, ok)
	assert.Equal(t, NamePayload{Name: "Bob"}, left.Payload)

	list, ok := findEvent(notices, EventUserList)
	require.True(t, ok)
	assert.Len(t, list.Payload.([]MemberDTO), 2)
}

func TestKickValidatesTarget(t *testing.T) {
	s := newTestSession(t)

	_, err := s.Kick(aliceConn, aliceConn)
	assert.ErrorIs(t, err, ErrInvalidTarget)

	_, err = s.Kick(aliceConn, domain.ConnID("conn-nobody"))
	assert.ErrorIs(t, err, ErrInvalidTarget)

	assert.Equal(t, 3, s.MemberCount())
}

func TestBanBlocksRejoinEvenAfterHostTransfer(t *testing.T) {
	s := newTestSession(t)

	notices, err := s.Ban(aliceConn, bobConn)
	require.NoError(t, err)
	banned, ok := findEvent(notices, EventBanned)
	require.True(t, ok)
	assert.Equal(t, bobConn, banned.To)

	_, _, err = s.Join(bobConn, "Bob")
	assert.ErrorIs(t, err, ErrBanned)

	_, err = s.TransferHost(aliceConn, carolConn)
	require.NoError(t, err)

	_, _, err = s.Join(bobConn, "Bob")
	assert.ErrorIs(t, err, ErrBanned)
}

func TestKickedConnectionMayRejoin(t *testing.T) {
	s := newTestSession(t)

	_, err := s.Kick(aliceConn, bobConn)
	require.NoError(t, err)

	_, _, err = s.Join(bobConn, "Bob")
	assert.NoError(t, err)
}

func TestTransferHostFlipsBothMembers(t *testing.T) {
	s := newTestSession(t)

	notices, err := s.TransferHost(aliceConn, bobConn)
	require.NoError(t, err)

	assert.Equal(t, bobConn, s.HostID())
	assert.Equal(t, "Bob", s.HostName())
	assert.Equal(t, 1, hostCount(s))

	changed, ok := findEvent(notices, EventHostChanged)
	require.True(t, ok)
	assert.Equal(t, HostChangedPayload{NewHost: "Bob"}, changed.Payload)

	_, err = s.TransferHost(bobConn, bobConn)
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

func TestPrivilegedOpsRejectNonHost(t *testing.T) {
	s := newTestSession(t)
	_, err := s.AddVideo(aliceConn, "https://youtu.be/abc12345678")
	require.NoError(t, err)

	checks := []struct {
		name string
		call func() error
	}{
		{"skip", func() error { _, err := s.SkipVideo(bobConn); return err }},
		{"delete", func() error { _, err := s.DeleteVideo(bobConn, 0); return err }},
		{"kick", func() error { _, err := s.Kick(bobConn, carolConn); return err }},
		{"ban", func() error { _, err := s.Ban(bobConn, carolConn); return err }},
		{"transfer", func() error { _, err := s.TransferHost(bobConn, carolConn); return err }},
	}
	for _, c := range checks {
		assert.ErrorIs(t, c.call(), ErrUnauthorized, c.name)
	}

	// State untouched by the failed attempts.
	assert.Equal(t, 3, s.MemberCount())
	assert.Equal(t, aliceConn, s.HostID())
	snap := s.Snapshot()
	require.Len(t, snap.Queue, 1)
	assert.False(t, snap.Queue[0].Played)
}

func TestAddVideoByNonMember(t *testing.T) {
	s := newTestSession(t)

	_, err := s.AddVideo(domain.ConnID("conn-stranger"), "https://youtu.be/abc12345678")
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestAddVideoBroadcastsQueue(t *testing.T) {
	s := newTestSession(t)

	notices, err := s.AddVideo(bobConn, "https://youtu.be/abc12345678")
	require.NoError(t, err)

	updated, ok := findEvent(notices, EventQueueUpdated)
	require.True(t, ok)
	entries := updated.Payload.([]VideoDTO)
	require.Len(t, entries, 1)
	assert.Equal(t, "Bob", entries[0].AddedBy)
	assert.Zero(t, entries[0].Likes)
}

func TestSkipVideoNotices(t *testing.T) {
	s := newTestSession(t)
	_, _ = s.AddVideo(aliceConn, "https://youtu.be/aaaaaaaaaaa")
	_, _ = s.AddVideo(aliceConn, "https://youtu.be/bbbbbbbbbbb")

	notices, err := s.SkipVideo(aliceConn)
	require.NoError(t, err)

	skipped, ok := findEvent(notices, EventVideoSkipped)
	require.True(t, ok)
	assert.Equal(t, "https://youtu.be/aaaaaaaaaaa", skipped.Payload.(VideoDTO).URL)
	assert.True(t, skipped.Payload.(VideoDTO).Played)

	updated, ok := findEvent(notices, EventQueueUpdated)
	require.True(t, ok)
	entries := updated.Payload.([]VideoDTO)
	assert.Equal(t, "https://youtu.be/bbbbbbbbbbb", entries[0].URL)
}

func TestSkipEmptyQueueIsSilent(t *testing.T) {
	s := newTestSession(t)

	notices, err := s.SkipVideo(aliceConn)
	assert.NoError(t, err)
	assert.Empty(t, notices)
}

func TestVoteScenario(t *testing.T) {
	s := newTestSession(t)
	_, _ = s.AddVideo(aliceConn, "https://youtu.be/abc12345678")

	notices, err := s.Vote(bobConn, queue.Like, false)
	require.NoError(t, err)
	updated, ok := findEvent(notices, EventQueueUpdated)
	require.True(t, ok)
	head := updated.Payload.([]VideoDTO)[0]
	assert.Equal(t, 1, head.Likes)
	assert.Equal(t, []string{"Bob"}, head.LikedByNames)

	// A repeated like changes nothing and emits nothing.
	notices, err = s.Vote(bobConn, queue.Like, false)
	require.NoError(t, err)
	assert.Empty(t, notices)

	// Flipping to a dislike withdraws the like.
	notices, err = s.Vote(bobConn, queue.Dislike, false)
	require.NoError(t, err)
	updated, ok = findEvent(notices, EventQueueUpdated)
	require.True(t, ok)
	head = updated.Payload.([]VideoDTO)[0]
	assert.Zero(t, head.Likes)
	assert.Equal(t, 1, head.Dislikes)
	assert.Empty(t, head.LikedByNames)
	assert.Equal(t, []string{"Bob"}, head.DislikedByNames)
}

func TestVoteEmptyQueueIsSilent(t *testing.T) {
	s := newTestSession(t)

	notices, err := s.Vote(bobConn, queue.Like, false)
	assert.NoError(t, err)
	assert.Empty(t, notices)
}

func TestMessageCarriesSenderName(t *testing.T) {
	s := newTestSession(t)

	notices, err := s.Message(bobConn, "hello there")
	require.NoError(t, err)

	msg, ok := findEvent(notices, EventReceiveMessage)
	require.True(t, ok)
	chat := msg.Payload.(ChatPayload)
	assert.Equal(t, "Bob", chat.User)
	assert.Equal(t, "hello there", chat.Message)
	assert.NotEmpty(t, chat.Timestamp)

	_, err = s.Message(domain.ConnID("conn-stranger"), "hi")
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestSnapshotCurrentVideoIsQueueHead(t *testing.T) {
	s := newTestSession(t)
	_, _ = s.AddVideo(aliceConn, "https://youtu.be/abc12345678")

	snap := s.Snapshot()
	require.NotNil(t, snap.CurrentVideo)
	assert.Equal(t, "https://youtu.be/abc12345678", snap.CurrentVideo.URL)
}
