// Package queue holds the vote-ordered video queue of one lobby.
// It is pure data manipulation, the session decides who may call what.
package queue

import (
	"errors"
	"sort"

	"github.com/akopelev/watchparty/internal/domain"
)

var (
	ErrInvalidURL     = errors.New("invalid video url")
	ErrDuplicateVideo = errors.New("video already in queue")
	ErrInvalidIndex   = errors.New("queue index out of range")
)

type Direction int

const (
	Like Direction = iota
	Dislike
)

// Queue is an ordered sequence of videos, unique by URL.
// Position 0 is the entry currently playing and the only vote target.
type Queue struct {
	entries []*domain.Video
}

func New() *Queue {
	return &Queue{}
}

func (q *Queue) Len() int { return len(q.entries) }

// Head returns the now-playing entry, nil when empty.
func (q *Queue) Head() *domain.Video {
	if len(q.entries) == 0 {
		return nil
	}
	return q.entries[0]
}

// Entries returns the entries in order. The slice is a copy, the videos are not.
func (q *Queue) Entries() []*domain.Video {
	out := make([]*domain.Video, len(q.entries))
	copy(out, q.entries)
	return out
}

// Add validates and appends a zero-vote entry at the tail.
func (q *Queue) Add(url, addedBy string) (*domain.Video, error) {
	if !domain.ValidVideoURL(url) {
		return nil, ErrInvalidURL
	}
	for _, v := range q.entries {
		if v.URL == url {
			return nil, ErrDuplicateVideo
		}
	}
	v := domain.NewVideo(url, addedBy)
	q.entries = append(q.entries, v)
	return v, nil
}

// RemoveAt removes and returns the entry at i.
func (q *Queue) RemoveAt(i int) (*domain.Video, error) {
	if i < 0 || i >= len(q.entries) {
		return nil, ErrInvalidIndex
	}
	v := q.entries[i]
	q.entries = append(q.entries[:i], q.entries[i+1:]...)
	return v, nil
}

// Skip rotates the head to the tail, marking it played. A played video is not
// deleted, it becomes eligible for replay once the rest of the queue cycles.
// Returns false on an empty queue.
func (q *Queue) Skip() (*domain.Video, bool) {
	if len(q.entries) == 0 {
		return nil, false
	}
	v := q.entries[0]
	v.Played = true
	q.entries = append(q.entries[1:], v)
	return v, true
}

// Vote applies or undoes a like/dislike by cid on the head entry. A connection
// holds at most one stance; applying one direction withdraws the other.
// Returns false when nothing changed, repeated identical calls are no-ops.
func (q *Queue) Vote(cid domain.ConnID, dir Direction, undo bool) (*domain.Video, bool) {
	v := q.Head()
	if v == nil {
		return nil, false
	}

	votes, opposite := v.LikedBy, v.DislikedBy
	if dir == Dislike {
		votes, opposite = v.DislikedBy, v.LikedBy
	}

	if undo {
		if _, ok := votes[cid]; !ok {
			return nil, false
		}
		delete(votes, cid)
		q.recount(v)
		return v, true
	}

	if _, ok := votes[cid]; ok {
		return nil, false
	}
	votes[cid] = struct{}{}
	delete(opposite, cid)
	q.recount(v)
	return v, true
}

func (q *Queue) recount(v *domain.Video) {
	v.Likes = len(v.LikedBy)
	v.Dislikes = len(v.DislikedBy)
}

// Reorder re-sorts everything behind the head: disliked entries trail as one
// tie class (stability keeps their insertion order), entries added by a still
// connected member come first among the rest, then more likes win. The sort
// must stay stable so undistinguished entries keep their prior position.
func (q *Queue) Reorder(activeNames map[string]bool) {
	if len(q.entries) < 3 {
		return
	}
	rest := q.entries[1:]
	sort.SliceStable(rest, func(i, j int) bool {
		a, b := rest[i], rest[j]
		aDisliked, bDisliked := a.Dislikes > 0, b.Dislikes > 0
		if aDisliked != bDisliked {
			return bDisliked
		}
		if aDisliked {
			return false
		}
		aActive, bActive := activeNames[a.AddedBy], activeNames[b.AddedBy]
		if aActive != bActive {
			return aActive
		}
		return a.Likes > b.Likes
	})
}
