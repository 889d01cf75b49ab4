package domain

import "regexp"

type LobbyID string

// Video is one queue entry. LikedBy and DislikedBy are keyed by connection,
// a connection holds at most one stance.
type Video struct {
	URL        string
	AddedBy    string
	Likes      int
	Dislikes   int
	LikedBy    map[ConnID]struct{}
	DislikedBy map[ConnID]struct{}
	Played     bool
}

func NewVideo(url, addedBy string) *Video {
	return &Video{
		URL:        url,
		AddedBy:    addedBy,
		LikedBy:    make(map[ConnID]struct{}),
		DislikedBy: make(map[ConnID]struct{}),
	}
}

// Host-portion shape check only, reachability is the player's problem.
var videoURLPattern = regexp.MustCompile(`^(https?://)?(www\.)?(youtube\.com|youtu\.?be)/.+`)

func ValidVideoURL(url string) bool {
	return videoURLPattern.MatchString(url)
}
