// Package domain contains entities without logic, just meta-data
package domain

import "errors"

const MaxDisplayNameLen = 36

var (
	ErrNameEmpty   = errors.New("display name empty")
	ErrNameTooLong = errors.New("display name too long")
)

// ConnID is the transport-assigned identifier of one live connection.
// It is not stable across reconnects.
type ConnID string

type Member struct {
	ConnID ConnID `json:"socketId"`
	Name   string `json:"name"`
	IsHost bool   `json:"isHost"`
}

// NewMember is a tiny helper to avoid ad-hoc struct literals in the session.
func NewMember(cid ConnID, name string) (*Member, error) {
	if len(name) == 0 {
		return nil, ErrNameEmpty
	}
	if len(name) > MaxDisplayNameLen {
		return nil, ErrNameTooLong
	}
	return &Member{ConnID: cid, Name: name}, nil
}
