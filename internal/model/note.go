package model

import "time"

// Note is a short piece of text owned by exactly one user. Notes are only
// ever visible to their owner; there is no sharing or permission model
// beyond that.
type Note struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
