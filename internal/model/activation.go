package model

import "time"

// Activation is a single-use, time-limited proof that someone controls the
// email they registered with.
//
// Code has the shape "<30-char-random-secret>_<expiry-epoch-seconds>".
// The expiry rides inside the code itself, so validity can be checked
// without a separate column. At most one activation is meant to be live per
// user at a time — creating a new one deletes any predecessor first.
//
// A user with a pending Activation is not yet allowed to log in; consuming
// the code deletes the record, which is what makes the account
// login-eligible.
type Activation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"createdAt"`
}
