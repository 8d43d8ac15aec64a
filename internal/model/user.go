// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// Email is stored lowercased and trimmed; together with the UNIQUE
// constraint in the database that makes uniqueness case-insensitive.
//
// PasswordHash holds the bcrypt hash of the current password — never the
// plaintext. Users created through an external identity provider (Facebook,
// Google) have no password at all, so the hash is empty; an empty hash can
// never verify, which means those accounts can only log in through their
// provider.
//
// The `json:"-"` tag on PasswordHash keeps the hash out of every JSON
// response, no matter how carelessly a handler serialises a User.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
