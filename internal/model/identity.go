package model

import "time"

// Provider names for external identity links.
const (
	ProviderFacebook = "facebook"
	ProviderGoogle   = "google"
)

// IdentityLink is a durable mapping from a third-party login to a local
// user. The (Provider, ExternalID) pair is unique — one external account
// maps to exactly one local user — and a link is created at most once, on
// the first successful external login. Links are never updated.
type IdentityLink struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Provider   string    `json:"provider"`
	ExternalID string    `json:"externalId"`
	CreatedAt  time.Time `json:"createdAt"`
}
