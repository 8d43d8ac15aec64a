package auth

import (
	"context"
	"time"
)

// ExternalProfile is the verified identity an external provider vouches
// for: a stable provider-assigned ID plus the account email. Email can be
// empty — some providers let users hide it — and the connect flow rejects
// that case explicitly.
type ExternalProfile struct {
	ExternalID string
	Email      string
}

// ExternalProvider exchanges an opaque client-supplied token for a verified
// profile. The token never grants us anything beyond reading the profile;
// we discard it immediately after the exchange.
type ExternalProvider interface {
	Name() string
	Exchange(ctx context.Context, externalToken string) (*ExternalProfile, error)
}

// exchangeTimeout bounds the one call this server makes to an uncontrolled
// external system. Without it a slow provider would pin request handlers
// for the transport default, which is far too generous.
const exchangeTimeout = 10 * time.Second
