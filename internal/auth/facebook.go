package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/sakif/notes-api/internal/model"
)

// graphMeURL asks the Graph API for exactly the two fields we need.
const graphMeURL = "https://graph.facebook.com/v19.0/me?fields=id,email"

// FacebookProvider verifies a client-supplied Facebook user access token by
// calling the Graph API with it. No app secret is involved on this path:
// the token either resolves to a profile or Facebook rejects it.
type FacebookProvider struct{}

// NewFacebookProvider creates a FacebookProvider.
func NewFacebookProvider() *FacebookProvider {
	return &FacebookProvider{}
}

// Name returns the provider identifier used in identity links.
func (p *FacebookProvider) Name() string {
	return model.ProviderFacebook
}

// facebookUser is the portion of the Graph /me response we care about.
// The email field is absent when the user has not granted the email
// permission or has no confirmed email.
type facebookUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Exchange trades the access token for a verified Facebook profile.
//
// oauth2.NewClient with a StaticTokenSource gives us an *http.Client that
// attaches "Authorization: Bearer <token>" to every request — the same
// mechanism the authorization-code flow uses after its exchange step, just
// skipping straight to the part where the client already holds a token.
func (p *FacebookProvider) Exchange(ctx context.Context, externalToken string) (*ExternalProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, exchangeTimeout)
	defer cancel()

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: externalToken})
	client := oauth2.NewClient(ctx, src)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, graphMeURL, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building Graph API request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling Graph API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("auth: reading Graph API response: %w", err)
	}

	var fbUser facebookUser
	if err := json.Unmarshal(body, &fbUser); err != nil {
		return nil, fmt.Errorf("auth: decoding Graph API response: %w", err)
	}

	// Facebook reports token problems as a 200-or-400 JSON envelope with an
	// "error" object; surface its message so the client sees what the
	// provider objected to.
	if fbUser.Error != nil {
		return nil, fmt.Errorf("auth: facebook: %s", fbUser.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: Graph API returned status %d", resp.StatusCode)
	}
	if fbUser.ID == "" {
		return nil, fmt.Errorf("auth: facebook returned an empty user id")
	}

	return &ExternalProfile{
		ExternalID: fbUser.ID,
		Email:      fbUser.Email,
	}, nil
}
