// Package auth authorizes Reddit API requests.
//
// Two authenticators are provided: Anonymous, which talks to the public API
// host without credentials, and Password, which performs the OAuth 2.0
// password grant for script apps and attaches a bearer token.
package auth

import (
	"context"
	"errors"
	"net/http"
)

var (
	// ErrLoggedOut is returned when a request is authorized before Login.
	ErrLoggedOut = errors.New("client is logged out")
	// ErrNeedsRefresh is returned once the access token has expired.
	ErrNeedsRefresh = errors.New("token has expired")
	// ErrToken is wrapped around error payloads returned by the token endpoint.
	ErrToken = errors.New("token response error")
)

const (
	AnonymousBaseURL = "https://api.reddit.com/"
	OAuthBaseURL     = "https://oauth.reddit.com/"
	TokenURL         = "https://www.reddit.com/api/v1/access_token"
	RevokeURL        = "https://www.reddit.com/api/v1/revoke_token"
)

// HTTPClient is the subset of *http.Client used by authenticators.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Authenticator logs in against Reddit and decorates outgoing requests.
type Authenticator interface {
	Login(ctx context.Context, client HTTPClient) error
	Logout(ctx context.Context, client HTTPClient) error

	// AuthorizeRequest adds credentials to req. It fails with ErrLoggedOut
	// or ErrNeedsRefresh; it never refreshes on its own.
	AuthorizeRequest(req *http.Request) error

	// BaseURL is the API host requests must be sent to.
	BaseURL() string
}
