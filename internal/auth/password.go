package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Credentials identify a Reddit script app and the account it acts as.
type Credentials struct {
	ClientID     string
	ClientSecret string // #nosec G117 - config field, not an embedded secret
	Username     string
	Password     string // #nosec G117 - config field, not an embedded secret
}

type tokenResponse struct {
	AccessToken string `json:"access_token"` // #nosec G117 - JSON field for OAuth token
	ExpiresIn   int64  `json:"expires_in"`
	Error       string `json:"error"`
}

// Password implements the OAuth 2.0 password grant. It is safe for
// concurrent use: pollers authorize requests while a caller logs in again.
type Password struct {
	creds     Credentials
	tokenURL  string
	revokeURL string
	now       func() time.Time

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

// PasswordOption configures a Password authenticator.
type PasswordOption func(*Password)

// WithTokenURL overrides the access token endpoint.
func WithTokenURL(u string) PasswordOption {
	return func(p *Password) { p.tokenURL = u }
}

// WithRevokeURL overrides the token revocation endpoint.
func WithRevokeURL(u string) PasswordOption {
	return func(p *Password) { p.revokeURL = u }
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) PasswordOption {
	return func(p *Password) { p.now = now }
}

// NewPassword creates a password-grant authenticator. Call Login before use.
func NewPassword(creds Credentials, opts ...PasswordOption) (*Password, error) {
	if strings.TrimSpace(creds.ClientID) == "" {
		return nil, errors.New("auth: client id is required")
	}
	if strings.TrimSpace(creds.Username) == "" {
		return nil, errors.New("auth: username is required")
	}
	p := &Password{
		creds:     creds,
		tokenURL:  TokenURL,
		revokeURL: RevokeURL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Password) Login(ctx context.Context, client HTTPClient) error {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", p.creds.Username)
	form.Set("password", p.creds.Password)

	resp, err := p.postForm(ctx, client, p.tokenURL, form)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("login: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login: status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return fmt.Errorf("login: parse response: %w", err)
	}
	if tr.Error != "" {
		return fmt.Errorf("login: %w: %s", ErrToken, tr.Error)
	}
	if tr.AccessToken == "" {
		return fmt.Errorf("login: %w: empty access token", ErrToken)
	}

	p.mu.Lock()
	p.token = tr.AccessToken
	p.expiresAt = p.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	p.mu.Unlock()
	return nil
}

func (p *Password) Logout(ctx context.Context, client HTTPClient) error {
	p.mu.RLock()
	token := p.token
	p.mu.RUnlock()
	if token == "" {
		return ErrLoggedOut
	}

	form := url.Values{}
	form.Set("token", token)
	form.Set("token_type_hint", "access_token")

	resp, err := p.postForm(ctx, client, p.revokeURL, form)
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("logout: status %d", resp.StatusCode)
	}

	p.mu.Lock()
	p.token = ""
	p.expiresAt = time.Time{}
	p.mu.Unlock()
	return nil
}

func (p *Password) AuthorizeRequest(req *http.Request) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.token == "" {
		return ErrLoggedOut
	}
	if !p.expiresAt.IsZero() && !p.now().Before(p.expiresAt) {
		return ErrNeedsRefresh
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	return nil
}

func (*Password) BaseURL() string {
	return OAuthBaseURL
}

func (p *Password) postForm(ctx context.Context, client HTTPClient, endpoint string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(p.creds.ClientID, p.creds.ClientSecret)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	return resp, nil
}

// String redacts secrets so the authenticator can be logged.
func (p *Password) String() string {
	p.mu.RLock()
	state := "not logged in"
	if p.token != "" {
		state = "[redacted]"
	}
	p.mu.RUnlock()
	return fmt.Sprintf("auth.Password{client_id: %s, username: %s, token: %s}", p.creds.ClientID, p.creds.Username, state)
}
