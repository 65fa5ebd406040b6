package auth

import (
	"context"
	"net/http"
)

// Anonymous sends unauthenticated requests to the public API host.
type Anonymous struct{}

// NewAnonymous creates an anonymous authenticator.
func NewAnonymous() *Anonymous {
	return &Anonymous{}
}

func (*Anonymous) Login(context.Context, HTTPClient) error {
	return nil
}

func (*Anonymous) Logout(context.Context, HTTPClient) error {
	return nil
}

func (*Anonymous) AuthorizeRequest(*http.Request) error {
	return nil
}

func (*Anonymous) BaseURL() string {
	return AnonymousBaseURL
}
