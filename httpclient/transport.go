package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/oauthflow/go-oauthflow/oauth2client"
)

// BearerTransport is an http.RoundTripper that stamps outgoing requests with
// an Authorization Bearer header before delegating to a base transport.
//
// It operates in one of two modes:
//
//   - static: a fixed Token string is stamped on every request, no refresh
//     logic and no network calls of its own
//   - managed: the token is read from a shared oauth2client.State and
//     refreshed through the associated Client when its expiry has passed
type BearerTransport struct {
	// Base is the underlying HTTP transport. If nil, http.DefaultTransport is used.
	Base http.RoundTripper

	// Token is the fixed bearer token for static mode. Ignored when Client is set.
	Token string

	// Client and State enable managed mode. They are the pair returned by
	// oauth2client.Acquire and must be set together.
	Client *oauth2client.Client
	State  *oauth2client.State
}

// NewStaticTransport creates a transport that stamps every request with the
// given literal token. The base transport defaults to http.DefaultTransport
// if not specified.
func NewStaticTransport(token string, base http.RoundTripper) *BearerTransport {
	if base == nil {
		base = http.DefaultTransport
	}

	return &BearerTransport{
		Base:  base,
		Token: token,
	}
}

// NewManagedTransport creates a transport backed by an acquired client/state
// pair. Expired tokens are refreshed before the request goes out; refresh
// failures abort the request without reaching the base transport. The base
// transport defaults to http.DefaultTransport if not specified.
func NewManagedTransport(client *oauth2client.Client, state *oauth2client.State, base http.RoundTripper) *BearerTransport {
	if base == nil {
		base = http.DefaultTransport
	}

	return &BearerTransport{
		Base:   base,
		Client: client,
		State:  state,
	}
}

// RoundTrip implements the http.RoundTripper interface.
// It resolves a bearer token for the current mode, sets it as
// "Authorization: Bearer <token>" (overwriting any prior value) and delegates
// to the base transport, returning its response or error unchanged.
func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.token(req)
	if err != nil {
		return nil, err
	}

	// Clone the request to avoid modifying the original
	reqClone := req.Clone(req.Context())
	reqClone.Header.Set("Authorization", "Bearer "+token)

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	return base.RoundTrip(reqClone)
}

func (t *BearerTransport) token(req *http.Request) (string, error) {
	if t.Client == nil {
		if t.Token == "" {
			return "", errors.New("httpclient: no bearer token configured")
		}
		return t.Token, nil
	}

	if t.State == nil {
		return "", errors.New("httpclient: managed transport requires a state")
	}

	token, err := t.Client.Token(req.Context(), t.State)
	if err != nil {
		return "", fmt.Errorf("httpclient: failed to get token: %w", err)
	}

	return token, nil
}

// NewManagedClient acquires an authorization state and returns a ready-to-use
// HTTP client together with that state for persistence. It is the one-call
// composition of oauth2client.Acquire and NewManagedTransport; use Builder
// for more configuration options.
func NewManagedClient(ctx context.Context, baseURL, clientID, clientSecret, scopes string, opts ...oauth2client.Option) (*http.Client, *oauth2client.State, error) {
	client, state, err := oauth2client.Acquire(ctx, baseURL, clientID, clientSecret, scopes, opts...)
	if err != nil {
		return nil, nil, err
	}

	httpClient := &http.Client{
		Transport: NewManagedTransport(client, state, nil),
		Timeout:   30 * time.Second,
	}

	return httpClient, state, nil
}
