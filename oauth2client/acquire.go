package oauth2client

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// CodeProvider completes the interactive part of the authorization-code flow.
//
// It receives the consent URL the user must visit and the redirect URL the
// authorization server will send the user back to, and returns the full URL
// of that redirect (including the code and state query parameters). The call
// may block until the external login flow completes; implementations should
// honor ctx cancellation while waiting.
type CodeProvider func(ctx context.Context, authCodeURL, redirectURL string) (redirectedURL string, err error)

// Option is a functional option for Acquire.
type Option func(*acquireOptions)

type acquireOptions struct {
	state        *State
	userToken    bool
	redirectURL  string
	codeProvider CodeProvider
	httpClient   *http.Client
	jwtExpiry    bool
	logger       Logger
}

// WithState supplies a previously persisted state. Acquire returns it
// unchanged without any network call; the caller is trusted to supply a
// still-valid or refreshable state.
func WithState(state *State) Option {
	return func(o *acquireOptions) {
		o.state = state
	}
}

// WithUserToken requests a user token through the authorization-code flow
// instead of a client-only token. redirectURL is where the authorization
// server sends the user after consent; provider performs or proxies the
// interactive login step. Both are required.
func WithUserToken(redirectURL string, provider CodeProvider) Option {
	return func(o *acquireOptions) {
		o.userToken = true
		o.redirectURL = redirectURL
		o.codeProvider = provider
	}
}

// WithHTTPClient sets the HTTP client used for token exchanges and refreshes.
// If not set, http.DefaultClient is used.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *acquireOptions) {
		o.httpClient = hc
	}
}

// WithJWTExpiry derives the access token expiry from the token's JWT exp
// claim when the token response itself carries no expiration. Without this
// option such tokens are treated as never expiring.
func WithJWTExpiry() Option {
	return func(o *acquireOptions) {
		o.jwtExpiry = true
	}
}

// WithLogger sets a custom logger for token acquisition and refresh events.
// If not set, no logging will occur.
func WithLogger(logger Logger) Option {
	return func(o *acquireOptions) {
		o.logger = logger
	}
}

// WithLoggingEnabled enables logging using the default Go log package.
// This is a convenience option that sets the logger to log.Default().
func WithLoggingEnabled() Option {
	return func(o *acquireOptions) {
		o.logger = log.Default()
	}
}

// Acquire produces a Client bound to the authorization server under baseURL
// and the State the client manages.
//
// The endpoints are derived from baseURL (see NewEndpoints). scopes is a
// space-separated list (e.g. "openid profile email"). By default Acquire
// performs a client-credentials exchange; WithUserToken switches to the
// authorization-code flow. WithState short-circuits either flow and returns
// the supplied state without touching the network.
//
// The caller owns the returned State and is responsible for persisting it
// for reuse across process restarts.
func Acquire(ctx context.Context, baseURL, clientID, clientSecret, scopes string, opts ...Option) (*Client, *State, error) {
	if baseURL == "" {
		return nil, nil, errors.New("oauth2client: authorization base URL is required")
	}

	o := &acquireOptions{}
	for _, opt := range opts {
		opt(o)
	}

	if o.userToken {
		if o.redirectURL == "" {
			return nil, nil, errors.New("oauth2client: redirect URL is required when a user token is requested")
		}
		if o.codeProvider == nil {
			return nil, nil, errors.New("oauth2client: code provider is required when a user token is requested")
		}
	}

	if ctx == nil {
		ctx = context.Background()
	}

	// Split scopes by whitespace to avoid sending a single concatenated scope.
	scopesList := strings.Fields(scopes)
	endpoints := NewEndpoints(baseURL)

	client := &Client{
		endpoints: endpoints,
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     endpoints.endpoint(),
			Scopes:       scopesList,
		},
		httpClient: o.httpClient,
		jwtExpiry:  o.jwtExpiry,
		logger:     o.logger,
	}

	if o.userToken {
		client.kind = KindAuthorizationCode
		client.conf.RedirectURL = o.redirectURL
	} else {
		client.kind = KindClientCredentials
		client.cc = &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     endpoints.TokenURL,
			Scopes:       scopesList,
		}
	}

	if o.state != nil {
		return client, o.state, nil
	}

	var (
		state *State
		err   error
	)
	if o.userToken {
		state, err = client.exchangeAuthorizationCode(ctx, o.codeProvider)
	} else {
		state, err = client.exchangeClientCredentials(ctx)
	}
	if err != nil {
		return nil, nil, err
	}

	return client, state, nil
}

// parseAuthorizationResponse extracts the authorization code from the URL the
// authorization server redirected to after consent.
func parseAuthorizationResponse(redirectedURL, wantState string) (string, error) {
	u, err := url.Parse(redirectedURL)
	if err != nil {
		return "", fmt.Errorf("oauth2client: invalid redirect URL: %w", err)
	}

	q := u.Query()

	if errCode := q.Get("error"); errCode != "" {
		return "", fmt.Errorf("oauth2client: authorization server returned error %q", errCode)
	}

	if got := q.Get("state"); got != wantState {
		return "", errors.New("oauth2client: authorization response state parameter mismatch")
	}

	code := q.Get("code")
	if code == "" {
		return "", errors.New("oauth2client: authorization response is missing the code parameter")
	}

	return code, nil
}

// randomStateParam generates the CSRF state parameter for the consent URL.
func randomStateParam() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("oauth2client: generate state parameter: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
