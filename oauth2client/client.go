package oauth2client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// Logger is an interface for optional logging.
// Implementations can log token acquisition and refresh events if desired.
type Logger interface {
	Printf(format string, args ...any)
}

// Kind identifies which OAuth2 flow a Client performs.
type Kind int

const (
	// KindClientCredentials obtains tokens using only client ID and secret.
	KindClientCredentials Kind = iota
	// KindAuthorizationCode obtains tokens through interactive user consent.
	KindAuthorizationCode
)

// String returns the OAuth2 grant type name of the kind.
func (k Kind) String() string {
	switch k {
	case KindClientCredentials:
		return "client_credentials"
	case KindAuthorizationCode:
		return "authorization_code"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ErrNoRefreshToken indicates an expired access token that cannot be
// refreshed because the state carries no refresh token.
var ErrNoRefreshToken = errors.New("oauth2client: access token expired and no refresh token is available")

// Client performs token exchanges and refreshes against one authorization
// server for one set of client credentials. It is produced by Acquire
// together with the State it manages.
//
// A Client is safe for concurrent use: the check-expiry/refresh/read sequence
// is guarded by a single mutex, so concurrent requests sharing a State
// trigger at most one refresh.
type Client struct {
	kind      Kind
	endpoints Endpoints

	cc   *clientcredentials.Config // client-credentials exchange
	conf *oauth2.Config            // code exchange and token refresh

	httpClient *http.Client
	jwtExpiry  bool
	logger     Logger

	mu sync.Mutex // guards State access through Token and Refresh
}

// Kind returns the flow variant of the client.
func (c *Client) Kind() Kind {
	return c.kind
}

// Endpoints returns the endpoints the client exchanges tokens against.
func (c *Client) Endpoints() Endpoints {
	return c.endpoints
}

// Token returns a usable access token from state, refreshing it first when
// the expiry is known and already past. The refresh policy is strictly lazy:
// no pre-expiry refresh, no retry on failure. A failed refresh leaves the
// state untouched for the next attempt.
//
// The provided context contributes values to the refresh exchange but not
// cancellation: a cancelled request must not abort a refresh halfway and
// leave the server-side session rotated while the local state is stale.
func (c *Client) Token(ctx context.Context, state *State) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if state.Expired(time.Now()) {
		if err := c.refreshLocked(ctx, state); err != nil {
			return "", err
		}
	}

	return state.AccessToken, nil
}

// Refresh performs a refresh-token exchange against the token endpoint and
// updates state in place. It fails when the state has no refresh token or
// when the server rejects the exchange; errors are surfaced, never retried.
func (c *Client) Refresh(ctx context.Context, state *State) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.refreshLocked(ctx, state)
}

func (c *Client) refreshLocked(ctx context.Context, state *State) error {
	if state.RefreshToken == "" {
		return ErrNoRefreshToken
	}

	// Detach from caller cancellation; values (deadlines excluded) survive.
	ctx = withHTTPClient(context.WithoutCancel(ctx), c.httpClient)

	seed := &oauth2.Token{RefreshToken: state.RefreshToken}
	tok, err := c.conf.TokenSource(ctx, seed).Token()
	if err != nil {
		return fmt.Errorf("oauth2client: token refresh failed: %w", err)
	}

	c.applyToken(state, tok)

	if c.logger != nil {
		c.logger.Printf("oauth2client: refreshed access token (expires: %s)", expiryString(state))
	}

	return nil
}

// exchangeClientCredentials performs the client-credentials grant and returns
// a fresh state.
func (c *Client) exchangeClientCredentials(ctx context.Context) (*State, error) {
	tok, err := c.cc.Token(withHTTPClient(ctx, c.httpClient))
	if err != nil {
		return nil, fmt.Errorf("oauth2client: client credentials exchange failed: %w", err)
	}

	state := &State{Scopes: c.cc.Scopes}
	c.applyToken(state, tok)

	if c.logger != nil {
		c.logger.Printf("oauth2client: obtained access token via client credentials (expires: %s)", expiryString(state))
	}

	return state, nil
}

// exchangeAuthorizationCode runs the interactive flow: build the consent URL,
// hand it to the provider, then swap the returned code for tokens.
func (c *Client) exchangeAuthorizationCode(ctx context.Context, provider CodeProvider) (*State, error) {
	nonce, err := randomStateParam()
	if err != nil {
		return nil, err
	}

	authCodeURL := c.conf.AuthCodeURL(nonce)

	// May block until the external login flow completes.
	redirected, err := provider(ctx, authCodeURL, c.conf.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("oauth2client: code provider failed: %w", err)
	}

	code, err := parseAuthorizationResponse(redirected, nonce)
	if err != nil {
		return nil, err
	}

	tok, err := c.conf.Exchange(withHTTPClient(ctx, c.httpClient), code)
	if err != nil {
		return nil, fmt.Errorf("oauth2client: authorization code exchange failed: %w", err)
	}

	state := &State{
		RedirectURL: c.conf.RedirectURL,
		Scopes:      c.conf.Scopes,
	}
	c.applyToken(state, tok)

	if c.logger != nil {
		c.logger.Printf("oauth2client: obtained user token via authorization code (expires: %s)", expiryString(state))
	}

	return state, nil
}

// applyToken writes tok into state, optionally deriving a missing expiry from
// the access token's JWT exp claim (see WithJWTExpiry).
func (c *Client) applyToken(state *State, tok *oauth2.Token) {
	state.apply(tok)

	if c.jwtExpiry && state.Expiry.IsZero() {
		if exp, ok := jwtExpiryClaim(state.AccessToken); ok {
			state.Expiry = exp
		}
	}
}

// UnaryClientInterceptor returns a gRPC unary client interceptor that stamps
// outgoing metadata with "authorization: Bearer <token>" read from state,
// refreshing through the client when the token has expired. If the token
// cannot be obtained, the RPC is aborted with an error.
func (c *Client) UnaryClientInterceptor(state *State) grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply interface{},
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		token, err := c.Token(ctx, state)
		if err != nil {
			return fmt.Errorf("oauth2client: failed to get token: %w", err)
		}

		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)

		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// StreamClientInterceptor returns a gRPC stream client interceptor that stamps
// outgoing metadata with "authorization: Bearer <token>" read from state.
// If the token cannot be obtained, stream creation is aborted with an error.
func (c *Client) StreamClientInterceptor(state *State) grpc.StreamClientInterceptor {
	return func(
		ctx context.Context,
		desc *grpc.StreamDesc,
		cc *grpc.ClientConn,
		method string,
		streamer grpc.Streamer,
		opts ...grpc.CallOption,
	) (grpc.ClientStream, error) {
		token, err := c.Token(ctx, state)
		if err != nil {
			return nil, fmt.Errorf("oauth2client: failed to get token: %w", err)
		}

		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)

		return streamer(ctx, desc, cc, method, opts...)
	}
}

// jwtExpiryClaim extracts the exp claim from a JWT access token. The
// signature is deliberately not verified: the claim only schedules the
// client's own refreshes, it is never trusted for authorization decisions.
func jwtExpiryClaim(accessToken string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}

	return exp.Time.UTC(), true
}

// withHTTPClient installs hc as the HTTP client for x/oauth2 exchanges.
func withHTTPClient(ctx context.Context, hc *http.Client) context.Context {
	if hc == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, hc)
}

func expiryString(state *State) string {
	if state.Expiry.IsZero() {
		return "never"
	}
	return state.Expiry.Format(time.RFC3339)
}
