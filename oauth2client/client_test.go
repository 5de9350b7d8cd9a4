package oauth2client

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/oauthflow/go-oauthflow/internal/testutil"
)

type stubLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *stubLogger) Printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, format)
}

func (l *stubLogger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.messages)
}

// acquireWithState builds a client bound to the mock server without any
// network call by supplying the state up front.
func acquireWithState(t *testing.T, server *testutil.MockAuthServer, state *State, opts ...Option) *Client {
	t.Helper()

	opts = append(opts, WithState(state))
	client, _, err := Acquire(server.Ctx, server.URL, "client-id", "client-secret", "openid", opts...)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	return client
}

func TestClientToken_NoExpiry_NoRefresh(t *testing.T) {
	server := testutil.NewMockAuthServer(t, nil)
	defer server.Close()

	state := &State{AccessToken: "stale-but-valid"}
	client := acquireWithState(t, server, state)

	token, err := client.Token(server.Ctx, state)
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}

	if token != "stale-but-valid" {
		t.Errorf("token = %q, want %q", token, "stale-but-valid")
	}
	if got := server.TokenCalls(); got != 0 {
		t.Errorf("token endpoint calls = %d, want 0", got)
	}
}

func TestClientToken_FutureExpiry_NoRefresh(t *testing.T) {
	server := testutil.NewMockAuthServer(t, nil)
	defer server.Close()

	state := &State{
		AccessToken:  "current-token",
		RefreshToken: "refresh-token",
		Expiry:       time.Now().Add(time.Hour).UTC(),
	}
	client := acquireWithState(t, server, state)

	token, err := client.Token(server.Ctx, state)
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}

	if token != "current-token" {
		t.Errorf("token = %q, want %q", token, "current-token")
	}
	if got := server.TokenCalls(); got != 0 {
		t.Errorf("token endpoint calls = %d, want 0", got)
	}
}

func TestClientToken_Expired_Refreshes(t *testing.T) {
	server := testutil.NewMockAuthServer(t, nil)
	server.AccessToken = "refreshed-token"
	server.RefreshToken = "rotated-refresh"
	defer server.Close()

	logger := &stubLogger{}
	state := &State{
		AccessToken:  "expired-token",
		RefreshToken: "old-refresh",
		Expiry:       time.Now().Add(-time.Minute).UTC(),
	}
	client := acquireWithState(t, server, state, WithLogger(logger))

	token, err := client.Token(server.Ctx, state)
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}

	if token != "refreshed-token" {
		t.Errorf("token = %q, want %q", token, "refreshed-token")
	}
	if state.AccessToken != "refreshed-token" {
		t.Errorf("state.AccessToken = %q, want refreshed in place", state.AccessToken)
	}
	if state.RefreshToken != "rotated-refresh" {
		t.Errorf("state.RefreshToken = %q, want rotated token", state.RefreshToken)
	}
	if state.Expired(time.Now()) {
		t.Error("state should no longer be expired after refresh")
	}

	if got := server.TokenCalls(); got != 1 {
		t.Fatalf("token endpoint calls = %d, want 1", got)
	}
	if server.GrantTypes[0] != "refresh_token" {
		t.Errorf("grant type = %q, want refresh_token", server.GrantTypes[0])
	}
	if logger.count() == 0 {
		t.Error("expected a refresh log message")
	}
}

func TestClientToken_Expired_NoRefreshToken(t *testing.T) {
	server := testutil.NewMockAuthServer(t, nil)
	defer server.Close()

	state := &State{
		AccessToken: "expired-token",
		Expiry:      time.Now().Add(-time.Minute).UTC(),
	}
	client := acquireWithState(t, server, state)

	_, err := client.Token(server.Ctx, state)
	if !errors.Is(err, ErrNoRefreshToken) {
		t.Fatalf("error = %v, want ErrNoRefreshToken", err)
	}
	if got := server.TokenCalls(); got != 0 {
		t.Errorf("token endpoint calls = %d, want 0", got)
	}
}

func TestClientRefresh_ServerRejects(t *testing.T) {
	server := testutil.NewMockAuthServer(t, testutil.ErrorJSONResponse(401, "invalid_grant"))
	defer server.Close()

	state := &State{
		AccessToken:  "expired-token",
		RefreshToken: "revoked-refresh",
		Expiry:       time.Now().Add(-time.Minute).UTC(),
	}
	client := acquireWithState(t, server, state)

	err := client.Refresh(server.Ctx, state)
	if err == nil {
		t.Fatal("expected refresh failure")
	}
	if !strings.Contains(err.Error(), "token refresh failed") {
		t.Errorf("error = %q, want refresh failure", err)
	}

	// A failed refresh leaves the state as-is for the next attempt.
	if state.AccessToken != "expired-token" {
		t.Errorf("state.AccessToken = %q, want unchanged", state.AccessToken)
	}
	if state.RefreshToken != "revoked-refresh" {
		t.Errorf("state.RefreshToken = %q, want unchanged", state.RefreshToken)
	}
}

func TestClientToken_ConcurrentSingleRefresh(t *testing.T) {
	server := testutil.NewMockAuthServer(t, nil)
	server.AccessToken = "refreshed-token"
	defer server.Close()

	state := &State{
		AccessToken:  "expired-token",
		RefreshToken: "refresh-token",
		Expiry:       time.Now().Add(-time.Minute).UTC(),
	}
	client := acquireWithState(t, server, state)

	const goroutines = 10

	var wg sync.WaitGroup
	errs := make(chan error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := client.Token(server.Ctx, state)
			if err != nil {
				errs <- err
				return
			}
			if token != "refreshed-token" {
				errs <- errors.New("unexpected token " + token)
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}

	if got := server.TokenCalls(); got != 1 {
		t.Errorf("token endpoint calls = %d, want exactly 1 refresh", got)
	}
}

func TestClientToken_JWTExpiry(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "client-id",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("failed to sign test JWT: %v", err)
	}

	// Token response without expires_in: the expiry must come from the JWT.
	server := testutil.NewMockAuthServer(t, testutil.StaticJSONResponse(
		testutil.TokenResponseJSON(signed, "", 0)))
	defer server.Close()

	_, state, err := Acquire(server.Ctx, server.URL, "client-id", "client-secret", "openid",
		WithJWTExpiry())
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	if !state.Expiry.Equal(exp) {
		t.Errorf("Expiry = %v, want %v from the exp claim", state.Expiry, exp)
	}
}

func TestClientToken_NoJWTExpiryByDefault(t *testing.T) {
	server := testutil.NewMockAuthServer(t, testutil.StaticJSONResponse(
		testutil.TokenResponseJSON("opaque-token", "", 0)))
	defer server.Close()

	_, state, err := Acquire(server.Ctx, server.URL, "client-id", "client-secret", "openid")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	if !state.Expiry.IsZero() {
		t.Errorf("Expiry = %v, want zero for a response without expiration", state.Expiry)
	}
}

func TestUnaryClientInterceptor(t *testing.T) {
	server := testutil.NewMockAuthServer(t, nil)
	defer server.Close()

	state := &State{AccessToken: "interceptor-token"}
	client := acquireWithState(t, server, state)

	var gotAuthorization []string
	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		md, ok := metadata.FromOutgoingContext(ctx)
		if !ok {
			t.Fatal("expected outgoing metadata")
		}
		gotAuthorization = md.Get("authorization")
		return nil
	}

	interceptor := client.UnaryClientInterceptor(state)
	if err := interceptor(server.Ctx, "/svc/Method", nil, nil, nil, invoker); err != nil {
		t.Fatalf("interceptor failed: %v", err)
	}

	if len(gotAuthorization) != 1 || gotAuthorization[0] != "Bearer interceptor-token" {
		t.Errorf("authorization metadata = %v, want [Bearer interceptor-token]", gotAuthorization)
	}
}

func TestUnaryClientInterceptor_TokenFailureAbortsRPC(t *testing.T) {
	server := testutil.NewMockAuthServer(t, nil)
	defer server.Close()

	state := &State{
		AccessToken: "expired-token",
		Expiry:      time.Now().Add(-time.Minute).UTC(),
	}
	client := acquireWithState(t, server, state)

	invoked := false
	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		invoked = true
		return nil
	}

	interceptor := client.UnaryClientInterceptor(state)
	err := interceptor(server.Ctx, "/svc/Method", nil, nil, nil, invoker)
	if !errors.Is(err, ErrNoRefreshToken) {
		t.Fatalf("error = %v, want ErrNoRefreshToken", err)
	}
	if invoked {
		t.Error("invoker should not run when the token cannot be obtained")
	}
}

func TestStreamClientInterceptor(t *testing.T) {
	server := testutil.NewMockAuthServer(t, nil)
	defer server.Close()

	state := &State{AccessToken: "stream-token"}
	client := acquireWithState(t, server, state)

	var gotAuthorization []string
	streamer := func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		md, ok := metadata.FromOutgoingContext(ctx)
		if !ok {
			t.Fatal("expected outgoing metadata")
		}
		gotAuthorization = md.Get("authorization")
		return nil, nil
	}

	interceptor := client.StreamClientInterceptor(state)
	if _, err := interceptor(server.Ctx, &grpc.StreamDesc{}, nil, "/svc/Stream", streamer); err != nil {
		t.Fatalf("interceptor failed: %v", err)
	}

	if len(gotAuthorization) != 1 || gotAuthorization[0] != "Bearer stream-token" {
		t.Errorf("authorization metadata = %v, want [Bearer stream-token]", gotAuthorization)
	}
}

func TestKindString(t *testing.T) {
	if got := KindClientCredentials.String(); got != "client_credentials" {
		t.Errorf("KindClientCredentials = %q", got)
	}
	if got := KindAuthorizationCode.String(); got != "authorization_code" {
		t.Errorf("KindAuthorizationCode = %q", got)
	}
}
