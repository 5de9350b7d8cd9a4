// Package oauth2client acquires and maintains client-side OAuth2 authorization
// state for HTTP and gRPC clients.
//
// Acquire runs either the client-credentials flow or, with WithUserToken, the
// interactive authorization-code flow, and returns a Client/State pair. The
// State holds the tokens and is owned by the caller for persistence; the
// Client refreshes the State lazily when its expiry has passed. Both OAuth2
// endpoints are derived from a single base URL by appending the fixed
// /oauth/v2/authorize and /oauth/v2/token paths.
//
// # Features
//
//   - Client-credentials and authorization-code flows behind one entry point
//   - Persistable authorization state (SaveState, LoadState, WithState)
//   - Lazy, mutex-guarded refresh shared by all transports using one State
//   - gRPC unary and stream client interceptors that inject Bearer tokens
//   - Optional logging (WithLogger, WithLoggingEnabled)
//
// # Quick Start
//
//	client, state, err := oauth2client.Acquire(
//	    ctx,
//	    "https://auth.example.com",
//	    "client-id",
//	    "client-secret",
//	    "openid profile email",
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	httpClient := &http.Client{Transport: httpclient.NewManagedTransport(client, state, nil)}
//
//	// Persist the state and pass it back via WithState on the next run to
//	// skip re-authorization.
//	if err := oauth2client.SaveState("auth.json", state); err != nil {
//	    log.Fatal(err)
//	}
//
// # User Tokens
//
// The authorization-code flow needs an external capability that completes the
// interactive login and hands back the post-consent redirect URL:
//
//	provider := callbackserver.New()
//	client, state, err := oauth2client.Acquire(
//	    ctx, baseURL, clientID, clientSecret, "openid profile",
//	    oauth2client.WithUserToken("http://127.0.0.1:8910/callback", provider),
//	)
//
// # Notes
//
//   - Refresh is strictly lazy: it triggers only when the expiry is known and
//     already past. States without an expiry never refresh.
//   - Refresh failures are surfaced, never retried; the State stays unchanged
//     so the next call can try again.
//   - A Client is safe for concurrent use; concurrent requests sharing a
//     State trigger at most one refresh.
package oauth2client
