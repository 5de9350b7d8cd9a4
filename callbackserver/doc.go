// Package callbackserver implements oauth2client.CodeProvider with a local
// loopback HTTP server.
//
// The provider binds the address named by the redirect URL, presents the
// consent URL to the user (by default printing it to stderr; WithOpener can
// launch a browser instead), and blocks until the authorization server
// redirects the user's browser back with the authorization code. The full
// redirected URL is returned to oauth2client.Acquire for the code exchange.
//
// # Quick Start
//
//	provider := callbackserver.New(
//	    callbackserver.WithOpener(browser.OpenURL),
//	)
//
//	client, state, err := oauth2client.Acquire(
//	    ctx,
//	    "https://auth.example.com",
//	    "client-id",
//	    "client-secret",
//	    "openid profile",
//	    oauth2client.WithUserToken("http://127.0.0.1:8910/callback", provider),
//	)
//
// The wait honors context cancellation, so callers can bound the interactive
// login with context.WithTimeout.
package callbackserver
