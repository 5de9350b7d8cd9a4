package oauth2client

import (
	"time"

	"golang.org/x/oauth2"
)

// State is the authorization state of one logical session: the tokens, their
// expiry and the parameters they were granted for.
//
// A State is created by Acquire, mutated in place by token refreshes and owned
// by the caller for persistence: serialize it (see SaveState and LoadState),
// keep it across process runs and hand it back to Acquire via WithState to
// skip re-authorization. The same *State must be shared with every transport
// or interceptor built from the matching Client.
type State struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`

	// Expiry is the access token expiration in UTC. A zero Expiry means the
	// expiration is unknown and the access token is treated as always valid.
	Expiry time.Time `json:"expiry,omitempty"`

	// RedirectURL is the redirect the state was authorized for. Empty for
	// client-credentials states.
	RedirectURL string `json:"redirect_url,omitempty"`

	// Scopes are the scopes requested when the state was created.
	Scopes []string `json:"scopes,omitempty"`
}

// Expired reports whether the access token expiration is known and lies
// before now. States without a known expiry never expire.
func (s *State) Expired(now time.Time) bool {
	return !s.Expiry.IsZero() && s.Expiry.Before(now)
}

// apply copies a freshly exchanged or refreshed token into the state.
// The previous refresh token is kept when the server does not rotate it.
func (s *State) apply(tok *oauth2.Token) {
	s.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		s.RefreshToken = tok.RefreshToken
	}
	if tok.Expiry.IsZero() {
		s.Expiry = time.Time{}
	} else {
		s.Expiry = tok.Expiry.UTC()
	}
}
