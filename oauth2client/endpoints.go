package oauth2client

import (
	"strings"

	"golang.org/x/oauth2"
)

// Relative endpoint paths appended to the authorization server base URL.
const (
	authorizePath = "/oauth/v2/authorize"
	tokenPath     = "/oauth/v2/token"
)

// Endpoints holds the absolute OAuth2 endpoint URLs derived from an
// authorization server base URL.
type Endpoints struct {
	// AuthURL is the authorization endpoint used for interactive consent.
	AuthURL string

	// TokenURL is the token endpoint used for code, refresh-token and
	// client-credentials exchanges.
	TokenURL string
}

// NewEndpoints derives the authorization and token endpoints from baseURL.
// A single trailing slash is trimmed before the fixed paths are appended, so
// "https://auth.example.com" and "https://auth.example.com/" yield identical
// endpoints.
func NewEndpoints(baseURL string) Endpoints {
	base := strings.TrimSuffix(baseURL, "/")
	return Endpoints{
		AuthURL:  base + authorizePath,
		TokenURL: base + tokenPath,
	}
}

// endpoint converts to the x/oauth2 representation.
func (e Endpoints) endpoint() oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:  e.AuthURL,
		TokenURL: e.TokenURL,
	}
}
