package testutil

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

// RoundTripFunc allows inlining http.RoundTripper implementations.
type RoundTripFunc func(*http.Request) (*http.Response, error)

// RoundTrip calls the underlying function.
func (f RoundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// MockAuthServer simulates an OAuth2 authorization server without real
// sockets. It serves the /oauth/v2/token endpoint for the client-credentials,
// authorization-code and refresh-token grants, records every request and the
// grant types seen, and is installed through a custom RoundTripper.
type MockAuthServer struct {
	URL        string
	Ctx        context.Context
	Requests   []*http.Request
	GrantTypes []string

	// Fields used to build the default token response. Tests may mutate them
	// between calls, e.g. to observe a rotated token after refresh.
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

// NewMockAuthServer builds a mock authorization server backed by an in-memory
// RoundTripper. If handler is nil, token requests are answered with a
// successful response built from the server's token fields.
func NewMockAuthServer(tb testing.TB, handler RoundTripFunc) *MockAuthServer {
	tb.Helper()

	server := &MockAuthServer{
		URL:         "https://mock-auth.example.com",
		AccessToken: "mock-access-token",
		ExpiresIn:   3600,
	}

	rt := RoundTripFunc(func(req *http.Request) (*http.Response, error) {
		server.Requests = append(server.Requests, req)

		if req.Method == http.MethodPost && req.URL.Path == "/oauth/v2/token" {
			if err := req.ParseForm(); err != nil {
				tb.Fatalf("failed to parse token request form: %v", err)
			}
			server.GrantTypes = append(server.GrantTypes, req.PostForm.Get("grant_type"))
		}

		if handler != nil {
			return handler(req)
		}

		return server.tokenResponse(req)
	})

	prevTransport := http.DefaultTransport
	prevClient := http.DefaultClient
	http.DefaultTransport = rt
	http.DefaultClient = &http.Client{Transport: rt}
	tb.Cleanup(func() {
		http.DefaultTransport = prevTransport
		http.DefaultClient = prevClient
	})

	server.Ctx = context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{
		Transport: rt,
	})

	return server
}

// Close is a no-op to mirror httptest.Server usage in tests.
func (m *MockAuthServer) Close() {}

// TokenCalls returns how many requests hit the token endpoint.
func (m *MockAuthServer) TokenCalls() int {
	return len(m.GrantTypes)
}

func (m *MockAuthServer) tokenResponse(req *http.Request) (*http.Response, error) {
	if req.URL.Path != "/oauth/v2/token" {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Header:     make(http.Header),
			Body:       io.NopCloser(strings.NewReader(`{"error":"not_found"}`)),
			Request:    req,
		}, nil
	}

	return StaticJSONResponse(TokenResponseJSON(m.AccessToken, m.RefreshToken, m.ExpiresIn))(req)
}

// TokenResponseJSON builds a successful token endpoint response body.
// refreshToken may be empty; expiresIn <= 0 omits the expiration.
func TokenResponseJSON(accessToken, refreshToken string, expiresIn int) string {
	var b strings.Builder
	b.WriteString(`{"access_token":"` + accessToken + `","token_type":"Bearer"`)
	if expiresIn > 0 {
		fmt.Fprintf(&b, `,"expires_in":%d`, expiresIn)
	}
	if refreshToken != "" {
		b.WriteString(`,"refresh_token":"` + refreshToken + `"`)
	}
	b.WriteString("}")
	return b.String()
}

// StaticJSONResponse returns a RoundTripper that always responds with the
// provided JSON body.
func StaticJSONResponse(body string) RoundTripFunc {
	return func(req *http.Request) (*http.Response, error) {
		header := make(http.Header)
		header.Set("Content-Type", "application/json")
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     header,
			Body:       io.NopCloser(strings.NewReader(body)),
			Request:    req,
		}, nil
	}
}

// ErrorJSONResponse returns a RoundTripper that always responds with the
// provided status code and OAuth2 error body.
func ErrorJSONResponse(statusCode int, errorCode string) RoundTripFunc {
	return func(req *http.Request) (*http.Response, error) {
		header := make(http.Header)
		header.Set("Content-Type", "application/json")
		return &http.Response{
			StatusCode: statusCode,
			Header:     header,
			Body:       io.NopCloser(strings.NewReader(`{"error":"` + errorCode + `"}`)),
			Request:    req,
		}, nil
	}
}

// WriteTestCACert writes a self-signed CA certificate to the provided path for TLS tests.
func WriteTestCACert(tb testing.TB, path string) {
	tb.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		tb.Fatalf("failed to generate CA key: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		Subject:               pkix.Name{CommonName: "test-ca"},
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &privateKey.PublicKey, privateKey)
	if err != nil {
		tb.Fatalf("failed to create CA certificate: %v", err)
	}

	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	if err := os.WriteFile(path, pemBytes, 0o600); err != nil {
		tb.Fatalf("failed to write CA certificate: %v", err)
	}
}
