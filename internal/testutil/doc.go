// Package testutil provides test helpers for go-oauthflow packages.
//
// It includes utilities to mock an OAuth2 authorization server without real
// sockets and to generate self-signed certificates for TLS tests.
//
// # Utilities
//
//   - MockAuthServer: stub the token endpoint for all three grant types and
//     capture requests
//   - RoundTripFunc and StaticJSONResponse: inline http.RoundTripper stubs
//   - WriteTestCACert: generate a temporary CA certificate for TLS tests
//
// These helpers are designed for tests and may mutate
// http.DefaultClient/Transport; they restore previous values via tb.Cleanup.
package testutil
