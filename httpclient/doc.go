// Package httpclient stamps outgoing HTTP requests with OAuth2 Bearer tokens.
//
// BearerTransport is the request-pipeline stage: it wraps any
// http.RoundTripper and sets the Authorization header before each request. In
// static mode it uses a fixed token; in managed mode it reads the shared
// oauth2client.State, refreshing through the paired Client when the token has
// expired. A fluent Builder creates configured http.Clients with TLS (custom
// CA, mTLS, insecure for tests), timeouts, base transports and redirect
// handling.
//
// # Features
//
//   - Static and managed bearer modes over any base transport
//   - Transparent lazy refresh of expired tokens in managed mode
//   - Fluent builder for http.Client with TLS 1.2+ by default
//   - NewManagedClient: acquire-and-wrap in one call
//
// # Quick Start
//
//	client, state, err := httpclient.NewManagedClient(
//	    ctx,
//	    "https://auth.example.com",
//	    "client-id",
//	    "client-secret",
//	    "openid profile",
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	resp, err := client.Get("https://api.example.com/data")
//
// # Manual Transport Wrapping
//
//	transport := httpclient.NewManagedTransport(client, state, nil)
//	apiClient := &http.Client{Transport: transport}
//
//	// Or with a fixed token and no refresh logic:
//	apiClient = &http.Client{Transport: httpclient.NewStaticTransport("token", nil)}
//
// All components are safe for concurrent use; concurrent requests sharing a
// State trigger at most one refresh.
package httpclient
