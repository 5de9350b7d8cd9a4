// Package grpcclient provides a fluent builder for secure gRPC client
// connections with managed OAuth2 bearer authentication.
//
// It defaults to TLS 1.2+ using system roots to avoid accidental plaintext
// connections. Authentication can either reuse a client/state pair from
// oauth2client.Acquire (WithManagedAuth) or run the client-credentials flow
// at Build time (WithClientCredentials); in both cases unary and stream
// interceptors inject "authorization: Bearer <token>" metadata, refreshing
// expired tokens transparently.
//
// # Features
//
//   - Fluent builder for gRPC clients
//   - Bearer auth shared with HTTP clients through one oauth2client.State
//   - Secure-by-default TLS; optional custom CA and mTLS
//   - Additional dial options via WithDialOptions
//
// # Quick Start
//
//	builder := grpcclient.NewBuilder().
//	    WithAddress("server.example.com:9090").
//	    WithClientCredentials(
//	        "https://auth.example.com",
//	        "client-id",
//	        "client-secret",
//	        "openid profile",
//	    ).
//	    WithTLS("/path/to/ca.crt", "", "", "server.example.com")
//
//	conn, err := builder.Build(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conn.Close()
//
//	client := pb.NewYourServiceClient(conn)
//
//	// Persist builder.State() to skip the exchange on the next run.
//
// # TLS Behavior
//
// TLS is enabled by default with system CAs and TLS 1.2 minimum. WithTLS
// allows supplying a custom root CA and optional client cert/key for mTLS;
// both cert and key must be provided together.
package grpcclient
