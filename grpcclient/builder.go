package grpcclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	"github.com/oauthflow/go-oauthflow/oauth2client"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

// Builder provides a fluent interface for constructing gRPC client
// connections with managed bearer authentication and TLS/mTLS support.
type Builder struct {
	address string

	// Managed auth via a pre-acquired client/state pair
	client *oauth2client.Client
	state  *oauth2client.State

	// Managed auth acquired at Build time (client-credentials flow)
	acquireEnabled bool
	authBaseURL    string
	clientID       string
	clientSecret   string
	scopes         string
	acquireOpts    []oauth2client.Option

	// TLS configuration
	tlsEnabled    bool
	tlsCAFile     string
	tlsCertFile   string
	tlsKeyFile    string
	tlsServerName string

	// Additional dial options
	dialOpts []grpc.DialOption
}

// NewBuilder creates a new gRPC client builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithAddress sets the server address (e.g., "server.example.com:9090").
func (b *Builder) WithAddress(address string) *Builder {
	b.address = address
	return b
}

// WithManagedAuth enables bearer authentication backed by the client/state
// pair returned by oauth2client.Acquire. Use this to share one authorization
// state between HTTP and gRPC clients, or for user-token states.
func (b *Builder) WithManagedAuth(client *oauth2client.Client, state *oauth2client.State) *Builder {
	b.client = client
	b.state = state
	return b
}

// WithClientCredentials enables bearer authentication through a
// client-credentials acquisition performed during Build.
//
// Parameters:
//   - authBaseURL: Authorization server base URL (e.g., "https://auth.example.com")
//   - clientID: OAuth2 client identifier
//   - clientSecret: OAuth2 client secret
//   - scopes: Space-separated list of OAuth2 scopes (e.g., "openid profile email")
//   - opts: Additional acquisition options (e.g., oauth2client.WithState)
func (b *Builder) WithClientCredentials(authBaseURL, clientID, clientSecret, scopes string, opts ...oauth2client.Option) *Builder {
	b.acquireEnabled = true
	b.authBaseURL = authBaseURL
	b.clientID = clientID
	b.clientSecret = clientSecret
	b.scopes = scopes
	b.acquireOpts = opts
	return b
}

// WithTLS enables TLS for the connection.
//
// Parameters:
//   - caFile: Path to CA certificate for server verification (required)
//   - certFile: Path to client certificate for mTLS (optional, must be paired with keyFile)
//   - keyFile: Path to client private key for mTLS (optional, must be paired with certFile)
//   - serverName: Expected server name for TLS verification (optional, overrides SNI)
func (b *Builder) WithTLS(caFile, certFile, keyFile, serverName string) *Builder {
	b.tlsEnabled = true
	b.tlsCAFile = caFile
	b.tlsCertFile = certFile
	b.tlsKeyFile = keyFile
	b.tlsServerName = serverName
	return b
}

// WithDialOptions adds custom gRPC dial options.
// These options are applied after authentication and TLS options.
func (b *Builder) WithDialOptions(opts ...grpc.DialOption) *Builder {
	b.dialOpts = append(b.dialOpts, opts...)
	return b
}

// State returns the authorization state in use after Build, so callers using
// WithClientCredentials can persist it. Nil before Build.
func (b *Builder) State() *oauth2client.State {
	return b.state
}

// Build constructs the gRPC client connection with the configured options.
// When WithClientCredentials is used, the token exchange happens here and a
// failed exchange fails the build.
func (b *Builder) Build(ctx context.Context) (*grpc.ClientConn, error) {
	if b.address == "" {
		return nil, errors.New("grpcclient: server address is required")
	}

	if b.acquireEnabled {
		if err := b.validateAcquireConfig(); err != nil {
			return nil, err
		}

		client, state, err := oauth2client.Acquire(
			ctx,
			b.authBaseURL,
			b.clientID,
			b.clientSecret,
			b.scopes,
			b.acquireOpts...,
		)
		if err != nil {
			return nil, fmt.Errorf("grpcclient: authorization failed: %w", err)
		}

		b.client = client
		b.state = state
	}

	var opts []grpc.DialOption

	// Add bearer interceptors if auth is configured
	if b.client != nil {
		if b.state == nil {
			return nil, errors.New("grpcclient: managed auth requires a state")
		}

		opts = append(opts,
			grpc.WithUnaryInterceptor(b.client.UnaryClientInterceptor(b.state)),
			grpc.WithStreamInterceptor(b.client.StreamClientInterceptor(b.state)),
		)
	}

	// Add TLS credentials if enabled
	if b.tlsEnabled {
		tlsConfig, err := b.buildTLSConfig()
		if err != nil {
			return nil, fmt.Errorf("grpcclient: TLS config failed: %w", err)
		}
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(tlsConfig)))
	} else {
		// Default to TLS with system roots to avoid accidental plaintext connections.
		// Set MinVersion to TLS 1.2 for secure defaults.
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{
			MinVersion: tls.VersionTLS12,
		})))
	}

	// Add custom dial options
	opts = append(opts, b.dialOpts...)

	conn, err := grpc.NewClient(b.address, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpcclient: dial failed: %w", err)
	}

	return conn, nil
}

// validateAcquireConfig ensures the client-credentials configuration is complete.
func (b *Builder) validateAcquireConfig() error {
	if b.authBaseURL == "" {
		return errors.New("grpcclient: authorization base URL is required")
	}
	if b.clientID == "" {
		return errors.New("grpcclient: OAuth2 client ID is required")
	}
	if b.clientSecret == "" {
		return errors.New("grpcclient: OAuth2 client secret is required")
	}
	return nil
}

// buildTLSConfig constructs the TLS configuration for the gRPC connection.
func (b *Builder) buildTLSConfig() (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	// Load CA certificate for server verification
	if b.tlsCAFile != "" {
		caCert, err := os.ReadFile(b.tlsCAFile)
		if err != nil {
			return nil, fmt.Errorf("read CA file: %w", err)
		}

		certPool := x509.NewCertPool()
		if !certPool.AppendCertsFromPEM(caCert) {
			return nil, errors.New("failed to parse CA certificate")
		}
		tlsConfig.RootCAs = certPool
	}

	// Load client certificate for mTLS (if both cert and key are provided)
	if b.tlsCertFile != "" && b.tlsKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(b.tlsCertFile, b.tlsKeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	} else if b.tlsCertFile != "" || b.tlsKeyFile != "" {
		return nil, errors.New("both TLS cert and key files must be provided for mTLS")
	}

	// Set server name override if provided
	if b.tlsServerName != "" {
		tlsConfig.ServerName = b.tlsServerName
	}

	return tlsConfig, nil
}
