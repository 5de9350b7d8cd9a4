package callbackserver

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/oauthflow/go-oauthflow/oauth2client"
)

const defaultSuccessPage = `<!DOCTYPE html>
<html>
<head><title>Login complete</title></head>
<body><p>Login complete. You may close this window.</p></body>
</html>
`

// Option is a functional option for New.
type Option func(*provider)

// WithOpener sets the function that presents the consent URL to the user,
// typically by launching a browser. The default opener prints the URL to
// stderr and asks the user to visit it.
func WithOpener(open func(url string) error) Option {
	return func(p *provider) {
		p.open = open
	}
}

// WithSuccessPage sets the HTML served to the user's browser after the
// redirect has been captured.
func WithSuccessPage(html string) Option {
	return func(p *provider) {
		p.successPage = html
	}
}

// WithLogger sets a custom logger for server lifecycle events.
// If not set, no logging will occur.
func WithLogger(logger oauth2client.Logger) Option {
	return func(p *provider) {
		p.logger = logger
	}
}

type provider struct {
	open        func(url string) error
	successPage string
	logger      oauth2client.Logger
}

// New returns a CodeProvider that completes the interactive login step with a
// local HTTP server: it listens on the address named by the redirect URL,
// hands the consent URL to the opener, waits for the authorization server to
// redirect the user's browser back, and returns the full redirected URL
// (including code and state parameters).
//
// The redirect URL must point at an address this process can bind, e.g.
// "http://127.0.0.1:8910/callback". The wait is aborted when ctx is done.
func New(opts ...Option) oauth2client.CodeProvider {
	p := &provider{
		open:        printConsentURL,
		successPage: defaultSuccessPage,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p.provide
}

func (p *provider) provide(ctx context.Context, authCodeURL, redirectURL string) (string, error) {
	target, err := url.Parse(redirectURL)
	if err != nil {
		return "", fmt.Errorf("callbackserver: invalid redirect URL: %w", err)
	}
	if target.Host == "" {
		return "", fmt.Errorf("callbackserver: redirect URL %q has no host to bind", redirectURL)
	}

	listener, err := net.Listen("tcp", target.Host)
	if err != nil {
		return "", fmt.Errorf("callbackserver: listen on %s: %w", target.Host, err)
	}

	redirected := make(chan string, 1)

	path := target.Path
	if path == "" {
		path = "/"
	}

	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, p.successPage)

		full := url.URL{
			Scheme:   target.Scheme,
			Host:     target.Host,
			Path:     r.URL.Path,
			RawQuery: r.URL.RawQuery,
		}

		select {
		case redirected <- full.String():
		default: // duplicate hit on the redirect URL, keep the first
		}
	})

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		// ErrServerClosed after Shutdown is the normal exit path.
		_ = server.Serve(listener)
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if p.logger != nil {
		p.logger.Printf("callbackserver: waiting for OAuth2 redirect on %s", target.Host)
	}

	if err := p.open(authCodeURL); err != nil {
		return "", fmt.Errorf("callbackserver: open consent URL: %w", err)
	}

	select {
	case result := <-redirected:
		return result, nil
	case <-ctx.Done():
		return "", fmt.Errorf("callbackserver: waiting for redirect: %w", ctx.Err())
	}
}

func printConsentURL(consentURL string) error {
	_, err := fmt.Fprintf(os.Stderr, "Visit the following URL to log in:\n\n  %s\n\n", consentURL)
	return err
}
