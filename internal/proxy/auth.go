package proxy

import (
	"errors"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/florianilch/claudine-bridge/internal/observability/middleware"
)

// errNoCredential is returned when neither the request nor the fallback source
// provides an upstream key.
var errNoCredential = errors.New("no API key provided")

// upstreamTransport returns a transport that authenticates upstream calls with the
// caller's key: an Authorization bearer token first, then x-api-key, then the
// fallback token source. The inbound headers themselves are never forwarded.
func upstreamTransport(r *http.Request, base http.RoundTripper, fallback oauth2.TokenSource) (http.RoundTripper, error) {
	var source oauth2.TokenSource
	if key := requestKey(r); key != "" {
		source = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: key})
	} else if fallback != nil {
		source = fallback
	} else {
		return nil, errNoCredential
	}

	return &oauth2.Transport{Source: source, Base: correlatingTransport{base: base}}, nil
}

// correlatingTransport forwards the request ID and the caller's trace context to
// the upstream.
type correlatingTransport struct {
	base http.RoundTripper
}

func (t correlatingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	middleware.InjectTraceContext(req.Context(), req.Header)
	if id, ok := middleware.RequestIDFromContext(req.Context()); ok {
		req.Header.Set(middleware.RequestIDHeader, id)
	}
	return t.base.RoundTrip(req)
}

// requestKey extracts the client's key from the request headers.
func requestKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		scheme, token, ok := strings.Cut(auth, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			if token = strings.TrimSpace(token); token != "" {
				return token
			}
		}
	}
	return strings.TrimSpace(r.Header.Get("x-api-key"))
}
