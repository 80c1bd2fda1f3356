package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/florianilch/claudine-bridge/internal/claudeadapter/openaichat"
	"github.com/florianilch/claudine-bridge/internal/observability"
	"github.com/florianilch/claudine-bridge/internal/observability/middleware"
)

// DefaultMaxRequestBytes bounds inbound request bodies when no limit is configured.
const DefaultMaxRequestBytes int64 = 32 << 20

// ReadinessChecker reports whether the application can serve traffic.
type ReadinessChecker interface {
	IsReady() bool
}

// Proxy serves the Claude Messages API on top of an OpenAI-compatible upstream.
type Proxy struct {
	handler http.Handler
	server  *http.Server
}

// Compile-time check to ensure Proxy implements http.Handler
var _ http.Handler = (*Proxy)(nil)

type options struct {
	transport       http.RoundTripper
	fallback        oauth2.TokenSource
	metrics         *observability.Metrics
	maxRequestBytes int64
	models          ModelMap
}

// Option configures a Proxy.
type Option func(*options)

// WithTransport sets the base transport for upstream calls. Defaults to
// http.DefaultTransport.
func WithTransport(transport http.RoundTripper) Option {
	return func(o *options) {
		o.transport = transport
	}
}

// WithFallbackTokenSource sets the source of the upstream key used when a request
// carries no credential of its own.
func WithFallbackTokenSource(ts oauth2.TokenSource) Option {
	return func(o *options) {
		o.fallback = ts
	}
}

// WithMetrics enables request metrics and the /metrics endpoint.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}

// WithRequestSizeLimit bounds inbound request bodies to maxBytes.
func WithRequestSizeLimit(maxBytes int64) Option {
	return func(o *options) {
		o.maxRequestBytes = maxBytes
	}
}

// WithModels sets the model alias map and the default upstream model.
func WithModels(models ModelMap) Option {
	return func(o *options) {
		o.models = models
	}
}

// New creates a Proxy forwarding to the chat completions API under baseURL.
func New(baseURL string, health ReadinessChecker, opts ...Option) (*Proxy, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid upstream base URL %q: scheme must be http or https", baseURL)
	}
	if health == nil {
		return nil, errors.New("readiness checker cannot be nil")
	}

	o := options{
		transport:       http.DefaultTransport,
		maxRequestBytes: DefaultMaxRequestBytes,
	}
	for _, opt := range opts {
		opt(&o)
	}

	adapter := &openaichat.CreateMessageAdapter{
		BaseURL:      baseURL,
		ResolveModel: o.models.Resolve,
		Observer:     o.metrics,
	}

	mux := http.NewServeMux()
	mux.Handle("POST /v1/messages", NewCreateMessageHandler(adapter, o.transport, o.fallback, o.metrics))
	mux.Handle("GET /v1/models", modelsHandler(o.models))
	mux.Handle("GET /health/liveness", livenessHandler())
	mux.Handle("GET /health/readiness", readinessHandler(health))
	if o.metrics != nil {
		mux.Handle("GET /metrics", o.metrics.Handler())
	}

	handler := applyMiddlewares(mux,
		middleware.RequestIDGeneration,
		middleware.TraceContextExtraction,
		middleware.Logging(slog.Default()),
		middleware.RequestIDPropagation,
		CORS,
		Recovery,
		RequestSizeLimit(o.maxRequestBytes),
	)

	return &Proxy{handler: handler}, nil
}

// ServeHTTP implements http.Handler.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.handler.ServeHTTP(w, r)
}

// Start listens on addr and serves in the background. Listen errors are returned
// directly; serve errors are delivered on the returned channel, which is closed
// once serving stops. Request contexts derive from ctx.
func (p *Proxy) Start(ctx context.Context, addr string) (<-chan error, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	p.server = &http.Server{
		Handler:           p,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := p.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	slog.InfoContext(ctx, "proxy listening", "addr", ln.Addr().String())
	return errCh, nil
}

// Shutdown gracefully stops the server started by Start.
func (p *Proxy) Shutdown(ctx context.Context) error {
	if p.server == nil {
		return nil
	}
	if err := p.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("proxy shutdown: %w", err)
	}
	return nil
}
