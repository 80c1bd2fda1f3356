package claudeadapter

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrBadUpstream marks upstream failures that are not an upstream error response:
// an unreachable upstream, an undecodable body or a body that has no Claude equivalent.
var ErrBadUpstream = errors.New("bad upstream response")

// TranslationError reports a client request that cannot be expressed upstream,
// e.g. a missing messages array or an unknown content block type.
type TranslationError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *TranslationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("translate request: %s: %v", e.Reason, e.Err)
	}
	return "translate request: " + e.Reason
}

// Unwrap returns the underlying cause, if any.
func (e *TranslationError) Unwrap() error {
	return e.Err
}

// UpstreamError carries a non-success upstream response. The transport layer
// passes status, content type and body through untranslated.
type UpstreamError struct {
	StatusCode  int
	ContentType string
	Body        []byte

	// Message is extracted from the body for logging only.
	Message string
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upstream returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}
