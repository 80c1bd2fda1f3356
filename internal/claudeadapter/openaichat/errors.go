package openaichat

import (
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/florianilch/claudine-bridge/internal/claudeadapter"
)

// maxUpstreamErrorBytes bounds how much of a failed upstream body is kept for passthrough.
const maxUpstreamErrorBytes = 1 << 20

// toUpstreamError captures a non-success upstream response for untranslated passthrough.
// The caller keeps ownership of resp.Body.
func toUpstreamError(resp *http.Response) *claudeadapter.UpstreamError {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamErrorBytes))
	if err != nil && len(body) == 0 {
		body = []byte(http.StatusText(resp.StatusCode))
	}

	return &claudeadapter.UpstreamError{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		Message:     upstreamErrorMessage(body),
	}
}

// upstreamErrorMessage extracts a human-readable message from an OpenAI-style error
// body ({"error":{"message":...}}) or a flat {"message":...} body. Non-JSON bodies yield
// an empty message.
func upstreamErrorMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	if msg := gjson.GetBytes(body, "error.message"); msg.Exists() {
		return msg.String()
	}
	if msg := gjson.GetBytes(body, "error"); msg.Type == gjson.String {
		return msg.String()
	}
	return gjson.GetBytes(body, "message").String()
}
