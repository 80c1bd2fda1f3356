package proxy

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// mockUpstreamTransport returns pre-recorded responses without network calls.
type mockUpstreamTransport struct {
	responseBody   string
	responseStatus int
	isStreaming    bool
}

func (m *mockUpstreamTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	contentType := "application/json"
	if m.isStreaming {
		contentType = "text/event-stream"
	}

	return &http.Response{
		StatusCode: m.responseStatus,
		Body:       io.NopCloser(strings.NewReader(m.responseBody)),
		Header:     http.Header{"Content-Type": []string{contentType}},
		Request:    req,
	}, nil
}

// mockReadinessChecker always reports ready status.
type mockReadinessChecker struct{}

func (mockReadinessChecker) IsReady() bool {
	return true
}

// benchScenario pairs a Claude request with the upstream body that answers it.
type benchScenario struct {
	name     string
	request  string
	upstream string
}

const toolRequest = `{"model":"claude-sonnet-4","max_tokens":1024,"stream":%s,
	"system":[{"type":"text","text":"You are a weather assistant."}],
	"tools":[{"name":"get_weather","description":"Current weather","input_schema":{"type":"object","properties":{"city":{"type":"string"}},"required":["city"]}}],
	"messages":[
		{"role":"user","content":"Weather in Paris and Berlin?"},
		{"role":"assistant","content":[{"type":"text","text":"Checking."},{"type":"tool_use","id":"toolu_1","name":"get_weather","input":{"city":"Paris"}}]},
		{"role":"user","content":[{"type":"tool_result","tool_use_id":"toolu_1","content":"18C, sunny"},{"type":"text","text":"And Berlin?"}]}
	]}`

func streamingScenarios() []benchScenario {
	var text strings.Builder
	for _, word := range strings.Fields("The quick brown fox jumps over the lazy dog and keeps running through the field until sunset") {
		text.WriteString(`data: {"id":"c1","choices":[{"index":0,"delta":{"content":"` + word + ` "}}]}` + "\n\n")
	}
	text.WriteString(`data: {"id":"c1","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}` + "\n\n")
	text.WriteString("data: [DONE]\n\n")

	tool := `data: {"id":"c2","choices":[{"index":0,"delta":{"role":"assistant","content":"Looking that up."}}]}` + "\n\n" +
		`data: {"id":"c2","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"get_weather","arguments":""}}]}}]}` + "\n\n" +
		`data: {"id":"c2","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"city\":"}}]}}]}` + "\n\n" +
		`data: {"id":"c2","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"Berlin\"}"}}]}}]}` + "\n\n" +
		`data: {"id":"c2","choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}` + "\n\n" +
		"data: [DONE]\n\n"

	return []benchScenario{
		{
			name:     "text",
			request:  `{"model":"claude-sonnet-4","stream":true,"messages":[{"role":"user","content":"Tell me a story"}]}`,
			upstream: text.String(),
		},
		{
			name:     "tool_use",
			request:  strings.Replace(toolRequest, "%s", "true", 1),
			upstream: tool,
		},
	}
}

func bufferedScenarios() []benchScenario {
	return []benchScenario{
		{
			name:    "text",
			request: `{"model":"claude-sonnet-4","messages":[{"role":"user","content":"Tell me a story"}]}`,
			upstream: `{"id":"c1","choices":[{"index":0,"message":{"role":"assistant","content":"Once upon a time."},"finish_reason":"stop"}],
				"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`,
		},
		{
			name:    "tool_use",
			request: strings.Replace(toolRequest, "%s", "false", 1),
			upstream: `{"id":"c2","choices":[{"index":0,"message":{"role":"assistant","content":"Looking that up.",
				"tool_calls":[{"id":"call_1","type":"function","function":{"name":"get_weather","arguments":"{\"city\":\"Berlin\"}"}}]},
				"finish_reason":"tool_calls"}]}`,
		},
	}
}

// setupProxyWithMockTransport creates a Proxy with full middleware stack but mocked upstream.
// Suppresses logging to isolate benchmark measurements from I/O overhead.
func setupProxyWithMockTransport(b *testing.B, transport http.RoundTripper) *httptest.Server {
	b.Helper()

	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))

	proxy, err := New("https://upstream.invalid/v1", mockReadinessChecker{}, WithTransport(transport))
	if err != nil {
		b.Fatalf("Failed to create proxy: %v", err)
	}

	server := httptest.NewServer(proxy)
	b.Cleanup(server.Close)
	return server
}

func postBench(b *testing.B, url, body string) *http.Response {
	req, err := http.NewRequest(http.MethodPost, url+"/v1/messages", strings.NewReader(body))
	if err != nil {
		b.Fatalf("Failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer test-token")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		b.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		b.Fatalf("Unexpected status code: %d", resp.StatusCode)
	}
	return resp
}

// BenchmarkProxyStreaming measures end-to-end streaming latency through the
// translation layer. Includes routing, middleware, handler, adapter, and SSE encoding.
// Excludes network latency (mocked transport).
func BenchmarkProxyStreaming(b *testing.B) {
	for _, s := range streamingScenarios() {
		b.Run(s.name, func(b *testing.B) {
			server := setupProxyWithMockTransport(b, &mockUpstreamTransport{
				responseBody:   s.upstream,
				responseStatus: http.StatusOK,
				isStreaming:    true,
			})

			b.ReportAllocs()
			b.ResetTimer()

			for b.Loop() {
				resp := postBench(b, server.URL, s.request)
				if _, err := io.Copy(io.Discard, resp.Body); err != nil {
					b.Fatalf("Stream read error: %v", err)
				}
				_ = resp.Body.Close()
			}
		})
	}
}

// BenchmarkProxyNonStreaming measures end-to-end buffered response latency.
// Provides baseline comparison against streaming benchmarks to isolate SSE overhead.
func BenchmarkProxyNonStreaming(b *testing.B) {
	for _, s := range bufferedScenarios() {
		b.Run(s.name, func(b *testing.B) {
			server := setupProxyWithMockTransport(b, &mockUpstreamTransport{
				responseBody:   s.upstream,
				responseStatus: http.StatusOK,
			})

			b.ReportAllocs()
			b.ResetTimer()

			for b.Loop() {
				resp := postBench(b, server.URL, s.request)
				if _, err := io.Copy(io.Discard, resp.Body); err != nil {
					b.Fatalf("Failed to read response: %v", err)
				}
				_ = resp.Body.Close()
			}
		})
	}
}

// BenchmarkProxyStreaming_TTFB measures Time-To-First-Byte for streaming responses.
func BenchmarkProxyStreaming_TTFB(b *testing.B) {
	s := streamingScenarios()[0]
	server := setupProxyWithMockTransport(b, &mockUpstreamTransport{
		responseBody:   s.upstream,
		responseStatus: http.StatusOK,
		isStreaming:    true,
	})

	b.ReportAllocs()
	b.ResetTimer()

	var totalTTFB time.Duration
	var iterations int
	buf := make([]byte, 1)

	for b.Loop() {
		start := time.Now()
		resp := postBench(b, server.URL, s.request)

		// Read first byte to measure TTFB
		if _, err := resp.Body.Read(buf); err != nil {
			b.Fatalf("Failed to read first byte: %v", err)
		}
		totalTTFB += time.Since(start)
		iterations++

		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}

	avgTTFB := totalTTFB / time.Duration(iterations)
	b.ReportMetric(float64(avgTTFB.Microseconds()), "µs/ttfb")
}

// BenchmarkProxyConcurrentThroughput_Streaming measures concurrent streaming throughput.
func BenchmarkProxyConcurrentThroughput_Streaming(b *testing.B) {
	s := streamingScenarios()[1]
	server := setupProxyWithMockTransport(b, &mockUpstreamTransport{
		responseBody:   s.upstream,
		responseStatus: http.StatusOK,
		isStreaming:    true,
	})

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			resp := postBench(b, server.URL, s.request)
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}
	})
}
