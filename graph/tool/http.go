package tool

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HTTPTool is a vendor-neutral Tool that performs HTTP GET and POST
// requests and returns the status code, headers, and body. Timeouts are the
// caller's responsibility via the Call context.
//
// Input keys: "url" (required), "method" (defaults to GET), "headers"
// (optional map), "body" (optional string, POST only).
// Output keys: "status_code", "headers", "body".
type HTTPTool struct {
	client *http.Client
}

// NewHTTPTool returns an HTTPTool using a default client.
func NewHTTPTool() *HTTPTool {
	return &HTTPTool{client: &http.Client{}}
}

// Name implements Tool.
func (h *HTTPTool) Name() string {
	return "http_request"
}

// ToSchema implements Tool.
func (h *HTTPTool) ToSchema() Schema {
	return Schema{
		Name:        "http_request",
		Description: "Make an HTTP GET or POST request and return status, headers, and body.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"method":  map[string]interface{}{"type": "string", "description": "GET or POST"},
				"url":     map[string]interface{}{"type": "string", "description": "target URL"},
				"headers": map[string]interface{}{"type": "object", "description": "request headers"},
				"body":    map[string]interface{}{"type": "string", "description": "request body for POST"},
			},
			"required": []string{"url"},
		},
	}
}

// Call implements Tool.
func (h *HTTPTool) Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	urlStr, ok := input["url"].(string)
	if !ok || urlStr == "" {
		return nil, fmt.Errorf("url parameter required (string)")
	}

	method := "GET"
	if m, ok := input["method"].(string); ok && m != "" {
		method = strings.ToUpper(m)
	}
	if method != "GET" && method != "POST" {
		return nil, fmt.Errorf("unsupported HTTP method: %s (supported: GET, POST)", method)
	}

	var body io.Reader
	if bodyStr, ok := input["body"].(string); ok && bodyStr != "" && method == "POST" {
		body = bytes.NewBufferString(bodyStr)
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if headers, ok := input["headers"].(map[string]interface{}); ok {
		for key, value := range headers {
			if valueStr, ok := value.(string); ok {
				req.Header.Set(key, valueStr)
			}
		}
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	respHeaders := make(map[string]interface{})
	for key, values := range resp.Header {
		if len(values) == 1 {
			respHeaders[key] = values[0]
		} else {
			respHeaders[key] = values
		}
	}

	return map[string]interface{}{
		"status_code": resp.StatusCode,
		"headers":     respHeaders,
		"body":        string(respBody),
	}, nil
}
