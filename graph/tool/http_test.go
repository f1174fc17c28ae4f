package tool

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPTool_GETDefaultsAndReturnsBody(t *testing.T) {
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	tool := NewHTTPTool()
	// No "method" key: GET is the default.
	out, err := tool.Call(context.Background(), map[string]interface{}{"url": srv.URL})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if gotMethod != http.MethodGet {
		t.Fatalf("server saw method %q, want GET", gotMethod)
	}
	if out["status_code"] != 200 {
		t.Fatalf("status_code = %v, want 200", out["status_code"])
	}
	body, _ := out["body"].(string)
	if !strings.Contains(body, `"ok":true`) {
		t.Fatalf("body = %q, want the JSON payload", body)
	}
	headers, _ := out["headers"].(map[string]interface{})
	if headers["Content-Type"] != "application/json" {
		t.Fatalf("headers = %v, want Content-Type passed through", headers)
	}
}

func TestHTTPTool_POSTSendsBodyAndHeaders(t *testing.T) {
	var gotBody, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	tool := NewHTTPTool()
	out, err := tool.Call(context.Background(), map[string]interface{}{
		"method": "post",
		"url":    srv.URL,
		"body":   `{"name":"alice"}`,
		"headers": map[string]interface{}{
			"Authorization": "Bearer token",
		},
	})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if out["status_code"] != http.StatusCreated {
		t.Fatalf("status_code = %v, want 201", out["status_code"])
	}
	if gotBody != `{"name":"alice"}` {
		t.Fatalf("server saw body %q", gotBody)
	}
	if gotAuth != "Bearer token" {
		t.Fatalf("server saw Authorization %q", gotAuth)
	}
}

func TestHTTPTool_ServerErrorIsStillAResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	out, err := NewHTTPTool().Call(context.Background(), map[string]interface{}{"url": srv.URL})
	if err != nil {
		t.Fatalf("Call: %v (HTTP-level failures are results, not errors)", err)
	}
	if out["status_code"] != http.StatusInternalServerError {
		t.Fatalf("status_code = %v, want 500", out["status_code"])
	}
}

func TestHTTPTool_InputValidation(t *testing.T) {
	tool := NewHTTPTool()
	ctx := context.Background()

	if _, err := tool.Call(ctx, map[string]interface{}{}); err == nil {
		t.Fatalf("expected an error for a missing url")
	}
	if _, err := tool.Call(ctx, map[string]interface{}{"url": "http://x", "method": "DELETE"}); err == nil {
		t.Fatalf("expected an error for an unsupported method")
	}
	if _, err := tool.Call(ctx, map[string]interface{}{"url": "://not-a-url"}); err == nil {
		t.Fatalf("expected an error for a malformed url")
	}
}

func TestHTTPTool_ContextTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := NewHTTPTool().Call(ctx, map[string]interface{}{"url": srv.URL}); err == nil {
		t.Fatalf("expected a timeout error")
	}
}
