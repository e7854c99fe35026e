package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func TestEndpoint(t *testing.T) {
	tests := []struct {
		base, context, want string
	}{
		{"https://grooves.example.com", "ctx-1", "https://grooves.example.com/api/tools/ctx-1"},
		{"https://grooves.example.com//", "ctx-1", "https://grooves.example.com/api/tools/ctx-1"},
		{"http://localhost:8080/base/", "team a", "http://localhost:8080/base/api/tools/team%20a"},
		{"https://grooves.example.com", "org/team", "https://grooves.example.com/api/tools/org%2Fteam"},
	}
	for _, tt := range tests {
		if got := Endpoint(tt.base, tt.context); got != tt.want {
			t.Errorf("Endpoint(%q, %q) = %q, want %q", tt.base, tt.context, got, tt.want)
		}
	}
}

func TestNewHTTPSenderValidatesEndpoint(t *testing.T) {
	if _, err := NewHTTPSender(HTTPSenderConfig{}); err == nil {
		t.Fatal("NewHTTPSender() error = nil, want empty endpoint error")
	}
	if _, err := NewHTTPSender(HTTPSenderConfig{Endpoint: "not a url"}); err == nil {
		t.Fatal("NewHTTPSender() error = nil, want invalid endpoint error")
	}
}

func TestHTTPSenderSend(t *testing.T) {
	sender, err := NewHTTPSender(HTTPSenderConfig{
		Endpoint:  "http://unit-test.local/api/tools/ctx",
		UserAgent: "groovesync/test",
		Client: &http.Client{
			Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
				if r.Method != http.MethodPut {
					t.Fatalf("method = %s, want PUT", r.Method)
				}
				if r.URL.String() != "http://unit-test.local/api/tools/ctx" {
					t.Fatalf("url = %s", r.URL)
				}
				if r.Header.Get("Content-Type") != "application/json" {
					t.Fatalf("Content-Type = %q", r.Header.Get("Content-Type"))
				}
				if r.Header.Get("User-Agent") != "groovesync/test" {
					t.Fatalf("User-Agent = %q", r.Header.Get("User-Agent"))
				}
				if r.Header.Get("X-Request-ID") == "" {
					t.Fatal("X-Request-ID header missing")
				}
				body, _ := io.ReadAll(r.Body)
				if string(body) != `{"toolName":"fade"}` {
					t.Fatalf("body = %s", body)
				}
				return &http.Response{
					StatusCode: http.StatusNotFound,
					Body:       io.NopCloser(strings.NewReader("no such tool")),
					Header:     make(http.Header),
				}, nil
			}),
		},
	})
	if err != nil {
		t.Fatalf("NewHTTPSender() error = %v", err)
	}

	reply, err := sender.Send(context.Background(), http.MethodPut, []byte(`{"toolName":"fade"}`))
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if reply.StatusCode != http.StatusNotFound || reply.Body != "no such tool" {
		t.Fatalf("reply = %+v", reply)
	}
}

func TestHTTPSenderTransportError(t *testing.T) {
	sender, err := NewHTTPSender(HTTPSenderConfig{
		Endpoint: "http://unit-test.local/api/tools/ctx",
		Client: &http.Client{
			Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
				return nil, errors.New("dial tcp: connection refused")
			}),
		},
	})
	if err != nil {
		t.Fatalf("NewHTTPSender() error = %v", err)
	}

	_, err = sender.Send(context.Background(), http.MethodPost, []byte(`{}`))
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("Send() error = %v, want connection refused", err)
	}
}

func TestReconcileAgainstServer(t *testing.T) {
	var (
		mu     sync.Mutex
		stored map[string]any
		calls  []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		if r.URL.Path != "/api/tools/ctx-42" {
			http.NotFound(w, r)
			return
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		switch r.Method {
		case http.MethodPut:
			if stored == nil {
				http.Error(w, "groove not found", http.StatusNotFound)
				return
			}
			stored = body
		case http.MethodPost:
			stored = body
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
	defer server.Close()

	sender, err := NewHTTPSender(HTTPSenderConfig{Endpoint: Endpoint(server.URL+"/", "ctx-42")})
	if err != nil {
		t.Fatalf("NewHTTPSender() error = %v", err)
	}
	reconciler := New(sender)

	first := reconciler.Reconcile(context.Background(), "fade.yaml", testRequest())
	second := reconciler.Reconcile(context.Background(), "fade.yaml", testRequest())

	if first.Result != ResultCreated {
		t.Fatalf("first outcome = %+v, want created", first)
	}
	if second.Result != ResultUpdated {
		t.Fatalf("second outcome = %+v, want updated", second)
	}
	want := []string{"PUT /api/tools/ctx-42", "POST /api/tools/ctx-42", "PUT /api/tools/ctx-42"}
	if strings.Join(calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	if stored["toolName"] != "fade" || stored["name"] != "Fade" {
		t.Fatalf("stored = %v", stored)
	}
}

type roundTripFunc func(r *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
