package connection

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestNewHTTPClient(t *testing.T) {
	tests := []struct {
		name   string
		server string
		want   string
	}{
		{"with http prefix", "http://localhost:7480", "http://localhost:7480"},
		{"with https prefix", "https://localhost:7480/", "https://localhost:7480"},
		{"without prefix", "localhost:7480", "http://localhost:7480"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewHTTPClient(tt.server, 0).BaseURL(); got != tt.want {
				t.Errorf("BaseURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHTTPClient_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %q, want GET", r.Method)
		}
		if r.URL.Path != "/tables/events/snapshot" || r.URL.Query().Get("version") != "3" {
			t.Errorf("url = %s, want /tables/events/snapshot?version=3", r.URL)
		}
		if !strings.HasPrefix(r.Header.Get("X-Request-ID"), "cli-") {
			t.Errorf("X-Request-ID = %q, want a cli- id", r.Header.Get("X-Request-ID"))
		}
		w.Write([]byte(`{"code":"OK","message":"Success","data":{"version":3}}`))
	}))
	defer server.Close()

	var out struct {
		Version int64 `json:"version"`
	}
	c := NewHTTPClient(server.URL, 0)
	if err := c.Get(context.Background(), "/tables/events/snapshot", url.Values{"version": {"3"}}, &out); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if out.Version != 3 {
		t.Errorf("Version = %d, want 3", out.Version)
	}
}

func TestHTTPClient_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
	}{
		{"envelope", http.StatusNotFound, `{"code":"DS-SYS-4044","message":"table not found","details":"orders","request_id":"r1"}`, "DS-SYS-4044"},
		{"plain text", http.StatusBadGateway, "bad gateway", "HTTP"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			err := NewHTTPClient(server.URL, 0).Post(context.Background(), "/tables/orders/verify", nil, nil)
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("Post() error = %v, want *APIError", err)
			}
			if apiErr.Code != tt.wantCode || apiErr.Status != tt.status {
				t.Errorf("APIError = %+v, want code %s status %d", apiErr, tt.wantCode, tt.status)
			}
		})
	}
}

func TestParseResponse_NoData(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.WriteString(`{"code":"OK","message":"Success"}`)
	var out map[string]any
	if err := ParseResponse(rec.Result(), &out); err != nil {
		t.Fatalf("ParseResponse() error = %v", err)
	}
	if out != nil {
		t.Errorf("out = %v, want untouched", out)
	}
}
