package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestJoinURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		path string
		want string
	}{
		{"no slashes at seam", "https://api.example.com", "status", "https://api.example.com/status"},
		{"leading slash on path", "https://api.example.com", "/status", "https://api.example.com/status"},
		{"trailing slash on base", "https://api.example.com/", "status", "https://api.example.com/status"},
		{"both slashes", "https://api.example.com/", "/status", "https://api.example.com/status"},
		{"nested path", "https://api.example.com/v1/", "/users/42", "https://api.example.com/v1/users/42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JoinURL(tt.base, tt.path); got != tt.want {
				t.Errorf("JoinURL(%q, %q) = %q, want %q", tt.base, tt.path, got, tt.want)
			}
		})
	}
}

func TestClient_DefaultHeaders(t *testing.T) {
	var gotContentType, gotAccept, gotAPIKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotAccept = r.Header.Get("Accept")
		gotAPIKey = r.Header.Get("X-API-Key")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, WithAPIKey("secret-key"))
	if _, err := client.Get(context.Background(), "/things"); err != nil {
		t.Fatalf("Get() error: %v", err)
	}

	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotContentType)
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept = %q, want application/json", gotAccept)
	}
	if gotAPIKey != "secret-key" {
		t.Errorf("X-API-Key = %q, want secret-key", gotAPIKey)
	}
}

func TestClient_CallerHeadersWin(t *testing.T) {
	var gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Post(context.Background(), "/upload", []byte("a,b,c"),
		WithHeader("Content-Type", "text/csv"))
	if err != nil {
		t.Fatalf("Post() error: %v", err)
	}

	if gotContentType != "text/csv" {
		t.Errorf("Content-Type = %q, caller header should override the default", gotContentType)
	}
}

func TestClient_EndpointTag(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	resp, err := client.Get(context.Background(), "/users")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Endpoint() != "get" {
		t.Errorf("default endpoint tag = %q, want the verb name", resp.Endpoint())
	}

	resp, err = client.Get(context.Background(), "/users", WithEndpoint("list-users"))
	if err != nil {
		t.Fatal(err)
	}
	if resp.Endpoint() != "list-users" {
		t.Errorf("endpoint tag = %q, want list-users", resp.Endpoint())
	}
}

func TestClient_JSONBodyEncoding(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	resp, err := client.Post(context.Background(), "/items", map[string]any{"name": "widget", "qty": 3})
	if err != nil {
		t.Fatalf("Post() error: %v", err)
	}

	if resp.StatusCode != http.StatusCreated {
		t.Errorf("StatusCode = %d, want 201", resp.StatusCode)
	}
	if received["name"] != "widget" {
		t.Errorf("server received name = %v, want widget", received["name"])
	}
}

func TestClient_QueryParams(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Get(context.Background(), "/search",
		WithQuery("q", "widgets"), WithQuery("page", "2"))
	if err != nil {
		t.Fatal(err)
	}

	if gotQuery != "page=2&q=widgets" {
		t.Errorf("query = %q, want page=2&q=widgets", gotQuery)
	}
}

func TestClient_ResponseTimingAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(20 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	resp, err := client.Get(context.Background(), "/slow")
	if err != nil {
		t.Fatal(err)
	}

	if resp.Duration < 20*time.Millisecond {
		t.Errorf("Duration = %v, want >= 20ms", resp.Duration)
	}
	if resp.TimeToFirstByte <= 0 {
		t.Errorf("TimeToFirstByte = %v, want > 0", resp.TimeToFirstByte)
	}

	var body struct {
		OK bool `json:"ok"`
	}
	if err := resp.JSON(&body); err != nil {
		t.Fatalf("JSON() error: %v", err)
	}
	if !body.OK {
		t.Error("decoded body.OK = false, want true")
	}
}

func TestClient_ErrorStatusReturnedAsIs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	resp, err := client.Get(context.Background(), "/broken")
	if err != nil {
		t.Fatalf("error statuses must not surface as Go errors, got %v", err)
	}
	if !resp.IsServerError() {
		t.Errorf("IsServerError() = false for status %d", resp.StatusCode)
	}
}

func TestClient_Verbs(t *testing.T) {
	var gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	calls := []struct {
		want string
		call func() (*Response, error)
	}{
		{http.MethodGet, func() (*Response, error) { return client.Get(ctx, "/x") }},
		{http.MethodPost, func() (*Response, error) { return client.Post(ctx, "/x", nil) }},
		{http.MethodPut, func() (*Response, error) { return client.Put(ctx, "/x", nil) }},
		{http.MethodPatch, func() (*Response, error) { return client.Patch(ctx, "/x", nil) }},
		{http.MethodDelete, func() (*Response, error) { return client.Delete(ctx, "/x") }},
	}

	for _, c := range calls {
		if _, err := c.call(); err != nil {
			t.Fatalf("%s: %v", c.want, err)
		}
		if gotMethod != c.want {
			t.Errorf("method = %q, want %q", gotMethod, c.want)
		}
	}
}
