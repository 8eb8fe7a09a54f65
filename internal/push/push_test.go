package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type staticToken string

func (t staticToken) Token() string { return string(t) }

func TestSubscribeSendsEndpointAndKeys(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody Subscription

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Tokens: staticToken("tok-1")})
	err := c.Subscribe(context.Background(), Subscription{
		Endpoint: "https://push.example/ep-1",
		Keys:     Keys{P256DH: "pk", Auth: "ak"},
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if gotPath != "/notifications/subscribe" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer tok-1" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotBody.Endpoint != "https://push.example/ep-1" || gotBody.Keys.P256DH != "pk" {
		t.Fatalf("unexpected body %+v", gotBody)
	}
}

func TestUnsubscribeSendsEndpoint(t *testing.T) {
	var gotPath string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	if err := c.Unsubscribe(context.Background(), "https://push.example/ep-1"); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}

	if gotPath != "/notifications/unsubscribe" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotBody["endpoint"] != "https://push.example/ep-1" {
		t.Fatalf("unexpected body %v", gotBody)
	}
}

func TestSubscribeRequiresEndpoint(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	if err := c.Subscribe(context.Background(), Subscription{}); err == nil {
		t.Fatal("expected error for missing endpoint")
	}
	if calls != 0 {
		t.Fatalf("expected no request, got %d", calls)
	}
}

func TestSubscribeSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	err := c.Subscribe(context.Background(), Subscription{Endpoint: "https://push.example/ep"})
	if err == nil {
		t.Fatal("expected error on 500")
	}
}
