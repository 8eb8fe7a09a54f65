package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"rugby-livescore-service/internal/domain"
	"rugby-livescore-service/internal/livescore"
)

func TestTokenHolderLifecycle(t *testing.T) {
	holder := NewTokenHolder()

	if holder.IsAuthenticated() {
		t.Fatal("new holder must be unauthenticated")
	}
	if _, ok := holder.User(); ok {
		t.Fatal("new holder must not have a user")
	}

	holder.SetAuth(domain.User{ID: 1, Email: "coach@club.test", Role: domain.RoleCoach}, "tok-1")
	if !holder.IsAuthenticated() || holder.Token() != "tok-1" {
		t.Fatal("expected session stored")
	}
	user, ok := holder.User()
	if !ok || user.Email != "coach@club.test" {
		t.Fatalf("expected stored user, got %+v", user)
	}

	holder.ClearAuth()
	if holder.IsAuthenticated() {
		t.Fatal("expected session cleared")
	}
}

func TestExpireFiresCallbackAndClears(t *testing.T) {
	holder := NewTokenHolder()
	holder.SetAuth(domain.User{ID: 1}, "tok")

	var fired int32
	holder.OnExpiry(func() { atomic.AddInt32(&fired, 1) })

	holder.Expire()

	if holder.IsAuthenticated() {
		t.Fatal("expected session cleared on expiry")
	}
	if atomic.LoadInt32(&fired) != 1 {
		t.Fatal("expected expiry callback to fire once")
	}
}

func TestLoginRequiresCredentialsLocally(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, Holder: NewTokenHolder()})

	if _, err := client.Login(context.Background(), Credentials{Email: "x@y.test"}); err != ErrMissingCredentials {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatal("validation failure must not reach the network")
	}
}

func TestLoginStoresSessionOnHolder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var creds Credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			t.Fatalf("decode credentials: %v", err)
		}
		_ = json.NewEncoder(w).Encode(Session{
			User:  domain.User{ID: 4, Email: creds.Email, Role: domain.RoleCoach},
			Token: "issued-token",
		})
	}))
	defer srv.Close()

	holder := NewTokenHolder()
	client := NewClient(Config{BaseURL: srv.URL, Holder: holder})

	session, err := client.Login(context.Background(), Credentials{Email: "coach@club.test", Password: "pw"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if session.Token != "issued-token" {
		t.Fatalf("unexpected session %+v", session)
	}
	if holder.Token() != "issued-token" {
		t.Fatal("expected token stored on holder")
	}
}

func TestLoginSurfacesStoreError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": "invalid credentials"}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, Holder: NewTokenHolder()})
	_, err := client.Login(context.Background(), Credentials{Email: "a@b.test", Password: "bad"})

	httpErr, ok := livescore.AsHTTPError(err)
	if !ok {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.Message != "invalid credentials" {
		t.Fatalf("unexpected message %q", httpErr.Message)
	}
}

func TestProfileSendsBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Fatalf("expected bearer token, got %q", got)
		}
		_ = json.NewEncoder(w).Encode(domain.User{ID: 4, Email: "coach@club.test"})
	}))
	defer srv.Close()

	holder := NewTokenHolder()
	holder.SetAuth(domain.User{ID: 4}, "tok")
	client := NewClient(Config{BaseURL: srv.URL, Holder: holder})

	user, err := client.Profile(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user.ID != 4 {
		t.Fatalf("unexpected user %+v", user)
	}
}
