package twitchapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
)

// fakeTokenEndpoint answers client-credentials grants and records what it received.
type fakeTokenEndpoint struct {
	*httptest.Server
	calls atomic.Int32

	mu       sync.Mutex
	lastForm url.Values
	lastAuth string
}

func newFakeTokenEndpoint(t *testing.T, status int, body string) *fakeTokenEndpoint {
	t.Helper()
	f := &fakeTokenEndpoint{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := f.calls.Add(1)
		_ = r.ParseForm()
		f.mu.Lock()
		f.lastForm = r.PostForm
		f.lastAuth = r.Header.Get("Authorization")
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = fmt.Fprintf(w, body, n)
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeTokenEndpoint) source() *TokenSource {
	return &TokenSource{ClientID: "app-id", ClientSecret: "app-secret", TokenURL: f.URL, HTTPClient: f.Client()}
}

func TestTokenSourceReuseDependsOnExpiry(t *testing.T) {
	tests := []struct {
		name      string
		expiresIn int
		wantCalls int32
		wantLast  string
	}{
		{"long lived token is reused", 3600, 1, "app-1"},
		{"token inside refresh margin is replaced", 30, 2, "app-2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeTokenEndpoint(t, http.StatusOK, `{"access_token":"app-%d","token_type":"bearer","expires_in":`+fmt.Sprint(tt.expiresIn)+`}`)
			ts := f.source()

			var last string
			for range 2 {
				tok, err := ts.Get(context.Background())
				if err != nil {
					t.Fatalf("Get() error = %v", err)
				}
				last = tok
			}
			if got := f.calls.Load(); got != tt.wantCalls {
				t.Errorf("token endpoint calls = %d, want %d", got, tt.wantCalls)
			}
			if last != tt.wantLast {
				t.Errorf("last token = %q, want %q", last, tt.wantLast)
			}
		})
	}
}

func TestTokenSourceSendsCredentialsInForm(t *testing.T) {
	f := newFakeTokenEndpoint(t, http.StatusOK, `{"access_token":"app-%d","token_type":"bearer","expires_in":3600}`)
	if _, err := f.source().Get(context.Background()); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for k, want := range map[string]string{
		"grant_type":    "client_credentials",
		"client_id":     "app-id",
		"client_secret": "app-secret",
	} {
		if got := f.lastForm.Get(k); got != want {
			t.Errorf("form %s = %q, want %q", k, got, want)
		}
	}
	if f.lastAuth != "" {
		t.Errorf("Authorization header = %q, want credentials in the body only", f.lastAuth)
	}
}

func TestTokenSourceRejectedIsUpstreamError(t *testing.T) {
	f := newFakeTokenEndpoint(t, http.StatusForbidden, `{"status":403,"message":"invalid client secret","n":%d}`)
	ts := f.source()

	_, err := ts.Get(context.Background())
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("Get() error = %v, want *UpstreamError", err)
	}
	if ue.StatusCode != http.StatusForbidden || ue.Op != "app token request" {
		t.Errorf("UpstreamError = %+v", ue)
	}
	if d, ok := ErrorDetails(err).(json.RawMessage); !ok || len(d) == 0 {
		t.Errorf("ErrorDetails() = %#v, want the raw upstream JSON", ErrorDetails(err))
	}

	// failures are not cached
	if _, err := ts.Get(context.Background()); err == nil {
		t.Fatal("second Get() should fail again")
	}
	if got := f.calls.Load(); got != 2 {
		t.Errorf("token endpoint calls = %d, want 2", got)
	}
}

func TestTokenSourceMissingAccessToken(t *testing.T) {
	f := newFakeTokenEndpoint(t, http.StatusOK, `{"token_type":"bearer","expires_in":3600,"n":%d}`)
	if _, err := f.source().Get(context.Background()); err == nil {
		t.Fatal("Get() should fail when the response carries no access_token")
	}
}

func TestTokenSourceMissingCredentials(t *testing.T) {
	f := newFakeTokenEndpoint(t, http.StatusOK, `{"access_token":"app-%d"}`)
	ts := &TokenSource{TokenURL: f.URL, HTTPClient: f.Client()}
	if _, err := ts.Get(context.Background()); err == nil {
		t.Fatal("Get() should fail without client credentials")
	}
	if got := f.calls.Load(); got != 0 {
		t.Errorf("token endpoint called %d times without credentials", got)
	}
}

func TestTokenSourceConcurrentGetFetchesOnce(t *testing.T) {
	f := newFakeTokenEndpoint(t, http.StatusOK, `{"access_token":"app-%d","token_type":"bearer","expires_in":3600}`)
	ts := f.source()

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tok, err := ts.Get(context.Background()); err != nil {
				errs <- err
			} else if tok != "app-1" {
				errs <- fmt.Errorf("token = %q, want app-1", tok)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	if got := f.calls.Load(); got != 1 {
		t.Errorf("token endpoint calls = %d, want 1", got)
	}
}
