package twitchapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/oauth2/twitch"
)

// appTokenMargin is how long before expiry a cached app token is replaced.
const appTokenMargin = 60 * time.Second

// TokenSource hands out a Twitch app access token from the client-credentials grant. The
// service only uses it to prove the configured client id/secret pair is accepted by Twitch.
type TokenSource struct {
	ClientID     string
	ClientSecret string
	TokenURL     string // defaults to the public Twitch token endpoint
	HTTPClient   *http.Client

	mu    sync.Mutex
	token *oauth2.Token
}

// Get returns the cached app token, fetching a new one when none is held or the held one
// expires within appTokenMargin.
func (ts *TokenSource) Get(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if usable(ts.token) {
		return ts.token.AccessToken, nil
	}
	if ts.ClientID == "" || ts.ClientSecret == "" {
		return "", errors.New("missing client id/secret for twitch app token")
	}
	tok, err := ts.grant(ctx)
	if err != nil {
		return "", err
	}
	ts.token = tok
	return tok.AccessToken, nil
}

func usable(tok *oauth2.Token) bool {
	if tok == nil || tok.AccessToken == "" {
		return false
	}
	return tok.Expiry.IsZero() || time.Until(tok.Expiry) > appTokenMargin
}

func (ts *TokenSource) grant(ctx context.Context) (*oauth2.Token, error) {
	cc := clientcredentials.Config{
		ClientID:     ts.ClientID,
		ClientSecret: ts.ClientSecret,
		TokenURL:     ts.TokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	if cc.TokenURL == "" {
		cc.TokenURL = twitch.Endpoint.TokenURL
	}
	if ts.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, ts.HTTPClient)
	}
	tok, err := cc.Token(ctx)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			ue := &UpstreamError{Op: "app token request", Body: re.Body}
			if re.Response != nil {
				ue.StatusCode = re.Response.StatusCode
			}
			return nil, ue
		}
		return nil, fmt.Errorf("twitch app token: %w", err)
	}
	return tok, nil
}
