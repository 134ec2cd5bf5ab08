package twitchapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/twitch"
)

// OAuthClient performs the authorization-code side of the Twitch OAuth flow.
type OAuthClient struct {
	Config     oauth2.Config
	HTTPClient *http.Client
}

// NewOAuthClient builds a client for the given application. Empty authURL/tokenURL keep the
// public Twitch endpoints.
func NewOAuthClient(clientID, clientSecret, authURL, tokenURL string, scopes []string, hc *http.Client) *OAuthClient {
	ep := twitch.Endpoint
	if authURL != "" {
		ep.AuthURL = authURL
	}
	if tokenURL != "" {
		ep.TokenURL = tokenURL
	}
	// Twitch wants client credentials in the form body.
	ep.AuthStyle = oauth2.AuthStyleInParams
	return &OAuthClient{
		Config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     ep,
			Scopes:       scopes,
		},
		HTTPClient: hc,
	}
}

// AuthorizeURL constructs the user authorization URL for the code grant.
func (c *OAuthClient) AuthorizeURL(redirectURI, state string) (string, error) {
	if c.Config.ClientID == "" || redirectURI == "" {
		return "", errors.New("missing clientID or redirectURI")
	}
	return c.Config.AuthCodeURL(state, oauth2.SetAuthURLParam("redirect_uri", redirectURI)), nil
}

// ExchangeAuthCode exchanges an authorization code for an access token. redirectURI must be the
// one used when the code was issued. Upstream rejections come back as *UpstreamError.
func (c *OAuthClient) ExchangeAuthCode(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	if c.Config.ClientID == "" || c.Config.ClientSecret == "" || code == "" || redirectURI == "" {
		return nil, errors.New("missing required parameter for auth code exchange")
	}
	if c.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.HTTPClient)
	}
	tok, err := c.Config.Exchange(ctx, code, oauth2.SetAuthURLParam("redirect_uri", redirectURI))
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			ue := &UpstreamError{Op: "token exchange", Body: re.Body}
			if re.Response != nil {
				ue.StatusCode = re.Response.StatusCode
			}
			return nil, ue
		}
		return nil, fmt.Errorf("twitch token exchange: %w", err)
	}
	return tok, nil
}
