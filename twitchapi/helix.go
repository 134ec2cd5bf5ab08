// Package twitchapi contains the Twitch calls the authorization flow needs: the OAuth
// authorization-code exchange, the authorize URL, an app token probe and the Helix users lookup.
package twitchapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// DefaultHelixURL is the Helix API base.
const DefaultHelixURL = "https://api.twitch.tv/helix"

// User is the subset of a Helix user object the service reads.
type User struct {
	ID          string `json:"id"`
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
}

// HelixClient calls Helix on behalf of a user token.
type HelixClient struct {
	ClientID   string
	BaseURL    string // defaults to DefaultHelixURL
	HTTPClient *http.Client
}

func (hc *HelixClient) http() *http.Client {
	if hc.HTTPClient != nil {
		return hc.HTTPClient
	}
	return http.DefaultClient
}

func (hc *HelixClient) baseURL() string {
	if hc.BaseURL != "" {
		return strings.TrimRight(hc.BaseURL, "/")
	}
	return DefaultHelixURL
}

// GetAuthenticatedUser returns the user owning accessToken. Helix answers with an array; the
// first element is used.
func (hc *HelixClient) GetAuthenticatedUser(ctx context.Context, accessToken string) (*User, error) {
	if accessToken == "" {
		return nil, errors.New("access token empty")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, hc.baseURL()+"/users", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Client-Id", hc.ClientID)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	resp, err := hc.http().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, &UpstreamError{Op: "get users", StatusCode: resp.StatusCode, Body: b}
	}
	var body struct {
		Data []User `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode helix users: %w", err)
	}
	if len(body.Data) == 0 {
		return nil, ErrUserNotFound
	}
	return &body.Data[0], nil
}
