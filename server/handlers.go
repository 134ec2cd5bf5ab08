// Package server exposes the HTTP API: the bot authorization endpoint, health and readiness,
// the authorize URL helper, the admin join-list view and Prometheus metrics. Requests carry a
// correlation id and a tracing span.
package server

import (
	"context"
	"net/http"

	"github.com/onnwee/meow-bot-auth/config"
	"github.com/onnwee/meow-bot-auth/joinlist"
	"github.com/onnwee/meow-bot-auth/twitchapi"
)

// Handlers holds dependencies for all HTTP handlers. Nothing in it is mutated after
// construction except the app token cache, which guards itself.
type Handlers struct {
	cfg      *config.Config
	oauth    *twitchapi.OAuthClient
	helix    *twitchapi.HelixClient
	appToken *twitchapi.TokenSource
	store    joinlist.Store

	// schemaCheck is set for backends with a migrated schema.
	schemaCheck func(context.Context) error
}

// NewHandlers builds the Twitch clients from cfg. All outbound calls share one http.Client
// bounded by cfg.UpstreamTimeout.
func NewHandlers(cfg *config.Config, store joinlist.Store) *Handlers {
	hc := &http.Client{Timeout: cfg.UpstreamTimeout}
	return &Handlers{
		cfg:   cfg,
		oauth: twitchapi.NewOAuthClient(cfg.TwitchClientID, cfg.TwitchClientSecret, cfg.TwitchAuthURL, cfg.TwitchTokenURL, cfg.Scopes(), hc),
		helix: &twitchapi.HelixClient{
			ClientID:   cfg.TwitchClientID,
			BaseURL:    cfg.TwitchHelixURL,
			HTTPClient: hc,
		},
		appToken: &twitchapi.TokenSource{
			ClientID:     cfg.TwitchClientID,
			ClientSecret: cfg.TwitchClientSecret,
			TokenURL:     cfg.TwitchTokenURL,
			HTTPClient:   hc,
		},
		store: store,
	}
}

// WithSchemaCheck adds a "migrations" readiness check run after the join list check.
func (h *Handlers) WithSchemaCheck(fn func(context.Context) error) *Handlers {
	h.schemaCheck = fn
	return h
}

// AppTokenSource exposes the client-credentials token source for the startup probe.
func (h *Handlers) AppTokenSource() *twitchapi.TokenSource { return h.appToken }
