package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/onnwee/meow-bot-auth/telemetry"
	"github.com/onnwee/meow-bot-auth/twitchapi"
)

const (
	maxAuthorizeBody = 16 << 10
	joinListTimeout  = 5 * time.Second

	authorizeSuccessMessage = "Bot successfully added to channel"
	authorizeFailureError   = "Failed to process authorization"
)

type authorizeRequest struct {
	Code        string `json:"code"`
	RedirectURI string `json:"redirect_uri"`
}

type authorizeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Channel string `json:"channel"`
	UserID  string `json:"user_id"`
}

type failureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details any    `json:"details"`
}

// HandleAuthorizeBot exchanges the posted authorization code, looks up the authorizing user and
// records their channel in the join list.
//
// A join list failure is logged but the response still reports success, so callers cannot
// tell whether the channel was recorded.
func (h *Handlers) HandleAuthorizeBot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := telemetry.LoggerWithCorr(ctx).With(slog.String("component", "authorize"))

	var req authorizeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAuthorizeBody)).Decode(&req); err != nil {
		telemetry.RecordAuthorization(telemetry.ResultInvalidRequest)
		writeJSON(w, http.StatusBadRequest, failureResponse{Error: "Invalid request", Details: err.Error()})
		return
	}
	if req.Code == "" || req.RedirectURI == "" {
		telemetry.RecordAuthorization(telemetry.ResultInvalidRequest)
		writeJSON(w, http.StatusBadRequest, failureResponse{Error: "Invalid request", Details: "code and redirect_uri are required"})
		return
	}
	log.Info("received authorization request", slog.String("code", maskCode(req.Code)), slog.String("redirect_uri", req.RedirectURI))

	var tok *oauth2.Token
	err := h.upstream(ctx, "token_exchange", func(ctx context.Context) error {
		var err error
		tok, err = h.oauth.ExchangeAuthCode(ctx, req.Code, req.RedirectURI)
		return err
	})
	if err != nil {
		log.Error("authorization error", slog.String("step", "token_exchange"), slog.Any("err", err))
		telemetry.RecordAuthorization(telemetry.ResultExchangeFailed)
		h.writeFailure(w, err)
		return
	}
	log.Info("got access token for user")

	var user *twitchapi.User
	err = h.upstream(ctx, "get_users", func(ctx context.Context) error {
		var err error
		user, err = h.helix.GetAuthenticatedUser(ctx, tok.AccessToken)
		return err
	})
	if err != nil {
		log.Error("authorization error", slog.String("step", "get_users"), slog.Any("err", err))
		telemetry.RecordAuthorization(telemetry.ResultIdentityFailed)
		h.writeFailure(w, err)
		return
	}
	log.Info("user data", slog.String("display_name", user.DisplayName), slog.String("user_id", user.ID))

	h.joinChannel(ctx, log, user.Login)

	telemetry.RecordAuthorization(telemetry.ResultSuccess)
	writeJSON(w, http.StatusOK, authorizeResponse{
		Success: true,
		Message: authorizeSuccessMessage,
		Channel: user.DisplayName,
		UserID:  user.ID,
	})
}

// joinChannel records login in the join list. Errors are logged and counted only. The write
// runs detached from the request so a client disconnect cannot interrupt it.
func (h *Handlers) joinChannel(ctx context.Context, log *slog.Logger, login string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), joinListTimeout)
	defer cancel()
	ctx, span := telemetry.StartSpan(ctx, "joinlist", "joinlist.add")
	defer span.End()

	added, err := h.store.Add(ctx, login)
	switch {
	case err != nil:
		telemetry.RecordError(span, err)
		telemetry.RecordJoinListWrite(telemetry.JoinError)
		log.Error("error writing channel to join list", slog.String("channel", login), slog.Any("err", err))
	case added:
		telemetry.RecordJoinListWrite(telemetry.JoinAdded)
		log.Info("added channel to join list", slog.String("channel", login))
	default:
		telemetry.RecordJoinListWrite(telemetry.JoinDuplicate)
		log.Info("channel already in join list", slog.String("channel", login))
	}
}

// upstream runs one Twitch call inside a child span and records its latency.
func (h *Handlers) upstream(ctx context.Context, call string, fn func(context.Context) error) error {
	ctx, span := telemetry.StartSpan(ctx, "twitchapi", "twitch."+call)
	defer span.End()
	err := telemetry.TimeUpstream(call, func() error { return fn(ctx) })
	if err != nil {
		telemetry.RecordError(span, err)
		var ue *twitchapi.UpstreamError
		if errors.As(err, &ue) {
			telemetry.SetSpanHTTPStatus(span, ue.StatusCode)
		}
		return err
	}
	telemetry.SetSpanSuccess(span)
	return nil
}

func (h *Handlers) writeFailure(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusInternalServerError, failureResponse{
		Error:   authorizeFailureError,
		Details: twitchapi.ErrorDetails(err),
	})
}
