package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v57/github"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/dvc-connector/internal/dispatch"
	"github.com/fyrsmithlabs/dvc-connector/internal/metrics"
)

// WebhookResponse is the response body for POST /webhook.
type WebhookResponse struct {
	Status string `json:"status"`
	Name   string `json:"name,omitempty"`
	URL    string `json:"clone_url,omitempty"`
}

// handleWebhook accepts GitHub push events and plain {"name","clone_url"}
// bodies, and queues the named repository for synchronization.
func (s *Server) handleWebhook(c echo.Context) error {
	r := c.Request()
	ctx := r.Context()

	// Plain requests are always JSON whatever Content-Type the client sent
	// (curl -d defaults to form encoding). GitHub deliveries keep theirs.
	if github.WebHookType(r) == "" {
		r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}

	// With an empty secret go-github only verifies signatures that are present.
	payload, err := github.ValidatePayload(r, []byte(s.config.WebhookSecret.Value()))
	if err != nil {
		s.metrics.Request(metrics.OutcomeMalformed)
		if s.config.WebhookSecret.IsSet() || hasSignature(r) {
			s.logger.Warn(ctx, "invalid webhook signature", zap.Error(err))
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid signature")
		}
		s.logger.Warn(ctx, "unreadable webhook body", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	var src dispatch.SourceRequest
	if eventType := github.WebHookType(r); eventType != "" {
		event, err := github.ParseWebHook(eventType, payload)
		if err != nil {
			s.metrics.Request(metrics.OutcomeMalformed)
			s.logger.Warn(ctx, "failed to parse webhook", zap.String("event", eventType), zap.Error(err))
			return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
		}

		switch e := event.(type) {
		case *github.PingEvent:
			return c.JSON(http.StatusOK, WebhookResponse{Status: "pong"})
		case *github.PushEvent:
			src, err = dispatch.ParseRequest(map[string]any{
				"name":      e.GetRepo().GetName(),
				"clone_url": e.GetRepo().GetCloneURL(),
			})
		default:
			s.logger.Debug(ctx, "ignoring event type", zap.String("type", fmt.Sprintf("%T", event)))
			return c.JSON(http.StatusOK, WebhookResponse{Status: "ignored"})
		}
		if err != nil {
			return s.malformed(c, err)
		}
	} else {
		var body map[string]any
		if err := json.Unmarshal(payload, &body); err != nil {
			return s.malformed(c, err)
		}
		if src, err = dispatch.ParseRequest(body); err != nil {
			return s.malformed(c, err)
		}
	}

	if err := s.queue.Enqueue(src); err != nil {
		if errors.Is(err, dispatch.ErrQueueFull) || errors.Is(err, dispatch.ErrQueueClosed) {
			s.logger.Warn(ctx, "sync request not queued", zap.String("repository", src.Name), zap.Error(err))
			return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
		}
		return err
	}

	s.logger.Info(ctx, "sync request queued",
		zap.String("repository", src.Name),
		zap.String("url", src.URL),
	)
	return c.JSON(http.StatusAccepted, WebhookResponse{Status: "accepted", Name: src.Name, URL: src.URL})
}

func hasSignature(r *http.Request) bool {
	return r.Header.Get(github.SHA256SignatureHeader) != "" || r.Header.Get(github.SHA1SignatureHeader) != ""
}

func (s *Server) malformed(c echo.Context, err error) error {
	s.metrics.Request(metrics.OutcomeMalformed)
	s.logger.Warn(c.Request().Context(), "rejecting webhook", zap.Error(err))
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}
