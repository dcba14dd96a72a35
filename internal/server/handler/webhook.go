package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/go-github/v73/github"

	"github.com/sevigo/autoci/internal/config"
	ghclient "github.com/sevigo/autoci/internal/github"
)

// WebhookHandler processes incoming webhooks from GitHub.
type WebhookHandler struct {
	cfg      *config.GitHubConfig
	ingestor *ghclient.WorkflowIngestor
	logger   *slog.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(cfg *config.GitHubConfig, ingestor *ghclient.WorkflowIngestor, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		cfg:      cfg,
		ingestor: ingestor,
		logger:   logger,
	}
}

// Handle processes GitHub webhook requests.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.WebhookEnabled() {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "webhook secret not configured"})
		return
	}
	payload, err := github.ValidatePayload(r, []byte(h.cfg.WebhookSecret))
	if err != nil {
		h.logger.Error("invalid webhook payload signature", "error", err)
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid signature"})
		return
	}

	event, err := github.ParseWebHook(github.WebHookType(r), payload)
	if err != nil {
		h.logger.Error("could not parse webhook", "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "could not parse webhook"})
		return
	}

	switch e := event.(type) {
	case *github.WorkflowRunEvent:
		h.handleWorkflowRun(w, r, e)
	case *github.PingEvent:
		_, _ = fmt.Fprint(w, "pong")
	default:
		h.logger.Debug("ignoring unhandled webhook event type", "type", github.WebHookType(r))
		_, _ = fmt.Fprint(w, "Event type not handled")
	}
}

func (h *WebhookHandler) handleWorkflowRun(w http.ResponseWriter, r *http.Request, event *github.WorkflowRunEvent) {
	run, err := h.ingestor.HandleWorkflowRun(r.Context(), event)
	if errors.Is(err, ghclient.ErrIgnored) {
		h.logger.Debug("ignoring workflow run", "repo", event.GetRepo().GetFullName(), "reason", err.Error())
		_, _ = fmt.Fprint(w, "Workflow run ignored")
		return
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, run)
}
