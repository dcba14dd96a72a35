// Package handler provides the HTTP handlers of the AutoCI API.
package handler

import (
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sevigo/autoci/internal/core"
	"github.com/sevigo/autoci/internal/dashboard"
	"github.com/sevigo/autoci/internal/storage"
)

// RepositoryHandler serves the repository, run and stats endpoints.
type RepositoryHandler struct {
	svc    dashboard.Service
	logger *slog.Logger
}

// NewRepositoryHandler creates a RepositoryHandler.
func NewRepositoryHandler(svc dashboard.Service, logger *slog.Logger) *RepositoryHandler {
	return &RepositoryHandler{svc: svc, logger: logger}
}

// Routes mounts the handlers on r, relative to /api/v1.
func (h *RepositoryHandler) Routes(r chi.Router) {
	r.Get("/stats", h.Stats)
	r.Route("/repositories", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Delete("/", h.Delete)
			r.Post("/onboard", h.Onboard)
			r.Get("/configs", h.Configs)
			r.Get("/findings", h.Findings)
			r.Get("/events", h.Events)
			r.Get("/runs", h.Runs)
			r.Post("/runs", h.RecordRun)
			r.Post("/runs/{runID}/heal", h.Heal)
		})
	})
}

func (h *RepositoryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *RepositoryHandler) List(w http.ResponseWriter, r *http.Request) {
	repos, err := h.svc.ListRepositories(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if repos == nil {
		repos = []*core.Repository{}
	}
	writeJSON(w, http.StatusOK, repos)
}

type createRepositoryRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (h *RepositoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRepositoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	repo, err := h.svc.AddRepository(r.Context(), req.Name, req.URL)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, repo)
}

func (h *RepositoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	repo, err := h.svc.GetRepository(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, repo)
}

func (h *RepositoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteRepository(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RepositoryHandler) Onboard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.StartOnboarding(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	repo, err := h.svc.GetRepository(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, repo)
}

func (h *RepositoryHandler) Configs(w http.ResponseWriter, r *http.Request) {
	repo, err := h.svc.GetRepository(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if repo.Configs == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "configs not generated yet, onboard the repository first"})
		return
	}
	writeJSON(w, http.StatusOK, repo.Configs)
}

// Findings lists security findings, most severe first. ?severity= filters
// by one or more comma-separated severities.
func (h *RepositoryHandler) Findings(w http.ResponseWriter, r *http.Request) {
	repo, err := h.svc.GetRepository(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var wanted []core.Severity
	if q := r.URL.Query().Get("severity"); q != "" {
		for _, s := range strings.Split(q, ",") {
			wanted = append(wanted, core.Severity(strings.ToLower(strings.TrimSpace(s))))
		}
	}

	findings := make([]core.SecurityFinding, 0, len(repo.SecurityFindings))
	for _, f := range repo.SecurityFindings {
		if len(wanted) == 0 || slices.Contains(wanted, f.Severity) {
			findings = append(findings, f)
		}
	}
	slices.SortStableFunc(findings, func(a, b core.SecurityFinding) int {
		return a.Severity.Rank() - b.Severity.Rank()
	})
	writeJSON(w, http.StatusOK, findings)
}

func (h *RepositoryHandler) Events(w http.ResponseWriter, r *http.Request) {
	limit := storage.DefaultEventLimit
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}
	events, err := h.svc.Events(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if events == nil {
		events = []core.LogEntry{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *RepositoryHandler) Runs(w http.ResponseWriter, r *http.Request) {
	repo, err := h.svc.GetRepository(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	runs := repo.PipelineRuns
	if runs == nil {
		runs = []core.PipelineRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *RepositoryHandler) RecordRun(w http.ResponseWriter, r *http.Request) {
	var run core.PipelineRun
	if err := decodeJSON(w, r, &run); err != nil {
		writeError(w, h.logger, err)
		return
	}
	recorded, err := h.svc.RecordRun(r.Context(), chi.URLParam(r, "id"), run)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, recorded)
}

type healRequest struct {
	Log string `json:"log"`
}

type healAccepted struct {
	Status string `json:"status"`
	RunID  string `json:"runId"`
}

// Heal analyzes a failed run. The analysis is queued unless ?sync=true.
func (h *RepositoryHandler) Heal(w http.ResponseWriter, r *http.Request) {
	var req healRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	sync, _ := strconv.ParseBool(r.URL.Query().Get("sync"))
	runID := chi.URLParam(r, "runID")

	analysis, err := h.svc.RequestHealing(r.Context(), chi.URLParam(r, "id"), runID, req.Log, sync)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if analysis == nil {
		writeJSON(w, http.StatusAccepted, healAccepted{Status: "queued", RunID: runID})
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}
