package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/sevigo/autoci/internal/dashboard"
	"github.com/sevigo/autoci/internal/jobs"
	"github.com/sevigo/autoci/internal/llm"
	"github.com/sevigo/autoci/internal/pipeline"
	"github.com/sevigo/autoci/internal/storage"
)

// maxBodyBytes caps request bodies; run logs are the largest payloads.
const maxBodyBytes = 2 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var schemaErr *llm.SchemaError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrAlreadyExists), errors.Is(err, pipeline.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, dashboard.ErrInvalidInput),
		errors.Is(err, pipeline.ErrInvalidRun),
		errors.Is(err, pipeline.ErrStackNotDetected),
		errors.Is(err, pipeline.ErrRunNotFailed),
		errors.Is(err, pipeline.ErrEmptyLog):
		return http.StatusBadRequest
	case errors.Is(err, jobs.ErrQueueFull):
		return http.StatusServiceUnavailable
	case errors.As(err, &schemaErr), errors.Is(err, llm.ErrEmptyResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: malformed JSON body: %w", dashboard.ErrInvalidInput, err)
	}
	return nil
}
