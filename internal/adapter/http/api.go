package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/couchcryptid/storm-data-pros/internal/domain"
	"github.com/couchcryptid/storm-data-pros/internal/pipeline"
)

const maxJobBytes = 64 << 20

type errorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// handleClassify decodes a job from the body (JSON, or MessagePack when the
// Content-Type says so), classifies it and stores the result.
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJobBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeResponse(w, r, http.StatusRequestEntityTooLarge, errorBody{Error: err.Error()})
			return
		}
		writeResponse(w, r, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	job, err := domain.ParseJob(domain.RawEvent{
		Value:   body,
		Headers: map[string]string{domain.HeaderContentType: r.Header.Get("Content-Type")},
	}, s.classifier.DefaultMethod())
	if err != nil {
		writeResponse(w, r, http.StatusBadRequest, errorBody{Error: err.Error(), Reason: pipeline.ErrorReason(err)})
		return
	}

	grid, err := s.classifier.Classify(r.Context(), job)
	if err != nil {
		reason := pipeline.ErrorReason(err)
		status := http.StatusUnprocessableEntity
		if reason == "other" {
			status = http.StatusInternalServerError
			s.logger.Error("classify request failed", "error", err, "job_id", job.ID)
		}
		writeResponse(w, r, status, errorBody{Error: err.Error(), Reason: reason})
		return
	}

	if s.store != nil {
		if err := s.store.Put(r.Context(), grid); err != nil {
			s.logger.Warn("store result failed", "error", err, "job_id", grid.ID)
		}
	}

	writeResponse(w, r, http.StatusOK, grid)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if s.store == nil {
		writeResponse(w, r, http.StatusNotFound, errorBody{Error: domain.ErrResultNotFound.Error()})
		return
	}

	grid, err := s.store.Get(r.Context(), id)
	if errors.Is(err, domain.ErrResultNotFound) {
		writeResponse(w, r, http.StatusNotFound, errorBody{Error: err.Error()})
		return
	}
	if err != nil {
		s.logger.Error("result lookup failed", "error", err, "job_id", id)
		writeResponse(w, r, http.StatusInternalServerError, errorBody{Error: "result lookup failed"})
		return
	}

	writeResponse(w, r, http.StatusOK, grid)
}
