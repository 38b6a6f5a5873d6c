package server

import (
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/relay-labs/relay/internal/model"
	"github.com/relay-labs/relay/internal/storage"
)

// HandleCreateRun handles POST /api/run/create.
// The response carries the run already advanced to processing with its
// instruction pack attached; sandbox execution continues detached.
func (h *Handlers) HandleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req model.CreateRunRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	// Set OTEL span attributes for trace correlation.
	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("relay.robot_id", req.RobotID.String()),
		attribute.Int("relay.urgency", req.UrgencyOrDefault()),
	)

	run, err := h.runSvc.Create(r.Context(), req)
	if err != nil {
		if errors.Is(err, storage.ErrRobotNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "robot not found")
			return
		}
		h.writeInternalError(w, r, "failed to create run", err)
		return
	}
	writeJSON(w, r, http.StatusOK, run)
}

// HandleGetRun handles GET /api/run/{id}.
func (h *Handlers) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	run, err := h.runSvc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "run not found")
			return
		}
		h.writeInternalError(w, r, "failed to get run", err)
		return
	}
	writeJSON(w, r, http.StatusOK, run)
}

// HandleListRuns handles GET /api/runs.
func (h *Handlers) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	runList, err := h.runSvc.List(r.Context())
	if err != nil {
		h.writeInternalError(w, r, "failed to list runs", err)
		return
	}
	if runList == nil {
		runList = []model.Run{}
	}
	writeJSON(w, r, http.StatusOK, runList)
}

// HandleListRunsByRobot handles GET /api/runs/{robot_id}.
func (h *Handlers) HandleListRunsByRobot(w http.ResponseWriter, r *http.Request) {
	robotID, err := parsePathUUID(r, "robot_id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	runList, err := h.runSvc.ListByRobot(r.Context(), robotID)
	if err != nil {
		h.writeInternalError(w, r, "failed to list runs", err)
		return
	}
	if runList == nil {
		runList = []model.Run{}
	}
	writeJSON(w, r, http.StatusOK, runList)
}

// HandleCompleteRun handles POST /api/run/{id}/complete,
// the manual terminal transition that bypasses the sandbox.
func (h *Handlers) HandleCompleteRun(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	var req model.CompleteRunRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	run, err := h.runSvc.Complete(r.Context(), id, req)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "run not found")
			return
		}
		h.writeInternalError(w, r, "failed to complete run", err)
		return
	}
	writeJSON(w, r, http.StatusOK, run)
}

// HandleRunFeedback handles POST /api/run/{id}/feedback.
func (h *Handlers) HandleRunFeedback(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	var req model.FeedbackRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	run, err := h.runSvc.Feedback(r.Context(), id, req)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "run not found")
			return
		}
		h.writeInternalError(w, r, "failed to record feedback", err)
		return
	}
	writeJSON(w, r, http.StatusOK, run)
}
