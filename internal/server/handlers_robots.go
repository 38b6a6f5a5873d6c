package server

import (
	"errors"
	"net/http"

	"github.com/relay-labs/relay/internal/model"
	"github.com/relay-labs/relay/internal/storage"
)

// HandleCreateRobot handles POST /api/robot/create.
func (h *Handlers) HandleCreateRobot(w http.ResponseWriter, r *http.Request) {
	var req model.CreateRobotRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	robot, err := h.db.CreateRobot(r.Context(), req)
	if err != nil {
		h.writeInternalError(w, r, "failed to create robot", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, robot)
}

// HandleListRobots handles GET /api/robots.
func (h *Handlers) HandleListRobots(w http.ResponseWriter, r *http.Request) {
	robots, err := h.db.ListRobots(r.Context())
	if err != nil {
		h.writeInternalError(w, r, "failed to list robots", err)
		return
	}
	if robots == nil {
		robots = []model.RobotProfile{}
	}
	writeJSON(w, r, http.StatusOK, robots)
}

// HandleGetRobot handles GET /api/robots/{id}.
func (h *Handlers) HandleGetRobot(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	robot, err := h.db.GetRobot(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "robot not found")
			return
		}
		h.writeInternalError(w, r, "failed to get robot", err)
		return
	}
	writeJSON(w, r, http.StatusOK, robot)
}

// HandleUpdateRobot handles PATCH /api/robots/{id}.
func (h *Handlers) HandleUpdateRobot(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	var req model.UpdateRobotRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	robot, err := h.db.UpdateRobot(r.Context(), id, req)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "robot not found")
			return
		}
		h.writeInternalError(w, r, "failed to update robot", err)
		return
	}
	writeJSON(w, r, http.StatusOK, robot)
}

// HandleDeleteRobot handles DELETE /api/robots/{id}.
// Deletes the robot's runs and journal entries along with the profile.
func (h *Handlers) HandleDeleteRobot(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	result, err := h.db.DeleteRobot(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "robot not found")
			return
		}
		h.writeInternalError(w, r, "failed to delete robot", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"deleted": result,
	})
}
