package server

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/relay-labs/relay/internal/model"
	"github.com/relay-labs/relay/internal/storage"
)

// HandleListJournal handles GET /api/journal. An optional robot_id query
// parameter filters entries to one robot.
func (h *Handlers) HandleListJournal(w http.ResponseWriter, r *http.Request) {
	var robotID *uuid.UUID
	if raw := r.URL.Query().Get("robot_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid robot_id: "+raw)
			return
		}
		robotID = &id
	}

	entries, err := h.db.ListJournalEntries(r.Context(), robotID)
	if err != nil {
		h.writeInternalError(w, r, "failed to list journal entries", err)
		return
	}
	if entries == nil {
		entries = []model.JournalEntry{}
	}
	writeJSON(w, r, http.StatusOK, entries)
}

// HandleGetJournalEntry handles GET /api/journal/{id}.
func (h *Handlers) HandleGetJournalEntry(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	entry, err := h.db.GetJournalEntry(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "journal entry not found")
			return
		}
		h.writeInternalError(w, r, "failed to get journal entry", err)
		return
	}
	writeJSON(w, r, http.StatusOK, entry)
}

// HandleCreateJournalEntry handles POST /api/journal.
func (h *Handlers) HandleCreateJournalEntry(w http.ResponseWriter, r *http.Request) {
	var req model.CreateJournalEntryRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	// Entries belong to robots; reject writes against a missing profile.
	if _, err := h.db.GetRobot(r.Context(), req.RobotID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "robot not found")
			return
		}
		h.writeInternalError(w, r, "failed to verify robot", err)
		return
	}

	entry, err := h.db.CreateJournalEntry(r.Context(), req)
	if err != nil {
		h.writeInternalError(w, r, "failed to create journal entry", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, entry)
}
