package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/relay-labs/relay/internal/model"
	"github.com/relay-labs/relay/internal/storage"
)

func parseConversationID(r *http.Request) (int, error) {
	raw := r.PathValue("id")
	if raw == "" {
		return 0, fmt.Errorf("id is required")
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid conversation id: %s", raw)
	}
	return id, nil
}

// HandleListConversations handles GET /api/conversations.
func (h *Handlers) HandleListConversations(w http.ResponseWriter, r *http.Request) {
	conversations, err := h.chatSvc.ListConversations(r.Context())
	if err != nil {
		h.writeInternalError(w, r, "failed to list conversations", err)
		return
	}
	if conversations == nil {
		conversations = []model.Conversation{}
	}
	writeJSON(w, r, http.StatusOK, conversations)
}

// HandleCreateConversation handles POST /api/conversations.
func (h *Handlers) HandleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req model.CreateConversationRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	conversation, err := h.chatSvc.CreateConversation(r.Context(), req.Title)
	if err != nil {
		h.writeInternalError(w, r, "failed to create conversation", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, conversation)
}

// HandleGetConversation handles GET /api/conversations/{id}.
func (h *Handlers) HandleGetConversation(w http.ResponseWriter, r *http.Request) {
	id, err := parseConversationID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	detail, err := h.chatSvc.GetConversation(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "conversation not found")
			return
		}
		h.writeInternalError(w, r, "failed to get conversation", err)
		return
	}
	writeJSON(w, r, http.StatusOK, detail)
}

// HandleDeleteConversation handles DELETE /api/conversations/{id}.
func (h *Handlers) HandleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	id, err := parseConversationID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	if err := h.chatSvc.DeleteConversation(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "conversation not found")
			return
		}
		h.writeInternalError(w, r, "failed to delete conversation", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]bool{"deleted": true})
}

// HandleListMessages handles GET /api/conversations/{id}/messages.
func (h *Handlers) HandleListMessages(w http.ResponseWriter, r *http.Request) {
	id, err := parseConversationID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	messages, err := h.chatSvc.ListMessages(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "conversation not found")
			return
		}
		h.writeInternalError(w, r, "failed to list messages", err)
		return
	}
	writeJSON(w, r, http.StatusOK, messages)
}

// HandlePostMessage handles POST /api/conversations/{id}/messages.
// Persists the user message, generates the assistant reply from live
// console data, and returns both messages.
func (h *Handlers) HandlePostMessage(w http.ResponseWriter, r *http.Request) {
	id, err := parseConversationID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	var req model.PostMessageRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	result, err := h.chatSvc.SendMessage(r.Context(), id, req.Content)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "conversation not found")
			return
		}
		h.writeInternalError(w, r, "failed to generate assistant reply", err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}
