package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/relay-labs/relay/internal/signals"
)

// HandleCalendarEvents handles GET /api/calendar/events. Optional timeMin
// and timeMax query parameters bound the window (RFC3339). Failures fall
// back to a deterministic schedule so the console widget always renders.
func (h *Handlers) HandleCalendarEvents(w http.ResponseWriter, r *http.Request) {
	if h.calendar == nil {
		writeJSON(w, r, http.StatusOK, signals.FallbackCalendar(time.Now()))
		return
	}

	q := r.URL.Query()
	block, err := h.calendar.Events(r.Context(), q.Get("timeMin"), q.Get("timeMax"))
	if err != nil {
		h.logger.Warn("calendar fetch failed, serving fallback",
			"error", err,
			"request_id", RequestIDFromContext(r.Context()))
		writeJSON(w, r, http.StatusOK, signals.FallbackCalendar(time.Now()))
		return
	}
	writeJSON(w, r, http.StatusOK, block)
}

// HandleEmailSignals handles GET /api/email/signals. Optional maxResults
// query parameter caps the inbox scan. Failures fall back to canned
// signals, same contract as the calendar widget.
func (h *Handlers) HandleEmailSignals(w http.ResponseWriter, r *http.Request) {
	if h.email == nil {
		writeJSON(w, r, http.StatusOK, signals.FallbackEmailSignals(time.Now()))
		return
	}

	maxResults := signals.DefaultEmailResults
	if raw := r.URL.Query().Get("maxResults"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			maxResults = n
		}
	}

	sigs, err := h.email.Signals(r.Context(), maxResults)
	if err != nil {
		h.logger.Warn("email fetch failed, serving fallback",
			"error", err,
			"request_id", RequestIDFromContext(r.Context()))
		writeJSON(w, r, http.StatusOK, signals.FallbackEmailSignals(time.Now()))
		return
	}
	if sigs == nil {
		sigs = []signals.EmailSignal{}
	}
	writeJSON(w, r, http.StatusOK, sigs)
}

// HandleIntegrationsStatus handles GET /api/integrations/status.
func (h *Handlers) HandleIntegrationsStatus(w http.ResponseWriter, r *http.Request) {
	if h.connector == nil {
		writeJSON(w, r, http.StatusOK, signals.IntegrationStatus{})
		return
	}
	writeJSON(w, r, http.StatusOK, h.connector.Status(r.Context()))
}
