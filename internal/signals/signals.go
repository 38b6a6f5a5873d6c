// Package signals surfaces calendar and email context from OAuth-connected
// Google services. These are advisory widgets: every fetch has a
// deterministic fallback payload, and a broken integration never fails a
// request.
package signals

// CalendarEvent is one calendar entry in the day view.
type CalendarEvent struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Start       string `json:"start"`
	End         string `json:"end"`
	AllDay      bool   `json:"allDay,omitempty"`
	Location    string `json:"location,omitempty"`
	Status      string `json:"status,omitempty"`
	Type        string `json:"type,omitempty"`
	StressLevel string `json:"stress_level,omitempty"`
}

// Window is a half-open time interval in RFC 3339 text.
type Window struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Duration string `json:"duration,omitempty"`
}

// CalendarBlock is the calendar widget payload: events plus derived
// busy/free windows for the queried range.
type CalendarBlock struct {
	Events      []CalendarEvent `json:"events"`
	BusyWindows []Window        `json:"busyWindows,omitempty"`
	FreeWindows []Window        `json:"freeWindows"`
	Source      string          `json:"source,omitempty"`
}

// EmailCategory classifies an email signal by intent.
type EmailCategory string

const (
	CategoryDelivery    EmailCategory = "delivery"
	CategoryEventInvite EmailCategory = "event_invite"
	CategoryReservation EmailCategory = "reservation"
	CategoryUrgent      EmailCategory = "urgent"
	CategoryNewsletter  EmailCategory = "newsletter"
	CategoryGeneral     EmailCategory = "general"
)

// EmailSignal is one classified inbox item.
type EmailSignal struct {
	ID         string        `json:"id"`
	From       string        `json:"from"`
	Subject    string        `json:"subject"`
	Date       string        `json:"date"`
	Snippet    string        `json:"snippet"`
	Category   EmailCategory `json:"category"`
	Labels     []string      `json:"labels,omitempty"`
	Confidence float64       `json:"confidence,omitempty"`
	Actionable bool          `json:"actionable,omitempty"`
}

// IntegrationStatus reports which external connections are usable.
type IntegrationStatus struct {
	Calendar bool `json:"calendar"`
	Gmail    bool `json:"gmail"`
}
