package signals

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultCalendarBaseURL = "https://www.googleapis.com/calendar/v3"

// CalendarService fetches the day's events from Google Calendar and
// derives busy and free windows.
type CalendarService struct {
	tokens     *TokenCache
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

// NewCalendarService creates a calendar signal source backed by the
// given token cache.
func NewCalendarService(tokens *TokenCache) *CalendarService {
	return &CalendarService{
		tokens:     tokens,
		baseURL:    defaultCalendarBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		now:        time.Now,
	}
}

type googleEventTime struct {
	DateTime string `json:"dateTime"`
	Date     string `json:"date"`
}

type googleEvent struct {
	ID       string          `json:"id"`
	Summary  string          `json:"summary"`
	Location string          `json:"location"`
	Status   string          `json:"status"`
	Start    googleEventTime `json:"start"`
	End      googleEventTime `json:"end"`
}

type googleEventList struct {
	Items []googleEvent `json:"items"`
}

// Events returns the events between timeMin and timeMax (defaulting to
// the current day) along with derived busy and free windows.
func (s *CalendarService) Events(ctx context.Context, timeMin, timeMax string) (CalendarBlock, error) {
	token, err := s.tokens.Token(ctx)
	if err != nil {
		return CalendarBlock{}, err
	}

	now := s.now()
	if timeMin == "" {
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		timeMin = start.Format(time.RFC3339)
	}
	if timeMax == "" {
		end := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, now.Location())
		timeMax = end.Format(time.RFC3339)
	}

	query := url.Values{}
	query.Set("timeMin", timeMin)
	query.Set("timeMax", timeMax)
	query.Set("singleEvents", "true")
	query.Set("orderBy", "startTime")
	query.Set("maxResults", "50")

	reqURL := s.baseURL + "/calendars/primary/events?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return CalendarBlock{}, fmt.Errorf("signals: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return CalendarBlock{}, fmt.Errorf("signals: fetch events: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return CalendarBlock{}, fmt.Errorf("signals: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return CalendarBlock{}, fmt.Errorf("signals: calendar status %d: %s", resp.StatusCode, string(body))
	}

	var list googleEventList
	if err := json.Unmarshal(body, &list); err != nil {
		return CalendarBlock{}, fmt.Errorf("signals: unmarshal events: %w", err)
	}

	events := make([]CalendarEvent, 0, len(list.Items))
	for _, e := range list.Items {
		title := e.Summary
		if title == "" {
			title = "Untitled"
		}
		status := e.Status
		if status == "" {
			status = "confirmed"
		}
		start := e.Start.DateTime
		if start == "" {
			start = e.Start.Date
		}
		end := e.End.DateTime
		if end == "" {
			end = e.End.Date
		}
		events = append(events, CalendarEvent{
			ID:       e.ID,
			Title:    title,
			Start:    start,
			End:      end,
			AllDay:   e.Start.DateTime == "",
			Location: e.Location,
			Status:   status,
		})
	}

	var busy []Window
	for _, e := range events {
		if !e.AllDay && e.Status == "confirmed" {
			busy = append(busy, Window{Start: e.Start, End: e.End})
		}
	}

	return CalendarBlock{
		Events:      events,
		BusyWindows: busy,
		FreeWindows: FreeWindows(busy, timeMin, timeMax),
	}, nil
}

// FreeWindows returns the gaps between busy windows inside the
// [dayStart, dayEnd] range. Overlapping busy windows are merged by
// advancing a cursor past the latest end seen; windows that do not parse
// as RFC 3339 are treated as covering nothing.
func FreeWindows(busy []Window, dayStart, dayEnd string) []Window {
	startT, errStart := time.Parse(time.RFC3339, dayStart)
	endT, errEnd := time.Parse(time.RFC3339, dayEnd)
	if errStart != nil || errEnd != nil {
		return nil
	}
	if len(busy) == 0 {
		return []Window{{Start: dayStart, End: dayEnd}}
	}

	type interval struct{ start, end time.Time }
	sorted := make([]interval, 0, len(busy))
	for _, w := range busy {
		s, err1 := time.Parse(time.RFC3339, w.Start)
		e, err2 := time.Parse(time.RFC3339, w.End)
		if err1 != nil || err2 != nil {
			continue
		}
		sorted = append(sorted, interval{s, e})
	}
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].start.Before(sorted[j-1].start); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	var free []Window
	cursor := startT
	for _, block := range sorted {
		if block.start.After(cursor) {
			free = append(free, Window{
				Start: cursor.Format(time.RFC3339),
				End:   block.start.Format(time.RFC3339),
			})
		}
		if block.end.After(cursor) {
			cursor = block.end
		}
	}
	if cursor.Before(endT) {
		free = append(free, Window{
			Start: cursor.Format(time.RFC3339),
			End:   endT.Format(time.RFC3339),
		})
	}
	return free
}

// formatDuration renders a window length as "2h 30m" style text for the
// fallback payload.
func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dm", m)
	}
}
