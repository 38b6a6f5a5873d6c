package signals

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultGmailBaseURL = "https://gmail.googleapis.com/gmail/v1"

// DefaultEmailResults bounds how many inbox items one fetch classifies.
const DefaultEmailResults = 15

// EmailService fetches recent inbox items from Gmail and classifies
// them into signal categories.
type EmailService struct {
	tokens     *TokenCache
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewEmailService creates an email signal source backed by the given
// token cache.
func NewEmailService(tokens *TokenCache, logger *slog.Logger) *EmailService {
	return &EmailService{
		tokens:     tokens,
		baseURL:    defaultGmailBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

type gmailMessageRef struct {
	ID string `json:"id"`
}

type gmailList struct {
	Messages []gmailMessageRef `json:"messages"`
}

type gmailHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type gmailMessage struct {
	Snippet  string   `json:"snippet"`
	LabelIDs []string `json:"labelIds"`
	Payload  struct {
		Headers []gmailHeader `json:"headers"`
	} `json:"payload"`
}

// Signals returns up to maxResults classified messages from the last
// two days. A message that fails to fetch is logged and skipped; only a
// failed listing fails the whole call.
func (s *EmailService) Signals(ctx context.Context, maxResults int) ([]EmailSignal, error) {
	if maxResults <= 0 {
		maxResults = DefaultEmailResults
	}

	token, err := s.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("maxResults", strconv.Itoa(maxResults))
	query.Set("q", "newer_than:2d")

	var list gmailList
	if err := s.get(ctx, token, "/users/me/messages?"+query.Encode(), &list); err != nil {
		return nil, err
	}

	signals := make([]EmailSignal, 0, len(list.Messages))
	for _, ref := range list.Messages {
		if len(signals) >= maxResults {
			break
		}

		detailPath := "/users/me/messages/" + ref.ID +
			"?format=metadata&metadataHeaders=From&metadataHeaders=Subject&metadataHeaders=Date"
		var msg gmailMessage
		if err := s.get(ctx, token, detailPath, &msg); err != nil {
			s.logger.Warn("failed to fetch message",
				slog.String("message_id", ref.ID),
				slog.String("error", err.Error()))
			continue
		}

		from := headerValue(msg.Payload.Headers, "From")
		subject := headerValue(msg.Payload.Headers, "Subject")
		if subject == "" {
			subject = "(no subject)"
		}

		signals = append(signals, EmailSignal{
			ID:       ref.ID,
			From:     SenderName(from),
			Subject:  subject,
			Date:     headerValue(msg.Payload.Headers, "Date"),
			Snippet:  msg.Snippet,
			Category: Classify(from, subject, msg.Snippet, msg.LabelIDs),
			Labels:   msg.LabelIDs,
		})
	}
	return signals, nil
}

func (s *EmailService) get(ctx context.Context, token, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("signals: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("signals: fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("signals: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("signals: gmail status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("signals: unmarshal response: %w", err)
	}
	return nil
}

func headerValue(headers []gmailHeader, name string) string {
	for _, h := range headers {
		if h.Name == name {
			return h.Value
		}
	}
	return ""
}

// Classify buckets an email by keyword matching over its sender,
// subject, and snippet. Categories are checked in priority order;
// delivery beats urgency beats newsletter.
func Classify(from, subject, snippet string, labels []string) EmailCategory {
	lower := strings.ToLower(subject + " " + snippet + " " + from)

	if containsAny(lower, "shipped", "delivered", "tracking", "out for delivery", "package", "order confirmed") {
		return CategoryDelivery
	}
	if containsAny(lower, "invitation", "invite", "rsvp", "you're invited", "calendar") {
		return CategoryEventInvite
	}
	if containsAny(lower, "reservation", "booking", "confirmed reservation", "check-in", "check in", "hotel", "flight") {
		return CategoryReservation
	}
	important := false
	for _, l := range labels {
		if l == "IMPORTANT" {
			important = true
		}
	}
	if important || containsAny(lower, "urgent", "asap", "action required", "immediately") {
		return CategoryUrgent
	}
	if containsAny(lower, "unsubscribe", "newsletter", "weekly digest") {
		return CategoryNewsletter
	}
	return CategoryGeneral
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// SenderName extracts a display name from an RFC 5322 From header,
// falling back to the local part of a bare address.
func SenderName(from string) string {
	if from == "" {
		return ""
	}
	if i := strings.IndexByte(from, '<'); i > 0 {
		name := strings.Trim(strings.TrimSpace(from[:i]), `"`)
		if name != "" {
			return strings.TrimSpace(name)
		}
	}
	addr := strings.Trim(from, "<>")
	if i := strings.IndexByte(addr, '@'); i > 0 {
		return addr[:i]
	}
	return from
}
