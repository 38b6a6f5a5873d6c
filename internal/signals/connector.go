package signals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Connector names understood by the settings service.
const (
	ConnectorCalendar = "google-calendar"
	ConnectorGmail    = "google-mail"
)

// ErrNotConnected is returned when a connector has no usable credential.
var ErrNotConnected = errors.New("signals: integration not connected")

// Connector retrieves OAuth credentials for external integrations from a
// connector settings service. An empty base URL means no service is
// configured and every lookup reports not connected.
type Connector struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

// NewConnector creates a connector settings client.
func NewConnector(baseURL, authToken string) *Connector {
	return &Connector{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authToken:  authToken,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type connectorSettings struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   string `json:"expires_at"`
	OAuth       *struct {
		Credentials struct {
			AccessToken string `json:"access_token"`
		} `json:"credentials"`
	} `json:"oauth"`
}

type connectorResponse struct {
	Items []struct {
		Settings connectorSettings `json:"settings"`
	} `json:"items"`
}

// AccessToken fetches the OAuth access token for the named connector.
// The returned expiry is zero when the service does not report one.
func (c *Connector) AccessToken(ctx context.Context, name string) (string, time.Time, error) {
	settings, err := c.lookup(ctx, name, true)
	if err != nil {
		return "", time.Time{}, err
	}

	token := settings.AccessToken
	if token == "" && settings.OAuth != nil {
		token = settings.OAuth.Credentials.AccessToken
	}
	if token == "" {
		return "", time.Time{}, fmt.Errorf("%w: %s", ErrNotConnected, name)
	}

	var expires time.Time
	if settings.ExpiresAt != "" {
		if t, err := time.Parse(time.RFC3339, settings.ExpiresAt); err == nil {
			expires = t
		}
	}
	return token, expires, nil
}

// Connected reports whether the named connector has a usable credential.
func (c *Connector) Connected(ctx context.Context, name string) bool {
	settings, err := c.lookup(ctx, name, false)
	if err != nil {
		return false
	}
	return settings.AccessToken != "" || (settings.OAuth != nil && settings.OAuth.Credentials.AccessToken != "")
}

// TokenSource returns a TokenFetcher bound to one connector, suitable
// for wrapping in a TokenCache.
func (c *Connector) TokenSource(name string) TokenFetcher {
	return func(ctx context.Context) (string, time.Time, error) {
		return c.AccessToken(ctx, name)
	}
}

func (c *Connector) lookup(ctx context.Context, name string, includeSecrets bool) (connectorSettings, error) {
	if c.baseURL == "" || c.authToken == "" {
		return connectorSettings{}, fmt.Errorf("%w: connector service not configured", ErrNotConnected)
	}

	url := fmt.Sprintf("%s/api/v2/connection?include_secrets=%t&connector_names=%s",
		c.baseURL, includeSecrets, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return connectorSettings{}, fmt.Errorf("signals: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return connectorSettings{}, fmt.Errorf("signals: fetch connection: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return connectorSettings{}, fmt.Errorf("signals: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return connectorSettings{}, fmt.Errorf("signals: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var result connectorResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return connectorSettings{}, fmt.Errorf("signals: unmarshal response: %w", err)
	}
	if len(result.Items) == 0 {
		return connectorSettings{}, fmt.Errorf("%w: %s", ErrNotConnected, name)
	}
	return result.Items[0].Settings, nil
}

// Status checks both integrations. Lookup errors degrade to a
// disconnected report, never to a request failure.
func (c *Connector) Status(ctx context.Context) IntegrationStatus {
	return IntegrationStatus{
		Calendar: c.Connected(ctx, ConnectorCalendar),
		Gmail:    c.Connected(ctx, ConnectorGmail),
	}
}
