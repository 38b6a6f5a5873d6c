// Package chat provides the console's conversation assistant.
//
// Defines a Completer interface and an OpenAI-compatible implementation.
// The interface allows substituting a static responder when no model
// endpoint is configured, and a scripted one in tests.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/relay-labs/relay/internal/model"
)

// PromptMessage is one turn of the conversation sent to the model.
type PromptMessage struct {
	Role    model.ChatRole `json:"role"`
	Content string         `json:"content"`
}

// Completer generates an assistant reply from a conversation transcript.
type Completer interface {
	Complete(ctx context.Context, messages []PromptMessage) (string, error)
}

// OpenAIClient completes chats against an OpenAI-compatible endpoint.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOpenAIClient creates a completion client. baseURL should include
// the version prefix, e.g. https://api.openai.com/v1.
func NewOpenAIClient(apiKey, baseURL, model string) *OpenAIClient {
	return &OpenAIClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{},
	}
}

type completionRequest struct {
	Model     string          `json:"model"`
	Messages  []PromptMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends the transcript and returns the assistant's reply.
func (c *OpenAIClient) Complete(ctx context.Context, messages []PromptMessage) (string, error) {
	reqBody, err := json.Marshal(completionRequest{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: 1024,
	})
	if err != nil {
		return "", fmt.Errorf("chat: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("chat: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat: send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("chat: read response: %w", err)
	}

	var result completionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("chat: unmarshal response: %w", err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("chat: completion error: %s: %s", result.Error.Type, result.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat: unexpected status %d: %s", resp.StatusCode, string(body))
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("chat: response has no choices")
	}
	return result.Choices[0].Message.Content, nil
}

// StaticCompleter answers every message with a fixed reply. Used when no
// completion endpoint is configured.
type StaticCompleter struct {
	Reply string
}

// NewStaticCompleter creates a completer with the default unconfigured
// notice.
func NewStaticCompleter() *StaticCompleter {
	return &StaticCompleter{
		Reply: "The chat assistant is not configured. Set an API key to enable live responses.",
	}
}

// Complete returns the fixed reply.
func (s *StaticCompleter) Complete(_ context.Context, _ []PromptMessage) (string, error) {
	return s.Reply, nil
}
