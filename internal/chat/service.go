package chat

import (
	"context"
	"log/slog"
	"strings"

	"github.com/relay-labs/relay/internal/model"
	"github.com/relay-labs/relay/internal/storage"
)

// ConversationDetail is a conversation with its full message history.
type ConversationDetail struct {
	model.Conversation
	Messages []model.Message `json:"messages"`
}

// ExchangeResult pairs the persisted user message with the assistant's
// persisted reply.
type ExchangeResult struct {
	UserMessage      model.Message `json:"user_message"`
	AssistantMessage model.Message `json:"assistant_message"`
}

// Service runs the conversation assistant on top of stored history and
// live console data.
type Service struct {
	db        *storage.DB
	completer Completer
	logger    *slog.Logger
}

// New creates a chat Service.
func New(db *storage.DB, completer Completer, logger *slog.Logger) *Service {
	return &Service{db: db, completer: completer, logger: logger}
}

// CreateConversation starts a conversation, defaulting the title.
func (s *Service) CreateConversation(ctx context.Context, title string) (model.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "New Chat"
	}
	return s.db.CreateConversation(ctx, title)
}

// ListConversations returns all conversations, newest first.
func (s *Service) ListConversations(ctx context.Context) ([]model.Conversation, error) {
	return s.db.ListConversations(ctx)
}

// GetConversation returns one conversation with its messages in order.
func (s *Service) GetConversation(ctx context.Context, id int) (ConversationDetail, error) {
	conv, err := s.db.GetConversation(ctx, id)
	if err != nil {
		return ConversationDetail{}, err
	}
	messages, err := s.db.ListMessages(ctx, id)
	if err != nil {
		return ConversationDetail{}, err
	}
	if messages == nil {
		messages = []model.Message{}
	}
	return ConversationDetail{Conversation: conv, Messages: messages}, nil
}

// ListMessages returns a conversation's messages in order.
func (s *Service) ListMessages(ctx context.Context, conversationID int) ([]model.Message, error) {
	if _, err := s.db.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	messages, err := s.db.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []model.Message{}
	}
	return messages, nil
}

// DeleteConversation removes a conversation and its messages.
func (s *Service) DeleteConversation(ctx context.Context, id int) error {
	return s.db.DeleteConversation(ctx, id)
}

// SendMessage stores the user's message, completes a reply over the
// conversation history plus a system prompt built from live console
// data, and stores the reply. The user message persists even when the
// completion fails, so a retried send does not lose history.
func (s *Service) SendMessage(ctx context.Context, conversationID int, content string) (ExchangeResult, error) {
	if _, err := s.db.GetConversation(ctx, conversationID); err != nil {
		return ExchangeResult{}, err
	}

	userMsg, err := s.db.CreateMessage(ctx, conversationID, model.ChatRoleUser, strings.TrimSpace(content))
	if err != nil {
		return ExchangeResult{}, err
	}

	history, err := s.db.ListMessages(ctx, conversationID)
	if err != nil {
		return ExchangeResult{}, err
	}

	prompt, err := s.systemPrompt(ctx)
	if err != nil {
		return ExchangeResult{}, err
	}

	transcript := make([]PromptMessage, 0, len(history)+1)
	transcript = append(transcript, PromptMessage{Role: model.ChatRoleSystem, Content: prompt})
	for _, m := range history {
		transcript = append(transcript, PromptMessage{Role: m.Role, Content: m.Content})
	}

	reply, err := s.completer.Complete(ctx, transcript)
	if err != nil {
		s.logger.Error("chat completion failed",
			slog.Int("conversation_id", conversationID),
			slog.String("error", err.Error()))
		return ExchangeResult{}, err
	}

	assistantMsg, err := s.db.CreateMessage(ctx, conversationID, model.ChatRoleAssistant, reply)
	if err != nil {
		return ExchangeResult{}, err
	}

	return ExchangeResult{UserMessage: userMsg, AssistantMessage: assistantMsg}, nil
}

func (s *Service) systemPrompt(ctx context.Context) (string, error) {
	robots, err := s.db.ListRobots(ctx)
	if err != nil {
		return "", err
	}
	runs, err := s.db.ListRuns(ctx)
	if err != nil {
		return "", err
	}
	journal, err := s.db.ListJournalEntries(ctx, nil)
	if err != nil {
		return "", err
	}
	return BuildSystemPrompt(robots, runs, journal), nil
}
