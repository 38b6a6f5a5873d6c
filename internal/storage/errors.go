package storage

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("storage: not found")

// Per-entity not-found errors wrap ErrNotFound so callers can use
// errors.Is(err, ErrNotFound) generically or match a specific entity.
var (
	ErrRobotNotFound        = fmt.Errorf("storage: robot: %w", ErrNotFound)
	ErrRunNotFound          = fmt.Errorf("storage: run: %w", ErrNotFound)
	ErrJournalEntryNotFound = fmt.Errorf("storage: journal entry: %w", ErrNotFound)
	ErrConversationNotFound = fmt.Errorf("storage: conversation: %w", ErrNotFound)
)
