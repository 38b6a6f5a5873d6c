package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/relay-labs/relay/internal/model"
)

const journalColumns = `id, robot_id, title, mood, highlights, actions_taken, suggestions, content, created_at`

func scanJournalEntry(row scannable) (model.JournalEntry, error) {
	var e model.JournalEntry
	err := row.Scan(
		&e.ID, &e.RobotID, &e.Title, &e.Mood, &e.Highlights,
		&e.ActionsTaken, &e.Suggestions, &e.Content, &e.CreatedAt,
	)
	return e, err
}

// CreateJournalEntry inserts a new journal entry and returns it.
func (db *DB) CreateJournalEntry(ctx context.Context, req model.CreateJournalEntryRequest) (model.JournalEntry, error) {
	entry := model.JournalEntry{
		ID:           uuid.New(),
		RobotID:      req.RobotID,
		Title:        req.Title,
		Mood:         req.Mood,
		Highlights:   req.Highlights,
		ActionsTaken: req.ActionsTaken,
		Suggestions:  req.Suggestions,
		Content:      req.Content,
		CreatedAt:    time.Now().UTC(),
	}
	if entry.Highlights == nil {
		entry.Highlights = []string{}
	}
	if entry.ActionsTaken == nil {
		entry.ActionsTaken = []string{}
	}
	if entry.Suggestions == nil {
		entry.Suggestions = []string{}
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO journal_entries (id, robot_id, title, mood, highlights, actions_taken, suggestions, content, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, entry.RobotID, entry.Title, string(entry.Mood),
		entry.Highlights, entry.ActionsTaken, entry.Suggestions,
		entry.Content, entry.CreatedAt,
	)
	if err != nil {
		return model.JournalEntry{}, fmt.Errorf("storage: create journal entry: %w", err)
	}
	return entry, nil
}

// GetJournalEntry retrieves a journal entry by ID.
func (db *DB) GetJournalEntry(ctx context.Context, id uuid.UUID) (model.JournalEntry, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+journalColumns+` FROM journal_entries WHERE id = $1`, id)
	entry, err := scanJournalEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.JournalEntry{}, fmt.Errorf("%w: %s", ErrJournalEntryNotFound, id)
		}
		return model.JournalEntry{}, fmt.Errorf("storage: get journal entry: %w", err)
	}
	return entry, nil
}

// ListJournalEntries returns journal entries, newest first. When robotID is
// non-nil only that robot's entries are returned.
func (db *DB) ListJournalEntries(ctx context.Context, robotID *uuid.UUID) ([]model.JournalEntry, error) {
	query := `SELECT ` + journalColumns + ` FROM journal_entries ORDER BY created_at DESC`
	args := []any{}
	if robotID != nil {
		query = `SELECT ` + journalColumns + ` FROM journal_entries WHERE robot_id = $1 ORDER BY created_at DESC`
		args = append(args, *robotID)
	}

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list journal entries: %w", err)
	}
	defer rows.Close()

	var entries []model.JournalEntry
	for rows.Next() {
		e, err := scanJournalEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan journal entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
