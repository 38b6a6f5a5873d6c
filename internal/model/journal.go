package model

import (
	"time"

	"github.com/google/uuid"
)

// Mood is the overall tone of a journal entry.
type Mood string

const (
	MoodPositive Mood = "positive"
	MoodNeutral  Mood = "neutral"
	MoodTired    Mood = "tired"
	MoodStressed Mood = "stressed"
)

// JournalEntry is a retrospective note attached to a robot. Entries are
// created out of band (seed data or manual), not by the run pipeline.
type JournalEntry struct {
	ID           uuid.UUID `json:"id"`
	RobotID      uuid.UUID `json:"robot_id"`
	Title        string    `json:"title"`
	Mood         Mood      `json:"mood"`
	Highlights   []string  `json:"highlights"`
	ActionsTaken []string  `json:"actions_taken"`
	Suggestions  []string  `json:"suggestions"`
	Content      *string   `json:"content,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
