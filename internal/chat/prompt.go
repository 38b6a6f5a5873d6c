package chat

import (
	"fmt"
	"strings"

	"github.com/relay-labs/relay/internal/model"
)

const (
	recentRunLimit     = 10
	recentJournalLimit = 5
	summarySnippetLen  = 100
)

// BuildSystemPrompt renders the assistant's system prompt from live
// console data. Pure string assembly; callers fetch the inputs.
func BuildSystemPrompt(robots []model.RobotProfile, runs []model.Run, journal []model.JournalEntry) string {
	recentRuns := runs
	if len(recentRuns) > recentRunLimit {
		recentRuns = recentRuns[:recentRunLimit]
	}
	recentJournal := journal
	if len(recentJournal) > recentJournalLimit {
		recentJournal = recentJournal[:recentJournalLimit]
	}

	var active []model.Run
	completed := 0
	for _, r := range runs {
		switch r.Status {
		case model.RunStatusQueued, model.RunStatusProcessing:
			active = append(active, r)
		case model.RunStatusComplete:
			completed++
		}
	}

	var b strings.Builder
	b.WriteString("You are Relay Assistant, a helpful and calm AI companion inside the Relay robot companion console. ")
	b.WriteString("You help users understand their robot operations, plan tasks, review run results, and make decisions about their robots.\n\n")
	b.WriteString("You have access to the following live data from the system:\n\n")

	fmt.Fprintf(&b, "ROBOTS (%d total):\n", len(robots))
	for _, r := range robots {
		fmt.Fprintf(&b, "- %s (mode: %s, safety: %s)\n", r.Name, r.Mode, r.SafetyLevel)
	}

	fmt.Fprintf(&b, "\nACTIVE TASKS (%d):\n", len(active))
	if len(active) == 0 {
		b.WriteString("No active tasks right now.\n")
	}
	for _, r := range active {
		fmt.Fprintf(&b, "- %q (status: %s, urgency: %d)\n", r.Command, r.Status, r.Urgency)
	}

	fmt.Fprintf(&b, "\nRECENT RUNS (last %d):\n", len(recentRuns))
	for _, r := range recentRuns {
		fmt.Fprintf(&b, "- %q - %s", r.Command, r.Status)
		if r.AISummary != nil && r.AISummary.RunSummary != "" {
			fmt.Fprintf(&b, " | Summary: %s", truncate(r.AISummary.RunSummary, summarySnippetLen))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nJOURNAL ENTRIES (last %d):\n", len(recentJournal))
	for _, j := range recentJournal {
		fmt.Fprintf(&b, "- %q (mood: %s)", j.Title, j.Mood)
		if len(j.Suggestions) > 0 {
			fmt.Fprintf(&b, " | Suggestion: %s", j.Suggestions[0])
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nSTATS:\n- Total completed runs: %d\n- Total robots: %d\n", completed, len(robots))

	b.WriteString(`
Guidelines:
- Be warm, supportive, and concise
- Help users prioritize tasks and understand robot performance
- Suggest improvements based on run history and journal insights
- If asked about support plans, reference the daily micro-actions (walks, hydration, meeting prep)
- Keep responses focused and actionable
- Use simple language, avoid jargon`)

	return b.String()
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
