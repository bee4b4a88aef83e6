package game

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ExportMatch appends a finished match's outcome to a results file. Purely
// an audit log; nothing is ever read back.
func ExportMatch(r *Room, term *TerminalInfo, filename string) error {
	if term == nil {
		return fmt.Errorf("no terminal result to export")
	}

	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	snap := r.Snapshot()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Match %s (%s)\n", snap.RoomID, snap.GameType))
	sb.WriteString(fmt.Sprintf("Finished: %s\n", time.Now().Format("2006-01-02 15:04:05")))

	names := make([]string, len(snap.Participants))
	for i, p := range snap.Participants {
		names[i] = p.Name
	}
	sb.WriteString(fmt.Sprintf("Players: %s\n", strings.Join(names, ", ")))

	switch {
	case term.Winner != "":
		sb.WriteString(fmt.Sprintf("Winner: %s\n", term.Winner))
	case term.Draw:
		sb.WriteString("Result: draw\n")
	default:
		sb.WriteString(fmt.Sprintf("Result: %s (score %d)\n", term.Kind, term.Score))
	}
	if len(snap.Chat) > 0 {
		sb.WriteString(fmt.Sprintf("Chat messages: %d\n", len(snap.Chat)))
	}
	sb.WriteString(strings.Repeat("-", 40) + "\n")

	if _, err := file.WriteString(sb.String()); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}
	return nil
}
