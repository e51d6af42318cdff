// Package inbox appends per-agent message records as JSON lines under
// agents/<name>/inbox.jsonl in the home directory.
package inbox

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Entry is one inbox line.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	From      string    `json:"from"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
}

// Writer appends inbox entries. Safe for sequential use by the watcher; the
// file is opened per append so concurrent CLI reads see complete lines.
type Writer struct {
	agentsDir string
	now       func() time.Time
}

func NewWriter(agentsDir string) *Writer {
	return &Writer{agentsDir: agentsDir, now: time.Now}
}

// Append writes one entry to the agent's inbox log, creating the directory
// on first use.
func (w *Writer) Append(agentName string, e Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = w.now().UTC()
	}
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode inbox entry: %w", err)
	}

	dir := filepath.Join(w.agentsDir, strings.ToLower(agentName))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create inbox dir: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(dir, "inbox.jsonl"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open inbox log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append inbox entry: %w", err)
	}
	return nil
}

// Path returns the agent's inbox log location.
func (w *Writer) Path(agentName string) string {
	return filepath.Join(w.agentsDir, strings.ToLower(agentName), "inbox.jsonl")
}
