// Package transcript persists display-surface content to timestamped log
// files. Saving is best-effort: a failed write is reported to the caller and
// never disturbs the in-memory transcript.
package transcript

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rkowalczyk/chatpane/internal/surface"
)

const fileTimestampLayout = "2006-01-02_15-04-05"

// Logger writes transcripts into a single log directory, created on demand.
type Logger struct {
	dir string

	// Now feeds the filename timestamp; tests pin it.
	Now func() time.Time
}

// NewLogger returns a Logger rooted at dir.
func NewLogger(dir string) *Logger {
	return &Logger{dir: dir, Now: time.Now}
}

// Dir returns the configured log directory.
func (l *Logger) Dir() string { return l.dir }

// Save writes the given surface content to <dir>/<label>.<timestamp>.log.
// The trailing waiting placeholder (and one blank line before it) is stripped
// first. When nothing remains, no file is created and the returned path is
// empty.
func (l *Logger) Save(lines []string, label string) (string, error) {
	cleaned := CleanLines(lines)
	if !hasContent(cleaned) {
		return "", nil
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return "", fmt.Errorf("create log directory: %w", err)
	}
	name := fmt.Sprintf("%s.%s.log", label, l.Now().Format(fileTimestampLayout))
	path := filepath.Join(l.dir, name)
	data := strings.Join(cleaned, "\n") + "\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		return "", fmt.Errorf("write transcript: %w", err)
	}
	return path, nil
}

// CleanLines strips the waiting placeholder from the end of a transcript,
// along with the single blank line that precedes it.
func CleanLines(lines []string) []string {
	out := append([]string(nil), lines...)
	if len(out) > 0 && out[len(out)-1] == surface.WaitingPlaceholder {
		out = out[:len(out)-1]
		if len(out) > 0 && strings.TrimSpace(out[len(out)-1]) == "" {
			out = out[:len(out)-1]
		}
	}
	return out
}

func hasContent(lines []string) bool {
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			return true
		}
	}
	return false
}
