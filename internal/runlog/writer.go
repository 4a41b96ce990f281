// Package runlog appends a human-readable record of every processed
// candidate to a local text file.
package runlog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/aitools-scraper/pkg/db/models"
)

const rule = "===================="

// Entry is one run log record. User and Tool are omitted when nil; Outcome
// is only written when set.
type Entry struct {
	User    *models.User
	Tool    *models.Tool
	Outcome string
}

// Writer serializes entries onto an append-only stream.
type Writer struct {
	mu     sync.Mutex
	out    io.Writer
	closer io.Closer
	now    func() time.Time
}

// Open appends to path, creating it when missing.
func Open(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening run log %s: %w", path, err)
	}
	w := New(f)
	w.closer = f
	return w, nil
}

func New(out io.Writer) *Writer {
	return &Writer{out: out, now: time.Now}
}

// Discard returns a writer that drops every entry.
func Discard() *Writer {
	return New(io.Discard)
}

func (w *Writer) Write(entry Entry) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s NEW ENTRY: %s %s\n\n", rule, w.now().Format(time.RFC3339), rule)

	if entry.User != nil {
		if err := writeDocument(&buf, "USER DOCUMENT", entry.User); err != nil {
			return err
		}
	}
	if entry.Tool != nil {
		if err := writeDocument(&buf, "TOOL DOCUMENT", entry.Tool); err != nil {
			return err
		}
	}
	if outcome := strings.TrimSpace(entry.Outcome); outcome != "" {
		fmt.Fprintf(&buf, "--- OUTCOME ---\n%s\n\n", outcome)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.out.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing run log entry: %w", err)
	}
	return nil
}

func writeDocument(buf *bytes.Buffer, title string, doc any) error {
	body, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", strings.ToLower(title), err)
	}
	fmt.Fprintf(buf, "--- %s ---\n", title)
	buf.Write(body)
	buf.WriteString("\n\n")
	return nil
}

func (w *Writer) Close() error {
	if w.closer == nil {
		return nil
	}
	return w.closer.Close()
}
