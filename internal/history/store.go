// Package history archives cleaned pane transcripts per project. Each
// project gets a directory of date-partitioned markdown day files plus a
// JSON index; the store is the only writer of those files. All disk I/O is
// best-effort: failures degrade to empty results and a log entry, never an
// error that could stall pane I/O.
package history

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/twistedxcom/paneterm/internal/logging"
)

var log = logging.ForComponent(logging.CompHistory)

const (
	// MarkerFileName is the hidden per-project identity file.
	MarkerFileName = ".paneterm-project"

	// IndexFileName is the per-project JSON index.
	IndexFileName = "index.json"

	// EphemeralPrefix marks project ids that must never be persisted.
	EphemeralPrefix = "ephemeral-"

	// recordMarker starts every exchange record; counting it in a day
	// file yields the exchange count.
	recordMarker = "### "

	// previewCap bounds index preview text length in runes.
	previewCap = 160
)

// ExchangeKind distinguishes user input from pane output.
type ExchangeKind string

const (
	KindInput  ExchangeKind = "input"
	KindOutput ExchangeKind = "output"
)

// Exchange is one recorded unit of conversation text.
type Exchange struct {
	Time    string       `json:"time"`
	PaneID  int          `json:"pane_id"`
	Kind    ExchangeKind `json:"kind"`
	Content string       `json:"content"`
}

// SessionEntry is one day-file summary in the project index.
type SessionEntry struct {
	Date          string `json:"date"`
	File          string `json:"file"`
	Size          int64  `json:"size"`
	Preview       string `json:"preview"`
	ExchangeCount int    `json:"exchange_count"`
}

// Store owns the transcript archive rooted at one directory.
type Store struct {
	root       string
	sessionGap time.Duration

	mu     sync.Mutex
	queues map[string][]string

	// ioMu serializes index read-modify-write per store so two flushes
	// cannot race on index files.
	ioMu sync.Mutex

	now func() time.Time
}

// NewStore creates a store rooted at dir. sessionGap is the inactivity
// threshold after which a flush prepends a fresh session header.
func NewStore(dir string, sessionGap time.Duration) *Store {
	if sessionGap <= 0 {
		sessionGap = 30 * time.Minute
	}
	return &Store{
		root:       dir,
		sessionGap: sessionGap,
		queues:     make(map[string][]string),
		now:        time.Now,
	}
}

// Append formats one exchange record onto the project's in-memory queue.
// Never touches disk. Ephemeral project ids are silently discarded.
func (st *Store) Append(projectID string, paneID int, kind ExchangeKind, content string) {
	if projectID == "" || strings.HasPrefix(projectID, EphemeralPrefix) {
		return
	}

	record := formatRecord(st.now(), paneID, kind, content)

	st.mu.Lock()
	st.queues[projectID] = append(st.queues[projectID], record)
	st.mu.Unlock()

	logging.Aggregate(logging.CompHistory, "exchange_queued", slog.String("kind", string(kind)))
}

// Flush drains every non-empty project queue to its day file and updates
// the index. Invoked periodically and once synchronously at shutdown.
// A flush with nothing queued is a no-op: no header, no file growth.
func (st *Store) Flush() {
	st.mu.Lock()
	pending := st.queues
	st.queues = make(map[string][]string)
	st.mu.Unlock()

	for projectID, records := range pending {
		if len(records) == 0 {
			continue
		}
		st.flushProject(projectID, records)
	}
}

// QueuedExchanges reports how many records are waiting for a project.
func (st *Store) QueuedExchanges(projectID string) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.queues[projectID])
}

// flushProject appends queued records to today's day file, prepending a
// session header when the file is new or stale, then refreshes the index
// entry. Failures are logged and absorbed; the records are dropped.
func (st *Store) flushProject(projectID string, records []string) {
	st.ioMu.Lock()
	defer st.ioMu.Unlock()

	dir := st.projectDir(projectID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		log.Error("flush_mkdir_failed", slog.String("project", projectID), slog.String("error", err.Error()))
		return
	}

	date := st.now().Format("2006-01-02")
	fileName := date + ".md"
	path := filepath.Join(dir, fileName)

	var text strings.Builder
	if st.needsSessionHeader(path) {
		text.WriteString(sessionHeader(st.now()))
	}
	for _, r := range records {
		text.WriteString(r)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		log.Error("flush_open_failed", slog.String("project", projectID), slog.String("error", err.Error()))
		return
	}
	_, werr := f.WriteString(text.String())
	cerr := f.Close()
	if werr != nil || cerr != nil {
		log.Error("flush_write_failed", slog.String("project", projectID))
		return
	}

	st.updateIndexEntry(projectID, date, fileName, path)
}

// needsSessionHeader reports whether the day file is absent or has been
// inactive longer than the session gap.
func (st *Store) needsSessionHeader(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return true
	}
	return st.now().Sub(info.ModTime()) > st.sessionGap
}

// sessionHeader renders the readable block that opens each session.
func sessionHeader(at time.Time) string {
	return fmt.Sprintf("## Session — %s\n\n", at.Format("Monday, January 2, 2006 at 15:04"))
}

// formatRecord renders one exchange: local time label, pane label, kind,
// fenced verbatim content.
func formatRecord(at time.Time, paneID int, kind ExchangeKind, content string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s%s · pane %d · %s\n\n", recordMarker, at.Format("15:04:05"), paneID, kind)
	b.WriteString("```text\n")
	b.WriteString(content)
	if !strings.HasSuffix(content, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("```\n\n")
	return b.String()
}

// recordHeaderPattern parses the first line of a formatted record.
var recordHeaderPattern = regexp.MustCompile(`^### (\d{2}:\d{2}:\d{2}) · pane (\d+) · (input|output)$`)

// countExchanges counts record start markers in a day file's content.
func countExchanges(content string) int {
	count := strings.Count(content, "\n"+recordMarker)
	if strings.HasPrefix(content, recordMarker) {
		count++
	}
	return count
}

// previewFromTail produces the index preview: the tail of the file with
// markdown syntax stripped, whitespace collapsed, and length capped.
func previewFromTail(content string) string {
	lines := strings.Split(content, "\n")
	var kept []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			continue
		case strings.HasPrefix(trimmed, "```"):
			continue
		case strings.HasPrefix(trimmed, "#"):
			continue
		}
		kept = append(kept, trimmed)
	}
	joined := strings.Join(kept, " ")

	runes := []rune(joined)
	if len(runes) > previewCap {
		runes = runes[len(runes)-previewCap:]
	}
	return string(runes)
}

func (st *Store) projectDir(projectID string) string {
	return filepath.Join(st.root, projectID)
}
