package history

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// searchContextBefore and searchContextAfter define the context window
// emitted around each matching line.
const (
	searchContextBefore = 2
	searchContextAfter  = 3
)

// DefaultSearchLimit is the match budget when the caller passes none.
const DefaultSearchLimit = 50

// SearchMatch is one non-overlapping context block around a matching line.
type SearchMatch struct {
	Date    string `json:"date"`
	Line    int    `json:"line"`
	Context string `json:"context"`
}

// Search scans a project's day files newest-first for case-insensitive
// substring matches, emitting a context window of two lines before and
// three after each match, then skipping past the window so blocks never
// overlap. The budget applies across all files; limit <= 0 means
// DefaultSearchLimit. Failures yield whatever was collected so far.
func (st *Store) Search(projectID, query string, limit int) []SearchMatch {
	if query == "" || IsEphemeral(projectID) {
		return []SearchMatch{}
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	matches := []SearchMatch{}
	queryLower := strings.ToLower(query)

	for _, date := range st.dayFilesNewestFirst(projectID) {
		if len(matches) >= limit {
			break
		}
		content := st.DayContent(projectID, date)
		if content == "" {
			continue
		}

		lines := strings.Split(content, "\n")
		i := 0
		for i < len(lines) && len(matches) < limit {
			if !strings.Contains(strings.ToLower(lines[i]), queryLower) {
				i++
				continue
			}

			start := i - searchContextBefore
			if start < 0 {
				start = 0
			}
			end := i + searchContextAfter + 1
			if end > len(lines) {
				end = len(lines)
			}

			matches = append(matches, SearchMatch{
				Date:    date,
				Line:    i + 1,
				Context: strings.Join(lines[start:end], "\n"),
			})

			// Advance past the emitted window.
			i = end
		}
	}

	return matches
}

// dayFilesNewestFirst lists the project's day-file dates in descending
// order. ISO dates sort lexically.
func (st *Store) dayFilesNewestFirst(projectID string) []string {
	entries, err := os.ReadDir(st.projectDir(projectID))
	if err != nil {
		return nil
	}

	var dates []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".md") {
			continue
		}
		dates = append(dates, strings.TrimSuffix(filepath.Base(name), ".md"))
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates
}
