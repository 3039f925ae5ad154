package history

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DayContent returns the raw markdown for one day file. Absent files
// yield an empty string, not an error.
func (st *Store) DayContent(projectID, date string) string {
	data, err := os.ReadFile(st.dayPath(projectID, date))
	if err != nil {
		return ""
	}
	return string(data)
}

// DayExchanges parses one day file into structured exchanges. Absent or
// malformed files yield an empty slice.
func (st *Store) DayExchanges(projectID, date string) []Exchange {
	content := st.DayContent(projectID, date)
	if content == "" {
		return []Exchange{}
	}

	var exchanges []Exchange
	lines := strings.Split(content, "\n")

	i := 0
	for i < len(lines) {
		m := recordHeaderPattern.FindStringSubmatch(lines[i])
		if m == nil {
			i++
			continue
		}

		paneID, _ := strconv.Atoi(m[2])
		ex := Exchange{
			Time:   m[1],
			PaneID: paneID,
			Kind:   ExchangeKind(m[3]),
		}

		// Advance to the opening fence, then collect verbatim content
		// until the closing fence. A record with no fence (truncated
		// file) keeps empty content.
		j := i + 1
		for j < len(lines) && lines[j] != "```text" && !recordHeaderPattern.MatchString(lines[j]) {
			j++
		}
		if j < len(lines) && lines[j] == "```text" {
			var body []string
			j++
			for j < len(lines) && lines[j] != "```" {
				body = append(body, lines[j])
				j++
			}
			ex.Content = strings.Join(body, "\n")
			j++ // past the closing fence
		}

		exchanges = append(exchanges, ex)
		i = max(j, i+1)
	}

	if exchanges == nil {
		return []Exchange{}
	}
	return exchanges
}

// DeleteDay removes one day file and its index entry, reporting whether
// the file existed.
func (st *Store) DeleteDay(projectID, date string) bool {
	if IsEphemeral(projectID) {
		return false
	}

	st.ioMu.Lock()
	defer st.ioMu.Unlock()

	path := st.dayPath(projectID, date)
	err := os.Remove(path)
	existed := err == nil
	if err != nil && !os.IsNotExist(err) {
		log.Warn("delete_day_failed",
			slog.String("project", projectID),
			slog.String("date", date),
			slog.String("error", err.Error()))
	}

	idx := st.readIndex(projectID)
	kept := idx.Sessions[:0]
	for _, s := range idx.Sessions {
		if s.Date != date {
			kept = append(kept, s)
		}
	}
	idx.Sessions = kept
	if err := st.writeIndex(projectID, idx); err != nil {
		log.Warn("delete_day_index_failed",
			slog.String("project", projectID),
			slog.String("error", err.Error()))
	}

	return existed
}

func (st *Store) dayPath(projectID, date string) string {
	return filepath.Join(st.projectDir(projectID), date+".md")
}
