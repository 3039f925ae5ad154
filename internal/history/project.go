package history

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// projectIndex is the on-disk index.json shape.
type projectIndex struct {
	ProjectID   string         `json:"project_id"`
	ProjectPath string         `json:"project_path"`
	Sessions    []SessionEntry `json:"sessions"`
}

// ProjectID resolves (or mints) the stable identity of the project rooted
// at path. The id lives in a hidden marker file at the project root and is
// accepted only when it parses as a UUID; anything else is transparently
// repaired by minting a fresh one. When the marker cannot be read or
// written at all, a distinctly-prefixed ephemeral id is returned, which
// downstream writers recognize and discard — no persistence happens for
// ephemeral ids.
func (st *Store) ProjectID(path string) string {
	marker := filepath.Join(path, MarkerFileName)

	data, err := os.ReadFile(marker)
	if err == nil {
		candidate := strings.TrimSpace(string(data))
		if id, perr := uuid.Parse(candidate); perr == nil {
			return id.String()
		}
		log.Warn("project_marker_invalid", slog.String("path", path))
	} else if !os.IsNotExist(err) {
		log.Warn("project_marker_unreadable",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return ephemeralID()
	}

	id := uuid.NewString()
	if err := os.WriteFile(marker, []byte(id+"\n"), 0o600); err != nil {
		log.Warn("project_marker_write_failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return ephemeralID()
	}

	if err := st.initIndex(id, path); err != nil {
		log.Warn("project_index_init_failed",
			slog.String("project", id),
			slog.String("error", err.Error()))
	}

	log.Info("project_registered", slog.String("project", id), slog.String("path", path))
	return id
}

func ephemeralID() string {
	return EphemeralPrefix + uuid.NewString()
}

// IsEphemeral reports whether a project id is a non-persisted placeholder.
func IsEphemeral(projectID string) bool {
	return strings.HasPrefix(projectID, EphemeralPrefix)
}

// initIndex creates the project directory with an empty index.
func (st *Store) initIndex(projectID, projectPath string) error {
	dir := st.projectDir(projectID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	idx := projectIndex{
		ProjectID:   projectID,
		ProjectPath: projectPath,
		Sessions:    []SessionEntry{},
	}
	return st.writeIndex(projectID, &idx)
}

// readIndex loads a project's index; a missing or corrupt file yields an
// empty index rather than an error.
func (st *Store) readIndex(projectID string) *projectIndex {
	path := filepath.Join(st.projectDir(projectID), IndexFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return &projectIndex{ProjectID: projectID, Sessions: []SessionEntry{}}
	}
	var idx projectIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		log.Warn("project_index_corrupt", slog.String("project", projectID))
		return &projectIndex{ProjectID: projectID, Sessions: []SessionEntry{}}
	}
	if idx.Sessions == nil {
		idx.Sessions = []SessionEntry{}
	}
	return &idx
}

func (st *Store) writeIndex(projectID string, idx *projectIndex) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(st.projectDir(projectID), IndexFileName)
	return os.WriteFile(path, data, 0o600)
}

// updateIndexEntry recomputes one day's index entry from the day file on
// disk: size from stat, exchange count from record markers, preview from
// the stripped tail.
func (st *Store) updateIndexEntry(projectID, date, fileName, dayPath string) {
	info, err := os.Stat(dayPath)
	if err != nil {
		log.Error("index_stat_failed", slog.String("project", projectID), slog.String("error", err.Error()))
		return
	}
	content, err := os.ReadFile(dayPath)
	if err != nil {
		log.Error("index_read_failed", slog.String("project", projectID), slog.String("error", err.Error()))
		return
	}

	entry := SessionEntry{
		Date:          date,
		File:          fileName,
		Size:          info.Size(),
		Preview:       previewFromTail(string(content)),
		ExchangeCount: countExchanges(string(content)),
	}

	idx := st.readIndex(projectID)
	replaced := false
	for i := range idx.Sessions {
		if idx.Sessions[i].Date == date {
			idx.Sessions[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		idx.Sessions = append(idx.Sessions, entry)
	}

	if err := st.writeIndex(projectID, idx); err != nil {
		log.Error("index_write_failed", slog.String("project", projectID), slog.String("error", err.Error()))
	}
}

// Sessions returns the project's day summaries, most recent first. Missing
// or unreadable indexes yield an empty list.
func (st *Store) Sessions(projectID string) []SessionEntry {
	if IsEphemeral(projectID) {
		return []SessionEntry{}
	}
	idx := st.readIndex(projectID)
	sessions := make([]SessionEntry, len(idx.Sessions))
	copy(sessions, idx.Sessions)
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Date > sessions[j].Date
	})
	return sessions
}
