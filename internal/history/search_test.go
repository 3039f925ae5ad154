package history

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// writeDay pins the store clock to date and flushes one output exchange
// per line of body.
func writeDay(t *testing.T, st *Store, projectID, date, body string) {
	t.Helper()
	ts, err := time.Parse("2006-01-02", date)
	require.NoError(t, err)
	st.now = func() time.Time { return ts }
	st.Append(projectID, 0, KindOutput, body)
	st.Flush()
	st.now = time.Now
}

func TestSearchLimitAndNonOverlap(t *testing.T) {
	st := newTestStore(t)
	id := st.ProjectID(t.TempDir())

	// Five widely spaced matching lines in one day.
	var b strings.Builder
	for i := 0; i < 5; i++ {
		b.WriteString("needle line\n")
		b.WriteString(strings.Repeat("filler\n", 10))
	}
	writeDay(t, st, id, "2026-08-22", b.String())

	matches := st.Search(id, "needle", 3)
	require.Len(t, matches, 3, "budget of 3 over 5 matching lines")

	// Blocks must not overlap: each context is at most 6 lines and
	// windows advance past their end.
	for i := 1; i < len(matches); i++ {
		require.Greater(t, matches[i].Line, matches[i-1].Line+searchContextAfter)
	}
}

func TestSearchNewestFileFirst(t *testing.T) {
	st := newTestStore(t)
	id := st.ProjectID(t.TempDir())

	writeDay(t, st, id, "2026-08-20", "needle in the old file")
	writeDay(t, st, id, "2026-08-23", "needle in the new file")

	matches := st.Search(id, "needle", 10)
	require.Len(t, matches, 2)
	require.Equal(t, "2026-08-23", matches[0].Date)
	require.Equal(t, "2026-08-20", matches[1].Date)
}

func TestSearchCaseInsensitive(t *testing.T) {
	st := newTestStore(t)
	id := st.ProjectID(t.TempDir())

	writeDay(t, st, id, "2026-08-22", "ERROR: build FAILED at step 3")

	matches := st.Search(id, "failed", 0)
	require.Len(t, matches, 1)
	require.Contains(t, matches[0].Context, "build FAILED")
}

func TestSearchContextWindow(t *testing.T) {
	st := newTestStore(t)
	id := st.ProjectID(t.TempDir())

	body := "before2\nbefore1\ntarget line\nafter1\nafter2\nafter3\nafter4"
	writeDay(t, st, id, "2026-08-22", body)

	matches := st.Search(id, "target", 0)
	require.Len(t, matches, 1)

	ctx := matches[0].Context
	require.Contains(t, ctx, "before2")
	require.Contains(t, ctx, "before1")
	require.Contains(t, ctx, "target line")
	require.Contains(t, ctx, "after3")
	require.NotContains(t, ctx, "after4")

	lines := strings.Split(ctx, "\n")
	require.Len(t, lines, 6, "2 before + match + 3 after")
}

func TestSearchBudgetSpansFiles(t *testing.T) {
	st := newTestStore(t)
	id := st.ProjectID(t.TempDir())

	for _, date := range []string{"2026-08-20", "2026-08-21", "2026-08-22"} {
		writeDay(t, st, id, date, strings.Repeat("hit\nfiller\nfiller\nfiller\nfiller\nfiller\nfiller\n", 4))
	}

	matches := st.Search(id, "hit", 5)
	require.Len(t, matches, 5)
	// Newest file exhausted first.
	require.Equal(t, "2026-08-22", matches[0].Date)
}

func TestSearchEmptyCases(t *testing.T) {
	st := newTestStore(t)
	id := st.ProjectID(t.TempDir())

	require.Empty(t, st.Search(id, "", 10))
	require.Empty(t, st.Search(id, "anything", 10))
	require.Empty(t, st.Search(ephemeralID(), "anything", 10))
	require.Empty(t, st.Search("no-such-project", "anything", 10))
}
