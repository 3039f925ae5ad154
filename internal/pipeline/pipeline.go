// Package pipeline turns raw pane bytes into clean history exchanges.
// Output is buffered per pane and drained on a fixed period; input is
// captured at write time. The pipeline never touches process handles,
// only text.
package pipeline

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"

	"github.com/twistedxcom/paneterm/internal/history"
	"github.com/twistedxcom/paneterm/internal/logging"
)

var log = logging.ForComponent(logging.CompPipeline)

// Sink is the history surface the pipeline writes into.
type Sink interface {
	ProjectID(path string) string
	Append(projectID string, paneID int, kind history.ExchangeKind, content string)
}

// projectRef caches a pane's resolved project id keyed by the cwd it was
// resolved from, so a pane that cd's elsewhere re-resolves.
type projectRef struct {
	cwd string
	id  string
}

// Pipeline accumulates per-pane output text between flushes.
type Pipeline struct {
	sink Sink

	mu       sync.Mutex
	buffers  map[int]*strings.Builder
	projects map[int]projectRef
}

// New creates a pipeline writing into sink.
func New(sink Sink) *Pipeline {
	return &Pipeline{
		sink:     sink,
		buffers:  make(map[int]*strings.Builder),
		projects: make(map[int]projectRef),
	}
}

// Ingest appends one raw output chunk to the pane's buffer.
func (p *Pipeline) Ingest(paneID int, data []byte) {
	p.mu.Lock()
	buf, ok := p.buffers[paneID]
	if !ok {
		buf = &strings.Builder{}
		p.buffers[paneID] = buf
	}
	buf.Write(data)
	p.mu.Unlock()
}

// Buffered reports the pending byte count for a pane.
func (p *Pipeline) Buffered(paneID int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if buf, ok := p.buffers[paneID]; ok {
		return buf.Len()
	}
	return 0
}

// HandleInput captures user input as an exchange at write time. Only
// input carrying a line terminator is considered; after control-sequence
// stripping the text must exceed one character, so single keystrokes
// (arrows, control chars) are never persisted.
func (p *Pipeline) HandleInput(paneID int, data []byte, cwd string) {
	if !bytes.ContainsAny(data, "\r\n") {
		return
	}

	cleaned := strings.TrimSpace(Normalize(string(data)))
	if len([]rune(cleaned)) <= 1 {
		return
	}

	projectID := p.resolveProject(paneID, cwd)
	p.sink.Append(projectID, paneID, history.KindInput, cleaned)
}

// FlushOnce drains every pane buffer exactly once. cwdOf supplies each
// pane's current working directory; panes that no longer exist fall back
// to their cached project so a killed pane's buffered output is not lost.
// When no project can be resolved the cycle's text is dropped, not
// re-queued. Buffers are cleared unconditionally.
func (p *Pipeline) FlushOnce(cwdOf func(paneID int) (string, bool)) {
	p.mu.Lock()
	pending := p.buffers
	p.buffers = make(map[int]*strings.Builder)
	p.mu.Unlock()

	for paneID, buf := range pending {
		raw := buf.String()
		if strings.TrimSpace(raw) == "" {
			continue
		}

		projectID := p.projectForFlush(paneID, cwdOf)
		if projectID == "" {
			log.Debug("flush_drop_unresolved", slog.Int("pane", paneID))
			continue
		}

		cleaned := Normalize(raw)
		if cleaned == "" {
			continue
		}

		p.sink.Append(projectID, paneID, history.KindOutput, cleaned)
		logging.Aggregate(logging.CompPipeline, "output_flushed", slog.Int("pane", paneID))
	}
}

// projectForFlush resolves a pane's project for an output flush: live
// panes resolve (and re-cache) from their current cwd; dead panes reuse
// the cached id.
func (p *Pipeline) projectForFlush(paneID int, cwdOf func(paneID int) (string, bool)) string {
	if cwd, ok := cwdOf(paneID); ok {
		return p.resolveProject(paneID, cwd)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.projects[paneID].id
}

// resolveProject returns the cached project id for paneID when the cwd is
// unchanged, otherwise resolves through the sink and re-caches.
func (p *Pipeline) resolveProject(paneID int, cwd string) string {
	p.mu.Lock()
	ref, ok := p.projects[paneID]
	p.mu.Unlock()
	if ok && ref.cwd == cwd {
		return ref.id
	}

	id := p.sink.ProjectID(cwd)
	p.mu.Lock()
	p.projects[paneID] = projectRef{cwd: cwd, id: id}
	p.mu.Unlock()
	return id
}

// Forget drops a pane's project cache. Called when a pane slot is reused
// for a different directory.
func (p *Pipeline) Forget(paneID int) {
	p.mu.Lock()
	delete(p.projects, paneID)
	p.mu.Unlock()
}
