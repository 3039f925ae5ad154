// Package core wires the pane supervisor, the output pipeline, and the
// history store into one runtime: it owns the periodic flush timers, the
// downstream subscriber registry, git status rate limiting, and the
// shutdown drain.
package core

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/twistedxcom/paneterm/internal/history"
	"github.com/twistedxcom/paneterm/internal/logging"
	"github.com/twistedxcom/paneterm/internal/pane"
	"github.com/twistedxcom/paneterm/internal/pipeline"
	"github.com/twistedxcom/paneterm/internal/vcs"
)

var log = logging.ForComponent(logging.CompCore)

// gitProbeInterval is the minimum spacing between git probes per pane.
// Requests arriving faster are served the cached status.
const gitProbeInterval = 2 * time.Second

// Options configures a Core. Zero durations fall back to defaults.
type Options struct {
	// Shell overrides $SHELL and the platform default when non-empty.
	Shell string

	// HistoryDir is the transcript archive root.
	HistoryDir string

	OutputFlushInterval  time.Duration
	HistoryFlushInterval time.Duration
	SessionGap           time.Duration
}

func (o *Options) defaults() {
	if o.OutputFlushInterval <= 0 {
		o.OutputFlushInterval = 5 * time.Second
	}
	if o.HistoryFlushInterval <= 0 {
		o.HistoryFlushInterval = 30 * time.Second
	}
	if o.SessionGap <= 0 {
		o.SessionGap = 30 * time.Minute
	}
}

// Core is the shared runtime behind the CLI surface. One Core serves all
// pane slots.
type Core struct {
	sup   *pane.Supervisor
	pipe  *pipeline.Pipeline
	store *history.Store

	opts Options

	subMu   sync.RWMutex
	subs    map[int]pane.Subscriber
	nextSub int

	gitMu       sync.Mutex
	gitLimiters map[int]*rate.Limiter
	gitCache    map[int]*vcs.Status
	gitSeq      map[int]uint64

	unsubscribe func()
	stop        chan struct{}
	group       *errgroup.Group
	once        sync.Once
}

// New builds a Core and starts its flush timers.
func New(opts Options) *Core {
	opts.defaults()

	store := history.NewStore(opts.HistoryDir, opts.SessionGap)
	c := &Core{
		sup:         pane.NewSupervisor(opts.Shell),
		pipe:        pipeline.New(store),
		store:       store,
		opts:        opts,
		subs:        make(map[int]pane.Subscriber),
		gitLimiters: make(map[int]*rate.Limiter),
		gitCache:    make(map[int]*vcs.Status),
		gitSeq:      make(map[int]uint64),
		stop:        make(chan struct{}),
		group:       &errgroup.Group{},
	}

	c.unsubscribe = c.sup.Subscribe(c)
	c.group.Go(func() error { return c.flushLoop(opts.OutputFlushInterval, c.flushOutput) })
	c.group.Go(func() error { return c.flushLoop(opts.HistoryFlushInterval, c.store.Flush) })

	log.Info("core_started",
		slog.String("history_dir", opts.HistoryDir),
		slog.Duration("output_flush", opts.OutputFlushInterval),
		slog.Duration("history_flush", opts.HistoryFlushInterval))
	return c
}

// flushLoop runs fn on a fixed period until shutdown.
func (c *Core) flushLoop(interval time.Duration, fn func()) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			fn()
		case <-c.stop:
			return nil
		}
	}
}

func (c *Core) flushOutput() {
	c.pipe.FlushOnce(c.sup.Cwd)
}

// Subscribe registers a downstream consumer of raw pane events, typically
// the terminal attach loop. Returns an unsubscribe handle.
func (c *Core) Subscribe(sub pane.Subscriber) (cancel func()) {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = sub
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

// PaneOutput implements pane.Subscriber: raw bytes feed the pipeline and
// fan out to downstream subscribers untouched.
func (c *Core) PaneOutput(paneID int, data []byte) {
	c.pipe.Ingest(paneID, data)

	c.subMu.RLock()
	for _, sub := range c.subs {
		sub.PaneOutput(paneID, data)
	}
	c.subMu.RUnlock()
}

// PaneExit implements pane.Subscriber. The pipeline keeps the pane's
// buffered output; the cached project id carries it into the next flush.
func (c *Core) PaneExit(paneID int, exitCode int) {
	c.subMu.RLock()
	for _, sub := range c.subs {
		sub.PaneExit(paneID, exitCode)
	}
	c.subMu.RUnlock()
}

// CreatePane spawns a shell in the pane slot. Reusing a slot drops the
// previous session's project cache so output resolves against the new
// directory.
func (c *Core) CreatePane(paneID int, cwd string) bool {
	c.pipe.Forget(paneID)
	c.invalidateGit(paneID)
	return c.sup.Create(paneID, cwd)
}

// Write forwards input bytes to the pane and captures completed commands
// as input exchanges.
func (c *Core) Write(paneID int, data []byte) {
	c.sup.Write(paneID, data)
	if cwd, ok := c.sup.TrackedCwd(paneID); ok {
		c.pipe.HandleInput(paneID, data, cwd)
	}
}

// Resize forwards a terminal-size change.
func (c *Core) Resize(paneID, cols, rows int) {
	c.sup.Resize(paneID, cols, rows)
}

// Kill terminates a pane's shell. Output buffered before the kill still
// reaches history on the next flush.
func (c *Core) Kill(paneID int) {
	c.sup.Kill(paneID)
	c.invalidateGit(paneID)
}

// KillAll terminates every pane.
func (c *Core) KillAll() {
	c.sup.KillAll()
}

// Cwd returns a pane's working directory, authoritative when probeable.
func (c *Core) Cwd(paneID int) (string, bool) {
	return c.sup.Cwd(paneID)
}

// AllCwds snapshots every live pane's working directory.
func (c *Core) AllCwds() map[int]string {
	return c.sup.AllCwds()
}

// Live reports whether a pane slot has a running shell.
func (c *Core) Live(paneID int) bool {
	return c.sup.Live(paneID)
}

// GitStatus probes the repository state of the pane's working directory.
// Probes are rate limited per pane; between probes the cached status is
// served. Concurrent probes for one pane resolve last-probe-wins.
func (c *Core) GitStatus(ctx context.Context, paneID int) *vcs.Status {
	cwd, ok := c.sup.Cwd(paneID)
	if !ok {
		return &vcs.Status{}
	}

	c.gitMu.Lock()
	lim, ok := c.gitLimiters[paneID]
	if !ok {
		lim = rate.NewLimiter(rate.Every(gitProbeInterval), 1)
		c.gitLimiters[paneID] = lim
	}
	if !lim.Allow() {
		cached := c.gitCache[paneID]
		c.gitMu.Unlock()
		if cached != nil {
			return cached
		}
		return &vcs.Status{}
	}
	c.gitSeq[paneID]++
	seq := c.gitSeq[paneID]
	c.gitMu.Unlock()

	status := vcs.Probe(ctx, cwd)

	c.gitMu.Lock()
	if seq == c.gitSeq[paneID] {
		c.gitCache[paneID] = status
	}
	c.gitMu.Unlock()
	return status
}

func (c *Core) invalidateGit(paneID int) {
	c.gitMu.Lock()
	c.gitSeq[paneID]++
	delete(c.gitCache, paneID)
	delete(c.gitLimiters, paneID)
	c.gitMu.Unlock()
}

// Store exposes the history archive for the read surface.
func (c *Core) Store() *history.Store {
	return c.store
}

// Shutdown stops the timers, drains both flush stages synchronously, and
// tears down every pane. Idempotent.
func (c *Core) Shutdown() {
	c.once.Do(func() {
		close(c.stop)
		_ = c.group.Wait()
		c.unsubscribe()

		// Drain while sessions still exist so cwd resolution works,
		// then kill.
		c.flushOutput()
		c.store.Flush()
		c.sup.KillAll()

		log.Info("core_stopped")
	})
}
