package logging

import (
	"log/slog"
	"sync"
	"time"
)

// eventKey identifies one event stream for batching.
type eventKey struct {
	component string
	event     string
}

// eventTally holds the running count and the most recent context fields.
type eventTally struct {
	count  int64
	fields []slog.Attr
}

// Aggregator batches high-frequency events (pane output chunks, flush
// cycles) and emits one summary record per event stream per interval,
// instead of one log line per pty read.
type Aggregator struct {
	logger   *slog.Logger
	interval time.Duration

	mu      sync.Mutex
	tallies map[eventKey]*eventTally

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewAggregator creates an aggregator flushing every intervalSecs seconds.
// A nil logger drops recorded events.
func NewAggregator(logger *slog.Logger, intervalSecs int) *Aggregator {
	if intervalSecs <= 0 {
		intervalSecs = 30
	}
	return &Aggregator{
		logger:   logger,
		interval: time.Duration(intervalSecs) * time.Second,
		tallies:  make(map[eventKey]*eventTally),
		done:     make(chan struct{}),
	}
}

// Start begins the background flush goroutine.
func (a *Aggregator) Start() {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.flush()
			case <-a.done:
				return
			}
		}
	}()
}

// Stop halts the background goroutine and emits any pending summaries.
// Safe to call more than once.
func (a *Aggregator) Stop() {
	a.stopOnce.Do(func() {
		close(a.done)
	})
	a.wg.Wait()
	a.flush()
}

// Record increments the counter for an event stream. Context fields are
// kept from the most recent call.
func (a *Aggregator) Record(component, event string, fields ...slog.Attr) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := eventKey{component: component, event: event}
	tally, ok := a.tallies[key]
	if !ok {
		tally = &eventTally{}
		a.tallies[key] = tally
	}
	tally.count++
	if len(fields) > 0 {
		tally.fields = fields
	}
}

func (a *Aggregator) flush() {
	a.mu.Lock()
	if len(a.tallies) == 0 {
		a.mu.Unlock()
		return
	}
	tallies := a.tallies
	a.tallies = make(map[eventKey]*eventTally)
	a.mu.Unlock()

	if a.logger == nil {
		return
	}

	for key, tally := range tallies {
		attrs := []any{
			slog.String("component", key.component),
			slog.String("event", key.event),
			slog.Int64("count", tally.count),
			slog.Int("window_seconds", int(a.interval.Seconds())),
		}
		for _, f := range tally.fields {
			attrs = append(attrs, f)
		}
		a.logger.Info("event_summary", attrs...)
	}
}
