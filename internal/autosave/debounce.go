package autosave

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/zulandar/showrunner/internal/project"
)

// DefaultInterval is the quiet period before a pending write is flushed.
const DefaultInterval = 2 * time.Second

// ErrClosed is returned by FlushNow after Close.
var ErrClosed = errors.New("autosave: debouncer closed")

// WriteFunc performs one write.
type WriteFunc func(ctx context.Context) error

// Debouncer collapses bursts of triggers into a single trailing write.
// Edits made inside a window that never elapses (process exit without
// Close) are lost.
type Debouncer struct {
	interval time.Duration
	write    WriteFunc

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	pending bool
	closed  bool

	// writeMu serializes writes so a flush never overlaps a timer write.
	writeMu sync.Mutex
}

// NewDebouncer returns a debouncer that calls write once interval has
// passed without a new trigger.
func NewDebouncer(interval time.Duration, write WriteFunc) *Debouncer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Debouncer{interval: interval, write: write}
}

// Trigger marks the document dirty and restarts the window.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.pending = true
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() { d.fire(gen) })
}

// fire runs when a window elapses. A timer that was superseded by a later
// trigger does nothing.
func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || !d.pending {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.mu.Unlock()

	if err := d.run(context.Background()); err != nil {
		log.Printf("autosave: %v", err)
	}
}

// Pending reports whether a write is waiting for its window to elapse.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// FlushNow writes immediately if a write is pending and returns its error.
func (d *Debouncer) FlushNow(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	pending := d.take()
	d.mu.Unlock()
	if !pending {
		return nil
	}
	err := d.run(ctx)
	if err != nil {
		log.Printf("autosave: %v", err)
	}
	return err
}

// Cancel drops the pending write, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	d.take()
	d.mu.Unlock()
}

// Close flushes any pending write and stops accepting triggers.
func (d *Debouncer) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	pending := d.take()
	d.mu.Unlock()
	if !pending {
		return nil
	}
	return d.run(ctx)
}

// take stops the timer and clears the pending flag, reporting whether a
// write was pending. d.mu must be held.
func (d *Debouncer) take() bool {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	pending := d.pending
	d.pending = false
	return pending
}

func (d *Debouncer) run(ctx context.Context) error {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	return d.write(ctx)
}

// Attach wires doc to repo: every change triggers a debounced save of a
// fresh snapshot. Closing the project does not touch the stored record.
func Attach(doc *project.Document, repo *Repository, interval time.Duration) *Debouncer {
	d := NewDebouncer(interval, func(ctx context.Context) error {
		var name string
		doc.View(func(p *project.Project) { name = p.Metadata.Name })
		data, err := doc.Snapshot()
		if errors.Is(err, project.ErrNoProject) {
			return nil
		}
		if err != nil {
			return err
		}
		return repo.SaveRaw(ctx, name, data)
	})
	doc.OnChange(d.Trigger)
	return d
}
