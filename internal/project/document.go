package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrNoProject is returned when no project is loaded.
	ErrNoProject = errors.New("project: no project loaded")
	// ErrNotFound is returned when an id does not resolve.
	ErrNotFound = errors.New("project: not found")
	// ErrLocked is returned when a mutation targets a locked subtree.
	ErrLocked = errors.New("project: locked")
	// ErrIncomplete is returned when locking summaries that are not all filled in.
	ErrIncomplete = errors.New("project: incomplete")
	// ErrGate is returned when a progression gate is not satisfied.
	ErrGate = errors.New("project: progression gate not met")
	// ErrWrongFormat is returned for season operations on a single-story
	// project and sequel operations on an episodic one.
	ErrWrongFormat = errors.New("project: wrong format")
)

// Document owns the live project. Mutations are serialized and every
// successful one notifies the registered change hooks, which run after the
// lock is released.
type Document struct {
	mu    sync.RWMutex
	p     *Project
	hooks []func()
	now   func() time.Time
}

// NewDocument wraps p. p may be nil.
func NewDocument(p *Project) *Document {
	if p != nil {
		p.normalize()
	}
	return &Document{p: p, now: time.Now}
}

// OnChange registers fn to run after every successful mutation.
func (d *Document) OnChange(fn func()) {
	d.mu.Lock()
	d.hooks = append(d.hooks, fn)
	d.mu.Unlock()
}

// Loaded reports whether a project is present.
func (d *Document) Loaded() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.p != nil
}

// Set replaces the whole project.
func (d *Document) Set(p *Project) {
	if p == nil {
		d.Close()
		return
	}
	p.normalize()
	d.mu.Lock()
	d.p = p
	hooks := d.hooks
	d.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// Close drops the project without notifying hooks.
func (d *Document) Close() {
	d.mu.Lock()
	d.p = nil
	d.mu.Unlock()
}

// View runs fn with read access to the project. fn must not modify the
// project or keep references to it.
func (d *Document) View(fn func(p *Project)) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.p == nil {
		return ErrNoProject
	}
	fn(d.p)
	return nil
}

// Snapshot serializes the project.
func (d *Document) Snapshot() ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.p == nil {
		return nil, ErrNoProject
	}
	data, err := json.Marshal(d.p)
	if err != nil {
		return nil, fmt.Errorf("project: snapshot: %w", err)
	}
	return data, nil
}

// Project returns a deep copy of the project.
func (d *Document) Project() (*Project, error) {
	data, err := d.Snapshot()
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Update runs fn with write access. When fn returns an error the change
// hooks do not run; fn must not leave partial changes behind in that case.
func (d *Document) Update(fn func(p *Project) error) error {
	return d.mutate(fn)
}

func (d *Document) mutate(fn func(p *Project) error) error {
	d.mu.Lock()
	if d.p == nil {
		d.mu.Unlock()
		return ErrNoProject
	}
	if err := fn(d.p); err != nil {
		d.mu.Unlock()
		return err
	}
	d.p.Metadata.UpdatedAt = d.now().UnixMilli()
	hooks := d.hooks
	d.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	return nil
}

// Decode parses a serialized project.
func Decode(data []byte) (*Project, error) {
	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("project: decode: %w", err)
	}
	p.normalize()
	return &p, nil
}

// Rename changes the project name.
func (d *Document) Rename(name string) error {
	return d.mutate(func(p *Project) error {
		p.Metadata.Name = name
		return nil
	})
}

// UpdateSynopsis replaces the bible synopsis.
func (d *Document) UpdateSynopsis(synopsis string) error {
	return d.mutate(func(p *Project) error {
		p.Bible.Synopsis = synopsis
		return nil
	})
}

// ReplaceBible swaps in an imported bible.
func (d *Document) ReplaceBible(b Bible) error {
	return d.mutate(func(p *Project) error {
		p.Bible = b
		p.normalize()
		return nil
	})
}

// ReplaceScript swaps in an imported script. It fails with ErrLocked while
// any installment of the current script is locked.
func (d *Document) ReplaceScript(s Script) error {
	return d.mutate(func(p *Project) error {
		if err := anyInstallmentLocked(p); err != nil {
			return err
		}
		p.Script = s
		return nil
	})
}

// ReplaceStudio swaps in an imported studio.
func (d *Document) ReplaceStudio(s Studio) error {
	return d.mutate(func(p *Project) error {
		p.Studio = s
		p.normalize()
		return nil
	})
}
