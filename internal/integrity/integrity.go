// Package integrity keeps a project's image references consistent with the
// blob store: it moves inline images into the store and prunes references
// to blobs that no longer exist.
package integrity

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/zulandar/showrunner/internal/blobstore"
	"github.com/zulandar/showrunner/internal/project"
)

// Lister enumerates stored blob ids.
type Lister interface {
	ListIDs(ctx context.Context) (blobstore.IDSet, error)
}

// Putter stores inline data URIs.
type Putter interface {
	PutDataURI(ctx context.Context, uri string) (string, error)
}

// Store is what Heal needs from the blob store.
type Store interface {
	Lister
	Putter
}

// Report summarizes one pass over a project.
type Report struct {
	Migrated int
	Checked  int
	Dropped  int
	// Skipped is set when the id listing failed and nothing was pruned.
	Skipped bool
	Err     error
}

// Scan drops every blob reference whose id is not in the store. Data URIs
// and external URLs are left alone. When the store cannot be listed the
// error is logged and the project is left untouched. Running Scan on a
// clean project changes nothing.
func Scan(ctx context.Context, p *project.Project, lister Lister) Report {
	valid, err := lister.ListIDs(ctx)
	if err != nil {
		log.Printf("integrity: list blob ids: %v", err)
		return Report{Skipped: true, Err: err}
	}

	var r Report
	dangling := func(ref string) bool {
		if !blobstore.IsBlobRef(ref) {
			return false
		}
		r.Checked++
		if valid.Has(ref) {
			return false
		}
		r.Dropped++
		return true
	}

	s := collect(p)
	for _, ref := range s.singles {
		if dangling(*ref) {
			*ref = ""
		}
	}
	for _, pool := range s.pools {
		*pool = filter(*pool, func(ref string) bool { return !dangling(ref) })
	}
	for _, h := range s.history {
		*h = filter(*h, func(e project.ImageEntry) bool { return !dangling(e.URL) })
	}
	for _, refs := range s.shotRefs {
		*refs = filter(*refs, func(r project.ShotReferenceImage) bool { return !dangling(r.URL) })
	}

	if r.Dropped > 0 {
		log.Printf("integrity: removed %d broken image references", r.Dropped)
	}
	return r
}

// filter keeps the elements for which keep is true. The input slice is
// returned unchanged when nothing is dropped.
func filter[T any](in []T, keep func(T) bool) []T {
	for i, v := range in {
		if keep(v) {
			continue
		}
		out := append([]T{}, in[:i]...)
		for _, w := range in[i+1:] {
			if keep(w) {
				out = append(out, w)
			}
		}
		return out
	}
	return in
}

// Migrate moves inline data URIs into the blob store and replaces them with
// blob ids. Every URI is stored before any reference is rewritten, so a
// storage failure returns an error and leaves the project unchanged.
// Malformed data URIs are logged and left in place.
func Migrate(ctx context.Context, p *project.Project, putter Putter) (int, error) {
	s := collect(p)
	ids := make(map[string]string)
	var firstErr error
	s.each(func(ref string) {
		if firstErr != nil || !blobstore.IsDataURI(ref) {
			return
		}
		if _, done := ids[ref]; done {
			return
		}
		id, err := putter.PutDataURI(ctx, ref)
		switch {
		case errors.Is(err, blobstore.ErrBadDataURI), errors.Is(err, blobstore.ErrEmpty):
			log.Printf("integrity: skip malformed inline image: %v", err)
			ids[ref] = ""
		case err != nil:
			firstErr = fmt.Errorf("integrity: migrate inline image: %w", err)
		default:
			ids[ref] = id
		}
	})
	if firstErr != nil {
		return 0, firstErr
	}

	migrated := 0
	s.rewrite(func(ref string) string {
		if id := ids[ref]; id != "" {
			migrated++
			return id
		}
		return ref
	})
	if migrated > 0 {
		log.Printf("integrity: moved %d inline images into the blob store", migrated)
	}
	return migrated, nil
}

// Heal migrates inline images and then scans. This is the load pipeline for
// autosaves, imports and restores. Errors are reported, never returned.
func Heal(ctx context.Context, p *project.Project, store Store) Report {
	migrated, err := Migrate(ctx, p, store)
	if err != nil {
		log.Printf("integrity: %v", err)
	}
	r := Scan(ctx, p, store)
	r.Migrated = migrated
	if r.Err == nil {
		r.Err = err
	}
	return r
}

// Referenced returns every blob id the project references.
func Referenced(p *project.Project) blobstore.IDSet {
	set := blobstore.NewIDSet()
	collect(p).each(func(ref string) {
		if blobstore.IsBlobRef(ref) {
			set.Add(ref)
		}
	})
	return set
}
