// Package sweep runs the integrity heal and orphan check on a cron schedule
// and records every run.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zulandar/showrunner/internal/blobstore"
	"github.com/zulandar/showrunner/internal/integrity"
	"github.com/zulandar/showrunner/internal/models"
	"github.com/zulandar/showrunner/internal/project"
	"gorm.io/gorm"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

var errUnchanged = errors.New("sweep: unchanged")

// Options configures a Sweeper.
type Options struct {
	// Collect deletes orphaned blobs instead of only counting them.
	Collect bool
}

// Sweeper heals the live document against the blob store.
type Sweeper struct {
	doc   *project.Document
	blobs *blobstore.Store
	db    *gorm.DB
	opts  Options
	now   func() time.Time
}

// New returns a Sweeper. db receives a models.SweepRun per run.
func New(doc *project.Document, blobs *blobstore.Store, db *gorm.DB, opts Options) *Sweeper {
	return &Sweeper{doc: doc, blobs: blobs, db: db, opts: opts, now: time.Now}
}

// Validate reports whether expr is a usable 5-field cron expression.
func Validate(expr string) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("sweep: schedule %q: %w", expr, err)
	}
	return nil
}

// Next returns the first fire time of expr after from.
func Next(expr string, from time.Time) (time.Time, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("sweep: schedule %q: %w", expr, err)
	}
	return sched.Next(from), nil
}

// RunOnce heals the document and then counts or collects orphaned blobs.
// Without a loaded project the run is recorded and the store is not touched.
func (s *Sweeper) RunOnce(ctx context.Context) (models.SweepRun, error) {
	run := models.SweepRun{StartedAt: s.now()}

	err := s.doc.Update(func(p *project.Project) error {
		r := integrity.Heal(ctx, p, s.blobs)
		run.Migrated, run.Dropped = r.Migrated, r.Dropped
		if r.Err != nil {
			run.Error = r.Err.Error()
		}
		if r.Migrated == 0 && r.Dropped == 0 {
			return errUnchanged
		}
		return nil
	})
	switch {
	case errors.Is(err, project.ErrNoProject):
		run.Error = "no project loaded"
		return s.record(ctx, run)
	case err != nil && !errors.Is(err, errUnchanged):
		run.Error = err.Error()
		return s.record(ctx, run)
	}

	var referenced blobstore.IDSet
	s.doc.View(func(p *project.Project) { referenced = integrity.Referenced(p) })

	var orphans []string
	if s.opts.Collect {
		orphans, err = s.blobs.GC(ctx, referenced)
	} else {
		orphans, err = s.blobs.Orphans(ctx, referenced)
	}
	if err != nil {
		log.Printf("sweep: orphans: %v", err)
		if run.Error == "" {
			run.Error = err.Error()
		}
	}
	run.Orphans = len(orphans)

	if run.Migrated+run.Dropped+run.Orphans > 0 {
		verb := "found"
		if s.opts.Collect {
			verb = "collected"
		}
		log.Printf("sweep: migrated %d, dropped %d, %s %d orphaned blobs", run.Migrated, run.Dropped, verb, run.Orphans)
	}
	return s.record(ctx, run)
}

func (s *Sweeper) record(ctx context.Context, run models.SweepRun) (models.SweepRun, error) {
	run.EndedAt = s.now()
	if s.db == nil {
		return run, nil
	}
	if err := s.db.WithContext(ctx).Create(&run).Error; err != nil {
		return run, fmt.Errorf("sweep: record run: %w", err)
	}
	return run, nil
}

// Start runs RunOnce on schedule until ctx is cancelled. It blocks.
func (s *Sweeper) Start(ctx context.Context, schedule string) error {
	sched, err := cronParser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("sweep: schedule %q: %w", schedule, err)
	}

	c := cron.New(cron.WithParser(cronParser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(sched, cron.FuncJob(func() {
		if _, err := s.RunOnce(ctx); err != nil {
			log.Printf("sweep: %v", err)
		}
	}))
	c.Start()
	log.Printf("sweep: scheduled %q, next run %s", schedule, sched.Next(s.now()).Format(time.RFC3339))

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// Recent returns the latest runs, newest first.
func Recent(ctx context.Context, db *gorm.DB, limit int) ([]models.SweepRun, error) {
	if limit <= 0 {
		limit = 10
	}
	var runs []models.SweepRun
	if err := db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("sweep: list runs: %w", err)
	}
	return runs, nil
}
