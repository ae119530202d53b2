package autosave

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zulandar/showrunner/internal/db"
	"github.com/zulandar/showrunner/internal/project"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.OpenMigrated()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close(gdb) })
	return gdb
}

func counter() (*atomic.Int32, WriteFunc) {
	var n atomic.Int32
	return &n, func(context.Context) error {
		n.Add(1)
		return nil
	}
}

func TestDebouncer_CollapsesBurst(t *testing.T) {
	n, write := counter()
	d := NewDebouncer(20*time.Millisecond, write)
	for i := 0; i < 10; i++ {
		d.Trigger()
	}
	time.Sleep(150 * time.Millisecond)
	if got := n.Load(); got != 1 {
		t.Errorf("writes = %d, want 1", got)
	}
	if d.Pending() {
		t.Error("still pending after the window elapsed")
	}
}

func TestDebouncer_FlushNow(t *testing.T) {
	n, write := counter()
	d := NewDebouncer(time.Hour, write)
	if err := d.FlushNow(context.Background()); err != nil {
		t.Fatalf("FlushNow with nothing pending: %v", err)
	}
	if n.Load() != 0 {
		t.Fatal("wrote without a trigger")
	}
	d.Trigger()
	if err := d.FlushNow(context.Background()); err != nil {
		t.Fatalf("FlushNow: %v", err)
	}
	if got := n.Load(); got != 1 {
		t.Errorf("writes = %d, want 1", got)
	}
}

func TestDebouncer_FlushNowReturnsError(t *testing.T) {
	boom := errors.New("disk full")
	d := NewDebouncer(time.Hour, func(context.Context) error { return boom })
	d.Trigger()
	if err := d.FlushNow(context.Background()); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	n, write := counter()
	d := NewDebouncer(20*time.Millisecond, write)
	d.Trigger()
	d.Cancel()
	time.Sleep(100 * time.Millisecond)
	if got := n.Load(); got != 0 {
		t.Errorf("writes = %d, want 0", got)
	}
}

func TestDebouncer_Close(t *testing.T) {
	n, write := counter()
	d := NewDebouncer(time.Hour, write)
	d.Trigger()
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := n.Load(); got != 1 {
		t.Errorf("writes = %d, want pending write flushed", got)
	}
	d.Trigger()
	if d.Pending() {
		t.Error("trigger accepted after Close")
	}
	if err := d.FlushNow(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("FlushNow after Close = %v, want ErrClosed", err)
	}
}

func TestRepository_LoadEmpty(t *testing.T) {
	repo := NewRepository(testDB(t))
	p, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p != nil {
		t.Errorf("Load = %+v, want nil", p)
	}
}

func TestRepository_SaveLoad(t *testing.T) {
	repo := NewRepository(testDB(t))
	ctx := context.Background()
	p, err := project.New(project.NewParams{Name: "Harbor Lights"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p.Bible.Characters = append(p.Bible.Characters, project.NewCharacter("Mira"))

	if err := repo.Save(ctx, p); err != nil {
		t.Fatalf("Save: %v", err)
	}
	p.Metadata.Name = "Harbor Lights II"
	if err := repo.Save(ctx, p); err != nil {
		t.Fatalf("Save again: %v", err)
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got == nil || got.Metadata.Name != "Harbor Lights II" {
		t.Fatalf("Load = %+v", got)
	}
	if len(got.Bible.Characters) != 1 || got.Bible.Characters[0].Profile.Name != "Mira" {
		t.Errorf("characters = %+v", got.Bible.Characters)
	}

	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got, _ := repo.Load(ctx); got != nil {
		t.Error("record survived Clear")
	}
}

func TestAttach(t *testing.T) {
	repo := NewRepository(testDB(t))
	ctx := context.Background()
	p, _ := project.New(project.NewParams{Name: "Draft"})
	doc := project.NewDocument(p)
	d := Attach(doc, repo, time.Hour)

	if err := doc.Rename("Final"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if err := doc.UpdateSynopsis("A keeper and a storm."); err != nil {
		t.Fatalf("UpdateSynopsis: %v", err)
	}
	if rec, _ := repo.Record(ctx); rec != nil {
		t.Fatal("saved before the window elapsed")
	}
	if err := d.FlushNow(ctx); err != nil {
		t.Fatalf("FlushNow: %v", err)
	}

	rec, err := repo.Record(ctx)
	if err != nil || rec == nil {
		t.Fatalf("Record: %v, %v", rec, err)
	}
	if rec.Name != "Final" {
		t.Errorf("record name = %q, want Final", rec.Name)
	}
	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Bible.Synopsis != "A keeper and a storm." {
		t.Errorf("synopsis = %q", got.Bible.Synopsis)
	}
}
