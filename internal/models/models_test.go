package models

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

// gormTag extracts the gorm tag from a struct field.
func gormTag(t *testing.T, typ reflect.Type, fieldName string) string {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	return f.Tag.Get("gorm")
}

// assertGormTag checks that a struct field's gorm tag contains the expected value.
func assertGormTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	tag := gormTag(t, typ, fieldName)
	if !strings.Contains(tag, expected) {
		t.Errorf("%s.%s gorm tag = %q, want to contain %q", typ.Name(), fieldName, tag, expected)
	}
}

// assertFieldType checks that a struct field has the expected Go type.
func assertFieldType(t *testing.T, typ reflect.Type, fieldName, expectedType string) {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	got := f.Type.String()
	if got != expectedType {
		t.Errorf("%s.%s type = %q, want %q", typ.Name(), fieldName, got, expectedType)
	}
}

func TestSweepRun_Instantiation(t *testing.T) {
	start := time.Now()
	r := SweepRun{
		Migrated:  2,
		Dropped:   1,
		Orphans:   3,
		StartedAt: start,
		EndedAt:   start.Add(time.Second),
	}
	if r.ID != 0 {
		t.Errorf("ID = %d, want 0 before insert", r.ID)
	}
	if r.EndedAt.Sub(r.StartedAt) != time.Second {
		t.Errorf("duration = %s, want 1s", r.EndedAt.Sub(r.StartedAt))
	}
}

func TestProjectRecord_Instantiation(t *testing.T) {
	rec := ProjectRecord{ID: AutosaveID, Name: "Harbor Lights", Data: "{}"}
	if rec.ID != "autosave" {
		t.Errorf("ID = %q, want autosave", rec.ID)
	}
}
