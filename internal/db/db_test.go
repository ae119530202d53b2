package db

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/zulandar/showrunner/internal/config"
	"github.com/zulandar/showrunner/internal/models"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		port     int
		user     string
		database string
		want     string
	}{
		{"defaults", "127.0.0.1", 3306, "root", "showrunner", "root@tcp(127.0.0.1:3306)/showrunner?parseTime=true"},
		{"custom", "db.local", 3307, "writer", "studio", "writer@tcp(db.local:3307)/studio?parseTime=true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DSN(tt.host, tt.port, tt.user, tt.database)
			if got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAllModels(t *testing.T) {
	all := AllModels()
	if len(all) != 4 {
		t.Fatalf("AllModels() returned %d models, want 4", len(all))
	}
	seen := map[string]bool{}
	for _, m := range all {
		switch m.(type) {
		case *models.ProjectRecord:
			seen["ProjectRecord"] = true
		case *models.ImageBlob:
			seen["ImageBlob"] = true
		case *models.ImageHash:
			seen["ImageHash"] = true
		case *models.SweepRun:
			seen["SweepRun"] = true
		}
	}
	if len(seen) != 4 {
		t.Errorf("AllModels() covered %v", seen)
	}
}

func TestOpenMigrated_CreatesTables(t *testing.T) {
	gdb, err := OpenMigrated()
	if err != nil {
		t.Fatalf("OpenMigrated: %v", err)
	}
	defer Close(gdb)

	for _, m := range AllModels() {
		if !gdb.Migrator().HasTable(m) {
			t.Errorf("table for %T not created", m)
		}
	}
}

func TestAutoMigrate_Idempotent(t *testing.T) {
	gdb, err := OpenMigrated()
	if err != nil {
		t.Fatalf("OpenMigrated: %v", err)
	}
	defer Close(gdb)

	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("second AutoMigrate: %v", err)
	}
}

func TestOpenSQLite_MemoryIsShared(t *testing.T) {
	gdb, err := OpenMigrated()
	if err != nil {
		t.Fatalf("OpenMigrated: %v", err)
	}
	defer Close(gdb)

	if err := gdb.Create(&models.ProjectRecord{ID: "p1", Name: "Pilot", Data: "{}"}).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	// A second statement may land on any pooled connection.
	var count int64
	if err := gdb.Model(&models.ProjectRecord{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestOpen_SQLiteFile(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(dir, "nested", "data")

	gdb, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer Close(gdb)

	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Driver = "postgres"

	_, err := Open(cfg)
	if err == nil {
		t.Fatal("expected error for unsupported driver")
	}
	if !strings.Contains(err.Error(), "unsupported driver") {
		t.Errorf("error = %q, want to mention unsupported driver", err)
	}
}
