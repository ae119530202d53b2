package models

import "time"

// AutosaveID is the well-known key of the autosave project record.
const AutosaveID = "autosave"

// ProjectRecord stores one serialized project document.
type ProjectRecord struct {
	ID        string `gorm:"primaryKey;size:64"`
	Name      string `gorm:"size:255"`
	Data      string `gorm:"type:longtext;not null"`
	UpdatedAt time.Time
}

// SweepRun records the outcome of one scheduled integrity sweep.
type SweepRun struct {
	ID        uint `gorm:"primaryKey;autoIncrement"`
	Migrated  int
	Dropped   int
	Orphans   int
	Error     string `gorm:"type:text"`
	StartedAt time.Time
	EndedAt   time.Time
}
