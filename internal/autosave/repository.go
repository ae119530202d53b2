// Package autosave persists the live project document to the local store.
package autosave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/showrunner/internal/models"
	"github.com/zulandar/showrunner/internal/project"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository reads and writes the autosave record.
type Repository struct {
	db *gorm.DB
}

// NewRepository returns a repository backed by db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Save serializes p and stores it as the autosave record.
func (r *Repository) Save(ctx context.Context, p *project.Project) error {
	if p == nil {
		return fmt.Errorf("autosave: save: %w", project.ErrNoProject)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("autosave: save: %w", err)
	}
	return r.SaveRaw(ctx, p.Metadata.Name, data)
}

// SaveRaw upserts an already serialized project as the autosave record.
func (r *Repository) SaveRaw(ctx context.Context, name string, data []byte) error {
	rec := models.ProjectRecord{
		ID:        models.AutosaveID,
		Name:      name,
		Data:      string(data),
		UpdatedAt: time.Now(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "data", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("autosave: save: %w", err)
	}
	return nil
}

// Load returns the autosaved project, or nil when there is none.
func (r *Repository) Load(ctx context.Context) (*project.Project, error) {
	rec, err := r.Record(ctx)
	if err != nil || rec == nil {
		return nil, err
	}
	p, err := project.Decode([]byte(rec.Data))
	if err != nil {
		return nil, fmt.Errorf("autosave: load: %w", err)
	}
	return p, nil
}

// Record returns the raw autosave record, or nil when there is none.
func (r *Repository) Record(ctx context.Context) (*models.ProjectRecord, error) {
	var rec models.ProjectRecord
	err := r.db.WithContext(ctx).Where("id = ?", models.AutosaveID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("autosave: load: %w", err)
	}
	return &rec, nil
}

// Clear removes the autosave record.
func (r *Repository) Clear(ctx context.Context) error {
	err := r.db.WithContext(ctx).Where("id = ?", models.AutosaveID).Delete(&models.ProjectRecord{}).Error
	if err != nil {
		return fmt.Errorf("autosave: clear: %w", err)
	}
	return nil
}
