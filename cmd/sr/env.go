package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/zulandar/showrunner/internal/autosave"
	"github.com/zulandar/showrunner/internal/blobstore"
	"github.com/zulandar/showrunner/internal/config"
	"github.com/zulandar/showrunner/internal/db"
	"github.com/zulandar/showrunner/internal/integrity"
	"github.com/zulandar/showrunner/internal/project"
	"gorm.io/gorm"
)

// env is the opened local store plus the loaded project, if any.
type env struct {
	cfg   *config.Config
	db    *gorm.DB
	blobs *blobstore.Store
	repo  *autosave.Repository
	doc   *project.Document
}

func addConfigFlag(cmd *cobra.Command, path *string) {
	cmd.Flags().StringVarP(path, "config", "c", config.DefaultPath, "path to showrunner config file")
}

// openEnv loads .env and the config, opens and migrates the database, and
// loads the autosaved project. The loaded project is healed against the
// blob store the same way the UI does on startup.
func openEnv(ctx context.Context, configPath string) (*env, error) {
	// A missing .env is normal.
	godotenv.Load()

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	gdb, err := db.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(gdb); err != nil {
		db.Close(gdb)
		return nil, err
	}

	e := &env{
		cfg:   cfg,
		db:    gdb,
		blobs: blobstore.New(gdb),
		repo:  autosave.NewRepository(gdb),
	}
	p, err := e.repo.Load(ctx)
	if err != nil {
		db.Close(gdb)
		return nil, err
	}
	if p != nil {
		integrity.Heal(ctx, p, e.blobs)
	}
	e.doc = project.NewDocument(p)
	return e, nil
}

// requireProject returns an error when no project has been created yet.
func (e *env) requireProject() error {
	if !e.doc.Loaded() {
		return fmt.Errorf("no project found; run 'sr new' first")
	}
	return nil
}

// save writes the current document to the autosave record.
func (e *env) save(ctx context.Context) error {
	p, err := e.doc.Project()
	if err != nil {
		return err
	}
	return e.repo.Save(ctx, p)
}

func (e *env) close() {
	db.Close(e.db)
}
