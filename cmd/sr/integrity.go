package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/showrunner/internal/integrity"
	"github.com/zulandar/showrunner/internal/project"
	"github.com/zulandar/showrunner/internal/sweep"
	"github.com/zulandar/showrunner/internal/timeline"
)

func newResolveCmd() *cobra.Command {
	var (
		configPath string
		sceneID    string
	)

	cmd := &cobra.Command{
		Use:   "resolve <character|location|prop> <asset-id>",
		Short: "Print an asset's state at a scene",
		Long:  "Applies every timeline snapshot up to and including the given scene and prints the resolved asset as JSON.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, configPath, args[0], args[1], sceneID)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&sceneID, "scene", "", "scene id to resolve at")
	cmd.MarkFlagRequired("scene")
	return cmd
}

func runResolve(cmd *cobra.Command, configPath, kindArg, id, sceneID string) error {
	kind, err := project.ParseKind(kindArg)
	if err != nil {
		return err
	}
	e, err := openEnv(context.Background(), configPath)
	if err != nil {
		return err
	}
	defer e.close()
	if err := e.requireProject(); err != nil {
		return err
	}

	var res timeline.Result
	e.doc.View(func(p *project.Project) {
		res, err = timeline.ResolveByRef(p, kind, id, sceneID)
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if res.Warning != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", res.Warning)
	}
	fmt.Fprintf(out, "Applied %d snapshot(s)\n", len(res.Applied))
	data, err := json.MarshalIndent(res.Asset, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(data))
	return nil
}

func newScanCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Repair image references",
		Long:  "Moves inline images into the blob store and removes references to images that no longer exist.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, configPath)
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

// runScan heals the stored record rather than the copy openEnv already
// healed, so the counts reflect what was persisted.
func runScan(cmd *cobra.Command, configPath string) error {
	ctx := context.Background()
	e, err := openEnv(ctx, configPath)
	if err != nil {
		return err
	}
	defer e.close()

	raw, err := e.repo.Load(ctx)
	if err != nil {
		return err
	}
	if raw == nil {
		return e.requireProject()
	}

	r := integrity.Heal(ctx, raw, e.blobs)
	if r.Skipped {
		return fmt.Errorf("scan skipped: %w", r.Err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Checked %d image references\n", r.Checked)
	fmt.Fprintf(out, "Migrated %d inline images\n", r.Migrated)
	fmt.Fprintf(out, "Removed %d broken references\n", r.Dropped)
	if r.Err != nil {
		fmt.Fprintf(out, "Warning: %v\n", r.Err)
	}
	if r.Migrated+r.Dropped == 0 {
		return nil
	}
	return e.repo.Save(ctx, raw)
}

func newGCCmd() *cobra.Command {
	var (
		configPath string
		dryRun     bool
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Delete images no longer referenced by the project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGC(cmd, configPath, dryRun, yes)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list orphaned images without deleting them")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "delete without asking")
	return cmd
}

func runGC(cmd *cobra.Command, configPath string, dryRun, yes bool) error {
	ctx := context.Background()
	e, err := openEnv(ctx, configPath)
	if err != nil {
		return err
	}
	defer e.close()
	if err := e.requireProject(); err != nil {
		return err
	}

	p, err := e.doc.Project()
	if err != nil {
		return err
	}
	referenced := integrity.Referenced(p)
	orphans, err := e.blobs.Orphans(ctx, referenced)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(orphans) == 0 {
		fmt.Fprintln(out, "No orphaned images.")
		return nil
	}
	for _, id := range orphans {
		fmt.Fprintf(out, "  %s\n", id)
	}
	if dryRun {
		fmt.Fprintf(out, "%d orphaned image(s)\n", len(orphans))
		return nil
	}
	ok, err := confirm(cmd, yes, fmt.Sprintf("Delete %d orphaned image(s)", len(orphans)))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(out, "Aborted.")
		return nil
	}

	removed, err := e.blobs.GC(ctx, referenced)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Deleted %d image(s)\n", len(removed))
	return nil
}

func newSweepsCmd() *cobra.Command {
	var (
		configPath string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "sweeps",
		Short: "List recent scheduled integrity sweeps",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweeps(cmd, configPath, limit)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show")
	return cmd
}

func runSweeps(cmd *cobra.Command, configPath string, limit int) error {
	ctx := context.Background()
	e, err := openEnv(ctx, configPath)
	if err != nil {
		return err
	}
	defer e.close()

	runs, err := sweep.Recent(ctx, e.db, limit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No sweeps recorded.")
		return nil
	}
	for _, r := range runs {
		status := "ok"
		if r.Error != "" {
			status = r.Error
		}
		fmt.Fprintf(out, "%s  migrated=%d dropped=%d orphans=%d  %s\n",
			r.StartedAt.Format("2006-01-02 15:04:05"), r.Migrated, r.Dropped, r.Orphans, status)
	}
	if next, err := sweep.Next(e.cfg.Integrity.SweepSchedule, time.Now()); err == nil {
		fmt.Fprintf(out, "Next scheduled: %s\n", next.Format("2006-01-02 15:04"))
	}
	return nil
}
