package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/showrunner/internal/bundle"
	"github.com/zulandar/showrunner/internal/integrity"
	"github.com/zulandar/showrunner/internal/project"
)

// moduleData returns the part of p a module bundle carries.
func moduleData(m bundle.Module, p *project.Project) any {
	switch m {
	case bundle.ModuleBible:
		return p.Bible
	case bundle.ModuleScript:
		return p.Script
	case bundle.ModuleStudio:
		return p.Studio
	case bundle.ModuleArtDept:
		return p.Art
	}
	return p
}

func newExportCmd() *cobra.Command {
	var (
		configPath string
		module     string
		output     string
		brief      string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the project or one module as a bundle",
		Long:  "Writes a zip bundle with the JSON document and every referenced image. Use --brief to export one continuity brief as JSON instead.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if brief != "" {
				return runExportBrief(cmd, configPath, brief, output)
			}
			return runExport(cmd, configPath, module, output)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVarP(&module, "module", "m", "zip", "module to export (zip, bible, script, thestudio, artdept)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (default: generated name in the current directory)")
	cmd.Flags().StringVar(&brief, "brief", "", "export the continuity brief of this season or sequel id")
	return cmd
}

// writeBundle exports module m of the loaded project to w.
func writeBundle(ctx context.Context, e *env, m bundle.Module, w io.Writer) (bundle.ExportResult, string, error) {
	p, err := e.doc.Project()
	if err != nil {
		return bundle.ExportResult{}, "", err
	}
	res, err := bundle.Export(ctx, w, m, moduleData(m, p), p, e.blobs)
	if err != nil {
		return res, "", err
	}
	name := bundle.FileName(m.BaseName(p.Metadata.Name), m.Extension(), time.Now())
	return res, name, nil
}

func runExport(cmd *cobra.Command, configPath, moduleArg, output string) error {
	ctx := context.Background()
	m, err := bundle.ParseModule(moduleArg)
	if err != nil {
		return err
	}
	e, err := openEnv(ctx, configPath)
	if err != nil {
		return err
	}
	defer e.close()
	if err := e.requireProject(); err != nil {
		return err
	}

	var buf bytes.Buffer
	res, name, err := writeBundle(ctx, e, m, &buf)
	if err != nil {
		return err
	}
	if output == "" {
		output = name
	}
	if err := os.WriteFile(output, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Exported %s with %d image(s) to %s\n", m, res.Images, output)
	if len(res.Missing) > 0 {
		fmt.Fprintf(out, "Skipped %d missing image(s)\n", len(res.Missing))
	}
	return nil
}

func runExportBrief(cmd *cobra.Command, configPath, installmentID, output string) error {
	ctx := context.Background()
	e, err := openEnv(ctx, configPath)
	if err != nil {
		return err
	}
	defer e.close()
	if err := e.requireProject(); err != nil {
		return err
	}

	var (
		inst     project.InstallmentInfo
		name     string
		episodic bool
		findErr  error
	)
	e.doc.View(func(p *project.Project) {
		name, episodic = p.Metadata.Name, p.Episodic()
		inst, findErr = p.Installment(installmentID)
	})
	if findErr != nil {
		return findErr
	}
	if inst.Brief == nil {
		return fmt.Errorf("%s has no continuity brief", inst.Title)
	}

	data, err := json.MarshalIndent(inst.Brief, "", "  ")
	if err != nil {
		return err
	}
	if output == "" {
		output = bundle.BriefFileName(name, episodic, inst.Number)
	}
	if err := os.WriteFile(output, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported continuity brief of %s to %s\n", inst.Title, output)
	return nil
}

func newImportCmd() *cobra.Command {
	var (
		configPath string
		module     string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a bundle",
		Long:  "Restores a project bundle, replacing the current project, or swaps in one module (bible, script, studio, art department). The module is taken from the file extension unless --module is given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, configPath, args[0], module, yes)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVarP(&module, "module", "m", "", "bundle module (default: from file extension)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "replace the current project without asking")
	return cmd
}

func runImport(cmd *cobra.Command, configPath, path, moduleArg string, yes bool) error {
	ctx := context.Background()
	if moduleArg == "" {
		moduleArg = filepath.Ext(path)
		if moduleArg == ".json" {
			moduleArg = string(bundle.ModuleProject)
		}
	}
	m, err := bundle.ParseModule(moduleArg)
	if err != nil {
		return err
	}

	e, err := openEnv(ctx, configPath)
	if err != nil {
		return err
	}
	defer e.close()

	if m == bundle.ModuleProject && e.doc.Loaded() {
		ok, err := confirm(cmd, yes, "Replace the current project")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
	}
	if m != bundle.ModuleProject {
		if err := e.requireProject(); err != nil {
			return err
		}
	}

	res, err := bundle.ImportFile(ctx, path, e.blobs)
	if err != nil {
		return err
	}
	if err := applyImport(e, m, res.Data); err != nil {
		return err
	}
	var report integrity.Report
	if err := e.doc.Update(func(p *project.Project) error {
		report = integrity.Heal(ctx, p, e.blobs)
		return nil
	}); err != nil {
		return err
	}
	if err := e.save(ctx); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Imported %s with %d image(s)\n", m, res.Images)
	if len(res.Remapped) > 0 {
		fmt.Fprintf(out, "Remapped %d image id(s)\n", len(res.Remapped))
	}
	if report.Migrated > 0 || report.Dropped > 0 {
		fmt.Fprintf(out, "Stored %d inline image(s), removed %d broken reference(s)\n", report.Migrated, report.Dropped)
	}
	return nil
}

// applyImport swaps the imported document into e's project.
func applyImport(e *env, m bundle.Module, data []byte) error {
	switch m {
	case bundle.ModuleProject:
		p, err := project.Decode(data)
		if err != nil {
			return err
		}
		e.doc.Set(p)
		return nil
	case bundle.ModuleBible:
		var b project.Bible
		if err := json.Unmarshal(data, &b); err != nil {
			return fmt.Errorf("decode bible: %w", err)
		}
		return e.doc.ReplaceBible(b)
	case bundle.ModuleScript:
		var s project.Script
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode script: %w", err)
		}
		return e.doc.ReplaceScript(s)
	case bundle.ModuleStudio:
		var s project.Studio
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode studio: %w", err)
		}
		return e.doc.ReplaceStudio(s)
	case bundle.ModuleArtDept:
		var a project.Art
		if err := json.Unmarshal(data, &a); err != nil {
			return fmt.Errorf("decode art department: %w", err)
		}
		return e.doc.Update(func(p *project.Project) error {
			p.Art = a
			return nil
		})
	}
	return fmt.Errorf("unsupported module %q", m)
}

func newPublishCmd() *cobra.Command {
	var (
		configPath string
		module     string
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload a bundle to the configured bucket",
		Long:  "Exports the project or one module and uploads it to the S3-compatible bucket in the publish config section, printing a time-limited download link.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd, configPath, module)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVarP(&module, "module", "m", "zip", "module to publish (zip, bible, script, thestudio, artdept)")
	return cmd
}

func runPublish(cmd *cobra.Command, configPath, moduleArg string) error {
	ctx := context.Background()
	m, err := bundle.ParseModule(moduleArg)
	if err != nil {
		return err
	}
	e, err := openEnv(ctx, configPath)
	if err != nil {
		return err
	}
	defer e.close()
	if err := e.requireProject(); err != nil {
		return err
	}

	pub, err := bundle.NewPublisher(e.cfg.Publish)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	res, name, err := writeBundle(ctx, e, m, &buf)
	if err != nil {
		return err
	}
	link, err := pub.Publish(ctx, name, bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Published %s (%s, %d image(s))\n", name, formatBytes(int64(buf.Len())), res.Images)
	fmt.Fprintf(cmd.OutOrStdout(), "Link (valid %s): %s\n", bundle.LinkExpiry, link)
	return nil
}
