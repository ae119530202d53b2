package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/showrunner/internal/project"
)

func newNewCmd() *cobra.Command {
	var (
		configPath string
		params     project.NewParams
		format     string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Create a new project",
		Long:  "Creates an empty project and stores it as the autosave record, replacing any existing project.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params.Name = args[0]
			return runNew(cmd, configPath, params, format, yes)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&format, "format", "episodic", "project format (episodic, single)")
	cmd.Flags().StringVar(&params.Author, "author", "", "author name")
	cmd.Flags().StringVar(&params.Logline, "logline", "", "one-line premise")
	cmd.Flags().StringVar(&params.Format.Duration, "duration", "", "target running time, e.g. 22 min")
	cmd.Flags().IntVar(&params.Format.SeasonCount, "seasons", 1, "planned number of seasons")
	cmd.Flags().IntVar(&params.Format.EpisodeCount, "episodes", 6, "planned episodes per season")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "replace an existing project without asking")
	return cmd
}

func parseFormat(s string) (project.FormatType, error) {
	switch strings.ToLower(s) {
	case "episodic", "series":
		return project.FormatEpisodic, nil
	case "single", "single_story", "film":
		return project.FormatSingleStory, nil
	}
	return "", fmt.Errorf("unknown format %q (episodic, single)", s)
}

func runNew(cmd *cobra.Command, configPath string, params project.NewParams, format string, yes bool) error {
	ctx := context.Background()
	ft, err := parseFormat(format)
	if err != nil {
		return err
	}
	params.Format.Type = ft

	e, err := openEnv(ctx, configPath)
	if err != nil {
		return err
	}
	defer e.close()

	if e.doc.Loaded() {
		var existing string
		e.doc.View(func(p *project.Project) { existing = p.Metadata.Name })
		ok, err := confirm(cmd, yes, fmt.Sprintf("Replace project %q", existing))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
	}

	p, err := project.New(params)
	if err != nil {
		return err
	}
	if err := e.repo.Save(ctx, p); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s project %q (%s)\n", strings.ToLower(string(ft)), p.Metadata.Name, p.Metadata.ID)
	return nil
}

func newStatusCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current project",
		Long:  "Displays the project outline: installments, episodes or acts, scene counts, bible sizes and blob store usage.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, configPath)
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runStatus(cmd *cobra.Command, configPath string) error {
	ctx := context.Background()
	e, err := openEnv(ctx, configPath)
	if err != nil {
		return err
	}
	defer e.close()
	if err := e.requireProject(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	e.doc.View(func(p *project.Project) {
		fmt.Fprintf(out, "%s by %s\n", p.Metadata.Name, p.Metadata.Author)
		if p.Logline != "" {
			fmt.Fprintf(out, "  %s\n", p.Logline)
		}
		fmt.Fprintf(out, "Format: %s\n", p.Format.Type)
		fmt.Fprintf(out, "Bible:  %d characters, %d locations, %d props\n",
			len(p.Bible.Characters), len(p.Bible.Locations), len(p.Bible.Props))

		for _, inst := range p.Installments() {
			fmt.Fprintf(out, "\n%s%s\n", inst.Title, lockMark(inst.Locked))
			for _, it := range inst.Items {
				shots := 0
				for _, sc := range it.Scenes {
					shots += len(p.Studio.ShotsByScene[sc.ID])
				}
				fmt.Fprintf(out, "  %d. %-30s %2d scenes %3d shots  %s\n", it.Number, it.Title, len(it.Scenes), shots, it.ID)
			}
		}
	})

	st, err := e.blobs.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nImages: %s stored, %s\n", formatCount(st.Count), formatBytes(st.Bytes))
	return nil
}

func newRenameCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "rename <name>",
		Short: "Rename the current project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRename(cmd, configPath, args[0])
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runRename(cmd *cobra.Command, configPath, name string) error {
	ctx := context.Background()
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name must not be empty")
	}
	e, err := openEnv(ctx, configPath)
	if err != nil {
		return err
	}
	defer e.close()
	if err := e.requireProject(); err != nil {
		return err
	}

	if err := e.doc.Rename(name); err != nil {
		return err
	}
	if err := e.save(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Renamed project to %q\n", name)
	return nil
}
