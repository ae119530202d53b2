package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/showrunner/internal/director"
	"github.com/zulandar/showrunner/internal/genai"
	"github.com/zulandar/showrunner/internal/project"
)

// newDirector builds a director over e backed by the configured generator.
func newDirector(e *env) (*director.Director, error) {
	gen, err := genai.NewGemini(e.cfg.Generation, e.cfg.APIKey())
	if err != nil {
		return nil, fmt.Errorf("%w (set %s)", err, e.cfg.Generation.APIKeyEnv)
	}
	return director.New(e.doc, gen, e.blobs, director.Options{
		TextModel:  e.cfg.Generation.TextModel,
		ImageModel: e.cfg.Generation.ImageModel,
	}), nil
}

// withDirector opens the environment, runs fn with a director and saves the
// project when fn succeeds.
func withDirector(configPath string, fn func(ctx context.Context, d *director.Director) error) error {
	ctx := context.Background()
	e, err := openEnv(ctx, configPath)
	if err != nil {
		return err
	}
	defer e.close()
	if err := e.requireProject(); err != nil {
		return err
	}
	d, err := newDirector(e)
	if err != nil {
		return err
	}
	if err := fn(ctx, d); err != nil {
		return err
	}
	return e.save(ctx)
}

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Fill in the project with the generation service",
	}

	cmd.AddCommand(newGenerateSynopsisCmd())
	cmd.AddCommand(newGenerateStructureCmd())
	cmd.AddCommand(newGenerateScenesCmd())
	cmd.AddCommand(newGenerateScreenplayCmd())
	cmd.AddCommand(newGenerateAnalysisCmd())
	cmd.AddCommand(newGenerateBriefCmd())
	cmd.AddCommand(newGenerateCharacterCmd())
	cmd.AddCommand(newGenerateShotsCmd())
	cmd.AddCommand(newGenerateImageCmd())
	cmd.AddCommand(newGenerateShotImageCmd())
	return cmd
}

func newGenerateSynopsisCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "synopsis",
		Short: "Write the bible synopsis",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDirector(configPath, func(ctx context.Context, d *director.Director) error {
				s, err := d.GenerateSynopsis(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), s)
				return nil
			})
		},
	}
	addConfigFlag(cmd, &configPath)
	return cmd
}

func newGenerateStructureCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "structure",
		Short: "Outline the episodes or acts of the first installment",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDirector(configPath, func(ctx context.Context, d *director.Director) error {
				n, err := d.GenerateStructure(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Outlined %d item(s)\n", n)
				return nil
			})
		},
	}
	addConfigFlag(cmd, &configPath)
	return cmd
}

func newGenerateScenesCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "scenes <item-id>",
		Short: "Break an episode or act into scene summaries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDirector(configPath, func(ctx context.Context, d *director.Director) error {
				scenes, err := d.GenerateSceneSummaries(ctx, args[0])
				if err != nil {
					return err
				}
				for _, sc := range scenes {
					fmt.Fprintf(cmd.OutOrStdout(), "%2d. %s\n", sc.SceneNumber, sc.Summary)
				}
				return nil
			})
		},
	}
	addConfigFlag(cmd, &configPath)
	return cmd
}

func newGenerateScreenplayCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "screenplay <item-id>",
		Short: "Write screenplay lines for every unlocked scene of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDirector(configPath, func(ctx context.Context, d *director.Director) error {
				n, err := d.GenerateScreenplay(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d scene(s)\n", n)
				return nil
			})
		},
	}
	addConfigFlag(cmd, &configPath)
	return cmd
}

func newGenerateAnalysisCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "analysis <item-id>",
		Short: "Extract assets and state changes from an item's screenplay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDirector(configPath, func(ctx context.Context, d *director.Director) error {
				sum, err := d.AnalyzeAssets(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %d asset(s), %d state change(s), mapped %d scene(s)\n",
					sum.Added, sum.Snapshots, sum.Scenes)
				if sum.Unmatched > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "Ignored %d change(s) for unknown assets\n", sum.Unmatched)
				}
				return nil
			})
		},
	}
	addConfigFlag(cmd, &configPath)
	return cmd
}

func newGenerateBriefCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "brief <installment-id>",
		Short: "Summarize a finished season or sequel for the next one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDirector(configPath, func(ctx context.Context, d *director.Director) error {
				b, err := d.GenerateContinuityBrief(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), b.Summary)
				return nil
			})
		},
	}
	addConfigFlag(cmd, &configPath)
	return cmd
}

func newGenerateCharacterCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "character <character-id>",
		Short: "Flesh out a character profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDirector(configPath, func(ctx context.Context, d *director.Director) error {
				if err := d.GenerateCharacterProfile(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated character %s\n", args[0])
				return nil
			})
		},
	}
	addConfigFlag(cmd, &configPath)
	return cmd
}

func newGenerateShotsCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "shots <scene-id>",
		Short: "Plan the shot list of a scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDirector(configPath, func(ctx context.Context, d *director.Director) error {
				shots, err := d.GenerateShotList(ctx, args[0])
				if err != nil {
					return err
				}
				for _, s := range shots {
					fmt.Fprintf(cmd.OutOrStdout(), "%2d. %s (%d reference(s))\n", s.ShotNumber, s.Description, len(s.ReferenceImages))
				}
				return nil
			})
		},
	}
	addConfigFlag(cmd, &configPath)
	return cmd
}

func newGenerateImageCmd() *cobra.Command {
	var (
		configPath string
		prompt     string
	)
	cmd := &cobra.Command{
		Use:   "image <character|location|prop> <asset-id>",
		Short: "Render concept art for a bible asset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := project.ParseKind(args[0])
			if err != nil {
				return err
			}
			return withDirector(configPath, func(ctx context.Context, d *director.Director) error {
				id, err := d.GenerateAssetImage(ctx, kind, args[1], prompt)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stored %s\n", id)
				return nil
			})
		},
	}
	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&prompt, "prompt", "", "override the asset's visual prompt")
	return cmd
}

func newGenerateShotImageCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "shot-image <scene-id> <shot-id>",
		Short: "Render a storyboard frame for a shot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDirector(configPath, func(ctx context.Context, d *director.Director) error {
				id, err := d.GenerateShotImage(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stored %s\n", id)
				return nil
			})
		},
	}
	addConfigFlag(cmd, &configPath)
	return cmd
}
