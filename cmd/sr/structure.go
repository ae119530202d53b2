package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/showrunner/internal/director"
	"github.com/zulandar/showrunner/internal/project"
)

func newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Extend the script structure",
	}

	cmd.AddCommand(newAddInstallmentCmd())
	cmd.AddCommand(newAddItemCmd())
	return cmd
}

// editStructure opens the environment, runs fn against a director that has
// no generator, and saves on success.
func editStructure(configPath string, fn func(e *env, d *director.Director) error) error {
	ctx := context.Background()
	e, err := openEnv(ctx, configPath)
	if err != nil {
		return err
	}
	defer e.close()
	if err := e.requireProject(); err != nil {
		return err
	}
	if err := fn(e, director.New(e.doc, nil, e.blobs, director.Options{})); err != nil {
		return err
	}
	return e.save(ctx)
}

func newAddInstallmentCmd() *cobra.Command {
	var (
		configPath string
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "installment",
		Short: "Start the next season or part",
		Long:  "Adds a season (episodic) or part (single story). The previous one must have a continuity brief unless --force is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return editStructure(configPath, func(e *env, d *director.Director) error {
				var (
					id  string
					err error
				)
				switch {
				case !force:
					id, err = d.BeginInstallment()
				case episodic(e):
					id, err = e.doc.AddSeason()
				default:
					id, err = e.doc.AddSequel()
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", id)
				return nil
			})
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().BoolVar(&force, "force", false, "skip the continuity brief check")
	return cmd
}

func newAddItemCmd() *cobra.Command {
	var (
		configPath string
		title      string
		summary    string
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "item <installment-id>",
		Short: "Append an episode or act",
		Long:  "Appends an episode or act to a season or part. The previous one must have a complete screenplay unless --force is given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editStructure(configPath, func(e *env, d *director.Director) error {
				var (
					id  string
					err error
				)
				switch {
				case !force:
					id, err = d.AppendItem(args[0], title, summary)
				case episodic(e):
					id, err = e.doc.AddEpisode(args[0], title, summary)
				default:
					id, err = e.doc.AddAct(args[0], title, summary)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", id)
				return nil
			})
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&title, "title", "", "episode or act title")
	cmd.Flags().StringVar(&summary, "summary", "", "logline or summary")
	cmd.Flags().BoolVar(&force, "force", false, "skip the previous-item check")
	return cmd
}

func newLockCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "lock <installment-id>",
		Short: "Toggle the lock on a season or part",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editStructure(configPath, func(e *env, _ *director.Director) error {
				locked, err := e.doc.ToggleInstallmentLock(args[0])
				if err != nil {
					return err
				}
				state := "unlocked"
				if locked {
					state = "locked"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", args[0], state)
				return nil
			})
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func episodic(e *env) bool {
	var ok bool
	e.doc.View(func(p *project.Project) { ok = p.Episodic() })
	return ok
}
