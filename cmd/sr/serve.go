package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/showrunner/internal/autosave"
	"github.com/zulandar/showrunner/internal/director"
	"github.com/zulandar/showrunner/internal/server"
	"github.com/zulandar/showrunner/internal/sweep"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
		noSweep    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the local API for the UI",
		Long:  "Serves the project and image store over HTTP, autosaves every change after a short quiet period and runs the scheduled integrity sweep.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port, noSweep)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (default: server.port from config)")
	cmd.Flags().BoolVar(&noSweep, "no-sweep", false, "disable the scheduled integrity sweep")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int, noSweep bool) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e, err := openEnv(ctx, configPath)
	if err != nil {
		return err
	}
	defer e.close()
	if port == 0 {
		port = e.cfg.Server.Port
	}

	saver := autosave.Attach(e.doc, e.repo, e.cfg.Autosave.Interval)
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer flushCancel()
		if err := saver.Close(flushCtx); err != nil {
			log.Printf("serve: final save: %v", err)
		}
	}()

	var dir *director.Director
	if d, err := newDirector(e); err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Generation disabled: %v\n", err)
	} else {
		dir = d
	}

	if !noSweep {
		if err := sweep.Validate(e.cfg.Integrity.SweepSchedule); err != nil {
			return err
		}
		sw := sweep.New(e.doc, e.blobs, e.db, sweep.Options{Collect: e.cfg.Integrity.CollectOrphans})
		go func() {
			if err := sw.Start(ctx, e.cfg.Integrity.SweepSchedule); err != nil {
				log.Printf("serve: %v", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return server.Start(ctx, server.StartOpts{
		Doc:      e.doc,
		Blobs:    e.blobs,
		Director: dir,
		Port:     port,
		Out:      cmd.OutOrStdout(),
	})
}
