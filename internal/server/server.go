// Package server exposes the live project document and the blob store over
// a local HTTP API for a browser UI.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/showrunner/internal/blobstore"
	"github.com/zulandar/showrunner/internal/director"
	"github.com/zulandar/showrunner/internal/project"
)

// StartOpts holds configuration for the API server.
type StartOpts struct {
	Doc   *project.Document
	Blobs *blobstore.Store
	// Director is optional. Without it the generation routes answer 503.
	Director *director.Director
	Port     int
	Out      io.Writer
}

// Start launches the API server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	gin.SetMode(gin.ReleaseMode)
	router, err := NewRouter(opts)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "API listening at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(opts StartOpts) (*gin.Engine, error) {
	if opts.Doc == nil {
		return nil, fmt.Errorf("server: document is required")
	}
	if opts.Blobs == nil {
		return nil, fmt.Errorf("server: blob store is required")
	}

	router := gin.New()
	router.Use(gin.Recovery())

	events := newBroker()
	opts.Doc.OnChange(events.publish)

	registerRoutes(router, &handlers{
		doc:    opts.Doc,
		blobs:  opts.Blobs,
		dir:    opts.Director,
		events: events,
	})
	return router, nil
}
