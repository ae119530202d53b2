// Package director runs generation workflows against the live project:
// it builds prompts from the document, calls the generator and writes the
// results back through document mutations.
package director

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/showrunner/internal/blobstore"
	"github.com/zulandar/showrunner/internal/genai"
	"github.com/zulandar/showrunner/internal/project"
)

// ErrStale is returned when a newer request for the same entity finished
// first; the stale result is discarded.
var ErrStale = errors.New("director: superseded by a newer request")

// Blobs is what the director needs from the blob store.
type Blobs interface {
	Put(ctx context.Context, data []byte) (string, error)
	Get(ctx context.Context, id string) (*blobstore.Blob, bool, error)
}

// Options tunes generation.
type Options struct {
	TextModel  string
	ImageModel string
	// Resolution is passed to image models that support it, e.g. "1K".
	Resolution string
}

// Director coordinates generation for one document.
type Director struct {
	doc     *project.Document
	gen     genai.Generator
	blobs   Blobs
	opts    Options
	tracker *genai.Tracker
	now     func() time.Time
}

// New returns a director for doc.
func New(doc *project.Document, gen genai.Generator, blobs Blobs, opts Options) *Director {
	return &Director{
		doc:     doc,
		gen:     gen,
		blobs:   blobs,
		opts:    opts,
		tracker: genai.NewTracker(),
		now:     time.Now,
	}
}

// snapshot returns a private copy of the project to build prompts from.
func (d *Director) snapshot() (*project.Project, error) {
	return d.doc.Project()
}

func (d *Director) generateJSON(ctx context.Context, prompt string, maxTokens int, v any) error {
	err := genai.GenerateJSON(ctx, d.gen, genai.TextRequest{
		Model:     d.opts.TextModel,
		Prompt:    prompt,
		MaxTokens: maxTokens,
	}, v)
	if err != nil {
		return fmt.Errorf("director: generate: %w", err)
	}
	return nil
}
