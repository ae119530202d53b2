package director

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/zulandar/showrunner/internal/blobstore"
	"github.com/zulandar/showrunner/internal/genai"
	"github.com/zulandar/showrunner/internal/project"
)

// GenerateShotList replaces a scene's shots with a generated list. Each
// key asset that has an active image becomes an active reference image.
// A list superseded by a newer request for the same scene returns ErrStale.
func (d *Director) GenerateShotList(ctx context.Context, sceneID string) ([]project.Shot, error) {
	p, err := d.snapshot()
	if err != nil {
		return nil, err
	}
	sc, ok := p.FindScene(sceneID)
	if !ok {
		return nil, fmt.Errorf("%w: scene %s", project.ErrNotFound, sceneID)
	}

	var out struct {
		Shots []struct {
			Description string   `json:"description"`
			KeyAssets   []string `json:"keyAssets"`
		} `json:"shots"`
	}
	genCtx, tok := d.tracker.Begin(ctx, "shots:"+sceneID)
	defer d.tracker.Done(tok)
	if err := d.generateJSON(genCtx, shotListPrompt(p, *sc), 0, &out); err != nil {
		if genCtx.Err() != nil && ctx.Err() == nil {
			return nil, ErrStale
		}
		return nil, err
	}
	if !d.tracker.Commit(tok) {
		return nil, ErrStale
	}

	shots := make([]project.Shot, len(out.Shots))
	for i, s := range out.Shots {
		shots[i] = project.Shot{
			ID:               uuid.NewString(),
			ShotNumber:       i + 1,
			Description:      s.Description,
			VisualPromptText: s.Description,
			ReferenceImages:  keyAssetReferences(&p.Bible, s.KeyAssets),
			IsLocked:         true,
			Origin:           project.OriginAI,
		}
	}
	if err := d.doc.SetShots(sceneID, shots); err != nil {
		return nil, err
	}
	return shots, nil
}

// keyAssetReferences resolves asset names to reference images. Characters
// are matched first, then locations, then props.
func keyAssetReferences(b *project.Bible, names []string) []project.ShotReferenceImage {
	refs := []project.ShotReferenceImage{}
	for _, name := range names {
		for _, kind := range []project.Kind{project.KindCharacter, project.KindLocation, project.KindProp} {
			a, ok := b.FindByName(kind, name)
			if !ok || a.Images().GeneratedImageURL == "" {
				continue
			}
			refs = append(refs, project.ShotReferenceImage{
				ID:         uuid.NewString(),
				SourceType: string(kind),
				URL:        a.Images().GeneratedImageURL,
				IsActive:   true,
				Name:       a.AssetName(),
			})
			break
		}
	}
	return refs
}

// GenerateAssetImage generates concept art for an asset, using its
// reference images, and makes it the asset's active image. An empty prompt
// falls back to the asset's visual prompt. A result superseded by a newer
// request for the same asset returns ErrStale.
func (d *Director) GenerateAssetImage(ctx context.Context, kind project.Kind, assetID, prompt string) (string, error) {
	p, err := d.snapshot()
	if err != nil {
		return "", err
	}
	a, ok := p.Bible.Find(kind, assetID)
	if !ok {
		return "", fmt.Errorf("%w: %s %s", project.ErrNotFound, kind, assetID)
	}
	if prompt == "" {
		prompt = assetImagePrompt(a)
	}
	var refs []project.ShotReferenceImage
	for _, url := range a.Images().ReferenceImages {
		refs = append(refs, project.ShotReferenceImage{SourceType: project.SourceUserUpload, URL: url, IsActive: true})
	}

	genCtx, tok := d.tracker.Begin(ctx, fmt.Sprintf("asset:%s:%s", kind, assetID))
	defer d.tracker.Done(tok)
	data, err := d.generateImage(genCtx, prompt, refs)
	if err != nil {
		if genCtx.Err() != nil && ctx.Err() == nil {
			return "", ErrStale
		}
		return "", err
	}
	if !d.tracker.Commit(tok) {
		return "", ErrStale
	}
	return d.AttachAssetImage(ctx, kind, assetID, data)
}

// AttachAssetImage stores data and makes it the asset's active image,
// adding it to the front of the history.
func (d *Director) AttachAssetImage(ctx context.Context, kind project.Kind, assetID string, data []byte) (string, error) {
	id, err := d.blobs.Put(ctx, data)
	if err != nil {
		return "", fmt.Errorf("director: store image: %w", err)
	}
	entry := project.ImageEntry{ID: uuid.NewString(), URL: id, Timestamp: d.now().UnixMilli()}
	err = d.doc.UpdateAsset(kind, assetID, func(a project.Asset) {
		set := a.Images()
		set.GeneratedImageURL = id
		set.ImageHistory = append([]project.ImageEntry{entry}, set.ImageHistory...)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// GenerateShotImage renders a shot from its visual prompt and active
// reference images and makes it the shot's active image.
func (d *Director) GenerateShotImage(ctx context.Context, sceneID, shotID string) (string, error) {
	p, err := d.snapshot()
	if err != nil {
		return "", err
	}
	shot, ok := p.FindShot(sceneID, shotID)
	if !ok {
		return "", fmt.Errorf("%w: shot %s in scene %s", project.ErrNotFound, shotID, sceneID)
	}
	prompt := shot.VisualPromptText
	if prompt == "" {
		prompt = shot.Description
	}

	genCtx, tok := d.tracker.Begin(ctx, fmt.Sprintf("shot:%s:%s", sceneID, shotID))
	defer d.tracker.Done(tok)
	data, err := d.generateImage(genCtx, prompt, shot.ReferenceImages)
	if err != nil {
		if genCtx.Err() != nil && ctx.Err() == nil {
			return "", ErrStale
		}
		return "", err
	}
	if !d.tracker.Commit(tok) {
		return "", ErrStale
	}

	id, err := d.blobs.Put(ctx, data)
	if err != nil {
		return "", fmt.Errorf("director: store image: %w", err)
	}
	entry := project.ImageEntry{ID: uuid.NewString(), URL: id, Timestamp: d.now().UnixMilli()}
	err = d.doc.UpdateShot(sceneID, shotID, func(s *project.Shot) {
		s.GeneratedImageURL = id
		s.ImageHistory = append([]project.ImageEntry{entry}, s.ImageHistory...)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (d *Director) generateImage(ctx context.Context, prompt string, refs []project.ShotReferenceImage) ([]byte, error) {
	resolved, err := d.resolveReferences(ctx, refs)
	if err != nil {
		return nil, err
	}
	data, err := d.gen.GenerateImage(ctx, genai.ImageRequest{
		Model:       d.opts.ImageModel,
		Prompt:      prompt,
		References:  resolved,
		AspectRatio: "16:9",
		Resolution:  d.opts.Resolution,
	})
	if err != nil {
		return nil, fmt.Errorf("director: generate image: %w", err)
	}
	return data, nil
}

// resolveReferences loads the bytes of active blob references. References
// that are not blob ids or no longer resolve are skipped.
func (d *Director) resolveReferences(ctx context.Context, refs []project.ShotReferenceImage) ([]genai.ReferenceImage, error) {
	var out []genai.ReferenceImage
	for _, r := range refs {
		if !r.IsActive {
			continue
		}
		if !blobstore.IsBlobRef(r.URL) {
			log.Printf("director: skip reference %s: not a stored image", r.ID)
			continue
		}
		blob, found, err := d.blobs.Get(ctx, r.URL)
		if err != nil {
			return nil, fmt.Errorf("director: load reference %s: %w", r.URL, err)
		}
		if !found {
			log.Printf("director: skip reference %s: image %s missing", r.ID, r.URL)
			continue
		}
		label := "Reference Style/Structure:"
		if r.SourceType == project.SourceCharacter {
			label = "Reference Character:"
		}
		out = append(out, genai.ReferenceImage{Label: label, MIMEType: blob.ContentType, Data: blob.Data, Active: true})
	}
	return out, nil
}
