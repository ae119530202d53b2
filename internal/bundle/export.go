package bundle

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"path"

	"github.com/zulandar/showrunner/internal/blobstore"
	"github.com/zulandar/showrunner/internal/project"
)

// Folders images are filed under inside an archive.
const (
	FolderArtDept = "artdept"
	FolderShots   = "shots"
	FolderHistory = "history"
)

// BlobGetter reads stored images.
type BlobGetter interface {
	Get(ctx context.Context, id string) (*blobstore.Blob, bool, error)
}

// ExportResult describes a written archive.
type ExportResult struct {
	Images  int
	Missing []string
}

// Export writes data as a zip archive to w. Every blob id referenced in the
// serialized data is looked up and stored next to it; ids with no stored
// blob are skipped. p, when non-nil, is used to give images friendly names
// and sort them into folders.
func Export(ctx context.Context, w io.Writer, m Module, data any, p *project.Project, blobs BlobGetter) (ExportResult, error) {
	var res ExportResult
	doc, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return res, fmt.Errorf("bundle: export: encode: %w", err)
	}

	zw := zip.NewWriter(w)
	fw, err := zw.Create(m.MainFile())
	if err != nil {
		return res, fmt.Errorf("bundle: export: %w", err)
	}
	if _, err := fw.Write(doc); err != nil {
		return res, fmt.Errorf("bundle: export: %w", err)
	}

	for _, id := range ReferencedIDs(doc) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		blob, found, err := blobs.Get(ctx, id)
		if err != nil {
			return res, fmt.Errorf("bundle: export: read %s: %w", id, err)
		}
		if !found {
			log.Printf("bundle: export: image %s not in store, skipped", id)
			res.Missing = append(res.Missing, id)
			continue
		}
		fw, err := zw.Create(entryName(id, blob.ContentType, p))
		if err != nil {
			return res, fmt.Errorf("bundle: export: %w", err)
		}
		if _, err := fw.Write(blob.Data); err != nil {
			return res, fmt.Errorf("bundle: export: %w", err)
		}
		res.Images++
	}

	if err := zw.Close(); err != nil {
		return res, fmt.Errorf("bundle: export: %w", err)
	}
	return res, nil
}

// ReferencedIDs returns the distinct blob ids quoted in a JSON document, in
// order of first appearance.
func ReferencedIDs(doc []byte) []string {
	seen := blobstore.NewIDSet()
	var ids []string
	for _, m := range jsonRefPattern.FindAllSubmatch(doc, -1) {
		id := string(m[1])
		if seen.Has(id) {
			continue
		}
		seen.Add(id)
		ids = append(ids, id)
	}
	return ids
}

func entryName(id, contentType string, p *project.Project) string {
	ext := blobstore.Extension(contentType)
	name := fmt.Sprintf("%s.%s", id, ext)
	if p == nil {
		return path.Join(FolderHistory, name)
	}
	if friendly := friendlyName(id, p); friendly != "" {
		name = fmt.Sprintf("%s__%s.%s", friendly, id, ext)
	}
	return path.Join(classify(id, p), name)
}

// friendlyName names an image after the asset or shot showing it as its
// active image, or returns "".
func friendlyName(id string, p *project.Project) string {
	for _, c := range p.Bible.Characters {
		if c.Profile.GeneratedImageURL == id {
			return "Char_" + nonAlnum.ReplaceAllString(c.Profile.Name, "")
		}
	}
	for _, l := range p.Bible.Locations {
		if l.BaseProfile.Visuals.GeneratedImageURL == id {
			return "Loc_" + nonAlnum.ReplaceAllString(l.BaseProfile.Identity.Name, "")
		}
	}
	for _, pr := range p.Bible.Props {
		if pr.BaseProfile.Visuals.GeneratedImageURL == id {
			return "Prop_" + nonAlnum.ReplaceAllString(pr.BaseProfile.Identity.Name, "")
		}
	}
	// The last matching shot wins.
	var name string
	order := p.SceneOrder()
	for _, ref := range order.Refs() {
		for _, sh := range p.Studio.ShotsByScene[ref.SceneID] {
			if sh.GeneratedImageURL == id {
				name = fmt.Sprintf("%s_Shot%d", ref.Code, sh.ShotNumber)
			}
		}
	}
	return name
}

// classify picks the archive folder for an image: active bible images go to
// artdept, active shot images to shots, everything else to history.
func classify(id string, p *project.Project) string {
	for _, a := range p.Bible.Assets() {
		if a.Images().GeneratedImageURL == id {
			return FolderArtDept
		}
	}
	for _, shots := range p.Studio.ShotsByScene {
		for _, sh := range shots {
			if sh.GeneratedImageURL == id {
				return FolderShots
			}
		}
	}
	return FolderHistory
}
