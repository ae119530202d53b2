package bundle

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/zulandar/showrunner/internal/project"
)

// ErrNotBundle is returned when the input is neither a zip archive nor a
// plain JSON document.
var ErrNotBundle = errors.New("bundle: not a bundle")

// maxEntrySize caps a single archive entry.
const maxEntrySize = 256 << 20

// BlobImporter stores images arriving from an archive.
type BlobImporter interface {
	Import(ctx context.Context, id string, data []byte) (string, error)
}

// ImportResult is the document read from an archive.
type ImportResult struct {
	// Data is the JSON document with any remapped blob ids rewritten.
	Data []byte
	// Images counts the archive images stored.
	Images int
	// Remapped maps archive ids to the ids they were stored under, for ids
	// that changed.
	Remapped map[string]string
	// Legacy is set when the input was a plain JSON document.
	Legacy bool
}

// Import reads an archive from r. Every file whose name carries a blob id
// is stored through blobs before the JSON document is returned. The
// document is chosen as project.json, then data.json, then the first .json
// file in the archive. Plain JSON input (starting with '{') is accepted as
// a legacy bundle without images.
func Import(ctx context.Context, r io.ReaderAt, size int64, blobs BlobImporter) (*ImportResult, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return importPlain(io.NewSectionReader(r, 0, size))
	}

	res := &ImportResult{Remapped: map[string]string{}}
	var jsonFiles []*zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := path.Base(f.Name)
		if strings.HasSuffix(strings.ToLower(name), ".json") {
			jsonFiles = append(jsonFiles, f)
			continue
		}
		m := fileIDPattern.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		id := strings.ToLower(m[1])
		data, err := readEntry(f)
		if err != nil {
			return nil, fmt.Errorf("bundle: import: read %s: %w", f.Name, err)
		}
		stored, err := blobs.Import(ctx, id, data)
		if err != nil {
			return nil, fmt.Errorf("bundle: import: store %s: %w", id, err)
		}
		if stored != id {
			res.Remapped[id] = stored
			if m[1] != id {
				res.Remapped[m[1]] = stored
			}
		}
		res.Images++
	}
	if res.Images > 0 {
		log.Printf("bundle: import: restored %d images", res.Images)
	}

	mainFile := pickMain(jsonFiles)
	if mainFile == nil {
		return nil, fmt.Errorf("bundle: import: no JSON document in archive: %w", ErrNotBundle)
	}
	doc, err := readEntry(mainFile)
	if err != nil {
		return nil, fmt.Errorf("bundle: import: read %s: %w", mainFile.Name, err)
	}
	res.Data = rewriteIDs(doc, res.Remapped)
	return res, nil
}

// ImportFile imports the bundle at path.
func ImportFile(ctx context.Context, path string, blobs BlobImporter) (*ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("bundle: import: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("bundle: import: %w", err)
	}
	return Import(ctx, f, info.Size(), blobs)
}

// Project decodes the imported document as a full project.
func (r *ImportResult) Project() (*project.Project, error) {
	return project.Decode(r.Data)
}

func importPlain(r io.Reader) (*ImportResult, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxEntrySize))
	if err != nil {
		return nil, fmt.Errorf("bundle: import: %w", err)
	}
	if !bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		return nil, ErrNotBundle
	}
	return &ImportResult{Data: data, Remapped: map[string]string{}, Legacy: true}, nil
}

func pickMain(files []*zip.File) *zip.File {
	for _, want := range []string{ProjectFile, DataFile} {
		for _, f := range files {
			if f.Name == want {
				return f
			}
		}
	}
	if len(files) == 0 {
		return nil
	}
	sort.SliceStable(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files[0]
}

func readEntry(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > maxEntrySize {
		return nil, fmt.Errorf("entry too large (%d bytes)", f.UncompressedSize64)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, maxEntrySize))
}

// rewriteIDs replaces quoted occurrences of remapped ids.
func rewriteIDs(doc []byte, remap map[string]string) []byte {
	if len(remap) == 0 {
		return doc
	}
	pairs := make([]string, 0, 2*len(remap))
	for from, to := range remap {
		pairs = append(pairs, `"`+from+`"`, `"`+to+`"`)
	}
	return []byte(strings.NewReplacer(pairs...).Replace(string(doc)))
}
