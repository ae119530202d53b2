package blobstore

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// IDPrefix marks a reference string as a stored blob id.
const IDPrefix = "img_"

// idPattern matches a complete blob id.
var idPattern = regexp.MustCompile(`^img_[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// ErrBadDataURI is returned when an inline data URI cannot be decoded.
var ErrBadDataURI = errors.New("blobstore: malformed data URI")

// NewID mints a fresh blob id.
func NewID() string {
	return IDPrefix + uuid.NewString()
}

// IsBlobRef reports whether ref points into the blob store.
func IsBlobRef(ref string) bool {
	return strings.HasPrefix(ref, IDPrefix)
}

// IsValidID reports whether id is a well-formed blob id.
func IsValidID(id string) bool {
	return idPattern.MatchString(id)
}

// IsDataURI reports whether ref is an inline data URI.
func IsDataURI(ref string) bool {
	return strings.HasPrefix(ref, "data:")
}

// DecodeDataURI splits a base64 data URI into its media type and bytes.
func DecodeDataURI(uri string) (string, []byte, error) {
	if !IsDataURI(uri) {
		return "", nil, ErrBadDataURI
	}
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return "", nil, ErrBadDataURI
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrBadDataURI, err)
	}
	return strings.TrimSuffix(header, ";base64"), data, nil
}

// DetectContentType sniffs the media type of data.
func DetectContentType(data []byte) string {
	return mimetype.Detect(data).String()
}

// Extension returns the file extension, without the dot, for an image
// content type. Unknown and non-image types fall back to "png".
func Extension(contentType string) string {
	if !strings.HasPrefix(contentType, "image/") {
		return "png"
	}
	if m := mimetype.Lookup(contentType); m != nil && m.Extension() != "" {
		return strings.TrimPrefix(m.Extension(), ".")
	}
	return "png"
}

// IDSet is a set of blob ids.
type IDSet map[string]struct{}

// NewIDSet builds a set from ids.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts id into the set.
func (s IDSet) Add(id string) { s[id] = struct{}{} }

// Has reports whether id is in the set.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the ids in lexical order.
func (s IDSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

const placeholderPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

var placeholder = mustDecode(placeholderPNG)

func mustDecode(s string) []byte {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

// Placeholder returns a 1x1 transparent PNG to show in place of a missing blob.
func Placeholder() *Blob {
	data := make([]byte, len(placeholder))
	copy(data, placeholder)
	return &Blob{ContentType: "image/png", Data: data, Size: int64(len(data))}
}
