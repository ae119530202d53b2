// Package blobstore provides a content-addressed image store backed by GORM.
//
// Identical bytes always resolve to the same id. The hash index is checked
// against the blob table on every store so an index entry whose blob was
// lost is repaired in place instead of minting a second id.
package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/zulandar/showrunner/internal/models"
	"gorm.io/gorm"
)

// ErrEmpty is returned when storing zero bytes.
var ErrEmpty = errors.New("blobstore: empty image data")

// Blob is a resolved image.
type Blob struct {
	ID          string
	ContentType string
	Data        []byte
	Size        int64
}

// Stats summarizes the store contents.
type Stats struct {
	Count int64
	Bytes int64
}

// Store is a content-addressed blob store. Safe for concurrent use.
type Store struct {
	db *gorm.DB
	mu sync.Mutex
}

// New returns a Store over db. Tables must already be migrated.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Put stores data and returns its id. Storing the same bytes again returns
// the same id.
func (s *Store) Put(ctx context.Context, data []byte) (string, error) {
	return s.put(ctx, "", data)
}

// PutDataURI decodes an inline base64 data URI and stores its bytes.
func (s *Store) PutDataURI(ctx context.Context, uri string) (string, error) {
	_, data, err := DecodeDataURI(uri)
	if err != nil {
		return "", err
	}
	return s.put(ctx, "", data)
}

// Import stores data that arrived under id, for example from a bundle.
// Known content keeps its existing id. New content keeps id when it is a
// well-formed blob id not already in use, including by a ghost
// index entry; otherwise a fresh id is minted.
// The returned id is the one references must use.
func (s *Store) Import(ctx context.Context, id string, data []byte) (string, error) {
	return s.put(ctx, id, data)
}

func (s *Store) put(ctx context.Context, preferred string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmpty
	}
	hash := Hash(data)

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		id       string
		repaired bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.ImageHash
		err := tx.Where("hash = ?", hash).First(&entry).Error
		switch {
		case err == nil:
			id = entry.ImageID
			exists, err := blobExists(tx, id)
			if err != nil {
				return err
			}
			if exists {
				return nil
			}
			if err := tx.Create(newBlob(id, data)).Error; err != nil {
				return fmt.Errorf("blobstore: repair %s: %w", id, err)
			}
			repaired = true
			return nil

		case errors.Is(err, gorm.ErrRecordNotFound):
			id = NewID()
			if IsValidID(preferred) {
				taken, err := idTaken(tx, preferred)
				if err != nil {
					return err
				}
				if !taken {
					id = preferred
				}
			}
			if err := tx.Create(newBlob(id, data)).Error; err != nil {
				return fmt.Errorf("blobstore: insert %s: %w", id, err)
			}
			if err := tx.Create(&models.ImageHash{Hash: hash, ImageID: id}).Error; err != nil {
				return fmt.Errorf("blobstore: index %s: %w", id, err)
			}
			return nil

		default:
			return fmt.Errorf("blobstore: lookup hash: %w", err)
		}
	})
	if err != nil {
		return "", err
	}
	if repaired {
		log.Printf("blobstore: repaired ghost image %s", id)
	}
	return id, nil
}

func newBlob(id string, data []byte) *models.ImageBlob {
	return &models.ImageBlob{
		ID:          id,
		Data:        data,
		ContentType: DetectContentType(data),
		Size:        int64(len(data)),
	}
}

func blobExists(tx *gorm.DB, id string) (bool, error) {
	var n int64
	if err := tx.Model(&models.ImageBlob{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, fmt.Errorf("blobstore: check %s: %w", id, err)
	}
	return n > 0, nil
}

// idTaken reports whether id holds a blob or is still indexed to some hash.
// An indexed id without a blob is a ghost and stays reserved for its content.
func idTaken(tx *gorm.DB, id string) (bool, error) {
	if exists, err := blobExists(tx, id); err != nil || exists {
		return exists, err
	}
	var n int64
	if err := tx.Model(&models.ImageHash{}).Where("image_id = ?", id).Count(&n).Error; err != nil {
		return false, fmt.Errorf("blobstore: check index %s: %w", id, err)
	}
	return n > 0, nil
}

// Get resolves id to its bytes. A miss returns found=false and no error.
func (s *Store) Get(ctx context.Context, id string) (*Blob, bool, error) {
	var row models.ImageBlob
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("blobstore: get %s: %w", id, err)
	}
	return &Blob{ID: row.ID, ContentType: row.ContentType, Data: row.Data, Size: row.Size}, true, nil
}

// GetOrPlaceholder resolves id, substituting the placeholder image on a miss.
func (s *Store) GetOrPlaceholder(ctx context.Context, id string) (*Blob, bool, error) {
	b, found, err := s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if !found {
		p := Placeholder()
		p.ID = id
		return p, false, nil
	}
	return b, true, nil
}

// ListIDs enumerates every stored blob id in a single query.
func (s *Store) ListIDs(ctx context.Context) (IDSet, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&models.ImageBlob{}).Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("blobstore: list ids: %w", err)
	}
	return NewIDSet(ids...), nil
}

// Stats reports the number of stored blobs and their total size.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.WithContext(ctx).Model(&models.ImageBlob{}).
		Select("COUNT(*) AS count, COALESCE(SUM(size), 0) AS bytes").
		Scan(&st).Error
	if err != nil {
		return Stats{}, fmt.Errorf("blobstore: stats: %w", err)
	}
	return st, nil
}

// Delete removes a blob and every hash entry pointing at it.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteBlob(tx, id)
	})
}

func deleteBlob(tx *gorm.DB, id string) error {
	if err := tx.Where("image_id = ?", id).Delete(&models.ImageHash{}).Error; err != nil {
		return fmt.Errorf("blobstore: delete index %s: %w", id, err)
	}
	if err := tx.Where("id = ?", id).Delete(&models.ImageBlob{}).Error; err != nil {
		return fmt.Errorf("blobstore: delete %s: %w", id, err)
	}
	return nil
}

// Orphans returns stored ids that are not in referenced, sorted.
func (s *Store) Orphans(ctx context.Context, referenced IDSet) ([]string, error) {
	all, err := s.ListIDs(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, id := range all.Sorted() {
		if !referenced.Has(id) {
			out = append(out, id)
		}
	}
	return out, nil
}

// GC deletes every orphaned blob and returns the ids removed.
func (s *Store) GC(ctx context.Context, referenced IDSet) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orphans, err := s.Orphans(ctx, referenced)
	if err != nil || len(orphans) == 0 {
		return nil, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range orphans {
			if err := deleteBlob(tx, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("blobstore: collected %d orphaned images", len(orphans))
	return orphans, nil
}
