package models

import "time"

// ImageBlob holds the raw bytes of one stored image, keyed by its opaque id.
type ImageBlob struct {
	ID          string `gorm:"primaryKey;size:64"`
	Data        []byte `gorm:"not null"`
	ContentType string `gorm:"size:64"`
	Size        int64
	CreatedAt   time.Time
}

// ImageHash maps a SHA-256 content hash to the id its bytes are stored under.
type ImageHash struct {
	Hash      string `gorm:"primaryKey;size:64"`
	ImageID   string `gorm:"size:64;not null;index"`
	CreatedAt time.Time
}
