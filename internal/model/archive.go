package model

import (
	"io/fs"
	"time"
)

// Entry pairs a source on disk with the path it takes inside an archive.
// The filesystem layer produces them; the archive writer only consumes
// flat, ordered lists of entries.
type Entry struct {
	Path          string      `json:"path"`
	NameInArchive string      `json:"name_in_archive"`
	IsDir         bool        `json:"is_dir"`
	Size          int64       `json:"size"`
	Modified      time.Time   `json:"modified"`
	Mode          fs.FileMode `json:"mode"`
}

// ArchiveMeta summarises an opened archive for listings.
type ArchiveMeta struct {
	Name      string    `json:"name"`
	Format    string    `json:"format"`
	Comment   string    `json:"comment,omitempty"`
	Encrypted bool      `json:"encrypted"`
	Solid     bool      `json:"solid"`
	Volumes   uint32    `json:"volumes"`
	Items     uint32    `json:"items"`
	Files     uint32    `json:"files"`
	Folders   uint32    `json:"folders"`
	Size      Size      `json:"size"`
	PackSize  Size      `json:"pack_size"`
	Modified  time.Time `json:"modified"`
}

// ArchiveObj is one item of an archive listing.
type ArchiveObj struct {
	Index     int       `json:"index"`
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	IsDir     bool      `json:"is_dir"`
	Size      Size      `json:"size"`
	PackSize  Size      `json:"pack_size"`
	Modified  time.Time `json:"modified"`
	CRC       string    `json:"crc,omitempty"`
	Encrypted bool      `json:"encrypted"`
}
