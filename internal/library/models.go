package library

import (
	"fmt"
	"strings"
	"time"

	"folio/internal/services"
)

// ContentType enumerates the supported kinds of library.
type ContentType string

const (
	ContentBooks      ContentType = "books"
	ContentComics     ContentType = "comics"
	ContentAudiobooks ContentType = "audiobooks"
)

// ContentTypes lists every supported content type.
func ContentTypes() []ContentType {
	return []ContentType{ContentBooks, ContentComics, ContentAudiobooks}
}

// ParseContentType maps user or database input to a ContentType.
func ParseContentType(raw string) (ContentType, error) {
	value := ContentType(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range ContentTypes() {
		if value == known {
			return value, nil
		}
	}
	return "", services.Wrap(services.ErrValidation, "library", "parse content type",
		fmt.Sprintf("unsupported content type %q", raw), nil)
}

// Library is a registered content source.
type Library struct {
	ID          int64
	Name        string
	Root        string
	ContentType ContentType
	OwnerID     string
	CreatedAt   time.Time
}

// Entry describes one file flowing through a scan pipeline. Enrichment
// stages fill Title, Author, and Fingerprint.
type Entry struct {
	Path        string
	RelPath     string
	Name        string
	Ext         string
	Size        int64
	ModTime     time.Time
	IsDir       bool
	Title       string
	Author      string
	Fingerprint string
}

// CatalogItem is a persisted scan result.
type CatalogItem struct {
	LibraryID   int64
	Path        string
	Title       string
	Author      string
	Ext         string
	Size        int64
	Fingerprint string
	ScanID      string
	UpdatedAt   time.Time
}

// JournalRecord is one stored scan event.
type JournalRecord struct {
	ID        int64
	ScanID    string
	LibraryID int64
	Type      string
	Node      string
	Payload   string
	CreatedAt time.Time
}
