package models

import (
	"time"
)

// MediaKind identifies the declared type of an inbound asset.
type MediaKind string

const (
	MediaKindPhoto     MediaKind = "photo"
	MediaKindVideo     MediaKind = "video"
	MediaKindDocument  MediaKind = "document"
	MediaKindAudio     MediaKind = "audio"
	MediaKindVoice     MediaKind = "voice"
	MediaKindAnimation MediaKind = "animation"
	MediaKindSticker   MediaKind = "sticker"
	MediaKindText      MediaKind = "text"
	MediaKindUnknown   MediaKind = "unknown"
)

// ConversionStatus tracks the transcode lifecycle on a record.
// Valid transitions: none -> processing -> {success, error}.
type ConversionStatus string

const (
	ConversionNone       ConversionStatus = "none"
	ConversionProcessing ConversionStatus = "processing"
	ConversionSuccess    ConversionStatus = "success"
	ConversionError      ConversionStatus = "error"
)

// MediaRecord is the canonical row for one ingested physical asset.
// FileUniqueID is stable per file across messages and channels; ContentHash
// is the SHA-256 of the raw bytes and serves as a secondary dedup signal.
type MediaRecord struct {
	ID               string
	FileUniqueID     string
	FileID           string
	ContentHash      string
	MediaKind        MediaKind
	MimeType         string
	FileName         string
	StorageBucket    string
	StorageObject    string
	PublicURL        string
	ChannelID        int64
	MessageID        int64
	MediaGroupID     string
	Caption          *string
	ConversionStatus ConversionStatus
	ConversionJobRef string
	ErrorMessage     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasCaption reports whether the record carries a non-empty caption.
func (r *MediaRecord) HasCaption() bool {
	return r.Caption != nil && *r.Caption != ""
}

// Resolution is the outcome of identity resolution for an inbound asset.
type Resolution string

const (
	ResolutionNew             Resolution = "new"
	ResolutionDuplicateByID   Resolution = "duplicate-by-id"
	ResolutionDuplicateByHash Resolution = "duplicate-by-hash"
)

// IsDuplicate reports whether the resolution matched an existing record.
func (r Resolution) IsDuplicate() bool {
	return r == ResolutionDuplicateByID || r == ResolutionDuplicateByHash
}

// DedupKeepPolicy selects the canonical row when cleaning up duplicate groups.
type DedupKeepPolicy string

const (
	DedupKeepNewest DedupKeepPolicy = "newest"
	DedupKeepOldest DedupKeepPolicy = "oldest"
)
