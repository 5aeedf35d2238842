package models

import "time"

// VOD is a single past broadcast as reported by the source platform. A VOD
// is produced fresh on every poll and never mutated; the archiver decides
// what to do with it by consulting the checkpoint store.
type VOD struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	Duration     string    `json:"duration"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	Description  string    `json:"description,omitempty"`
}

// Artifact describes a media file produced by the downloader. It is an
// explicit result value, not a side channel mutated by progress hooks.
type Artifact struct {
	VODID string
	Path  string
	Size  int64
}

// UploadRequest carries everything the publish collaborator needs for one
// video.
type UploadRequest struct {
	Path          string
	Title         string
	Description   string
	Tags          []string
	PrivacyStatus string
	CategoryID    string
}

// Progress is a point-in-time snapshot of a long-running transfer.
type Progress struct {
	Done  int64
	Total int64
	// Rate is in bytes per second; zero when unknown.
	Rate float64
	ETA  time.Duration
}

// Percent returns the completion percentage, or zero when the total is
// unknown.
func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Done) / float64(p.Total) * 100
}
