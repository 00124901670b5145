package domain

import "time"

// Image represents a catalogued image file.
// Hash is the 64-bit difference-hash fingerprint computed at ingestion.
// It is nil when the file could not be decoded; an absent fingerprint is
// never represented as zero, so two unreadable files are never mistaken
// for duplicates of each other.
type Image struct {
	ID        int64     `json:"id"`
	Path      string    `json:"path"`
	Hash      *uint64   `json:"hash,omitempty"`
	BlurHash  string    `json:"blur_hash,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SimilarityResult pairs a candidate image with its distance to a reference
// fingerprint. Results are computed on demand and never persisted.
type SimilarityResult struct {
	Image       *Image  `json:"image"`
	Distance    int     `json:"distance"`
	Confidence  float64 `json:"confidence"`
	IsDuplicate bool    `json:"is_duplicate"`
}
