package model

import "time"

// Package model contains domain models/data structures.
// These are pure domain types with no database-specific dependencies or tags,
// usable across layers (HTTP, service, storage) without coupling to persistence.

// OriginalStatus marks the lifecycle state of a stored original listing.
type OriginalStatus string

const (
	OriginalActive   OriginalStatus = "active"
	OriginalArchived OriginalStatus = "archived"
)

// OriginalImage is one canonical image blob belonging to an original record.
// The blob itself lives in object storage under a content-addressed key;
// SHA256 doubles as the integrity checksum.
type OriginalImage struct {
	SHA256      string `json:"sha256"`
	StoragePath string `json:"storage_path"`
	Size        int64  `json:"size"`
	Position    int    `json:"position"`
}

// Original is the immutable canonical listing from which all variants derive.
// Once written it is never mutated in place; relists only read it.
type Original struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"account_id"`
	ContentHash string          `json:"content_hash"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Images      []OriginalImage `json:"images"`
	Status      OriginalStatus  `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}
