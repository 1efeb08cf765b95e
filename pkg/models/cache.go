package models

import "time"

// CacheKey is the composite key a result cache entry is addressed by.
type CacheKey struct {
	Temple       string
	Number       int
	QuestionHash string // sha-256 of the lowercased, trimmed question
	Language     string
}

// CacheEntry is the cached outcome of a previously completed task for an
// identical (temple, number, question, language) combination.
type CacheEntry struct {
	Key CacheKey

	Response         string
	Confidence       float32
	SourceChunkIDs   []string
	ProcessingTimeMS int64

	CreatedAt time.Time
	Hits      int64
}
