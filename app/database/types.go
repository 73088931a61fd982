package database

import (
	"time"

	"github.com/zenfeed/zenfeed/app/content"
)

// SourceRecord is a stored source plus its refresh bookkeeping.
type SourceRecord struct {
	content.Source
	LastRefreshAt *time.Time `json:"last_refresh_at,omitempty"`
	NextRefreshAt *time.Time `json:"next_refresh_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Account is a linked external account whose access token the aggregation
// core receives as a read-only input.
type Account struct {
	Provider    string    `json:"provider"`
	AccessToken string    `json:"-"`
	ConnectedAt time.Time `json:"connected_at"`
}

const (
	ExtractionPending = "pending"
	ExtractionSuccess = "success"
	ExtractionFailed  = "failed"
	ExtractionSkipped = "skipped"
)

// CachedItem is one row of the aggregation cache backing the /feed endpoint.
type CachedItem struct {
	ID               string             `json:"id"`
	SourceID         string             `json:"source_id"`
	Platform         content.SourceType `json:"platform"`
	ExternalID       string             `json:"external_id"`
	Title            string             `json:"title"`
	Summary          string             `json:"summary,omitempty"`
	Content          string             `json:"content,omitempty"`
	URL              string             `json:"url"`
	Author           string             `json:"author,omitempty"`
	Thumbnail        string             `json:"thumbnail,omitempty"`
	PublishedAt      time.Time          `json:"published_at"`
	FetchedAt        time.Time          `json:"fetched_at"`
	ExtractionStatus string             `json:"-"`
}
