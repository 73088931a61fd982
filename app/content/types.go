package content

import (
	"time"
)

type SourceType string

const (
	SourceTypeYouTube    SourceType = "youtube"
	SourceTypeInstagram  SourceType = "instagram"
	SourceTypeTwitter    SourceType = "twitter"
	SourceTypeRSS        SourceType = "rss"
	SourceTypeNewsletter SourceType = "newsletter"
	SourceTypeCategory   SourceType = "category"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Source identifies one external feed to poll. AccessToken is a transient
// per-call credential resolved from the linked-account store; it is never
// serialized or persisted as part of the source itself.
type Source struct {
	ID          string     `json:"id" yaml:"id"`
	Type        SourceType `json:"type" yaml:"type"`
	Name        string     `json:"name" yaml:"name"`
	URL         string     `json:"url,omitempty" yaml:"url"`
	Username    string     `json:"username,omitempty" yaml:"username"`
	Priority    Priority   `json:"priority" yaml:"priority"`
	Active      bool       `json:"active" yaml:"active"`
	Description string     `json:"description,omitempty" yaml:"description"`

	AccessToken string `json:"-" yaml:"-"`
}

const (
	DefaultLimit   = 10
	MaxBatchLimit  = 100
	MaxSingleLimit = 50
)

// FetchOptions are per-call and never persisted. SortByPublished enables a
// global newest-first sort of the merged items; the default contract is
// plain concatenation in source order.
type FetchOptions struct {
	Limit           int  `json:"limit"`
	IncludeMetrics  bool `json:"include_metrics"`
	SortByPublished bool `json:"sort_by_published"`
}

// EffectiveLimit clamps the requested limit to [1, max], falling back to
// DefaultLimit when unset.
func (o FetchOptions) EffectiveLimit(max int) int {
	limit := o.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > max {
		limit = max
	}
	return limit
}

type Metrics struct {
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Shares   int64 `json:"shares"`
	Views    int64 `json:"views,omitempty"`
}

// RateLimit carries upstream quota information, surfaced opaquely to callers.
type RateLimit struct {
	Limit     int        `json:"limit,omitempty"`
	Remaining int        `json:"remaining"`
	ResetAt   *time.Time `json:"reset_at,omitempty"`
}

// Item is the platform-agnostic representation of one fetched unit
// (post, video, article). Never mutated after creation.
type Item struct {
	SourceID    string     `json:"source_id"`
	Platform    SourceType `json:"platform"`
	ExternalID  string     `json:"external_id"`
	Title       string     `json:"title"`
	Summary     string     `json:"summary,omitempty"`
	URL         string     `json:"url"`
	Author      string     `json:"author,omitempty"`
	Thumbnail   string     `json:"thumbnail,omitempty"`
	PublishedAt time.Time  `json:"published_at"`
	Metrics     *Metrics   `json:"metrics,omitempty"`
}

// Info is best-effort source metadata used for UI previews.
type Info struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	Followers   int64  `json:"followers,omitempty"`
	ItemCount   int64  `json:"item_count,omitempty"`
}

type FetchResult struct {
	Success   bool       `json:"success"`
	Items     []Item     `json:"items,omitempty"`
	Error     string     `json:"error,omitempty"`
	RateLimit *RateLimit `json:"rate_limit,omitempty"`
}

type SourceError struct {
	SourceID string `json:"source_id"`
	Message  string `json:"message"`
}

// AggregationResult is returned once per aggregation pass.
// SuccessfulSources + len(Errors) == TotalSources always holds: every source
// in the request yields exactly one outcome.
type AggregationResult struct {
	Items             []Item        `json:"items"`
	Errors            []SourceError `json:"errors"`
	TotalSources      int           `json:"total_sources"`
	SuccessfulSources int           `json:"successful_sources"`
}
