package sources

import (
	"bytes"
	"cmp"
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/zenfeed/zenfeed/app/content"
)

// feedClient is the shared fetch-and-parse layer for the feed-backed
// adapters (rss, newsletter, category).
type feedClient struct {
	client    *http.Client
	parser    *gofeed.Parser
	userAgent string
	timeout   time.Duration
}

func newFeedClient(client *http.Client, userAgent string, timeout time.Duration) feedClient {
	return feedClient{
		client:    client,
		parser:    gofeed.NewParser(),
		userAgent: userAgent,
		timeout:   timeout,
	}
}

func (f *feedClient) fetch(ctx context.Context, platform content.SourceType, feedURL string) (*gofeed.Feed, *content.RateLimit, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	data, rateLimit, err := getBody(timeoutCtx, f.client, f.userAgent, platform, feedURL, nil)
	if err != nil {
		return nil, rateLimit, err
	}

	feed, err := f.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, rateLimit, &content.UpstreamError{
			Kind:     content.UpstreamTransport,
			Platform: platform,
			Message:  "failed to parse feed: " + err.Error(),
		}
	}

	return feed, rateLimit, nil
}

// mapFeedItems normalizes parsed feed entries into content items, applying
// the already-clamped limit.
func mapFeedItems(feed *gofeed.Feed, source content.Source, platform content.SourceType, limit int) []content.Item {
	items := make([]content.Item, 0, min(limit, len(feed.Items)))
	for _, entry := range feed.Items {
		if len(items) >= limit {
			break
		}

		item := content.Item{
			SourceID:   source.ID,
			Platform:   platform,
			ExternalID: cmp.Or(entry.GUID, entry.Link),
			Title:      entry.Title,
			Summary:    entry.Description,
			URL:        entry.Link,
		}

		if len(entry.Authors) > 0 && entry.Authors[0] != nil {
			item.Author = entry.Authors[0].Name
		}
		if entry.Image != nil {
			item.Thumbnail = entry.Image.URL
		}
		if entry.PublishedParsed != nil {
			item.PublishedAt = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			item.PublishedAt = entry.UpdatedParsed.UTC()
		}

		items = append(items, item)
	}
	return items
}

// validateFeedURL applies the strict URL contract: absolute http(s) with a
// non-empty host.
func validateFeedURL(field, raw string) error {
	if raw == "" {
		return content.NewValidationError(field, "is required")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return content.NewValidationError(field, "is not a valid URL: %v", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return content.NewValidationError(field, "must use http or https")
	}
	if parsed.Host == "" {
		return content.NewValidationError(field, "is missing a host")
	}

	return nil
}

// RSSAdapter fetches RSS/Atom feeds. It only uses the source URL; a
// username carries no meaning for this platform.
type RSSAdapter struct {
	feedClient
}

func NewRSSAdapter(client *http.Client, userAgent string, timeout time.Duration) *RSSAdapter {
	return &RSSAdapter{feedClient: newFeedClient(client, userAgent, timeout)}
}

func (a *RSSAdapter) Type() content.SourceType {
	return content.SourceTypeRSS
}

func (a *RSSAdapter) MaxLimit() int {
	return 100
}

func (a *RSSAdapter) Validate(source content.Source) error {
	return validateFeedURL("url", source.URL)
}

func (a *RSSAdapter) Fetch(ctx context.Context, source content.Source, opts content.FetchOptions) content.FetchResult {
	feed, rateLimit, err := a.fetch(ctx, a.Type(), source.URL)
	if err != nil {
		return failure(err)
	}

	return content.FetchResult{
		Success:   true,
		Items:     mapFeedItems(feed, source, a.Type(), opts.EffectiveLimit(a.MaxLimit())),
		RateLimit: rateLimit,
	}
}

func (a *RSSAdapter) Describe(ctx context.Context, source content.Source) (*content.Info, error) {
	feed, _, err := a.fetch(ctx, a.Type(), source.URL)
	if err != nil {
		return nil, err
	}

	info := &content.Info{
		Title:       feed.Title,
		Description: feed.Description,
		ItemCount:   int64(len(feed.Items)),
	}
	if feed.Image != nil {
		info.ImageURL = feed.Image.URL
	}

	return info, nil
}
