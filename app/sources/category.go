package sources

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/zenfeed/zenfeed/app/content"
)

// Curated feed lists per category. Keys are the canonical (folded) names.
var categoryFeeds = map[string][]string{
	"tech": {
		"https://news.ycombinator.com/rss",
		"https://www.theverge.com/rss/index.xml",
		"https://feeds.arstechnica.com/arstechnica/index",
	},
	"news": {
		"https://feeds.bbci.co.uk/news/world/rss.xml",
		"https://feeds.npr.org/1001/rss.xml",
	},
	"science": {
		"https://www.sciencedaily.com/rss/all.xml",
		"https://phys.org/rss-feed/",
	},
	"business": {
		"https://feeds.bloomberg.com/markets/news.rss",
		"https://www.ft.com/rss/home",
	},
	"design": {
		"https://www.smashingmagazine.com/feed/",
		"https://feeds.feedburner.com/fastcodesign/feed",
	},
}

var categoryCaser = cases.Fold()
var categoryTitler = cases.Title(language.English)

// canonicalCategory folds and width-normalizes a user-supplied category name
// so "Tech", "TECH" and full-width variants all resolve to the same key.
func canonicalCategory(name string) string {
	return categoryCaser.String(norm.NFKC.String(strings.TrimSpace(name)))
}

// CategoryAdapter serves curated topic feeds. The source name selects the
// category; url and username are ignored for this platform.
type CategoryAdapter struct {
	feedClient
}

func NewCategoryAdapter(client *http.Client, userAgent string, timeout time.Duration) *CategoryAdapter {
	return &CategoryAdapter{feedClient: newFeedClient(client, userAgent, timeout)}
}

func (a *CategoryAdapter) Type() content.SourceType {
	return content.SourceTypeCategory
}

func (a *CategoryAdapter) MaxLimit() int {
	return 100
}

func (a *CategoryAdapter) Validate(source content.Source) error {
	if source.Name == "" {
		return content.NewValidationError("name", "is required")
	}

	if _, ok := categoryFeeds[canonicalCategory(source.Name)]; !ok {
		return content.NewValidationError("name", "unknown category %q, supported: %s", source.Name, strings.Join(a.categories(), ", "))
	}

	return nil
}

func (a *CategoryAdapter) categories() []string {
	names := make([]string, 0, len(categoryFeeds))
	for name := range categoryFeeds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (a *CategoryAdapter) Fetch(ctx context.Context, source content.Source, opts content.FetchOptions) content.FetchResult {
	feedURLs, ok := categoryFeeds[canonicalCategory(source.Name)]
	if !ok {
		return failure(content.NewValidationError("name", "unknown category %q", source.Name))
	}

	limit := opts.EffectiveLimit(a.MaxLimit())

	// Fetch every curated feed; a single degraded feed does not fail the
	// category as long as at least one responds.
	perFeed := make([][]content.Item, 0, len(feedURLs))
	var lastErr error
	for _, feedURL := range feedURLs {
		feed, _, err := a.fetch(ctx, a.Type(), feedURL)
		if err != nil {
			lastErr = err
			continue
		}
		perFeed = append(perFeed, mapFeedItems(feed, source, a.Type(), limit))
	}

	if len(perFeed) == 0 {
		if lastErr == nil {
			lastErr = fmt.Errorf("category %q has no feeds", source.Name)
		}
		return failure(lastErr)
	}

	return content.FetchResult{
		Success: true,
		Items:   interleave(perFeed, limit),
	}
}

// interleave merges per-feed item lists round-robin so no single feed
// dominates the head of the category.
func interleave(perFeed [][]content.Item, limit int) []content.Item {
	merged := make([]content.Item, 0, limit)
	for i := 0; len(merged) < limit; i++ {
		advanced := false
		for _, items := range perFeed {
			if i < len(items) {
				advanced = true
				merged = append(merged, items[i])
				if len(merged) >= limit {
					break
				}
			}
		}
		if !advanced {
			break
		}
	}
	return merged
}

func (a *CategoryAdapter) Describe(ctx context.Context, source content.Source) (*content.Info, error) {
	name := canonicalCategory(source.Name)
	feedURLs, ok := categoryFeeds[name]
	if !ok {
		return nil, content.NewValidationError("name", "unknown category %q", source.Name)
	}

	return &content.Info{
		Title:       categoryTitler.String(name),
		Description: fmt.Sprintf("Curated selection of %d %s feeds", len(feedURLs), name),
		ItemCount:   int64(len(feedURLs)),
	}, nil
}
