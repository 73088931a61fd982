package sources

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/zenfeed/zenfeed/app/content"
)

var newsletterUsernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}$`)

// NewsletterAdapter reads Substack-style newsletter archives, which are
// published as RSS feeds. An explicit URL is the most specific identifier
// and wins over a username; otherwise the feed URL is derived from the
// publication subdomain.
type NewsletterAdapter struct {
	feedClient
}

func NewNewsletterAdapter(client *http.Client, userAgent string, timeout time.Duration) *NewsletterAdapter {
	return &NewsletterAdapter{feedClient: newFeedClient(client, userAgent, timeout)}
}

func (a *NewsletterAdapter) Type() content.SourceType {
	return content.SourceTypeNewsletter
}

func (a *NewsletterAdapter) MaxLimit() int {
	return 50
}

func (a *NewsletterAdapter) Validate(source content.Source) error {
	if source.URL == "" && source.Username == "" {
		return content.NewValidationError("url", "either url or username is required")
	}

	if source.URL != "" {
		return validateFeedURL("url", source.URL)
	}

	if !newsletterUsernamePattern.MatchString(source.Username) {
		return content.NewValidationError("username", "must be a publication subdomain (lowercase letters, digits, hyphens)")
	}

	return nil
}

func (a *NewsletterAdapter) feedURL(source content.Source) string {
	if source.URL != "" {
		return source.URL
	}
	return fmt.Sprintf("https://%s.substack.com/feed", source.Username)
}

func (a *NewsletterAdapter) Fetch(ctx context.Context, source content.Source, opts content.FetchOptions) content.FetchResult {
	feed, rateLimit, err := a.fetch(ctx, a.Type(), a.feedURL(source))
	if err != nil {
		return failure(err)
	}

	return content.FetchResult{
		Success:   true,
		Items:     mapFeedItems(feed, source, a.Type(), opts.EffectiveLimit(a.MaxLimit())),
		RateLimit: rateLimit,
	}
}

func (a *NewsletterAdapter) Describe(ctx context.Context, source content.Source) (*content.Info, error) {
	feed, _, err := a.fetch(ctx, a.Type(), a.feedURL(source))
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
