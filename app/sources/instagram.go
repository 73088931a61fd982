package sources

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/zenfeed/zenfeed/app/content"
)

const instagramAPIBase = "https://graph.instagram.com"

var instagramUsernamePattern = regexp.MustCompile(`^[A-Za-z0-9._]{1,30}$`)

// InstagramAdapter fetches the media of a linked account through the
// Instagram Graph API. The access token is a per-call input resolved by the
// caller from the linked-account store; the adapter never caches it.
type InstagramAdapter struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
	baseURL   string
}

func NewInstagramAdapter(client *http.Client, userAgent string, timeout time.Duration) *InstagramAdapter {
	return &InstagramAdapter{
		client:    client,
		userAgent: userAgent,
		timeout:   timeout,
		baseURL:   instagramAPIBase,
	}
}

func (a *InstagramAdapter) Type() content.SourceType {
	return content.SourceTypeInstagram
}

func (a *InstagramAdapter) MaxLimit() int {
	return 25
}

func (a *InstagramAdapter) Validate(source content.Source) error {
	if source.Username == "" {
		return content.NewValidationError("username", "is required")
	}
	if !instagramUsernamePattern.MatchString(source.Username) {
		return content.NewValidationError("username", "must be 1-30 letters, digits, dots or underscores")
	}
	return nil
}

type igMediaList struct {
	Data []struct {
		ID            string    `json:"id"`
		Caption       string    `json:"caption"`
		Permalink     string    `json:"permalink"`
		MediaURL      string    `json:"media_url"`
		ThumbnailURL  string    `json:"thumbnail_url"`
		Timestamp     time.Time `json:"timestamp"`
		LikeCount     int64     `json:"like_count"`
		CommentsCount int64     `json:"comments_count"`
	} `json:"data"`
}

type igProfile struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	MediaCount int64  `json:"media_count"`
}

func (a *InstagramAdapter) Fetch(ctx context.Context, source content.Source, opts content.FetchOptions) content.FetchResult {
	if source.AccessToken == "" {
		return failure(&content.ConfigurationError{Platform: a.Type(), Missing: "linked Instagram account"})
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	limit := opts.EffectiveLimit(a.MaxLimit())
	fields := "id,caption,permalink,media_url,thumbnail_url,timestamp"
	if opts.IncludeMetrics {
		fields += ",like_count,comments_count"
	}

	query := url.Values{
		"fields":       {fields},
		"limit":        {strconv.Itoa(limit)},
		"access_token": {source.AccessToken},
	}

	var media igMediaList
	rateLimit, err := getJSON(timeoutCtx, a.client, a.userAgent, a.Type(), a.baseURL+"/me/media?"+query.Encode(), nil, &media)
	if err != nil {
		return failure(err)
	}

	items := make([]content.Item, 0, min(limit, len(media.Data)))
	for _, post := range media.Data {
		if len(items) >= limit {
			break
		}

		thumbnail := post.ThumbnailURL
		if thumbnail == "" {
			thumbnail = post.MediaURL
		}

		item := content.Item{
			SourceID:    source.ID,
			Platform:    a.Type(),
			ExternalID:  post.ID,
			Title:       captionTitle(post.Caption),
			Summary:     post.Caption,
			URL:         post.Permalink,
			Author:      source.Username,
			Thumbnail:   thumbnail,
			PublishedAt: post.Timestamp.UTC(),
		}
		if opts.IncludeMetrics {
			item.Metrics = &content.Metrics{
				Likes:    post.LikeCount,
				Comments: post.CommentsCount,
			}
		}
		items = append(items, item)
	}

	return content.FetchResult{Success: true, Items: items, RateLimit: rateLimit}
}

func (a *InstagramAdapter) Describe(ctx context.Context, source content.Source) (*content.Info, error) {
	if source.AccessToken == "" {
		return nil, &content.ConfigurationError{Platform: a.Type(), Missing: "linked Instagram account"}
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	query := url.Values{
		"fields":       {"id,username,media_count"},
		"access_token": {source.AccessToken},
	}

	var profile igProfile
	if _, err := getJSON(timeoutCtx, a.client, a.userAgent, a.Type(), a.baseURL+"/me?"+query.Encode(), nil, &profile); err != nil {
		return nil, err
	}

	return &content.Info{
		Title:     "@" + profile.Username,
		ItemCount: profile.MediaCount,
	}, nil
}

// captionTitle derives a short title from the first line of a caption.
func captionTitle(caption string) string {
	line := caption
	if idx := strings.IndexByte(caption, '\n'); idx >= 0 {
		line = caption[:idx]
	}
	line = strings.TrimSpace(line)
	if len(line) > 80 {
		line = line[:77] + "..."
	}
	return line
}
