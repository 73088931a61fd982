package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/zenfeed/zenfeed/app/content"
)

const youtubeAPIBase = "https://www.googleapis.com/youtube/v3"

var youtubeHandlePattern = regexp.MustCompile(`^@?[A-Za-z0-9._-]{3,30}$`)

// YouTubeAdapter fetches channel uploads through the YouTube Data API v3.
// A channel handle (username) is the most specific identifier and is
// preferred over a channel URL.
type YouTubeAdapter struct {
	client    *http.Client
	apiKey    string
	userAgent string
	timeout   time.Duration
	baseURL   string
}

func NewYouTubeAdapter(client *http.Client, apiKey, userAgent string, timeout time.Duration) *YouTubeAdapter {
	return &YouTubeAdapter{
		client:    client,
		apiKey:    apiKey,
		userAgent: userAgent,
		timeout:   timeout,
		baseURL:   youtubeAPIBase,
	}
}

func (a *YouTubeAdapter) Type() content.SourceType {
	return content.SourceTypeYouTube
}

// MaxLimit follows the Data API page cap of 50 results.
func (a *YouTubeAdapter) MaxLimit() int {
	return 50
}

func (a *YouTubeAdapter) Validate(source content.Source) error {
	if source.Username == "" && source.URL == "" {
		return content.NewValidationError("username", "either a channel handle or a channel URL is required")
	}

	if source.Username != "" {
		if !youtubeHandlePattern.MatchString(source.Username) {
			return content.NewValidationError("username", "is not a valid channel handle")
		}
		return nil
	}

	if err := validateFeedURL("url", source.URL); err != nil {
		return err
	}
	parsed, _ := url.Parse(source.URL)
	host := strings.TrimPrefix(parsed.Hostname(), "www.")
	if host != "youtube.com" && host != "youtu.be" {
		return content.NewValidationError("url", "must point to youtube.com")
	}

	return nil
}

type ytThumbnails struct {
	High struct {
		URL string `json:"url"`
	} `json:"high"`
	Default struct {
		URL string `json:"url"`
	} `json:"default"`
}

func (t ytThumbnails) best() string {
	if t.High.URL != "" {
		return t.High.URL
	}
	return t.Default.URL
}

type ytChannelList struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title       string       `json:"title"`
			Description string       `json:"description"`
			Thumbnails  ytThumbnails `json:"thumbnails"`
		} `json:"snippet"`
		Statistics struct {
			SubscriberCount string `json:"subscriberCount"`
			VideoCount      string `json:"videoCount"`
		} `json:"statistics"`
	} `json:"items"`
}

type ytSearchList struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string       `json:"title"`
			Description  string       `json:"description"`
			ChannelTitle string       `json:"channelTitle"`
			PublishedAt  time.Time    `json:"publishedAt"`
			Thumbnails   ytThumbnails `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
}

type ytVideoList struct {
	Items []struct {
		ID         string `json:"id"`
		Statistics struct {
			ViewCount    string `json:"viewCount"`
			LikeCount    string `json:"likeCount"`
			CommentCount string `json:"commentCount"`
		} `json:"statistics"`
	} `json:"items"`
}

func (a *YouTubeAdapter) resolveChannel(ctx context.Context, source content.Source) (string, *content.Info, error) {
	query := url.Values{"part": {"snippet,statistics"}, "key": {a.apiKey}}

	switch {
	case source.Username != "":
		query.Set("forHandle", strings.TrimPrefix(source.Username, "@"))
	case strings.Contains(source.URL, "/channel/"):
		parts := strings.Split(source.URL, "/channel/")
		query.Set("id", strings.Split(parts[len(parts)-1], "/")[0])
	default:
		// Handle-style channel URLs carry the handle in the path.
		parsed, err := url.Parse(source.URL)
		if err != nil {
			return "", nil, content.NewValidationError("url", "is not a valid URL: %v", err)
		}
		query.Set("forHandle", strings.TrimPrefix(strings.Trim(parsed.Path, "/"), "@"))
	}

	var channels ytChannelList
	if _, err := getJSON(ctx, a.client, a.userAgent, a.Type(), a.baseURL+"/channels?"+query.Encode(), nil, &channels); err != nil {
		return "", nil, err
	}

	if len(channels.Items) == 0 {
		return "", nil, &content.UpstreamError{
			Kind:     content.UpstreamNotFound,
			Platform: a.Type(),
			Message:  "channel not found",
		}
	}

	channel := channels.Items[0]
	info := &content.Info{
		Title:       channel.Snippet.Title,
		Description: channel.Snippet.Description,
		ImageURL:    channel.Snippet.Thumbnails.best(),
	}
	info.Followers, _ = strconv.ParseInt(channel.Statistics.SubscriberCount, 10, 64)
	info.ItemCount, _ = strconv.ParseInt(channel.Statistics.VideoCount, 10, 64)

	return channel.ID, info, nil
}

func (a *YouTubeAdapter) Fetch(ctx context.Context, source content.Source, opts content.FetchOptions) content.FetchResult {
	if a.apiKey == "" {
		return failure(&content.ConfigurationError{Platform: a.Type(), Missing: "YouTube API key"})
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	channelID, _, err := a.resolveChannel(timeoutCtx, source)
	if err != nil {
		return failure(err)
	}

	limit := opts.EffectiveLimit(a.MaxLimit())
	query := url.Values{
		"part":       {"snippet"},
		"channelId":  {channelID},
		"order":      {"date"},
		"type":       {"video"},
		"maxResults": {strconv.Itoa(limit)},
		"key":        {a.apiKey},
	}

	var search ytSearchList
	rateLimit, err := getJSON(timeoutCtx, a.client, a.userAgent, a.Type(), a.baseURL+"/search?"+query.Encode(), nil, &search)
	if err != nil {
		return failure(err)
	}

	items := make([]content.Item, 0, min(limit, len(search.Items)))
	videoIDs := make([]string, 0, len(search.Items))
	for _, video := range search.Items {
		if len(items) >= limit {
			break
		}
		items = append(items, content.Item{
			SourceID:    source.ID,
			Platform:    a.Type(),
			ExternalID:  video.ID.VideoID,
			Title:       video.Snippet.Title,
			Summary:     video.Snippet.Description,
			URL:         "https://www.youtube.com/watch?v=" + video.ID.VideoID,
			Author:      video.Snippet.ChannelTitle,
			Thumbnail:   video.Snippet.Thumbnails.best(),
			PublishedAt: video.Snippet.PublishedAt.UTC(),
		})
		videoIDs = append(videoIDs, video.ID.VideoID)
	}

	if opts.IncludeMetrics && len(videoIDs) > 0 {
		// Metrics are best-effort: a failed statistics call degrades the
		// result instead of failing the fetch.
		if err := a.attachMetrics(timeoutCtx, items, videoIDs); err != nil {
			return content.FetchResult{Success: true, Items: items, RateLimit: rateLimit}
		}
	}

	return content.FetchResult{Success: true, Items: items, RateLimit: rateLimit}
}

func (a *YouTubeAdapter) attachMetrics(ctx context.Context, items []content.Item, videoIDs []string) error {
	query := url.Values{
		"part": {"statistics"},
		"id":   {strings.Join(videoIDs, ",")},
		"key":  {a.apiKey},
	}

	var videos ytVideoList
	if _, err := getJSON(ctx, a.client, a.userAgent, a.Type(), a.baseURL+"/videos?"+query.Encode(), nil, &videos); err != nil {
		return err
	}

	stats := make(map[string]*content.Metrics, len(videos.Items))
	for _, video := range videos.Items {
		metrics := &content.Metrics{}
		metrics.Views, _ = strconv.ParseInt(video.Statistics.ViewCount, 10, 64)
		metrics.Likes, _ = strconv.ParseInt(video.Statistics.LikeCount, 10, 64)
		metrics.Comments, _ = strconv.ParseInt(video.Statistics.CommentCount, 10, 64)
		stats[video.ID] = metrics
	}

	for i := range items {
		if metrics, ok := stats[items[i].ExternalID]; ok {
			items[i].Metrics = metrics
		}
	}

	return nil
}

func (a *YouTubeAdapter) Describe(ctx context.Context, source content.Source) (*content.Info, error) {
	if a.apiKey == "" {
		return nil, &content.ConfigurationError{Platform: a.Type(), Missing: "YouTube API key"}
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	_, info, err := a.resolveChannel(timeoutCtx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to describe channel: %w", err)
	}

	return info, nil
}
