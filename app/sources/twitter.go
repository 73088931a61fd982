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

const twitterAPIBase = "https://api.twitter.com/2"

var twitterUsernamePattern = regexp.MustCompile(`^@?[A-Za-z0-9_]{1,15}$`)

// TwitterAdapter fetches a user timeline through the Twitter API v2 using
// an app bearer token. The username is the only identifier this platform
// needs; a profile URL is accepted but the username wins when both are set.
type TwitterAdapter struct {
	client    *http.Client
	bearer    string
	userAgent string
	timeout   time.Duration
	baseURL   string
}

func NewTwitterAdapter(client *http.Client, bearerToken, userAgent string, timeout time.Duration) *TwitterAdapter {
	return &TwitterAdapter{
		client:    client,
		bearer:    bearerToken,
		userAgent: userAgent,
		timeout:   timeout,
		baseURL:   twitterAPIBase,
	}
}

func (a *TwitterAdapter) Type() content.SourceType {
	return content.SourceTypeTwitter
}

func (a *TwitterAdapter) MaxLimit() int {
	return 100
}

func (a *TwitterAdapter) Validate(source content.Source) error {
	username := a.username(source)
	if username == "" {
		return content.NewValidationError("username", "is required")
	}
	if !twitterUsernamePattern.MatchString(username) {
		return content.NewValidationError("username", "must be 1-15 letters, digits or underscores")
	}
	return nil
}

func (a *TwitterAdapter) username(source content.Source) string {
	if source.Username != "" {
		return source.Username
	}
	if source.URL == "" {
		return ""
	}
	parsed, err := url.Parse(source.URL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.Trim(parsed.Path, "/"), "@")
}

type twUser struct {
	Data struct {
		ID              string `json:"id"`
		Name            string `json:"name"`
		Username        string `json:"username"`
		Description     string `json:"description"`
		ProfileImageURL string `json:"profile_image_url"`
		PublicMetrics   struct {
			FollowersCount int64 `json:"followers_count"`
			TweetCount     int64 `json:"tweet_count"`
		} `json:"public_metrics"`
	} `json:"data"`
}

type twTimeline struct {
	Data []struct {
		ID            string    `json:"id"`
		Text          string    `json:"text"`
		CreatedAt     time.Time `json:"created_at"`
		PublicMetrics struct {
			LikeCount    int64 `json:"like_count"`
			ReplyCount   int64 `json:"reply_count"`
			RetweetCount int64 `json:"retweet_count"`
			QuoteCount   int64 `json:"quote_count"`
		} `json:"public_metrics"`
	} `json:"data"`
}

func (a *TwitterAdapter) authHeader() http.Header {
	return http.Header{"Authorization": {"Bearer " + a.bearer}}
}

func (a *TwitterAdapter) lookupUser(ctx context.Context, username string) (*twUser, *content.RateLimit, error) {
	query := url.Values{"user.fields": {"description,profile_image_url,public_metrics"}}
	endpoint := a.baseURL + "/users/by/username/" + url.PathEscape(username) + "?" + query.Encode()

	var user twUser
	rateLimit, err := getJSON(ctx, a.client, a.userAgent, a.Type(), endpoint, a.authHeader(), &user)
	if err != nil {
		return nil, rateLimit, err
	}

	if user.Data.ID == "" {
		return nil, rateLimit, &content.UpstreamError{
			Kind:     content.UpstreamNotFound,
			Platform: a.Type(),
			Message:  "user not found",
		}
	}

	return &user, rateLimit, nil
}

func (a *TwitterAdapter) Fetch(ctx context.Context, source content.Source, opts content.FetchOptions) content.FetchResult {
	if a.bearer == "" {
		return failure(&content.ConfigurationError{Platform: a.Type(), Missing: "Twitter bearer token"})
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	username := a.username(source)
	user, _, err := a.lookupUser(timeoutCtx, username)
	if err != nil {
		return failure(err)
	}

	limit := opts.EffectiveLimit(a.MaxLimit())

	// The timeline endpoint rejects max_results below 5, so small requests
	// over-fetch and truncate locally.
	query := url.Values{
		"max_results":  {strconv.Itoa(max(limit, 5))},
		"tweet.fields": {"created_at,public_metrics"},
	}
	endpoint := a.baseURL + "/users/" + user.Data.ID + "/tweets?" + query.Encode()

	var timeline twTimeline
	rateLimit, err := getJSON(timeoutCtx, a.client, a.userAgent, a.Type(), endpoint, a.authHeader(), &timeline)
	if err != nil {
		return failure(err)
	}

	items := make([]content.Item, 0, min(limit, len(timeline.Data)))
	for _, tweet := range timeline.Data {
		if len(items) >= limit {
			break
		}

		item := content.Item{
			SourceID:    source.ID,
			Platform:    a.Type(),
			ExternalID:  tweet.ID,
			Title:       tweet.Text,
			URL:         "https://twitter.com/" + user.Data.Username + "/status/" + tweet.ID,
			Author:      user.Data.Name,
			PublishedAt: tweet.CreatedAt.UTC(),
		}
		if opts.IncludeMetrics {
			item.Metrics = &content.Metrics{
				Likes:    tweet.PublicMetrics.LikeCount,
				Comments: tweet.PublicMetrics.ReplyCount,
				Shares:   tweet.PublicMetrics.RetweetCount + tweet.PublicMetrics.QuoteCount,
			}
		}
		items = append(items, item)
	}

	return content.FetchResult{Success: true, Items: items, RateLimit: rateLimit}
}

func (a *TwitterAdapter) Describe(ctx context.Context, source content.Source) (*content.Info, error) {
	if a.bearer == "" {
		return nil, &content.ConfigurationError{Platform: a.Type(), Missing: "Twitter bearer token"}
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	user, _, err := a.lookupUser(timeoutCtx, a.username(source))
	if err != nil {
		return nil, err
	}

	return &content.Info{
		Title:       user.Data.Name,
		Description: user.Data.Description,
		ImageURL:    user.Data.ProfileImageURL,
		Followers:   user.Data.PublicMetrics.FollowersCount,
		ItemCount:   user.Data.PublicMetrics.TweetCount,
	}, nil
}
