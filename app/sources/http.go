package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/zenfeed/zenfeed/app/content"
)

// getJSON performs a GET against an upstream platform API and decodes the
// JSON body into v. Failures come back as *content.UpstreamError so callers
// can surface the category and any rate-limit metadata without inspecting
// transport details.
func getJSON(ctx context.Context, client *http.Client, userAgent string, platform content.SourceType, url string, header http.Header, v any) (*content.RateLimit, error) {
	data, rateLimit, err := getBody(ctx, client, userAgent, platform, url, header)
	if err != nil {
		return rateLimit, err
	}

	if err := json.Unmarshal(data, v); err != nil {
		return rateLimit, &content.UpstreamError{
			Kind:     content.UpstreamTransport,
			Platform: platform,
			Message:  fmt.Sprintf("failed to decode response: %v", err),
		}
	}

	return rateLimit, nil
}

func getBody(ctx context.Context, client *http.Client, userAgent string, platform content.SourceType, url string, header http.Header) ([]byte, *content.RateLimit, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, nil, &content.UpstreamError{
			Kind:     content.UpstreamTransport,
			Platform: platform,
			Message:  fmt.Sprintf("failed to create request: %v", err),
		}
	}

	req.Header.Set("User-Agent", userAgent)
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		message := fmt.Sprintf("request failed: %v", err)
		if errors.Is(err, context.DeadlineExceeded) {
			message = "request timed out"
		}
		return nil, nil, &content.UpstreamError{
			Kind:     content.UpstreamTransport,
			Platform: platform,
			Message:  message,
		}
	}
	defer resp.Body.Close()

	rateLimit := parseRateLimit(resp.Header)

	if resp.StatusCode != http.StatusOK {
		return nil, rateLimit, &content.UpstreamError{
			Kind:      classifyStatus(resp.StatusCode),
			Platform:  platform,
			Message:   fmt.Sprintf("HTTP error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
			RateLimit: rateLimit,
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, rateLimit, &content.UpstreamError{
			Kind:     content.UpstreamTransport,
			Platform: platform,
			Message:  fmt.Sprintf("failed to read response body: %v", err),
		}
	}

	return data, rateLimit, nil
}

func classifyStatus(status int) content.UpstreamKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return content.UpstreamAuth
	case status == http.StatusTooManyRequests:
		return content.UpstreamRateLimit
	case status == http.StatusNotFound:
		return content.UpstreamNotFound
	default:
		return content.UpstreamTransport
	}
}

// parseRateLimit extracts quota metadata from the X-RateLimit-* headers
// upstreams commonly send. Returns nil when none are present.
func parseRateLimit(header http.Header) *content.RateLimit {
	remaining := header.Get("X-RateLimit-Remaining")
	if remaining == "" {
		remaining = header.Get("X-Rate-Limit-Remaining")
	}
	if remaining == "" {
		return nil
	}

	rateLimit := &content.RateLimit{}
	if n, err := strconv.Atoi(remaining); err == nil {
		rateLimit.Remaining = n
	}

	limit := header.Get("X-RateLimit-Limit")
	if limit == "" {
		limit = header.Get("X-Rate-Limit-Limit")
	}
	if n, err := strconv.Atoi(limit); err == nil {
		rateLimit.Limit = n
	}

	reset := header.Get("X-RateLimit-Reset")
	if reset == "" {
		reset = header.Get("X-Rate-Limit-Reset")
	}
	if epoch, err := strconv.ParseInt(reset, 10, 64); err == nil && epoch > 0 {
		resetAt := time.Unix(epoch, 0).UTC()
		rateLimit.ResetAt = &resetAt
	}

	return rateLimit
}

// failure wraps an adapter-level error as a FetchResult so callers never
// have to catch to detect failure.
func failure(err error) content.FetchResult {
	result := content.FetchResult{Error: err.Error()}

	var upstream *content.UpstreamError
	if errors.As(err, &upstream) {
		result.RateLimit = upstream.RateLimit
	}

	return result
}
