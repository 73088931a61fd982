package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/zenfeed/zenfeed/app/content"
)

func TestYouTubeValidate(t *testing.T) {
	adapter := NewYouTubeAdapter(&http.Client{}, "key", "test-agent", 5*time.Second)

	tests := []struct {
		name   string
		source content.Source
		valid  bool
	}{
		{"handle", content.Source{Username: "@veritasium"}, true},
		{"handle without at", content.Source{Username: "veritasium"}, true},
		{"channel url", content.Source{URL: "https://www.youtube.com/channel/UCabc123"}, true},
		{"short url", content.Source{URL: "https://youtu.be/xyz"}, true},
		{"neither", content.Source{}, false},
		{"handle too short", content.Source{Username: "ab"}, false},
		{"handle with spaces", content.Source{Username: "not a handle"}, false},
		{"wrong host", content.Source{URL: "https://vimeo.com/channel/x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := adapter.Validate(tt.source)
			if tt.valid && err != nil {
				t.Errorf("Expected valid, got: %v", err)
			}
			if !tt.valid && err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestYouTubeFetchRequiresAPIKey(t *testing.T) {
	adapter := NewYouTubeAdapter(&http.Client{}, "", "test-agent", 5*time.Second)

	result := adapter.Fetch(context.Background(),
		content.Source{ID: "y1", Type: content.SourceTypeYouTube, Username: "veritasium"},
		content.FetchOptions{})

	if result.Success {
		t.Fatal("Expected failure without an API key")
	}
	if !strings.Contains(result.Error, "YouTube API key") {
		t.Errorf("Expected configuration error message, got: %s", result.Error)
	}
}

func youtubeTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/channels", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("forHandle") == "" && r.URL.Query().Get("id") == "" {
			http.Error(w, "missing identifier", http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"items":[{"id":"UC123","snippet":{"title":"Test Channel","description":"A channel"},
			"statistics":{"subscriberCount":"1000","videoCount":"42"}}]}`))
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("channelId") != "UC123" {
			http.Error(w, "wrong channel", http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"items":[
			{"id":{"videoId":"vid1"},"snippet":{"title":"Video One","channelTitle":"Test Channel","publishedAt":"2025-06-02T10:00:00Z"}},
			{"id":{"videoId":"vid2"},"snippet":{"title":"Video Two","channelTitle":"Test Channel","publishedAt":"2025-06-01T10:00:00Z"}}
		]}`))
	})
	mux.HandleFunc("/videos", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[
			{"id":"vid1","statistics":{"viewCount":"500","likeCount":"50","commentCount":"5"}}
		]}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestYouTubeFetch(t *testing.T) {
	server := youtubeTestServer(t)
	adapter := NewYouTubeAdapter(server.Client(), "key", "test-agent", 5*time.Second)
	adapter.baseURL = server.URL

	source := content.Source{ID: "y1", Type: content.SourceTypeYouTube, Username: "@testchannel"}
	result := adapter.Fetch(context.Background(), source, content.FetchOptions{Limit: 10})

	if !result.Success {
		t.Fatalf("Expected success, got error: %s", result.Error)
	}
	if len(result.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(result.Items))
	}

	first := result.Items[0]
	if first.ExternalID != "vid1" {
		t.Errorf("Expected external_id vid1, got %s", first.ExternalID)
	}
	if first.URL != "https://www.youtube.com/watch?v=vid1" {
		t.Errorf("Unexpected video URL: %s", first.URL)
	}
	if first.Platform != content.SourceTypeYouTube {
		t.Errorf("Expected platform youtube, got %s", first.Platform)
	}
	if first.Metrics != nil {
		t.Error("Metrics must not be attached unless requested")
	}
}

func TestYouTubeFetchWithMetrics(t *testing.T) {
	server := youtubeTestServer(t)
	adapter := NewYouTubeAdapter(server.Client(), "key", "test-agent", 5*time.Second)
	adapter.baseURL = server.URL

	source := content.Source{ID: "y1", Type: content.SourceTypeYouTube, Username: "testchannel"}
	result := adapter.Fetch(context.Background(), source, content.FetchOptions{Limit: 10, IncludeMetrics: true})

	if !result.Success {
		t.Fatalf("Expected success, got error: %s", result.Error)
	}

	if result.Items[0].Metrics == nil {
		t.Fatal("Expected metrics on first item")
	}
	if result.Items[0].Metrics.Views != 500 {
		t.Errorf("Expected 500 views, got %d", result.Items[0].Metrics.Views)
	}
	// The statistics response only covered vid1.
	if result.Items[1].Metrics != nil {
		t.Error("Expected no metrics for uncovered video")
	}
}

func TestYouTubeFetchChannelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[]}`))
	}))
	defer server.Close()

	adapter := NewYouTubeAdapter(server.Client(), "key", "test-agent", 5*time.Second)
	adapter.baseURL = server.URL

	source := content.Source{ID: "y1", Type: content.SourceTypeYouTube, Username: "nobody"}
	result := adapter.Fetch(context.Background(), source, content.FetchOptions{})

	if result.Success {
		t.Fatal("Expected failure for unknown channel")
	}
	if !strings.Contains(result.Error, "channel not found") {
		t.Errorf("Unexpected error: %s", result.Error)
	}
}

func TestYouTubeDescribe(t *testing.T) {
	server := youtubeTestServer(t)
	adapter := NewYouTubeAdapter(server.Client(), "key", "test-agent", 5*time.Second)
	adapter.baseURL = server.URL

	info, err := adapter.Describe(context.Background(),
		content.Source{ID: "y1", Type: content.SourceTypeYouTube, Username: "testchannel"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if info.Title != "Test Channel" {
		t.Errorf("Unexpected title: %s", info.Title)
	}
	if info.Followers != 1000 {
		t.Errorf("Expected 1000 followers, got %d", info.Followers)
	}
	if info.ItemCount != 42 {
		t.Errorf("Expected item_count 42, got %d", info.ItemCount)
	}
}
