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

func TestInstagramValidate(t *testing.T) {
	adapter := NewInstagramAdapter(&http.Client{}, "test-agent", 5*time.Second)

	tests := []struct {
		name     string
		username string
		valid    bool
	}{
		{"simple", "natgeo", true},
		{"with dots and underscores", "nat.geo_travel", true},
		{"empty", "", false},
		{"with at", "@natgeo", false},
		{"too long", strings.Repeat("a", 31), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := adapter.Validate(content.Source{Username: tt.username})
			if tt.valid && err != nil {
				t.Errorf("Expected valid, got: %v", err)
			}
			if !tt.valid && err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestInstagramFetchRequiresLinkedAccount(t *testing.T) {
	adapter := NewInstagramAdapter(&http.Client{}, "test-agent", 5*time.Second)

	result := adapter.Fetch(context.Background(),
		content.Source{ID: "i1", Type: content.SourceTypeInstagram, Username: "natgeo"},
		content.FetchOptions{})

	if result.Success {
		t.Fatal("Expected failure without an access token")
	}
	if !strings.Contains(result.Error, "linked Instagram account") {
		t.Errorf("Expected configuration error message, got: %s", result.Error)
	}
}

func instagramTestServer(t *testing.T, fieldsSeen *string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/me/media", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("access_token") != "ig-token" {
			http.Error(w, "bad token", http.StatusUnauthorized)
			return
		}
		if fieldsSeen != nil {
			*fieldsSeen = r.URL.Query().Get("fields")
		}
		w.Write([]byte(`{"data":[
			{"id":"m1","caption":"Sunset over the bay\nmore text","permalink":"https://instagram.com/p/m1",
				"media_url":"https://cdn.example.com/m1.jpg","timestamp":"2025-06-02T10:00:00Z",
				"like_count":120,"comments_count":8},
			{"id":"m2","caption":"","permalink":"https://instagram.com/p/m2",
				"media_url":"https://cdn.example.com/m2.jpg","thumbnail_url":"https://cdn.example.com/m2_thumb.jpg",
				"timestamp":"2025-06-01T10:00:00Z"}
		]}`))
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"42","username":"natgeo","media_count":900}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestInstagramFetch(t *testing.T) {
	var fields string
	server := instagramTestServer(t, &fields)
	adapter := NewInstagramAdapter(server.Client(), "test-agent", 5*time.Second)
	adapter.baseURL = server.URL

	source := content.Source{
		ID:          "i1",
		Type:        content.SourceTypeInstagram,
		Username:    "natgeo",
		AccessToken: "ig-token",
	}
	result := adapter.Fetch(context.Background(), source, content.FetchOptions{Limit: 10})

	if !result.Success {
		t.Fatalf("Expected success, got error: %s", result.Error)
	}
	if len(result.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(result.Items))
	}

	if strings.Contains(fields, "like_count") {
		t.Error("Metric fields must not be requested unless asked for")
	}

	first := result.Items[0]
	if first.Title != "Sunset over the bay" {
		t.Errorf("Expected first caption line as title, got %q", first.Title)
	}
	if first.Thumbnail != "https://cdn.example.com/m1.jpg" {
		t.Errorf("Expected media_url fallback for thumbnail, got %s", first.Thumbnail)
	}
	if result.Items[1].Thumbnail != "https://cdn.example.com/m2_thumb.jpg" {
		t.Errorf("Expected thumbnail_url preferred, got %s", result.Items[1].Thumbnail)
	}
}

func TestInstagramFetchWithMetrics(t *testing.T) {
	var fields string
	server := instagramTestServer(t, &fields)
	adapter := NewInstagramAdapter(server.Client(), "test-agent", 5*time.Second)
	adapter.baseURL = server.URL

	source := content.Source{
		ID:          "i1",
		Type:        content.SourceTypeInstagram,
		Username:    "natgeo",
		AccessToken: "ig-token",
	}
	result := adapter.Fetch(context.Background(), source, content.FetchOptions{Limit: 10, IncludeMetrics: true})

	if !result.Success {
		t.Fatalf("Expected success, got error: %s", result.Error)
	}
	if !strings.Contains(fields, "like_count") {
		t.Error("Expected metric fields in the request")
	}

	if result.Items[0].Metrics == nil {
		t.Fatal("Expected metrics on first item")
	}
	if result.Items[0].Metrics.Likes != 120 {
		t.Errorf("Expected 120 likes, got %d", result.Items[0].Metrics.Likes)
	}
}

func TestInstagramDescribe(t *testing.T) {
	server := instagramTestServer(t, nil)
	adapter := NewInstagramAdapter(server.Client(), "test-agent", 5*time.Second)
	adapter.baseURL = server.URL

	source := content.Source{ID: "i1", Username: "natgeo", AccessToken: "ig-token"}
	info, err := adapter.Describe(context.Background(), source)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if info.Title != "@natgeo" {
		t.Errorf("Unexpected title: %s", info.Title)
	}
	if info.ItemCount != 900 {
		t.Errorf("Expected item_count 900, got %d", info.ItemCount)
	}
}

func TestCaptionTitle(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Short caption", "Short caption"},
		{"First line\nsecond line", "First line"},
		{"  padded  ", "padded"},
		{strings.Repeat("x", 100), strings.Repeat("x", 77) + "..."},
		{"", ""},
	}

	for _, tt := range tests {
		if got := captionTitle(tt.input); got != tt.expected {
			t.Errorf("captionTitle(%q): expected %q, got %q", tt.input, tt.expected, got)
		}
	}
}
