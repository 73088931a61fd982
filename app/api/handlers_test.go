package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zenfeed/zenfeed/app/content"
	"github.com/zenfeed/zenfeed/app/database"
	"github.com/zenfeed/zenfeed/app/tasks"
)

// MockAggregator implements AggregatorInterface for testing
type MockAggregator struct {
	validateErr  error
	info         *content.Info
	infoErr      error
	fetchResult  content.FetchResult
	aggResult    *content.AggregationResult
	aggErr       error
	lastSources  []content.Source
	lastOptions  content.FetchOptions
	fetchedToken string
}

func (m *MockAggregator) Platforms() []content.SourceType {
	return []content.SourceType{content.SourceTypeRSS, content.SourceTypeYouTube}
}

func (m *MockAggregator) Validate(source content.Source) error { return m.validateErr }

func (m *MockAggregator) Info(ctx context.Context, source content.Source) (*content.Info, error) {
	return m.info, m.infoErr
}

func (m *MockAggregator) FetchFromSource(ctx context.Context, source content.Source, opts content.FetchOptions) content.FetchResult {
	m.fetchedToken = source.AccessToken
	m.lastOptions = opts
	return m.fetchResult
}

func (m *MockAggregator) AggregateAll(ctx context.Context, srcs []content.Source, opts content.FetchOptions) (*content.AggregationResult, error) {
	m.lastSources = srcs
	m.lastOptions = opts
	return m.aggResult, m.aggErr
}

// MockSourceRepository implements database.SourceRepository for testing
type MockSourceRepository struct {
	records   []database.SourceRecord
	createdID string
	deleteErr error
}

func (m *MockSourceRepository) GetSource(id string) (*database.SourceRecord, error) {
	for i := range m.records {
		if m.records[i].ID == id {
			return &m.records[i], nil
		}
	}
	return nil, nil
}

func (m *MockSourceRepository) GetSourceByName(name string) (*database.SourceRecord, error) {
	return nil, nil
}

func (m *MockSourceRepository) ListSources() ([]database.SourceRecord, error) {
	return m.records, nil
}

func (m *MockSourceRepository) ListActiveSources() ([]database.SourceRecord, error) {
	return m.records, nil
}

func (m *MockSourceRepository) GetSourceCount() (int, error) { return len(m.records), nil }

func (m *MockSourceRepository) CreateSource(source content.Source) (string, error) {
	return m.createdID, nil
}

func (m *MockSourceRepository) UpdateSource(source content.Source) error { return nil }

func (m *MockSourceRepository) DeleteSource(id string) error { return m.deleteErr }

func (m *MockSourceRepository) UpsertSeedSource(source content.Source) (string, bool, error) {
	return "seed-id", false, nil
}

func (m *MockSourceRepository) SetRefreshSchedule(id string, last time.Time, next time.Time) error {
	return nil
}

// MockAccountRepository implements database.AccountRepository for testing
type MockAccountRepository struct {
	accounts map[string]string
}

func (m *MockAccountRepository) GetAccount(provider string) (*database.Account, error) {
	token, ok := m.accounts[provider]
	if !ok {
		return nil, nil
	}
	return &database.Account{Provider: provider, AccessToken: token, ConnectedAt: time.Now()}, nil
}

func (m *MockAccountRepository) ListAccounts() ([]database.Account, error) { return nil, nil }

func (m *MockAccountRepository) UpsertAccount(provider, accessToken string) error {
	if m.accounts == nil {
		m.accounts = make(map[string]string)
	}
	m.accounts[provider] = accessToken
	return nil
}

func (m *MockAccountRepository) DeleteAccount(provider string) error {
	if _, ok := m.accounts[provider]; !ok {
		return sql.ErrNoRows
	}
	delete(m.accounts, provider)
	return nil
}

// MockItemRepository implements database.ItemRepository for testing
type MockItemRepository struct {
	items []database.CachedItem
}

func (m *MockItemRepository) UpsertItems(sourceID string, items []content.Item) (int, error) {
	return len(items), nil
}

func (m *MockItemRepository) GetRecentItems(limit int) ([]database.CachedItem, error) {
	if limit > len(m.items) {
		limit = len(m.items)
	}
	return m.items[:limit], nil
}

func (m *MockItemRepository) GetItemCount() (int, error) { return len(m.items), nil }

func (m *MockItemRepository) GetItemsForExtraction(limit int) ([]database.CachedItem, error) {
	return nil, nil
}

func (m *MockItemRepository) UpdateExtractedContent(itemID string, extracted string, status string) error {
	return nil
}

// MockScheduler implements tasks.TaskSchedulerInterface for testing
type MockScheduler struct {
	refreshed []string
}

func (m *MockScheduler) Start() {}
func (m *MockScheduler) Stop()  {}

func (m *MockScheduler) EnqueueTask(task tasks.TaskInterface) error { return nil }

func (m *MockScheduler) EnqueueRefresh(record database.SourceRecord) error {
	m.refreshed = append(m.refreshed, record.ID)
	return nil
}

type handlerFixture struct {
	aggregator *MockAggregator
	sources    *MockSourceRepository
	accounts   *MockAccountRepository
	items      *MockItemRepository
	scheduler  *MockScheduler
	router     *gin.Engine
}

func newHandlerFixture() *handlerFixture {
	gin.SetMode(gin.TestMode)

	f := &handlerFixture{
		aggregator: &MockAggregator{},
		sources:    &MockSourceRepository{},
		accounts:   &MockAccountRepository{},
		items:      &MockItemRepository{},
		scheduler:  &MockScheduler{},
	}

	handler := NewHandler(f.aggregator, f.sources, f.accounts, f.items, f.scheduler)

	router := gin.New()
	router.GET("/platforms", handler.GetPlatforms)
	router.POST("/aggregate", handler.AggregateContent)
	router.POST("/fetch", handler.FetchContent)
	router.POST("/validate", handler.ValidateSource)
	router.GET("/feed", handler.GetFeed)
	router.GET("/health", handler.GetHealth)
	router.POST("/api/sources/:id/refresh", handler.APIRefreshSource)
	router.PUT("/api/accounts/:provider", handler.APIPutAccount)
	router.DELETE("/api/accounts/:provider", handler.APIDeleteAccount)

	f.router = router
	return f
}

func (f *handlerFixture) request(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestGetPlatforms(t *testing.T) {
	f := newHandlerFixture()

	w := f.request(t, "GET", "/platforms", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var body struct {
		Platforms []string `json:"platforms"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(body.Platforms) != 2 {
		t.Errorf("Expected 2 platforms, got %d", len(body.Platforms))
	}
}

func TestAggregateContentSuccess(t *testing.T) {
	f := newHandlerFixture()
	f.aggregator.aggResult = &content.AggregationResult{
		Items:             []content.Item{{SourceID: "a", ExternalID: "a-1"}},
		Errors:            []content.SourceError{{SourceID: "b", Message: "upstream unavailable"}},
		TotalSources:      2,
		SuccessfulSources: 1,
	}

	w := f.request(t, "POST", "/aggregate", map[string]any{
		"sources": []map[string]any{
			{"id": "a", "type": "rss", "url": "https://example.com/feed"},
			{"id": "b", "type": "twitter", "username": "jack"},
		},
		"options": map[string]any{"limit": 20},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Items             []content.Item        `json:"items"`
		Errors            []content.SourceError `json:"errors"`
		TotalSources      int                   `json:"total_sources"`
		SuccessfulSources int                   `json:"successful_sources"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.TotalSources != 2 || body.SuccessfulSources != 1 || len(body.Errors) != 1 {
		t.Errorf("Unexpected accounting: %+v", body)
	}
	if f.aggregator.lastOptions.Limit != 20 {
		t.Errorf("Expected limit 20 passed through, got %d", f.aggregator.lastOptions.Limit)
	}
}

func TestAggregateContentEmptySources(t *testing.T) {
	f := newHandlerFixture()

	w := f.request(t, "POST", "/aggregate", map[string]any{"sources": []any{}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty sources, got %d", w.Code)
	}
}

func TestAggregateContentMalformedSourceIs400(t *testing.T) {
	f := newHandlerFixture()
	f.aggregator.aggErr = content.NewValidationError("sources", "source at index 0 is missing an id")

	w := f.request(t, "POST", "/aggregate", map[string]any{
		"sources": []map[string]any{{"type": "rss"}},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed source, got %d", w.Code)
	}
}

func TestAggregateContentInvalidJSON(t *testing.T) {
	f := newHandlerFixture()

	req := httptest.NewRequest("POST", "/aggregate", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid JSON, got %d", w.Code)
	}
}

func TestAggregateContentResolvesInstagramToken(t *testing.T) {
	f := newHandlerFixture()
	f.accounts.accounts = map[string]string{"instagram": "ig-token"}
	f.aggregator.aggResult = &content.AggregationResult{TotalSources: 1, SuccessfulSources: 1}

	w := f.request(t, "POST", "/aggregate", map[string]any{
		"sources": []map[string]any{{"id": "i1", "type": "instagram", "username": "natgeo"}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	if len(f.aggregator.lastSources) != 1 {
		t.Fatalf("Expected 1 source passed, got %d", len(f.aggregator.lastSources))
	}
	if f.aggregator.lastSources[0].AccessToken != "ig-token" {
		t.Error("Expected linked account token resolved onto the source")
	}
}

func TestFetchContentRequiresIDAndType(t *testing.T) {
	f := newHandlerFixture()

	w := f.request(t, "POST", "/fetch", map[string]any{"type": "rss"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing source_id, got %d", w.Code)
	}

	w = f.request(t, "POST", "/fetch", map[string]any{"source_id": "s1"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing type, got %d", w.Code)
	}
}

func TestFetchContentSuccess(t *testing.T) {
	f := newHandlerFixture()
	f.aggregator.fetchResult = content.FetchResult{
		Success: true,
		Items:   []content.Item{{SourceID: "s1", ExternalID: "x1"}},
	}

	w := f.request(t, "POST", "/fetch", map[string]any{
		"source_id": "s1",
		"type":      "rss",
		"url":       "https://example.com/feed",
		"limit":     5,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var result content.FetchResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !result.Success || len(result.Items) != 1 {
		t.Errorf("Unexpected result: %+v", result)
	}
	if f.aggregator.lastOptions.Limit != 5 {
		t.Errorf("Expected limit 5 passed through, got %d", f.aggregator.lastOptions.Limit)
	}
}

func TestValidateSourceInvalid(t *testing.T) {
	f := newHandlerFixture()
	f.aggregator.validateErr = content.NewValidationError("url", "is not a valid URL")

	w := f.request(t, "POST", "/validate", map[string]any{"type": "rss", "url": "not-a-url"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 with valid=false, got %d", w.Code)
	}

	var body struct {
		Valid bool   `json:"valid"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.Valid {
		t.Error("Expected valid=false")
	}
	if body.Error == "" {
		t.Error("Expected error message")
	}
}

func TestValidateSourceInfoFailureIsNonFatal(t *testing.T) {
	f := newHandlerFixture()
	f.aggregator.infoErr = &content.UpstreamError{
		Kind:     content.UpstreamTransport,
		Platform: content.SourceTypeRSS,
		Message:  "request timed out",
	}

	w := f.request(t, "POST", "/validate", map[string]any{"type": "rss", "url": "https://example.com/feed"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body["valid"] != true {
		t.Error("Expected valid=true despite info failure")
	}
	if _, ok := body["source_info"]; ok {
		t.Error("Expected no source_info when the lookup fails")
	}
}

func TestGetFeed(t *testing.T) {
	f := newHandlerFixture()
	f.items.items = []database.CachedItem{
		{ID: "1", Title: "One"},
		{ID: "2", Title: "Two"},
		{ID: "3", Title: "Three"},
	}

	w := f.request(t, "GET", "/feed?limit=2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var body struct {
		Items []database.CachedItem `json:"items"`
		Total int                   `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.Total != 2 {
		t.Errorf("Expected 2 items, got %d", body.Total)
	}

	w = f.request(t, "GET", "/feed?limit=abc", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid limit, got %d", w.Code)
	}
}

func TestAPIRefreshSource(t *testing.T) {
	f := newHandlerFixture()
	f.sources.records = []database.SourceRecord{
		{Source: content.Source{ID: "s1", Type: content.SourceTypeRSS, Name: "hn", Active: true}},
	}

	w := f.request(t, "POST", "/api/sources/s1/refresh", nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", w.Code)
	}
	if len(f.scheduler.refreshed) != 1 || f.scheduler.refreshed[0] != "s1" {
		t.Errorf("Expected refresh enqueued for s1, got %v", f.scheduler.refreshed)
	}

	w = f.request(t, "POST", "/api/sources/missing/refresh", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown source, got %d", w.Code)
	}
}

func TestAccountLifecycle(t *testing.T) {
	f := newHandlerFixture()

	w := f.request(t, "PUT", "/api/accounts/instagram", map[string]any{"access_token": "tok"})
	if w.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", w.Code)
	}
	if f.accounts.accounts["instagram"] != "tok" {
		t.Error("Expected token stored")
	}

	w = f.request(t, "PUT", "/api/accounts/instagram", map[string]any{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing token, got %d", w.Code)
	}

	w = f.request(t, "DELETE", "/api/accounts/instagram", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", w.Code)
	}

	w = f.request(t, "DELETE", "/api/accounts/instagram", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for already removed account, got %d", w.Code)
	}
}
