package tasks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/zenfeed/zenfeed/app/content"
	"github.com/zenfeed/zenfeed/app/database"
)

const extractBatchSize = 10

// ExtractContentTask fills in full article bodies for cached feed items
// whose pages have not been extracted yet. Per-item failures are recorded
// and never retried by the task itself.
type ExtractContentTask struct {
	Task
	httpClient *http.Client
	extractor  *content.Extractor
	itemRepo   database.ItemRepository
	userAgent  string
}

func NewExtractContentTask(httpClient *http.Client, extractor *content.Extractor,
	itemRepo database.ItemRepository, userAgent string) *ExtractContentTask {
	return &ExtractContentTask{
		Task:       NewTask(TaskTypeExtractContent, ""),
		httpClient: httpClient,
		extractor:  extractor,
		itemRepo:   itemRepo,
		userAgent:  userAgent,
	}
}

func (t *ExtractContentTask) Execute(ctx context.Context) error {
	items, err := t.itemRepo.GetItemsForExtraction(extractBatchSize)
	if err != nil {
		return fmt.Errorf("failed to get items for extraction: %w", err)
	}

	if len(items) == 0 {
		return nil
	}

	extracted := 0
	failed := 0

	for _, item := range items {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		data, err := t.fetchPage(ctx, item.URL)
		if err != nil {
			slog.Debug("Page fetch failed", "item", item.ID, "url", item.URL, "error", err)
			if err := t.itemRepo.UpdateExtractedContent(item.ID, "", database.ExtractionFailed); err != nil {
				return fmt.Errorf("failed to record extraction failure: %w", err)
			}
			failed++
			continue
		}

		body, err := t.extractor.Run(data, item.URL)
		if err != nil {
			slog.Debug("Content extraction failed", "item", item.ID, "error", err)
			if err := t.itemRepo.UpdateExtractedContent(item.ID, "", database.ExtractionFailed); err != nil {
				return fmt.Errorf("failed to record extraction failure: %w", err)
			}
			failed++
			continue
		}

		if err := t.itemRepo.UpdateExtractedContent(item.ID, body, database.ExtractionSuccess); err != nil {
			return fmt.Errorf("failed to store extracted content: %w", err)
		}
		extracted++
	}

	slog.Info("Task completed",
		"type", "ExtractContent",
		"duration", t.GetDuration(),
		"total", len(items),
		"extracted", extracted,
		"failed", failed)

	return nil
}

func (t *ExtractContentTask) fetchPage(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
