package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zenfeed/zenfeed/app/content"
	"github.com/zenfeed/zenfeed/app/database"
)

// refreshLimit is how many items one background pass pulls per source.
const refreshLimit = 25

// RefreshSourceTask fetches one active source through the aggregation
// service and stores the normalized items in the cache.
type RefreshSourceTask struct {
	Task
	Record      database.SourceRecord
	aggregator  Aggregator
	sourceRepo  database.SourceRepository
	accountRepo database.AccountRepository
	itemRepo    database.ItemRepository
}

func NewRefreshSourceTask(record database.SourceRecord, aggregator Aggregator,
	sourceRepo database.SourceRepository, accountRepo database.AccountRepository,
	itemRepo database.ItemRepository) *RefreshSourceTask {
	return &RefreshSourceTask{
		Task:        NewTask(TaskTypeRefreshSource, record.ID),
		Record:      record,
		aggregator:  aggregator,
		sourceRepo:  sourceRepo,
		accountRepo: accountRepo,
		itemRepo:    itemRepo,
	}
}

func (t *RefreshSourceTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	source := t.Record.Source
	if !source.Active {
		slog.Debug("Source inactive, skipping", "source", source.ID)
		return nil
	}

	// Tokens are resolved per call from the linked-account store and never
	// cached on the task or the source row.
	if source.Type == content.SourceTypeInstagram {
		account, err := t.accountRepo.GetAccount(string(source.Type))
		if err != nil {
			return fmt.Errorf("failed to look up linked account: %w", err)
		}
		if account != nil {
			source.AccessToken = account.AccessToken
		}
	}

	result := t.aggregator.FetchFromSource(ctx, source, content.FetchOptions{
		Limit:          refreshLimit,
		IncludeMetrics: true,
	})
	if !result.Success {
		return fmt.Errorf("failed to fetch source: %s", result.Error)
	}

	stored, err := t.itemRepo.UpsertItems(source.ID, result.Items)
	if err != nil {
		return fmt.Errorf("failed to store items: %w", err)
	}

	now := time.Now().UTC()
	if err := t.sourceRepo.SetRefreshSchedule(source.ID, now, now.Add(refreshInterval(source.Priority))); err != nil {
		return fmt.Errorf("failed to update refresh schedule: %w", err)
	}

	slog.Info("Task completed",
		"type", "RefreshSource",
		"source", source.ID,
		"platform", source.Type,
		"duration", t.GetDuration(),
		"items", stored)

	return nil
}

// refreshInterval maps source priority to polling cadence.
func refreshInterval(priority content.Priority) time.Duration {
	switch priority {
	case content.PriorityHigh:
		return 15 * time.Minute
	case content.PriorityLow:
		return 6 * time.Hour
	default:
		return time.Hour
	}
}
