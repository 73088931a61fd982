package tasks

import (
	"context"

	"github.com/zenfeed/zenfeed/app/content"
	"github.com/zenfeed/zenfeed/app/database"
)

type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	EnqueueRefresh(record database.SourceRecord) error
}

// Aggregator is the slice of the aggregation service the background tasks
// depend on.
type Aggregator interface {
	FetchFromSource(ctx context.Context, source content.Source, opts content.FetchOptions) content.FetchResult
}
