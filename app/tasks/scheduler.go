package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/zenfeed/zenfeed/app/cfg"
	"github.com/zenfeed/zenfeed/app/content"
	"github.com/zenfeed/zenfeed/app/database"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	sourceRepo  database.SourceRepository
	accountRepo database.AccountRepository
	itemRepo    database.ItemRepository
	aggregator  Aggregator
	httpClient  *http.Client
	extractor   *content.Extractor
	userAgent   string
	interval    time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
}

func NewScheduler(aggregator Aggregator, sourceRepo database.SourceRepository,
	accountRepo database.AccountRepository, itemRepo database.ItemRepository,
	httpClient *http.Client, extractor *content.Extractor) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		sourceRepo:  sourceRepo,
		accountRepo: accountRepo,
		itemRepo:    itemRepo,
		aggregator:  aggregator,
		httpClient:  httpClient,
		extractor:   extractor,
		userAgent:   cfg.UserAgent,
		interval:    time.Duration(cfg.SchedulerInterval) * time.Second,
		workerCount: cfg.WorkerCount,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueTasks(true)

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks(false)
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// EnqueueRefresh schedules an immediate refresh of one source.
func (s *Scheduler) EnqueueRefresh(record database.SourceRecord) error {
	task := NewRefreshSourceTask(record, s.aggregator, s.sourceRepo, s.accountRepo, s.itemRepo)
	return s.EnqueueTask(task)
}

func (s *Scheduler) enqueueTasks(startup bool) {
	records, err := s.sourceRepo.ListActiveSources()
	if err != nil {
		slog.Warn("Failed to list active sources", "error", err)
		return
	}

	if len(records) == 0 {
		slog.Debug("No active sources found")
		return
	}

	now := time.Now().UTC()
	enqueued := 0
	for _, record := range records {
		if !startup && record.NextRefreshAt != nil && record.NextRefreshAt.After(now) {
			slog.Debug("Source not due for refresh yet", "source", record.ID, "next_refresh_at", record.NextRefreshAt)
			continue
		}

		if err := s.EnqueueRefresh(record); err != nil {
			slog.Warn("Failed to enqueue RefreshSourceTask", "source", record.ID, "error", err)
			continue
		}
		enqueued++
	}

	if enqueued > 0 {
		slog.Debug("Refresh tasks enqueued", "count", enqueued)
	}

	extractTask := NewExtractContentTask(s.httpClient, s.extractor, s.itemRepo, s.userAgent)
	if err := s.EnqueueTask(extractTask); err != nil {
		slog.Warn("Failed to enqueue ExtractContentTask", "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "source", task.GetSourceID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
