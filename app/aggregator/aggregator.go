package aggregator

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/zenfeed/zenfeed/app/content"
	"github.com/zenfeed/zenfeed/app/sources"
)

// Service orchestrates the platform adapters: it validates sources,
// fetches items with clamped limits, merges results and reports partial
// failures. It holds no mutable state between calls.
type Service struct {
	registry *sources.Registry
	workers  int
}

func New(registry *sources.Registry, workerCount int) *Service {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &Service{
		registry: registry,
		workers:  workerCount,
	}
}

// Platforms returns the stable list of supported adapter types.
func (s *Service) Platforms() []content.SourceType {
	return s.registry.Types()
}

// Validate dispatches to the adapter for the source type. An unrecognized
// type is invalid, never fetched.
func (s *Service) Validate(source content.Source) error {
	adapter, ok := s.registry.Get(source.Type)
	if !ok {
		return content.NewValidationError("type", "unsupported source type %q", source.Type)
	}
	return adapter.Validate(source)
}

// Info returns best-effort source metadata for UI previews. Callers must
// treat failure as non-fatal.
func (s *Service) Info(ctx context.Context, source content.Source) (*content.Info, error) {
	adapter, ok := s.registry.Get(source.Type)
	if !ok {
		return nil, content.NewValidationError("type", "unsupported source type %q", source.Type)
	}
	return adapter.Describe(ctx, source)
}

// FetchFromSource performs a single-source fetch with the limit clamped to
// [1, MaxSingleLimit]; the adapter applies its own platform cap on top.
func (s *Service) FetchFromSource(ctx context.Context, source content.Source, opts content.FetchOptions) content.FetchResult {
	opts.Limit = opts.EffectiveLimit(content.MaxSingleLimit)
	return s.dispatch(ctx, source, opts)
}

func (s *Service) dispatch(ctx context.Context, source content.Source, opts content.FetchOptions) content.FetchResult {
	adapter, ok := s.registry.Get(source.Type)
	if !ok {
		return content.FetchResult{Error: "unsupported source type: " + string(source.Type)}
	}

	if err := adapter.Validate(source); err != nil {
		return content.FetchResult{Error: err.Error()}
	}

	return adapter.Fetch(ctx, source, opts)
}

// AggregateAll fetches every source in the input list and merges the
// successful items in source order. Partial failure is the contract: a
// failing source becomes an error entry, never a call-level fault. The call
// itself only fails on structurally invalid input (missing id/type), which
// is rejected before any fetch begins, or on a cancelled context, in which
// case no partial result is returned.
func (s *Service) AggregateAll(ctx context.Context, srcs []content.Source, opts content.FetchOptions) (*content.AggregationResult, error) {
	for i, source := range srcs {
		if source.ID == "" {
			return nil, content.NewValidationError("sources", "source at index %d is missing an id", i)
		}
		if source.Type == "" {
			return nil, content.NewValidationError("sources", "source at index %d is missing a type", i)
		}
	}

	opts.Limit = opts.EffectiveLimit(content.MaxBatchLimit)

	// Bounded fan-out; result slots are indexed by input position so the
	// merged output preserves source order regardless of completion order.
	results := make([]content.FetchResult, len(srcs))
	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup

	for i, source := range srcs {
		wg.Add(1)
		go func(i int, source content.Source) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			results[i] = s.dispatch(ctx, source, opts)
		}(i, source)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &content.AggregationResult{
		Items:        make([]content.Item, 0),
		Errors:       make([]content.SourceError, 0),
		TotalSources: len(srcs),
	}

	for i, fetch := range results {
		if !fetch.Success {
			slog.Debug("Source fetch failed", "source", srcs[i].ID, "type", srcs[i].Type, "error", fetch.Error)
			result.Errors = append(result.Errors, content.SourceError{
				SourceID: srcs[i].ID,
				Message:  fetch.Error,
			})
			continue
		}

		result.SuccessfulSources++
		result.Items = append(result.Items, fetch.Items...)
	}

	if opts.SortByPublished {
		sort.SliceStable(result.Items, func(i, j int) bool {
			return result.Items[i].PublishedAt.After(result.Items[j].PublishedAt)
		})
	}

	return result, nil
}
