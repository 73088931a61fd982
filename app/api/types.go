package api

import (
	"context"

	"github.com/zenfeed/zenfeed/app/aggregator"
	"github.com/zenfeed/zenfeed/app/content"
	"github.com/zenfeed/zenfeed/app/database"
	"github.com/zenfeed/zenfeed/app/tasks"
)

type AggregatorInterface interface {
	Platforms() []content.SourceType
	Validate(source content.Source) error
	Info(ctx context.Context, source content.Source) (*content.Info, error)
	FetchFromSource(ctx context.Context, source content.Source, opts content.FetchOptions) content.FetchResult
	AggregateAll(ctx context.Context, sources []content.Source, opts content.FetchOptions) (*content.AggregationResult, error)
}

var _ AggregatorInterface = (*aggregator.Service)(nil)

type Handler struct {
	svc         AggregatorInterface
	sourceRepo  database.SourceRepository
	accountRepo database.AccountRepository
	itemRepo    database.ItemRepository
	scheduler   tasks.TaskSchedulerInterface
}

func NewHandler(svc AggregatorInterface, sourceRepo database.SourceRepository,
	accountRepo database.AccountRepository, itemRepo database.ItemRepository,
	scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		svc:         svc,
		sourceRepo:  sourceRepo,
		accountRepo: accountRepo,
		itemRepo:    itemRepo,
		scheduler:   scheduler,
	}
}

// Request payloads

type sourcePayload struct {
	ID          string             `json:"id"`
	Type        content.SourceType `json:"type"`
	Name        string             `json:"name"`
	URL         string             `json:"url"`
	Username    string             `json:"username"`
	Priority    content.Priority   `json:"priority"`
	Active      *bool              `json:"active"`
	Description string             `json:"description"`
}

func (p sourcePayload) toSource() content.Source {
	source := content.Source{
		ID:          p.ID,
		Type:        p.Type,
		Name:        p.Name,
		URL:         p.URL,
		Username:    p.Username,
		Priority:    p.Priority,
		Active:      true,
		Description: p.Description,
	}
	if source.Priority == "" {
		source.Priority = content.PriorityMedium
	}
	if p.Active != nil {
		source.Active = *p.Active
	}
	return source
}

type aggregateRequest struct {
	Sources []sourcePayload      `json:"sources"`
	Options content.FetchOptions `json:"options"`
}

type fetchRequest struct {
	SourceID       string             `json:"source_id"`
	Type           content.SourceType `json:"type"`
	Name           string             `json:"name"`
	URL            string             `json:"url"`
	Username       string             `json:"username"`
	Limit          int                `json:"limit"`
	IncludeMetrics bool               `json:"include_metrics"`
}

type validateRequest struct {
	Type     content.SourceType `json:"type"`
	Name     string             `json:"name"`
	URL      string             `json:"url"`
	Username string             `json:"username"`
}

type accountRequest struct {
	AccessToken string `json:"access_token"`
}
