package sources

import (
	"context"
	"sort"

	"github.com/zenfeed/zenfeed/app/content"
)

// Adapter implements the platform-specific capability set for one source
// type. Validate never fails for expected bad input with anything other
// than a *content.ValidationError; Fetch reports upstream failures inside
// the FetchResult instead of returning an error.
type Adapter interface {
	Type() content.SourceType
	// MaxLimit is the platform's own per-request item cap. Requested limits
	// are clamped to it before the external call.
	MaxLimit() int
	Validate(source content.Source) error
	Fetch(ctx context.Context, source content.Source, opts content.FetchOptions) content.FetchResult
	Describe(ctx context.Context, source content.Source) (*content.Info, error)
}

// Registry maps source types to their adapters. Lookup of an unknown type
// fails closed: callers reject the source instead of attempting a fetch.
type Registry struct {
	adapters map[content.SourceType]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{
		adapters: make(map[content.SourceType]Adapter, len(adapters)),
	}
	for _, adapter := range adapters {
		r.adapters[adapter.Type()] = adapter
	}
	return r
}

func (r *Registry) Get(sourceType content.SourceType) (Adapter, bool) {
	adapter, ok := r.adapters[sourceType]
	return adapter, ok
}

// Types returns the supported platform list, sorted for stable output.
func (r *Registry) Types() []content.SourceType {
	types := make([]content.SourceType, 0, len(r.adapters))
	for t := range r.adapters {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
