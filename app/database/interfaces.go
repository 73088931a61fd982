package database

import (
	"time"

	"github.com/zenfeed/zenfeed/app/content"
)

type SourceRepository interface {
	GetSource(id string) (*SourceRecord, error)
	GetSourceByName(name string) (*SourceRecord, error)
	ListSources() ([]SourceRecord, error)
	ListActiveSources() ([]SourceRecord, error)
	GetSourceCount() (int, error)

	CreateSource(source content.Source) (string, error)
	UpdateSource(source content.Source) error
	DeleteSource(id string) error

	// UpsertSeedSource registers a seeded source by name, reporting whether
	// the stored identifier (url/username) changed.
	UpsertSeedSource(source content.Source) (string, bool, error)

	SetRefreshSchedule(id string, last time.Time, next time.Time) error
}

type AccountRepository interface {
	GetAccount(provider string) (*Account, error)
	ListAccounts() ([]Account, error)
	UpsertAccount(provider, accessToken string) error
	DeleteAccount(provider string) error
}

type ItemRepository interface {
	UpsertItems(sourceID string, items []content.Item) (int, error)
	GetRecentItems(limit int) ([]CachedItem, error)
	GetItemCount() (int, error)

	GetItemsForExtraction(limit int) ([]CachedItem, error)
	UpdateExtractedContent(itemID string, extracted string, status string) error
}
