package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zenfeed/zenfeed/app/content"
)

type itemRepository struct {
	db *DB
}

var _ ItemRepository = (*itemRepository)(nil)

func NewItemRepository(db *DB) ItemRepository {
	return &itemRepository{db: db}
}

// UpsertItems stores one aggregation pass for a source. Existing rows are
// refreshed in place, keyed by (source_id, external_id).
func (r *itemRepository) UpsertItems(sourceID string, items []content.Item) (int, error) {
	stored := 0
	now := time.Now().UTC()

	for _, item := range items {
		_, err := r.db.Exec(`
			INSERT INTO cached_items (id, source_id, platform, external_id, title, summary, url, author, thumbnail, published_at, fetched_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (source_id, external_id) DO UPDATE SET
				title = excluded.title,
				summary = excluded.summary,
				url = excluded.url,
				author = excluded.author,
				thumbnail = excluded.thumbnail,
				published_at = excluded.published_at,
				fetched_at = excluded.fetched_at
		`, uuid.NewString(), sourceID, item.Platform, item.ExternalID, item.Title,
			item.Summary, item.URL, item.Author, item.Thumbnail, item.PublishedAt.UTC(), now)
		if err != nil {
			return stored, fmt.Errorf("failed to upsert item: %w", err)
		}
		stored++
	}

	return stored, nil
}

const itemColumns = `id, source_id, platform, external_id, title, summary, content,
	url, author, thumbnail, published_at, fetched_at, extraction_status`

func (r *itemRepository) queryItems(query string, args ...any) ([]CachedItem, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []CachedItem
	for rows.Next() {
		var item CachedItem
		err := rows.Scan(&item.ID, &item.SourceID, &item.Platform, &item.ExternalID,
			&item.Title, &item.Summary, &item.Content, &item.URL, &item.Author,
			&item.Thumbnail, &item.PublishedAt, &item.FetchedAt, &item.ExtractionStatus)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

func (r *itemRepository) GetRecentItems(limit int) ([]CachedItem, error) {
	return r.queryItems(`
		SELECT `+itemColumns+` FROM cached_items
		ORDER BY published_at DESC, fetched_at DESC
		LIMIT ?
	`, limit)
}

func (r *itemRepository) GetItemCount() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM cached_items`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return count, nil
}

// GetItemsForExtraction returns pending article items that carry a link to
// extract full content from. Social posts are not extractable pages.
func (r *itemRepository) GetItemsForExtraction(limit int) ([]CachedItem, error) {
	return r.queryItems(`
		SELECT `+itemColumns+` FROM cached_items
		WHERE extraction_status = ? AND url != ''
			AND platform IN (?, ?, ?)
		ORDER BY fetched_at DESC
		LIMIT ?
	`, ExtractionPending, content.SourceTypeRSS, content.SourceTypeNewsletter, content.SourceTypeCategory, limit)
}

func (r *itemRepository) UpdateExtractedContent(itemID string, extracted string, status string) error {
	_, err := r.db.Exec(`
		UPDATE cached_items SET content = ?, extraction_status = ? WHERE id = ?
	`, extracted, status, itemID)
	if err != nil {
		return fmt.Errorf("failed to update extracted content: %w", err)
	}
	return nil
}
