package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zenfeed/zenfeed/app/content"
)

type sourceRepository struct {
	db *DB
}

var _ SourceRepository = (*sourceRepository)(nil)

func NewSourceRepository(db *DB) SourceRepository {
	return &sourceRepository{db: db}
}

const sourceColumns = `id, type, name, url, username, priority, active, description,
	last_refresh_at, next_refresh_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (*SourceRecord, error) {
	var record SourceRecord
	var lastRefresh, nextRefresh sql.NullTime

	err := row.Scan(&record.ID, &record.Type, &record.Name, &record.URL,
		&record.Username, &record.Priority, &record.Active, &record.Description,
		&lastRefresh, &nextRefresh, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if lastRefresh.Valid {
		record.LastRefreshAt = &lastRefresh.Time
	}
	if nextRefresh.Valid {
		record.NextRefreshAt = &nextRefresh.Time
	}

	return &record, nil
}

func (r *sourceRepository) GetSource(id string) (*SourceRecord, error) {
	row := r.db.QueryRow(`SELECT `+sourceColumns+` FROM sources WHERE id = ?`, id)

	record, err := scanSource(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}
	return record, nil
}

func (r *sourceRepository) GetSourceByName(name string) (*SourceRecord, error) {
	row := r.db.QueryRow(`SELECT `+sourceColumns+` FROM sources WHERE name = ?`, name)

	record, err := scanSource(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source by name: %w", err)
	}
	return record, nil
}

func (r *sourceRepository) listSources(query string, args ...any) ([]SourceRecord, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var records []SourceRecord
	for rows.Next() {
		record, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		records = append(records, *record)
	}

	return records, rows.Err()
}

func (r *sourceRepository) ListSources() ([]SourceRecord, error) {
	return r.listSources(`SELECT ` + sourceColumns + ` FROM sources ORDER BY name`)
}

func (r *sourceRepository) ListActiveSources() ([]SourceRecord, error) {
	return r.listSources(`SELECT ` + sourceColumns + ` FROM sources WHERE active = 1 ORDER BY name`)
}

func (r *sourceRepository) GetSourceCount() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM sources`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sources: %w", err)
	}
	return count, nil
}

func (r *sourceRepository) CreateSource(source content.Source) (string, error) {
	id := source.ID
	if id == "" {
		id = uuid.NewString()
	}

	now := time.Now().UTC()
	_, err := r.db.Exec(`
		INSERT INTO sources (id, type, name, url, username, priority, active, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, source.Type, source.Name, source.URL, source.Username,
		source.Priority, source.Active, source.Description, now, now)
	if err != nil {
		return "", fmt.Errorf("failed to create source: %w", err)
	}

	return id, nil
}

func (r *sourceRepository) UpdateSource(source content.Source) error {
	result, err := r.db.Exec(`
		UPDATE sources
		SET type = ?, name = ?, url = ?, username = ?, priority = ?, active = ?, description = ?, updated_at = ?
		WHERE id = ?
	`, source.Type, source.Name, source.URL, source.Username,
		source.Priority, source.Active, source.Description, time.Now().UTC(), source.ID)
	if err != nil {
		return fmt.Errorf("failed to update source: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (r *sourceRepository) DeleteSource(id string) error {
	result, err := r.db.Exec(`DELETE FROM sources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (r *sourceRepository) UpsertSeedSource(source content.Source) (string, bool, error) {
	existing, err := r.GetSourceByName(source.Name)
	if err != nil {
		return "", false, fmt.Errorf("failed to check existing source: %w", err)
	}

	if existing == nil {
		id, err := r.CreateSource(source)
		return id, false, err
	}

	identifierChanged := existing.URL != source.URL || existing.Username != source.Username

	source.ID = existing.ID
	if err := r.UpdateSource(source); err != nil {
		return "", false, err
	}

	return existing.ID, identifierChanged, nil
}

func (r *sourceRepository) SetRefreshSchedule(id string, last time.Time, next time.Time) error {
	_, err := r.db.Exec(`
		UPDATE sources SET last_refresh_at = ?, next_refresh_at = ?, updated_at = ? WHERE id = ?
	`, last.UTC(), next.UTC(), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set refresh schedule: %w", err)
	}
	return nil
}
