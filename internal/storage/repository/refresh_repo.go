package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ramonehamilton/mtg-archetypes/internal/storage/models"
)

// RefreshRepository keeps a history of definition reloads.
type RefreshRepository interface {
	// Record stores a refresh attempt.
	Record(ctx context.Context, refresh *models.DefinitionRefresh) error

	// Latest returns the most recent refresh of a format, or nil.
	Latest(ctx context.Context, format string) (*models.DefinitionRefresh, error)

	// List returns the newest refresh attempts across all formats.
	List(ctx context.Context, limit int) ([]*models.DefinitionRefresh, error)
}

type refreshRepository struct {
	db *sql.DB
}

// NewRefreshRepository creates a new refresh repository.
func NewRefreshRepository(db *sql.DB) RefreshRepository {
	return &refreshRepository{db: db}
}

const refreshColumns = `id, format, source, archetypes_count, fallbacks_count, overrides_count, strategy, error, refreshed_at`

func (r *refreshRepository) Record(ctx context.Context, refresh *models.DefinitionRefresh) error {
	if refresh.RefreshedAt.IsZero() {
		refresh.RefreshedAt = time.Now().UTC()
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO definition_refreshes (format, source, archetypes_count, fallbacks_count, overrides_count, strategy, error, refreshed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		refresh.Format,
		refresh.Source,
		refresh.ArchetypesCount,
		refresh.FallbacksCount,
		refresh.OverridesCount,
		refresh.Strategy,
		refresh.Error,
		refresh.RefreshedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to record refresh: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	refresh.ID = id
	return nil
}

func (r *refreshRepository) Latest(ctx context.Context, format string) (*models.DefinitionRefresh, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+refreshColumns+`
		FROM definition_refreshes
		WHERE format = ? COLLATE NOCASE
		ORDER BY refreshed_at DESC, id DESC
		LIMIT 1`, format)

	refresh, err := scanRefresh(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return refresh, err
}

func (r *refreshRepository) List(ctx context.Context, limit int) ([]*models.DefinitionRefresh, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+refreshColumns+`
		FROM definition_refreshes
		ORDER BY refreshed_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list refreshes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*models.DefinitionRefresh
	for rows.Next() {
		refresh, err := scanRefresh(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, refresh)
	}
	return out, rows.Err()
}

func scanRefresh(row rowScanner) (*models.DefinitionRefresh, error) {
	var (
		refresh     models.DefinitionRefresh
		refreshedAt string
	)
	err := row.Scan(
		&refresh.ID,
		&refresh.Format,
		&refresh.Source,
		&refresh.ArchetypesCount,
		&refresh.FallbacksCount,
		&refresh.OverridesCount,
		&refresh.Strategy,
		&refresh.Error,
		&refreshedAt,
	)
	if err != nil {
		return nil, err
	}
	if refresh.RefreshedAt, err = time.Parse(timeLayout, refreshedAt); err != nil {
		return nil, fmt.Errorf("failed to parse refreshed_at: %w", err)
	}
	return &refresh, nil
}
