package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ramonehamilton/mtg-archetypes/internal/archetype"
	"github.com/ramonehamilton/mtg-archetypes/internal/storage/models"
)

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ClassificationRepository handles database operations for classification results.
type ClassificationRepository interface {
	// Save inserts a classification, or replaces the one with the same ID.
	Save(ctx context.Context, c *models.Classification) error

	// GetByID retrieves a classification, or nil if there is none.
	GetByID(ctx context.Context, id string) (*models.Classification, error)

	// ListByFormat returns the newest classifications of a format. A limit of
	// zero or less returns all of them.
	ListByFormat(ctx context.Context, format string, limit int) ([]*models.Classification, error)

	// ArchetypeShares counts classifications per archetype name, most common first.
	ArchetypeShares(ctx context.Context, format string) ([]*models.ArchetypeShare, error)

	// CountByKind counts classifications per kind.
	CountByKind(ctx context.Context, format string) (map[archetype.Kind]int, error)

	// DeleteByFormat removes every classification of a format.
	DeleteByFormat(ctx context.Context, format string) (int64, error)
}

// classificationRepository is the concrete implementation of ClassificationRepository.
type classificationRepository struct {
	db *sql.DB
}

// NewClassificationRepository creates a new classification repository.
func NewClassificationRepository(db *sql.DB) ClassificationRepository {
	return &classificationRepository{db: db}
}

const classificationColumns = `
	id, deck_name, format, archetype_name, base_archetype_name, variant_name,
	color_identity, kind, confidence, matched_conditions, missing_cards,
	source, classified_at`

// Save inserts a classification, or replaces the one with the same ID.
func (r *classificationRepository) Save(ctx context.Context, c *models.Classification) error {
	if c.ID == "" {
		return errors.New("classification has no ID")
	}
	if c.ClassifiedAt.IsZero() {
		c.ClassifiedAt = time.Now().UTC()
	}

	matched, err := encodeList(c.MatchedConditions)
	if err != nil {
		return fmt.Errorf("failed to encode matched conditions: %w", err)
	}
	missing, err := encodeList(c.MissingCards)
	if err != nil {
		return fmt.Errorf("failed to encode missing cards: %w", err)
	}

	query := `INSERT OR REPLACE INTO classifications (` + classificationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		c.ID,
		c.DeckName,
		c.Format,
		c.ArchetypeName,
		c.BaseArchetypeName,
		c.VariantName,
		c.ColorIdentity,
		c.Kind.String(),
		c.Confidence,
		matched,
		missing,
		c.Source,
		c.ClassifiedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to save classification: %w", err)
	}
	return nil
}

// GetByID retrieves a classification, or nil if there is none.
func (r *classificationRepository) GetByID(ctx context.Context, id string) (*models.Classification, error) {
	query := `SELECT ` + classificationColumns + ` FROM classifications WHERE id = ?`

	c, err := scanClassification(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListByFormat returns the newest classifications of a format.
func (r *classificationRepository) ListByFormat(ctx context.Context, format string, limit int) ([]*models.Classification, error) {
	query := `SELECT ` + classificationColumns + `
		FROM classifications
		WHERE format = ? COLLATE NOCASE
		ORDER BY classified_at DESC, id
		LIMIT ?`
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.QueryContext(ctx, query, format, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list classifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*models.Classification
	for rows.Next() {
		c, err := scanClassification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ArchetypeShares counts classifications per archetype name, most common first.
func (r *classificationRepository) ArchetypeShares(ctx context.Context, format string) ([]*models.ArchetypeShare, error) {
	query := `
		SELECT archetype_name, COUNT(*) AS n
		FROM classifications
		WHERE format = ? COLLATE NOCASE
		GROUP BY archetype_name
		ORDER BY n DESC, archetype_name ASC`

	rows, err := r.db.QueryContext(ctx, query, format)
	if err != nil {
		return nil, fmt.Errorf("failed to count archetypes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var (
		shares []*models.ArchetypeShare
		total  int
	)
	for rows.Next() {
		share := &models.ArchetypeShare{}
		if err := rows.Scan(&share.ArchetypeName, &share.Count); err != nil {
			return nil, err
		}
		total += share.Count
		shares = append(shares, share)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, s := range shares {
		s.Share = float64(s.Count) / float64(total)
	}
	return shares, nil
}

// CountByKind counts classifications per kind.
func (r *classificationRepository) CountByKind(ctx context.Context, format string) (map[archetype.Kind]int, error) {
	query := `
		SELECT kind, COUNT(*)
		FROM classifications
		WHERE format = ? COLLATE NOCASE
		GROUP BY kind`

	rows, err := r.db.QueryContext(ctx, query, format)
	if err != nil {
		return nil, fmt.Errorf("failed to count kinds: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[archetype.Kind]int)
	for rows.Next() {
		var (
			name  string
			count int
		)
		if err := rows.Scan(&name, &count); err != nil {
			return nil, err
		}
		kind, err := archetype.ParseKind(name)
		if err != nil {
			return nil, err
		}
		counts[kind] = count
	}
	return counts, rows.Err()
}

// DeleteByFormat removes every classification of a format.
func (r *classificationRepository) DeleteByFormat(ctx context.Context, format string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM classifications WHERE format = ? COLLATE NOCASE`, format)
	if err != nil {
		return 0, fmt.Errorf("failed to delete classifications: %w", err)
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClassification(row rowScanner) (*models.Classification, error) {
	var (
		c                models.Classification
		kind             string
		matched, missing string
		classifiedAt     string
	)
	err := row.Scan(
		&c.ID,
		&c.DeckName,
		&c.Format,
		&c.ArchetypeName,
		&c.BaseArchetypeName,
		&c.VariantName,
		&c.ColorIdentity,
		&kind,
		&c.Confidence,
		&matched,
		&missing,
		&c.Source,
		&classifiedAt,
	)
	if err != nil {
		return nil, err
	}

	if c.Kind, err = archetype.ParseKind(kind); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(matched), &c.MatchedConditions); err != nil {
		return nil, fmt.Errorf("failed to decode matched conditions: %w", err)
	}
	if err := json.Unmarshal([]byte(missing), &c.MissingCards); err != nil {
		return nil, fmt.Errorf("failed to decode missing cards: %w", err)
	}
	if c.ClassifiedAt, err = time.Parse(timeLayout, classifiedAt); err != nil {
		return nil, fmt.Errorf("failed to parse classified_at: %w", err)
	}
	return &c, nil
}

func encodeList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	data, err := json.Marshal(items)
	return string(data), err
}
