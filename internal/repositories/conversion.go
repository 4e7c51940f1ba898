package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/melodysyncer/melodysyncer/internal/models"
	"github.com/melodysyncer/melodysyncer/internal/shared"
)

// ConversionRepository implements [models.Repository] for [models.Conversion] records.
type ConversionRepository struct {
	db *sql.DB
}

// NewConversionRepository creates a new [ConversionRepository] with the given database connection
func NewConversionRepository(db *sql.DB) *ConversionRepository {
	return &ConversionRepository{db: db}
}

// Create inserts a conversion, assigning an id and timestamp when unset.
func (r *ConversionRepository) Create(ctx context.Context, c *models.Conversion) error {
	return r.create(ctx, r.db, c)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *ConversionRepository) create(ctx context.Context, db execer, c *models.Conversion) error {
	if c.ConversionID == "" {
		c.ConversionID = shared.GenerateID()
	}
	if c.Created.IsZero() {
		c.Created = time.Now().UTC()
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO conversions (id, kind, songs, created_at) VALUES (?, ?, ?, ?)`,
		c.ConversionID, string(c.Kind), c.Songs, c.Created,
	)
	if err != nil {
		return fmt.Errorf("failed to insert conversion: %w", err)
	}
	return nil
}

// Get retrieves a conversion by ID
func (r *ConversionRepository) Get(ctx context.Context, id string) (*models.Conversion, error) {
	var (
		c    models.Conversion
		kind string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, kind, songs, created_at FROM conversions WHERE id = ?`, id,
	).Scan(&c.ConversionID, &kind, &c.Songs, &c.Created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("conversion not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query conversion: %w", err)
	}
	c.Kind = models.ConversionKind(kind)
	return &c, nil
}

// List returns the newest conversions first. A non-positive limit returns everything.
func (r *ConversionRepository) List(ctx context.Context, limit int) ([]*models.Conversion, error) {
	query := `SELECT id, kind, songs, created_at FROM conversions ORDER BY created_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversions: %w", err)
	}
	defer rows.Close()

	var out []*models.Conversion
	for rows.Next() {
		var (
			c    models.Conversion
			kind string
		)
		if err := rows.Scan(&c.ConversionID, &kind, &c.Songs, &c.Created); err != nil {
			return nil, fmt.Errorf("failed to scan conversion: %w", err)
		}
		c.Kind = models.ConversionKind(kind)
		out = append(out, &c)
	}
	return out, rows.Err()
}

var _ models.Repository[*models.Conversion] = (*ConversionRepository)(nil)
