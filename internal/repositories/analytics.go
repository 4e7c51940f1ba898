package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/melodysyncer/melodysyncer/internal/models"
)

// SQLiteAnalytics keeps the counters in a single-row table and logs each conversion.
type SQLiteAnalytics struct {
	db          *sql.DB
	conversions *ConversionRepository
}

// NewSQLiteAnalytics creates a sink over a migrated database.
func NewSQLiteAnalytics(db *sql.DB) *SQLiteAnalytics {
	return &SQLiteAnalytics{db: db, conversions: NewConversionRepository(db)}
}

// Increment adds one conversion to the counters and records it, atomically.
func (s *SQLiteAnalytics) Increment(ctx context.Context, songs, playlists int) error {
	d := models.AnalyticsDelta(songs, playlists)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO analytics (id, iso_total_calls, meso_total_calls, songs_converted, playlists_converted)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			iso_total_calls = iso_total_calls + excluded.iso_total_calls,
			meso_total_calls = meso_total_calls + excluded.meso_total_calls,
			songs_converted = songs_converted + excluded.songs_converted,
			playlists_converted = playlists_converted + excluded.playlists_converted,
			updated_at = CURRENT_TIMESTAMP
	`, d.ISOTotalCalls, d.MESOTotalCalls, d.SongsConverted, d.PlaylistsConverted)
	if err != nil {
		return fmt.Errorf("failed to increment analytics: %w", err)
	}

	kind := models.KindSong
	if playlists > 0 {
		kind = models.KindPlaylist
	}
	if err := s.conversions.create(ctx, tx, &models.Conversion{Kind: kind, Songs: songs}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit analytics: %w", err)
	}
	return nil
}

// Snapshot returns the counter row, or nothing before the first conversion.
func (s *SQLiteAnalytics) Snapshot(ctx context.Context) ([]models.Analytics, error) {
	var a models.Analytics
	err := s.db.QueryRowContext(ctx, `
		SELECT iso_total_calls, meso_total_calls, songs_converted, playlists_converted
		FROM analytics WHERE id = 1
	`).Scan(&a.ISOTotalCalls, &a.MESOTotalCalls, &a.SongsConverted, &a.PlaylistsConverted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query analytics: %w", err)
	}
	return []models.Analytics{a}, nil
}

// Conversions exposes the per-request log.
func (s *SQLiteAnalytics) Conversions() *ConversionRepository {
	return s.conversions
}

// Close closes the database.
func (s *SQLiteAnalytics) Close(ctx context.Context) error {
	return s.db.Close()
}
