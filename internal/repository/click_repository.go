package repository

import (
	"context"
	"database/sql"
	"fmt"

	"linklock-be/internal/entities"
	"linklock-be/internal/models"
)

// ClickRepository defines the interface for click event persistence.
// Click rows are write-once; nothing here updates or deletes them.
type ClickRepository interface {
	Insert(ctx context.Context, click *entities.Click) error
	CountByLinkID(ctx context.Context, linkID string) (int64, error)
	GetAnalytics(ctx context.Context, linkID string, hours int) ([]models.ClickBucket, error)
}

type clickRepository struct {
	db *sql.DB
}

// NewClickRepository creates a new click repository
func NewClickRepository(db *sql.DB) ClickRepository {
	return &clickRepository{db: db}
}

// Insert records one click and bumps the denormalized counter on the
// link inside the same transaction.
func (r *clickRepository) Insert(ctx context.Context, click *entities.Click) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO link_clicks (link_id, original_url, ip_address, user_agent, referer)
		VALUES ($1, $2, $3, $4, $5)
	`, click.LinkID, click.OriginalURL, click.IPAddress, click.UserAgent, click.Referer)
	if err != nil {
		return fmt.Errorf("failed to insert click: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE links SET click_count = click_count + 1 WHERE id = $1
	`, click.LinkID)
	if err != nil {
		return fmt.Errorf("failed to increment click count: %w", err)
	}

	return tx.Commit()
}

// CountByLinkID returns the number of recorded clicks for a link.
func (r *clickRepository) CountByLinkID(ctx context.Context, linkID string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM link_clicks WHERE link_id = $1`, linkID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count clicks: %w", err)
	}
	return count, nil
}

// GetAnalytics retrieves click counts grouped by time buckets sized to
// the requested window.
func (r *clickRepository) GetAnalytics(ctx context.Context, linkID string, hours int) ([]models.ClickBucket, error) {
	var query string

	switch {
	case hours <= 6:
		// Group by 10 minutes (all times in UTC)
		query = fmt.Sprintf(`
			SELECT
				(DATE_TRUNC('hour', clicked_at AT TIME ZONE 'UTC') +
				INTERVAL '10 minutes' * FLOOR(EXTRACT(MINUTE FROM clicked_at AT TIME ZONE 'UTC') / 10)) AT TIME ZONE 'UTC' as time_bucket,
				COUNT(*) as click_count
			FROM link_clicks
			WHERE link_id = $1
			AND clicked_at >= (NOW() AT TIME ZONE 'UTC') - INTERVAL '%d hours'
			GROUP BY time_bucket
			ORDER BY time_bucket ASC
		`, hours)
	case hours <= 24:
		// Group by 1 hour (all times in UTC)
		query = fmt.Sprintf(`
			SELECT
				DATE_TRUNC('hour', clicked_at AT TIME ZONE 'UTC') AT TIME ZONE 'UTC' as time_bucket,
				COUNT(*) as click_count
			FROM link_clicks
			WHERE link_id = $1
			AND clicked_at >= (NOW() AT TIME ZONE 'UTC') - INTERVAL '%d hours'
			GROUP BY time_bucket
			ORDER BY time_bucket ASC
		`, hours)
	default: // 7 days, 14 days, 30 days
		// Group by 1 day (all times in UTC)
		query = fmt.Sprintf(`
			SELECT
				DATE_TRUNC('day', clicked_at AT TIME ZONE 'UTC') AT TIME ZONE 'UTC' as time_bucket,
				COUNT(*) as click_count
			FROM link_clicks
			WHERE link_id = $1
			AND clicked_at >= (NOW() AT TIME ZONE 'UTC') - INTERVAL '%d hours'
			GROUP BY time_bucket
			ORDER BY time_bucket ASC
		`, hours)
	}

	rows, err := r.db.QueryContext(ctx, query, linkID)
	if err != nil {
		return nil, fmt.Errorf("failed to get click analytics: %w", err)
	}
	defer rows.Close()

	var buckets []models.ClickBucket
	for rows.Next() {
		var b models.ClickBucket
		if err := rows.Scan(&b.Time, &b.Count); err != nil {
			return nil, fmt.Errorf("failed to scan analytics: %w", err)
		}
		buckets = append(buckets, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analytics: %w", err)
	}

	return buckets, nil
}
