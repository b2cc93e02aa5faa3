package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/linkcents/linkcents/internal/models"
)

type ClickRepository interface {
	Insert(ctx context.Context, click *models.Click) error
	IncrementLinkCounters(ctx context.Context, linkID uuid.UUID, uniqueVisitor bool, at time.Time) error
	IncrementBucket(ctx context.Context, linkID uuid.UUID, dimension, bucket string) error
	GetDistributions(ctx context.Context, linkID uuid.UUID) (map[string][]models.BucketCount, error)
	CountByLink(ctx context.Context, linkID uuid.UUID) (int64, error)
}

type clickRepository struct {
	db *PostgresDB
}

func NewClickRepository(db *PostgresDB) ClickRepository {
	return &clickRepository{db: db}
}

// Insert appends one immutable click row. The timestamp is server-assigned
// here, never taken from the visitor.
func (r *clickRepository) Insert(ctx context.Context, click *models.Click) error {
	query := `
		INSERT INTO clicks (id, link_id, ip, user_agent, referer, country, browser, os, device, clicked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		click.ID,
		click.LinkID,
		click.IP,
		click.UserAgent,
		click.Referer,
		click.Country,
		click.Browser,
		click.OS,
		click.Device,
		click.ClickedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert click: %w", err)
	}

	return nil
}

// IncrementLinkCounters bumps the aggregate counters on the link row in one
// atomic statement. Concurrent clicks on the same link must never lose an
// update, so the increment happens in SQL, not read-modify-write here.
func (r *clickRepository) IncrementLinkCounters(ctx context.Context, linkID uuid.UUID, uniqueVisitor bool, at time.Time) error {
	unique := int64(0)
	if uniqueVisitor {
		unique = 1
	}

	query := `
		UPDATE links
		SET clicks = clicks + 1,
		    unique_visitors = unique_visitors + $2,
		    last_clicked_at = $3,
		    updated_at = now()
		WHERE id = $1
	`

	result, err := r.db.Pool.Exec(ctx, query, linkID, unique, at)
	if err != nil {
		return fmt.Errorf("failed to increment link counters: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrLinkNotFound
	}

	return nil
}

// IncrementBucket is the increment-or-insert-zero operation behind the
// analytics distribution maps. Dimension and bucket are runtime-chosen keys;
// the upsert keeps the update atomic per bucket.
func (r *clickRepository) IncrementBucket(ctx context.Context, linkID uuid.UUID, dimension, bucket string) error {
	query := `
		INSERT INTO link_analytics (link_id, dimension, bucket, count)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (link_id, dimension, bucket)
		DO UPDATE SET count = link_analytics.count + 1
	`

	if _, err := r.db.Pool.Exec(ctx, query, linkID, dimension, bucket); err != nil {
		return fmt.Errorf("failed to increment %s bucket: %w", dimension, err)
	}

	return nil
}

func (r *clickRepository) GetDistributions(ctx context.Context, linkID uuid.UUID) (map[string][]models.BucketCount, error) {
	query := `
		SELECT dimension, bucket, count
		FROM link_analytics
		WHERE link_id = $1
		ORDER BY dimension, count DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, linkID)
	if err != nil {
		return nil, fmt.Errorf("failed to get distributions: %w", err)
	}
	defer rows.Close()

	distributions := make(map[string][]models.BucketCount)
	for rows.Next() {
		var dimension string
		var bc models.BucketCount
		if err := rows.Scan(&dimension, &bc.Bucket, &bc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan distribution row: %w", err)
		}
		distributions[dimension] = append(distributions[dimension], bc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating distributions: %w", err)
	}

	return distributions, nil
}

func (r *clickRepository) CountByLink(ctx context.Context, linkID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM clicks WHERE link_id = $1`, linkID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count clicks: %w", err)
	}
	return count, nil
}
