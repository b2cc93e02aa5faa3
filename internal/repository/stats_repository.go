package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/linkcents/linkcents/internal/models"
)

// StatsRepository maintains the per-owner aggregate row that the dashboard
// reads. Writes are atomic upserts so concurrent link creation and click
// recording never lose a count.
type StatsRepository interface {
	IncrementOwnerStats(ctx context.Context, ownerID string, linksDelta, clicksDelta int64) error
	GetOwnerStats(ctx context.Context, ownerID string) (*models.OwnerStats, error)
}

type statsRepository struct {
	db *PostgresDB
}

func NewStatsRepository(db *PostgresDB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) IncrementOwnerStats(ctx context.Context, ownerID string, linksDelta, clicksDelta int64) error {
	query := `
		INSERT INTO owner_stats (owner_id, total_links, total_clicks)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner_id)
		DO UPDATE SET
			total_links = owner_stats.total_links + $2,
			total_clicks = owner_stats.total_clicks + $3,
			updated_at = now()
	`

	if _, err := r.db.Pool.Exec(ctx, query, ownerID, linksDelta, clicksDelta); err != nil {
		return fmt.Errorf("failed to increment owner stats: %w", err)
	}

	return nil
}

func (r *statsRepository) GetOwnerStats(ctx context.Context, ownerID string) (*models.OwnerStats, error) {
	query := `
		SELECT owner_id, total_links, total_clicks, updated_at
		FROM owner_stats
		WHERE owner_id = $1
	`

	stats := &models.OwnerStats{}
	err := r.db.Pool.QueryRow(ctx, query, ownerID).Scan(
		&stats.OwnerID,
		&stats.TotalLinks,
		&stats.TotalClicks,
		&stats.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No activity yet is not an error for the dashboard.
			return &models.OwnerStats{OwnerID: ownerID}, nil
		}
		return nil, fmt.Errorf("failed to get owner stats: %w", err)
	}

	return stats, nil
}
