package service

import (
	"context"

	"github.com/linkcents/linkcents/internal/models"
	"github.com/linkcents/linkcents/internal/repository"
)

const defaultTopLimit = 5

// DashboardService is the thin read side consumed by the dashboard UI
// collaborator: owner summaries, per-link stats and top links by clicks.
type DashboardService interface {
	OwnerSummary(ctx context.Context, ownerID string) (*models.OwnerStats, error)
	LinkStats(ctx context.Context, ownerID, code string) (*models.LinkStats, error)
	TopLinks(ctx context.Context, ownerID string, limit int) ([]models.Link, error)
}

type dashboardService struct {
	links     LinkService
	linkRepo  repository.LinkRepository
	clickRepo repository.ClickRepository
	statsRepo repository.StatsRepository
}

func NewDashboardService(
	links LinkService,
	linkRepo repository.LinkRepository,
	clickRepo repository.ClickRepository,
	statsRepo repository.StatsRepository,
) DashboardService {
	return &dashboardService{
		links:     links,
		linkRepo:  linkRepo,
		clickRepo: clickRepo,
		statsRepo: statsRepo,
	}
}

func (s *dashboardService) OwnerSummary(ctx context.Context, ownerID string) (*models.OwnerStats, error) {
	return s.statsRepo.GetOwnerStats(ctx, ownerID)
}

func (s *dashboardService) LinkStats(ctx context.Context, ownerID, code string) (*models.LinkStats, error) {
	link, err := s.links.GetOwnedLink(ctx, ownerID, code)
	if err != nil {
		return nil, err
	}

	distributions, err := s.clickRepo.GetDistributions(ctx, link.ID)
	if err != nil {
		return nil, err
	}

	return &models.LinkStats{
		ShortCode:      link.ShortCode,
		Clicks:         link.Analytics.Clicks,
		UniqueVisitors: link.Analytics.UniqueVisitors,
		Earnings:       link.Analytics.Earnings,
		LastClickedAt:  link.Analytics.LastClickedAt,
		Distributions:  distributions,
	}, nil
}

func (s *dashboardService) TopLinks(ctx context.Context, ownerID string, limit int) ([]models.Link, error) {
	if limit <= 0 {
		limit = defaultTopLimit
	}
	return s.linkRepo.TopByClicks(ctx, ownerID, limit)
}
