// Package mocks provides in-memory repository implementations for tests.
// The link and click mocks share link state the way the real repositories
// share the links table, so counter increments are observable across both.
package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/linkcents/linkcents/internal/models"
	"github.com/linkcents/linkcents/internal/repository"
)

// MockLinkRepository implements repository.LinkRepository.
type MockLinkRepository struct {
	mu     sync.RWMutex
	byCode map[string]*models.Link
	byID   map[uuid.UUID]*models.Link

	// FailAll makes every call return an error, for store-outage tests.
	FailAll error
}

func NewMockLinkRepository() *MockLinkRepository {
	return &MockLinkRepository{
		byCode: make(map[string]*models.Link),
		byID:   make(map[uuid.UUID]*models.Link),
	}
}

func (m *MockLinkRepository) Create(ctx context.Context, link *models.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailAll != nil {
		return m.FailAll
	}
	if _, exists := m.byCode[link.ShortCode]; exists {
		return repository.ErrCodeExists
	}

	now := time.Now()
	link.CreatedAt = now
	link.UpdatedAt = now

	stored := *link
	m.byCode[link.ShortCode] = &stored
	m.byID[link.ID] = &stored
	return nil
}

func (m *MockLinkRepository) GetByShortCode(ctx context.Context, code string) (*models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.FailAll != nil {
		return nil, m.FailAll
	}
	link, exists := m.byCode[code]
	if !exists {
		return nil, repository.ErrLinkNotFound
	}
	copied := *link
	return &copied, nil
}

func (m *MockLinkRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.FailAll != nil {
		return nil, m.FailAll
	}
	link, exists := m.byID[id]
	if !exists {
		return nil, repository.ErrLinkNotFound
	}
	copied := *link
	return &copied, nil
}

func (m *MockLinkRepository) ListByOwner(ctx context.Context, ownerID string, opts models.ListOptions) ([]models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	links := []models.Link{}
	for _, link := range m.byCode {
		if link.OwnerID != ownerID {
			continue
		}
		if opts.Status != "" && link.Status != opts.Status {
			continue
		}
		if opts.Search != "" {
			needle := strings.ToLower(opts.Search)
			if !strings.Contains(strings.ToLower(link.Title), needle) &&
				!strings.Contains(strings.ToLower(link.OriginalURL), needle) &&
				!strings.Contains(strings.ToLower(link.ShortCode), needle) {
				continue
			}
		}
		links = append(links, *link)
	}

	asc := strings.EqualFold(opts.OrderDir, "asc")
	sort.Slice(links, func(i, j int) bool {
		var less bool
		switch opts.OrderBy {
		case models.OrderByClicks:
			less = links[i].Analytics.Clicks < links[j].Analytics.Clicks
		default:
			less = links[i].CreatedAt.Before(links[j].CreatedAt)
		}
		if asc {
			return less
		}
		return !less
	})

	if opts.Limit > 0 && len(links) > opts.Limit {
		links = links[:opts.Limit]
	}
	return links, nil
}

func (m *MockLinkRepository) TopByClicks(ctx context.Context, ownerID string, limit int) ([]models.Link, error) {
	return m.ListByOwner(ctx, ownerID, models.ListOptions{
		OrderBy:  models.OrderByClicks,
		OrderDir: "desc",
		Limit:    limit,
	})
}

func (m *MockLinkRepository) Update(ctx context.Context, id uuid.UUID, upd models.LinkUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, exists := m.byID[id]
	if !exists {
		return repository.ErrLinkNotFound
	}
	if upd.OriginalURL != nil {
		link.OriginalURL = *upd.OriginalURL
	}
	if upd.Title != nil {
		link.Title = *upd.Title
	}
	if upd.Status != nil {
		link.Status = *upd.Status
	}
	if upd.ExpiresAt != nil {
		link.ExpiresAt = upd.ExpiresAt
	}
	if upd.Settings != nil {
		link.Settings = *upd.Settings
	}
	link.UpdatedAt = time.Now()
	return nil
}

func (m *MockLinkRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, exists := m.byID[id]
	if !exists {
		return repository.ErrLinkNotFound
	}
	delete(m.byCode, link.ShortCode)
	delete(m.byID, id)
	return nil
}

// MockCacheRepository implements repository.CacheRepository.
type MockCacheRepository struct {
	mu       sync.RWMutex
	cache    map[string]*models.Link
	visitors map[uuid.UUID]map[string]bool

	// VisitorErr makes AddVisitor fail, simulating a Redis outage.
	VisitorErr error
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		cache:    make(map[string]*models.Link),
		visitors: make(map[uuid.UUID]map[string]bool),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, code string) (*models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	link, exists := m.cache[code]
	if !exists {
		return nil, repository.ErrLinkNotFound
	}
	copied := *link
	return &copied, nil
}

func (m *MockCacheRepository) Set(ctx context.Context, code string, link *models.Link, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *link
	m.cache[code] = &copied
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, code)
	return nil
}

func (m *MockCacheRepository) AddVisitor(ctx context.Context, linkID uuid.UUID, ip string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.VisitorErr != nil {
		return false, m.VisitorErr
	}
	set, exists := m.visitors[linkID]
	if !exists {
		set = make(map[string]bool)
		m.visitors[linkID] = set
	}
	if set[ip] {
		return false, nil
	}
	set[ip] = true
	return true, nil
}

// MockClickRepository implements repository.ClickRepository. It mutates link
// counters through the shared MockLinkRepository, mirroring how the real
// implementation updates the links table.
type MockClickRepository struct {
	mu      sync.RWMutex
	links   *MockLinkRepository
	clicks  []models.Click
	buckets map[uuid.UUID]map[string]map[string]int64

	// InsertErr makes Insert fail, for recording-failure tests.
	InsertErr error
}

func NewMockClickRepository(links *MockLinkRepository) *MockClickRepository {
	return &MockClickRepository{
		links:   links,
		buckets: make(map[uuid.UUID]map[string]map[string]int64),
	}
}

func (m *MockClickRepository) Insert(ctx context.Context, click *models.Click) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.InsertErr != nil {
		return m.InsertErr
	}
	m.clicks = append(m.clicks, *click)
	return nil
}

func (m *MockClickRepository) IncrementLinkCounters(ctx context.Context, linkID uuid.UUID, uniqueVisitor bool, at time.Time) error {
	m.links.mu.Lock()
	defer m.links.mu.Unlock()

	link, exists := m.links.byID[linkID]
	if !exists {
		return repository.ErrLinkNotFound
	}
	link.Analytics.Clicks++
	if uniqueVisitor {
		link.Analytics.UniqueVisitors++
	}
	clicked := at
	link.Analytics.LastClickedAt = &clicked
	return nil
}

func (m *MockClickRepository) IncrementBucket(ctx context.Context, linkID uuid.UUID, dimension, bucket string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dims, exists := m.buckets[linkID]
	if !exists {
		dims = make(map[string]map[string]int64)
		m.buckets[linkID] = dims
	}
	counts, exists := dims[dimension]
	if !exists {
		counts = make(map[string]int64)
		dims[dimension] = counts
	}
	counts[bucket]++
	return nil
}

func (m *MockClickRepository) GetDistributions(ctx context.Context, linkID uuid.UUID) (map[string][]models.BucketCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	distributions := make(map[string][]models.BucketCount)
	for dimension, counts := range m.buckets[linkID] {
		for bucket, count := range counts {
			distributions[dimension] = append(distributions[dimension], models.BucketCount{
				Bucket: bucket,
				Count:  count,
			})
		}
	}
	return distributions, nil
}

func (m *MockClickRepository) CountByLink(ctx context.Context, linkID uuid.UUID) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, click := range m.clicks {
		if click.LinkID == linkID {
			count++
		}
	}
	return count, nil
}

// Clicks returns a snapshot of all recorded clicks.
func (m *MockClickRepository) Clicks() []models.Click {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Click, len(m.clicks))
	copy(out, m.clicks)
	return out
}

// Bucket returns one distribution counter.
func (m *MockClickRepository) Bucket(linkID uuid.UUID, dimension, bucket string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.buckets[linkID][dimension][bucket]
}

// MockStatsRepository implements repository.StatsRepository.
type MockStatsRepository struct {
	mu    sync.RWMutex
	stats map[string]*models.OwnerStats
}

func NewMockStatsRepository() *MockStatsRepository {
	return &MockStatsRepository{stats: make(map[string]*models.OwnerStats)}
}

func (m *MockStatsRepository) IncrementOwnerStats(ctx context.Context, ownerID string, linksDelta, clicksDelta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, exists := m.stats[ownerID]
	if !exists {
		s = &models.OwnerStats{OwnerID: ownerID}
		m.stats[ownerID] = s
	}
	s.TotalLinks += linksDelta
	s.TotalClicks += clicksDelta
	s.UpdatedAt = time.Now()
	return nil
}

func (m *MockStatsRepository) GetOwnerStats(ctx context.Context, ownerID string) (*models.OwnerStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, exists := m.stats[ownerID]
	if !exists {
		return &models.OwnerStats{OwnerID: ownerID}, nil
	}
	copied := *s
	return &copied, nil
}
