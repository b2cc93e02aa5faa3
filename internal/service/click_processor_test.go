package service_test

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/google/uuid"
	"github.com/linkcents/linkcents/internal/models"
	"github.com/linkcents/linkcents/internal/service"
	"github.com/linkcents/linkcents/internal/service/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type processorEnv struct {
	processor service.ClickProcessor
	linkRepo  *mocks.MockLinkRepository
	clickRepo *mocks.MockClickRepository
	cacheRepo *mocks.MockCacheRepository
	statsRepo *mocks.MockStatsRepository
}

func setupProcessor(t *testing.T, opts service.ProcessorOptions) *processorEnv {
	t.Helper()

	linkRepo := mocks.NewMockLinkRepository()
	clickRepo := mocks.NewMockClickRepository(linkRepo)
	cacheRepo := mocks.NewMockCacheRepository()
	statsRepo := mocks.NewMockStatsRepository()

	processor := service.NewClickProcessor(clickRepo, linkRepo, cacheRepo, statsRepo, zap.NewNop(), opts)
	processor.Start()
	t.Cleanup(processor.Stop)

	return &processorEnv{
		processor: processor,
		linkRepo:  linkRepo,
		clickRepo: clickRepo,
		cacheRepo: cacheRepo,
		statsRepo: statsRepo,
	}
}

func storeLink(t *testing.T, env *processorEnv) *models.Link {
	t.Helper()

	link := &models.Link{
		ID:          uuid.New(),
		OwnerID:     testOwner,
		ShortCode:   "clk" + uuid.NewString()[:4],
		OriginalURL: "https://example.com/dest",
		Status:      models.StatusActive,
	}
	require.NoError(t, env.linkRepo.Create(context.Background(), link))
	return link
}

func clientFrom(ip string) models.ClientInfo {
	return models.ClientInfo{
		IP:          ip,
		UserAgent:   chromeWindowsUA,
		Referer:     "https://news.example.org/post",
		RefererHost: "news.example.org",
		Country:     "US",
		Browser:     "Chrome",
		OS:          "Windows",
		Device:      "desktop",
	}
}

func TestClickProcessor_Enqueue_AssignsClickID(t *testing.T) {
	env := setupProcessor(t, service.ProcessorOptions{})
	link := storeLink(t, env)

	clickID, err := env.processor.Enqueue(&models.ClickEvent{
		LinkID:  link.ID,
		OwnerID: link.OwnerID,
		Client:  clientFrom("203.0.113.1"),
	})

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, clickID)
}

func TestClickProcessor_RecordsClickAndCounters(t *testing.T) {
	env := setupProcessor(t, service.ProcessorOptions{})
	link := storeLink(t, env)
	ctx := context.Background()

	clickID, err := env.processor.Enqueue(&models.ClickEvent{
		LinkID:  link.ID,
		OwnerID: link.OwnerID,
		Client:  clientFrom("203.0.113.1"),
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		stored, err := env.linkRepo.GetByID(ctx, link.ID)
		return err == nil && stored.Analytics.Clicks == 1
	}, 2*time.Second, 10*time.Millisecond)

	clicks := env.clickRepo.Clicks()
	require.Len(t, clicks, 1)
	assert.Equal(t, clickID, clicks[0].ID)
	assert.Equal(t, link.ID, clicks[0].LinkID)
	assert.Equal(t, "Chrome", clicks[0].Browser)
	assert.Equal(t, "US", clicks[0].Country)
	assert.Equal(t, "desktop", clicks[0].Device)
	assert.False(t, clicks[0].ClickedAt.IsZero(), "timestamp must be server-assigned")

	stored, err := env.linkRepo.GetByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Analytics.UniqueVisitors)
	assert.NotNil(t, stored.Analytics.LastClickedAt)

	// Distribution buckets keyed by the classified values
	assert.Equal(t, int64(1), env.clickRepo.Bucket(link.ID, models.DimCountry, "US"))
	assert.Equal(t, int64(1), env.clickRepo.Bucket(link.ID, models.DimReferer, "news.example.org"))
	assert.Equal(t, int64(1), env.clickRepo.Bucket(link.ID, models.DimBrowser, "Chrome"))
	assert.Equal(t, int64(1), env.clickRepo.Bucket(link.ID, models.DimDevice, "desktop"))

	hour := strconv.Itoa(clicks[0].ClickedAt.Hour())
	assert.Equal(t, int64(1), env.clickRepo.Bucket(link.ID, models.DimHour, hour))

	stats, err := env.statsRepo.GetOwnerStats(ctx, link.OwnerID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalClicks)
}

// Concurrent clicks on one link must never lose a counter update.
func TestClickProcessor_ConcurrentClicks_NoLostUpdates(t *testing.T) {
	env := setupProcessor(t, service.ProcessorOptions{Workers: 8, BufferSize: 2000})
	link := storeLink(t, env)
	ctx := context.Background()

	const n = 200
	for i := 0; i < n; i++ {
		go func(i int) {
			_, err := env.processor.Enqueue(&models.ClickEvent{
				LinkID:  link.ID,
				OwnerID: link.OwnerID,
				Client:  clientFrom(fmt.Sprintf("203.0.113.%d", i%250)),
			})
			assert.NoError(t, err)
		}(i)
	}

	require.Eventually(t, func() bool {
		stored, err := env.linkRepo.GetByID(ctx, link.ID)
		return err == nil && stored.Analytics.Clicks == n
	}, 5*time.Second, 20*time.Millisecond, "clicks must increment by exactly N")

	count, err := env.clickRepo.CountByLink(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(n), count)
}

func TestClickProcessor_RepeatVisitor_NotUnique(t *testing.T) {
	env := setupProcessor(t, service.ProcessorOptions{Workers: 1})
	link := storeLink(t, env)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := env.processor.Enqueue(&models.ClickEvent{
			LinkID:  link.ID,
			OwnerID: link.OwnerID,
			Client:  clientFrom("203.0.113.9"),
		})
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		stored, err := env.linkRepo.GetByID(ctx, link.ID)
		return err == nil && stored.Analytics.Clicks == 3
	}, 2*time.Second, 10*time.Millisecond)

	stored, err := env.linkRepo.GetByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Analytics.UniqueVisitors)
}

// A link deleted between the redirect lookup and the background record is a
// benign race: the event is dropped, nothing panics, nothing is written.
func TestClickProcessor_LinkGone_Swallowed(t *testing.T) {
	env := setupProcessor(t, service.ProcessorOptions{Workers: 1})

	_, err := env.processor.Enqueue(&models.ClickEvent{
		LinkID:  uuid.New(),
		OwnerID: testOwner,
		Client:  clientFrom("203.0.113.1"),
	})
	require.NoError(t, err, "enqueue must not surface the race")

	time.Sleep(200 * time.Millisecond)
	assert.Empty(t, env.clickRepo.Clicks())
}

func TestClickProcessor_InsertFailure_NoCounterDrift(t *testing.T) {
	env := setupProcessor(t, service.ProcessorOptions{Workers: 1})
	link := storeLink(t, env)
	ctx := context.Background()

	env.clickRepo.InsertErr = errors.New("store unavailable")

	_, err := env.processor.Enqueue(&models.ClickEvent{
		LinkID:  link.ID,
		OwnerID: link.OwnerID,
		Client:  clientFrom("203.0.113.1"),
	})
	require.NoError(t, err)

	// Insert retries then gives up; counters must not move without a click row.
	time.Sleep(700 * time.Millisecond)
	stored, err := env.linkRepo.GetByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.Analytics.Clicks)
}

func TestClickProcessor_VisitorSetOutage_CountsAsUnique(t *testing.T) {
	env := setupProcessor(t, service.ProcessorOptions{Workers: 1})
	link := storeLink(t, env)
	ctx := context.Background()

	env.cacheRepo.VisitorErr = errors.New("redis down")

	_, err := env.processor.Enqueue(&models.ClickEvent{
		LinkID:  link.ID,
		OwnerID: link.OwnerID,
		Client:  clientFrom("203.0.113.1"),
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		stored, err := env.linkRepo.GetByID(ctx, link.ID)
		return err == nil && stored.Analytics.UniqueVisitors == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestClickProcessor_FullBuffer_DropsEvent(t *testing.T) {
	// Processor not started: nothing drains the channel.
	linkRepo := mocks.NewMockLinkRepository()
	clickRepo := mocks.NewMockClickRepository(linkRepo)
	cacheRepo := mocks.NewMockCacheRepository()
	statsRepo := mocks.NewMockStatsRepository()
	processor := service.NewClickProcessor(clickRepo, linkRepo, cacheRepo, statsRepo, zap.NewNop(), service.ProcessorOptions{
		Workers:    1,
		BufferSize: 1,
	})

	event := &models.ClickEvent{LinkID: uuid.New(), Client: clientFrom("203.0.113.1")}

	_, err := processor.Enqueue(event)
	require.NoError(t, err)

	id, err := processor.Enqueue(event)
	assert.ErrorIs(t, err, service.ErrRecorderBusy)
	assert.Equal(t, uuid.Nil, id)
}
