package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/linkcents/linkcents/internal/models"
	"github.com/linkcents/linkcents/internal/repository"
	"github.com/linkcents/linkcents/internal/service"
	"github.com/linkcents/linkcents/internal/service/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOwner = "owner-1"

func setupTestService() (service.LinkService, *mocks.MockLinkRepository, *mocks.MockCacheRepository, *mocks.MockStatsRepository) {
	linkRepo := mocks.NewMockLinkRepository()
	cacheRepo := mocks.NewMockCacheRepository()
	statsRepo := mocks.NewMockStatsRepository()
	logger := zap.NewNop()
	linkService := service.NewLinkService(linkRepo, cacheRepo, statsRepo, logger)
	return linkService, linkRepo, cacheRepo, statsRepo
}

func TestLinkService_CreateLink_Success(t *testing.T) {
	linkService, _, _, _ := setupTestService()

	input := &models.CreateLinkInput{
		OwnerID:     testOwner,
		OriginalURL: "https://example.com/test",
	}

	ctx := context.Background()
	link, err := linkService.CreateLink(ctx, input)

	require.NoError(t, err)
	assert.NotEmpty(t, link.ShortCode)
	assert.Equal(t, input.OriginalURL, link.OriginalURL)
	assert.Equal(t, models.StatusActive, link.Status)
	assert.Equal(t, testOwner, link.OwnerID)
	assert.NotZero(t, link.CreatedAt)
}

func TestLinkService_CreateLink_Defaults(t *testing.T) {
	linkService, _, _, _ := setupTestService()

	link, err := linkService.CreateLink(context.Background(), &models.CreateLinkInput{
		OwnerID:     testOwner,
		OriginalURL: "https://example.com/page",
	})

	require.NoError(t, err)
	assert.Equal(t, 10, link.Settings.RedirectDelay)
	assert.True(t, link.Settings.AdEnabled)
	assert.Equal(t, 3, link.Settings.BlogPages)
	assert.Equal(t, "Link to example.com", link.Title)
	assert.Zero(t, link.Analytics.Clicks)
	assert.Zero(t, link.Analytics.UniqueVisitors)
	assert.Zero(t, link.Analytics.Earnings)
}

func TestLinkService_CreateLink_WithCustomCode(t *testing.T) {
	linkService, _, _, _ := setupTestService()

	customCode := "abc123"
	input := &models.CreateLinkInput{
		OwnerID:     testOwner,
		OriginalURL: "https://example.com/test",
		CustomCode:  &customCode,
	}

	ctx := context.Background()
	link, err := linkService.CreateLink(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, customCode, link.ShortCode)

	// Round-trip: the custom code resolves back to the same destination.
	found, err := linkService.GetLink(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", found.ShortCode)
	assert.Equal(t, input.OriginalURL, found.OriginalURL)
}

func TestLinkService_CreateLink_DuplicateCustomCode(t *testing.T) {
	linkService, linkRepo, _, _ := setupTestService()
	ctx := context.Background()

	customCode := "taken1"
	_, err := linkService.CreateLink(ctx, &models.CreateLinkInput{
		OwnerID:     testOwner,
		OriginalURL: "https://example.com/first",
		CustomCode:  &customCode,
	})
	require.NoError(t, err)

	// Same code again fails with the duplicate error, distinct from
	// generation failure, and leaves the original untouched.
	link, err := linkService.CreateLink(ctx, &models.CreateLinkInput{
		OwnerID:     "owner-2",
		OriginalURL: "https://example.com/second",
		CustomCode:  &customCode,
	})
	assert.ErrorIs(t, err, service.ErrDuplicateCustomCode)
	assert.Nil(t, link)

	existing, err := linkRepo.GetByShortCode(ctx, "taken1")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/first", existing.OriginalURL)
	assert.Equal(t, testOwner, existing.OwnerID)
}

func TestLinkService_CreateLink_InvalidURL(t *testing.T) {
	linkService, _, _, _ := setupTestService()

	invalidURLs := []string{
		"not-a-url",
		"ftp://example.com",
		"",
		"example.com",
	}

	for _, url := range invalidURLs {
		link, err := linkService.CreateLink(context.Background(), &models.CreateLinkInput{
			OwnerID:     testOwner,
			OriginalURL: url,
		})
		assert.ErrorIs(t, err, service.ErrInvalidURL, "URL should be rejected: %s", url)
		assert.Nil(t, link)
	}
}

func TestLinkService_CreateLink_SpamDomain(t *testing.T) {
	linkService, _, _, _ := setupTestService()

	link, err := linkService.CreateLink(context.Background(), &models.CreateLinkInput{
		OwnerID:     testOwner,
		OriginalURL: "https://malware.com/bad-link",
	})

	assert.ErrorIs(t, err, service.ErrSpamDomain)
	assert.Nil(t, link)
}

func TestLinkService_CreateLink_InvalidCustomCode(t *testing.T) {
	linkService, _, _, _ := setupTestService()

	invalidCodes := []string{"ab", "toolongcustomcode123", "invalid@code", "go"}

	for _, code := range invalidCodes {
		customCode := code
		link, err := linkService.CreateLink(context.Background(), &models.CreateLinkInput{
			OwnerID:     testOwner,
			OriginalURL: "https://example.com/test",
			CustomCode:  &customCode,
		})

		assert.ErrorIs(t, err, service.ErrInvalidCode, "code should be rejected: %s", code)
		assert.Nil(t, link)
	}
}

func TestLinkService_CreateLink_IncrementsOwnerStats(t *testing.T) {
	linkService, _, _, statsRepo := setupTestService()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := linkService.CreateLink(ctx, &models.CreateLinkInput{
			OwnerID:     testOwner,
			OriginalURL: fmt.Sprintf("https://example.com/page-%d", i),
		})
		require.NoError(t, err)
	}

	stats, err := statsRepo.GetOwnerStats(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalLinks)
}

func TestLinkService_GetLink_FromCache(t *testing.T) {
	linkService, _, cacheRepo, _ := setupTestService()
	ctx := context.Background()

	created, err := linkService.CreateLink(ctx, &models.CreateLinkInput{
		OwnerID:     testOwner,
		OriginalURL: "https://example.com/test",
	})
	require.NoError(t, err)

	cached, err := cacheRepo.Get(ctx, created.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, created.ShortCode, cached.ShortCode)

	retrieved, err := linkService.GetLink(ctx, created.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, created.ShortCode, retrieved.ShortCode)
}

func TestLinkService_GetLink_NotFound(t *testing.T) {
	linkService, _, _, _ := setupTestService()

	link, err := linkService.GetLink(context.Background(), "nonexistent")

	assert.ErrorIs(t, err, repository.ErrLinkNotFound)
	assert.Nil(t, link)
}

func TestLinkService_UpdateLink_PartialMerge(t *testing.T) {
	linkService, _, _, _ := setupTestService()
	ctx := context.Background()

	created, err := linkService.CreateLink(ctx, &models.CreateLinkInput{
		OwnerID:     testOwner,
		OriginalURL: "https://example.com/before",
	})
	require.NoError(t, err)

	newTitle := "renamed"
	err = linkService.UpdateLink(ctx, testOwner, created.ShortCode, models.LinkUpdate{Title: &newTitle})
	require.NoError(t, err)

	after, err := linkService.GetOwnedLink(ctx, testOwner, created.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, "renamed", after.Title)
	// Unspecified fields stay untouched
	assert.Equal(t, "https://example.com/before", after.OriginalURL)
	assert.Equal(t, models.StatusActive, after.Status)
}

func TestLinkService_UpdateLink_WrongOwner(t *testing.T) {
	linkService, _, _, _ := setupTestService()
	ctx := context.Background()

	created, err := linkService.CreateLink(ctx, &models.CreateLinkInput{
		OwnerID:     testOwner,
		OriginalURL: "https://example.com/test",
	})
	require.NoError(t, err)

	status := models.StatusDisabled
	err = linkService.UpdateLink(ctx, "intruder", created.ShortCode, models.LinkUpdate{Status: &status})
	assert.ErrorIs(t, err, service.ErrNotOwner)
}

func TestLinkService_DeleteLink_Success(t *testing.T) {
	linkService, linkRepo, cacheRepo, _ := setupTestService()
	ctx := context.Background()

	created, err := linkService.CreateLink(ctx, &models.CreateLinkInput{
		OwnerID:     testOwner,
		OriginalURL: "https://example.com/test",
	})
	require.NoError(t, err)

	err = linkService.DeleteLink(ctx, testOwner, created.ShortCode)
	require.NoError(t, err)

	_, err = cacheRepo.Get(ctx, created.ShortCode)
	assert.Error(t, err)

	_, err = linkRepo.GetByShortCode(ctx, created.ShortCode)
	assert.ErrorIs(t, err, repository.ErrLinkNotFound)
}

func TestLinkService_DeleteLink_NotFound(t *testing.T) {
	linkService, _, _, _ := setupTestService()

	err := linkService.DeleteLink(context.Background(), testOwner, "nonexistent")
	assert.ErrorIs(t, err, repository.ErrLinkNotFound)
}

func TestLinkService_ListLinks_Filters(t *testing.T) {
	linkService, _, _, _ := setupTestService()
	ctx := context.Background()

	disabled := models.StatusDisabled
	for i := 0; i < 5; i++ {
		link, err := linkService.CreateLink(ctx, &models.CreateLinkInput{
			OwnerID:     testOwner,
			OriginalURL: fmt.Sprintf("https://example.com/page-%d", i),
		})
		require.NoError(t, err)
		if i%2 == 1 {
			require.NoError(t, linkService.UpdateLink(ctx, testOwner, link.ShortCode, models.LinkUpdate{Status: &disabled}))
		}
	}

	active, err := linkService.ListLinks(ctx, testOwner, models.ListOptions{Status: models.StatusActive})
	require.NoError(t, err)
	assert.Len(t, active, 3)

	limited, err := linkService.ListLinks(ctx, testOwner, models.ListOptions{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	searched, err := linkService.ListLinks(ctx, testOwner, models.ListOptions{Search: "page-3"})
	require.NoError(t, err)
	assert.Len(t, searched, 1)
}

func TestLinkService_GeneratedCodes_Unique(t *testing.T) {
	linkService, _, _, _ := setupTestService()
	ctx := context.Background()

	codes := make(map[string]bool)
	for i := 0; i < 100; i++ {
		link, err := linkService.CreateLink(ctx, &models.CreateLinkInput{
			OwnerID:     testOwner,
			OriginalURL: fmt.Sprintf("https://example.com/test-%d", i),
		})
		require.NoError(t, err)
		assert.Len(t, link.ShortCode, 7)
		assert.NotContains(t, codes, link.ShortCode, "short codes must be unique")
		codes[link.ShortCode] = true
	}
}

func TestLinkService_ConcurrentCreate(t *testing.T) {
	linkService, _, _, _ := setupTestService()
	ctx := context.Background()

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func(id int) {
			link, err := linkService.CreateLink(ctx, &models.CreateLinkInput{
				OwnerID:     testOwner,
				OriginalURL: fmt.Sprintf("https://example.com/concurrent-%d", id),
			})
			assert.NoError(t, err)
			assert.NotNil(t, link)
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestLinkService_CacheTTL_RespectsExpiry(t *testing.T) {
	linkService, _, _, _ := setupTestService()
	ctx := context.Background()

	expires := time.Now().Add(time.Hour)
	link, err := linkService.CreateLink(ctx, &models.CreateLinkInput{
		OwnerID:     testOwner,
		OriginalURL: "https://example.com/expiring",
		ExpiresAt:   &expires,
	})
	require.NoError(t, err)
	require.NotNil(t, link.ExpiresAt)
	assert.True(t, link.ExpiresAt.After(time.Now()))
}
