package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/linkcents/linkcents/internal/models"
	"github.com/linkcents/linkcents/internal/repository"
	"go.uber.org/zap"
)

// Owner-facing service errors. These carry through to typed API responses;
// the redirect path never sees them.
var (
	ErrInvalidURL          = errors.New("invalid URL")
	ErrInvalidCode         = errors.New("invalid custom code")
	ErrDuplicateCustomCode = errors.New("custom code already taken")
	ErrCodeGeneration      = errors.New("failed to generate a unique short code")
	ErrSpamDomain          = errors.New("destination domain is blacklisted")
	ErrNotOwner            = errors.New("link belongs to another owner")
)

const (
	cacheTTL = 24 * time.Hour

	defaultRedirectDelay = 10
	defaultBlogPages     = 3
)

// Destination domains refused at creation time.
var blacklistedDomains = []string{
	"malware.com",
	"phishing.com",
	"spam.com",
}

type LinkService interface {
	CreateLink(ctx context.Context, input *models.CreateLinkInput) (*models.Link, error)
	GetLink(ctx context.Context, code string) (*models.Link, error)
	GetOwnedLink(ctx context.Context, ownerID, code string) (*models.Link, error)
	ListLinks(ctx context.Context, ownerID string, opts models.ListOptions) ([]models.Link, error)
	UpdateLink(ctx context.Context, ownerID, code string, upd models.LinkUpdate) error
	DeleteLink(ctx context.Context, ownerID, code string) error
}

type linkService struct {
	linkRepo  repository.LinkRepository
	cacheRepo repository.CacheRepository
	statsRepo repository.StatsRepository
	codes     CodeGenerator
	logger    *zap.Logger
}

func NewLinkService(
	linkRepo repository.LinkRepository,
	cacheRepo repository.CacheRepository,
	statsRepo repository.StatsRepository,
	logger *zap.Logger,
) LinkService {
	return &linkService{
		linkRepo:  linkRepo,
		cacheRepo: cacheRepo,
		statsRepo: statsRepo,
		codes:     NewCodeGenerator(),
		logger:    logger,
	}
}

// CreateLink validates the input, settles on a unique short code and persists
// the link with its zeroed analytics. A successful create also bumps the
// owner's total_links, which the dashboard reads.
func (s *linkService) CreateLink(ctx context.Context, input *models.CreateLinkInput) (*models.Link, error) {
	if err := validateURL(input.OriginalURL); err != nil {
		return nil, err
	}
	if err := checkSpamDomain(input.OriginalURL); err != nil {
		return nil, err
	}

	link := &models.Link{
		ID:          uuid.New(),
		OwnerID:     input.OwnerID,
		OriginalURL: input.OriginalURL,
		Title:       input.Title,
		Status:      models.StatusActive,
		ExpiresAt:   input.ExpiresAt,
		Settings: models.LinkSettings{
			RedirectDelay: defaultRedirectDelay,
			AdEnabled:     true,
			BlogPages:     defaultBlogPages,
		},
	}
	if link.Title == "" {
		link.Title = defaultTitle(input.OriginalURL)
	}
	if input.RedirectDelay != nil {
		link.Settings.RedirectDelay = *input.RedirectDelay
	}
	if input.AdEnabled != nil {
		link.Settings.AdEnabled = *input.AdEnabled
	}
	if input.BlogPages != nil {
		link.Settings.BlogPages = *input.BlogPages
	}
	link.Settings.Password = input.Password

	if input.CustomCode != nil && *input.CustomCode != "" {
		if !validCustomCode(*input.CustomCode) {
			return nil, ErrInvalidCode
		}
		link.ShortCode = *input.CustomCode
		if err := s.linkRepo.Create(ctx, link); err != nil {
			if errors.Is(err, repository.ErrCodeExists) {
				// A taken custom code is the caller's problem, never retried.
				return nil, ErrDuplicateCustomCode
			}
			return nil, err
		}
	} else if err := s.createWithGeneratedCode(ctx, link); err != nil {
		return nil, err
	}

	if err := s.statsRepo.IncrementOwnerStats(ctx, link.OwnerID, 1, 0); err != nil {
		s.logger.Warn("Failed to increment owner link count",
			zap.String("owner_id", link.OwnerID),
			zap.Error(err),
		)
	}

	if err := s.cacheRepo.Set(ctx, link.ShortCode, link, s.cacheTTLFor(link)); err != nil {
		s.logger.Warn("Failed to cache link", zap.String("short_code", link.ShortCode), zap.Error(err))
	}

	return link, nil
}

// createWithGeneratedCode retries generation on collision, bounded by
// maxCodeAttempts. The store's unique constraint is the collision check, so
// there is no lookup race between checking and inserting.
func (s *linkService) createWithGeneratedCode(ctx context.Context, link *models.Link) error {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.codes.Generate()
		if err != nil {
			return fmt.Errorf("code generation: %w", err)
		}
		link.ShortCode = code

		err = s.linkRepo.Create(ctx, link)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrCodeExists) {
			return err
		}
		s.logger.Debug("Short code collision, retrying",
			zap.String("short_code", code),
			zap.Int("attempt", attempt+1),
		)
	}
	return ErrCodeGeneration
}

// GetLink resolves a short code, cache first. This is the latency-critical
// read behind every redirect.
func (s *linkService) GetLink(ctx context.Context, code string) (*models.Link, error) {
	link, err := s.cacheRepo.Get(ctx, code)
	if err == nil {
		return link, nil
	}

	link, err = s.linkRepo.GetByShortCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if err := s.cacheRepo.Set(ctx, code, link, s.cacheTTLFor(link)); err != nil {
		s.logger.Debug("Failed to cache link", zap.String("short_code", code), zap.Error(err))
	}

	return link, nil
}

// GetOwnedLink resolves a short code and checks ownership, reading the store
// directly so owners see fresh aggregate counters rather than a cached copy.
func (s *linkService) GetOwnedLink(ctx context.Context, ownerID, code string) (*models.Link, error) {
	link, err := s.linkRepo.GetByShortCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if link.OwnerID != ownerID {
		return nil, ErrNotOwner
	}
	return link, nil
}

func (s *linkService) ListLinks(ctx context.Context, ownerID string, opts models.ListOptions) ([]models.Link, error) {
	return s.linkRepo.ListByOwner(ctx, ownerID, opts)
}

func (s *linkService) UpdateLink(ctx context.Context, ownerID, code string, upd models.LinkUpdate) error {
	link, err := s.GetOwnedLink(ctx, ownerID, code)
	if err != nil {
		return err
	}

	if upd.OriginalURL != nil {
		if err := validateURL(*upd.OriginalURL); err != nil {
			return err
		}
		if err := checkSpamDomain(*upd.OriginalURL); err != nil {
			return err
		}
	}

	if err := s.linkRepo.Update(ctx, link.ID, upd); err != nil {
		return err
	}

	// Stale cached copies would serve the old destination or status.
	if err := s.cacheRepo.Delete(ctx, code); err != nil {
		s.logger.Warn("Failed to invalidate link cache", zap.String("short_code", code), zap.Error(err))
	}

	return nil
}

// DeleteLink removes the link row only. Click history stays behind as
// independent append-only facts.
func (s *linkService) DeleteLink(ctx context.Context, ownerID, code string) error {
	link, err := s.GetOwnedLink(ctx, ownerID, code)
	if err != nil {
		return err
	}

	if err := s.cacheRepo.Delete(ctx, code); err != nil {
		s.logger.Warn("Failed to invalidate link cache", zap.String("short_code", code), zap.Error(err))
	}

	if err := s.linkRepo.Delete(ctx, link.ID); err != nil {
		return err
	}

	if err := s.statsRepo.IncrementOwnerStats(ctx, ownerID, -1, 0); err != nil {
		s.logger.Warn("Failed to decrement owner link count",
			zap.String("owner_id", ownerID),
			zap.Error(err),
		)
	}

	return nil
}

func (s *linkService) cacheTTLFor(link *models.Link) time.Duration {
	if link.ExpiresAt != nil {
		if ttl := time.Until(*link.ExpiresAt); ttl < cacheTTL {
			return ttl
		}
	}
	return cacheTTL
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrInvalidURL
	}
	return nil
}

func checkSpamDomain(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidURL
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for _, domain := range blacklistedDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return ErrSpamDomain
		}
	}
	return nil
}

func defaultTitle(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "Link"
	}
	return "Link to " + u.Hostname()
}
