package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/linkcents/linkcents/internal/models"
	"github.com/linkcents/linkcents/internal/repository"
	"go.uber.org/zap"
)

const (
	defaultWorkerCount   = 3
	defaultChannelBuffer = 1000
	maxInsertRetries     = 3
	processTimeout       = 5 * time.Second
)

// ErrRecorderBusy means the click buffer is full and the event was dropped.
// The redirect itself is unaffected; only the statistics are lost.
var ErrRecorderBusy = errors.New("click recorder buffer full")

// ClickProcessor persists click events off the request path. Enqueue hands
// the event to a worker pool and returns immediately; the redirect response
// never waits on recording.
type ClickProcessor interface {
	Start()
	Stop()
	Enqueue(event *models.ClickEvent) (uuid.UUID, error)
}

type clickProcessor struct {
	clickRepo repository.ClickRepository
	linkRepo  repository.LinkRepository
	cacheRepo repository.CacheRepository
	statsRepo repository.StatsRepository
	logger    *zap.Logger

	events      chan *models.ClickEvent
	workerCount int
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

// ProcessorOptions tunes the worker pool. Zero values fall back to defaults.
type ProcessorOptions struct {
	Workers    int
	BufferSize int
}

func NewClickProcessor(
	clickRepo repository.ClickRepository,
	linkRepo repository.LinkRepository,
	cacheRepo repository.CacheRepository,
	statsRepo repository.StatsRepository,
	logger *zap.Logger,
	opts ProcessorOptions,
) ClickProcessor {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkerCount
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = defaultChannelBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &clickProcessor{
		clickRepo:   clickRepo,
		linkRepo:    linkRepo,
		cacheRepo:   cacheRepo,
		statsRepo:   statsRepo,
		logger:      logger,
		events:      make(chan *models.ClickEvent, opts.BufferSize),
		workerCount: opts.Workers,
	}
}

func (p *clickProcessor) Start() {
	p.ctx, p.cancel = context.WithCancel(context.Background())

	p.logger.Info("Starting click workers", zap.Int("count", p.workerCount))

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

func (p *clickProcessor) Stop() {
	p.logger.Info("Stopping click processor...")
	p.cancel()
	p.wg.Wait()
	p.logger.Info("Click processor stopped")
}

// Enqueue assigns the click id up front so the caller can embed it as a
// tracking correlation id on the destination URL, then hands the event to
// the pool without blocking. A full buffer drops the event.
func (p *clickProcessor) Enqueue(event *models.ClickEvent) (uuid.UUID, error) {
	event.ClickID = uuid.New()

	select {
	case p.events <- event:
		return event.ClickID, nil
	default:
		p.logger.Warn("Click buffer full, event dropped",
			zap.String("link_id", event.LinkID.String()),
		)
		return uuid.Nil, ErrRecorderBusy
	}
}

func (p *clickProcessor) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("Click worker started", zap.Int("id", id))

	for {
		select {
		case <-p.ctx.Done():
			p.logger.Debug("Click worker stopped", zap.Int("id", id))
			return

		case event, ok := <-p.events:
			if !ok {
				return
			}
			p.processClick(event)
		}
	}
}

// processClick persists one click: the append-only event row, then the
// per-field atomic counter updates. Each increment is its own atomic
// statement; there is no cross-field transaction, so a crash mid-way can
// leave the counters slightly apart. Failures are logged and swallowed.
func (p *clickProcessor) processClick(event *models.ClickEvent) {
	ctx, cancel := context.WithTimeout(p.ctx, processTimeout)
	defer cancel()

	// The link can be deleted between the redirect lookup and now. That race
	// is benign: log and drop, never retry or surface it.
	if _, err := p.linkRepo.GetByID(ctx, event.LinkID); err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			p.logger.Warn("Link gone before click was recorded",
				zap.String("link_id", event.LinkID.String()),
			)
		} else {
			p.logger.Error("Failed to check link before recording click",
				zap.String("link_id", event.LinkID.String()),
				zap.Error(err),
			)
		}
		return
	}

	now := time.Now().UTC()
	click := &models.Click{
		ID:        event.ClickID,
		LinkID:    event.LinkID,
		IP:        event.Client.IP,
		UserAgent: event.Client.UserAgent,
		Referer:   event.Client.Referer,
		Country:   event.Client.Country,
		Browser:   event.Client.Browser,
		OS:        event.Client.OS,
		Device:    event.Client.Device,
		ClickedAt: now,
	}

	if err := p.insertWithRetry(ctx, click); err != nil {
		p.logger.Error("Failed to record click after all retries",
			zap.String("link_id", event.LinkID.String()),
			zap.Error(err),
		)
		return
	}

	unique, err := p.cacheRepo.AddVisitor(ctx, event.LinkID, event.Client.IP)
	if err != nil {
		// Without the visitor set we cannot tell; count the click as unique
		// rather than silently undercounting.
		p.logger.Debug("Visitor set unavailable", zap.Error(err))
		unique = true
	}

	if err := p.clickRepo.IncrementLinkCounters(ctx, event.LinkID, unique, now); err != nil {
		p.logger.Error("Failed to increment link counters",
			zap.String("link_id", event.LinkID.String()),
			zap.Error(err),
		)
	}

	p.incrementBuckets(ctx, event, now)

	if err := p.statsRepo.IncrementOwnerStats(ctx, event.OwnerID, 0, 1); err != nil {
		p.logger.Warn("Failed to increment owner click count",
			zap.String("owner_id", event.OwnerID),
			zap.Error(err),
		)
	}
}

func (p *clickProcessor) insertWithRetry(ctx context.Context, click *models.Click) error {
	var lastErr error
	for i := 0; i < maxInsertRetries; i++ {
		if lastErr = p.clickRepo.Insert(ctx, click); lastErr == nil {
			return nil
		}
		if i < maxInsertRetries-1 {
			p.logger.Debug("Retrying click insert",
				zap.String("click_id", click.ID.String()),
				zap.Int("attempt", i+1),
				zap.Error(lastErr),
			)
			time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
		}
	}
	return fmt.Errorf("after %d retries: %w", maxInsertRetries, lastErr)
}

// incrementBuckets updates the distribution maps, one atomic upsert per
// dimension. Bucket keys are the classified values plus hour-of-day and
// day-of-week histograms.
func (p *clickProcessor) incrementBuckets(ctx context.Context, event *models.ClickEvent, at time.Time) {
	buckets := []struct {
		dimension string
		bucket    string
	}{
		{models.DimCountry, event.Client.Country},
		{models.DimReferer, event.Client.RefererHost},
		{models.DimBrowser, event.Client.Browser},
		{models.DimDevice, event.Client.Device},
		{models.DimHour, strconv.Itoa(at.Hour())},
		{models.DimWeekday, strconv.Itoa(int(at.Weekday()))},
	}

	for _, b := range buckets {
		if err := p.clickRepo.IncrementBucket(ctx, event.LinkID, b.dimension, b.bucket); err != nil {
			p.logger.Warn("Failed to increment analytics bucket",
				zap.String("link_id", event.LinkID.String()),
				zap.String("dimension", b.dimension),
				zap.Error(err),
			)
		}
	}
}
