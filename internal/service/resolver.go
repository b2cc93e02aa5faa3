package service

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/linkcents/linkcents/internal/models"
	"github.com/linkcents/linkcents/internal/repository"
	"go.uber.org/zap"
)

// Terminal redirect destinations. These are paths on the serving host; the
// pages behind them are external collaborators.
const (
	DestNotFound = "/404"
	DestExpired  = "/expired"
	DestError    = "/error"

	monetizationPrefix = "/go/"
	sourceTag          = "shortlink"
)

// Redirect is the resolver's verdict: where to send the visitor.
type Redirect struct {
	Location string
	ClickID  uuid.UUID // zero when recording produced no id in time
}

// RedirectResolver drives the redirect state machine: lookup, status check,
// classification, fire-and-forget recording, destination selection. It never
// returns an error; the worst outcome for a visitor is the generic error
// destination.
type RedirectResolver interface {
	Resolve(ctx context.Context, code string, meta RequestMeta) Redirect
}

type redirectResolver struct {
	links  LinkService
	clicks ClickProcessor
	logger *zap.Logger
}

func NewRedirectResolver(links LinkService, clicks ClickProcessor, logger *zap.Logger) RedirectResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &redirectResolver{
		links:  links,
		clicks: clicks,
		logger: logger,
	}
}

func (r *redirectResolver) Resolve(ctx context.Context, code string, meta RequestMeta) Redirect {
	// Lookup
	link, err := r.links.GetLink(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return Redirect{Location: DestNotFound}
		}
		r.logger.Error("Link lookup failed", zap.String("short_code", code), zap.Error(err))
		return Redirect{Location: DestError}
	}

	// Status check: a past expires_at wins over the stored status, and a
	// non-active status is served exactly like an expired link.
	if !link.Servable(time.Now()) {
		return Redirect{Location: DestExpired}
	}

	// Classify and dispatch recording. The response must not wait on it and
	// a recording failure must not change it.
	client := Classify(meta)
	clickID, err := r.clicks.Enqueue(&models.ClickEvent{
		LinkID:  link.ID,
		OwnerID: link.OwnerID,
		Client:  client,
	})
	if err != nil {
		r.logger.Warn("Click recording skipped",
			zap.String("short_code", code),
			zap.Error(err),
		)
	}

	// Branch: monetization detour carries the short code, not the final
	// destination; the /go/ page forwards after showing ads.
	if link.Settings.AdEnabled {
		return Redirect{Location: monetizationPrefix + code, ClickID: clickID}
	}

	return Redirect{
		Location: annotateDestination(link.OriginalURL, clickID),
		ClickID:  clickID,
	}
}

// annotateDestination appends the click correlation id and source tag to the
// destination. Best effort: an unparseable destination goes out untouched.
func annotateDestination(destination string, clickID uuid.UUID) string {
	if clickID == uuid.Nil {
		return destination
	}

	u, err := url.Parse(destination)
	if err != nil {
		return destination
	}

	q := u.Query()
	q.Set("clickId", clickID.String())
	q.Set("src", sourceTag)
	u.RawQuery = q.Encode()

	return u.String()
}
