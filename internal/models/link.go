package models

import (
	"time"

	"github.com/google/uuid"
)

// Link statuses. Expired and disabled are terminal for redirect serving.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusExpired  = "expired"
	StatusDisabled = "disabled"
)

// Link is a short-code to destination mapping owned by a single account.
type Link struct {
	ID          uuid.UUID     `json:"id"`
	OwnerID     string        `json:"owner_id"`
	ShortCode   string        `json:"short_code"`
	OriginalURL string        `json:"original_url"`
	Title       string        `json:"title"`
	Status      string        `json:"status"`
	Settings    LinkSettings  `json:"settings"`
	Analytics   LinkAnalytics `json:"analytics"`
	ExpiresAt   *time.Time    `json:"expires_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// LinkSettings controls how a redirect is served.
type LinkSettings struct {
	RedirectDelay int     `json:"redirect_delay"`
	Password      *string `json:"password,omitempty"`
	AdEnabled     bool    `json:"ad_enabled"`
	BlogPages     int     `json:"blog_pages"`
}

// LinkAnalytics holds the aggregate counters embedded in a link. Counters are
// only ever moved through store-level atomic increments. Earnings is a
// reserved field that this service never writes.
type LinkAnalytics struct {
	Clicks         int64      `json:"clicks"`
	UniqueVisitors int64      `json:"unique_visitors"`
	Earnings       float64    `json:"earnings"`
	LastClickedAt  *time.Time `json:"last_clicked_at,omitempty"`
}

// Expired reports whether the link must be served as expired. A past
// expires_at wins over the stored status.
func (l *Link) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(now)
}

// Servable reports whether the redirect path may send visitors onward.
func (l *Link) Servable(now time.Time) bool {
	return !l.Expired(now) && l.Status == StatusActive
}

// CreateLinkInput carries owner-facing link creation parameters.
type CreateLinkInput struct {
	OwnerID       string
	OriginalURL   string
	Title         string
	CustomCode    *string
	ExpiresAt     *time.Time
	RedirectDelay *int
	Password      *string
	AdEnabled     *bool
	BlogPages     *int
}

// LinkUpdate is a partial update: nil fields are left untouched.
type LinkUpdate struct {
	OriginalURL *string
	Title       *string
	Status      *string
	ExpiresAt   *time.Time
	Settings    *LinkSettings
}

// Order columns accepted by ListOptions.
const (
	OrderByClicks        = "clicks"
	OrderByCreatedAt     = "created_at"
	OrderByLastClickedAt = "last_clicked_at"
)

// ListOptions filters an owner's link listing. The result is materialized at
// call time, not a live cursor.
type ListOptions struct {
	Status   string
	Search   string
	OrderBy  string
	OrderDir string // "asc" or "desc", default "desc"
	Limit    int
}

// OwnerStats is the per-owner aggregate row consumed by the dashboard.
type OwnerStats struct {
	OwnerID     string    `json:"owner_id"`
	TotalLinks  int64     `json:"total_links"`
	TotalClicks int64     `json:"total_clicks"`
	UpdatedAt   time.Time `json:"updated_at"`
}
