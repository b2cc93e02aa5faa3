package models

import (
	"time"

	"github.com/google/uuid"
)

// Click is an immutable event record appended once per recorded visit.
type Click struct {
	ID        uuid.UUID `json:"id"`
	LinkID    uuid.UUID `json:"link_id"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	Referer   string    `json:"referer"`
	Country   string    `json:"country"`
	Browser   string    `json:"browser"`
	OS        string    `json:"os"`
	Device    string    `json:"device"`
	ClickedAt time.Time `json:"clicked_at"`
}

// ClientInfo is the classifier's view of a visitor. Unknown values are the
// literal "unknown" ("direct" for a missing referer); classification never
// fails the redirect path.
type ClientInfo struct {
	IP           string
	UserAgent    string
	Referer      string // raw header value, "direct" when absent
	RefererHost  string // bucket key for the referrer distribution
	Country      string
	Browser      string
	OS           string
	Device       string
}

// ClickEvent travels from the resolver to the click worker pool. ClickID is
// assigned at enqueue time so the redirect can carry it as a correlation id
// without waiting for persistence.
type ClickEvent struct {
	ClickID uuid.UUID
	LinkID  uuid.UUID
	OwnerID string
	Client  ClientInfo
}

// Analytics distribution dimensions. Buckets under each dimension are
// runtime-chosen strings with increment-or-insert-zero semantics.
const (
	DimCountry = "country"
	DimReferer = "referrer"
	DimBrowser = "browser"
	DimDevice  = "device"
	DimHour    = "hour"
	DimWeekday = "weekday"
)

// BucketCount is one row of a distribution map.
type BucketCount struct {
	Bucket string `json:"bucket"`
	Count  int64  `json:"count"`
}

// LinkStats is the per-link aggregate view served to the dashboard.
type LinkStats struct {
	ShortCode      string                   `json:"short_code"`
	Clicks         int64                    `json:"clicks"`
	UniqueVisitors int64                    `json:"unique_visitors"`
	Earnings       float64                  `json:"earnings"`
	LastClickedAt  *time.Time               `json:"last_clicked_at,omitempty"`
	Distributions  map[string][]BucketCount `json:"distributions"`
}
