package service

import (
	"net/url"
	"strings"

	"github.com/linkcents/linkcents/internal/models"
	"github.com/mileusna/useragent"
)

// Fallback values for unclassifiable request metadata. Classification never
// errors: a bad header degrades to one of these, not a failed redirect.
const (
	valueUnknown = "unknown"
	valueDirect  = "direct"
)

// RequestMeta is the raw header material the redirect handler extracts from
// an inbound request. All fields are optional.
type RequestMeta struct {
	UserAgent    string
	Referer      string
	ForwardedFor string // X-Forwarded-For
	RemoteIP     string // transport-level fallback when no forwarded header
	Country      string // CDN/edge hint, e.g. CF-IPCountry
}

// Classify derives the visitor's browser, OS, device class, country and
// referrer from request metadata.
func Classify(meta RequestMeta) models.ClientInfo {
	info := models.ClientInfo{
		IP:          clientIP(meta),
		UserAgent:   meta.UserAgent,
		Referer:     valueDirect,
		RefererHost: valueDirect,
		Country:     valueUnknown,
		Browser:     valueUnknown,
		OS:          valueUnknown,
		Device:      valueUnknown,
	}

	if meta.Referer != "" {
		info.Referer = meta.Referer
		info.RefererHost = refererHost(meta.Referer)
	}

	if meta.Country != "" && meta.Country != "XX" {
		info.Country = strings.ToUpper(meta.Country)
	}

	if meta.UserAgent != "" {
		ua := useragent.Parse(meta.UserAgent)
		if ua.Name != "" {
			info.Browser = ua.Name
		}
		if ua.OS != "" {
			info.OS = ua.OS
		}
		info.Device = deviceClass(ua)
	}

	return info
}

func clientIP(meta RequestMeta) string {
	if meta.ForwardedFor != "" {
		// First hop is the original client.
		ip := strings.TrimSpace(strings.Split(meta.ForwardedFor, ",")[0])
		if ip != "" {
			return ip
		}
	}
	if meta.RemoteIP != "" {
		return meta.RemoteIP
	}
	return valueUnknown
}

func deviceClass(ua useragent.UserAgent) string {
	switch {
	case ua.Bot:
		return "bot"
	case ua.Mobile:
		return "mobile"
	case ua.Tablet:
		return "tablet"
	case ua.Desktop:
		return "desktop"
	default:
		return valueUnknown
	}
}

// refererHost buckets a referer by its host so the distribution map does not
// fragment over full URLs. The raw value is still stored on the click row.
func refererHost(referer string) string {
	u, err := url.Parse(referer)
	if err != nil || u.Host == "" {
		return valueUnknown
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}
