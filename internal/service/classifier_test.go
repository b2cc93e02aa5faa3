package service_test

import (
	"testing"

	"github.com/linkcents/linkcents/internal/service"
	"github.com/stretchr/testify/assert"
)

const (
	chromeWindowsUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	safariIPhoneUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	googlebotUA     = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
)

func TestClassify_DesktopBrowser(t *testing.T) {
	info := service.Classify(service.RequestMeta{
		UserAgent:    chromeWindowsUA,
		Referer:      "https://www.google.com/search?q=test",
		ForwardedFor: "203.0.113.7, 10.0.0.1",
		Country:      "de",
	})

	assert.Equal(t, "Chrome", info.Browser)
	assert.Equal(t, "Windows", info.OS)
	assert.Equal(t, "desktop", info.Device)
	assert.Equal(t, "DE", info.Country)
	assert.Equal(t, "203.0.113.7", info.IP)
	assert.Equal(t, "https://www.google.com/search?q=test", info.Referer)
	assert.Equal(t, "google.com", info.RefererHost)
}

func TestClassify_Mobile(t *testing.T) {
	info := service.Classify(service.RequestMeta{UserAgent: safariIPhoneUA})

	assert.Equal(t, "mobile", info.Device)
	assert.Equal(t, "iOS", info.OS)
}

func TestClassify_Bot(t *testing.T) {
	info := service.Classify(service.RequestMeta{UserAgent: googlebotUA})

	assert.Equal(t, "bot", info.Device)
}

func TestClassify_EmptyMetadata(t *testing.T) {
	// Missing headers must classify, never fail: the redirect path depends
	// on it.
	info := service.Classify(service.RequestMeta{})

	assert.Equal(t, "unknown", info.Browser)
	assert.Equal(t, "unknown", info.OS)
	assert.Equal(t, "unknown", info.Device)
	assert.Equal(t, "unknown", info.Country)
	assert.Equal(t, "unknown", info.IP)
	assert.Equal(t, "direct", info.Referer)
	assert.Equal(t, "direct", info.RefererHost)
}

func TestClassify_EdgeCountryPlaceholder(t *testing.T) {
	// Cloudflare sends XX when the country is undetermined.
	info := service.Classify(service.RequestMeta{Country: "XX"})
	assert.Equal(t, "unknown", info.Country)
}

func TestClassify_FallbackToRemoteIP(t *testing.T) {
	info := service.Classify(service.RequestMeta{RemoteIP: "198.51.100.4"})
	assert.Equal(t, "198.51.100.4", info.IP)
}

func TestClassify_GarbageReferer(t *testing.T) {
	info := service.Classify(service.RequestMeta{Referer: "::not a url::"})

	assert.Equal(t, "::not a url::", info.Referer)
	assert.Equal(t, "unknown", info.RefererHost)
}
