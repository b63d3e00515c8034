package useragent

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

const (
	chromeWindowsUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	firefoxLinuxUA  = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
	safariMacUA     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15"
	edgeWindowsUA   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.2210.91"
	chromeAndroidUA = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"
	safariIPadUA    = "Mozilla/5.0 (iPad; CPU OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1"
	safariIPhoneUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1"
)

func TestBrowserName(t *testing.T) {
	tests := []struct {
		name     string
		ua       string
		expected string
	}{
		{"chrome on windows", chromeWindowsUA, "Google Chrome"},
		{"firefox on linux", firefoxLinuxUA, "Mozilla Firefox"},
		{"safari on macos", safariMacUA, "Safari"},
		{"edge over chrome token", edgeWindowsUA, "Microsoft Edge"},
		{"chrome on android", chromeAndroidUA, "Google Chrome"},
		{"empty agent", "", "Unknown Browser"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BrowserName(tt.ua))
		})
	}
}

func TestBrowserVersion(t *testing.T) {
	assert.Equal(t, "120.0.0.0", BrowserVersion(chromeWindowsUA))
	assert.Equal(t, "121.0", BrowserVersion(firefoxLinuxUA))
	assert.Equal(t, "17.1", BrowserVersion(safariMacUA))
	assert.Equal(t, "120.0.2210.91", BrowserVersion(edgeWindowsUA))
	assert.Equal(t, "", BrowserVersion("curl/8.4.0"))
}

func TestPlatform(t *testing.T) {
	tests := []struct {
		name     string
		ua       string
		expected string
	}{
		{"windows 10", chromeWindowsUA, "Windows 10/11"},
		{"linux", firefoxLinuxUA, "Linux"},
		{"macos", safariMacUA, "macOS"},
		{"android", chromeAndroidUA, "Android"},
		// iPhone and iPad agents also contain "like Mac OS X" and must not
		// classify as macOS
		{"iphone over mac token", safariIPhoneUA, "iPhone"},
		{"ipad over mac token", safariIPadUA, "iPad"},
		{"empty agent", "", "Unknown Platform"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Platform(tt.ua))
		})
	}
}

func TestDeviceType(t *testing.T) {
	assert.Equal(t, "Desktop", DeviceType(chromeWindowsUA))
	assert.Equal(t, "Mobile", DeviceType(chromeAndroidUA))
	assert.Equal(t, "Tablet", DeviceType(safariIPadUA))
	assert.Equal(t, "Desktop", DeviceType(""))
}

func newTestContext(t *testing.T, headers map[string]string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodGet, "/", nil)
	assert.NoError(t, err)
	req.RemoteAddr = "192.168.1.50:51234"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	c.Request = req
	return c
}

func TestPublicIP(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		expected string
	}{
		{
			name:     "cloudflare header wins",
			headers:  map[string]string{"CF-Connecting-IP": "203.0.113.10", "X-Forwarded-For": "198.51.100.1"},
			expected: "203.0.113.10",
		},
		{
			name:     "forwarded-for chain skips private hops",
			headers:  map[string]string{"X-Forwarded-For": "10.0.0.5, 203.0.113.10"},
			expected: "203.0.113.10",
		},
		{
			name:     "x-real-ip",
			headers:  map[string]string{"X-Real-IP": "198.51.100.1"},
			expected: "198.51.100.1",
		},
		{
			name:     "all private falls back to remote addr",
			headers:  map[string]string{"X-Cluster-Client-IP": "10.0.0.5"},
			expected: "192.168.1.50",
		},
		{
			name:     "no headers",
			headers:  nil,
			expected: "192.168.1.50",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestContext(t, tt.headers)
			assert.Equal(t, tt.expected, PublicIP(c))
		})
	}
}

func TestResolve(t *testing.T) {
	c := newTestContext(t, map[string]string{
		"User-Agent":       chromeWindowsUA,
		"CF-Connecting-IP": "203.0.113.10",
	})

	client := Resolve(c)
	assert.Equal(t, "203.0.113.10", client.IPPublic)
	assert.Equal(t, "192.168.1.50", client.IPPrivate)
	assert.Equal(t, "Google Chrome", client.Browser)
	assert.Equal(t, "120.0.0.0", client.BrowserVersion)
	assert.Equal(t, "Windows 10/11", client.Platform)
	assert.Equal(t, chromeWindowsUA, client.UserAgent)
}
