// Package useragent resolves client browser, platform and IP information
// from an incoming request into a models.ClientContext.
package useragent

import (
	"net"
	"regexp"
	"strings"

	"finwatch/internal/models"

	"github.com/gin-gonic/gin"
)

type browserRule struct {
	pattern *regexp.Regexp
	name    string
}

var browserRules = []browserRule{
	{regexp.MustCompile(`(?i)EdgA?/`), "Microsoft Edge"},
	{regexp.MustCompile(`(?i)MSIE|Trident`), "Internet Explorer"},
	{regexp.MustCompile(`(?i)Firefox|FxiOS`), "Mozilla Firefox"},
	{regexp.MustCompile(`(?i)OPR/|Opera`), "Opera"},
	{regexp.MustCompile(`(?i)Vivaldi`), "Vivaldi"},
	{regexp.MustCompile(`(?i)SamsungBrowser`), "Samsung Browser"},
	{regexp.MustCompile(`(?i)UCBrowser`), "UC Browser"},
	{regexp.MustCompile(`(?i)Chrome|CriOS`), "Google Chrome"},
	{regexp.MustCompile(`(?i)Safari`), "Safari"},
}

var versionRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)EdgA?/([0-9.]+)`),
	regexp.MustCompile(`(?i)Firefox/([0-9.]+)`),
	regexp.MustCompile(`(?i)FxiOS/([0-9.]+)`),
	regexp.MustCompile(`(?i)OPR/([0-9.]+)`),
	regexp.MustCompile(`(?i)Opera/([0-9.]+)`),
	regexp.MustCompile(`(?i)Chrome/([0-9.]+)`),
	regexp.MustCompile(`(?i)CriOS/([0-9.]+)`),
	regexp.MustCompile(`(?i)Version/([0-9.]+).*Safari`),
	regexp.MustCompile(`(?i)MSIE ([0-9.]+)`),
	regexp.MustCompile(`(?i)rv:([0-9.]+)`),
}

type platformRule struct {
	pattern *regexp.Regexp
	name    string
}

// Device-specific rules come before the generic ones: iPhone and iPad
// agents also carry "like Mac OS X", Android agents carry "Linux".
var platformRules = []platformRule{
	{regexp.MustCompile(`(?i)windows nt 10`), "Windows 10/11"},
	{regexp.MustCompile(`(?i)windows nt 6\.3`), "Windows 8.1"},
	{regexp.MustCompile(`(?i)windows nt 6\.2`), "Windows 8"},
	{regexp.MustCompile(`(?i)windows nt 6\.1`), "Windows 7"},
	{regexp.MustCompile(`(?i)windows|win32|win64`), "Windows"},
	{regexp.MustCompile(`(?i)iphone`), "iPhone"},
	{regexp.MustCompile(`(?i)ipad`), "iPad"},
	{regexp.MustCompile(`(?i)android`), "Android"},
	{regexp.MustCompile(`(?i)macintosh|mac os x`), "macOS"},
	{regexp.MustCompile(`(?i)linux`), "Linux"},
	{regexp.MustCompile(`(?i)blackberry`), "BlackBerry"},
}

var mobilePattern = regexp.MustCompile(`(?i)mobile|android|iphone|ipod|blackberry|webos`)
var tabletPattern = regexp.MustCompile(`(?i)tablet|ipad`)

// BrowserName extracts the browser product name from a user agent string.
func BrowserName(ua string) string {
	for _, rule := range browserRules {
		if rule.pattern.MatchString(ua) {
			// Chrome ships a Safari token; prefer the Chrome match
			if rule.name == "Safari" && regexp.MustCompile(`(?i)Chrome|CriOS`).MatchString(ua) {
				continue
			}
			return rule.name
		}
	}
	return "Unknown Browser"
}

// BrowserVersion extracts the browser version from a user agent string.
func BrowserVersion(ua string) string {
	for _, rule := range versionRules {
		if m := rule.FindStringSubmatch(ua); m != nil {
			return m[1]
		}
	}
	return ""
}

// Platform extracts the operating system name from a user agent string.
func Platform(ua string) string {
	for _, rule := range platformRules {
		if rule.pattern.MatchString(ua) {
			return rule.name
		}
	}
	return "Unknown Platform"
}

// DeviceType classifies a user agent as Desktop, Mobile or Tablet.
func DeviceType(ua string) string {
	if tabletPattern.MatchString(ua) {
		return "Tablet"
	}
	if mobilePattern.MatchString(ua) {
		return "Mobile"
	}
	return "Desktop"
}

// forwarded headers checked in order for the public client address
var forwardHeaders = []string{
	"CF-Connecting-IP",
	"X-Real-IP",
	"X-Forwarded-For",
	"X-Cluster-Client-IP",
	"Forwarded-For",
}

// PublicIP resolves the public client address from forwarding headers,
// falling back to the transport remote address.
func PublicIP(c *gin.Context) string {
	for _, header := range forwardHeaders {
		value := c.GetHeader(header)
		if value == "" {
			continue
		}
		for _, part := range strings.Split(value, ",") {
			ip := net.ParseIP(strings.TrimSpace(part))
			if ip != nil && !isPrivate(ip) {
				return ip.String()
			}
		}
	}
	return c.ClientIP()
}

func isPrivate(ip net.IP) bool {
	return ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast()
}

// Resolve builds the full ClientContext for the current request.
func Resolve(c *gin.Context) models.ClientContext {
	ua := c.GetHeader("User-Agent")

	return models.ClientContext{
		IPPrivate:      c.ClientIP(),
		IPPublic:       PublicIP(c),
		Browser:        BrowserName(ua),
		BrowserVersion: BrowserVersion(ua),
		Platform:       Platform(ua),
		UserAgent:      ua,
	}
}
