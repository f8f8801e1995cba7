package tracking

import (
	"regexp"
	"strings"
)

var botPattern = regexp.MustCompile(`(?i)` + strings.Join([]string{
	"bot", "crawl", "spider", "slurp", "search", "fetch", "scrape",
	"wget", "curl", "python-requests", "python-urllib", "java", "perl", "ruby",
	"go-http", "apache-httpclient",
	"googlebot", "bingbot", "yandex", "baidu", "duckduck",
	"facebook", "twitter", "whatsapp", "telegram", "slack", "discord", "linkedin", "pinterest",
	"semrush", "ahrefs", "mj12bot", "dotbot", "petalbot", "bytespider",
	"gptbot", "claudebot", "anthropic", "openai", "chatgpt",
	"headless", "phantom", "selenium", "puppeteer", "playwright",
	"lighthouse", "pagespeed", "gtmetrix", "pingdom",
	"uptime", "monitor", "health", "probe", "check",
}, "|"))

type namedPattern struct {
	re   *regexp.Regexp
	name string
}

// Order matters: engines that also advertise Chrome or Safari come first.
var browserPatterns = []namedPattern{
	{regexp.MustCompile(`Firefox/(\d+)`), "Firefox"},
	{regexp.MustCompile(`Edg/(\d+)`), "Edge"},
	{regexp.MustCompile(`OPR/(\d+)`), "Opera"},
	{regexp.MustCompile(`Opera/(\d+)`), "Opera"},
	{regexp.MustCompile(`Chrome/(\d+)`), "Chrome"},
	{regexp.MustCompile(`Safari/(\d+)`), "Safari"},
	{regexp.MustCompile(`MSIE (\d+)`), "Internet Explorer"},
	{regexp.MustCompile(`Trident/.*rv:(\d+)`), "Internet Explorer"},
}

var osPatterns = []namedPattern{
	{regexp.MustCompile(`Windows NT 10\.0`), "Windows 10/11"},
	{regexp.MustCompile(`Windows NT 6\.3`), "Windows 8.1"},
	{regexp.MustCompile(`Windows NT 6\.2`), "Windows 8"},
	{regexp.MustCompile(`Windows NT 6\.1`), "Windows 7"},
	{regexp.MustCompile(`Windows`), "Windows"},
	{regexp.MustCompile(`Mac OS X (\d+[._]\d+)`), "macOS"},
	{regexp.MustCompile(`Macintosh`), "macOS"},
	{regexp.MustCompile(`Android (\d+)`), "Android"},
	{regexp.MustCompile(`iPhone OS (\d+)`), "iOS"},
	{regexp.MustCompile(`iPad.*OS (\d+)`), "iPadOS"},
	{regexp.MustCompile(`Linux`), "Linux"},
	{regexp.MustCompile(`CrOS`), "ChromeOS"},
	{regexp.MustCompile(`Ubuntu`), "Ubuntu"},
	{regexp.MustCompile(`Fedora`), "Fedora"},
}

var (
	tabletPattern = regexp.MustCompile(`(?i)iPad|Tablet|PlayBook|Silk`)
	mobilePattern = regexp.MustCompile(`(?i)Mobile|Android|iPhone|iPod|BlackBerry|Windows Phone|Opera Mini|Opera Mobi`)
)

const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceUnknown = "unknown"
)

// UserAgent is the classification of a User-Agent header. Empty Browser,
// BrowserVersion or OS mean "not detected".
type UserAgent struct {
	Browser        string
	BrowserVersion string
	OS             string
	DeviceType     string
	IsBot          bool
}

func ParseUserAgent(ua string) UserAgent {
	if ua == "" {
		return UserAgent{DeviceType: DeviceUnknown}
	}

	parsed := UserAgent{
		IsBot:      botPattern.MatchString(ua),
		DeviceType: DeviceDesktop,
	}

	for _, p := range browserPatterns {
		if m := p.re.FindStringSubmatch(ua); m != nil {
			parsed.Browser = p.name
			parsed.BrowserVersion = m[1]
			break
		}
	}

	for _, p := range osPatterns {
		if p.re.MatchString(ua) {
			parsed.OS = p.name
			break
		}
	}

	switch {
	case tabletPattern.MatchString(ua):
		parsed.DeviceType = DeviceTablet
	case mobilePattern.MatchString(ua):
		parsed.DeviceType = DeviceMobile
	}

	return parsed
}

// ExtractDomain reduces a referrer URL to its bare host: no scheme, no
// leading "www.", no path and no port.
func ExtractDomain(rawURL string) (string, bool) {
	if rawURL == "" {
		return "", false
	}

	s := rawURL
	for _, scheme := range []string{"https://", "http://"} {
		if strings.HasPrefix(s, scheme) {
			s = s[len(scheme):]
			break
		}
	}
	s = strings.TrimPrefix(s, "www.")
	s, _, _ = strings.Cut(s, "/")
	s, _, _ = strings.Cut(s, ":")

	if s == "" {
		return "", false
	}
	return s, true
}
