// Package geo resolves client IP addresses to coarse locations.
package geo

import (
	"context"
	"net"
	"portfolio/internal/types"
	"strings"
)

//go:generate mockgen -destination=mock_geo/locator.go portfolio/internal/geo Locator

// Locator resolves ip to a location. An empty GeoInfo means unknown.
type Locator interface {
	Lookup(ctx context.Context, ip string) (types.GeoInfo, error)
}

// IsPrivate reports whether ip should never be looked up: loopback, private,
// link-local and unspecified addresses, plus anything that does not parse.
func IsPrivate(ip string) bool {
	if ip == "" || ip == "unknown" || ip == "localhost" {
		return true
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return true
	}
	return parsed.IsLoopback() ||
		parsed.IsPrivate() ||
		parsed.IsLinkLocalUnicast() ||
		parsed.IsLinkLocalMulticast() ||
		parsed.IsUnspecified()
}

// CountryFlag renders a two-letter ISO country code as its emoji flag.
func CountryFlag(code string) string {
	if len(code) != 2 {
		return ""
	}
	var b strings.Builder
	for _, c := range strings.ToUpper(code) {
		if c < 'A' || c > 'Z' {
			return ""
		}
		b.WriteRune(c + 0x1F1A5)
	}
	return b.String()
}

// Nop never resolves anything.
type Nop struct{}

func (Nop) Lookup(context.Context, string) (types.GeoInfo, error) {
	return types.GeoInfo{}, nil
}
